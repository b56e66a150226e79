package registry

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemalens/internal/schema"
)

func build(t *testing.T, typ string, version int, category string) *schema.ComponentSchema {
	t.Helper()
	s, err := schema.Build(schema.Description{
		Type:     typ,
		Version:  version,
		Category: category,
		Fields: []schema.FieldDescriptor{
			{Name: "value", Type: schema.TypeNumber, Required: true, Default: version, Visibility: schema.Everyone()},
		},
	})
	require.NoError(t, err)
	return s
}

func TestRegister_DuplicateTypeVersionFails(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(build(t, "needs", 1, "agent")))

	err := r.Register(build(t, "needs", 1, "agent"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateSchema)
	assert.Equal(t, 1, r.Len())
}

func TestRegister_DifferentVersionsCoexist(t *testing.T) {
	r := New()
	v2 := build(t, "needs", 2, "agent")
	v1 := build(t, "needs", 1, "agent")
	require.NoError(t, r.Register(v2))
	require.NoError(t, r.Register(v1))

	got1, ok := r.GetVersion("needs", 1)
	require.True(t, ok)
	assert.Same(t, v1, got1)

	got2, ok := r.GetVersion("needs", 2)
	require.True(t, ok)
	assert.Same(t, v2, got2)

	latest, ok := r.Get("needs")
	require.True(t, ok)
	assert.Same(t, v2, latest, "Get returns the highest version regardless of registration order")

	assert.Equal(t, []*schema.ComponentSchema{v1, v2}, r.Versions("needs"))
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	r := New()
	r.MustRegister(build(t, "soul", 1, "soul"))
	assert.Panics(t, func() { r.MustRegister(build(t, "soul", 1, "soul")) })
}

func TestFreeze(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(build(t, "plant", 1, "farming")))
	r.Freeze()
	r.Freeze()

	assert.True(t, r.Frozen())
	err := r.Register(build(t, "animal", 1, "husbandry"))
	assert.ErrorIs(t, err, ErrFrozen)

	_, ok := r.Get("plant")
	assert.True(t, ok, "reads keep working after freeze")
}

func TestQueries(t *testing.T) {
	r := New()
	for _, s := range []*schema.ComponentSchema{
		build(t, "plant", 1, "farming"),
		build(t, "animal", 1, "husbandry"),
		build(t, "crop_field", 1, "farming"),
		build(t, "plant", 2, "farming"),
	} {
		require.NoError(t, r.Register(s))
	}

	var keys []string
	for _, s := range r.GetByCategory("farming") {
		keys = append(keys, s.Key())
	}
	assert.Equal(t, []string{"crop_field@1", "plant@1", "plant@2"}, keys)

	assert.Empty(t, r.GetByCategory("magic"))
	assert.Equal(t, []string{"farming", "husbandry"}, r.Categories())
	assert.Len(t, r.All(), 4)
	assert.Equal(t, "animal", r.All()[0].Type())

	_, ok := r.Get("missing")
	assert.False(t, ok)
}

func TestResolve(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(build(t, "needs", 1, "agent")))
	require.NoError(t, r.Register(build(t, "needs", 3, "agent")))

	s, ok := r.Resolve(schema.NewInstance("needs", 1, nil))
	require.True(t, ok)
	assert.Equal(t, 1, s.Version())

	s, ok = r.Resolve(schema.NewInstance("needs", 2, nil))
	require.True(t, ok)
	assert.Equal(t, 3, s.Version(), "unknown versions resolve to the latest")

	_, ok = r.Resolve(schema.NewInstance("ghost", 1, nil))
	assert.False(t, ok)
	_, ok = r.Resolve(nil)
	assert.False(t, ok)
}

func TestNewInstance(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(build(t, "needs", 2, "agent")))

	inst, err := r.NewInstance("needs")
	require.NoError(t, err)
	assert.Equal(t, "needs", inst.Type)
	assert.Equal(t, 2, inst.Version)
	assert.Equal(t, 2, inst.Data["value"])

	_, err = r.NewInstance("ghost")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestCheck(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(build(t, "needs", 1, "agent")))
	assert.NoError(t, r.Check())
}

func TestRegisterYAML(t *testing.T) {
	fsys := fstest.MapFS{
		"weather.yaml": {Data: []byte(`
schemas:
  - type: weather_sense
    version: 1
    category: world
    fields:
      - name: feels
        type: enum
        enum: [warm, cold]
        required: true
        default: warm
        visibility: {player: true, llm: true, agent: true, user: true, dev: true}
`)},
		"dup.yaml": {Data: []byte(`
schemas:
  - type: weather_sense
    version: 1
    category: world
`)},
	}

	r := New()
	got, err := r.RegisterYAML(fsys, "weather.yaml")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "weather_sense@1", got[0].Key())

	_, err = r.RegisterYAML(fsys, "dup.yaml")
	assert.ErrorIs(t, err, ErrDuplicateSchema)
}
