package ecs

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemalens/internal/schema"
)

func TestEntityAttachReplacesSameType(t *testing.T) {
	e := NewEntity("mira")
	_, err := uuid.Parse(e.ID)
	require.NoError(t, err)

	e.Attach(schema.NewInstance("needs", 1, schema.Data{"hunger": 0.2}))
	e.Attach(schema.NewInstance("needs", 1, schema.Data{"hunger": 0.9}))
	e.Attach(nil)

	inst, ok := e.Component("needs")
	require.True(t, ok)
	assert.Equal(t, 0.9, inst.Data["hunger"])
	assert.Len(t, e.Components, 1)
}

func TestEntityTypesSorted(t *testing.T) {
	e := &Entity{ID: "x"}
	e.Attach(schema.NewInstance("soul", 1, nil))
	e.Attach(schema.NewInstance("identity", 1, nil))
	e.Attach(schema.NewInstance("needs", 1, nil))

	assert.Equal(t, []string{"identity", "needs", "soul"}, e.Types())

	var seen []string
	e.Each(func(i *schema.Instance) { seen = append(seen, i.Type) })
	assert.Equal(t, e.Types(), seen)

	e.Detach("needs")
	assert.False(t, e.Has("needs"))
	assert.True(t, e.Has("soul"))
}

func TestWorld(t *testing.T) {
	w := NewWorld()
	a := &Entity{ID: "b", Name: "bram"}
	b := &Entity{ID: "a", Name: "ada"}
	w.Add(a)
	w.Add(b)
	w.Add(nil)

	assert.Equal(t, 2, w.Len())
	assert.Equal(t, []*Entity{b, a}, w.Sorted())

	got, ok := w.FindByName("bram")
	require.True(t, ok)
	assert.Same(t, a, got)

	w.Remove("b")
	_, ok = w.Entity("b")
	assert.False(t, ok)
}
