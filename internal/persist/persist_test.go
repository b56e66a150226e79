package persist

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"schemalens/internal/ecs"
	"schemalens/internal/registry"
	"schemalens/internal/schema"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newRegistry registers needs@2, which added energy and social as required
// fields after saves with only hunger were written.
func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	needs, err := schema.Build(schema.Description{
		Type:     "needs",
		Version:  2,
		Category: "agent",
		Fields: []schema.FieldDescriptor{
			{Name: "hunger", Type: schema.TypeNumber, Required: true, Default: 0.0, Visibility: schema.Everyone()},
			{Name: "energy", Type: schema.TypeNumber, Required: true, Default: 1.0, Visibility: schema.Everyone()},
			{Name: "social", Type: schema.TypeNumber, Required: true, Default: 0.5, Visibility: schema.Everyone()},
			{Name: "note", Type: schema.TypeString, Visibility: schema.DevOnly()},
		},
	})
	require.NoError(t, err)
	require.NoError(t, r.Register(needs))

	identity, err := schema.Build(schema.Description{
		Type:     "identity",
		Version:  1,
		Category: "agent",
		Fields: []schema.FieldDescriptor{
			{Name: "name", Type: schema.TypeString, Required: true, Default: "stranger", Visibility: schema.Everyone()},
		},
	})
	require.NoError(t, err)
	require.NoError(t, r.Register(identity))
	r.Freeze()
	return r
}

const legacySave = `{
  "format": 1,
  "tick": 1200,
  "entities": [
    {
      "id": "agent-1",
      "name": "Ilse",
      "components": [
        {"type": "needs", "version": 1, "data": {"hunger": 0.3}},
        {"type": "identity", "version": 1, "data": {"name": "Ilse", "nickname": "Miller"}},
        {"type": "curse", "version": 1, "data": {"level": 3}}
      ]
    }
  ]
}`

func TestLoader_SubstitutesMissingRequiredFields(t *testing.T) {
	r := newRegistry(t)
	snap, err := ReadSnapshot(strings.NewReader(legacySave))
	require.NoError(t, err)

	needs, _ := r.Get("needs")
	require.False(t, needs.Validate(snap.Entities[0].Components[0].Data), "legacy needs lacks energy and social")

	w, subs := NewLoader(r).LoadWorld(snap)
	assert.Equal(t, 1200, w.Tick)

	e, ok := w.Entity("agent-1")
	require.True(t, ok)

	inst, ok := e.Component("needs")
	require.True(t, ok)
	assert.True(t, needs.Validate(inst.Data))
	assert.Equal(t, 1.0, inst.Data["energy"])
	assert.Equal(t, 0.5, inst.Data["social"])
	assert.Equal(t, 2, inst.Version, "replacement comes from the current schema")

	want := []Substitution{
		{EntityID: "agent-1", Component: "curse", Version: 1, Reason: "unknown_type", Action: ActionDiscarded},
		{EntityID: "agent-1", Component: "needs", Version: 1, Reason: "invalid", Action: ActionReplaced,
			Issues: []string{"energy: required field missing", "social: required field missing"}},
	}
	if diff := cmp.Diff(want, sortSubs(subs)); diff != "" {
		t.Errorf("substitutions mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_KeepsValidLegacyData(t *testing.T) {
	r := newRegistry(t)
	snap, err := ReadSnapshot(strings.NewReader(legacySave))
	require.NoError(t, err)

	w, _ := NewLoader(r).LoadWorld(snap)
	e, _ := w.Entity("agent-1")

	id, ok := e.Component("identity")
	require.True(t, ok)
	assert.Equal(t, "Ilse", id.Data["name"])
	assert.Equal(t, "Miller", id.Data["nickname"], "unknown keys are tolerated")
	assert.False(t, e.Has("curse"))
}

func TestLoader_WrongShapeReplaced(t *testing.T) {
	r := newRegistry(t)
	snap := &Snapshot{Entities: []EntitySnapshot{{
		ID: "a",
		Components: []ComponentSnapshot{
			{Type: "identity", Version: 1, Data: "not an object"},
			{Type: "needs", Version: 2, Data: map[string]any{"hunger": "starving", "energy": 1.0, "social": 0.1}},
		},
	}}}

	w, subs := NewLoader(r).LoadWorld(snap)
	require.Len(t, subs, 2)

	e, _ := w.Entity("a")
	id, _ := e.Component("identity")
	assert.Equal(t, "stranger", id.Data["name"])
	needs, _ := e.Component("needs")
	assert.Equal(t, 0.0, needs.Data["hunger"])
}

func TestLoader_DuplicateComponentDiscarded(t *testing.T) {
	r := newRegistry(t)
	snap := &Snapshot{Entities: []EntitySnapshot{{
		ID: "a",
		Components: []ComponentSnapshot{
			{Type: "identity", Version: 1, Data: map[string]any{"name": "Ilse"}},
			{Type: "identity", Version: 1, Data: map[string]any{"name": "Bram"}},
		},
	}}}

	w, subs := NewLoader(r).LoadWorld(snap)

	e, _ := w.Entity("a")
	id, ok := e.Component("identity")
	require.True(t, ok)
	assert.Equal(t, "Ilse", id.Data["name"], "the first saved component is kept")

	want := []Substitution{
		{EntityID: "a", Component: "identity", Version: 1, Reason: "duplicate", Action: ActionDiscarded},
	}
	if diff := cmp.Diff(want, subs); diff != "" {
		t.Errorf("substitutions mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_NilSnapshot(t *testing.T) {
	w, subs := NewLoader(registry.New()).LoadWorld(nil)
	assert.Zero(t, w.Len())
	assert.Empty(t, subs)
}

func TestSnapshotRoundTrip(t *testing.T) {
	r := newRegistry(t)
	w := ecs.NewWorld()
	w.Tick = 7
	e := &ecs.Entity{ID: "b", Name: "Bram"}
	inst, err := r.NewInstance("needs")
	require.NoError(t, err)
	e.Attach(inst)
	w.Add(e)

	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, Capture(w)))

	snap, err := ReadSnapshot(&buf)
	require.NoError(t, err)
	loaded, subs := NewLoader(r).LoadWorld(snap)
	assert.Empty(t, subs)

	got, _ := loaded.Entity("b")
	if diff := cmp.Diff(e, got); diff != "" {
		t.Errorf("entity mismatch after round trip (-want +got):\n%s", diff)
	}
}

func TestSnapshotFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saves", "world.json")
	snap, err := ReadSnapshot(strings.NewReader(legacySave))
	require.NoError(t, err)

	require.NoError(t, SaveSnapshotFile(path, snap))
	got, err := LoadSnapshotFile(path)
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	_, err = LoadSnapshotFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = ReadSnapshot(strings.NewReader(`{"format": 99}`))
	assert.Error(t, err)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SaveAndRestore(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)
	store := openTestStore(t)

	legacy, err := ReadSnapshot(strings.NewReader(legacySave))
	require.NoError(t, err)
	require.NoError(t, store.SaveSnapshot(ctx, legacy))

	stored, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1200, stored.Tick)
	require.Len(t, stored.Entities, 1)
	assert.Len(t, stored.Entities[0].Components, 3)

	w, subs, err := store.Restore(ctx, NewLoader(r))
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	logged, err := store.Substitutions(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(sortSubs(subs), sortSubs(logged)); diff != "" {
		t.Errorf("logged substitutions mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, store.SaveWorld(ctx, w))
	_, subs, err = store.Restore(ctx, NewLoader(r))
	require.NoError(t, err)
	assert.Empty(t, subs, "a healed world reloads cleanly")
}

func TestStore_EntityWithoutComponents(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.SaveSnapshot(ctx, &Snapshot{Entities: []EntitySnapshot{{ID: "empty"}}}))
	snap, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Entities, 1)
	assert.Empty(t, snap.Entities[0].Components)
}

func TestOpenStoreOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "world.db")
	store, err := OpenStore(path)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())
	require.NoError(t, store.Close())
}

func sortSubs(subs []Substitution) []Substitution {
	out := append([]Substitution(nil), subs...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Component < out[j-1].Component; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
