package ecs

import "sort"

// World indexes entities by ID.
type World struct {
	Tick     int                `json:"tick"`
	Entities map[string]*Entity `json:"entities"`
}

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{Entities: make(map[string]*Entity)}
}

// Add inserts or replaces an entity.
func (w *World) Add(e *Entity) {
	if e == nil {
		return
	}
	if w.Entities == nil {
		w.Entities = make(map[string]*Entity)
	}
	w.Entities[e.ID] = e
}

// Remove deletes an entity by ID.
func (w *World) Remove(id string) {
	delete(w.Entities, id)
}

// Entity looks up an entity by ID.
func (w *World) Entity(id string) (*Entity, bool) {
	e, ok := w.Entities[id]
	return e, ok
}

// FindByName returns the first entity (by ID order) with the given name.
func (w *World) FindByName(name string) (*Entity, bool) {
	for _, e := range w.Sorted() {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// Sorted returns the entities ordered by ID.
func (w *World) Sorted() []*Entity {
	out := make([]*Entity, 0, len(w.Entities))
	for _, e := range w.Entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of entities.
func (w *World) Len() int {
	return len(w.Entities)
}
