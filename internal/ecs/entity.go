// Package ecs is the minimal entity/component store the schema engine reads
// from. An entity owns at most one component instance per type.
package ecs

import (
	"sort"

	"github.com/google/uuid"

	"schemalens/internal/schema"
)

// Entity is a bag of component instances keyed by type.
type Entity struct {
	ID         string                      `json:"id"`
	Name       string                      `json:"name,omitempty"`
	Components map[string]*schema.Instance `json:"components"`
}

// NewEntity creates an empty entity with a fresh ID.
func NewEntity(name string) *Entity {
	return &Entity{
		ID:         uuid.NewString(),
		Name:       name,
		Components: make(map[string]*schema.Instance),
	}
}

// Attach sets a component, replacing any existing instance of the same type.
func (e *Entity) Attach(inst *schema.Instance) {
	if inst == nil {
		return
	}
	if e.Components == nil {
		e.Components = make(map[string]*schema.Instance)
	}
	e.Components[inst.Type] = inst
}

// Detach removes the component of the given type.
func (e *Entity) Detach(typ string) {
	delete(e.Components, typ)
}

// Component returns the instance of a type.
func (e *Entity) Component(typ string) (*schema.Instance, bool) {
	inst, ok := e.Components[typ]
	return inst, ok
}

// Has reports whether a component of typ is attached.
func (e *Entity) Has(typ string) bool {
	_, ok := e.Components[typ]
	return ok
}

// Types returns the attached component types, sorted.
func (e *Entity) Types() []string {
	out := make([]string, 0, len(e.Components))
	for t := range e.Components {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Each visits components in type order.
func (e *Entity) Each(fn func(*schema.Instance)) {
	for _, t := range e.Types() {
		fn(e.Components[t])
	}
}
