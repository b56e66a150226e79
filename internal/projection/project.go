// Package projection filters component data down to what one audience may
// see, and shapes it into UI panel metadata for the player and dev panels.
package projection

import (
	"schemalens/internal/ecs"
	"schemalens/internal/logging"
	"schemalens/internal/schema"
)

// Resolver finds the schema describing an instance. *registry.Registry
// satisfies it.
type Resolver interface {
	Resolve(inst *schema.Instance) (*schema.ComponentSchema, bool)
}

// Project returns the fields of inst visible to audience, in schema field
// order. Values are passed through untouched. For the llm audience a
// summarized field is omitted; it reaches the prompt only through the
// schema's summarize function.
func Project(inst *schema.Instance, s *schema.ComponentSchema, audience schema.Audience) schema.Data {
	out := schema.Data{}
	if inst == nil || s == nil {
		return out
	}
	for _, f := range s.Fields() {
		if !f.Visibility.Includes(audience) {
			continue
		}
		if v, ok := inst.Data[f.Name]; ok {
			out[f.Name] = v
		}
	}
	return out
}

// ProjectEntity projects every component of e whose schema resolves.
// Components of unknown types are skipped.
func ProjectEntity(e *ecs.Entity, r Resolver, audience schema.Audience) map[string]schema.Data {
	out := make(map[string]schema.Data, len(e.Components))
	e.Each(func(inst *schema.Instance) {
		s, ok := r.Resolve(inst)
		if !ok {
			logging.Get(logging.CategoryProjection).Debug("entity %s: no schema for component %q", e.ID, inst.Type)
			return
		}
		out[inst.Type] = Project(inst, s, audience)
	})
	return out
}
