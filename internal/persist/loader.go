package persist

import (
	"strings"

	"schemalens/internal/ecs"
	"schemalens/internal/logging"
	"schemalens/internal/schema"
	"schemalens/internal/telemetry"
)

// Resolver finds the schema for a saved component.
type Resolver interface {
	Resolve(inst *schema.Instance) (*schema.ComponentSchema, bool)
}

// Action is what the loader did with a component that failed validation.
type Action string

const (
	// ActionReplaced means the component was replaced by its default.
	ActionReplaced Action = "replaced"

	// ActionDiscarded means the component was dropped because no schema
	// describes it or the entity already holds one of its type.
	ActionDiscarded Action = "discarded"
)

// Substitution records one component the loader could not take as saved.
type Substitution struct {
	EntityID  string   `json:"entity_id"`
	Component string   `json:"component"`
	Version   int      `json:"version"`
	Reason    string   `json:"reason"`
	Action    Action   `json:"action"`
	Issues    []string `json:"issues,omitempty"`
}

// Loader rebuilds a world from a snapshot.
type Loader struct {
	schemas Resolver
}

// NewLoader creates a loader validating against schemas.
func NewLoader(schemas Resolver) *Loader {
	return &Loader{schemas: schemas}
}

// LoadWorld validates every component of snap. Components that fail
// validation are replaced by a fresh default; components of unknown types
// are discarded. Every substitution is logged, counted and returned.
func (l *Loader) LoadWorld(snap *Snapshot) (*ecs.World, []Substitution) {
	timer := logging.StartTimer(logging.CategoryPersist, "Loader.LoadWorld")
	defer timer.Stop()

	w := ecs.NewWorld()
	if snap == nil {
		return w, nil
	}
	w.Tick = snap.Tick

	var subs []Substitution
	for _, es := range snap.Entities {
		e := &ecs.Entity{ID: es.ID, Name: es.Name, Components: make(map[string]*schema.Instance, len(es.Components))}
		for _, cs := range es.Components {
			// an entity holds one component per type; the first saved one wins
			if _, dup := e.Components[cs.Type]; dup {
				sub := Substitution{
					EntityID:  es.ID,
					Component: cs.Type,
					Version:   cs.Version,
					Reason:    telemetry.ReasonDuplicate,
					Action:    ActionDiscarded,
				}
				subs = append(subs, sub)
				l.report(sub)
				continue
			}
			inst, sub := l.loadComponent(es.ID, cs)
			if sub != nil {
				subs = append(subs, *sub)
				l.report(*sub)
			}
			e.Attach(inst)
		}
		w.Add(e)
	}

	logging.Persist("loaded %d entities at tick %d with %d substitutions", w.Len(), w.Tick, len(subs))
	return w, subs
}

func (l *Loader) loadComponent(entityID string, cs ComponentSnapshot) (*schema.Instance, *Substitution) {
	s, ok := l.schemas.Resolve(&schema.Instance{Type: cs.Type, Version: cs.Version})
	if !ok {
		return nil, &Substitution{
			EntityID:  entityID,
			Component: cs.Type,
			Version:   cs.Version,
			Reason:    telemetry.ReasonUnknownType,
			Action:    ActionDiscarded,
		}
	}

	if s.Validate(cs.Data) {
		data, _ := schema.ToData(cs.Data)
		return &schema.Instance{Type: cs.Type, Version: cs.Version, Data: data}, nil
	}

	issues := s.Diagnose(cs.Data)
	msgs := make([]string, len(issues))
	for i, is := range issues {
		msgs[i] = is.String()
	}
	return s.NewInstance(), &Substitution{
		EntityID:  entityID,
		Component: cs.Type,
		Version:   cs.Version,
		Reason:    telemetry.ReasonInvalid,
		Action:    ActionReplaced,
		Issues:    msgs,
	}
}

func (l *Loader) report(sub Substitution) {
	telemetry.Substitutions.WithLabelValues(sub.Component, sub.Reason).Inc()
	logging.Get(logging.CategoryPersist).Warn(
		"entity %s: %s component %s@%d (%s) %s",
		sub.EntityID, sub.Action, sub.Component, sub.Version, sub.Reason, strings.Join(sub.Issues, "; "),
	)
}
