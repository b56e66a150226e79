// Package registry holds the process-wide map from component type to schema.
//
// Schemas are registered during single-threaded startup (normally from
// package init functions through Declare) and the registry is frozen before
// the simulation loop starts. After Freeze the registry is immutable and
// reads take no locks.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"schemalens/internal/logging"
	"schemalens/internal/schema"
	"schemalens/internal/telemetry"
)

var (
	// ErrDuplicateSchema is returned when a type+version is registered twice.
	ErrDuplicateSchema = errors.New("duplicate schema registration")

	// ErrFrozen is returned when registering after Freeze.
	ErrFrozen = errors.New("registry is frozen")

	// ErrUnknownType is returned when no schema exists for a type.
	ErrUnknownType = errors.New("unknown component type")
)

type key struct {
	typ     string
	version int
}

// Registry maps component types to their schemas.
type Registry struct {
	mu       sync.Mutex // serializes Register; reads rely on the startup/freeze contract
	frozen   bool
	byKey    map[key]*schema.ComponentSchema
	versions map[string][]*schema.ComponentSchema // ascending by version
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byKey:    make(map[key]*schema.ComponentSchema),
		versions: make(map[string][]*schema.ComponentSchema),
	}
}

// Register adds a schema. A second schema with the same type and version is
// rejected; the same type with a different version is accepted and both stay
// retrievable.
func (r *Registry) Register(s *schema.ComponentSchema) error {
	if s == nil {
		return errors.New("register: nil schema")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("register %s: %w", s.Key(), ErrFrozen)
	}
	k := key{s.Type(), s.Version()}
	if _, exists := r.byKey[k]; exists {
		return fmt.Errorf("register %s: %w", s.Key(), ErrDuplicateSchema)
	}

	r.byKey[k] = s
	vs := append(r.versions[s.Type()], s)
	sort.Slice(vs, func(i, j int) bool { return vs[i].Version() < vs[j].Version() })
	r.versions[s.Type()] = vs

	logging.RegistryDebug("registered %s (category=%s, fields=%d)", s.Key(), s.Category(), len(s.Fields()))
	return nil
}

// MustRegister is like Register but panics. A conflicting definition is a
// fatal startup error.
func (r *Registry) MustRegister(s *schema.ComponentSchema) {
	if err := r.Register(s); err != nil {
		panic(err)
	}
}

// Freeze makes the registry immutable.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.frozen {
		r.frozen = true
		telemetry.SchemasRegistered.Set(float64(len(r.byKey)))
		logging.Registry("registry frozen with %d schemas", len(r.byKey))
	}
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frozen
}

// Get returns the highest registered version of a type.
func (r *Registry) Get(typ string) (*schema.ComponentSchema, bool) {
	vs := r.versions[typ]
	if len(vs) == 0 {
		return nil, false
	}
	return vs[len(vs)-1], true
}

// GetVersion returns one exact type+version.
func (r *Registry) GetVersion(typ string, version int) (*schema.ComponentSchema, bool) {
	s, ok := r.byKey[key{typ, version}]
	return s, ok
}

// Versions returns every registered version of a type, ascending.
func (r *Registry) Versions(typ string) []*schema.ComponentSchema {
	return append([]*schema.ComponentSchema(nil), r.versions[typ]...)
}

// Resolve finds the schema for an instance: the exact version when
// registered, otherwise the latest version of its type.
func (r *Registry) Resolve(inst *schema.Instance) (*schema.ComponentSchema, bool) {
	if inst == nil {
		return nil, false
	}
	if s, ok := r.GetVersion(inst.Type, inst.Version); ok {
		return s, true
	}
	s, ok := r.Get(inst.Type)
	if ok {
		logging.RegistryDebug("no %s@%d registered, resolving to %s", inst.Type, inst.Version, s.Key())
	}
	return s, ok
}

// GetByCategory returns every schema in a category, ordered by type then
// version.
func (r *Registry) GetByCategory(category string) []*schema.ComponentSchema {
	var out []*schema.ComponentSchema
	for _, s := range r.byKey {
		if s.Category() == category {
			out = append(out, s)
		}
	}
	sortSchemas(out)
	return out
}

// All returns every schema ordered by type then version.
func (r *Registry) All() []*schema.ComponentSchema {
	out := make([]*schema.ComponentSchema, 0, len(r.byKey))
	for _, s := range r.byKey {
		out = append(out, s)
	}
	sortSchemas(out)
	return out
}

// Categories returns the distinct categories, sorted.
func (r *Registry) Categories() []string {
	seen := make(map[string]bool)
	for _, s := range r.byKey {
		seen[s.Category()] = true
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered type+version pairs.
func (r *Registry) Len() int {
	return len(r.byKey)
}

// NewInstance builds a default instance of the latest version of typ.
func (r *Registry) NewInstance(typ string) (*schema.Instance, error) {
	s, ok := r.Get(typ)
	if !ok {
		return nil, fmt.Errorf("new instance %q: %w", typ, ErrUnknownType)
	}
	return s.NewInstance(), nil
}

// Check re-verifies the static invariants of every registered schema: each
// field declares all five audiences and each default validates.
func (r *Registry) Check() error {
	var errs []error
	for _, s := range r.All() {
		for _, f := range s.Fields() {
			if missing := f.Visibility.Missing(); len(missing) > 0 {
				errs = append(errs, fmt.Errorf("%s field %q: %w %v", s.Key(), f.Name, schema.ErrMissingVisibility, missing))
			}
		}
		if !s.Validate(s.CreateDefault()) {
			errs = append(errs, fmt.Errorf("%s: %w", s.Key(), schema.ErrDefaultInvalid))
		}
	}
	return errors.Join(errs...)
}

func sortSchemas(ss []*schema.ComponentSchema) {
	sort.Slice(ss, func(i, j int) bool {
		if ss[i].Type() != ss[j].Type() {
			return ss[i].Type() < ss[j].Type()
		}
		return ss[i].Version() < ss[j].Version()
	})
}
