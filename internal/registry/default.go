package registry

import (
	"fmt"
	"io/fs"

	"schemalens/internal/schema"
)

var defaultRegistry = New()

// Default returns the process-wide registry populated by Declare.
func Default() *Registry {
	return defaultRegistry
}

// Declare builds a description and registers it with the default registry.
// It is meant to be called from a package init function; any schema
// definition error panics and aborts startup.
func Declare(desc schema.Description) *schema.ComponentSchema {
	s := schema.MustBuild(desc)
	defaultRegistry.MustRegister(s)
	return s
}

// DeclareYAML registers every schema in a YAML file from fsys with the
// default registry. Like Declare it panics on any error.
func DeclareYAML(fsys fs.FS, path string) []*schema.ComponentSchema {
	out, err := defaultRegistry.RegisterYAML(fsys, path)
	if err != nil {
		panic(err)
	}
	return out
}

// RegisterYAML builds and registers every schema in a YAML file. It stops
// at the first failing schema.
func (r *Registry) RegisterYAML(fsys fs.FS, path string) ([]*schema.ComponentSchema, error) {
	descs, err := schema.LoadDescriptions(fsys, path)
	if err != nil {
		return nil, err
	}
	out := make([]*schema.ComponentSchema, 0, len(descs))
	for _, d := range descs {
		s, err := schema.Build(d)
		if err != nil {
			return out, fmt.Errorf("%s: %w", path, err)
		}
		if err := r.Register(s); err != nil {
			return out, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, s)
	}
	return out, nil
}
