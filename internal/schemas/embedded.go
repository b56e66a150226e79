package schemas

import (
	"embed"
	"io/fs"
	"path"
	"strings"

	"schemalens/internal/registry"
)

// definitions holds the YAML-authored schemas. Each file is registered with
// the default registry at init.
//
//go:embed defs
var definitions embed.FS

// Definitions exposes the embedded YAML schema files.
func Definitions() fs.FS {
	sub, err := fs.Sub(definitions, "defs")
	if err != nil {
		panic(err)
	}
	return sub
}

func init() {
	files, err := fs.ReadDir(definitions, "defs")
	if err != nil {
		panic(err)
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		ext := strings.ToLower(path.Ext(f.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		registry.DeclareYAML(definitions, path.Join("defs", f.Name()))
	}
}
