// Package persist is the boundary between saved world state and the live
// entity store. Everything read from disk passes through Loader, which
// validates each component against its schema and substitutes defaults for
// data that no longer fits.
package persist

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"schemalens/internal/ecs"
	"schemalens/internal/schema"
)

// SnapshotFormat is the current snapshot file format version.
const SnapshotFormat = 1

// Snapshot is the serialized form of a world. Component data is kept raw
// until Loader validates it.
type Snapshot struct {
	Format   int              `json:"format"`
	Tick     int              `json:"tick"`
	Entities []EntitySnapshot `json:"entities"`
}

// EntitySnapshot is one saved entity.
type EntitySnapshot struct {
	ID         string              `json:"id"`
	Name       string              `json:"name,omitempty"`
	Components []ComponentSnapshot `json:"components"`
}

// ComponentSnapshot is one saved component. Data is whatever was written,
// which may not match the current schema.
type ComponentSnapshot struct {
	Type    string `json:"type"`
	Version int    `json:"version"`
	Data    any    `json:"data"`
}

// Capture converts a live world to a snapshot, entities by ID and
// components by type.
func Capture(w *ecs.World) *Snapshot {
	snap := &Snapshot{Format: SnapshotFormat, Tick: w.Tick}
	for _, e := range w.Sorted() {
		es := EntitySnapshot{ID: e.ID, Name: e.Name}
		e.Each(func(inst *schema.Instance) {
			es.Components = append(es.Components, ComponentSnapshot{
				Type:    inst.Type,
				Version: inst.Version,
				Data:    inst.Data,
			})
		})
		snap.Entities = append(snap.Entities, es)
	}
	return snap
}

// ReadSnapshot decodes a snapshot. Numbers decode as float64, matching what
// schema validation expects of erased data.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Format > SnapshotFormat {
		return nil, fmt.Errorf("snapshot format %d is newer than supported format %d", snap.Format, SnapshotFormat)
	}
	sort.SliceStable(snap.Entities, func(i, j int) bool { return snap.Entities[i].ID < snap.Entities[j].ID })
	return &snap, nil
}

// WriteSnapshot encodes a snapshot as indented JSON.
func WriteSnapshot(w io.Writer, snap *Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// LoadSnapshotFile reads a snapshot from disk.
func LoadSnapshotFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return ReadSnapshot(f)
}

// SaveSnapshotFile writes a snapshot to disk, creating parent directories.
func SaveSnapshotFile(path string, snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	if err := WriteSnapshot(f, snap); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
