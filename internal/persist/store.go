package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"schemalens/internal/ecs"
	"schemalens/internal/logging"
)

// Store keeps saved worlds and the substitution log in sqlite.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// OpenStore creates or opens a store. Pass ":memory:" for an in-memory
// database.
func OpenStore(dbPath string) (*Store, error) {
	dsn := ":memory:"
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps an in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)

	store := &Store{db: db, dbPath: dbPath}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.PersistDebug("opened store at %s", dbPath)
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	ddl := `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entities (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS components (
		entity_id TEXT NOT NULL,
		type TEXT NOT NULL,
		version INTEGER NOT NULL,
		data_json TEXT NOT NULL,
		PRIMARY KEY (entity_id, type),
		FOREIGN KEY (entity_id) REFERENCES entities(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_components_type ON components(type);

	CREATE TABLE IF NOT EXISTS substitutions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		recorded_at DATETIME NOT NULL,
		entity_id TEXT NOT NULL,
		component TEXT NOT NULL,
		version INTEGER NOT NULL,
		reason TEXT NOT NULL,
		action TEXT NOT NULL,
		issues_json TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_substitutions_component ON substitutions(component);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// SaveSnapshot replaces the stored world with snap.
func (s *Store) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM components", "DELETE FROM entities"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to clear world: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('tick', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		strconv.Itoa(snap.Tick)); err != nil {
		return fmt.Errorf("failed to save tick: %w", err)
	}

	for _, e := range snap.Entities {
		if _, err := tx.ExecContext(ctx, `INSERT INTO entities (id, name) VALUES (?, ?)`, e.ID, e.Name); err != nil {
			return fmt.Errorf("failed to save entity %s: %w", e.ID, err)
		}
		for _, c := range e.Components {
			raw, err := json.Marshal(c.Data)
			if err != nil {
				return fmt.Errorf("failed to encode %s on %s: %w", c.Type, e.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO components (entity_id, type, version, data_json) VALUES (?, ?, ?, ?)`,
				e.ID, c.Type, c.Version, string(raw)); err != nil {
				return fmt.Errorf("failed to save %s on %s: %w", c.Type, e.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit world: %w", err)
	}
	logging.PersistDebug("saved %d entities at tick %d", len(snap.Entities), snap.Tick)
	return nil
}

// SaveWorld captures and saves a live world.
func (s *Store) SaveWorld(ctx context.Context, w *ecs.World) error {
	return s.SaveSnapshot(ctx, Capture(w))
}

// LoadSnapshot reads the stored world without validating it.
func (s *Store) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{Format: SnapshotFormat}

	var tick string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'tick'`).Scan(&tick)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, fmt.Errorf("failed to read tick: %w", err)
	default:
		if snap.Tick, err = strconv.Atoi(tick); err != nil {
			return nil, fmt.Errorf("invalid stored tick %q: %w", tick, err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.name, c.type, c.version, c.data_json
		FROM entities e LEFT JOIN components c ON c.entity_id = e.id
		ORDER BY e.id, c.type`)
	if err != nil {
		return nil, fmt.Errorf("failed to query world: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, name      string
			typ, dataJSON sql.NullString
			version       sql.NullInt64
		)
		if err := rows.Scan(&id, &name, &typ, &version, &dataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan component: %w", err)
		}
		if n := len(snap.Entities); n == 0 || snap.Entities[n-1].ID != id {
			snap.Entities = append(snap.Entities, EntitySnapshot{ID: id, Name: name})
		}
		if !typ.Valid {
			continue
		}

		var data any
		if err := json.Unmarshal([]byte(dataJSON.String), &data); err != nil {
			// unreadable rows still reach the loader, which substitutes them
			data = nil
		}
		last := &snap.Entities[len(snap.Entities)-1]
		last.Components = append(last.Components, ComponentSnapshot{
			Type:    typ.String,
			Version: int(version.Int64),
			Data:    data,
		})
	}
	return snap, rows.Err()
}

// RecordSubstitutions appends to the substitution log.
func (s *Store) RecordSubstitutions(ctx context.Context, subs []Substitution) error {
	if len(subs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, sub := range subs {
		issues, err := json.Marshal(sub.Issues)
		if err != nil {
			return fmt.Errorf("failed to encode issues: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO substitutions (recorded_at, entity_id, component, version, reason, action, issues_json)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			now, sub.EntityID, sub.Component, sub.Version, sub.Reason, string(sub.Action), string(issues)); err != nil {
			return fmt.Errorf("failed to record substitution: %w", err)
		}
	}
	return tx.Commit()
}

// Substitutions returns the substitution log, oldest first.
func (s *Store) Substitutions(ctx context.Context) ([]Substitution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_id, component, version, reason, action, issues_json
		FROM substitutions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query substitutions: %w", err)
	}
	defer rows.Close()

	var out []Substitution
	for rows.Next() {
		var (
			sub    Substitution
			action string
			issues sql.NullString
		)
		if err := rows.Scan(&sub.EntityID, &sub.Component, &sub.Version, &sub.Reason, &action, &issues); err != nil {
			return nil, fmt.Errorf("failed to scan substitution: %w", err)
		}
		sub.Action = Action(action)
		if issues.Valid && issues.String != "" {
			if err := json.Unmarshal([]byte(issues.String), &sub.Issues); err != nil {
				return nil, fmt.Errorf("invalid issues for %s: %w", sub.Component, err)
			}
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// Restore loads the stored world through l and records any substitutions
// it made.
func (s *Store) Restore(ctx context.Context, l *Loader) (*ecs.World, []Substitution, error) {
	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	w, subs := l.LoadWorld(snap)
	if err := s.RecordSubstitutions(ctx, subs); err != nil {
		return w, subs, err
	}
	return w, subs, nil
}
