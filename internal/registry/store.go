// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/review-engine/internal/artifact"
	"github.com/pdiddy/review-engine/pkg/types"
)

// Store persists a registry between rounds and runs.
type Store interface {
	// Load returns the stored registry, or an empty one if none exists.
	Load(ctx context.Context) (*Registry, error)
	Save(ctx context.Context, r *Registry) error
	Close() error
}

// JSONStore keeps the registry in the registry.json artifact.
type JSONStore struct {
	Path string
}

// Load reads the registry file.
func (s *JSONStore) Load(_ context.Context) (*Registry, error) {
	var art types.RegistryArtifact
	if err := artifact.Read(s.Path, &art); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("loading registry: %w", err)
	}
	return FromArtifact(art)
}

// Save writes the registry file.
func (s *JSONStore) Save(_ context.Context, r *Registry) error {
	return artifact.Write(s.Path, r.Artifact())
}

// Close is a no-op.
func (s *JSONStore) Close() error { return nil }

// SQLiteStore keeps the registry in a SQLite database. Saving never moves a
// decided status, so the database enforces the same rule as Registry.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the registry database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating registry directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL,
			first_round INTEGER NOT NULL,
			last_round INTEGER NOT NULL,
			title TEXT,
			source TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS identity_keys (
			key TEXT NOT NULL,
			entry_id TEXT NOT NULL REFERENCES entries(id),
			position INTEGER NOT NULL,
			PRIMARY KEY (entry_id, key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_identity_keys_key ON identity_keys(key)`,
		`CREATE TABLE IF NOT EXISTS meta (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Load reads every entry in insertion order.
func (s *SQLiteStore) Load(ctx context.Context) (*Registry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, first_round, last_round, COALESCE(title, ''), COALESCE(source, '')
		 FROM entries ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	art := types.RegistryArtifact{Version: types.SchemaVersion}
	index := make(map[string]int)
	for rows.Next() {
		var e types.RegistryEntry
		var status string
		if err := rows.Scan(&e.ID, &status, &e.FirstRound, &e.LastRound, &e.Title, &e.Source); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.Status = types.Status(status)
		e.IdentityKeys = []string{}
		index[e.ID] = len(art.Entries)
		art.Entries = append(art.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}

	keyRows, err := s.db.QueryContext(ctx, `SELECT entry_id, key FROM identity_keys ORDER BY entry_id, position`)
	if err != nil {
		return nil, fmt.Errorf("querying identity keys: %w", err)
	}
	defer keyRows.Close()
	for keyRows.Next() {
		var id, key string
		if err := keyRows.Scan(&id, &key); err != nil {
			return nil, fmt.Errorf("scanning identity key: %w", err)
		}
		if i, ok := index[id]; ok {
			art.Entries[i].IdentityKeys = append(art.Entries[i].IdentityKeys, key)
		}
	}
	if err := keyRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating identity keys: %w", err)
	}

	var updated string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE name = 'updated_at'`).Scan(&updated)
	switch {
	case err == nil:
		if t, perr := time.Parse(time.RFC3339Nano, updated); perr == nil {
			art.UpdatedAt = t
		}
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("reading updated_at: %w", err)
	}
	return FromArtifact(art)
}

// Save upserts every entry in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, r *Registry) error {
	art := r.Artifact()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	entryStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries (id, status, first_round, last_round, title, source)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			status = CASE WHEN entries.status = 'pending' THEN excluded.status ELSE entries.status END,
			last_round = MAX(entries.last_round, excluded.last_round)`)
	if err != nil {
		return fmt.Errorf("preparing entry upsert: %w", err)
	}
	defer entryStmt.Close()

	keyStmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO identity_keys (key, entry_id, position) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing key insert: %w", err)
	}
	defer keyStmt.Close()

	for _, e := range art.Entries {
		if _, err := entryStmt.ExecContext(ctx,
			e.ID, string(e.Status), e.FirstRound, e.LastRound, e.Title, e.Source,
		); err != nil {
			return fmt.Errorf("upserting entry %s: %w", e.ID, err)
		}
		for i, k := range e.IdentityKeys {
			if _, err := keyStmt.ExecContext(ctx, k, e.ID, i); err != nil {
				return fmt.Errorf("inserting key %s: %w", k, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meta (name, value) VALUES ('updated_at', ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
		art.UpdatedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("writing updated_at: %w", err)
	}
	return tx.Commit()
}

// Tee loads from its first store and saves to every store, so a SQLite
// registry can still export registry.json after each commit.
type Tee []Store

// Load reads the first store.
func (t Tee) Load(ctx context.Context) (*Registry, error) {
	if len(t) == 0 {
		return New(), nil
	}
	return t[0].Load(ctx)
}

// Save writes r to every store, stopping at the first failure.
func (t Tee) Save(ctx context.Context, r *Registry) error {
	for _, s := range t {
		if err := s.Save(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every store and returns the joined errors.
func (t Tee) Close() error {
	var errs []error
	for _, s := range t {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
