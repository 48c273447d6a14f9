// Package store persists index snapshots in SQLite. A snapshot is the
// symbol table, the per-module facts, and the file cache that the
// incremental analyzer diffs against on the next run.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrCacheCorrupt reports a persisted index that cannot be loaded:
// missing or mismatched schema version, or rows that fail to decode.
// Callers fall back to a full re-index.
var ErrCacheCorrupt = errors.New("index cache corrupt or incompatible")

// SchemaVersion gates snapshot loads. Bump it whenever the schema or
// the JSON columns change shape.
const SchemaVersion = "1"

// Store is the SQLite data access layer for the persisted index.
type Store struct {
	db *sql.DB
}

// Open opens a SQLite database at dbPath with WAL mode enabled.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
  path            TEXT PRIMARY KEY,
  mtime_ns        INTEGER NOT NULL,
  size            INTEGER NOT NULL,
  checksum        TEXT NOT NULL,
  last_analyzed   TIMESTAMP,
  parse_error     BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS modules (
  path            TEXT PRIMARY KEY,
  file            TEXT NOT NULL,
  language        TEXT NOT NULL,
  imports         TEXT NOT NULL,
  unresolved      TEXT NOT NULL,
  exports         TEXT NOT NULL,
  api_hash        TEXT NOT NULL,
  refs            TEXT NOT NULL,
  loc             INTEGER NOT NULL DEFAULT 0,
  comment_lines   INTEGER NOT NULL DEFAULT 0,
  blank_lines     INTEGER NOT NULL DEFAULT 0,
  avg_complexity  REAL NOT NULL DEFAULT 0,
  doc_coverage    REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS symbols (
  id              TEXT PRIMARY KEY,
  name            TEXT NOT NULL,
  qualified_name  TEXT NOT NULL UNIQUE,
  kind            TEXT NOT NULL,
  file            TEXT NOT NULL,
  start_line      INTEGER NOT NULL,
  end_line        INTEGER NOT NULL,
  signature       TEXT,
  docstring       TEXT,
  complexity      INTEGER NOT NULL DEFAULT 0,
  public          BOOLEAN NOT NULL DEFAULT FALSE,
  stale           BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);

CREATE TABLE IF NOT EXISTS relationships (
  from_id         TEXT NOT NULL,
  to_id           TEXT NOT NULL,
  kind            TEXT NOT NULL,
  file            TEXT NOT NULL,
  line            INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_rel_from ON relationships(from_id);
CREATE INDEX IF NOT EXISTS idx_rel_to ON relationships(to_id);
CREATE INDEX IF NOT EXISTS idx_rel_file ON relationships(file);
`
