package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/jpaulson/lodestar/internal/analyzer"
	"github.com/jpaulson/lodestar/internal/symtab"
)

// FileMeta is the cached fingerprint of one analyzed source file, used
// for change detection on the next run.
type FileMeta struct {
	Path         string
	MTimeNS      int64
	Size         int64
	Checksum     string
	LastAnalyzed time.Time
	ParseError   bool
}

// Snapshot is everything a loaded index needs to answer queries and to
// run incremental updates without re-reading the tree.
type Snapshot struct {
	Table   *symtab.Table
	Modules map[string]*analyzer.ModuleFacts
	Files   map[string]FileMeta
}

// Save replaces the persisted snapshot in a single transaction. Either
// the whole snapshot lands or the previous one stays intact.
func (s *Store) Save(snap *Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"symbols", "relationships", "files", "modules"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("save snapshot: clear %s: %w", table, err)
		}
	}

	symStmt, err := tx.Prepare(`INSERT INTO symbols
		(id, name, qualified_name, kind, file, start_line, end_line, signature, docstring, complexity, public, stale)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("save snapshot: prepare symbols: %w", err)
	}
	defer symStmt.Close()
	for _, sym := range snap.Table.AllSymbols() {
		_, err := symStmt.Exec(string(sym.ID), sym.Name, sym.QualifiedName, sym.Kind.String(),
			sym.File, sym.StartLine, sym.EndLine, sym.Signature, sym.Docstring,
			sym.Complexity, sym.Public, sym.Stale)
		if err != nil {
			return fmt.Errorf("save snapshot: symbol %q: %w", sym.QualifiedName, err)
		}
	}

	relStmt, err := tx.Prepare(`INSERT INTO relationships (from_id, to_id, kind, file, line) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("save snapshot: prepare relationships: %w", err)
	}
	defer relStmt.Close()
	for _, rel := range snap.Table.AllRelationships() {
		if _, err := relStmt.Exec(string(rel.From), string(rel.To), rel.Kind.String(), rel.File, rel.Line); err != nil {
			return fmt.Errorf("save snapshot: relationship %s->%s: %w", rel.From, rel.To, err)
		}
	}

	fileStmt, err := tx.Prepare(`INSERT INTO files (path, mtime_ns, size, checksum, last_analyzed, parse_error) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("save snapshot: prepare files: %w", err)
	}
	defer fileStmt.Close()
	for _, meta := range sortedFiles(snap.Files) {
		if _, err := fileStmt.Exec(meta.Path, meta.MTimeNS, meta.Size, meta.Checksum, meta.LastAnalyzed, meta.ParseError); err != nil {
			return fmt.Errorf("save snapshot: file %q: %w", meta.Path, err)
		}
	}

	modStmt, err := tx.Prepare(`INSERT INTO modules
		(path, file, language, imports, unresolved, exports, api_hash, refs, loc, comment_lines, blank_lines, avg_complexity, doc_coverage)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("save snapshot: prepare modules: %w", err)
	}
	defer modStmt.Close()
	for _, facts := range sortedModules(snap.Modules) {
		imports, err := json.Marshal(facts.Imports)
		if err != nil {
			return fmt.Errorf("save snapshot: module %q imports: %w", facts.Path, err)
		}
		unresolved, err := json.Marshal(facts.Unresolved)
		if err != nil {
			return fmt.Errorf("save snapshot: module %q unresolved: %w", facts.Path, err)
		}
		exports, err := json.Marshal(facts.Exports)
		if err != nil {
			return fmt.Errorf("save snapshot: module %q exports: %w", facts.Path, err)
		}
		refs, err := json.Marshal(facts.Refs)
		if err != nil {
			return fmt.Errorf("save snapshot: module %q refs: %w", facts.Path, err)
		}
		_, err = modStmt.Exec(facts.Path, facts.File, facts.Language,
			string(imports), string(unresolved), string(exports), facts.APIHash, string(refs),
			facts.Metrics.LOC, facts.Metrics.CommentLines, facts.Metrics.BlankLines,
			facts.Metrics.AvgComplexity, facts.Metrics.DocstringCoverage)
		if err != nil {
			return fmt.Errorf("save snapshot: module %q: %w", facts.Path, err)
		}
	}

	for key, value := range map[string]string{
		"schema_version": SchemaVersion,
		"saved_at":       time.Now().UTC().Format(time.RFC3339),
	} {
		if _, err := tx.Exec(`INSERT INTO metadata (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value); err != nil {
			return fmt.Errorf("save snapshot: metadata %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save snapshot: commit: %w", err)
	}
	return nil
}

// Load rebuilds a snapshot from the database. A missing or mismatched
// schema version, or any row that fails to decode, yields
// ErrCacheCorrupt so the caller can fall back to a full re-index.
func (s *Store) Load() (*Snapshot, error) {
	var version string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key = 'schema_version'`).Scan(&version)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("load snapshot: no schema version: %w", ErrCacheCorrupt)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: read schema version: %w", err)
	}
	if version != SchemaVersion {
		return nil, fmt.Errorf("load snapshot: schema version %s, want %s: %w", version, SchemaVersion, ErrCacheCorrupt)
	}

	snap := &Snapshot{
		Table:   symtab.NewTable(),
		Modules: make(map[string]*analyzer.ModuleFacts),
		Files:   make(map[string]FileMeta),
	}

	symsByFile, err := s.loadSymbols()
	if err != nil {
		return nil, err
	}
	relsByFile, err := s.loadRelationships()
	if err != nil {
		return nil, err
	}
	for file, syms := range symsByFile {
		snap.Table.UpsertFile(file, syms, relsByFile[file])
	}

	if err := s.loadFiles(snap.Files); err != nil {
		return nil, err
	}
	if err := s.loadModules(snap.Modules); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) loadSymbols() (map[string][]*symtab.Symbol, error) {
	rows, err := s.db.Query(`SELECT id, name, qualified_name, kind, file, start_line, end_line,
		signature, docstring, complexity, public, stale FROM symbols`)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: query symbols: %w", err)
	}
	defer rows.Close()

	byFile := make(map[string][]*symtab.Symbol)
	for rows.Next() {
		var sym symtab.Symbol
		var id, kind string
		if err := rows.Scan(&id, &sym.Name, &sym.QualifiedName, &kind, &sym.File,
			&sym.StartLine, &sym.EndLine, &sym.Signature, &sym.Docstring,
			&sym.Complexity, &sym.Public, &sym.Stale); err != nil {
			return nil, fmt.Errorf("load snapshot: scan symbol: %w: %w", err, ErrCacheCorrupt)
		}
		sym.ID = symtab.ID(id)
		k, ok := symtab.KindFromString(kind)
		if !ok {
			return nil, fmt.Errorf("load snapshot: symbol %q has unknown kind %q: %w", sym.QualifiedName, kind, ErrCacheCorrupt)
		}
		sym.Kind = k
		byFile[sym.File] = append(byFile[sym.File], &sym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load snapshot: iterate symbols: %w", err)
	}
	return byFile, nil
}

func (s *Store) loadRelationships() (map[string][]symtab.Relationship, error) {
	rows, err := s.db.Query(`SELECT from_id, to_id, kind, file, line FROM relationships`)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: query relationships: %w", err)
	}
	defer rows.Close()

	byFile := make(map[string][]symtab.Relationship)
	for rows.Next() {
		var rel symtab.Relationship
		var from, to, kind string
		if err := rows.Scan(&from, &to, &kind, &rel.File, &rel.Line); err != nil {
			return nil, fmt.Errorf("load snapshot: scan relationship: %w: %w", err, ErrCacheCorrupt)
		}
		rel.From = symtab.ID(from)
		rel.To = symtab.ID(to)
		k, ok := symtab.RelKindFromString(kind)
		if !ok {
			return nil, fmt.Errorf("load snapshot: relationship has unknown kind %q: %w", kind, ErrCacheCorrupt)
		}
		rel.Kind = k
		byFile[rel.File] = append(byFile[rel.File], rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load snapshot: iterate relationships: %w", err)
	}
	return byFile, nil
}

func (s *Store) loadFiles(into map[string]FileMeta) error {
	rows, err := s.db.Query(`SELECT path, mtime_ns, size, checksum, last_analyzed, parse_error FROM files`)
	if err != nil {
		return fmt.Errorf("load snapshot: query files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var meta FileMeta
		if err := rows.Scan(&meta.Path, &meta.MTimeNS, &meta.Size, &meta.Checksum, &meta.LastAnalyzed, &meta.ParseError); err != nil {
			return fmt.Errorf("load snapshot: scan file: %w: %w", err, ErrCacheCorrupt)
		}
		into[meta.Path] = meta
	}
	return rows.Err()
}

func (s *Store) loadModules(into map[string]*analyzer.ModuleFacts) error {
	rows, err := s.db.Query(`SELECT path, file, language, imports, unresolved, exports, api_hash, refs,
		loc, comment_lines, blank_lines, avg_complexity, doc_coverage FROM modules`)
	if err != nil {
		return fmt.Errorf("load snapshot: query modules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		facts := &analyzer.ModuleFacts{}
		var imports, unresolved, exports, refs string
		if err := rows.Scan(&facts.Path, &facts.File, &facts.Language, &imports, &unresolved, &exports,
			&facts.APIHash, &refs, &facts.Metrics.LOC, &facts.Metrics.CommentLines,
			&facts.Metrics.BlankLines, &facts.Metrics.AvgComplexity, &facts.Metrics.DocstringCoverage); err != nil {
			return fmt.Errorf("load snapshot: scan module: %w: %w", err, ErrCacheCorrupt)
		}
		decode := func(col string, dst any) error {
			if err := json.Unmarshal([]byte(col), dst); err != nil {
				return fmt.Errorf("load snapshot: module %q: %w: %w", facts.Path, err, ErrCacheCorrupt)
			}
			return nil
		}
		if err := decode(imports, &facts.Imports); err != nil {
			return err
		}
		if err := decode(unresolved, &facts.Unresolved); err != nil {
			return err
		}
		if err := decode(exports, &facts.Exports); err != nil {
			return err
		}
		if err := decode(refs, &facts.Refs); err != nil {
			return err
		}
		into[facts.Path] = facts
	}
	return rows.Err()
}

func sortedFiles(files map[string]FileMeta) []FileMeta {
	out := make([]FileMeta, 0, len(files))
	for _, meta := range files {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func sortedModules(modules map[string]*analyzer.ModuleFacts) []*analyzer.ModuleFacts {
	out := make([]*analyzer.ModuleFacts, 0, len(modules))
	for _, facts := range modules {
		out = append(out, facts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
