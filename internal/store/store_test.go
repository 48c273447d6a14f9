package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpaulson/lodestar/internal/analyzer"
	"github.com/jpaulson/lodestar/internal/symtab"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func testSnapshot() *Snapshot {
	table := symtab.NewTable()
	greet := &symtab.Symbol{
		ID:            symtab.MakeID("app.helpers.greet", "app/helpers.py", 3),
		Name:          "greet",
		QualifiedName: "app.helpers.greet",
		Kind:          symtab.KindFunction,
		File:          "app/helpers.py",
		StartLine:     3,
		EndLine:       5,
		Signature:     "greet(name: str) -> str",
		Docstring:     "Say hello.",
		Complexity:    1,
		Public:        true,
	}
	run := &symtab.Symbol{
		ID:            symtab.MakeID("app.main.run", "app/main.py", 4),
		Name:          "run",
		QualifiedName: "app.main.run",
		Kind:          symtab.KindFunction,
		File:          "app/main.py",
		StartLine:     4,
		EndLine:       6,
		Public:        false,
	}
	table.UpsertFile("app/helpers.py", []*symtab.Symbol{greet}, nil)
	table.UpsertFile("app/main.py", []*symtab.Symbol{run}, []symtab.Relationship{
		{From: run.ID, To: greet.ID, Kind: symtab.RelCalls, Line: 5},
	})

	now := time.Now().UTC().Truncate(time.Second)
	return &Snapshot{
		Table: table,
		Modules: map[string]*analyzer.ModuleFacts{
			"app.main": {
				Path:     "app.main",
				File:     "app/main.py",
				Language: "python",
				Imports: []analyzer.ImportEdge{
					{Target: "app.helpers", Names: []string{"greet"}, Line: 1},
				},
				Unresolved: []string{"requests"},
				Exports:    []string{"run"},
				APIHash:    "abc123",
				Refs: []analyzer.Ref{
					{Owner: "app.main.run", Name: "greet", Kind: symtab.RelCalls, Line: 5},
				},
				Metrics: analyzer.Metrics{LOC: 6, AvgComplexity: 1.5, DocstringCoverage: 0.5},
			},
			"app.helpers": {
				Path:     "app.helpers",
				File:     "app/helpers.py",
				Language: "python",
				Exports:  []string{"greet"},
				APIHash:  "def456",
			},
		},
		Files: map[string]FileMeta{
			"app/main.py":    {Path: "app/main.py", MTimeNS: 1000, Size: 42, Checksum: "aa", LastAnalyzed: now},
			"app/helpers.py": {Path: "app/helpers.py", MTimeNS: 2000, Size: 17, Checksum: "bb", LastAnalyzed: now, ParseError: false},
		},
	}
}

// ===== Save & Load =====

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	snap := testSnapshot()
	require.NoError(t, s.Save(snap))

	loaded, err := s.Load()
	require.NoError(t, err)

	assert.Equal(t, snap.Table.AllSymbols(), loaded.Table.AllSymbols())
	assert.Equal(t, snap.Table.AllRelationships(), loaded.Table.AllRelationships())

	require.Len(t, loaded.Files, len(snap.Files))
	for path, want := range snap.Files {
		got, ok := loaded.Files[path]
		require.True(t, ok, path)
		assert.Equal(t, want.MTimeNS, got.MTimeNS)
		assert.Equal(t, want.Size, got.Size)
		assert.Equal(t, want.Checksum, got.Checksum)
		assert.Equal(t, want.ParseError, got.ParseError)
		assert.True(t, want.LastAnalyzed.Equal(got.LastAnalyzed), path)
	}

	require.Contains(t, loaded.Modules, "app.main")
	main := loaded.Modules["app.main"]
	assert.Equal(t, snap.Modules["app.main"].Imports, main.Imports)
	assert.Equal(t, []string{"requests"}, main.Unresolved)
	assert.Equal(t, snap.Modules["app.main"].Refs, main.Refs)
	assert.InDelta(t, 1.5, main.Metrics.AvgComplexity, 1e-9)

	// Relationship indexes are rebuilt, not just rows.
	greetID := symtab.MakeID("app.helpers.greet", "app/helpers.py", 3)
	require.Len(t, loaded.Table.References(greetID), 1)
}

func TestSaveReplacesPriorSnapshot(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.Save(testSnapshot()))

	// A smaller snapshot fully replaces the previous contents.
	small := &Snapshot{
		Table:   symtab.NewTable(),
		Modules: map[string]*analyzer.ModuleFacts{},
		Files:   map[string]FileMeta{},
	}
	require.NoError(t, s.Save(small))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded.Table.AllSymbols())
	assert.Empty(t, loaded.Modules)
	assert.Empty(t, loaded.Files)
}

func TestLoadEmptyDatabaseIsCorrupt(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, err := s.Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCacheCorrupt)
}

func TestLoadSchemaVersionMismatch(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.Save(testSnapshot()))
	_, err := s.db.Exec(`UPDATE metadata SET value = '999' WHERE key = 'schema_version'`)
	require.NoError(t, err)

	_, err = s.Load()
	assert.ErrorIs(t, err, ErrCacheCorrupt)
}

func TestLoadBadJSONIsCorrupt(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.Save(testSnapshot()))
	_, err := s.db.Exec(`UPDATE modules SET refs = 'not json' WHERE path = 'app.main'`)
	require.NoError(t, err)

	_, err = s.Load()
	assert.ErrorIs(t, err, ErrCacheCorrupt)
}

func TestLoadUnknownKindIsCorrupt(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.Save(testSnapshot()))
	_, err := s.db.Exec(`UPDATE symbols SET kind = 'gadget'`)
	require.NoError(t, err)

	_, err = s.Load()
	assert.ErrorIs(t, err, ErrCacheCorrupt)
}

func TestMigrateIdempotent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.Migrate())
	require.NoError(t, s.Migrate())
}
