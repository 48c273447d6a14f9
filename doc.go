// Package lodestar provides a semantic code index for navigation:
// go-to-definition, find-references, symbol search, and hover across
// Python, Go, and JavaScript projects, kept current through incremental
// re-analysis of only the files a change actually affects.
//
// # Pipeline
//
// Indexing runs in three phases per batch:
//
//  1. Prepare (serial): walk the tree, diff each file's (mtime, size)
//     against the cache, checksum only the suspects, and classify
//     files as new, modified, deleted, or unchanged.
//  2. Parse (parallel): a bounded worker pool parses changed files
//     with tree-sitter and derives per-module facts, public API
//     hashes, and raw symbol references.
//  3. Apply (serial): a single writer upserts symbols into the symbol
//     table, updates the dependency graph, resolves references into
//     relationships, and commits the batch.
//
// Queries use snapshot isolation: the live snapshot pointer is swapped
// only after a whole batch commits, so a reader observes either the
// fully pre-update or fully post-update index, never a mix.
//
// # Usage
//
// Open an Index, scan the project, and query:
//
//	idx, err := lodestar.Open("path/to/project")
//	if err != nil { ... }
//	defer idx.Close()
//
//	ctx := context.Background()
//	stats, err := idx.IndexDirectory(ctx)
//	report, err := idx.UpdateIncrementally(ctx)
//
//	candidates := idx.GoToDefinition("parse", "app/main.py", 42)
//	refs := idx.FindReferences("app.parser.parse")
//
// # Incremental updates
//
// UpdateIncrementally reparses changed files, and additionally the
// importers of any module whose public API signature hash changed.
// A body-only edit to one file reparses exactly that file. Deleting a
// file removes its symbols, every relationship touching them, and its
// dependency graph node.
package lodestar
