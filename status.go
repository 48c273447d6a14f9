package lodestar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jpaulson/lodestar/internal/store"
)

// ChangeSummary reports what a fingerprint diff found on disk.
type ChangeSummary struct {
	Added    []string `json:"added,omitempty"`
	Modified []string `json:"modified,omitempty"`
	Deleted  []string `json:"deleted,omitempty"`
}

// Clean reports whether the tree matches the cached fingerprints.
func (c *ChangeSummary) Clean() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Deleted) == 0
}

// Status diffs the project tree against the fingerprints mirrored in
// filecache.json without opening the database, so tooling can answer
// "is the index stale?" cheaply. A missing or unreadable cache reports
// every indexable file as added.
func Status(root string, opts ...Option) (*ChangeSummary, error) {
	ix, err := newIndex(root, opts...)
	if err != nil {
		return nil, err
	}
	cached, err := ix.readFileCache()
	if err != nil {
		ix.log.Debug("file cache unavailable", "error", err)
		cached = nil
	}
	paths, err := ix.scan()
	if err != nil {
		return nil, fmt.Errorf("lodestar: status: %w", err)
	}
	changes, _ := ix.diff(cached, paths)
	return &ChangeSummary{
		Added:    changes.added,
		Modified: changes.modified,
		Deleted:  changes.deleted,
	}, nil
}

// readFileCache loads the JSON fingerprint mirror written after each
// committed batch.
func (ix *Index) readFileCache() (map[string]store.FileMeta, error) {
	data, err := os.ReadFile(filepath.Join(ix.cfg.ResolveStateDir(ix.root), "filecache.json"))
	if err != nil {
		return nil, err
	}
	var files map[string]store.FileMeta
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, fmt.Errorf("file cache: %w", err)
	}
	return files, nil
}
