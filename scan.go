package lodestar

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/jpaulson/lodestar/internal/lang"
)

// skipDirs are directories never worth descending into regardless of
// ignore rules.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	"dist":         true,
	"build":        true,
}

// scan walks the project tree and returns project-relative slash paths
// of every indexable file, applying the directory skip list, gitignore
// rules, and the language filter.
func (ix *Index) scan() ([]string, error) {
	stateDir := ix.cfg.ResolveStateDir(ix.root)
	var paths []string
	err := filepath.WalkDir(ix.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == ix.root {
				return err
			}
			return nil
		}
		if path == ix.root {
			return nil
		}
		rel, err := filepath.Rel(ix.root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			name := d.Name()
			if strings.HasPrefix(name, ".") || skipDirs[name] || path == stateDir {
				return filepath.SkipDir
			}
			if ix.matcher != nil && ix.matcher.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !ix.indexable(rel) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", ix.root, err)
	}
	return paths, nil
}

// indexable reports whether a project-relative path should be indexed:
// a supported, language-filter-passing, non-ignored source file.
func (ix *Index) indexable(rel string) bool {
	language, ok := lang.LanguageForFile(rel)
	if !ok {
		return false
	}
	if ix.langs != nil && !ix.langs[language] {
		return false
	}
	if strings.HasPrefix(filepath.Base(rel), ".") {
		return false
	}
	if ix.matcher != nil && ix.matcher.MatchesPath(rel) {
		return false
	}
	return true
}

// relPath converts an absolute path under the project root into the
// index's canonical project-relative slash form.
func (ix *Index) relPath(abs string) (string, bool) {
	rel, err := filepath.Rel(ix.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// absPath converts a canonical project-relative path back to an
// absolute one.
func (ix *Index) absPath(rel string) string {
	return filepath.Join(ix.root, filepath.FromSlash(rel))
}
