// Package symtab is the global symbol registry: flat arenas of symbols
// and relationships with four consistent lookup indexes. All mutation
// goes through a single logical writer per update cycle; readers hold a
// snapshot, so the Table itself carries no locks.
package symtab

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ID is a stable symbol identifier derived from the qualified name,
// declaring file, and start line. Identical inputs always produce the
// same ID, which makes reindexing idempotent and persistence direct.
type ID string

// MakeID derives the stable ID for a symbol.
func MakeID(qualifiedName, file string, startLine int) ID {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%d", qualifiedName, file, startLine)))
	return ID(hex.EncodeToString(h[:8]))
}

// Kind is the closed set of symbol kinds. Behavior differs in only a
// few fields (complexity applies to functions alone), so a tagged
// variant beats a type hierarchy on the hot lookup path.
type Kind int

const (
	KindModule Kind = iota
	KindClass
	KindFunction
	KindVariable
	KindConstant
)

var kindNames = [...]string{"module", "class", "function", "variable", "constant"}

func (k Kind) String() string {
	if 0 <= int(k) && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// KindFromString parses a persisted kind label.
func KindFromString(s string) (Kind, bool) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), true
		}
	}
	return 0, false
}

// Symbol is one entry in the symbol arena. Symbols are immutable once
// inserted; reanalysis replaces them wholesale.
type Symbol struct {
	ID            ID
	Name          string
	QualifiedName string
	Kind          Kind
	File          string
	StartLine     int
	EndLine       int
	Signature     string // functions: name + parameter list + return hint
	Docstring     string
	Complexity    int // functions only
	Public        bool
	Stale         bool // latest reparse failed; entry retained from the prior good parse
}

// RelKind is the closed set of relationship kinds.
type RelKind int

const (
	RelCalls RelKind = iota
	RelInherits
	RelImports
	RelUses
)

var relNames = [...]string{"calls", "inherits", "imports", "uses"}

func (k RelKind) String() string {
	if 0 <= int(k) && int(k) < len(relNames) {
		return relNames[k]
	}
	return "unknown"
}

// RelKindFromString parses a persisted relationship kind label.
func RelKindFromString(s string) (RelKind, bool) {
	for i, name := range relNames {
		if name == s {
			return RelKind(i), true
		}
	}
	return 0, false
}

// Relationship is one edge in the relationship arena. File is the
// originating file — the arena key — so a file's edges drop in O(k)
// when it is reanalyzed.
type Relationship struct {
	From ID
	To   ID
	Kind RelKind
	File string
	Line int
}
