package symtab

import "sort"

// Table holds the four indexes the navigation layer queries: by-name,
// by-file, by-qualified-name (unique), and the bidirectional
// relationship adjacency. Relationships live in per-file arenas.
type Table struct {
	symbols     map[ID]*Symbol
	byName      map[string][]ID
	byFile      map[string][]ID
	byQualified map[string]ID

	relsByFile map[string][]Relationship
	outgoing   map[ID][]Relationship
	incoming   map[ID][]Relationship
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{
		symbols:     make(map[ID]*Symbol),
		byName:      make(map[string][]ID),
		byFile:      make(map[string][]ID),
		byQualified: make(map[string]ID),
		relsByFile:  make(map[string][]Relationship),
		outgoing:    make(map[ID][]Relationship),
		incoming:    make(map[ID][]Relationship),
	}
}

// UpsertFile atomically replaces every prior entry for file: old
// symbols and old outgoing relationships are dropped, then the new ones
// inserted. The qualified-name uniqueness invariant is enforced on
// insert. It returns the other files whose relationship arenas lost
// inbound edges into the replaced symbols; those files' references must
// be re-resolved or they stay unbound.
func (t *Table) UpsertFile(file string, symbols []*Symbol, rels []Relationship) []string {
	unlinked := make(map[string]bool)
	t.dropFileSymbols(file, unlinked)
	for _, sym := range symbols {
		t.insert(sym, unlinked)
	}
	t.ReplaceRelationships(file, rels)
	delete(unlinked, file)
	if len(unlinked) == 0 {
		return nil
	}
	out := make([]string, 0, len(unlinked))
	for f := range unlinked {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// RemoveFile removes the file's symbols and every relationship with an
// endpoint in the file, including edges originating elsewhere.
func (t *Table) RemoveFile(file string) {
	t.dropFileSymbols(file, nil)
	t.ReplaceRelationships(file, nil)
	delete(t.relsByFile, file)
}

// ReplaceRelationships swaps the per-file relationship arena. Edges
// whose From symbol no longer exists are silently dropped.
func (t *Table) ReplaceRelationships(file string, rels []Relationship) {
	for _, r := range t.relsByFile[file] {
		t.outgoing[r.From] = dropRel(t.outgoing[r.From], r)
		t.incoming[r.To] = dropRel(t.incoming[r.To], r)
	}
	delete(t.relsByFile, file)
	if len(rels) == 0 {
		return
	}
	kept := make([]Relationship, 0, len(rels))
	for _, r := range rels {
		if _, ok := t.symbols[r.From]; !ok {
			continue
		}
		r.File = file
		kept = append(kept, r)
		t.outgoing[r.From] = append(t.outgoing[r.From], r)
		t.incoming[r.To] = append(t.incoming[r.To], r)
	}
	t.relsByFile[file] = kept
}

// MarkStale flags the file's retained symbols after a failed reparse.
func (t *Table) MarkStale(file string) {
	for _, id := range t.byFile[file] {
		if sym, ok := t.symbols[id]; ok {
			clone := *sym
			clone.Stale = true
			t.symbols[id] = &clone
		}
	}
}

func (t *Table) insert(sym *Symbol, unlinked map[string]bool) {
	// Enforce qualified-name uniqueness: an existing holder is replaced.
	if prev, ok := t.byQualified[sym.QualifiedName]; ok && prev != sym.ID {
		t.evictIndexed(prev, true, unlinked)
	}
	if _, ok := t.symbols[sym.ID]; ok {
		t.evictIndexed(sym.ID, true, unlinked)
	}
	t.symbols[sym.ID] = sym
	t.byName[sym.Name] = append(t.byName[sym.Name], sym.ID)
	t.byFile[sym.File] = append(t.byFile[sym.File], sym.ID)
	t.byQualified[sym.QualifiedName] = sym.ID
}

// dropFileSymbols removes the file's symbols from every index along
// with inbound edges recorded in other files' arenas.
func (t *Table) dropFileSymbols(file string, unlinked map[string]bool) {
	for _, id := range t.byFile[file] {
		t.evictIndexed(id, false, unlinked)
	}
	delete(t.byFile, file)
}

// evictIndexed removes one symbol. When fixByFile is false the caller
// is clearing the whole per-file bucket itself. Files whose arenas lose
// an inbound edge are recorded in unlinked when it is non-nil.
func (t *Table) evictIndexed(id ID, fixByFile bool, unlinked map[string]bool) {
	sym, ok := t.symbols[id]
	if !ok {
		return
	}
	delete(t.symbols, id)
	t.byName[sym.Name] = dropID(t.byName[sym.Name], id)
	if len(t.byName[sym.Name]) == 0 {
		delete(t.byName, sym.Name)
	}
	if t.byQualified[sym.QualifiedName] == id {
		delete(t.byQualified, sym.QualifiedName)
	}
	if fixByFile {
		t.byFile[sym.File] = dropID(t.byFile[sym.File], id)
	}

	// Inbound edges from other files must leave those arenas too, or a
	// query could observe a relationship into a removed symbol.
	for _, r := range t.incoming[id] {
		t.relsByFile[r.File] = dropRelSlice(t.relsByFile[r.File], r)
		t.outgoing[r.From] = dropRel(t.outgoing[r.From], r)
		if unlinked != nil {
			unlinked[r.File] = true
		}
	}
	delete(t.incoming, id)
	for _, r := range t.outgoing[id] {
		t.relsByFile[r.File] = dropRelSlice(t.relsByFile[r.File], r)
		t.incoming[r.To] = dropRel(t.incoming[r.To], r)
	}
	delete(t.outgoing, id)
}

// --- Lookups ---

// Get returns the symbol for id, or nil.
func (t *Table) Get(id ID) *Symbol {
	return t.symbols[id]
}

// ByQualified returns the unique symbol with the given qualified name.
func (t *Table) ByQualified(qualifiedName string) *Symbol {
	if id, ok := t.byQualified[qualifiedName]; ok {
		return t.symbols[id]
	}
	return nil
}

// ByName returns all symbols with the given short name, in a
// deterministic order (qualified name, then file).
func (t *Table) ByName(name string) []*Symbol {
	out := make([]*Symbol, 0, len(t.byName[name]))
	for _, id := range t.byName[name] {
		if sym, ok := t.symbols[id]; ok {
			out = append(out, sym)
		}
	}
	sortSymbols(out)
	return out
}

// FileSymbols returns the symbols declared in file.
func (t *Table) FileSymbols(file string) []*Symbol {
	out := make([]*Symbol, 0, len(t.byFile[file]))
	for _, id := range t.byFile[file] {
		if sym, ok := t.symbols[id]; ok {
			out = append(out, sym)
		}
	}
	sortSymbols(out)
	return out
}

// Files lists every file with at least one symbol.
func (t *Table) Files() []string {
	out := make([]string, 0, len(t.byFile))
	for f, ids := range t.byFile {
		if len(ids) > 0 {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// NamesWithPrefix returns the short names starting with prefix, sorted.
func (t *Table) NamesWithPrefix(prefix string) []string {
	var out []string
	for name := range t.byName {
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// References returns every relationship targeting id, regardless of
// kind. Absence is an empty slice, never an error.
func (t *Table) References(id ID) []Relationship {
	return append([]Relationship(nil), t.incoming[id]...)
}

// Outgoing returns every relationship originating at id.
func (t *Table) Outgoing(id ID) []Relationship {
	return append([]Relationship(nil), t.outgoing[id]...)
}

// FileRelationships returns the arena for one file.
func (t *Table) FileRelationships(file string) []Relationship {
	return append([]Relationship(nil), t.relsByFile[file]...)
}

// AllSymbols returns every symbol in deterministic order, for
// persistence and structure dumps.
func (t *Table) AllSymbols() []*Symbol {
	out := make([]*Symbol, 0, len(t.symbols))
	for _, sym := range t.symbols {
		out = append(out, sym)
	}
	sortSymbols(out)
	return out
}

// AllRelationships returns every relationship in deterministic order.
func (t *Table) AllRelationships() []Relationship {
	var out []Relationship
	for _, rels := range t.relsByFile {
		out = append(out, rels...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Counts reports arena sizes for stats output.
func (t *Table) Counts() (symbols, relationships int) {
	symbols = len(t.symbols)
	for _, rels := range t.relsByFile {
		relationships += len(rels)
	}
	return symbols, relationships
}

// Clone returns an independent Table sharing immutable *Symbol values.
// The incremental analyzer mutates a clone and publishes it by pointer
// swap, so readers of the old snapshot never see partial state.
func (t *Table) Clone() *Table {
	c := &Table{
		symbols:     make(map[ID]*Symbol, len(t.symbols)),
		byName:      make(map[string][]ID, len(t.byName)),
		byFile:      make(map[string][]ID, len(t.byFile)),
		byQualified: make(map[string]ID, len(t.byQualified)),
		relsByFile:  make(map[string][]Relationship, len(t.relsByFile)),
		outgoing:    make(map[ID][]Relationship, len(t.outgoing)),
		incoming:    make(map[ID][]Relationship, len(t.incoming)),
	}
	for id, sym := range t.symbols {
		c.symbols[id] = sym
	}
	for k, v := range t.byName {
		c.byName[k] = append([]ID(nil), v...)
	}
	for k, v := range t.byFile {
		c.byFile[k] = append([]ID(nil), v...)
	}
	for k, v := range t.byQualified {
		c.byQualified[k] = v
	}
	for k, v := range t.relsByFile {
		c.relsByFile[k] = append([]Relationship(nil), v...)
	}
	for k, v := range t.outgoing {
		c.outgoing[k] = append([]Relationship(nil), v...)
	}
	for k, v := range t.incoming {
		c.incoming[k] = append([]Relationship(nil), v...)
	}
	return c
}

func sortSymbols(syms []*Symbol) {
	sort.Slice(syms, func(i, j int) bool {
		if syms[i].QualifiedName != syms[j].QualifiedName {
			return syms[i].QualifiedName < syms[j].QualifiedName
		}
		return syms[i].File < syms[j].File
	})
}

func dropID(ids []ID, id ID) []ID {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

func dropRel(rels []Relationship, r Relationship) []Relationship {
	out := rels[:0]
	for _, x := range rels {
		if x != r {
			out = append(out, x)
		}
	}
	return out
}

// dropRelSlice is dropRel for arena slices, kept separate because the
// arena is the owning collection.
func dropRelSlice(rels []Relationship, r Relationship) []Relationship {
	return dropRel(rels, r)
}
