package lang

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Parser turns source text into a FileAnalysis. A Parser is not safe
// for concurrent use; the indexing pipeline creates one per worker.
type Parser struct {
	p *sitter.Parser
}

// NewParser returns a ready Parser.
func NewParser() *Parser {
	initGrammars()
	return &Parser{p: sitter.NewParser()}
}

// Parse analyzes one file. On malformed source it returns a *ParseError
// whose Partial field holds everything extracted around the error; the
// returned error never aborts batch processing upstream.
func (p *Parser) Parse(ctx context.Context, path string, src []byte) (*FileAnalysis, error) {
	language, ok := LanguageForFile(path)
	if !ok {
		return nil, fmt.Errorf("parse %s: unsupported file type", path)
	}
	spec, ok := specFor(language)
	if !ok {
		return nil, fmt.Errorf("parse %s: no language spec for %s", path, language)
	}

	p.p.SetLanguage(grammars[language])
	tree, err := p.p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()
	root := tree.RootNode()

	fa := &FileAnalysis{
		Path:     path,
		Language: language,
		Lines:    countLines(src, spec.commentPrefix),
	}

	// Imports first so body walks can attribute identifier uses to
	// imported names.
	collectImports(root, src, spec, fa)
	imported := importedNames(fa.Imports)

	ex := &extractor{spec: spec, src: src, imported: imported}
	ex.topLevel(root, fa)

	if root.HasError() {
		return nil, &ParseError{
			Path:    path,
			Line:    firstErrorLine(root),
			Partial: fa,
		}
	}
	return fa, nil
}

// extractor carries per-file state through the traversal.
type extractor struct {
	spec     *languageSpec
	src      []byte
	imported map[string]bool
}

// topLevel walks the file's top-level statements, descending only into
// containers the grammar nests declarations in (decorated definitions,
// export statements).
func (ex *extractor) topLevel(root *sitter.Node, fa *FileAnalysis) {
	pendingMethods := map[string][]Function{} // Go receiver type -> methods

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			switch c.Type() {
			case "decorated_definition", "export_statement":
				visit(c)
				continue
			}
			switch ex.spec.classify(c) {
			case KindFunction:
				fn, ok := ex.spec.extractFunc(c, ex.src)
				if !ok {
					continue
				}
				ex.analyzeBody(c, &fn)
				if ex.spec.methodOwner != nil {
					if owner, isMethod := ex.spec.methodOwner(c, ex.src); isMethod {
						pendingMethods[owner] = append(pendingMethods[owner], fn)
						continue
					}
				}
				fa.Functions = append(fa.Functions, fn)
			case KindClass:
				for _, cls := range ex.spec.extractClass(c, ex.src) {
					ex.classMethods(c, &cls)
					fa.Classes = append(fa.Classes, cls)
				}
			case KindConstant:
				fa.Constants = append(fa.Constants, ex.spec.extractConst(c, ex.src)...)
				ex.moduleScope(c, fa)
			case KindNone:
				ex.moduleScope(c, fa)
			}
		}
	}
	visit(root)

	// Attach Go methods to their receiver types. Methods whose type is
	// declared in another file surface as free functions so they still
	// get symbols.
	for owner, methods := range pendingMethods {
		attached := false
		for i := range fa.Classes {
			if fa.Classes[i].Name == owner {
				fa.Classes[i].Methods = append(fa.Classes[i].Methods, methods...)
				attached = true
				break
			}
		}
		if !attached {
			fa.Functions = append(fa.Functions, methods...)
		}
	}
}

// classMethods extracts method definitions nested in a class body.
func (ex *extractor) classMethods(classNode *sitter.Node, cls *Class) {
	body := classNode.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		if c.Type() == "decorated_definition" {
			if def := c.ChildByFieldName("definition"); def != nil {
				c = def
			}
		}
		if ex.spec.classify(c) != KindFunction {
			continue
		}
		fn, ok := ex.spec.extractFunc(c, ex.src)
		if !ok {
			continue
		}
		ex.analyzeBody(c, &fn)
		cls.Methods = append(cls.Methods, fn)
	}
}

// analyzeBody runs the single complexity-and-references traversal over
// a function subtree: cyclomatic complexity is 1 plus every decision
// point, call sites feed Calls relationships, and identifier uses of
// imported names feed Uses relationships.
func (ex *extractor) analyzeBody(fnNode *sitter.Node, fn *Function) {
	fn.Complexity = 1
	body := fnNode.ChildByFieldName("body")
	if body == nil {
		return
	}

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		t := n.Type()
		if ex.spec.decisionTypes[t] {
			fn.Complexity++
		} else if ex.spec.isBooleanOp(n, ex.src) {
			fn.Complexity++
		}
		if ex.spec.classify(n) == KindCall {
			if name, ok := ex.spec.callName(n, ex.src); ok {
				fn.Calls = append(fn.Calls, CallSite{Name: name, Line: line(n)})
			}
		}
		if t == "identifier" && ex.imported[nodeText(n, ex.src)] && !isCallCallee(n) {
			fn.Uses = append(fn.Uses, UseSite{Name: nodeText(n, ex.src), Line: line(n)})
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(body)
}

// moduleScope records call sites and imported-name uses in a top-level
// statement that isn't a declaration, such as "foo()" at module scope.
func (ex *extractor) moduleScope(stmt *sitter.Node, fa *FileAnalysis) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if ex.spec.classify(n) == KindCall {
			if name, ok := ex.spec.callName(n, ex.src); ok {
				fa.ModuleCalls = append(fa.ModuleCalls, CallSite{Name: name, Line: line(n)})
			}
		}
		if n.Type() == "identifier" && ex.imported[nodeText(n, ex.src)] && !isCallCallee(n) {
			fa.ModuleUses = append(fa.ModuleUses, UseSite{Name: nodeText(n, ex.src), Line: line(n)})
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(stmt)
}

// isCallCallee reports whether n is the function child of a call, which
// is already recorded as a CallSite.
func isCallCallee(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}
	fn := parent.ChildByFieldName("function")
	return fn != nil && fn.StartByte() == n.StartByte() && fn.EndByte() == n.EndByte()
}

// collectImports walks the whole tree for import statements; several
// grammars allow imports below the top level.
func collectImports(root *sitter.Node, src []byte, spec *languageSpec, fa *FileAnalysis) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if spec.classify(n) == KindImport {
			fa.Imports = append(fa.Imports, spec.extractImport(n, src)...)
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)
}

// importedNames returns every local name an import list binds: explicit
// names, aliases, and bare module names.
func importedNames(imports []Import) map[string]bool {
	names := make(map[string]bool)
	for _, imp := range imports {
		for _, n := range imp.Names {
			if n != "*" {
				names[n] = true
			}
		}
		if imp.Alias != "" {
			names[imp.Alias] = true
		} else if len(imp.Names) == 0 && imp.Module != "" {
			// "import a.b" binds "a"; "import x" binds "x".
			base := imp.Module
			if i := strings.IndexByte(base, '.'); i >= 0 {
				base = base[:i]
			}
			names[base] = true
		}
	}
	return names
}

// firstErrorLine finds the first ERROR or missing node, depth first.
func firstErrorLine(root *sitter.Node) int {
	var find func(n *sitter.Node) int
	find = func(n *sitter.Node) int {
		if n.IsError() || n.IsMissing() {
			return line(n)
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if c := n.Child(i); c != nil && c.HasError() {
				if l := find(c); l > 0 {
					return l
				}
			}
		}
		return 0
	}
	if l := find(root); l > 0 {
		return l
	}
	return 1
}

// countLines computes total, comment, and blank line counts.
func countLines(src []byte, commentPrefix string) LineCounts {
	lc := LineCounts{}
	for _, ln := range strings.Split(string(src), "\n") {
		lc.Total++
		trimmed := strings.TrimSpace(ln)
		switch {
		case trimmed == "":
			lc.Blank++
		case strings.HasPrefix(trimmed, commentPrefix):
			lc.Comment++
		}
	}
	return lc
}

// IsPrivate reports whether a name is private by the naming convention
// of the given language.
func IsPrivate(language, name string) bool {
	if spec, ok := specFor(language); ok {
		return spec.isPrivateName(name)
	}
	return strings.HasPrefix(name, "_")
}
