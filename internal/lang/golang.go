package lang

import (
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
)

func init() {
	registerSpec(&languageSpec{
		name:          "go",
		commentPrefix: "//",
		decisionTypes: map[string]bool{
			"if_statement":       true,
			"for_statement":      true,
			"expression_case":    true,
			"type_case":          true,
			"communication_case": true,
		},
		classify:      goClassify,
		extractImport: goImports,
		extractFunc:   goFunction,
		extractClass:  goClass,
		extractConst:  goConstants,
		callName:      goCallName,
		isBooleanOp: func(n *sitter.Node, src []byte) bool {
			if n.Type() != "binary_expression" {
				return false
			}
			op := nodeText(n.ChildByFieldName("operator"), src)
			return op == "&&" || op == "||"
		},
		isPrivateName: func(name string) bool {
			if name == "" {
				return true
			}
			return !unicode.IsUpper(rune(name[0]))
		},
		methodOwner: goMethodOwner,
	})
}

func goClassify(n *sitter.Node) NodeKind {
	switch n.Type() {
	case "import_declaration":
		return KindImport
	case "function_declaration", "method_declaration":
		return KindFunction
	case "type_declaration":
		return KindClass
	case "const_declaration":
		return KindConstant
	case "call_expression":
		return KindCall
	case "comment":
		return KindComment
	default:
		return KindNone
	}
}

func goImports(n *sitter.Node, src []byte) []Import {
	var out []Import
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		for i := 0; i < int(node.NamedChildCount()); i++ {
			c := node.NamedChild(i)
			switch c.Type() {
			case "import_spec_list":
				walk(c)
			case "import_spec":
				imp := Import{
					Module: strings.Trim(nodeText(c.ChildByFieldName("path"), src), `"`),
					Line:   line(c),
				}
				if name := c.ChildByFieldName("name"); name != nil {
					imp.Alias = nodeText(name, src)
				}
				out = append(out, imp)
			}
		}
	}
	walk(n)
	return out
}

func goFunction(n *sitter.Node, src []byte) (Function, bool) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return Function{}, false
	}
	fn := Function{
		Name:      nodeText(name, src),
		StartLine: line(n),
		EndLine:   endLine(n),
		Returns:   nodeText(n.ChildByFieldName("result"), src),
		Docstring: goDocComment(n, src),
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			p := params.NamedChild(i)
			if p.Type() != "parameter_declaration" && p.Type() != "variadic_parameter_declaration" {
				continue
			}
			typ := nodeText(p.ChildByFieldName("type"), src)
			named := false
			for j := 0; j < int(p.NamedChildCount()); j++ {
				c := p.NamedChild(j)
				if c.Type() == "identifier" {
					fn.Params = append(fn.Params, Param{Name: nodeText(c, src), Annotation: typ})
					named = true
				}
			}
			if !named {
				fn.Params = append(fn.Params, Param{Annotation: typ})
			}
		}
	}
	return fn, true
}

// goMethodOwner returns the receiver base type for method declarations
// so methods attach to their type the way class methods do elsewhere.
func goMethodOwner(n *sitter.Node, src []byte) (string, bool) {
	if n.Type() != "method_declaration" {
		return "", false
	}
	recv := n.ChildByFieldName("receiver")
	if recv == nil {
		return "", false
	}
	typ := strings.TrimLeft(nodeText(recv, src), "( \t")
	typ = strings.TrimRight(typ, ") \t")
	if i := strings.LastIndexAny(typ, " \t"); i >= 0 {
		typ = typ[i+1:]
	}
	typ = strings.TrimPrefix(typ, "*")
	// Drop type parameters: "List[T]" -> "List".
	if i := strings.IndexByte(typ, '['); i >= 0 {
		typ = typ[:i]
	}
	return typ, typ != ""
}

// goClass maps type declarations onto the Class shape, one Class per
// spec so grouped declarations index every type. Struct and interface
// types carry no bases here; embedding is left to the relationship
// resolver via Uses.
func goClass(n *sitter.Node, src []byte) []Class {
	doc := goDocComment(n, src)
	var out []Class
	for i := 0; i < int(n.NamedChildCount()); i++ {
		spec := n.NamedChild(i)
		if spec.Type() != "type_spec" {
			continue
		}
		name := spec.ChildByFieldName("name")
		if name == nil {
			continue
		}
		out = append(out, Class{
			Name:      nodeText(name, src),
			StartLine: line(spec),
			EndLine:   endLine(spec),
			Docstring: doc,
		})
	}
	return out
}

func goConstants(n *sitter.Node, src []byte) []Constant {
	var out []Constant
	for i := 0; i < int(n.NamedChildCount()); i++ {
		spec := n.NamedChild(i)
		if spec.Type() != "const_spec" {
			continue
		}
		for j := 0; j < int(spec.NamedChildCount()); j++ {
			c := spec.NamedChild(j)
			if c.Type() == "identifier" {
				out = append(out, Constant{Name: nodeText(c, src), Line: line(spec)})
			}
		}
	}
	return out
}

func goCallName(n *sitter.Node, src []byte) (string, bool) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return "", false
	}
	switch fn.Type() {
	case "identifier", "selector_expression":
		return nodeText(fn, src), true
	}
	return "", false
}

// goDocComment collects the contiguous comment block immediately above
// a declaration.
func goDocComment(n *sitter.Node, src []byte) string {
	var lines []string
	prev := n.PrevNamedSibling()
	expect := int(n.StartPoint().Row)
	for prev != nil && prev.Type() == "comment" && int(prev.EndPoint().Row) == expect-1 {
		text := strings.TrimSpace(strings.TrimPrefix(nodeText(prev, src), "//"))
		lines = append([]string{text}, lines...)
		expect = int(prev.StartPoint().Row)
		prev = prev.PrevNamedSibling()
	}
	return strings.Join(lines, "\n")
}
