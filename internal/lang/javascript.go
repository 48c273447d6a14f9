package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

func init() {
	registerSpec(&languageSpec{
		name:          "javascript",
		commentPrefix: "//",
		decisionTypes: map[string]bool{
			"if_statement":       true,
			"for_statement":      true,
			"for_in_statement":   true,
			"while_statement":    true,
			"do_statement":       true,
			"switch_case":        true,
			"catch_clause":       true,
			"ternary_expression": true,
		},
		classify:      jsClassify,
		extractImport: jsImports,
		extractFunc:   jsFunction,
		extractClass:  jsClass,
		extractConst:  jsConstants,
		callName:      jsCallName,
		isBooleanOp: func(n *sitter.Node, src []byte) bool {
			if n.Type() != "binary_expression" {
				return false
			}
			op := nodeText(n.ChildByFieldName("operator"), src)
			return op == "&&" || op == "||" || op == "??"
		},
		isPrivateName: func(name string) bool {
			return strings.HasPrefix(name, "_") || strings.HasPrefix(name, "#")
		},
	})
}

func jsClassify(n *sitter.Node) NodeKind {
	switch n.Type() {
	case "import_statement":
		return KindImport
	case "function_declaration", "generator_function_declaration", "method_definition":
		return KindFunction
	case "class_declaration":
		return KindClass
	case "lexical_declaration":
		return KindConstant
	case "call_expression":
		return KindCall
	case "comment":
		return KindComment
	default:
		return KindNone
	}
}

func jsImports(n *sitter.Node, src []byte) []Import {
	imp := Import{
		Module: strings.Trim(nodeText(n.ChildByFieldName("source"), src), "\"'`"),
		Line:   line(n),
	}
	// "./util" and "../util" are relative; record depth the same way
	// Python relative imports do.
	for strings.HasPrefix(imp.Module, "./") || strings.HasPrefix(imp.Module, "../") {
		if strings.HasPrefix(imp.Module, "./") {
			imp.Module = strings.TrimPrefix(imp.Module, "./")
			if imp.RelativeDepth == 0 {
				imp.RelativeDepth = 1
			}
		} else {
			imp.Module = strings.TrimPrefix(imp.Module, "../")
			imp.RelativeDepth++
			if imp.RelativeDepth == 1 {
				imp.RelativeDepth = 2
			}
		}
	}
	imp.Module = strings.ReplaceAll(imp.Module, "/", ".")
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		for i := 0; i < int(node.NamedChildCount()); i++ {
			c := node.NamedChild(i)
			switch c.Type() {
			case "import_clause", "named_imports":
				walk(c)
			case "identifier":
				imp.Alias = nodeText(c, src)
			case "import_specifier":
				imp.Names = append(imp.Names, nodeText(c.ChildByFieldName("name"), src))
			case "namespace_import":
				for j := 0; j < int(c.NamedChildCount()); j++ {
					if c.NamedChild(j).Type() == "identifier" {
						imp.Alias = nodeText(c.NamedChild(j), src)
					}
				}
			}
		}
	}
	walk(n)
	return []Import{imp}
}

func jsFunction(n *sitter.Node, src []byte) (Function, bool) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return Function{}, false
	}
	fn := Function{
		Name:      nodeText(name, src),
		StartLine: line(n),
		EndLine:   endLine(n),
		Docstring: jsDocComment(n, src),
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "async" {
			fn.Async = true
		}
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			p := params.NamedChild(i)
			switch p.Type() {
			case "identifier":
				fn.Params = append(fn.Params, Param{Name: nodeText(p, src)})
			case "assignment_pattern":
				fn.Params = append(fn.Params, Param{
					Name:    nodeText(p.ChildByFieldName("left"), src),
					Default: nodeText(p.ChildByFieldName("right"), src),
				})
			case "rest_pattern":
				fn.Params = append(fn.Params, Param{Name: nodeText(p, src)})
			}
		}
	}
	return fn, true
}

func jsClass(n *sitter.Node, src []byte) []Class {
	name := n.ChildByFieldName("name")
	if name == nil {
		return nil
	}
	cls := Class{
		Name:      nodeText(name, src),
		StartLine: line(n),
		EndLine:   endLine(n),
		Docstring: jsDocComment(n, src),
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "class_heritage" {
			for j := 0; j < int(c.NamedChildCount()); j++ {
				h := c.NamedChild(j)
				if h.Type() == "identifier" || h.Type() == "member_expression" {
					cls.Bases = append(cls.Bases, nodeText(h, src))
				}
			}
		}
	}
	return []Class{cls}
}

// jsConstants records top-level `const UPPER = ...` bindings.
func jsConstants(n *sitter.Node, src []byte) []Constant {
	if !strings.HasPrefix(nodeText(n, src), "const") {
		return nil
	}
	var out []Constant
	for i := 0; i < int(n.NamedChildCount()); i++ {
		d := n.NamedChild(i)
		if d.Type() != "variable_declarator" {
			continue
		}
		name := nodeText(d.ChildByFieldName("name"), src)
		if name == "" || name != strings.ToUpper(name) {
			continue
		}
		out = append(out, Constant{
			Name:  name,
			Value: nodeText(d.ChildByFieldName("value"), src),
			Line:  line(d),
		})
	}
	return out
}

func jsCallName(n *sitter.Node, src []byte) (string, bool) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return "", false
	}
	switch fn.Type() {
	case "identifier", "member_expression":
		return nodeText(fn, src), true
	}
	return "", false
}

func jsDocComment(n *sitter.Node, src []byte) string {
	prev := n.PrevNamedSibling()
	if prev == nil || prev.Type() != "comment" || int(prev.EndPoint().Row) != int(n.StartPoint().Row)-1 {
		return ""
	}
	text := nodeText(prev, src)
	text = strings.TrimPrefix(text, "/**")
	text = strings.TrimPrefix(text, "/*")
	text = strings.TrimSuffix(text, "*/")
	text = strings.TrimPrefix(text, "//")
	return strings.TrimSpace(text)
}
