package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

func init() {
	registerSpec(&languageSpec{
		name:          "python",
		commentPrefix: "#",
		decisionTypes: map[string]bool{
			"if_statement":             true,
			"elif_clause":              true,
			"for_statement":            true,
			"while_statement":          true,
			"except_clause":            true,
			"conditional_expression":   true,
			"for_in_clause":            true, // comprehension clauses
		},
		classify:      pyClassify,
		extractImport: pyImports,
		extractFunc:   pyFunction,
		extractClass:  pyClass,
		extractConst:  pyConstants,
		callName:      pyCallName,
		isBooleanOp: func(n *sitter.Node, src []byte) bool {
			return n.Type() == "boolean_operator"
		},
		isPrivateName: func(name string) bool {
			return strings.HasPrefix(name, "_")
		},
	})
}

func pyClassify(n *sitter.Node) NodeKind {
	switch n.Type() {
	case "import_statement", "import_from_statement":
		return KindImport
	case "function_definition":
		return KindFunction
	case "class_definition":
		return KindClass
	case "expression_statement":
		// Module-level assignments are constant candidates; pyConstants
		// decides whether the name qualifies.
		if n.NamedChildCount() == 1 && n.NamedChild(0).Type() == "assignment" {
			return KindConstant
		}
		return KindNone
	case "call":
		return KindCall
	case "comment":
		return KindComment
	default:
		return KindNone
	}
}

// pyImports handles both "import a.b as c" and
// "from ..pkg import x, y as z" forms.
func pyImports(n *sitter.Node, src []byte) []Import {
	var out []Import
	switch n.Type() {
	case "import_statement":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			switch c.Type() {
			case "dotted_name":
				out = append(out, Import{Module: nodeText(c, src), Line: line(n)})
			case "aliased_import":
				imp := Import{Module: nodeText(c.ChildByFieldName("name"), src), Line: line(n)}
				imp.Alias = nodeText(c.ChildByFieldName("alias"), src)
				out = append(out, imp)
			}
		}
	case "import_from_statement":
		imp := Import{Line: line(n)}
		mod := n.ChildByFieldName("module_name")
		if mod != nil {
			if mod.Type() == "relative_import" {
				text := nodeText(mod, src)
				imp.RelativeDepth = len(text) - len(strings.TrimLeft(text, "."))
				imp.Module = strings.TrimLeft(text, ".")
			} else {
				imp.Module = nodeText(mod, src)
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c == mod {
				continue
			}
			switch c.Type() {
			case "dotted_name":
				imp.Names = append(imp.Names, nodeText(c, src))
			case "aliased_import":
				imp.Names = append(imp.Names, nodeText(c.ChildByFieldName("name"), src))
			case "wildcard_import":
				imp.Names = append(imp.Names, "*")
			}
		}
		out = append(out, imp)
	}
	return out
}

func pyFunction(n *sitter.Node, src []byte) (Function, bool) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return Function{}, false
	}
	fn := Function{
		Name:      nodeText(name, src),
		StartLine: line(n),
		EndLine:   endLine(n),
		Returns:   nodeText(n.ChildByFieldName("return_type"), src),
		Docstring: pyDocstring(n.ChildByFieldName("body"), src),
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
			case "typed_parameter":
				fn.Params = append(fn.Params, Param{
					Name:       nodeText(p.NamedChild(0), src),
					Annotation: nodeText(p.ChildByFieldName("type"), src),
				})
			case "default_parameter":
				fn.Params = append(fn.Params, Param{
					Name:    nodeText(p.ChildByFieldName("name"), src),
					Default: nodeText(p.ChildByFieldName("value"), src),
				})
			case "typed_default_parameter":
				fn.Params = append(fn.Params, Param{
					Name:       nodeText(p.ChildByFieldName("name"), src),
					Annotation: nodeText(p.ChildByFieldName("type"), src),
					Default:    nodeText(p.ChildByFieldName("value"), src),
				})
			case "list_splat_pattern", "dictionary_splat_pattern":
				fn.Params = append(fn.Params, Param{Name: nodeText(p, src)})
			}
		}
	}
	// Decorators live on a wrapping decorated_definition node.
	if parent := n.Parent(); parent != nil && parent.Type() == "decorated_definition" {
		for i := 0; i < int(parent.NamedChildCount()); i++ {
			c := parent.NamedChild(i)
			if c.Type() == "decorator" {
				fn.Decorators = append(fn.Decorators, strings.TrimPrefix(nodeText(c, src), "@"))
			}
		}
	}
	return fn, true
}

func pyClass(n *sitter.Node, src []byte) []Class {
	name := n.ChildByFieldName("name")
	if name == nil {
		return nil
	}
	cls := Class{
		Name:      nodeText(name, src),
		StartLine: line(n),
		EndLine:   endLine(n),
		Docstring: pyDocstring(n.ChildByFieldName("body"), src),
	}
	if sup := n.ChildByFieldName("superclasses"); sup != nil {
		for i := 0; i < int(sup.NamedChildCount()); i++ {
			c := sup.NamedChild(i)
			if c.Type() == "identifier" || c.Type() == "attribute" {
				cls.Bases = append(cls.Bases, nodeText(c, src))
			}
		}
	}
	return []Class{cls}
}

// pyConstants treats module-level UPPER_CASE assignments as constants,
// everything else as plain variables handled elsewhere.
func pyConstants(n *sitter.Node, src []byte) []Constant {
	assign := n.NamedChild(0)
	if assign == nil || assign.Type() != "assignment" {
		return nil
	}
	left := assign.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" {
		return nil
	}
	name := nodeText(left, src)
	if name != strings.ToUpper(name) || name == "_" {
		return nil
	}
	return []Constant{{
		Name:  name,
		Value: nodeText(assign.ChildByFieldName("right"), src),
		Line:  line(n),
	}}
}

func pyCallName(n *sitter.Node, src []byte) (string, bool) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return "", false
	}
	switch fn.Type() {
	case "identifier", "attribute":
		return nodeText(fn, src), true
	}
	return "", false
}

// pyDocstring returns the leading string literal of a block, if any.
func pyDocstring(body *sitter.Node, src []byte) string {
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Type() != "string" {
		return ""
	}
	text := nodeText(str, src)
	text = strings.Trim(text, "\"'")
	return strings.TrimSpace(text)
}
