package lodestar

import (
	"strings"

	"github.com/jpaulson/lodestar/internal/analyzer"
	"github.com/jpaulson/lodestar/internal/lang"
	"github.com/jpaulson/lodestar/internal/symtab"
)

// buildSymbols flattens one file's parse output into symbol table
// entries: a module symbol, then functions, classes with their
// methods, and module-level constants. IDs are deterministic, so
// re-indexing unchanged source yields identical symbols.
func buildSymbols(facts *analyzer.ModuleFacts, fa *lang.FileAnalysis) []*symtab.Symbol {
	module := facts.Path
	file := facts.File

	endLine := fa.Lines.Total
	if endLine < 1 {
		endLine = 1
	}
	syms := []*symtab.Symbol{{
		ID:            symtab.MakeID(module, file, 1),
		Name:          lastSegment(module),
		QualifiedName: module,
		Kind:          symtab.KindModule,
		File:          file,
		StartLine:     1,
		EndLine:       endLine,
		Public:        true,
	}}

	for _, fn := range fa.Functions {
		syms = append(syms, functionSymbol(module, file, fa.Language, module+"."+fn.Name, fn))
	}
	for _, cls := range fa.Classes {
		qname := module + "." + cls.Name
		syms = append(syms, &symtab.Symbol{
			ID:            symtab.MakeID(qname, file, cls.StartLine),
			Name:          cls.Name,
			QualifiedName: qname,
			Kind:          symtab.KindClass,
			File:          file,
			StartLine:     cls.StartLine,
			EndLine:       cls.EndLine,
			Signature:     classSignature(cls),
			Docstring:     cls.Docstring,
			Public:        !lang.IsPrivate(fa.Language, cls.Name),
		})
		for _, method := range cls.Methods {
			syms = append(syms, functionSymbol(module, file, fa.Language, qname+"."+method.Name, method))
		}
	}
	for _, c := range fa.Constants {
		qname := module + "." + c.Name
		syms = append(syms, &symtab.Symbol{
			ID:            symtab.MakeID(qname, file, c.Line),
			Name:          c.Name,
			QualifiedName: qname,
			Kind:          symtab.KindConstant,
			File:          file,
			StartLine:     c.Line,
			EndLine:       c.Line,
			Public:        !lang.IsPrivate(fa.Language, c.Name),
		})
	}
	return syms
}

func functionSymbol(module, file, language, qname string, fn lang.Function) *symtab.Symbol {
	return &symtab.Symbol{
		ID:            symtab.MakeID(qname, file, fn.StartLine),
		Name:          fn.Name,
		QualifiedName: qname,
		Kind:          symtab.KindFunction,
		File:          file,
		StartLine:     fn.StartLine,
		EndLine:       fn.EndLine,
		Signature:     analyzer.Signature(fn),
		Docstring:     fn.Docstring,
		Complexity:    fn.Complexity,
		Public:        !lang.IsPrivate(language, fn.Name),
	}
}

func classSignature(cls lang.Class) string {
	if len(cls.Bases) == 0 {
		return "class " + cls.Name
	}
	return "class " + cls.Name + "(" + strings.Join(cls.Bases, ", ") + ")"
}

func lastSegment(module string) string {
	if i := strings.LastIndexByte(module, '.'); i >= 0 {
		return module[i+1:]
	}
	return module
}
