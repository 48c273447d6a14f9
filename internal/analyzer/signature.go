package analyzer

import (
	"crypto/sha256"
	"fmt"
	"sort"

	"github.com/jpaulson/lodestar/internal/lang"
)

// APISignature computes a deterministic hash of a file's public API:
// the ordered set of exported symbol names with parameter names,
// defaults, type annotations, and return annotations, plus class bases
// and exported method signatures. Docstrings, bodies, and locations do
// NOT affect the hash, so body-only edits never trigger propagation.
func APISignature(fa *lang.FileAnalysis) string {
	h := sha256.New()

	funcs := make([]lang.Function, 0, len(fa.Functions))
	for _, fn := range fa.Functions {
		if !lang.IsPrivate(fa.Language, fn.Name) {
			funcs = append(funcs, fn)
		}
	}
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].Name < funcs[j].Name })
	for _, fn := range funcs {
		writeFunctionSig(h, "func", fn)
	}

	classes := make([]lang.Class, 0, len(fa.Classes))
	for _, cls := range fa.Classes {
		if !lang.IsPrivate(fa.Language, cls.Name) {
			classes = append(classes, cls)
		}
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	for _, cls := range classes {
		fmt.Fprintf(h, "class:%s\n", cls.Name)
		for _, base := range cls.Bases {
			fmt.Fprintf(h, "base:%s\n", base)
		}
		methods := make([]lang.Function, 0, len(cls.Methods))
		for _, m := range cls.Methods {
			if !lang.IsPrivate(fa.Language, m.Name) {
				methods = append(methods, m)
			}
		}
		sort.Slice(methods, func(i, j int) bool { return methods[i].Name < methods[j].Name })
		for _, m := range methods {
			writeFunctionSig(h, "method", m)
		}
	}

	consts := make([]string, 0, len(fa.Constants))
	for _, c := range fa.Constants {
		if !lang.IsPrivate(fa.Language, c.Name) {
			consts = append(consts, c.Name)
		}
	}
	sort.Strings(consts)
	for _, name := range consts {
		fmt.Fprintf(h, "const:%s\n", name)
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}

func writeFunctionSig(h interface{ Write([]byte) (int, error) }, tag string, fn lang.Function) {
	fmt.Fprintf(h, "%s:%s(", tag, fn.Name)
	for i, p := range fn.Params {
		if i > 0 {
			fmt.Fprint(h, ",")
		}
		fmt.Fprintf(h, "%s:%s=%s", p.Name, p.Annotation, p.Default)
	}
	fmt.Fprintf(h, ")->%s\n", fn.Returns)
}

// Signature renders a human-readable function signature for hover
// output: "name(a, b=1) -> int".
func Signature(fn lang.Function) string {
	sig := fn.Name + "("
	for i, p := range fn.Params {
		if i > 0 {
			sig += ", "
		}
		sig += p.Name
		if p.Annotation != "" {
			sig += ": " + p.Annotation
		}
		if p.Default != "" {
			sig += "=" + p.Default
		}
	}
	sig += ")"
	if fn.Returns != "" {
		sig += " -> " + fn.Returns
	}
	return sig
}
