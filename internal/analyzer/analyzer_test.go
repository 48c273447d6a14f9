package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpaulson/lodestar/internal/lang"
	"github.com/jpaulson/lodestar/internal/symtab"
)

type moduleSet map[string]bool

func (m moduleSet) Has(path string) bool { return m[path] }

func analyze(t *testing.T, path, src string, modules moduleSet) *ModuleFacts {
	t.Helper()
	fa, err := lang.NewParser().Parse(context.Background(), path, []byte(src))
	require.NoError(t, err)
	return New(".").Analyze(fa, modules)
}

func TestModulePath(t *testing.T) {
	t.Parallel()

	a := New(".")
	assert.Equal(t, "pkg.sub.mod", a.ModulePath("pkg/sub/mod.py"))
	assert.Equal(t, "main", a.ModulePath("main.py"))
	assert.Equal(t, "pkg", a.ModulePath("pkg/__init__.py"))
	assert.Equal(t, "web.app", a.ModulePath("web/app.js"))
}

func TestAnalyzeResolvesImports(t *testing.T) {
	t.Parallel()

	modules := moduleSet{
		"app.main":    true,
		"app.helpers": true,
		"core.engine": true,
	}
	facts := analyze(t, "app/main.py", `
from helpers import greet
from core.engine import Engine
import requests
`, modules)

	assert.Equal(t, "app.main", facts.Path)
	require.Len(t, facts.Imports, 2)
	assert.Equal(t, "app.helpers", facts.Imports[0].Target)
	assert.Equal(t, []string{"greet"}, facts.Imports[0].Names)
	assert.Equal(t, "core.engine", facts.Imports[1].Target)
	assert.Equal(t, []string{"requests"}, facts.Unresolved)
}

func TestAnalyzeRelativeImports(t *testing.T) {
	t.Parallel()

	modules := moduleSet{
		"pkg.sub.a": true,
		"pkg.sub.b": true,
		"pkg.core":  true,
	}

	facts := analyze(t, "pkg/sub/a.py", "from . import b\n", modules)
	require.Len(t, facts.Imports, 1)
	assert.Equal(t, "pkg.sub.b", facts.Imports[0].Target)

	facts = analyze(t, "pkg/sub/a.py", "from ..core import boot\n", modules)
	require.Len(t, facts.Imports, 1)
	assert.Equal(t, "pkg.core", facts.Imports[0].Target)

	// Walking past the root never resolves.
	facts = analyze(t, "pkg/sub/a.py", "from ...nowhere import x\n", modules)
	assert.Empty(t, facts.Imports)
	assert.Equal(t, []string{"...nowhere"}, facts.Unresolved)
}

func TestAnalyzeMergesDuplicateImports(t *testing.T) {
	t.Parallel()

	modules := moduleSet{"app.main": true, "app.util": true}
	facts := analyze(t, "app/main.py", `
from util import first
from util import second
`, modules)

	require.Len(t, facts.Imports, 1)
	assert.Equal(t, []string{"first", "second"}, facts.Imports[0].Names)
}

func TestAnalyzeExportsAndUnresolvedNeverError(t *testing.T) {
	t.Parallel()

	facts := analyze(t, "app/mod.py", `
import numpy

LIMIT = 5
_SECRET = 1


def public():
    pass


def _private():
    pass


class Thing:
    pass
`, moduleSet{"app.mod": true})

	assert.Equal(t, []string{"LIMIT", "Thing", "public"}, facts.Exports)
	assert.Equal(t, []string{"numpy"}, facts.Unresolved)
}

func TestAPISignatureIgnoresBodies(t *testing.T) {
	t.Parallel()

	parse := func(src string) *lang.FileAnalysis {
		fa, err := lang.NewParser().Parse(context.Background(), "m.py", []byte(src))
		require.NoError(t, err)
		return fa
	}

	base := parse(`
def greet(name: str) -> str:
    return "hi " + name
`)
	bodyEdit := parse(`
def greet(name: str) -> str:
    prefix = "hello "
    return prefix + name
`)
	sigEdit := parse(`
def greet(name: str, loud: bool = False) -> str:
    return "hi " + name
`)
	privateAdd := parse(`
def greet(name: str) -> str:
    return "hi " + name


def _helper():
    pass
`)

	assert.Equal(t, APISignature(base), APISignature(bodyEdit))
	assert.NotEqual(t, APISignature(base), APISignature(sigEdit))
	assert.Equal(t, APISignature(base), APISignature(privateAdd))
}

func TestCollectRefs(t *testing.T) {
	t.Parallel()

	modules := moduleSet{"app.main": true, "app.helpers": true}
	facts := analyze(t, "app/main.py", `from helpers import greet


def run():
    greet("x")


class Runner(Base):
    def go(self):
        run()


run()
`, modules)

	byOwner := map[string][]Ref{}
	for _, r := range facts.Refs {
		byOwner[r.Owner] = append(byOwner[r.Owner], r)
	}

	// The import edge and the top-level run() call belong to the module.
	modRefs := byOwner["app.main"]
	require.Len(t, modRefs, 2)
	assert.Equal(t, symtab.RelImports, modRefs[0].Kind)
	assert.Equal(t, "app.helpers", modRefs[0].Name)
	assert.Equal(t, symtab.RelCalls, modRefs[1].Kind)
	assert.Equal(t, "run", modRefs[1].Name)

	require.Len(t, byOwner["app.main.run"], 1)
	assert.Equal(t, "greet", byOwner["app.main.run"][0].Name)

	runner := byOwner["app.main.Runner"]
	require.Len(t, runner, 1)
	assert.Equal(t, symtab.RelInherits, runner[0].Kind)
	assert.Equal(t, "Base", runner[0].Name)

	require.Len(t, byOwner["app.main.Runner.go"], 1)
	assert.Equal(t, "run", byOwner["app.main.Runner.go"][0].Name)
}

func TestComputeMetrics(t *testing.T) {
	t.Parallel()

	facts := analyze(t, "app/m.py", `"""Module doc."""


def documented():
    """Has a docstring."""
    if True:
        return 1
    return 0


def bare():
    pass
`, moduleSet{"app.m": true})

	m := facts.Metrics
	assert.Greater(t, m.LOC, 0)
	// documented has complexity 2, bare has 1.
	assert.InDelta(t, 1.5, m.AvgComplexity, 1e-9)
	assert.InDelta(t, 0.5, m.DocstringCoverage, 1e-9)
}

func TestSignature(t *testing.T) {
	t.Parallel()

	sig := Signature(lang.Function{
		Name: "area",
		Params: []lang.Param{
			{Name: "radius", Annotation: "float"},
			{Name: "scale", Default: "1.0"},
		},
		Returns: "float",
	})
	assert.Equal(t, "area(radius: float, scale=1.0) -> float", sig)
}
