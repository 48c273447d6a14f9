package lang

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseSource(t *testing.T, path, src string) *FileAnalysis {
	t.Helper()
	fa, err := NewParser().Parse(context.Background(), path, []byte(src))
	require.NoError(t, err)
	require.NotNil(t, fa)
	return fa
}

func TestLanguageForFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"app/main.py", "python", true},
		{"pkg/server.go", "go", true},
		{"web/index.js", "javascript", true},
		{"web/app.jsx", "javascript", true},
		{"web/util.mjs", "javascript", true},
		{"README.md", "", false},
		{"noext", "", false},
	}
	for _, tt := range tests {
		got, ok := LanguageForFile(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestParsePythonFunctions(t *testing.T) {
	t.Parallel()

	fa := parseSource(t, "app/calc.py", `
import math
from collections import OrderedDict

TAU = 6.283


def area(radius: float, scale: float = 1.0) -> float:
    """Circle area, optionally scaled."""
    if radius < 0:
        raise ValueError("negative radius")
    return math.pi * radius * radius * scale


async def fetch(url):
    for attempt in range(3):
        if attempt > 0 and url:
            continue
    return None
`)

	require.Len(t, fa.Functions, 2)

	area := fa.Functions[0]
	assert.Equal(t, "area", area.Name)
	require.Len(t, area.Params, 2)
	assert.Equal(t, "radius", area.Params[0].Name)
	assert.Equal(t, "float", area.Params[0].Annotation)
	assert.Equal(t, "scale", area.Params[1].Name)
	assert.Equal(t, "1.0", area.Params[1].Default)
	assert.Equal(t, "float", area.Returns)
	assert.Equal(t, "Circle area, optionally scaled.", area.Docstring)
	assert.False(t, area.Async)
	// 1 + if
	assert.Equal(t, 2, area.Complexity)

	fetch := fa.Functions[1]
	assert.Equal(t, "fetch", fetch.Name)
	assert.True(t, fetch.Async)
	// 1 + for + if + boolean operator
	assert.Equal(t, 4, fetch.Complexity)

	require.Len(t, fa.Constants, 1)
	assert.Equal(t, "TAU", fa.Constants[0].Name)
}

func TestParsePythonImports(t *testing.T) {
	t.Parallel()

	fa := parseSource(t, "pkg/sub/mod.py", `
import os.path
import numpy as np
from . import sibling
from ..core import engine, utils as u
`)

	require.Len(t, fa.Imports, 4)

	assert.Equal(t, "os.path", fa.Imports[0].Module)
	assert.Equal(t, 0, fa.Imports[0].RelativeDepth)

	assert.Equal(t, "numpy", fa.Imports[1].Module)
	assert.Equal(t, "np", fa.Imports[1].Alias)

	assert.Equal(t, "", fa.Imports[2].Module)
	assert.Equal(t, 1, fa.Imports[2].RelativeDepth)
	assert.Equal(t, []string{"sibling"}, fa.Imports[2].Names)

	assert.Equal(t, "core", fa.Imports[3].Module)
	assert.Equal(t, 2, fa.Imports[3].RelativeDepth)
	assert.Equal(t, []string{"engine", "utils"}, fa.Imports[3].Names)
}

func TestParsePythonClass(t *testing.T) {
	t.Parallel()

	fa := parseSource(t, "app/shapes.py", `
class Shape:
    """Base shape."""

    def area(self):
        return 0


class Circle(Shape):
    def __init__(self, radius):
        self.radius = radius

    def area(self):
        return 3.14 * self.radius ** 2
`)

	require.Len(t, fa.Classes, 2)

	shape := fa.Classes[0]
	assert.Equal(t, "Shape", shape.Name)
	assert.Empty(t, shape.Bases)
	assert.Equal(t, "Base shape.", shape.Docstring)
	require.Len(t, shape.Methods, 1)

	circle := fa.Classes[1]
	assert.Equal(t, "Circle", circle.Name)
	assert.Equal(t, []string{"Shape"}, circle.Bases)
	require.Len(t, circle.Methods, 2)
	assert.Equal(t, "__init__", circle.Methods[0].Name)
}

func TestParsePythonCallsAndUses(t *testing.T) {
	t.Parallel()

	fa := parseSource(t, "app/main.py", `from helpers import greet, BANNER


def run():
    print(BANNER)
    greet("world")


run()
`)

	require.Len(t, fa.Functions, 1)
	run := fa.Functions[0]

	callNames := make([]string, 0, len(run.Calls))
	for _, c := range run.Calls {
		callNames = append(callNames, c.Name)
	}
	assert.Contains(t, callNames, "greet")
	assert.Contains(t, callNames, "print")

	require.Len(t, run.Uses, 1)
	assert.Equal(t, "BANNER", run.Uses[0].Name)

	// The top-level run() call lands in module scope.
	require.Len(t, fa.ModuleCalls, 1)
	assert.Equal(t, "run", fa.ModuleCalls[0].Name)
	assert.Equal(t, 9, fa.ModuleCalls[0].Line)
}

func TestParsePythonDecorators(t *testing.T) {
	t.Parallel()

	fa := parseSource(t, "app/views.py", `
@app.route("/health")
@cached
def health():
    return "ok"
`)

	require.Len(t, fa.Functions, 1)
	assert.Len(t, fa.Functions[0].Decorators, 2)
}

func TestParseGoFile(t *testing.T) {
	t.Parallel()

	fa := parseSource(t, "pkg/server.go", `package server

import (
	"fmt"
	nethttp "net/http"
)

const MaxConns = 64

type Server struct {
	addr string
}

func (s *Server) Serve() error {
	if s.addr == "" {
		return fmt.Errorf("no addr")
	}
	return nil
}

func New(addr string) *Server {
	return &Server{addr: addr}
}

func helper() {}
`)

	assert.Equal(t, "go", fa.Language)
	require.Len(t, fa.Imports, 2)
	assert.Equal(t, "fmt", fa.Imports[0].Module)
	assert.Equal(t, "net/http", fa.Imports[1].Module)
	assert.Equal(t, "nethttp", fa.Imports[1].Alias)

	require.Len(t, fa.Constants, 1)
	assert.Equal(t, "MaxConns", fa.Constants[0].Name)

	// Serve attaches to the Server type; New and helper stay free.
	require.Len(t, fa.Classes, 1)
	assert.Equal(t, "Server", fa.Classes[0].Name)
	require.Len(t, fa.Classes[0].Methods, 1)
	assert.Equal(t, "Serve", fa.Classes[0].Methods[0].Name)
	assert.Equal(t, 2, fa.Classes[0].Methods[0].Complexity)

	names := make([]string, 0, len(fa.Functions))
	for _, fn := range fa.Functions {
		names = append(names, fn.Name)
	}
	assert.ElementsMatch(t, []string{"New", "helper"}, names)

	assert.False(t, IsPrivate("go", "New"))
	assert.True(t, IsPrivate("go", "helper"))
}

func TestParseGoGroupedTypeDeclaration(t *testing.T) {
	t.Parallel()

	fa := parseSource(t, "pkg/model.go", `package model

type (
	Account struct {
		ID string
	}
	Ledger struct {
		entries []string
	}
)

func (l *Ledger) Add(entry string) {
	l.entries = append(l.entries, entry)
}
`)

	// A grouped declaration yields one class per spec, and methods still
	// attach to their receiver type.
	require.Len(t, fa.Classes, 2)
	assert.Equal(t, "Account", fa.Classes[0].Name)
	assert.Equal(t, 4, fa.Classes[0].StartLine)
	assert.Equal(t, "Ledger", fa.Classes[1].Name)
	assert.Equal(t, 7, fa.Classes[1].StartLine)
	require.Len(t, fa.Classes[1].Methods, 1)
	assert.Equal(t, "Add", fa.Classes[1].Methods[0].Name)
	assert.Empty(t, fa.Classes[0].Methods)
}

func TestParseJavaScript(t *testing.T) {
	t.Parallel()

	fa := parseSource(t, "web/app.js", `import { render } from "./view";
import fs from "fs";

const LIMIT = 10;

export function update(state, action = null) {
  if (action && state.dirty) {
    render(state);
  }
  return state;
}

class Widget extends Base {
  draw() {
    return null;
  }
}
`)

	require.Len(t, fa.Imports, 2)
	assert.Equal(t, "view", fa.Imports[0].Module)
	assert.Equal(t, 1, fa.Imports[0].RelativeDepth)
	assert.Equal(t, []string{"render"}, fa.Imports[0].Names)
	assert.Equal(t, "fs", fa.Imports[1].Module)
	assert.Equal(t, 0, fa.Imports[1].RelativeDepth)

	require.Len(t, fa.Constants, 1)
	assert.Equal(t, "LIMIT", fa.Constants[0].Name)

	require.Len(t, fa.Functions, 1)
	update := fa.Functions[0]
	assert.Equal(t, "update", update.Name)
	require.Len(t, update.Params, 2)
	assert.Equal(t, "null", update.Params[1].Default)
	// 1 + if + &&
	assert.Equal(t, 3, update.Complexity)

	require.Len(t, fa.Classes, 1)
	assert.Equal(t, []string{"Base"}, fa.Classes[0].Bases)
}

func TestParseMalformedSourceReturnsPartial(t *testing.T) {
	t.Parallel()

	_, err := NewParser().Parse(context.Background(), "bad.py", []byte(`
def ok():
    return 1

def broken(:
`))
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "bad.py", perr.Path)
	require.NotNil(t, perr.Partial)
	// Everything before the error is still extracted.
	names := make([]string, 0, len(perr.Partial.Functions))
	for _, fn := range perr.Partial.Functions {
		names = append(names, fn.Name)
	}
	assert.Contains(t, names, "ok")
}

func TestParseUnsupportedFile(t *testing.T) {
	t.Parallel()

	_, err := NewParser().Parse(context.Background(), "notes.txt", []byte("hello"))
	assert.Error(t, err)
}

func TestLineCounts(t *testing.T) {
	t.Parallel()

	fa := parseSource(t, "m.py", `# leading comment

X = 1
# trailing
`)
	assert.Equal(t, 5, fa.Lines.Total)
	assert.Equal(t, 2, fa.Lines.Comment)
	assert.Equal(t, 2, fa.Lines.Blank)
}
