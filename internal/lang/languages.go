package lang

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
)

// extToLanguage maps file extensions to canonical language names.
var extToLanguage = map[string]string{
	".py":  "python",
	".go":  "go",
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
}

var (
	grammars     map[string]*sitter.Language
	grammarsOnce sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		grammars = map[string]*sitter.Language{
			"python":     python.GetLanguage(),
			"go":         golang.GetLanguage(),
			"javascript": javascript.GetLanguage(),
		}
	})
}

// LanguageForFile returns the canonical language name for a file path
// based on its extension. Returns ("", false) for unsupported files.
func LanguageForFile(path string) (string, bool) {
	lang, ok := extToLanguage[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// Supported reports whether lodestar can parse the given file.
func Supported(path string) bool {
	_, ok := LanguageForFile(path)
	return ok
}

// languageSpec binds a grammar to the extraction hooks the generic
// visitor needs. classify maps raw tree-sitter node types onto the
// closed NodeKind set; the extract* hooks pull structured facts out of
// the nodes classify flagged.
type languageSpec struct {
	name          string
	commentPrefix string

	// decisionTypes are node types that add one to cyclomatic
	// complexity. Boolean operators are handled separately because the
	// same node type covers arithmetic in several grammars.
	decisionTypes map[string]bool

	classify      func(n *sitter.Node) NodeKind
	extractImport func(n *sitter.Node, src []byte) []Import
	extractFunc   func(n *sitter.Node, src []byte) (Function, bool)
	extractClass  func(n *sitter.Node, src []byte) []Class // every class-like declaration in the node; Go groups specs
	extractConst   func(n *sitter.Node, src []byte) []Constant
	callName       func(n *sitter.Node, src []byte) (string, bool)
	isBooleanOp    func(n *sitter.Node, src []byte) bool
	isPrivateName  func(name string) bool
	methodOwner    func(n *sitter.Node, src []byte) (string, bool) // for languages with detached methods (Go receivers)
}

var specs = map[string]*languageSpec{}

func registerSpec(s *languageSpec) { specs[s.name] = s }

func specFor(language string) (*languageSpec, bool) {
	s, ok := specs[language]
	return s, ok
}

// nodeText returns the source text covered by n.
func nodeText(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return string(src[n.StartByte():n.EndByte()])
}

// line returns the 1-indexed start line of n.
func line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// endLine returns the 1-indexed end line of n.
func endLine(n *sitter.Node) int {
	return int(n.EndPoint().Row) + 1
}
