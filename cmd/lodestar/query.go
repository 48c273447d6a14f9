package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jpaulson/lodestar"
	"github.com/jpaulson/lodestar/internal/symtab"
)

var (
	flagKind  string
	flagLimit int
	flagDepth int
)

var defCmd = &cobra.Command{
	Use:   "def IDENTIFIER FILE LINE",
	Short: "Go to definition",
	Long:  "Resolves an identifier as written at FILE:LINE and prints ranked definition candidates. No candidates means the name is external or unresolved, not an error.",
	Args:  cobra.ExactArgs(3),
	RunE:  runDef,
}

var refsCmd = &cobra.Command{
	Use:   "refs QUALIFIED_NAME",
	Short: "Find references to a symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runRefs,
}

var searchCmd = &cobra.Command{
	Use:   "search PREFIX",
	Short: "Search symbols by name prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var hoverCmd = &cobra.Command{
	Use:   "hover QUALIFIED_NAME",
	Short: "Show a symbol's signature and docstring",
	Args:  cobra.ExactArgs(1),
	RunE:  runHover,
}

var structureCmd = &cobra.Command{
	Use:   "structure",
	Short: "Show modules, dependency edges, and import cycles",
	Args:  cobra.NoArgs,
	RunE:  runStructure,
}

func init() {
	searchCmd.Flags().StringVar(&flagKind, "kind", "", "filter by kind: module|class|function|variable|constant")
	searchCmd.Flags().IntVar(&flagLimit, "limit", 0, "maximum results (default 100)")
	hoverCmd.Flags().IntVar(&flagDepth, "call-depth", 0, "also print the call graph to this depth")
}

func runDef(cmd *cobra.Command, args []string) error {
	line, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("LINE must be an integer: %w", err)
	}
	ix, err := openIndex()
	if err != nil {
		return err
	}
	defer ix.Close()

	candidates := ix.GoToDefinition(args[0], args[1], line)
	return output(candidates, formatCandidatesText)
}

func runRefs(cmd *cobra.Command, args []string) error {
	ix, err := openIndex()
	if err != nil {
		return err
	}
	defer ix.Close()

	refs := ix.FindReferences(args[0])
	return output(refs, formatLocationsText)
}

func runSearch(cmd *cobra.Command, args []string) error {
	kind := lodestar.KindAny
	if flagKind != "" {
		k, ok := symtab.KindFromString(flagKind)
		if !ok {
			return fmt.Errorf("unknown kind %q", flagKind)
		}
		kind = k
	}
	ix, err := openIndex()
	if err != nil {
		return err
	}
	defer ix.Close()

	syms := ix.SearchSymbols(args[0], kind, flagLimit)
	return output(syms, formatSymbolsText)
}

func runHover(cmd *cobra.Command, args []string) error {
	ix, err := openIndex()
	if err != nil {
		return err
	}
	defer ix.Close()

	sym := ix.SymbolByQualifiedName(args[0])
	if sym == nil {
		return fmt.Errorf("symbol %q not found", args[0])
	}
	info, _ := ix.Hover(sym.ID)
	if err := output(*info, formatHoverText); err != nil {
		return err
	}
	if flagDepth > 0 {
		if graph := ix.CallGraph(sym.ID, flagDepth); graph != nil {
			return output(*graph, formatCallGraphText)
		}
	}
	return nil
}

func runStructure(cmd *cobra.Command, args []string) error {
	ix, err := openIndex()
	if err != nil {
		return err
	}
	defer ix.Close()

	return output(*ix.ProjectStructure(), formatStructureText)
}
