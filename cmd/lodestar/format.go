package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jpaulson/lodestar"
)

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	switch format {
	case "json", "text":
		return nil
	default:
		return fmt.Errorf("invalid format %q: must be json or text", format)
	}
}

// output writes v to stdout in the selected format, using text for the
// provided formatter.
func output[T any](v T, text func(io.Writer, T)) error {
	if flagFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(os.Stdout, v)
	return nil
}

func formatCandidatesText(w io.Writer, candidates []lodestar.Candidate) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tQUALIFIED NAME\tKIND\tFILE\tLINE")
	for _, c := range candidates {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			c.Rank, c.Symbol.QualifiedName, c.Symbol.Kind, c.Symbol.File, c.Symbol.StartLine)
	}
	tw.Flush()
}

func formatLocationsText(w io.Writer, locs []lodestar.Location) {
	for _, loc := range locs {
		fmt.Fprintf(w, "%s:%d\t%s\n", loc.File, loc.Line, loc.Kind)
	}
}

func formatSymbolsText(w io.Writer, syms []*lodestar.Symbol) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tQUALIFIED NAME\tFILE\tLINE")
	for _, s := range syms {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			s.Name, s.Kind, s.QualifiedName, s.File, s.StartLine)
	}
	tw.Flush()
}

func formatHoverText(w io.Writer, info lodestar.HoverInfo) {
	fmt.Fprintf(w, "%s (%s)\n", info.QualifiedName, info.Kind)
	if info.Signature != "" {
		fmt.Fprintf(w, "  %s\n", info.Signature)
	}
	if info.Docstring != "" {
		fmt.Fprintf(w, "\n%s\n", indent(info.Docstring, "  "))
	}
	fmt.Fprintf(w, "\nDefined in %s:%d-%d\n", info.File, info.StartLine, info.EndLine)
	if info.Stale {
		fmt.Fprintln(w, "(stale: the file failed to parse after its last change)")
	}
}

func formatCallGraphText(w io.Writer, graph lodestar.CallGraph) {
	fmt.Fprintf(w, "\nCall graph from %s (depth %d):\n", graph.Root, graph.Depth)
	for _, node := range graph.Nodes {
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", node.Depth), node.Symbol.QualifiedName)
	}
}

func formatStructureText(w io.Writer, s lodestar.Structure) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODULE\tLANGUAGE\tFILE\tLOC\tAVG CX\tDOC %")
	for _, m := range s.Modules {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.1f\t%.0f\n",
			m.Path, m.Language, m.File, m.Metrics.LOC,
			m.Metrics.AvgComplexity, m.Metrics.DocstringCoverage*100)
	}
	tw.Flush()

	if len(s.DependencyEdges) > 0 {
		fmt.Fprintln(w, "\nDependencies:")
		for _, e := range s.DependencyEdges {
			fmt.Fprintf(w, "  %s -> %s\n", e.From, e.To)
		}
	}
	if len(s.Cycles) > 0 {
		fmt.Fprintln(w, "\nImport cycles:")
		for _, cycle := range s.Cycles {
			fmt.Fprintf(w, "  %s\n", strings.Join(cycle, " -> "))
		}
	}
}

func formatStatsText(w io.Writer, stats lodestar.IndexStats) {
	fmt.Fprintf(w, "Indexed %d files, %d modules, %d symbols, %d relationships in %s\n",
		stats.Files, stats.Modules, stats.Symbols, stats.Relationships, stats.Duration.Round(time.Millisecond))
	printFileErrors(w, stats.Errors)
}

func formatStatusText(w io.Writer, summary lodestar.ChangeSummary) {
	if summary.Clean() {
		fmt.Fprintln(w, "Index is up to date")
		return
	}
	for _, f := range summary.Added {
		fmt.Fprintf(w, "  + %s\n", f)
	}
	for _, f := range summary.Modified {
		fmt.Fprintf(w, "  ~ %s\n", f)
	}
	for _, f := range summary.Deleted {
		fmt.Fprintf(w, "  - %s\n", f)
	}
}

func formatReportText(w io.Writer, report lodestar.UpdateReport) {
	fmt.Fprintf(w, "Updated %d files, deleted %d in %s\n",
		len(report.UpdatedFiles), len(report.DeletedFiles), report.Duration.Round(time.Millisecond))
	for _, f := range report.UpdatedFiles {
		fmt.Fprintf(w, "  ~ %s\n", f)
	}
	for _, f := range report.DeletedFiles {
		fmt.Fprintf(w, "  - %s\n", f)
	}
	printFileErrors(w, report.Errors)
}

func printFileErrors(w io.Writer, errs []lodestar.FileError) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintf(w, "%d files had errors:\n", len(errs))
	for _, e := range errs {
		fmt.Fprintf(w, "  ! %s: %s\n", e.File, e.Message)
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
