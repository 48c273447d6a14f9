package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpaulson/lodestar"
)

var flagLanguages string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Run a full scan of the project",
	Long:  "Parses every indexable file under the project root, builds the symbol table and dependency graph, and persists the index.",
	Args:  cobra.NoArgs,
	RunE:  runIndex,
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Run one incremental update cycle",
	Long:  "Diffs the project tree against the cached fingerprints and reanalyzes only changed files and the importers affected by public API changes.",
	Args:  cobra.NoArgs,
	RunE:  runUpdate,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the project and update continuously",
	Long:  "Runs an initial full scan, then watches the tree and applies debounced incremental updates until interrupted.",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report pending changes without opening the index",
	Long:  "Diffs the project tree against the file cache's fingerprints and lists added, modified, and deleted files. Reads only filecache.json, never the database.",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	indexCmd.Flags().StringVar(&flagLanguages, "languages", "", "comma-separated language filter (e.g. python,go)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	var opts []lodestar.Option
	if flagLanguages != "" {
		opts = append(opts, lodestar.WithLanguages(strings.Split(flagLanguages, ",")...))
	}
	logger := indexLogger()
	opts = append(opts, lodestar.WithLogger(logger))

	ix, err := lodestar.Open(flagRoot, opts...)
	if err != nil {
		return err
	}
	defer ix.Close()

	stats, err := ix.IndexDirectory(cmd.Context())
	if err != nil {
		return err
	}
	return output(*stats, formatStatsText)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ix, err := openIndex()
	if err != nil {
		return err
	}
	defer ix.Close()

	report, err := ix.UpdateIncrementally(cmd.Context())
	if err != nil {
		return err
	}
	return output(*report, formatReportText)
}

func runStatus(cmd *cobra.Command, args []string) error {
	summary, err := lodestar.Status(flagRoot, lodestar.WithLogger(indexLogger()))
	if err != nil {
		return err
	}
	return output(*summary, formatStatusText)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ix, err := openIndex()
	if err != nil {
		return err
	}
	defer ix.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := ix.IndexDirectory(ctx); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "watching %s\n", ix.Root())

	return ix.Watch(ctx, func(report *lodestar.UpdateReport) {
		if len(report.UpdatedFiles) == 0 && len(report.DeletedFiles) == 0 {
			return
		}
		if err := output(*report, formatReportText); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
	})
}
