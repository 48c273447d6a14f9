package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpaulson/lodestar"
	"github.com/jpaulson/lodestar/internal/slogutil"
)

var (
	flagRoot     string
	flagFormat   string
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "lodestar",
	Short:         "Semantic code index with incremental updates",
	Long:          "Lodestar indexes Python, Go, and JavaScript projects with tree-sitter and answers go-to-definition, find-references, symbol search, and hover queries, reanalyzing only the files a change affects.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", ".", "project root to index")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "log level: debug|info|warn|error")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(defCmd)
	rootCmd.AddCommand(refsCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(hoverCmd)
	rootCmd.AddCommand(structureCmd)
}

// indexLogger builds the stderr logger at the requested level.
func indexLogger() *slog.Logger {
	return slogutil.NewLogger(os.Stderr, slogutil.LevelFromString(flagLogLevel))
}

// openIndex opens the index for the --root project.
func openIndex() (*lodestar.Index, error) {
	return lodestar.Open(flagRoot, lodestar.WithLogger(indexLogger()))
}
