// Package cli implements the bomgraph command line interface on cobra.
// Every data command prints the operation's result envelope; exit codes
// separate operation failures (1) from command errors (2).
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	DBPath     string
	ConfigPath string
	Format     string // "json" | "text"
	Verbose    bool

	config Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the bomgraph CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "bomgraph",
		Short: "BOM graph engine",
		Long: `bomgraph manages hierarchical bill-of-materials graphs: a part catalog,
a cycle-free parent/child relationship set, multiplicative attribute
rollups, content-addressed snapshots and snapshot diffs.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(opts.ConfigPath)
			if err != nil {
				return NewExitError(ExitCommandError, err.Error())
			}
			opts.config = cfg

			if !cmd.Flags().Changed("format") && cfg.Format != "" {
				opts.Format = cfg.Format
			}
			if !cmd.Flags().Changed("db") && cfg.DB != "" {
				opts.DBPath = cfg.DB
			}
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			logLevel := slog.LevelWarn
			if opts.Verbose {
				logLevel = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: logLevel,
			})))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "bomgraph.db", "path to SQLite database")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewPartCommand(opts))
	cmd.AddCommand(NewRelCommand(opts))
	cmd.AddCommand(NewTreeCommand(opts))
	cmd.AddCommand(NewRollupCommand(opts))
	cmd.AddCommand(NewWeightCommand(opts))
	cmd.AddCommand(NewSnapshotCommand(opts))
	cmd.AddCommand(NewDiffCommand(opts))
	cmd.AddCommand(NewCSVCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
