package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bomgraph/bomgraph/internal/catalog"
	"github.com/bomgraph/bomgraph/internal/clock"
	"github.com/bomgraph/bomgraph/internal/csvio"
	"github.com/bomgraph/bomgraph/internal/engine"
	"github.com/bomgraph/bomgraph/internal/store"
)

// app wires the store and every service behind one database handle.
type app struct {
	store     *store.Store
	catalog   *catalog.Service
	structure *engine.StructureEngine
	rollup    *engine.RollupEngine
	snapshot  *engine.SnapshotEngine
	diff      *engine.DiffEngine
	csv       *csvio.Service
}

// openApp opens the database and wires the services. Callers must Close.
func openApp(opts *RootOptions) (*app, error) {
	slog.Debug("opening database", "path", opts.DBPath)
	st, err := store.Open(opts.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	clk := clock.System{}
	ids := engine.UUIDSource{}

	cat := catalog.NewService(st, clk)
	structure := engine.NewStructureEngine(st, clk, ids)
	return &app{
		store:     st,
		catalog:   cat,
		structure: structure,
		rollup:    engine.NewRollupEngine(st),
		snapshot:  engine.NewSnapshotEngine(st, st, structure, clk, ids),
		diff:      engine.NewDiffEngine(st),
		csv:       csvio.NewService(cat, structure, st),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// formatterFor builds the output formatter for a command invocation.
func formatterFor(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
