package cli

import (
	"github.com/spf13/cobra"
)

// NewSnapshotCommand creates the snapshot command group.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Create and inspect immutable BOM snapshots",
	}
	cmd.AddCommand(newSnapshotCreateCommand(rootOpts))
	cmd.AddCommand(newSnapshotGetCommand(rootOpts))
	cmd.AddCommand(newSnapshotListCommand(rootOpts))
	return cmd
}

func newSnapshotCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		label    string
		noDedupe bool
	)
	cmd := &cobra.Command{
		Use:   "create <root-part-number>",
		Short: "Freeze the subgraph under a root",
		Long: `Freeze the subgraph under a root into an immutable snapshot. Content is
hashed into a signature; creating a snapshot identical to an existing one
for the same root returns the existing snapshot instead of storing a
duplicate. Pass --no-dedupe to store a new record anyway.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			res := a.snapshot.CreateSnapshot(cmd.Context(), args[0], label, !noDedupe)
			return formatterFor(rootOpts, cmd).Emit(res)
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "free-form snapshot label")
	cmd.Flags().BoolVar(&noDedupe, "no-dedupe", false, "store a new snapshot even when identical content already exists")
	return cmd
}

func newSnapshotGetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "get <snapshot-id>",
		Short:         "Show one snapshot with its frozen content",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			return formatterFor(rootOpts, cmd).Emit(a.snapshot.GetSnapshot(cmd.Context(), args[0]))
		},
	}
	return cmd
}

func newSnapshotListCommand(rootOpts *RootOptions) *cobra.Command {
	var root string
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List snapshot summaries, oldest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			return formatterFor(rootOpts, cmd).Emit(a.snapshot.ListSnapshots(cmd.Context(), root))
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "filter to snapshots of one root part")
	return cmd
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <snapshot-a> <snapshot-b>",
		Short: "Compare two snapshots",
		Long: `Diff snapshot A against snapshot B. Added means present only in B,
removed means present only in A; modified entries carry per-field
before/after pairs and a decomposed attribute diff.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			return formatterFor(rootOpts, cmd).Emit(a.diff.CompareSnapshots(cmd.Context(), args[0], args[1]))
		},
	}
	return cmd
}
