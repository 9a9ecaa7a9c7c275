package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bomgraph/bomgraph/internal/engine"
)

// NewRelCommand creates the rel command group.
func NewRelCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rel",
		Short: "Manage parent/child relationships",
	}
	cmd.AddCommand(newRelAddCommand(rootOpts))
	cmd.AddCommand(newRelDeleteCommand(rootOpts))
	cmd.AddCommand(newRelChildrenCommand(rootOpts))
	cmd.AddCommand(newRelParentsCommand(rootOpts))
	return cmd
}

func newRelAddCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		qtyText       string
		relID         string
		attrsJSON     string
		allowDangling bool
		replace       bool
	)
	cmd := &cobra.Command{
		Use:   "add <parent> <child>",
		Short: "Add or update a relationship",
		Long: `Add a directed parent/child relationship, or update it when --rel-id
names an existing one. A mutation that would create a cycle is rejected
and the graph is left untouched.

Example:
  bomgraph rel add ASSY-100 BOLT-M6 --qty 8`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.ParseFloat(qtyText, 64)
			if err != nil {
				return NewExitError(ExitCommandError, "--qty must be numeric")
			}
			attributes, err := parseAttrsFlag(attrsJSON)
			if err != nil {
				return err
			}
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.structure.AddOrUpdateRelationship(cmd.Context(), engine.RelationshipInput{
				ParentPartNumber: args[0],
				ChildPartNumber:  args[1],
				Qty:              qty,
				RelID:            relID,
				Attributes:       attributes,
				AllowDangling:    allowDangling,
				MergeAttributes:  !replace,
			})
			return formatterFor(rootOpts, cmd).Emit(res)
		},
	}
	cmd.Flags().StringVar(&qtyText, "qty", "", "quantity of child per parent (required, > 0)")
	cmd.Flags().StringVar(&relID, "rel-id", "", "relationship id; empty generates one")
	cmd.Flags().StringVar(&attrsJSON, "attrs", "", "attributes as a JSON object")
	cmd.Flags().BoolVar(&allowDangling, "allow-dangling", false, "allow endpoints missing from the catalog")
	cmd.Flags().BoolVar(&replace, "replace-attrs", false, "replace attributes instead of merging")
	_ = cmd.MarkFlagRequired("qty")
	return cmd
}

func newRelDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "delete <rel-id>",
		Short:         "Delete a relationship",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			return formatterFor(rootOpts, cmd).Emit(a.structure.DeleteRelationship(cmd.Context(), args[0]))
		},
	}
	return cmd
}

func newRelChildrenCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "children <part-number>",
		Short:         "List direct children of a part",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			return formatterFor(rootOpts, cmd).Emit(a.structure.GetChildren(cmd.Context(), args[0]))
		},
	}
	return cmd
}

func newRelParentsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "parents <part-number>",
		Short:         "List direct parents of a part (where-used)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			return formatterFor(rootOpts, cmd).Emit(a.structure.GetParents(cmd.Context(), args[0]))
		},
	}
	return cmd
}
