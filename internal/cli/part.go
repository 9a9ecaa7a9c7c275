package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bomgraph/bomgraph/internal/catalog"
)

// NewPartCommand creates the part command group.
func NewPartCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "part",
		Short: "Manage the part catalog",
	}
	cmd.AddCommand(newPartAddCommand(rootOpts))
	cmd.AddCommand(newPartGetCommand(rootOpts))
	cmd.AddCommand(newPartListCommand(rootOpts))
	cmd.AddCommand(newPartSetAttrsCommand(rootOpts))
	cmd.AddCommand(newPartDeleteCommand(rootOpts))
	return cmd
}

func newPartAddCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		name      string
		attrsJSON string
		replace   bool
	)
	cmd := &cobra.Command{
		Use:   "add <part-number>",
		Short: "Add or update a part",
		Long: `Add a part to the catalog, or update it if the part number exists.

Attributes are given as a JSON object. Updates merge attributes by
default; --replace-attrs swaps the whole attribute map instead.

Example:
  bomgraph part add BOLT-M6 --name "M6 bolt" --attrs '{"unit_weight": 0.012}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			attributes, err := parseAttrsFlag(attrsJSON)
			if err != nil {
				return err
			}
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.catalog.AddOrUpdatePart(cmd.Context(), catalog.PartInput{
				PartNumber:      args[0],
				Name:            name,
				Attributes:      attributes,
				MergeAttributes: !replace,
			})
			return formatterFor(rootOpts, cmd).Emit(res)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "part display name (required)")
	cmd.Flags().StringVar(&attrsJSON, "attrs", "", "attributes as a JSON object")
	cmd.Flags().BoolVar(&replace, "replace-attrs", false, "replace attributes instead of merging")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newPartGetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "get <part-number>",
		Short:         "Show one part",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			return formatterFor(rootOpts, cmd).Emit(a.catalog.GetPart(cmd.Context(), args[0]))
		},
	}
	return cmd
}

func newPartListCommand(rootOpts *RootOptions) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List parts, optionally filtered",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			return formatterFor(rootOpts, cmd).Emit(a.catalog.ListParts(cmd.Context(), query))
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "case-insensitive filter over part number and name")
	return cmd
}

func newPartSetAttrsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		attrsJSON string
		replace   bool
	)
	cmd := &cobra.Command{
		Use:           "set-attrs <part-number>",
		Short:         "Update a part's attributes",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			attributes, err := parseAttrsFlag(attrsJSON)
			if err != nil {
				return err
			}
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			res := a.catalog.UpdateAttributes(cmd.Context(), args[0], attributes, !replace)
			return formatterFor(rootOpts, cmd).Emit(res)
		},
	}
	cmd.Flags().StringVar(&attrsJSON, "attrs", "", "attributes as a JSON object (required)")
	cmd.Flags().BoolVar(&replace, "replace-attrs", false, "replace attributes instead of merging")
	_ = cmd.MarkFlagRequired("attrs")
	return cmd
}

func newPartDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <part-number>",
		Short: "Delete a part",
		Long: `Delete a part from the catalog.

A part still referenced by relationships is protected; --force deletes it
anyway and leaves those relationships dangling.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			res := a.catalog.DeletePart(cmd.Context(), args[0], force)
			return formatterFor(rootOpts, cmd).Emit(res)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "delete even when relationships reference the part")
	return cmd
}

// parseAttrsFlag decodes an --attrs JSON object. Numbers decode as
// json.Number so the literal spelling flows into canonical hashing.
func parseAttrsFlag(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.UseNumber()
	var attributes map[string]any
	if err := decoder.Decode(&attributes); err != nil {
		return nil, WrapExitError(ExitCommandError, "parsing --attrs", err)
	}
	return attributes, nil
}
