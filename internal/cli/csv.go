package cli

import (
	"github.com/spf13/cobra"
)

// NewCSVCommand creates the csv command group.
func NewCSVCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Import and export parts and relationships as CSV",
	}
	cmd.AddCommand(newCSVImportPartsCommand(rootOpts))
	cmd.AddCommand(newCSVImportRelsCommand(rootOpts))
	cmd.AddCommand(newCSVExportPartsCommand(rootOpts))
	cmd.AddCommand(newCSVExportRelsCommand(rootOpts))
	return cmd
}

func newCSVImportPartsCommand(rootOpts *RootOptions) *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "import-parts <file>",
		Short: "Import parts from a CSV file",
		Long: `Import parts from a CSV file. Required columns: part_number, name.
Optional: last_updated, attributes_json, and free attribute columns
(an attr__ prefix is stripped from the key). Rows that fail validation
are reported and skipped.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			res := a.csv.ImportPartsCSV(cmd.Context(), args[0], !replace)
			return formatterFor(rootOpts, cmd).Emit(res)
		},
	}
	cmd.Flags().BoolVar(&replace, "replace-attrs", false, "replace attributes instead of merging")
	return cmd
}

func newCSVImportRelsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		allowDangling bool
		replace       bool
	)
	cmd := &cobra.Command{
		Use:   "import-rels <file>",
		Short: "Import relationships from a CSV file",
		Long: `Import relationships from a CSV file. Required columns:
parent_part_number, child_part_number, qty. Optional: rel_id,
last_updated, attributes_json, and free attribute columns. Every row
passes full validation including cycle detection.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			res := a.csv.ImportRelationshipsCSV(cmd.Context(), args[0], allowDangling, !replace)
			return formatterFor(rootOpts, cmd).Emit(res)
		},
	}
	cmd.Flags().BoolVar(&allowDangling, "allow-dangling", false, "allow endpoints missing from the catalog")
	cmd.Flags().BoolVar(&replace, "replace-attrs", false, "replace attributes instead of merging")
	return cmd
}

func newCSVExportPartsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		attrColumns []string
		noJSON      bool
	)
	cmd := &cobra.Command{
		Use:           "export-parts <file>",
		Short:         "Export all parts to a CSV file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			res := a.csv.ExportPartsCSV(cmd.Context(), args[0], attrColumns, !noJSON)
			return formatterFor(rootOpts, cmd).Emit(res)
		},
	}
	cmd.Flags().StringSliceVar(&attrColumns, "attr-columns", nil, "attribute keys exported as dedicated columns")
	cmd.Flags().BoolVar(&noJSON, "no-attributes-json", false, "omit the attributes_json column")
	return cmd
}

func newCSVExportRelsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		attrColumns []string
		noJSON      bool
	)
	cmd := &cobra.Command{
		Use:           "export-rels <file>",
		Short:         "Export all relationships to a CSV file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			res := a.csv.ExportRelationshipsCSV(cmd.Context(), args[0], attrColumns, !noJSON)
			return formatterFor(rootOpts, cmd).Emit(res)
		},
	}
	cmd.Flags().StringSliceVar(&attrColumns, "attr-columns", nil, "attribute keys exported as dedicated columns")
	cmd.Flags().BoolVar(&noJSON, "no-attributes-json", false, "omit the attributes_json column")
	return cmd
}
