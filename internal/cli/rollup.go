package cli

import (
	"github.com/spf13/cobra"

	"github.com/bomgraph/bomgraph/internal/engine"
)

// NewRollupCommand creates the rollup command.
func NewRollupCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		attributeKey string
		includeRoot  bool
	)
	cmd := &cobra.Command{
		Use:   "rollup <root-part-number>",
		Short: "Sum a numeric attribute over a subtree",
		Long: `Sum a numeric part attribute over every path from the root, each
contribution multiplied by the product of relationship quantities along
its path. Parts missing the attribute are skipped with a warning.

The root part's own value is included; pass --include-root=false for
children only.

Example:
  bomgraph rollup ASSY-100 --key cost`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			res := a.rollup.RollupNumericAttribute(cmd.Context(), args[0], attributeKey, includeRoot)
			return formatterFor(rootOpts, cmd).Emit(res)
		},
	}
	cmd.Flags().StringVar(&attributeKey, "key", "", "attribute key to sum (required)")
	cmd.Flags().BoolVar(&includeRoot, "include-root", true, "include the root part's own value")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

// NewWeightCommand creates the weight command.
func NewWeightCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		unitWeightKey string
		maturityKey   string
		defaultFactor float64
		includeRoot   bool
		topN          int
	)
	cmd := &cobra.Command{
		Use:   "weight <root-part-number>",
		Short: "Roll up effective weight with maturity factors",
		Long: `Compute effective weight over the subtree. A part that carries a unit
weight overrides its subtree: its children are not traversed on that
path. Each unit weight is scaled by the part's maturity factor (or the
default) and by the path quantity multiplier.

Flag defaults come from the weight section of the config file.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			weight := rootOpts.config.Weight
			if !cmd.Flags().Changed("unit-weight-key") {
				unitWeightKey = weight.UnitWeightKey
			}
			if !cmd.Flags().Changed("maturity-key") {
				maturityKey = weight.MaturityFactorKey
			}
			if !cmd.Flags().Changed("default-factor") {
				defaultFactor = weight.DefaultMaturityFactor
			}
			if !cmd.Flags().Changed("top-n") {
				topN = weight.TopN
			}

			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.rollup.RollupWeightWithMaturity(cmd.Context(), engine.WeightRollupInput{
				RootPartNumber:        args[0],
				UnitWeightKey:         unitWeightKey,
				MaturityFactorKey:     maturityKey,
				DefaultMaturityFactor: defaultFactor,
				IncludeRoot:           includeRoot,
				TopN:                  topN,
			})
			return formatterFor(rootOpts, cmd).Emit(res)
		},
	}
	cmd.Flags().StringVar(&unitWeightKey, "unit-weight-key", engine.DefaultUnitWeightKey, "attribute key holding unit weight")
	cmd.Flags().StringVar(&maturityKey, "maturity-key", engine.DefaultMaturityFactorKey, "attribute key holding the maturity factor")
	cmd.Flags().Float64Var(&defaultFactor, "default-factor", 1.0, "maturity factor for parts without one")
	cmd.Flags().BoolVar(&includeRoot, "include-root", true, "include the root part's own weight")
	cmd.Flags().IntVar(&topN, "top-n", engine.DefaultWeightTopN, "number of top contributors to report")
	return cmd
}
