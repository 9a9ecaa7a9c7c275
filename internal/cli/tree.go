package cli

import (
	"github.com/spf13/cobra"
)

// NewTreeCommand creates the tree command.
func NewTreeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree <root-part-number>",
		Short: "Show the full subgraph under a root",
		Long: `List every part and relationship reachable from the root by following
child edges. Convergent paths list each part and relationship once.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			return formatterFor(rootOpts, cmd).Emit(a.structure.GetSubgraph(cmd.Context(), args[0]))
		},
	}
	return cmd
}
