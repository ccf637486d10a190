package cli

import (
	"github.com/spf13/cobra"
)

// GraphOptions holds flags for the graph command.
type GraphOptions struct {
	*RootOptions
	Config string
}

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GraphOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "graph <catalogue-dir>",
		Short: "Print the resolved dependency graph in DOT format",
		Long: `Resolve a configuration and write the resulting dependency graph to
stdout in Graphviz DOT format. Edges point from provider to consumer.

Examples:
  depres graph ./catalogue --config scan.yaml | dot -Tpng > graph.png`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// DOT goes to stdout; errors and verbose output go to stderr
			formatter := newFormatter(opts.RootOptions, cmd.ErrOrStderr(), cmd.ErrOrStderr())
			res, err := resolveOnce(formatter, args[0], opts.Config)
			if err != nil {
				return err
			}
			return res.Graph.WriteDOT(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "resolution config file (YAML)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}
