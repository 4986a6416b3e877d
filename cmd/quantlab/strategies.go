package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/newthinker/quantlab/internal/strategy/builtin"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List available strategies",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		engine := builtin.NewEngine(nil)
		descriptions := engine.Describe()

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tDESCRIPTION")
		for _, name := range engine.Names() {
			fmt.Fprintf(tw, "%s\t%s\n", name, descriptions[name])
		}
		tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}
