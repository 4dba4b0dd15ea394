package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"resourcegraph/internal/seed"
)

var urlCmd = &cobra.Command{
	Use:     "url",
	Short:   "Print the graph link for a kind or a set of resources",
	GroupID: "graph",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		resources, _ := cmd.Flags().GetStringArray("resource")
		expanded, _ := cmd.Flags().GetString("expanded")
		base, _ := cmd.Flags().GetString("base")

		params, err := graphParams(kind, resources, expanded)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), seed.BuildGraphURL(params, base))
		return err
	},
}

func init() {
	urlCmd.Flags().String("kind", "", "kind token (connector, metrics, models, sources, dashboards)")
	urlCmd.Flags().StringArray("resource", nil, "seed resource, e.g. model:orders (repeatable)")
	urlCmd.Flags().String("expanded", "", "expanded group")
	urlCmd.Flags().String("base", seed.DefaultBasePath, "base path of the link")
}
