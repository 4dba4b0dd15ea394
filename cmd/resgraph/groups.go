package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"resourcegraph/internal/partition"
	"resourcegraph/internal/service"
)

var groupsCmd = &cobra.Command{
	Use:     "groups <snapshot>",
	Short:   "Partition a snapshot into connected groups",
	GroupID: "graph",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		resources, _ := cmd.Flags().GetStringArray("resource")
		expanded, _ := cmd.Flags().GetString("expanded")
		mode, _ := cmd.Flags().GetString("mode")

		params, err := graphParams(kind, resources, expanded)
		if err != nil {
			return err
		}

		svc, err := snapshotService(cmd, args[0])
		if err != nil {
			return err
		}
		res, err := svc.Groups(service.GroupQuery{Mode: mode, Params: params})
		if err != nil {
			return fmt.Errorf("partitioning: %w", err)
		}
		return printOutput(cmd.OutOrStdout(), outputFormat, res)
	},
}

func init() {
	groupsCmd.Flags().String("kind", "", "seed every resource of a kind (connector, metrics, models, sources, dashboards)")
	groupsCmd.Flags().StringArray("resource", nil, "seed resource, e.g. model:orders (repeatable)")
	groupsCmd.Flags().String("expanded", "", "group to mark as expanded")
	groupsCmd.Flags().String("mode", partition.ModeSeeds, "partition mode (seeds or metrics)")
}
