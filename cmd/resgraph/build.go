package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"resourcegraph/internal/domain"
	"resourcegraph/internal/loader"
	"resourcegraph/internal/service"
)

type buildResult struct {
	*domain.Graph `yaml:",inline"`
	Stats         domain.GraphStats `json:"stats" yaml:"stats"`
}

var buildCmd = &cobra.Command{
	Use:     "build <snapshot>",
	Short:   "Build and lay out the graph of a snapshot file",
	GroupID: "graph",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := snapshotService(cmd, args[0])
		if err != nil {
			return err
		}
		ns, _ := cmd.Flags().GetString("namespace")

		g := svc.Graph(service.GraphOptions{Namespace: ns, IgnoreCache: true})
		return printOutput(cmd.OutOrStdout(), outputFormat, buildResult{Graph: g, Stats: g.Stats()})
	},
}

func init() {
	buildCmd.Flags().String("namespace", "", "position namespace")
}

// snapshotService loads a snapshot file into a service with no cache and no repository
func snapshotService(cmd *cobra.Command, path string) (*service.GraphService, error) {
	resources, err := loader.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	svc := service.NewGraphService(nil, nil, nil, service.Options{
		Layout: cfg.Layout.Layout(),
		Logger: logger,
	})
	if err := svc.ReplaceResources(cmd.Context(), resources, path); err != nil {
		return nil, err
	}
	return svc, nil
}
