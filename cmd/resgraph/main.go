package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"resourcegraph/internal/config"
)

var (
	configPath   string
	outputFormat string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "resgraph <command>",
	Short:         "Build, partition and serve resource dependency graphs",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch outputFormat {
		case "json", "yaml":
		default:
			return fmt.Errorf("unknown output format %q (must be json or yaml)", outputFormat)
		}

		loaded, path, err := config.LoadOrDefault(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		loaded.ResolveRelative(path)
		cfg = loaded

		logger, err = cfg.Log.NewLogger(os.Stderr)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", "output format (json or yaml)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "graph", Title: "Graph:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	// Graph
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(groupsCmd)
	rootCmd.AddCommand(urlCmd)

	// System
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
