package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"resourcegraph/internal/app"
)

var cacheCmd = &cobra.Command{
	Use:     "cache",
	Short:   "Inspect and manage the layout cache",
	GroupID: "system",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		stats, err := a.Service.CacheStats()
		if err != nil {
			return err
		}
		return printOutput(cmd.OutOrStdout(), outputFormat, stats)
	}),
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached position, assignment and label",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		if err := a.Service.ClearCache(cmd.Context()); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Cache cleared")
		return nil
	}),
}

var cacheExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the cache as JSON to a file or stdout",
	Args:  cobra.MaximumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		data, err := a.Service.ExportCache()
		if err != nil {
			return fmt.Errorf("exporting cache: %w", err)
		}
		if len(args) == 0 {
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		}
		if err := os.WriteFile(args[0], data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", args[0], err)
		}
		return nil
	}),
}

var cacheImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge a cache export into the cache",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		n, err := a.Service.ImportCache(cmd.Context(), data)
		if err != nil {
			return fmt.Errorf("importing cache: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Imported %d entries\n", n)
		return nil
	}),
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheExportCmd)
	cacheCmd.AddCommand(cacheImportCmd)
}

// withApp opens the configured store for the duration of a command and
// flushes it afterwards
func withApp(fn func(cmd *cobra.Command, args []string, a *app.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		runErr := fn(cmd, args, a)
		if err := a.Close(context.Background()); err != nil && runErr == nil {
			runErr = err
		}
		return runErr
	}
}
