package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"resourcegraph/internal/app"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the resource graph HTTP server",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if snapshot, _ := cmd.Flags().GetString("snapshot"); snapshot != "" {
			cfg.Snapshot.Path = snapshot
		}
		if cmd.Flags().Changed("watch") {
			cfg.Snapshot.Watch, _ = cmd.Flags().GetBool("watch")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return withApp(func(cmd *cobra.Command, args []string, a *app.App) error {
			logger.Info("starting resource graph server", "config", cfg.Summary())
			return a.Serve(ctx, addr)
		})(cmd, args)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "HTTP listen address (overrides config)")
	serveCmd.Flags().String("snapshot", "", "resource snapshot file (overrides config)")
	serveCmd.Flags().Bool("watch", false, "reload the snapshot file when it changes")
}
