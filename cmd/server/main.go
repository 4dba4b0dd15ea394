package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"resourcegraph/internal/app"
	"resourcegraph/internal/config"
)

func main() {
	// Command line flags
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	configPath := flag.String("config", "", "Path to config file")
	snapshotPath := flag.String("snapshot", "", "Resource snapshot file (overrides config)")
	flag.Parse()

	if err := run(*configPath, *addr, *snapshotPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, addr, snapshotPath string) error {
	cfg, path, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ResolveRelative(path)
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if snapshotPath != "" {
		cfg.Snapshot.Path = snapshotPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if path != "" {
		logger.Info("config loaded", "path", path)
	}
	logger.Info("starting resource graph server", "config", cfg.Summary())

	// Wait for interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	serveErr := a.Serve(ctx, "")

	// Flush pending cache writes even when ctx is already cancelled
	if err := a.Close(context.Background()); err != nil {
		logger.Error("close failed", "error", err)
	}
	if serveErr != nil {
		return serveErr
	}
	logger.Info("server stopped")
	return nil
}
