package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"resourcegraph/internal/handler"
	"resourcegraph/internal/hub"
	"resourcegraph/internal/service"
)

// Serve runs the HTTP server on addr ("" uses the configured address) until
// ctx is cancelled, then shuts it down gracefully. When the snapshot watch
// is enabled the snapshot file is reloaded on change while serving.
func (a *App) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		addr = a.Config.Server.Addr
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sseHub := hub.New(a.Logger)
	go sseHub.Run(ctx)

	// Connect event bus to SSE hub
	eventChan := make(chan service.Event, 100)
	unsubscribe := a.Bus.Subscribe(eventChan)
	defer unsubscribe()
	go hub.Forward(ctx, sseHub, eventChan)

	if a.Config.Snapshot.Watch && a.Config.Snapshot.Path != "" {
		go func() {
			if err := a.WatchSnapshot(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.Logger.Error("snapshot watcher stopped", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      a.Handler(sseHub),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE streams stay open
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout.Duration())
	defer shutdownCancel()

	// Close SSE streams first so Shutdown does not wait on them
	cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// Handler returns the API router wrapped in the middleware chain
func (a *App) Handler(events http.Handler) http.Handler {
	h := handler.NewGraphHandler(a.Service, a.Logger)
	return handler.Chain(handler.NewRouter(h, events),
		handler.Recover,
		handler.CORSWithOrigin(a.Config.Server.CORSOrigin),
		handler.Logger,
	)
}
