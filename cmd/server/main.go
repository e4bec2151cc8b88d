package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/revware/pr-sentinel/internal/wire"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("pr-sentinel exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	app, cleanup, err := wire.InitializeApp(ctx)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer cleanup()

	slog.Info("starting pr-sentinel")

	errc := make(chan error, 1)
	go func() {
		errc <- app.Start(ctx)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("gateway failed: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	if err := app.Stop(); err != nil {
		return fmt.Errorf("stopping application: %w", err)
	}
	return nil
}
