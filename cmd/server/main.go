// Command server runs the MatchMap HTTP API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"matchmap/internal/app"
	"matchmap/internal/config"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	addr, err := app.ListenAddr(cfg.App.HTTPPort)
	if err != nil {
		return err
	}

	srv, cleanup, err := app.Bootstrap(cfg)
	if err != nil {
		return err
	}
	logger := srv.Container.Logger
	defer func() {
		if err := cleanup(); err != nil {
			logger.Error("cleanup failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("server starting", map[string]interface{}{
		"addr":        addr,
		"environment": cfg.App.Environment,
		"storage":     srv.Container.Storage.Name(),
		"driver":      cfg.Database.Driver,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Fiber.Listen(addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", nil)
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Fiber.ShutdownWithContext(sctx)
}
