// Command seed creates the demo tenant for local development.
package main

import (
	"context"
	"log"
	"time"

	"matchmap/internal/app"
	"matchmap/internal/config"
	"matchmap/internal/database/seeder"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if !cfg.IsDevelopment() {
		log.Fatalf("refusing to seed outside development (environment=%s)", cfg.App.Environment)
	}

	c, err := app.NewContainer(cfg)
	if err != nil {
		log.Fatalf("failed to init container: %v", err)
	}
	defer func() {
		_ = c.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := c.Migrate(ctx); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	if err := (seeder.Runner{Seeders: seeder.Defaults(), Logger: c.Logger}).Run(ctx, c.DB); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
	c.Logger.Info("seed finished", nil)
}
