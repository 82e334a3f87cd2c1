// Command reaper fails requests stuck in QUEUED or RUNNING. Run it from cron.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"matchmap/internal/app"
	"matchmap/internal/config"
)

func main() {
	olderThan := flag.Duration("older-than", 0, "expire requests untouched for this long (default lifecycle.stale_after)")
	migrate := flag.Bool("migrate", false, "apply migrations before sweeping")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
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

	if *migrate {
		if err := c.Migrate(ctx); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
	}

	expired, err := c.Lifecycle.ExpireStale(ctx, *olderThan)
	if err != nil {
		log.Fatalf("expire stale requests: %v", err)
	}
	c.Logger.Info("stale sweep finished", map[string]interface{}{"expired": len(expired)})
}
