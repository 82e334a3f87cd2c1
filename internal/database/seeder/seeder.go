// Package seeder loads fixture data for local development.
package seeder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"matchmap/internal/database"
	"matchmap/internal/pkg/logger"
)

type Seeder interface {
	Name() string
	Run(ctx context.Context, db database.DB) error
}

// Runner applies seeders in order and stops at the first failure.
type Runner struct {
	Seeders []Seeder
	Logger  logger.Logger
}

func (r Runner) Run(ctx context.Context, db database.DB) error {
	if db == nil {
		return errors.New("seeder: nil db")
	}
	log := logger.OrNop(r.Logger)
	for _, s := range r.Seeders {
		if s == nil {
			continue
		}
		started := time.Now()
		if err := s.Run(ctx, db); err != nil {
			return fmt.Errorf("seed %s: %w", s.Name(), err)
		}
		log.Info("seeder applied", map[string]interface{}{
			"seeder":      s.Name(),
			"duration_ms": time.Since(started).Milliseconds(),
		})
	}
	return nil
}

// requireColumns fails when the migrated schema lacks a column a seeder
// writes to. All missing columns are reported together.
func requireColumns(ctx context.Context, db database.DB, want map[string][]string) error {
	tables := make([]string, 0, len(want))
	for table := range want {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	var missing []string
	for _, table := range tables {
		have, err := tableColumns(ctx, db, table)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", table, err)
		}
		for _, col := range want[table] {
			if _, ok := have[col]; !ok {
				missing = append(missing, table+"."+col)
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("schema mismatch: missing columns %s", strings.Join(missing, ", "))
	}
	return nil
}

func tableColumns(ctx context.Context, db database.DB, table string) (map[string]struct{}, error) {
	rows, err := db.Query(ctx,
		`SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1`,
		table,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := map[string]struct{}{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cols[c] = struct{}{}
	}
	return cols, rows.Err()
}
