// Package migration applies the versioned SQL files under migrations/.
package migration

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"matchmap/internal/pkg/logger"
)

// ErrChecksumMismatch means an applied file was edited after the fact.
var ErrChecksumMismatch = errors.New("migration checksum mismatch")

// DefaultLockKey serialises concurrent starts of several replicas.
const DefaultLockKey int64 = 7302114551

var fileRe = regexp.MustCompile(`^V(\d+)__([A-Za-z0-9_.-]+)\.sql$`)

// Runner applies every V<n>__<name>.sql file in FS exactly once. All work
// happens on one connection so the session advisory lock actually covers it.
type Runner struct {
	FS      fs.FS
	LockKey int64
	Logger  logger.Logger
}

// Report lists what a run did.
type Report struct {
	Applied []int64
	Current int64
}

type file struct {
	version  int64
	name     string
	body     string
	checksum string
}

func (r Runner) Run(ctx context.Context, db *sql.DB) (Report, error) {
	if db == nil {
		return Report{}, errors.New("migration: nil db")
	}
	if r.FS == nil {
		return Report{}, errors.New("migration: nil fs")
	}
	log := logger.OrNop(r.Logger).WithFields(map[string]interface{}{"component": "migration"})

	files, err := scan(r.FS)
	if err != nil {
		return Report{}, err
	}
	if len(files) == 0 {
		return Report{}, nil
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	key := r.LockKey
	if key == 0 {
		key = DefaultLockKey
	}
	if _, err := conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    BIGINT PRIMARY KEY,
	name       TEXT NOT NULL,
	checksum   TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return Report{}, fmt.Errorf("create schema_migrations: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, key); err != nil {
		return Report{}, fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, key); err != nil {
			log.Warn("release migration lock failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	applied, err := appliedChecksums(ctx, conn)
	if err != nil {
		return Report{}, err
	}

	var rep Report
	for _, f := range files {
		if sum, ok := applied[f.version]; ok {
			if sum != f.checksum {
				return rep, fmt.Errorf("%w: V%d__%s", ErrChecksumMismatch, f.version, f.name)
			}
			rep.Current = f.version
			continue
		}

		started := time.Now()
		if err := apply(ctx, conn, f); err != nil {
			return rep, err
		}
		rep.Applied = append(rep.Applied, f.version)
		rep.Current = f.version
		log.Info("migration applied", map[string]interface{}{
			"version":     f.version,
			"name":        f.name,
			"duration_ms": time.Since(started).Milliseconds(),
		})
	}
	return rep, nil
}

// scan reads the migration files in version order. Files that do not match
// the naming scheme, such as embed.go, are ignored.
func scan(fsys fs.FS) ([]file, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var files []file
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := fileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		v, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("migration %s: bad version: %w", e.Name(), err)
		}
		b, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, err
		}
		body := strings.TrimSpace(string(b))
		if body == "" {
			return nil, fmt.Errorf("migration %s is empty", e.Name())
		}
		sum := sha256.Sum256([]byte(body))
		files = append(files, file{version: v, name: m[2], body: body, checksum: hex.EncodeToString(sum[:])})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	for i := 1; i < len(files); i++ {
		if files[i].version == files[i-1].version {
			return nil, fmt.Errorf("duplicate migration version %d", files[i].version)
		}
	}
	return files, nil
}

func appliedChecksums(ctx context.Context, conn *sql.Conn) (map[int64]string, error) {
	rows, err := conn.QueryContext(ctx, `SELECT version, checksum FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	out := map[int64]string{}
	for rows.Next() {
		var v int64
		var sum string
		if err := rows.Scan(&v, &sum); err != nil {
			return nil, err
		}
		out[v] = sum
	}
	return out, rows.Err()
}

func apply(ctx context.Context, conn *sql.Conn, f file) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, f.body); err != nil {
		return fmt.Errorf("apply V%d__%s: %w", f.version, f.name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, checksum) VALUES ($1, $2, $3)`,
		f.version, f.name, f.checksum,
	); err != nil {
		return fmt.Errorf("record V%d__%s: %w", f.version, f.name, err)
	}
	return tx.Commit()
}
