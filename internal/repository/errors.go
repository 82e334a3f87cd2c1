package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const codeUniqueViolation = "23505"

// uniqueViolation reports the violated constraint name for a unique
// violation raised by either driver.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return pgErr.ConstraintName, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == codeUniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

// execer is satisfied by both database.DB and database.Tx.
type execer interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
}
