package repository

import (
	"context"
	"fmt"
	"strings"

	"matchmap/internal/database"
	"matchmap/internal/domain/tenant"
	"matchmap/internal/domain/user"

	"github.com/google/uuid"
)

type PostgresUserRepository struct {
	db database.DB
}

func NewPostgresUserRepository(db database.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

var _ user.Repository = (*PostgresUserRepository)(nil)

const userColumns = `id, email, name, password_hash, created_at, updated_at`

func scanUser(row database.Row) (user.User, error) {
	var u user.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if database.IsNoRows(err) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *PostgresUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists); err != nil {
		if database.IsNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return exists, nil
}

// CreateAccount inserts the user, its tenant and the OWNER membership in one
// transaction.
func (r *PostgresUserRepository) CreateAccount(ctx context.Context, u user.User, t tenant.Tenant) error {
	err := database.WithTx(ctx, r.db, func(tx database.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO users (id, email, name, password_hash, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO tenants (id, name, slug, plan, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			t.ID, t.Name, t.Slug, string(t.Plan), t.CreatedAt, t.UpdatedAt,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO tenant_users (tenant_id, user_id, role) VALUES ($1, $2, $3)`,
			t.ID, u.ID, string(tenant.RoleOwner),
		); err != nil {
			return err
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if constraint, ok := uniqueViolation(err); ok {
		switch {
		case strings.Contains(constraint, "email"):
			return user.ErrEmailTaken
		case strings.Contains(constraint, "slug"):
			return tenant.ErrSlugTaken
		}
	}
	return fmt.Errorf("create account: %w", err)
}
