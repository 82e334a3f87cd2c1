package seeder

import (
	"context"
	"fmt"

	"matchmap/internal/database"
	"matchmap/internal/domain/tenant"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DemoTenantSeeder creates a STARTER tenant with one owner. Existing rows
// are left untouched so the seeder can run on every start.
type DemoTenantSeeder struct {
	Email      string
	Password   string
	TenantName string
	TenantSlug string
}

func (DemoTenantSeeder) Name() string { return "demo_tenant" }

func (s DemoTenantSeeder) Run(ctx context.Context, db database.DB) error {
	if err := requireColumns(ctx, db, map[string][]string{
		"users":        {"id", "email", "name", "password_hash"},
		"tenants":      {"id", "name", "slug", "plan"},
		"tenant_users": {"tenant_id", "user_id", "role"},
	}); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return database.WithTx(ctx, db, func(tx database.Tx) error {
		var userID uuid.UUID
		if err := tx.QueryRow(ctx,
			`INSERT INTO users (id, email, name, password_hash) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
			 RETURNING id`,
			uuid.New(), s.Email, "Demo Owner", string(hash),
		).Scan(&userID); err != nil {
			return fmt.Errorf("upsert user: %w", err)
		}

		var tenantID uuid.UUID
		if err := tx.QueryRow(ctx,
			`INSERT INTO tenants (id, name, slug, plan) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
			 RETURNING id`,
			uuid.New(), s.TenantName, s.TenantSlug, string(tenant.PlanStarter),
		).Scan(&tenantID); err != nil {
			return fmt.Errorf("upsert tenant: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO tenant_users (tenant_id, user_id, role) VALUES ($1, $2, $3)
			 ON CONFLICT (tenant_id, user_id) DO NOTHING`,
			tenantID, userID, string(tenant.RoleOwner),
		); err != nil {
			return fmt.Errorf("insert membership: %w", err)
		}
		return nil
	})
}
