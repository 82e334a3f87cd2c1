package repository

import (
	"context"
	"fmt"

	"matchmap/internal/database"
	"matchmap/internal/domain/tenant"

	"github.com/google/uuid"
)

type PostgresTenantRepository struct {
	db database.DB
}

func NewPostgresTenantRepository(db database.DB) *PostgresTenantRepository {
	return &PostgresTenantRepository{db: db}
}

var _ tenant.Repository = (*PostgresTenantRepository)(nil)

const tenantColumns = `t.id, t.name, t.slug, t.plan, t.created_at, t.updated_at`

func scanTenant(row database.Row, extra ...any) (tenant.Tenant, error) {
	var (
		t    tenant.Tenant
		plan string
	)
	dest := append([]any{&t.ID, &t.Name, &t.Slug, &plan, &t.CreatedAt, &t.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return tenant.Tenant{}, err
	}
	t.Plan = tenant.Plan(plan)
	return t, nil
}

func (r *PostgresTenantRepository) GetByID(ctx context.Context, id uuid.UUID) (tenant.Tenant, error) {
	t, err := scanTenant(r.db.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants t WHERE t.id = $1`, id))
	if err != nil {
		if database.IsNoRows(err) {
			return tenant.Tenant{}, tenant.ErrNotFound
		}
		return tenant.Tenant{}, err
	}
	return t, nil
}

func (r *PostgresTenantRepository) GetBySlug(ctx context.Context, slug string) (tenant.Tenant, error) {
	t, err := scanTenant(r.db.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants t WHERE t.slug = $1`, slug))
	if err != nil {
		if database.IsNoRows(err) {
			return tenant.Tenant{}, tenant.ErrNotFound
		}
		return tenant.Tenant{}, err
	}
	return t, nil
}

func (r *PostgresTenantRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tenants WHERE slug = $1)`, slug).Scan(&exists); err != nil {
		if database.IsNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return exists, nil
}

// GetMembership distinguishes an unknown slug from a missing membership by
// left-joining the caller's tenant_users row.
func (r *PostgresTenantRepository) GetMembership(ctx context.Context, slug string, userID uuid.UUID) (tenant.Membership, error) {
	var role *string
	t, err := scanTenant(r.db.QueryRow(ctx,
		`SELECT `+tenantColumns+`, tu.role
		 FROM tenants t
		 LEFT JOIN tenant_users tu ON tu.tenant_id = t.id AND tu.user_id = $2
		 WHERE t.slug = $1`,
		slug, userID,
	), &role)
	if err != nil {
		if database.IsNoRows(err) {
			return tenant.Membership{}, tenant.ErrNotFound
		}
		return tenant.Membership{}, err
	}
	if role == nil {
		return tenant.Membership{}, tenant.ErrNotMember
	}
	return tenant.Membership{Tenant: t, UserID: userID, Role: tenant.Role(*role)}, nil
}

func (r *PostgresTenantRepository) ListMemberships(ctx context.Context, userID uuid.UUID) ([]tenant.Membership, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+tenantColumns+`, tu.role
		 FROM tenant_users tu
		 JOIN tenants t ON t.id = tu.tenant_id
		 WHERE tu.user_id = $1
		 ORDER BY tu.created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]tenant.Membership, 0)
	for rows.Next() {
		var role string
		t, err := scanTenant(rows, &role)
		if err != nil {
			return nil, err
		}
		out = append(out, tenant.Membership{Tenant: t, UserID: userID, Role: tenant.Role(role)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresTenantRepository) UpdateName(ctx context.Context, id uuid.UUID, name string) (tenant.Tenant, error) {
	t, err := scanTenant(r.db.QueryRow(ctx,
		`UPDATE tenants t SET name = $2, updated_at = now() WHERE t.id = $1
		 RETURNING `+tenantColumns,
		id, name,
	))
	if err != nil {
		if database.IsNoRows(err) {
			return tenant.Tenant{}, tenant.ErrNotFound
		}
		return tenant.Tenant{}, fmt.Errorf("update tenant name: %w", err)
	}
	return t, nil
}
