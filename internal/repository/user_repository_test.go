package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"matchmap/internal/database/sqldb"
	"matchmap/internal/domain/tenant"
	"matchmap/internal/domain/user"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccount() (user.User, tenant.Tenant) {
	now := time.Now().UTC()
	u := user.User{ID: uuid.New(), Email: "owner@example.com", PasswordHash: "hash", CreatedAt: now, UpdatedAt: now}
	t := tenant.Tenant{ID: uuid.New(), Name: "Acme GmbH", Slug: "acme-gmbh", Plan: tenant.PlanStarter, CreatedAt: now, UpdatedAt: now}
	return u, t
}

func TestCreateAccount_InsertsUserTenantAndOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresUserRepository(sqldb.Wrap(db))
	u, tn := newAccount()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO tenants`).
		WithArgs(tn.ID, "Acme GmbH", "acme-gmbh", "STARTER", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO tenant_users`).
		WithArgs(tn.ID, u.ID, "OWNER").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CreateAccount(context.Background(), u, tn))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccount_MapsUniqueViolations(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		want       error
	}{
		{name: "email", constraint: "users_email_key", want: user.ErrEmailTaken},
		{name: "slug", constraint: "tenants_slug_key", want: tenant.ErrSlugTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			repo := NewPostgresUserRepository(sqldb.Wrap(db))
			u, tn := newAccount()

			mock.ExpectBegin()
			mock.ExpectExec(`INSERT INTO users`).
				WillReturnError(&pq.Error{Code: "23505", Constraint: tt.constraint})
			mock.ExpectRollback()

			err = repo.CreateAccount(context.Background(), u, tn)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGetByEmail_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresUserRepository(sqldb.Wrap(db))

	mock.ExpectQuery(`FROM users WHERE email`).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "password_hash", "created_at", "updated_at"}))

	_, err = repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.True(t, errors.Is(err, user.ErrNotFound))
}

func TestGetMembership(t *testing.T) {
	cols := []string{"id", "name", "slug", "plan", "created_at", "updated_at", "role"}
	now := time.Now().UTC()
	tenantID, userID := uuid.New(), uuid.New()

	tests := []struct {
		name    string
		rows    *sqlmock.Rows
		wantErr error
		role    tenant.Role
	}{
		{
			name: "member",
			rows: sqlmock.NewRows(cols).AddRow(tenantID.String(), "Acme", "acme", "PRO", now, now, "ADMIN"),
			role: tenant.RoleAdmin,
		},
		{
			name:    "not a member",
			rows:    sqlmock.NewRows(cols).AddRow(tenantID.String(), "Acme", "acme", "PRO", now, now, nil),
			wantErr: tenant.ErrNotMember,
		},
		{
			name:    "unknown slug",
			rows:    sqlmock.NewRows(cols),
			wantErr: tenant.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			repo := NewPostgresTenantRepository(sqldb.Wrap(db))

			mock.ExpectQuery(`LEFT JOIN tenant_users`).WithArgs("acme", userID).WillReturnRows(tt.rows)

			m, err := repo.GetMembership(context.Background(), "acme", userID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.role, m.Role)
			assert.Equal(t, tenant.PlanPro, m.Tenant.Plan)
			assert.Equal(t, tenantID, m.Tenant.ID)
		})
	}
}
