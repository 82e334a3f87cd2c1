package seeder

import (
	"context"
	"errors"
	"testing"

	"matchmap/internal/database"
	"matchmap/internal/database/sqldb"
	"matchmap/internal/pkg/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectColumns(mock sqlmock.Sqlmock, table string, cols ...string) {
	rows := sqlmock.NewRows([]string{"column_name"})
	for _, c := range cols {
		rows.AddRow(c)
	}
	mock.ExpectQuery(`information_schema.columns`).WithArgs(table).WillReturnRows(rows)
}

func TestDemoTenantSeeder_Run(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := Defaults()[0].(DemoTenantSeeder)
	userID, tenantID := uuid.New(), uuid.New()

	expectColumns(mock, "tenant_users", "tenant_id", "user_id", "role")
	expectColumns(mock, "tenants", "id", "name", "slug", "plan")
	expectColumns(mock, "users", "id", "email", "name", "password_hash", "created_at")
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(sqlmock.AnyArg(), "demo@matchmap.hr", "Demo Owner", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(userID.String()))
	mock.ExpectQuery(`INSERT INTO tenants`).
		WithArgs(sqlmock.AnyArg(), "Demo Firma", "demo-firma", "STARTER").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(tenantID.String()))
	mock.ExpectExec(`INSERT INTO tenant_users`).
		WithArgs(tenantID, userID, "OWNER").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	r := Runner{Seeders: []Seeder{s}, Logger: logger.NewTestLogger(t)}
	require.NoError(t, r.Run(context.Background(), sqldb.Wrap(db)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequireColumns_ReportsEveryMissingColumn(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectColumns(mock, "tenants", "id", "slug")
	expectColumns(mock, "users", "id")
	err = requireColumns(context.Background(), sqldb.Wrap(db), map[string][]string{
		"users":   {"id", "email"},
		"tenants": {"id", "slug", "plan"},
	})
	assert.ErrorContains(t, err, "missing columns tenants.plan, users.email")
}

func TestRunner_StopsAtFirstFailure(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	second := &countingSeeder{}
	r := Runner{Seeders: []Seeder{failingSeeder{}, second}}
	err = r.Run(context.Background(), sqldb.Wrap(db))
	assert.ErrorContains(t, err, "seed broken")
	assert.Zero(t, second.runs)
}

type failingSeeder struct{}

func (failingSeeder) Name() string { return "broken" }

func (failingSeeder) Run(context.Context, database.DB) error { return errors.New("boom") }

type countingSeeder struct{ runs int }

func (*countingSeeder) Name() string { return "counting" }

func (s *countingSeeder) Run(context.Context, database.DB) error {
	s.runs++
	return nil
}
