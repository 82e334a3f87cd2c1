package migration

import (
	"context"
	"testing"
	"testing/fstest"

	"matchmap/internal/pkg/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan_SortsAndSkipsForeignFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"V2__results.sql": {Data: []byte("CREATE TABLE b (id INT);")},
		"V1__init.sql":    {Data: []byte("CREATE TABLE a (id INT);")},
		"README.md":       {Data: []byte("ignored")},
		"embed.go":        {Data: []byte("package migrations")},
	}

	files, err := scan(fsys)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, int64(1), files[0].version)
	assert.Equal(t, "init", files[0].name)
	assert.Equal(t, int64(2), files[1].version)
	assert.NotEqual(t, files[0].checksum, files[1].checksum)
}

func TestScan_RejectsBadFiles(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
	}{
		{name: "empty", fsys: fstest.MapFS{"V1__empty.sql": {Data: []byte("  \n")}}},
		{name: "duplicate version", fsys: fstest.MapFS{
			"V1__a.sql":  {Data: []byte("SELECT 1;")},
			"V01__b.sql": {Data: []byte("SELECT 2;")},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scan(tt.fsys)
			assert.Error(t, err)
		})
	}
}

func TestRunner_AppliesPendingOnly(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fsys := fstest.MapFS{
		"V1__init.sql":    {Data: []byte("CREATE TABLE a (id INT);")},
		"V2__results.sql": {Data: []byte("CREATE TABLE b (id INT);")},
	}
	files, err := scan(fsys)
	require.NoError(t, err)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SELECT pg_advisory_lock`).WithArgs(DefaultLockKey).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT version, checksum FROM schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "checksum"}).AddRow(int64(1), files[0].checksum))
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE b`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO schema_migrations`).
		WithArgs(int64(2), "results", files[1].checksum).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectExec(`SELECT pg_advisory_unlock`).WithArgs(DefaultLockKey).WillReturnResult(sqlmock.NewResult(0, 0))

	rep, err := Runner{FS: fsys, Logger: logger.NewTestLogger(t)}.Run(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, rep.Applied)
	assert.Equal(t, int64(2), rep.Current)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunner_ChecksumMismatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fsys := fstest.MapFS{"V1__init.sql": {Data: []byte("CREATE TABLE a (id INT);")}}

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SELECT pg_advisory_lock`).WithArgs(int64(42)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT version, checksum FROM schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "checksum"}).AddRow(int64(1), "stale"))
	mock.ExpectExec(`SELECT pg_advisory_unlock`).WithArgs(int64(42)).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err = Runner{FS: fsys, LockKey: 42}.Run(context.Background(), db)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunner_NothingToDo(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rep, err := Runner{FS: fstest.MapFS{"README.md": {Data: []byte("notes")}}}.Run(context.Background(), db)
	require.NoError(t, err)
	assert.Empty(t, rep.Applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}
