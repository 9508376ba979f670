package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/common"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/dbx"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/migrations"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/models"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/repositories/sessions"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/repositories/users"
)

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewSQLRepositoryManager(t *testing.T) {
	m, err := NewSQLRepositoryManager(dbx.DriverPostgres)
	require.NoError(t, err)
	assert.Equal(t, migrations.PostgresDir, m.dir)

	m, err = NewSQLRepositoryManager(dbx.DriverSQLite)
	require.NoError(t, err)
	assert.Equal(t, migrations.SQLiteDir, m.dir)

	_, err = NewSQLRepositoryManager("mysql")
	assert.Error(t, err)

	var _ RepositoryManager = m
}

func TestFactories(t *testing.T) {
	db := newDB(t)
	m, err := NewSQLRepositoryManager(dbx.DriverPostgres)
	require.NoError(t, err)

	var _ users.Repository = m.Users(db)
	var _ sessions.Repository = m.Sessions(db)
	assert.NotNil(t, m.Users(db))
	assert.NotNil(t, m.Sessions(db))
}

func TestRunMigrations_UsesDialectDirectory(t *testing.T) {
	db := newDB(t)

	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	m, err := NewSQLRepositoryManager(dbx.DriverPostgres)
	require.NoError(t, err)
	require.NoError(t, m.RunMigrations(context.Background(), db))
	assert.Equal(t, "postgres", gotDir)
}

func TestRunMigrations_Error(t *testing.T) {
	db := newDB(t)

	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}

	m, err := NewSQLRepositoryManager(dbx.DriverPostgres)
	require.NoError(t, err)
	assert.EqualError(t, m.RunMigrations(context.Background(), db), "boom")
}

// TestRunMigrations_SQLite applies the real migrations to an in-memory
// database and exercises both repositories against it.
func TestRunMigrations_SQLite(t *testing.T) {
	ctx := context.Background()
	db, err := dbx.Open(ctx, dbx.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m, err := NewSQLRepositoryManager(dbx.DriverSQLite)
	require.NoError(t, err)
	require.NoError(t, m.RunMigrations(ctx, db))
	require.NoError(t, m.RunMigrations(ctx, db), "migrations must be idempotent")

	u, err := m.Users(db).Create(ctx, &models.User{Email: "a@example.com", Salt: []byte("s"), PasswordHash: []byte("h")})
	require.NoError(t, err)

	got, err := m.Users(db).GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, []byte("h"), got.PasswordHash)

	_, err = m.Users(db).Create(ctx, &models.User{Email: "a@example.com", Salt: []byte("s"), PasswordHash: []byte("h")})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	s, err := m.Sessions(db).Create(ctx, u.ID, time.Hour)
	require.NoError(t, err)
	found, err := m.Sessions(db).Find(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.UserID)
	assert.WithinDuration(t, s.ExpiresAt, found.ExpiresAt, time.Second)

	require.NoError(t, m.Sessions(db).Delete(ctx, s.ID))
	_, err = m.Sessions(db).Find(ctx, s.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
