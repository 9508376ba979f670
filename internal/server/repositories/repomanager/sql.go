package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/dbx"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/migrations"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/repositories/sessions"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/repositories/users"
)

// SQLRepositoryManager vends the SQL repositories and knows which goose
// dialect and migration directory belong to its driver.
type SQLRepositoryManager struct {
	dialect string
	dir     string
}

// NewSQLRepositoryManager supports dbx.DriverPostgres and dbx.DriverSQLite.
func NewSQLRepositoryManager(driver string) (*SQLRepositoryManager, error) {
	switch driver {
	case dbx.DriverPostgres:
		return &SQLRepositoryManager{dialect: "pgx", dir: migrations.PostgresDir}, nil
	case dbx.DriverSQLite:
		return &SQLRepositoryManager{dialect: "sqlite3", dir: migrations.SQLiteDir}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Users returns a users.Repository bound to db.
func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db)
}

// Sessions returns a sessions.Repository bound to db.
func (m *SQLRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewSQLRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations for the manager's dialect.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(m.dialect); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, m.dir)
}
