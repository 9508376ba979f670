// Package repomanager hands out repository implementations bound to a
// database handle and runs the schema migrations for the configured driver.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/dbx"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/repositories/sessions"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/repositories/users"
)

// RepositoryManager is what services depend on, so they can bind
// repositories to either the pool or a transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
