// Package users declares and implements persistence of user accounts.
package users

import (
	"context"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/models"
)

// Repository stores users keyed by id and by normalised email.
type Repository interface {
	// Create inserts user and fills its ID and CreatedAt. A taken email
	// yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetByEmail returns common.ErrorNotFound when no user has email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByID returns common.ErrorNotFound when no user has id.
	GetByID(ctx context.Context, id string) (*models.User, error)
}
