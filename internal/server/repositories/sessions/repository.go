// Package sessions declares and implements persistence of login sessions.
package sessions

import (
	"context"
	"time"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/models"
)

// Repository issues, looks up and revokes sessions.
type Repository interface {
	// Create stores a session for userID expiring at now+validity.
	Create(ctx context.Context, userID string, validity time.Duration) (*models.Session, error)
	// Find returns common.ErrorNotFound for an unknown id.
	Find(ctx context.Context, id string) (*models.Session, error)
	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes sessions that expired before now.
	DeleteExpired(ctx context.Context) (int64, error)
}
