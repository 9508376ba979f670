// Package objectstore keeps encrypted objects under their object id. Three
// backends share one contract: S3 (or any S3 compatible service such as
// MinIO), a sharded directory tree, and a single bbolt file.
//
// All backends report a missing object as common.ErrorNotFound, an id that
// is already taken as common.ErrorAlreadyExists, a malformed id as
// common.ErrorInvalidRequest and anything else as common.ErrorStorage.
package objectstore

import (
	"context"
	"io"
	"time"
)

// Store is the persistence contract used by the exchange pipeline.
type Store interface {
	// Put writes size bytes from body under id. It never overwrites an
	// existing object.
	Put(ctx context.Context, id string, body io.ReadSeeker, size int64) error
	// Get opens the object for reading. The caller closes the reader.
	Get(ctx context.Context, id string) (io.ReadCloser, error)
	// Delete removes the object.
	Delete(ctx context.Context, id string) error
	// DeleteOlderThan removes every object written before cutoff and
	// reports how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
	// Close releases backend resources.
	Close() error
}
