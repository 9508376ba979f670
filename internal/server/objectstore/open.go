package objectstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/common"
)

// Backend names accepted by Open.
const (
	BackendS3   = "s3"
	BackendFS   = "fs"
	BackendBolt = "bolt"
)

// Options selects and configures a backend for Open.
type Options struct {
	Backend  string
	S3       S3Config
	FSRoot   string
	BoltPath string
}

// Open builds the configured backend. For S3 the bucket is created when it
// does not exist yet.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendS3:
		s, err := NewS3Store(ctx, opts.S3)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case BackendFS:
		return NewFSStore(opts.FSRoot)
	case BackendBolt:
		return OpenBoltStore(opts.BoltPath)
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", common.ErrorInvalidRequest, opts.Backend)
	}
}

func isSentinel(err error) bool {
	return errors.Is(err, common.ErrorNotFound) ||
		errors.Is(err, common.ErrorAlreadyExists) ||
		errors.Is(err, common.ErrorStorage) ||
		errors.Is(err, common.ErrorInvalidRequest)
}
