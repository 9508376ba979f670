package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/common"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/cryptox"
)

// FSStore keeps objects on the local filesystem at {root}/{id[:2]}/{id}.
// The first two hex characters shard the tree so no single directory grows
// unbounded. An object's age is its file modification time.
//
// No lock is held: a link into place either wins or fails with an existing
// id, and temporary files are never taken for objects by the sweep.
type FSStore struct {
	root string
}

var _ Store = (*FSStore)(nil)

// NewFSStore creates root (mode 0700) when missing.
func NewFSStore(root string) (*FSStore, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: empty fs root", common.ErrorInvalidRequest)
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) objectPath(id string) string {
	return filepath.Join(s.root, id[:2], id)
}

// Put writes body to a temporary file in the shard and hard-links it into
// place, so readers never observe a partial object and an existing id is
// never replaced.
func (s *FSStore) Put(ctx context.Context, id string, body io.ReadSeeker, size int64) error {
	if err := cryptox.ValidateObjectID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	shard := filepath.Join(s.root, id[:2])
	if err := os.MkdirAll(shard, 0o700); err != nil {
		return fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}

	tmp, err := os.CreateTemp(shard, ".put-*")
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, body)
	if err == nil && n != size {
		err = fmt.Errorf("wrote %d of %d bytes", n, size)
	}
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}

	if err := os.Link(tmp.Name(), s.objectPath(id)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: object %s", common.ErrorAlreadyExists, id)
		}
		return fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	return nil
}

// Get opens the object file.
func (s *FSStore) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := cryptox.ValidateObjectID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.objectPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	return f, nil
}

// Delete removes the object file.
func (s *FSStore) Delete(ctx context.Context, id string) error {
	if err := cryptox.ValidateObjectID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(s.objectPath(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
	return nil
}

// DeleteOlderThan scans the shard directories and removes objects whose
// modification time is before cutoff. Names that are not object ids are
// left alone.
func (s *FSStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	shards, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}

	deleted := 0
	for _, shard := range shards {
		if !shard.IsDir() || len(shard.Name()) != 2 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return deleted, err
		}

		shardPath := filepath.Join(s.root, shard.Name())
		files, err := os.ReadDir(shardPath)
		if err != nil {
			return deleted, fmt.Errorf("%w: %w", common.ErrorStorage, err)
		}

		for _, f := range files {
			if f.IsDir() || cryptox.ValidateObjectID(f.Name()) != nil {
				continue
			}
			info, err := f.Info()
			if err != nil {
				continue
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(shardPath, f.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return deleted, fmt.Errorf("%w: %w", common.ErrorStorage, err)
			}
			deleted++
		}
	}

	return deleted, nil
}

// Close is a no-op.
func (s *FSStore) Close() error { return nil }
