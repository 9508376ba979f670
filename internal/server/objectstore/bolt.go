package objectstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/common"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/cryptox"
)

var bucketObjects = []byte("objects")

// stampSize is the length of the big-endian unix-nano write time stored in
// front of every value.
const stampSize = 8

// BoltStore keeps every object in one bbolt file, bucket "objects",
// value = write time || envelope bytes. Objects are held in memory while
// being written or read, so this backend suits small deployments.
type BoltStore struct {
	db  *bbolt.DB
	now func() time.Time
}

var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the database at dbPath. The parent
// directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("%w: create directory: %w", common.ErrorStorage, err)
	}
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open bolt db: %w", common.ErrorStorage, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketObjects)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: create bucket: %w", common.ErrorStorage, err)
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

// Put stores body under id unless id is already present.
func (s *BoltStore) Put(ctx context.Context, id string, body io.ReadSeeker, size int64) error {
	if err := cryptox.ValidateObjectID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if size < 0 {
		return fmt.Errorf("%w: negative size", common.ErrorInvalidRequest)
	}

	value := make([]byte, stampSize, stampSize+size)
	binary.BigEndian.PutUint64(value, uint64(s.now().UnixNano()))

	buf := bytes.NewBuffer(value)
	n, err := io.Copy(buf, body)
	if err != nil {
		return fmt.Errorf("%w: read body: %w", common.ErrorStorage, err)
	}
	if n != size {
		return fmt.Errorf("%w: read %d of %d bytes", common.ErrorStorage, n, size)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketObjects)
		if b.Get([]byte(id)) != nil {
			return fmt.Errorf("%w: object %s", common.ErrorAlreadyExists, id)
		}
		return b.Put([]byte(id), buf.Bytes())
	})
	if err != nil {
		return wrapBolt(err)
	}
	return nil
}

// Get copies the object out of the read transaction.
func (s *BoltStore) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := cryptox.ValidateObjectID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketObjects).Get([]byte(id))
		if v == nil {
			return common.ErrorNotFound
		}
		if len(v) < stampSize {
			return fmt.Errorf("%w: corrupt record %s", common.ErrorStorage, id)
		}
		data = append([]byte(nil), v[stampSize:]...)
		return nil
	})
	if err != nil {
		return nil, wrapBolt(err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes the object.
func (s *BoltStore) Delete(ctx context.Context, id string) error {
	if err := cryptox.ValidateObjectID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketObjects)
		if b.Get([]byte(id)) == nil {
			return common.ErrorNotFound
		}
		return b.Delete([]byte(id))
	})
	return wrapBolt(err)
}

// DeleteOlderThan removes, in one transaction, every record stamped before
// cutoff.
func (s *BoltStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	limit := cutoff.UnixNano()
	deleted := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketObjects)

		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			if len(v) >= stampSize && int64(binary.BigEndian.Uint64(v)) < limit {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		deleted = len(stale)
		return nil
	})
	if err != nil {
		return 0, wrapBolt(err)
	}
	return deleted, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

func wrapBolt(err error) error {
	switch {
	case err == nil:
		return nil
	case isSentinel(err):
		return err
	default:
		return fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}
}
