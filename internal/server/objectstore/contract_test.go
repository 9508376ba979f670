package objectstore

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/common"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/cryptox"
)

func newID(t *testing.T) string {
	t.Helper()
	id, err := cryptox.NewObjectID()
	require.NoError(t, err)
	return id
}

func put(t *testing.T, s Store, id string, data []byte) error {
	t.Helper()
	return s.Put(context.Background(), id, bytes.NewReader(data), int64(len(data)))
}

func readAll(t *testing.T, s Store, id string) ([]byte, error) {
	t.Helper()
	rc, err := s.Get(context.Background(), id)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// runStoreContract checks the behaviour every local backend shares.
func runStoreContract(t *testing.T, open func(t *testing.T) Store) {
	t.Run("put then get", func(t *testing.T) {
		s := open(t)
		id := newID(t)
		data := bytes.Repeat([]byte{0xAB}, 10_000)

		require.NoError(t, put(t, s, id, data))
		got, err := readAll(t, s, id)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("empty object", func(t *testing.T) {
		s := open(t)
		id := newID(t)
		require.NoError(t, put(t, s, id, nil))
		got, err := readAll(t, s, id)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("missing object", func(t *testing.T) {
		s := open(t)
		_, err := s.Get(context.Background(), newID(t))
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("duplicate id is rejected and original kept", func(t *testing.T) {
		s := open(t)
		id := newID(t)
		require.NoError(t, put(t, s, id, []byte("first")))

		err := put(t, s, id, []byte("second"))
		assert.ErrorIs(t, err, common.ErrorAlreadyExists)

		got, err := readAll(t, s, id)
		require.NoError(t, err)
		assert.Equal(t, []byte("first"), got)
	})

	t.Run("size mismatch fails", func(t *testing.T) {
		s := open(t)
		id := newID(t)
		err := s.Put(context.Background(), id, bytes.NewReader([]byte("abc")), 10)
		assert.ErrorIs(t, err, common.ErrorStorage)

		_, err = s.Get(context.Background(), id)
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		s := open(t)
		for _, id := range []string{"", "../../etc/passwd", "ABCDEF0123456789ABCDEF0123456789"} {
			assert.ErrorIs(t, put(t, s, id, []byte("x")), common.ErrorInvalidRequest)
			_, err := s.Get(context.Background(), id)
			assert.ErrorIs(t, err, common.ErrorInvalidRequest)
			assert.ErrorIs(t, s.Delete(context.Background(), id), common.ErrorInvalidRequest)
		}
	})

	t.Run("delete", func(t *testing.T) {
		s := open(t)
		id := newID(t)
		require.NoError(t, put(t, s, id, []byte("bye")))

		require.NoError(t, s.Delete(context.Background(), id))
		_, err := s.Get(context.Background(), id)
		assert.ErrorIs(t, err, common.ErrorNotFound)
		assert.ErrorIs(t, s.Delete(context.Background(), id), common.ErrorNotFound)
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := open(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		id := newID(t)
		err := s.Put(ctx, id, bytes.NewReader([]byte("x")), 1)
		assert.ErrorIs(t, err, context.Canceled)
		_, err = s.Get(ctx, id)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("delete older than future cutoff removes all", func(t *testing.T) {
		s := open(t)
		for i := 0; i < 3; i++ {
			require.NoError(t, put(t, s, newID(t), []byte("old")))
		}

		n, err := s.DeleteOlderThan(context.Background(), time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("delete older than past cutoff keeps all", func(t *testing.T) {
		s := open(t)
		id := newID(t)
		require.NoError(t, put(t, s, id, []byte("fresh")))

		n, err := s.DeleteOlderThan(context.Background(), time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		_, err = readAll(t, s, id)
		assert.NoError(t, err)
	})
}
