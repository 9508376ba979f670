package exchange

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/common"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/cryptox"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/filex"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/logging"
)

// memStore is an in-memory objectstore.Store with failure hooks.
type memStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	putCalls int
	putErr   func(call int) error
	getErr   error
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (m *memStore) Put(ctx context.Context, id string, body io.ReadSeeker, size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if m.putErr != nil {
		if err := m.putErr(m.putCalls); err != nil {
			return err
		}
	}
	if _, ok := m.objects[id]; ok {
		return common.ErrorAlreadyExists
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	m.objects[id] = data
	return nil
}

func (m *memStore) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.objects[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, id)
	return nil
}

func (m *memStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

func (m *memStore) Close() error { return nil }

func newTestPipeline(t *testing.T, cfg Config) (*Pipeline, *memStore, *filex.Scratch) {
	t.Helper()
	scratch, err := filex.NewScratch(t.TempDir())
	require.NoError(t, err)
	store := newMemStore()
	return NewPipeline(store, scratch, logging.Nop{}, cfg), store, scratch
}

func assertScratchEmpty(t *testing.T, s *filex.Scratch) {
	t.Helper()
	n, err := s.Count()
	require.NoError(t, err)
	assert.Zero(t, n, "scratch files left behind")
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func TestPipeline_RoundTrip(t *testing.T) {
	sizes := []int{0, 1, 10 * 1024, cryptox.DefaultChunkSize, 3*cryptox.DefaultChunkSize + 17}
	suites := []cryptox.Suite{cryptox.SuiteAESGCM, cryptox.SuiteXChaCha20Poly1305}

	for _, suite := range suites {
		for _, size := range sizes {
			t.Run(fmt.Sprintf("%s/%d", suite, size), func(t *testing.T) {
				p, store, scratch := newTestPipeline(t, Config{Suite: suite})
				data := randomBytes(t, size)

				receipt, err := p.Store(context.Background(), "report.pdf", bytes.NewReader(data))
				require.NoError(t, err)
				assert.Len(t, receipt.Key, cryptox.KeySize)
				assert.NoError(t, cryptox.ValidateObjectID(receipt.ID))
				assert.Len(t, store.objects, 1)
				assertScratchEmpty(t, scratch)

				assert.False(t, bytes.Contains(store.objects[receipt.ID], []byte("report.pdf")), "filename must be encrypted")

				doc, err := p.Retrieve(context.Background(), receipt.Key.Hex(), receipt.ID)
				require.NoError(t, err)
				assert.Equal(t, "report.pdf", doc.Name)
				assert.Equal(t, len(data), len(doc.Data))
				assert.True(t, bytes.Equal(data, doc.Data))
				assertScratchEmpty(t, scratch)
			})
		}
	}
}

func TestPipeline_DistinctKeysAndIDs(t *testing.T) {
	p, _, _ := newTestPipeline(t, Config{})

	r1, err := p.Store(context.Background(), "a.txt", strings.NewReader("same"))
	require.NoError(t, err)
	r2, err := p.Store(context.Background(), "a.txt", strings.NewReader("same"))
	require.NoError(t, err)

	assert.NotEqual(t, r1.ID, r2.ID)
	assert.NotEqual(t, r1.Key.Hex(), r2.Key.Hex())
}

func TestPipeline_Retrieve_FlippedKey(t *testing.T) {
	p, _, scratch := newTestPipeline(t, Config{})

	receipt, err := p.Store(context.Background(), "secret.txt", bytes.NewReader(randomBytes(t, 10*1024)))
	require.NoError(t, err)

	flipped := append(cryptox.Key(nil), receipt.Key...)
	flipped[0] ^= 0x01

	doc, err := p.Retrieve(context.Background(), flipped.Hex(), receipt.ID)
	assert.Nil(t, doc)
	assert.Equal(t, common.ErrorDecryption, err)
	assertScratchEmpty(t, scratch)
}

func TestPipeline_Retrieve_TamperedObject(t *testing.T) {
	p, store, scratch := newTestPipeline(t, Config{})

	receipt, err := p.Store(context.Background(), "x.bin", bytes.NewReader(randomBytes(t, 4096)))
	require.NoError(t, err)
	store.objects[receipt.ID][len(store.objects[receipt.ID])-1] ^= 0xFF

	_, err = p.Retrieve(context.Background(), receipt.Key.Hex(), receipt.ID)
	assert.ErrorIs(t, err, common.ErrorDecryption)
	assertScratchEmpty(t, scratch)
}

func TestPipeline_Retrieve_Errors(t *testing.T) {
	p, store, scratch := newTestPipeline(t, Config{})
	key, err := cryptox.GenerateKey()
	require.NoError(t, err)
	id, err := cryptox.NewObjectID()
	require.NoError(t, err)

	tests := []struct {
		name   string
		key    string
		id     string
		getErr error
		want   error
	}{
		{"not found", key.Hex(), id, nil, common.ErrorNotFound},
		{"empty key", "", id, nil, common.ErrorInvalidRequest},
		{"short key", "abcd", id, nil, common.ErrorInvalidRequest},
		{"non hex key", strings.Repeat("z", 64), id, nil, common.ErrorInvalidRequest},
		{"empty id", key.Hex(), "", nil, common.ErrorInvalidRequest},
		{"path id", key.Hex(), "../../etc/passwd", nil, common.ErrorInvalidRequest},
		{"storage down", key.Hex(), id, common.ErrorStorage, common.ErrorStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store.getErr = tt.getErr
			doc, err := p.Retrieve(context.Background(), tt.key, tt.id)
			assert.Nil(t, doc)
			assert.ErrorIs(t, err, tt.want)
			assertScratchEmpty(t, scratch)
		})
	}
}

func TestPipeline_Store_TooLarge(t *testing.T) {
	p, store, scratch := newTestPipeline(t, Config{MaxUploadBytes: 1024})

	_, err := p.Store(context.Background(), "big.bin", bytes.NewReader(make([]byte, 1025)))
	assert.ErrorIs(t, err, common.ErrorTooLarge)
	assert.Empty(t, store.objects)
	assertScratchEmpty(t, scratch)

	_, err = p.Store(context.Background(), "ok.bin", bytes.NewReader(make([]byte, 1024)))
	assert.NoError(t, err)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestPipeline_Store_SourceFailure(t *testing.T) {
	p, store, scratch := newTestPipeline(t, Config{})

	_, err := p.Store(context.Background(), "x", failingReader{})
	assert.ErrorIs(t, err, common.ErrorStaging)
	assert.Empty(t, store.objects)
	assertScratchEmpty(t, scratch)
}

func TestPipeline_Store_StorageFailure(t *testing.T) {
	p, store, scratch := newTestPipeline(t, Config{})
	store.putErr = func(int) error { return common.ErrorStorage }

	receipt, err := p.Store(context.Background(), "x", strings.NewReader("payload"))
	assert.ErrorIs(t, err, common.ErrorStorage)
	assert.Empty(t, receipt.ID)
	assert.Nil(t, receipt.Key)
	assertScratchEmpty(t, scratch)
}

func TestPipeline_Store_RetriesOnCollision(t *testing.T) {
	p, store, scratch := newTestPipeline(t, Config{})
	store.putErr = func(call int) error {
		if call < 3 {
			return common.ErrorAlreadyExists
		}
		return nil
	}

	receipt, err := p.Store(context.Background(), "x", strings.NewReader("payload"))
	require.NoError(t, err)
	assert.Equal(t, 3, store.putCalls)

	doc, err := p.Retrieve(context.Background(), receipt.Key.Hex(), receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), doc.Data)
	assertScratchEmpty(t, scratch)
}

func TestPipeline_Store_GivesUpAfterCollisions(t *testing.T) {
	p, store, scratch := newTestPipeline(t, Config{})
	store.putErr = func(int) error { return common.ErrorAlreadyExists }

	_, err := p.Store(context.Background(), "x", strings.NewReader("payload"))
	assert.ErrorIs(t, err, common.ErrorStorage)
	assert.Equal(t, idAttempts, store.putCalls)
	assertScratchEmpty(t, scratch)
}

// cancelingReader cancels its context after the first read.
type cancelingReader struct {
	r      io.Reader
	cancel context.CancelFunc
}

func (c *cancelingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.cancel()
	return n, err
}

func TestPipeline_Cancellation(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		p, store, scratch := newTestPipeline(t, Config{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := p.Store(ctx, "x", strings.NewReader("payload"))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, store.objects)
		assertScratchEmpty(t, scratch)
	})

	t.Run("during staging", func(t *testing.T) {
		p, store, scratch := newTestPipeline(t, Config{})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		src := &cancelingReader{r: bytes.NewReader(randomBytes(t, 10*1024)), cancel: cancel}
		_, err := p.Store(ctx, "x", src)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, store.objects)
		assertScratchEmpty(t, scratch)
	})

	t.Run("retrieve", func(t *testing.T) {
		p, _, scratch := newTestPipeline(t, Config{})
		receipt, err := p.Store(context.Background(), "x", strings.NewReader("payload"))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = p.Retrieve(ctx, receipt.Key.Hex(), receipt.ID)
		assert.ErrorIs(t, err, context.Canceled)
		assertScratchEmpty(t, scratch)
	})
}

func TestPipeline_ScratchUnavailable(t *testing.T) {
	dir := t.TempDir()
	scratch, err := filex.NewScratch(dir + "/scratch")
	require.NoError(t, err)
	p := NewPipeline(newMemStore(), scratch, nil, Config{})

	require.NoError(t, os.RemoveAll(scratch.Dir()))

	_, err = p.Store(context.Background(), "x", strings.NewReader("payload"))
	assert.ErrorIs(t, err, common.ErrorStaging)
}

func TestReceipt_LogValueRedactsKey(t *testing.T) {
	key, err := cryptox.GenerateKey()
	require.NoError(t, err)
	r := Receipt{Key: key, ID: "0123456789abcdef0123456789abcdef"}

	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("stored", "receipt", r)

	assert.Contains(t, buf.String(), r.ID)
	assert.NotContains(t, buf.String(), key.Hex())
	assert.Contains(t, buf.String(), "[redacted]")
}
