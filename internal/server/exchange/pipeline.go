// Package exchange implements the upload and download flows of the service.
//
// Store stages the upload, encrypts it under a fresh key and persists the
// envelope under a fresh object id. Retrieve fetches the envelope, decrypts
// it and returns the original name and content. Every scratch file either
// flow creates is released before the call returns, whatever the outcome.
package exchange

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/common"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/cryptox"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/filex"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/logging"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/objectstore"
)

// idAttempts is how many object ids Store draws before giving up on
// collisions.
const idAttempts = 3

// Config tunes the pipeline.
type Config struct {
	MaxUploadBytes int64
	Suite          cryptox.Suite
	ChunkSize      int
}

// Receipt is what the uploader needs to get the file back. It is delivered
// out of band and never stored by the service.
type Receipt struct {
	Key cryptox.Key
	ID  string
}

// LogValue keeps the key out of logs.
func (r Receipt) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("object_id", r.ID),
		slog.String("key", "[redacted]"),
	)
}

// Document is a decrypted object.
type Document struct {
	Name string
	Data []byte
}

// Pipeline wires the scratch area, the cipher and the object store.
type Pipeline struct {
	store   objectstore.Store
	scratch *filex.Scratch
	log     logging.Logger
	cfg     Config
}

// NewPipeline returns a pipeline over store. Zero Config fields fall back
// to package defaults.
func NewPipeline(store objectstore.Store, scratch *filex.Scratch, log logging.Logger, cfg Config) *Pipeline {
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = cryptox.DefaultChunkSize
	}
	if cfg.Suite == 0 {
		cfg.Suite = cryptox.SuiteAESGCM
	}
	if log == nil {
		log = logging.Nop{}
	}
	return &Pipeline{
		store:   store,
		scratch: scratch,
		log:     log.With("module", "exchange"),
		cfg:     cfg,
	}
}

// Store encrypts src under a new key and persists it. The returned Receipt
// holds the only copy of the key.
func (p *Pipeline) Store(ctx context.Context, name string, src io.Reader) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	plain, releasePlain, err := p.scratch.Create("plain")
	defer releasePlain()
	if err != nil {
		return Receipt{}, err
	}

	if err := writeNameFrame(plain, BaseName(name)); err != nil {
		return Receipt{}, fmt.Errorf("%w: %w", common.ErrorStaging, err)
	}
	if err := p.stage(plain, src); err != nil {
		return Receipt{}, err
	}
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	key, err := cryptox.GenerateKey()
	if err != nil {
		return Receipt{}, err
	}

	sealed, releaseSealed, err := p.scratch.Create("sealed")
	defer releaseSealed()
	if err != nil {
		key.Wipe()
		return Receipt{}, err
	}

	if _, err := plain.Seek(0, io.SeekStart); err != nil {
		key.Wipe()
		return Receipt{}, fmt.Errorf("%w: %w", common.ErrorStaging, err)
	}
	err = cryptox.Encrypt(sealed, plain, key,
		cryptox.WithSuite(p.cfg.Suite),
		cryptox.WithChunkSize(p.cfg.ChunkSize))
	if err != nil {
		key.Wipe()
		return Receipt{}, err
	}
	releasePlain()

	size, err := sealed.Seek(0, io.SeekCurrent)
	if err != nil {
		key.Wipe()
		return Receipt{}, fmt.Errorf("%w: %w", common.ErrorStaging, err)
	}

	id, err := p.put(ctx, sealed, size)
	if err != nil {
		key.Wipe()
		return Receipt{}, err
	}

	receipt := Receipt{Key: key, ID: id}
	p.log.Info(ctx, "object stored", "receipt", receipt, "bytes", size)
	return receipt, nil
}

// stage copies the upload into f, enforcing MaxUploadBytes.
func (p *Pipeline) stage(f io.Writer, src io.Reader) error {
	limit := p.cfg.MaxUploadBytes
	if limit <= 0 {
		_, err := io.Copy(f, src)
		if err != nil {
			return fmt.Errorf("%w: %w", common.ErrorStaging, err)
		}
		return nil
	}

	n, err := io.Copy(f, io.LimitReader(src, limit+1))
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorStaging, err)
	}
	if n > limit {
		return fmt.Errorf("%w: upload exceeds %d bytes", common.ErrorTooLarge, limit)
	}
	return nil
}

// put stores the sealed file under a fresh id, drawing a new id when the
// store reports a collision.
func (p *Pipeline) put(ctx context.Context, sealed io.ReadSeeker, size int64) (string, error) {
	var lastErr error
	for attempt := 0; attempt < idAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		id, err := cryptox.NewObjectID()
		if err != nil {
			return "", err
		}
		if _, err := sealed.Seek(0, io.SeekStart); err != nil {
			return "", fmt.Errorf("%w: %w", common.ErrorStaging, err)
		}

		err = p.store.Put(ctx, id, sealed, size)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, common.ErrorAlreadyExists) {
			return "", err
		}
		p.log.Warn(ctx, "object id collision", "object_id", id, "attempt", attempt+1)
		lastErr = err
	}
	return "", fmt.Errorf("%w: no free object id after %d attempts: %w", common.ErrorStorage, idAttempts, lastErr)
}

// Retrieve fetches and decrypts the object id with the hex encoded key.
// Nothing is returned unless the whole object authenticated.
func (p *Pipeline) Retrieve(ctx context.Context, keyHex, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := cryptox.ParseKey(keyHex)
	if err != nil {
		return nil, err
	}
	defer key.Wipe()

	if err := cryptox.ValidateObjectID(id); err != nil {
		return nil, err
	}

	sealed, releaseSealed, err := p.scratch.Create("sealed")
	defer releaseSealed()
	if err != nil {
		return nil, err
	}

	if err := p.fetch(ctx, id, sealed); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	plain, releasePlain, err := p.scratch.Create("plain")
	defer releasePlain()
	if err != nil {
		return nil, err
	}

	if _, err := sealed.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorStaging, err)
	}
	if err := cryptox.Decrypt(plain, sealed, key); err != nil {
		if errors.Is(err, common.ErrorDecryption) {
			p.log.Warn(ctx, "object failed to decrypt", "object_id", id)
			return nil, common.ErrorDecryption
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorStaging, err)
	}
	releaseSealed()

	if _, err := plain.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorStaging, err)
	}
	name, err := readNameFrame(plain)
	if err != nil {
		return nil, err
	}

	var data bytes.Buffer
	if _, err := io.Copy(&data, plain); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorStaging, err)
	}

	p.log.Info(ctx, "object retrieved", "object_id", id, "bytes", data.Len())
	return &Document{Name: name, Data: data.Bytes()}, nil
}

// fetch copies the stored envelope into dst.
func (p *Pipeline) fetch(ctx context.Context, id string, dst io.Writer) error {
	rc, err := p.store.Get(ctx, id)
	if err != nil {
		return err
	}
	defer rc.Close()

	if _, err := io.Copy(dst, rc); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: read object: %w", common.ErrorStorage, err)
	}
	return nil
}
