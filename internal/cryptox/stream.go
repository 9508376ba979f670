package cryptox

import (
	"bufio"
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/common"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Envelope layout (big endian):
//
//	magic "SFS1" | suite u8 | chunk size u32 | salt [32]
//	records: final u8 | nonce | sealed length u32 | sealed
//
// The content key is HKDF-SHA256(key, salt, hkdfInfo). Every record is
// sealed with AAD = header || sequence u64 || final u8, and the stream must
// end with exactly one final record.
const (
	magic      = "SFS1"
	saltSize   = 32
	headerSize = len(magic) + 1 + 4 + saltSize
	hkdfInfo   = "sfs-object-encryption"

	DefaultChunkSize = 64 * 1024
	MinChunkSize     = 1024
	MaxChunkSize     = 4 * 1024 * 1024
)

// Suite selects the AEAD used for an envelope.
type Suite uint8

const (
	SuiteAESGCM            Suite = 1
	SuiteXChaCha20Poly1305 Suite = 2
)

// ParseSuite maps config names to suites. The empty string means AES-GCM.
func ParseSuite(name string) (Suite, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "aes-gcm", "aes-256-gcm":
		return SuiteAESGCM, nil
	case "xchacha20poly1305", "xchacha20-poly1305":
		return SuiteXChaCha20Poly1305, nil
	default:
		return 0, fmt.Errorf("unknown cipher suite %q", name)
	}
}

func (s Suite) String() string {
	switch s {
	case SuiteAESGCM:
		return "aes-gcm"
	case SuiteXChaCha20Poly1305:
		return "xchacha20poly1305"
	default:
		return fmt.Sprintf("suite(%d)", uint8(s))
	}
}

type options struct {
	suite     Suite
	chunkSize int
}

// Option tunes Encrypt.
type Option func(*options)

func WithSuite(s Suite) Option { return func(o *options) { o.suite = s } }

func WithChunkSize(n int) Option { return func(o *options) { o.chunkSize = n } }

func newAEAD(suite Suite, key []byte) (cipher.AEAD, error) {
	switch suite {
	case SuiteAESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case SuiteXChaCha20Poly1305:
		return chacha20poly1305.NewX(key)
	default:
		return nil, fmt.Errorf("unsupported suite %d", suite)
	}
}

func deriveContentKey(key Key, salt []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, key, salt, []byte(hkdfInfo))
	ck := make([]byte, KeySize)
	if _, err := io.ReadFull(r, ck); err != nil {
		return nil, err
	}
	return ck, nil
}

func recordAAD(header []byte, seq uint64, final bool) []byte {
	aad := make([]byte, len(header)+9)
	copy(aad, header)
	binary.BigEndian.PutUint64(aad[len(header):], seq)
	if final {
		aad[len(aad)-1] = 1
	}
	return aad
}

// Encrypt reads plaintext from src until EOF and writes the envelope to dst.
func Encrypt(dst io.Writer, src io.Reader, key Key, opts ...Option) error {
	o := options{suite: SuiteAESGCM, chunkSize: DefaultChunkSize}
	for _, fn := range opts {
		fn(&o)
	}
	if len(key) != KeySize {
		return fmt.Errorf("%w: key must be %d bytes", common.ErrorEncryption, KeySize)
	}
	if o.chunkSize < MinChunkSize || o.chunkSize > MaxChunkSize {
		return fmt.Errorf("%w: chunk size %d out of range", common.ErrorEncryption, o.chunkSize)
	}

	header := make([]byte, headerSize)
	copy(header, magic)
	header[len(magic)] = byte(o.suite)
	binary.BigEndian.PutUint32(header[len(magic)+1:], uint32(o.chunkSize))
	salt := header[headerSize-saltSize:]
	if _, err := io.ReadFull(randReader, salt); err != nil {
		return fmt.Errorf("%w: %w", common.ErrorEncryption, err)
	}

	contentKey, err := deriveContentKey(key, salt)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorEncryption, err)
	}
	defer common.WipeByteArray(contentKey)

	aead, err := newAEAD(o.suite, contentKey)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorEncryption, err)
	}

	if _, err := dst.Write(header); err != nil {
		return fmt.Errorf("%w: write header: %w", common.ErrorEncryption, err)
	}

	br := bufio.NewReaderSize(src, o.chunkSize)
	plain := make([]byte, o.chunkSize)
	nonce := make([]byte, aead.NonceSize())
	var sealed []byte
	var lenBuf [4]byte

	for seq := uint64(0); ; seq++ {
		n, err := io.ReadFull(br, plain)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: read plaintext: %w", common.ErrorEncryption, err)
		}
		final := n < o.chunkSize
		if !final {
			if _, perr := br.Peek(1); errors.Is(perr, io.EOF) {
				final = true
			} else if perr != nil {
				return fmt.Errorf("%w: read plaintext: %w", common.ErrorEncryption, perr)
			}
		}

		if _, err := io.ReadFull(randReader, nonce); err != nil {
			return fmt.Errorf("%w: %w", common.ErrorEncryption, err)
		}
		sealed = aead.Seal(sealed[:0], nonce, plain[:n], recordAAD(header, seq, final))
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(sealed)))

		flag := []byte{0}
		if final {
			flag[0] = 1
		}
		for _, part := range [][]byte{flag, nonce, lenBuf[:], sealed} {
			if _, err := dst.Write(part); err != nil {
				return fmt.Errorf("%w: write record: %w", common.ErrorEncryption, err)
			}
		}

		if final {
			common.WipeByteArray(plain)
			return nil
		}
	}
}

// Decrypt reads an envelope from src and writes the plaintext to dst one
// authenticated chunk at a time. Any defect of the envelope or a wrong key
// yields common.ErrorDecryption without further detail. A caller that must
// not expose partial plaintext has to buffer dst until Decrypt returns nil.
func Decrypt(dst io.Writer, src io.Reader, key Key) error {
	if len(key) != KeySize {
		return common.ErrorDecryption
	}

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(src, header); err != nil {
		return common.ErrorDecryption
	}
	if !bytes.Equal(header[:len(magic)], []byte(magic)) {
		return common.ErrorDecryption
	}
	suite := Suite(header[len(magic)])
	chunkSize := int(binary.BigEndian.Uint32(header[len(magic)+1:]))
	if chunkSize < MinChunkSize || chunkSize > MaxChunkSize {
		return common.ErrorDecryption
	}

	contentKey, err := deriveContentKey(key, header[headerSize-saltSize:])
	if err != nil {
		return common.ErrorDecryption
	}
	defer common.WipeByteArray(contentKey)

	aead, err := newAEAD(suite, contentKey)
	if err != nil {
		return common.ErrorDecryption
	}

	br := bufio.NewReader(src)
	maxSealed := chunkSize + aead.Overhead()
	prefix := make([]byte, 1+aead.NonceSize()+4)
	sealed := make([]byte, maxSealed)
	var plain []byte

	for seq := uint64(0); ; seq++ {
		if _, err := io.ReadFull(br, prefix); err != nil {
			return common.ErrorDecryption
		}
		flag := prefix[0]
		if flag > 1 {
			return common.ErrorDecryption
		}
		nonce := prefix[1 : 1+aead.NonceSize()]
		length := int(binary.BigEndian.Uint32(prefix[1+aead.NonceSize():]))
		if length < aead.Overhead() || length > maxSealed {
			return common.ErrorDecryption
		}
		if _, err := io.ReadFull(br, sealed[:length]); err != nil {
			return common.ErrorDecryption
		}

		final := flag == 1
		plain, err = aead.Open(plain[:0], nonce, sealed[:length], recordAAD(header, seq, final))
		if err != nil {
			return common.ErrorDecryption
		}
		if !final && len(plain) != chunkSize {
			return common.ErrorDecryption
		}

		if final {
			if _, err := br.ReadByte(); !errors.Is(err, io.EOF) {
				return common.ErrorDecryption
			}
		}

		if _, err := dst.Write(plain); err != nil {
			return fmt.Errorf("write plaintext: %w", err)
		}
		if final {
			common.WipeByteArray(plain)
			return nil
		}
	}
}
