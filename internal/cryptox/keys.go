// Package cryptox holds the cryptographic primitives of the exchange
// pipeline: per-object key generation, random object identifiers, the
// chunked AEAD envelope used for stored objects, and password hashing for
// the account layer.
package cryptox

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/common"
)

const (
	// KeySize is the length of an EncryptionKey in bytes (256 bits).
	KeySize = 32
	// ObjectIDSize is the number of random bytes behind an object identifier.
	ObjectIDSize = 16
)

// randReader is the entropy source for keys, identifiers, salts and nonces.
var randReader io.Reader = rand.Reader

// Key is a per-object symmetric secret. Its String and LogValue forms are
// redacted; Hex is the only way to render the secret.
type Key []byte

// GenerateKey returns a fresh random key. A failing random source is
// reported as common.ErrorEntropy and the caller must not continue.
func GenerateKey() (Key, error) {
	k := make([]byte, KeySize)
	if _, err := io.ReadFull(randReader, k); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorEntropy, err)
	}
	return Key(k), nil
}

// ParseKey decodes the hex form handed to the owner.
func ParseKey(s string) (Key, error) {
	if len(s) != KeySize*2 {
		return nil, fmt.Errorf("%w: malformed key", common.ErrorInvalidRequest)
	}
	k, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed key", common.ErrorInvalidRequest)
	}
	return Key(k), nil
}

// Hex returns the external form of the key.
func (k Key) Hex() string { return hex.EncodeToString(k) }

func (k Key) String() string { return "[redacted]" }

func (k Key) LogValue() slog.Value { return slog.StringValue("[redacted]") }

// Wipe zeroes the key material in place.
func (k Key) Wipe() { common.WipeByteArray(k) }

// NewObjectID returns a random identifier: ObjectIDSize bytes from the same
// source as GenerateKey, hex encoded.
func NewObjectID() (string, error) {
	b := make([]byte, ObjectIDSize)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorEntropy, err)
	}
	return hex.EncodeToString(b), nil
}

// ValidateObjectID accepts exactly the shape NewObjectID produces.
func ValidateObjectID(id string) error {
	if len(id) != ObjectIDSize*2 {
		return fmt.Errorf("%w: malformed object id", common.ErrorInvalidRequest)
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("%w: malformed object id", common.ErrorInvalidRequest)
		}
	}
	return nil
}
