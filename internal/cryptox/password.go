package cryptox

import (
	"crypto/subtle"
	"io"

	"golang.org/x/crypto/argon2"
)

// SaltSize is the length of the per-user password salt.
const SaltSize = 16

// HashPassword derives an argon2id hash (t=1, m=64MiB, p=4, 32 bytes).
func HashPassword(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// VerifyPassword recomputes the hash and compares it in constant time.
func VerifyPassword(password, salt, hash []byte) bool {
	return subtle.ConstantTimeCompare(HashPassword(password, salt), hash) == 1
}

// NewSalt returns SaltSize random bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(randReader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}
