// Package auth issues and verifies the HS256 session tokens and carries the
// caller's identity through a request context.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/common"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID    string
	Email     string
	SessionID string
}

// Claims is the JWT payload: registered claims plus uid, email and sid.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"uid"`
	Email     string `json:"email"`
	SessionID string `json:"sid"`
}

// GenerateToken signs a token for id that expires at expiresAt.
func GenerateToken(id Identity, secretKey []byte, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID:    id.UserID,
		Email:     id.Email,
		SessionID: id.SessionID,
	})

	return token.SignedString(secretKey)
}

// ParseToken verifies tokenString and returns its identity. An expired
// token yields common.ErrTokenExpired; anything else wrong with it yields
// common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, common.ErrTokenExpired
		}
		return Identity{}, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" || claims.SessionID == "" {
		return Identity{}, common.ErrInvalidToken
	}

	return Identity{UserID: claims.UserID, Email: claims.Email, SessionID: claims.SessionID}, nil
}
