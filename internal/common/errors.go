// Package common defines shared constants and sentinel errors used across
// the server, the pipeline and the command line tool. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository/store-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	ErrorStorage       = errors.New("storage unavailable")

	// Pipeline errors.
	ErrorStaging    = errors.New("staging failed")
	ErrorEncryption = errors.New("encryption failed")
	ErrorDecryption = errors.New("decryption failed")
	ErrorEntropy    = errors.New("random source failure")
	ErrorTooLarge   = errors.New("upload too large")

	// Notification channel errors.
	ErrorNotification = errors.New("notification failed")

	// Service-level errors (generic/internal flow control).
	ErrorInternal       = errors.New("internal error")
	ErrorUnauthorized   = errors.New("unauthorized")
	ErrorInvalidRequest = errors.New("invalid request")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Session lifecycle errors.
	ErrTokenExpired = errors.New("token expired")
)
