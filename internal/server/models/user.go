// Package models holds the account records persisted by the repositories.
package models

import "time"

// User is a registered uploader. PasswordHash is argon2id over the
// password with Salt.
type User struct {
	ID           string
	Email        string
	Salt         []byte
	PasswordHash []byte
	CreatedAt    time.Time
}
