package models

import "time"

// Session is a server-side login. The session JWT carries its ID; deleting
// the row revokes the token before it expires.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
