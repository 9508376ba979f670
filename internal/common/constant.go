// Package common contains shared constants and sentinel errors.
package common

// SessionCookieName is the cookie that carries the session token issued on
// login.
const SessionCookieName = "sfs_session"

// AuthorizationHeaderName is the header clients may use instead of the
// session cookie ("Bearer <token>").
const AuthorizationHeaderName = "Authorization"
