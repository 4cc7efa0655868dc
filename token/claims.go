package token

import (
	gojwt "github.com/golang-jwt/jwt/v5"
)

// Kind distinguishes access tokens from refresh tokens. Every issued token
// carries exactly one kind, and callers must check it: a structurally valid
// refresh token is never acceptable where an access token is required.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the JWT payload for both token kinds. Role is only present on
// access tokens; refresh tokens never carry one.
type Claims struct {
	gojwt.RegisteredClaims

	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	Kind  Kind   `json:"type"`
}

// UserID returns the subject claim (the string-encoded user id).
func (c *Claims) UserID() string {
	return c.Subject
}
