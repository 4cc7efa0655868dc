package user

import (
	"context"
	"errors"
	"time"
)

// Store errors. Implementations must return these sentinels (possibly
// wrapped) so the auth core can branch without knowing the backend.
var (
	// ErrNotFound is returned by lookups when no record matches.
	ErrNotFound = errors.New("user: not found")
	// ErrDuplicate is returned by Create when a uniqueness constraint
	// (email or officer id) is violated.
	ErrDuplicate = errors.New("user: duplicate")
)

// Store persists user records. Each call owns an independent, short-lived
// handle to the backend; implementations must be safe for concurrent use.
// Concurrent writes for the same user race at the storage layer and are
// resolved by its transaction guarantees, not here.
type Store interface {
	// ByEmail returns the user with the given email, or ErrNotFound.
	ByEmail(ctx context.Context, email string) (*User, error)

	// ByID returns the user with the given id, or ErrNotFound.
	ByID(ctx context.Context, id uint) (*User, error)

	// ByOfficerID returns the user with the given externally issued officer
	// id, or ErrNotFound.
	ByOfficerID(ctx context.Context, officerID string) (*User, error)

	// Create inserts a new record and fills in server-assigned fields.
	// Returns ErrDuplicate when email or officer id is already taken.
	Create(ctx context.Context, u *User) error

	// UpdateLastLogin sets the last-login timestamp.
	UpdateLastLogin(ctx context.Context, id uint, at time.Time) error

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id uint, passwordHash string) error

	// ListOfficers returns all users with the officer role.
	ListOfficers(ctx context.Context) ([]User, error)

	// ListActive returns all active users.
	ListActive(ctx context.Context) ([]User, error)
}
