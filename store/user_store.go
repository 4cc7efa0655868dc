package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/greenfield-shield/authd/user"
)

// UserStore is the GORM-backed implementation of user.Store. Every method
// scopes a fresh session to the request context; sessions are not shared
// across requests and release their connection when the call returns.
type UserStore struct {
	db *DB
}

// NewUserStore creates a user store on top of an open database.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

var _ user.Store = (*UserStore)(nil)

// ByEmail returns the user with the given email, or user.ErrNotFound.
func (s *UserStore) ByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.first(ctx, "email = ?", email)
}

// ByID returns the user with the given id, or user.ErrNotFound.
func (s *UserStore) ByID(ctx context.Context, id uint) (*user.User, error) {
	return s.first(ctx, "id = ?", id)
}

// ByOfficerID returns the user with the given officer id, or user.ErrNotFound.
func (s *UserStore) ByOfficerID(ctx context.Context, officerID string) (*user.User, error) {
	return s.first(ctx, "officer_id = ?", officerID)
}

func (s *UserStore) first(ctx context.Context, query string, arg any) (*user.User, error) {
	var u user.User
	err := s.db.GormDB.WithContext(ctx).Where(query, arg).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("store: query user: %w", err)
	}
	return &u, nil
}

// Create inserts a new user record. Unique-constraint violations on email
// or officer id surface as user.ErrDuplicate.
func (s *UserStore) Create(ctx context.Context, u *user.User) error {
	err := s.db.GormDB.WithContext(ctx).Create(u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return user.ErrDuplicate
		}
		return fmt.Errorf("store: create user: %w", err)
	}
	return nil
}

// UpdateLastLogin sets the last-login timestamp for the user.
func (s *UserStore) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	err := s.db.GormDB.WithContext(ctx).
		Model(&user.User{}).
		Where("id = ?", id).
		Update("last_login", at).Error
	if err != nil {
		return fmt.Errorf("store: update last login: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored password hash for the user.
func (s *UserStore) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	err := s.db.GormDB.WithContext(ctx).
		Model(&user.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash).Error
	if err != nil {
		return fmt.Errorf("store: update password: %w", err)
	}
	return nil
}

// ListOfficers returns all users with the officer role.
func (s *UserStore) ListOfficers(ctx context.Context) ([]user.User, error) {
	return s.list(ctx, "role = ?", user.RoleOfficer)
}

// ListActive returns all active users.
func (s *UserStore) ListActive(ctx context.Context) ([]user.User, error) {
	return s.list(ctx, "is_active = ?", true)
}

func (s *UserStore) list(ctx context.Context, query string, arg any) ([]user.User, error) {
	var users []user.User
	err := s.db.GormDB.WithContext(ctx).Where(query, arg).Order("id").Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("store: list users: %w", err)
	}
	return users, nil
}
