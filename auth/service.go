// Package auth orchestrates login, registration, token refresh, and
// password changes on top of the credential store, the password hasher,
// and the token service.
//
// All operations are synchronous request/response transactions. The service
// holds no mutable state after construction and is safe for concurrent use;
// concurrent operations on the same user race at the storage layer and are
// resolved by its transaction guarantees.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/greenfield-shield/authd/errors"
	"github.com/greenfield-shield/authd/logger"
	"github.com/greenfield-shield/authd/observability"
	"github.com/greenfield-shield/authd/password"
	"github.com/greenfield-shield/authd/token"
	"github.com/greenfield-shield/authd/user"
)

// Service implements the authentication core.
type Service struct {
	store  user.Store
	hasher *password.Hasher
	tokens *token.Service
	log    *logger.Logger
}

// NewService wires the authentication core.
func NewService(store user.Store, hasher *password.Hasher, tokens *token.Service, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		log:    log.WithComponent("auth"),
	}
}

// Session is the result of a successful login or registration.
type Session struct {
	User         *user.User
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access-token lifetime in seconds.
	ExpiresIn int
}

// Login authenticates by email and password and issues a token pair.
//
// When the email is unknown and roleHint is an elevated role (officer or
// admin), a new active account is provisioned with the supplied password and
// the hinted role. This is a deliberate convenience for staff onboarding;
// the farmer role never auto-provisions. Unknown email and wrong password
// are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, plaintext string, roleHint user.Role) (*Session, error) {
	ctx, span := observability.StartSpan(ctx, "auth.Login")
	defer span.End()

	u, err := s.store.ByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, user.ErrNotFound):
		if !roleHint.Elevated() {
			return nil, apperrors.InvalidCredentials()
		}
		u, err = s.provision(ctx, email, plaintext, roleHint)
		if err != nil {
			return nil, err
		}
	default:
		return nil, apperrors.Internal(err)
	}

	match, needsRehash := s.hasher.Verify(plaintext, u.PasswordHash)
	if !match {
		return nil, apperrors.InvalidCredentials()
	}
	if needsRehash {
		// Legacy-format hash verified; rehashing is a caller-visible
		// followup, never done implicitly here.
		s.log.Warn("Legacy password hash verified, rehash recommended", logger.Fields(
			logger.FieldUserID, u.ID,
		))
	}

	if !u.IsActive {
		return nil, apperrors.AccessDenied("User account is inactive.")
	}

	// Best-effort: a failed timestamp write must not fail the login.
	if err := s.store.UpdateLastLogin(ctx, u.ID, time.Now().UTC()); err != nil {
		s.log.Warn("Failed to update last login", logger.ErrorFields("login", err))
	}

	return s.newSession(u)
}

// RegisterParams carries the registration request fields.
type RegisterParams struct {
	Email      string
	FullName   string
	Password   string
	Role       user.Role
	Phone      *string
	Address    *string
	Department *string
	OfficerID  *string
}

// Register creates a new user and issues a token pair, failing when the
// email or the officer id is already taken.
func (s *Service) Register(ctx context.Context, p RegisterParams) (*Session, error) {
	ctx, span := observability.StartSpan(ctx, "auth.Register")
	defer span.End()

	role := p.Role
	if role == "" {
		role = user.RoleFarmer
	}
	if !role.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("Invalid role: %s", p.Role))
	}

	if _, err := s.store.ByEmail(ctx, p.Email); err == nil {
		return nil, apperrors.UserAlreadyExists()
	} else if !errors.Is(err, user.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}

	if p.OfficerID != nil && *p.OfficerID != "" {
		if _, err := s.store.ByOfficerID(ctx, *p.OfficerID); err == nil {
			return nil, apperrors.UserAlreadyExists()
		} else if !errors.Is(err, user.ErrNotFound) {
			return nil, apperrors.Internal(err)
		}
	}

	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	u := &user.User{
		Email:        p.Email,
		FullName:     p.FullName,
		PasswordHash: hash,
		Role:         role,
		Phone:        p.Phone,
		Address:      p.Address,
		Department:   p.Department,
		OfficerID:    p.OfficerID,
		IsActive:     true,
	}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			return nil, apperrors.UserAlreadyExists()
		}
		return nil, apperrors.Internal(err)
	}

	s.log.Info("User registered", logger.Fields(
		logger.FieldUserID, u.ID,
		"role", string(u.Role),
	))

	return s.newSession(u)
}

// RefreshResult is the result of a successful token refresh. No new refresh
// token is issued; refresh tokens are not rotated.
type RefreshResult struct {
	AccessToken string
	// ExpiresIn is the access-token lifetime in seconds.
	ExpiresIn int
}

// Refresh verifies a refresh token and issues a new access token. The role
// is restored by re-reading the user record, since refresh tokens never
// carry a role claim. A user removed since the token was issued fails with
// the same error as a bad token; a deactivated user is denied access.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	ctx, span := observability.StartSpan(ctx, "auth.Refresh")
	defer span.End()

	claims, err := s.tokens.Verify(refreshToken)
	if err != nil || claims.Kind != token.KindRefresh {
		return nil, apperrors.InvalidCredentials()
	}

	id, err := parseUserID(claims.Subject)
	if err != nil {
		return nil, apperrors.InvalidCredentials()
	}

	u, err := s.store.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, apperrors.InvalidCredentials()
		}
		return nil, apperrors.Internal(err)
	}
	if !u.IsActive {
		return nil, apperrors.AccessDenied("User account is inactive.")
	}

	access, err := s.tokens.IssueAccess(claims.Subject, u.Email, string(u.Role))
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	return &RefreshResult{
		AccessToken: access,
		ExpiresIn:   int(s.tokens.AccessTokenTTL().Seconds()),
	}, nil
}

// ChangePassword verifies the old password and stores a hash of the new
// one. Previously issued tokens remain valid until natural expiry.
func (s *Service) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword, confirmPassword string) error {
	ctx, span := observability.StartSpan(ctx, "auth.ChangePassword")
	defer span.End()

	// The transport validates the confirmation too; the core must not
	// assume it did.
	if newPassword != confirmPassword {
		return apperrors.Validation("Passwords do not match.")
	}

	u, err := s.store.ByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return apperrors.InvalidCredentials()
		}
		return apperrors.Internal(err)
	}

	match, _ := s.hasher.Verify(oldPassword, u.PasswordHash)
	if !match {
		return apperrors.InvalidCredentials()
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.Validation(err.Error())
	}

	if err := s.store.UpdatePassword(ctx, userID, hash); err != nil {
		return apperrors.Internal(err)
	}

	s.log.Info("Password changed", logger.Fields(logger.FieldUserID, userID))
	return nil
}

// Officers lists all officer accounts.
func (s *Service) Officers(ctx context.Context) ([]user.User, error) {
	officers, err := s.store.ListOfficers(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return officers, nil
}

// provision creates an account for an elevated role seen at login for the
// first time. The display name is derived from the email local part.
func (s *Service) provision(ctx context.Context, email, plaintext string, role user.Role) (*user.User, error) {
	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return nil, apperrors.InvalidCredentials().WithCause(err)
	}

	u := &user.User{
		Email:        email,
		FullName:     displayNameFromEmail(email),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			// Lost a provisioning race; use the record that won.
			return s.lookupAfterRace(ctx, email)
		}
		return nil, apperrors.Internal(err)
	}

	s.log.Info("Auto-provisioned staff account", logger.Fields(
		logger.FieldUserID, u.ID,
		"role", string(role),
	))
	return u, nil
}

func (s *Service) lookupAfterRace(ctx context.Context, email string) (*user.User, error) {
	u, err := s.store.ByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return u, nil
}

func (s *Service) newSession(u *user.User) (*Session, error) {
	subject := fmt.Sprint(u.ID)

	access, err := s.tokens.IssueAccess(subject, u.Email, string(u.Role))
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	refresh, err := s.tokens.IssueRefresh(subject, u.Email)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	return &Session{
		User:         u,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.tokens.AccessTokenTTL().Seconds()),
	}, nil
}

// displayNameFromEmail turns the email local part into a display name:
// dots become spaces and each word is title-cased.
func displayNameFromEmail(email string) string {
	local := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		local = email[:at]
	}

	words := strings.Split(strings.ReplaceAll(local, ".", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
