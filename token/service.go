// Package token issues and verifies the service's signed bearer tokens.
//
// Tokens are JWTs signed with a process-wide HMAC key. Access tokens carry
// {sub, email, role, type="access", exp}; refresh tokens carry
// {sub, email, type="refresh", exp} with a materially longer lifetime.
// Verification is pure and stateless: no I/O, safe for concurrent use.
package token

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the single failure signal from Verify. Malformed
// tokens, bad signatures, wrong algorithms, and expired tokens all map to
// it: callers (and attackers) cannot distinguish the causes.
var ErrInvalidToken = errors.New("token: invalid token")

// Service issues and verifies signed tokens. Immutable after construction.
type Service struct {
	cfg Config
}

// NewService creates a token service from configuration.
func NewService(cfg Config) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Service{cfg: cfg}, nil
}

// AccessTokenTTL returns the configured access-token lifetime.
func (s *Service) AccessTokenTTL() time.Duration {
	return s.cfg.AccessTokenTTL
}

// IssueAccess creates a signed access token carrying subject, email, and role.
func (s *Service) IssueAccess(subject, email, role string) (string, error) {
	return s.sign(&Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(s.cfg.AccessTokenTTL)),
			IssuedAt:  gojwt.NewNumericDate(time.Now()),
		},
		Email: email,
		Role:  role,
		Kind:  KindAccess,
	})
}

// IssueRefresh creates a signed refresh token carrying subject and email.
// Refresh tokens never embed a role claim.
func (s *Service) IssueRefresh(subject, email string) (string, error) {
	return s.sign(&Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(s.cfg.RefreshTokenTTL)),
			IssuedAt:  gojwt.NewNumericDate(time.Now()),
		},
		Email: email,
		Kind:  KindRefresh,
	})
}

// Verify checks signature and expiry in one pass. Any failure yields
// ErrInvalidToken. Kind checking is the caller's responsibility.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := gojwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		gojwt.WithValidMethods([]string{s.cfg.signingMethod().Alg()}),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) sign(claims *Claims) (string, error) {
	t := gojwt.NewWithClaims(s.cfg.signingMethod(), claims)
	signed, err := t.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// keyFunc is the jwt.Keyfunc used during token parsing.
func (s *Service) keyFunc(t *gojwt.Token) (interface{}, error) {
	if t.Method.Alg() != s.cfg.signingMethod().Alg() {
		return nil, fmt.Errorf("token: unexpected signing method: %s", t.Method.Alg())
	}
	return []byte(s.cfg.Secret), nil
}
