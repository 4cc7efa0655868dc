package auth

import (
	"strconv"

	apperrors "github.com/greenfield-shield/authd/errors"
	"github.com/greenfield-shield/authd/token"
	"github.com/greenfield-shield/authd/user"
)

// Principal is the authenticated caller derived from a verified access
// token. It lives for one request.
type Principal struct {
	UserID uint
	Email  string
	Role   user.Role
}

// Authenticate derives a Principal from a bearer token. It fails with
// InvalidToken when the token is absent, fails verification, or is not an
// access token.
func (s *Service) Authenticate(bearerToken string) (*Principal, error) {
	if bearerToken == "" {
		return nil, apperrors.InvalidToken()
	}

	claims, err := s.tokens.Verify(bearerToken)
	if err != nil || claims.Kind != token.KindAccess {
		return nil, apperrors.InvalidToken()
	}

	id, err := parseUserID(claims.Subject)
	if err != nil {
		return nil, apperrors.InvalidToken()
	}

	return &Principal{
		UserID: id,
		Email:  claims.Email,
		Role:   user.Role(claims.Role),
	}, nil
}

// Authorize fails with AccessDenied unless the principal's role is a member
// of the allowed set. It is always called after Authenticate, never on an
// unauthenticated principal.
func Authorize(p *Principal, allowed ...user.Role) error {
	if p == nil {
		return apperrors.InvalidToken()
	}
	for _, role := range allowed {
		if p.Role == role {
			return nil
		}
	}

	names := make([]string, len(allowed))
	for i, role := range allowed {
		names[i] = string(role)
	}
	return apperrors.RoleRequired(names)
}

func parseUserID(subject string) (uint, error) {
	id, err := strconv.ParseUint(subject, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
