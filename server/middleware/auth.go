package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/greenfield-shield/authd/auth"
	apperrors "github.com/greenfield-shield/authd/errors"
	"github.com/greenfield-shield/authd/user"
)

// Authenticate returns a Gin middleware that verifies the bearer access token
// and stores the resulting principal on the request context. Requests without
// a valid access token are rejected with 401.
func Authenticate(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svc.Authenticate(bearerToken(c.GetHeader("Authorization")))
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// RequireRole returns a Gin middleware that rejects requests whose principal
// is not a member of the allowed role set. It must run after Authenticate.
func RequireRole(allowed ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := auth.PrincipalFromContext(c.Request.Context())
		if err := auth.Authorize(p, allowed...); err != nil {
			abortWithError(c, err)
			return
		}
		c.Next()
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header value, returning "" for any other shape.
func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortWithError(c *gin.Context, err error) {
	if appErr, ok := apperrors.AsAppError(err); ok {
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, apperrors.Internal(err).ToResponse())
}
