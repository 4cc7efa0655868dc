package server

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/greenfield-shield/authd/auth"
	apperrors "github.com/greenfield-shield/authd/errors"
	"github.com/greenfield-shield/authd/user"
	"github.com/greenfield-shield/authd/validation"
)

// Pinger reports backing-store liveness for the health endpoint.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handlers holds the HTTP handlers for the auth API.
type Handlers struct {
	auth    *auth.Service
	pinger  Pinger
	name    string
	version string
}

// NewHandlers wires the handlers to the auth core and the health pinger.
func NewHandlers(authSvc *auth.Service, pinger Pinger, name, version string) *Handlers {
	return &Handlers{
		auth:    authSvc,
		pinger:  pinger,
		name:    name,
		version: version,
	}
}

// LoginRequest is the login request body. Role is an optional hint that only
// matters for staff auto-provisioning on first login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=farmer officer admin"`
}

// RegisterRequest is the registration request body. Department and OfficerID
// are only meaningful for officers.
type RegisterRequest struct {
	Email      string  `json:"email" validate:"required,email"`
	FullName   string  `json:"full_name" validate:"required"`
	Password   string  `json:"password" validate:"required,min=8"`
	Role       string  `json:"role" validate:"omitempty,oneof=farmer officer admin"`
	Phone      *string `json:"phone"`
	Address    *string `json:"address"`
	Department *string `json:"department"`
	OfficerID  *string `json:"officer_id"`
}

// RefreshRequest carries the refresh token in the body; no Authorization
// header is involved.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ChangePasswordRequest is the password change request body.
type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// TokenResponse is the issued token pair. RefreshToken is empty on refresh
// responses, which only reissue the access token.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// SessionResponse is the login/register response body.
type SessionResponse struct {
	User    *user.User    `json:"user"`
	Tokens  TokenResponse `json:"tokens"`
	Message string        `json:"message"`
}

// Login handles POST /auth/login.
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	session, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, user.Role(req.Role))
	if err != nil {
		RespondWithError(c, err)
		return
	}

	RespondOK(c, sessionResponse(session, "Login successful"))
}

// Register handles POST /auth/register.
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindAndValidate(c, &req) {
		return
	}

	session, err := h.auth.Register(c.Request.Context(), auth.RegisterParams{
		Email:      req.Email,
		FullName:   req.FullName,
		Password:   req.Password,
		Role:       user.Role(req.Role),
		Phone:      req.Phone,
		Address:    req.Address,
		Department: req.Department,
		OfficerID:  req.OfficerID,
	})
	if err != nil {
		RespondWithError(c, err)
		return
	}

	RespondCreated(c, sessionResponse(session, "Registration successful"))
}

// Refresh handles POST /auth/refresh.
func (h *Handlers) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		RespondWithError(c, err)
		return
	}

	RespondOK(c, TokenResponse{
		AccessToken: result.AccessToken,
		TokenType:   "bearer",
		ExpiresIn:   result.ExpiresIn,
	})
}

// ChangePassword handles POST /auth/change-password. The principal comes
// from the Authenticate middleware.
func (h *Handlers) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	p := auth.PrincipalFromContext(c.Request.Context())
	if p == nil {
		RespondWithError(c, apperrors.InvalidToken())
		return
	}

	err := h.auth.ChangePassword(c.Request.Context(), p.UserID, req.OldPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		RespondWithError(c, err)
		return
	}

	RespondOK(c, gin.H{"message": "Password changed successfully"})
}

// Officers handles GET /auth/officers. Role enforcement happens in the
// RequireRole middleware.
func (h *Handlers) Officers(c *gin.Context) {
	officers, err := h.auth.Officers(c.Request.Context())
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, officers)
}

// Root handles GET /: a service banner.
func (h *Handlers) Root(c *gin.Context) {
	RespondOK(c, gin.H{
		"service": h.name,
		"version": h.version,
	})
}

// Health handles GET /health, including a backing-store ping.
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	dbStatus := "up"
	code := 200
	if err := h.pinger.PingContext(ctx); err != nil {
		status = "unhealthy"
		dbStatus = "down"
		code = 503
	}

	c.JSON(code, gin.H{
		"status":   status,
		"service":  h.name,
		"database": dbStatus,
	})
}

// bindAndValidate decodes the JSON body and runs struct validation,
// responding with a 400 and reporting false on failure.
func bindAndValidate(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		RespondWithError(c, apperrors.Validation("Invalid request body: "+err.Error()))
		return false
	}
	if err := validation.Validate(req); err != nil {
		RespondWithError(c, err)
		return false
	}
	return true
}

func sessionResponse(s *auth.Session, message string) SessionResponse {
	return SessionResponse{
		User: s.User,
		Tokens: TokenResponse{
			AccessToken:  s.AccessToken,
			RefreshToken: s.RefreshToken,
			TokenType:    "bearer",
			ExpiresIn:    s.ExpiresIn,
		},
		Message: message,
	}
}
