package auth

import (
	"context"
)

// contextKey is an unexported type to prevent collisions with other packages.
type contextKey struct{}

var principalKey = contextKey{}

// WithPrincipal stores the authenticated principal in the context.
// Middleware calls this after Authenticate succeeds.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext retrieves the authenticated principal, or nil when
// the request was not authenticated.
func PrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(principalKey).(*Principal); ok {
		return p
	}
	return nil
}
