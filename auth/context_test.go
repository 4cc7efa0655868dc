package auth

import (
	"context"
	"testing"

	"github.com/greenfield-shield/authd/user"
)

func TestPrincipalContextRoundTrip(t *testing.T) {
	p := &Principal{UserID: 7, Email: "x@example.com", Role: user.RoleAdmin}

	ctx := WithPrincipal(context.Background(), p)
	got := PrincipalFromContext(ctx)
	if got == nil {
		t.Fatal("expected principal in context")
	}
	if got.UserID != 7 || got.Role != user.RoleAdmin {
		t.Errorf("unexpected principal: %+v", got)
	}
}

func TestPrincipalFromEmptyContext(t *testing.T) {
	if p := PrincipalFromContext(context.Background()); p != nil {
		t.Errorf("expected nil principal, got %+v", p)
	}
}
