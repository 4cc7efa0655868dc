package token

import (
	"strings"
	"testing"
	"time"
)

func newTestService(t *testing.T, cfg Config) *Service {
	t.Helper()
	if cfg.Secret == "" {
		cfg.Secret = "test-secret-key"
	}
	svc, err := NewService(cfg)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func TestNewServiceRequiresSecret(t *testing.T) {
	if _, err := NewService(Config{}); err == nil {
		t.Error("expected error for missing secret")
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestService(t, Config{AccessTokenTTL: time.Minute})

	signed, err := svc.IssueAccess("42", "farmer@example.com", "farmer")
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}
	if signed == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := svc.Verify(signed)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Subject != "42" {
		t.Errorf("expected subject 42, got %q", claims.Subject)
	}
	if claims.UserID() != "42" {
		t.Errorf("expected UserID 42, got %q", claims.UserID())
	}
	if claims.Email != "farmer@example.com" {
		t.Errorf("expected email farmer@example.com, got %q", claims.Email)
	}
	if claims.Role != "farmer" {
		t.Errorf("expected role farmer, got %q", claims.Role)
	}
	if claims.Kind != KindAccess {
		t.Errorf("expected kind access, got %q", claims.Kind)
	}
}

func TestRefreshTokenCarriesNoRole(t *testing.T) {
	svc := newTestService(t, Config{})

	signed, err := svc.IssueRefresh("7", "officer@example.com")
	if err != nil {
		t.Fatalf("IssueRefresh failed: %v", err)
	}

	claims, err := svc.Verify(signed)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Kind != KindRefresh {
		t.Errorf("expected kind refresh, got %q", claims.Kind)
	}
	if claims.Role != "" {
		t.Errorf("refresh token must not carry a role, got %q", claims.Role)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	svc := newTestService(t, Config{AccessTokenTTL: time.Nanosecond})

	signed, err := svc.IssueAccess("1", "a@b.c", "farmer")
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	if _, err := svc.Verify(signed); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyTamperedToken(t *testing.T) {
	svc := newTestService(t, Config{})

	signed, err := svc.IssueAccess("1", "a@b.c", "admin")
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}

	parts := strings.Split(signed, ".")
	if len(parts) != 3 {
		t.Fatalf("expected a three-part JWT, got %d parts", len(parts))
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	if _, err := svc.Verify(tampered); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for tampered signature, got %v", err)
	}
}

func TestVerifyWrongKey(t *testing.T) {
	issuer := newTestService(t, Config{Secret: "key-one"})
	verifier := newTestService(t, Config{Secret: "key-two"})

	signed, err := issuer.IssueAccess("1", "a@b.c", "farmer")
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}

	if _, err := verifier.Verify(signed); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for wrong key, got %v", err)
	}
}

func TestVerifyFailuresAreUniform(t *testing.T) {
	svc := newTestService(t, Config{})

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"two parts", "aaaa.bbbb"},
		{"random parts", "aaaa.bbbb.cccc"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			claims, err := svc.Verify(tc.token)
			if err != ErrInvalidToken {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
			if claims != nil {
				t.Error("expected nil claims on failure")
			}
		})
	}
}

func TestVerifyRejectsForeignAlgorithm(t *testing.T) {
	// A token signed under HS512 must not verify against an HS256 service
	// even with the same secret.
	hs512 := newTestService(t, Config{Secret: "shared", Method: HS512})
	hs256 := newTestService(t, Config{Secret: "shared", Method: HS256})

	signed, err := hs512.IssueAccess("1", "a@b.c", "farmer")
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}

	if _, err := hs256.Verify(signed); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for algorithm mismatch, got %v", err)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Secret: "s"}
	cfg.ApplyDefaults()

	if cfg.Method != HS256 {
		t.Errorf("expected default method HS256, got %s", cfg.Method)
	}
	if cfg.AccessTokenTTL != 30*time.Minute {
		t.Errorf("expected default access TTL 30m, got %s", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 7*24*time.Hour {
		t.Errorf("expected default refresh TTL 168h, got %s", cfg.RefreshTokenTTL)
	}
}
