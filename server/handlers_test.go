package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/greenfield-shield/authd/auth"
	"github.com/greenfield-shield/authd/logger"
	"github.com/greenfield-shield/authd/password"
	"github.com/greenfield-shield/authd/token"
	"github.com/greenfield-shield/authd/user"
)

// fakeStore is an in-memory user.Store for handler tests.
type fakeStore struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]*user.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, byID: make(map[uint]*user.User)}
}

func (f *fakeStore) ByEmail(_ context.Context, email string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, user.ErrNotFound
}

func (f *fakeStore) ByID(_ context.Context, id uint) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, user.ErrNotFound
}

func (f *fakeStore) ByOfficerID(_ context.Context, officerID string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.OfficerID != nil && *u.OfficerID == officerID {
			clone := *u
			return &clone, nil
		}
	}
	return nil, user.ErrNotFound
}

func (f *fakeStore) Create(_ context.Context, u *user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return user.ErrDuplicate
		}
	}
	u.ID = f.nextID
	f.nextID++
	clone := *u
	f.byID[u.ID] = &clone
	return nil
}

func (f *fakeStore) UpdateLastLogin(_ context.Context, id uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

func (f *fakeStore) UpdatePassword(_ context.Context, id uint, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

func (f *fakeStore) ListOfficers(_ context.Context) ([]user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []user.User
	for _, u := range f.byID {
		if u.Role == user.RoleOfficer {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeStore) ListActive(_ context.Context) ([]user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []user.User
	for _, u := range f.byID {
		if u.IsActive {
			out = append(out, *u)
		}
	}
	return out, nil
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func newTestRouter(t *testing.T) (*gin.Engine, *fakeStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newFakeStore()
	hasher := password.New(password.Config{
		Argon2Time:    1,
		Argon2Memory:  8 * 1024,
		Argon2Threads: 1,
	})
	tokens, err := token.NewService(token.Config{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("token.NewService failed: %v", err)
	}
	svc := auth.NewService(store, hasher, tokens, logger.NewDefault("test"))

	engine := gin.New()
	h := NewHandlers(svc, fakePinger{}, "authd", "test")
	RegisterRoutes(engine, h, svc)
	return engine, store
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return out
}

func registerFarmer(t *testing.T, engine *gin.Engine, email, pw string) (access, refresh string) {
	t.Helper()

	rec := doJSON(t, engine, http.MethodPost, "/auth/register", map[string]any{
		"email":     email,
		"full_name": "Test Farmer",
		"password":  pw,
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	data := body["data"].(map[string]any)
	tokens := data["tokens"].(map[string]any)
	return tokens["access_token"].(string), tokens["refresh_token"].(string)
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rec)
	errBody, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
	return errBody["code"].(string)
}

func TestRegisterAndLoginFlow(t *testing.T) {
	engine, _ := newTestRouter(t)

	access, refresh := registerFarmer(t, engine, "farmer@example.com", "growing-season-9")
	if access == "" || refresh == "" {
		t.Fatal("expected non-empty token pair from register")
	}

	rec := doJSON(t, engine, http.MethodPost, "/auth/login", map[string]any{
		"email":    "farmer@example.com",
		"password": "growing-season-9",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	data := decodeBody(t, rec)["data"].(map[string]any)
	u := data["user"].(map[string]any)
	if u["email"] != "farmer@example.com" {
		t.Errorf("unexpected user email %v", u["email"])
	}
	if _, leaked := u["password_hash"]; leaked {
		t.Error("password hash leaked in response")
	}
	tokens := data["tokens"].(map[string]any)
	if tokens["token_type"] != "bearer" {
		t.Errorf("expected bearer token type, got %v", tokens["token_type"])
	}
}

func TestLoginWrongPassword(t *testing.T) {
	engine, _ := newTestRouter(t)
	registerFarmer(t, engine, "farmer@example.com", "growing-season-9")

	rec := doJSON(t, engine, http.MethodPost, "/auth/login", map[string]any{
		"email":    "farmer@example.com",
		"password": "wrong-password",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "INVALID_CREDENTIALS" {
		t.Errorf("expected INVALID_CREDENTIALS, got %s", code)
	}
}

func TestLoginValidation(t *testing.T) {
	engine, _ := newTestRouter(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing email", map[string]any{"password": "pw"}},
		{"bad email", map[string]any{"email": "not-an-email", "password": "pw"}},
		{"missing password", map[string]any{"email": "a@b.com"}},
		{"bad role", map[string]any{"email": "a@b.com", "password": "pw", "role": "superuser"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, engine, http.MethodPost, "/auth/login", tc.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	engine, _ := newTestRouter(t)
	registerFarmer(t, engine, "farmer@example.com", "growing-season-9")

	rec := doJSON(t, engine, http.MethodPost, "/auth/register", map[string]any{
		"email":     "farmer@example.com",
		"full_name": "Another Farmer",
		"password":  "different-pass-1",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "ALREADY_EXISTS" {
		t.Errorf("expected ALREADY_EXISTS, got %s", code)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	engine, _ := newTestRouter(t)
	_, refresh := registerFarmer(t, engine, "farmer@example.com", "growing-season-9")

	rec := doJSON(t, engine, http.MethodPost, "/auth/refresh", map[string]any{
		"refresh_token": refresh,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["access_token"] == "" {
		t.Error("expected a new access token")
	}
	if _, ok := data["refresh_token"]; ok {
		t.Error("refresh response must not reissue a refresh token")
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	engine, _ := newTestRouter(t)
	access, _ := registerFarmer(t, engine, "farmer@example.com", "growing-season-9")

	rec := doJSON(t, engine, http.MethodPost, "/auth/refresh", map[string]any{
		"refresh_token": access,
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "INVALID_CREDENTIALS" {
		t.Errorf("expected INVALID_CREDENTIALS, got %s", code)
	}
}

func TestChangePasswordRequiresToken(t *testing.T) {
	engine, _ := newTestRouter(t)

	rec := doJSON(t, engine, http.MethodPost, "/auth/change-password", map[string]any{
		"old_password":     "a",
		"new_password":     "brand-new-pass-1",
		"confirm_password": "brand-new-pass-1",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "INVALID_TOKEN" {
		t.Errorf("expected INVALID_TOKEN, got %s", code)
	}
}

func TestChangePasswordFlow(t *testing.T) {
	engine, _ := newTestRouter(t)
	access, _ := registerFarmer(t, engine, "farmer@example.com", "growing-season-9")
	authz := map[string]string{"Authorization": "Bearer " + access}

	rec := doJSON(t, engine, http.MethodPost, "/auth/change-password", map[string]any{
		"old_password":     "growing-season-9",
		"new_password":     "harvest-moon-22",
		"confirm_password": "does-not-match",
	}, authz)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("mismatched confirmation: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodPost, "/auth/change-password", map[string]any{
		"old_password":     "growing-season-9",
		"new_password":     "harvest-moon-22",
		"confirm_password": "harvest-moon-22",
	}, authz)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, engine, http.MethodPost, "/auth/login", map[string]any{
		"email":    "farmer@example.com",
		"password": "growing-season-9",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("old password should fail after change, got %d", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodPost, "/auth/login", map[string]any{
		"email":    "farmer@example.com",
		"password": "harvest-moon-22",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("new password should log in, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestOfficersEndpointRoleGuard(t *testing.T) {
	engine, _ := newTestRouter(t)

	// Officer auto-provisions on first login with the role hint.
	rec := doJSON(t, engine, http.MethodPost, "/auth/login", map[string]any{
		"email":    "jane.doe@example.com",
		"password": "field-office-7",
		"role":     "officer",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("officer login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	officerAccess := decodeBody(t, rec)["data"].(map[string]any)["tokens"].(map[string]any)["access_token"].(string)

	farmerAccess, _ := registerFarmer(t, engine, "farmer@example.com", "growing-season-9")

	rec = doJSON(t, engine, http.MethodGet, "/auth/officers", nil, map[string]string{
		"Authorization": "Bearer " + farmerAccess,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("farmer should be denied, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "ACCESS_DENIED" {
		t.Errorf("expected ACCESS_DENIED, got %s", code)
	}

	rec = doJSON(t, engine, http.MethodGet, "/auth/officers", nil, map[string]string{
		"Authorization": "Bearer " + officerAccess,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("officer should be allowed, got %d: %s", rec.Code, rec.Body.String())
	}

	officers := decodeBody(t, rec)["data"].([]any)
	if len(officers) != 1 {
		t.Fatalf("expected 1 officer, got %d", len(officers))
	}
	if got := officers[0].(map[string]any)["full_name"]; got != "Jane Doe" {
		t.Errorf("expected derived display name \"Jane Doe\", got %v", got)
	}
}

func TestAuthMiddlewareRejectsMalformedHeader(t *testing.T) {
	engine, _ := newTestRouter(t)
	access, _ := registerFarmer(t, engine, "farmer@example.com", "growing-season-9")

	headers := []map[string]string{
		nil,
		{"Authorization": access},
		{"Authorization": "Basic " + access},
		{"Authorization": "Bearer not-a-jwt"},
	}
	for _, h := range headers {
		rec := doJSON(t, engine, http.MethodGet, "/auth/officers", nil, h)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("headers %v: expected 401, got %d", h, rec.Code)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	engine, _ := newTestRouter(t)

	rec := doJSON(t, engine, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "healthy" || body["database"] != "up" {
		t.Errorf("unexpected health body: %v", body)
	}
}
