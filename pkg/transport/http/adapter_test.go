package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/stockflow/stockflow/pkg/api"
	"github.com/stockflow/stockflow/pkg/auth"
	"github.com/stockflow/stockflow/pkg/auth/jwt"
	"github.com/stockflow/stockflow/pkg/inventory"
	"github.com/stockflow/stockflow/pkg/storage/memory"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// testStack is a fully wired handler backed by the memory store.
type testStack struct {
	handler http.Handler
	store   *memory.Store
	tokens  *jwt.TokenService
	authSvc *auth.Service
}

func newTestStack(t *testing.T, mutate func(*HandlerConfig)) *testStack {
	t.Helper()

	store := memory.New()
	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewPasswordHasher: %v", err)
	}
	tokens, err := jwt.NewTokenService(jwt.KeyConfig{Secret: testSecret, Issuer: "stockflow-test"})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	authSvc, err := auth.NewService(store, hasher, tokens)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	cfg := HandlerConfig{
		Services: Services{
			Auth:     authSvc,
			Products: inventory.NewProductService(store, nil),
			Users:    inventory.NewUserService(store, hasher, nil),
			Health:   store,
		},
		Authenticator: jwt.NewAuthenticator(tokens),
		MetricsPath:   "/metrics",
	}
	if mutate != nil {
		mutate(&cfg)
	}

	return &testStack{
		handler: NewHandler(cfg),
		store:   store,
		tokens:  tokens,
		authSvc: authSvc,
	}
}

// do sends a request through the stack and returns the recorder.
func (s *testStack) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal error: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// tokenFor seeds a user with role and returns a signed-in token.
func (s *testStack) tokenFor(t *testing.T, login string, role api.Role) string {
	t.Helper()
	if _, err := s.authSvc.EnsureUser(context.Background(), login, "pw-"+login, role); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	rec := s.do(t, "POST", "/auth/signin", "", api.SignInRequest{Login: login, Password: "pw-" + login})
	if rec.Code != http.StatusOK {
		t.Fatalf("signin status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp api.SignInResponse
	decodeBody(t, rec, &resp)
	return resp.Token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decoding body %q: %v", rec.Body.String(), err)
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var body api.ErrorResponse
	decodeBody(t, rec, &body)
	return body
}

func TestAliceScenario(t *testing.T) {
	s := newTestStack(t, nil)

	rec := s.do(t, "POST", "/auth/signup", "", api.SignUpRequest{Login: "alice", Password: "s3cret", Role: api.RoleCommon})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var up api.SignUpResponse
	decodeBody(t, rec, &up)
	if up.Login != "alice" || up.Role != api.RoleCommon || up.ID == uuid.Nil {
		t.Errorf("signup body = %+v", up)
	}

	rec = s.do(t, "POST", "/auth/signin", "", api.SignInRequest{Login: "alice", Password: "s3cret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("signin status = %d, want %d", rec.Code, http.StatusOK)
	}
	var in api.SignInResponse
	decodeBody(t, rec, &in)
	if in.Token == "" {
		t.Fatal("empty token")
	}

	p, err := s.tokens.Verify(in.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.ID != up.ID || p.Role != api.RoleCommon {
		t.Errorf("token principal = %+v, want id %s COMMON", p, up.ID)
	}

	if rec := s.do(t, "GET", "/api/product", in.Token, nil); rec.Code != http.StatusOK {
		t.Errorf("GET /api/product status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = s.do(t, "GET", "/api/user", in.Token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("GET /api/user status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if body := decodeError(t, rec); body.Error != api.ErrorTypeForbidden || body.Path != "/api/user" {
		t.Errorf("error body = %+v", body)
	}
}

func TestSignInNonEnumeration(t *testing.T) {
	s := newTestStack(t, nil)
	s.tokenFor(t, "alice", api.RoleCommon)

	wrong := s.do(t, "POST", "/auth/signin", "", api.SignInRequest{Login: "alice", Password: "nope"})
	unknown := s.do(t, "POST", "/auth/signin", "", api.SignInRequest{Login: "bob", Password: "nope"})

	if wrong.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d/%d, want 401/401", wrong.Code, unknown.Code)
	}
	a, b := decodeError(t, wrong), decodeError(t, unknown)
	if a.Error != api.ErrorTypeBadCredentials || a.Error != b.Error || a.Message != b.Message {
		t.Errorf("bodies differ: %+v vs %+v", a, b)
	}
}

func TestSignUpErrors(t *testing.T) {
	s := newTestStack(t, nil)
	s.tokenFor(t, "alice", api.RoleCommon)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantType   api.ErrorType
	}{
		{"conflict", api.SignUpRequest{Login: "alice", Password: "x", Role: api.RoleCommon}, http.StatusConflict, api.ErrorTypeConflict},
		{"missing password", api.SignUpRequest{Login: "bob", Role: api.RoleCommon}, http.StatusBadRequest, api.ErrorTypeInvalidRequest},
		{"bad role", map[string]string{"login": "bob", "password": "x", "role": "ROOT"}, http.StatusBadRequest, api.ErrorTypeInvalidRequest},
		{"blank login", api.SignUpRequest{Login: "   ", Password: "x", Role: api.RoleCommon}, http.StatusBadRequest, api.ErrorTypeInvalidRequest},
		{"multibyte password over 72 bytes", api.SignUpRequest{Login: "bob", Password: strings.Repeat("é", 40), Role: api.RoleCommon}, http.StatusBadRequest, api.ErrorTypeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, "POST", "/auth/signup", "", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if body := decodeError(t, rec); body.Error != tt.wantType {
				t.Errorf("error = %q, want %q", body.Error, tt.wantType)
			}
		})
	}
}

func TestSignUpRoleRestriction(t *testing.T) {
	s := newTestStack(t, nil)
	restricted, err := auth.NewService(s.store, mustHasher(t), s.tokens, auth.WithSignUpRoles(api.RoleCommon))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	s = newTestStack(t, func(c *HandlerConfig) { c.Services.Auth = restricted })

	rec := s.do(t, "POST", "/auth/signup", "", api.SignUpRequest{Login: "mallory", Password: "x", Role: api.RoleAdmin})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestUnauthenticatedVersusForbidden(t *testing.T) {
	s := newTestStack(t, nil)
	common := s.tokenFor(t, "alice", api.RoleCommon)

	expired, err := jwt.NewTokenService(jwt.KeyConfig{
		Secret: testSecret,
		Issuer: "stockflow-test",
		TTL:    time.Minute,
		Now:    func() time.Time { return time.Now().Add(-time.Hour) },
	})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	expiredToken, _, err := expired.Issue(&auth.Principal{ID: uuid.New(), Role: api.RoleAdmin})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tests := []struct {
		name       string
		token      string
		wantStatus int
		wantType   api.ErrorType
	}{
		{"no token", "", http.StatusUnauthorized, api.ErrorTypeUnauthenticated},
		{"garbage token", "garbage", http.StatusUnauthorized, api.ErrorTypeUnauthenticated},
		{"expired token", expiredToken, http.StatusUnauthorized, api.ErrorTypeUnauthenticated},
		{"wrong role", common, http.StatusForbidden, api.ErrorTypeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, "GET", "/api/user", tt.token, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			body := decodeError(t, rec)
			if body.Error != tt.wantType || body.Status != tt.wantStatus {
				t.Errorf("body = %+v", body)
			}
			if tt.wantStatus == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}

func TestPublicRoutesIgnoreTokens(t *testing.T) {
	s := newTestStack(t, nil)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			rec := s.do(t, "GET", path, "garbage", nil)
			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
			}
		})
	}
}

func TestCustomMetricsPathIsPublic(t *testing.T) {
	s := newTestStack(t, func(cfg *HandlerConfig) { cfg.MetricsPath = "/internal/metrics" })

	rec := s.do(t, "GET", "/internal/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("custom metrics path status = %d, want %d", rec.Code, http.StatusOK)
	}

	// The default path stays public but is no longer routed.
	rec = s.do(t, "GET", "/metrics", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("/metrics status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestProductRoutes(t *testing.T) {
	s := newTestStack(t, nil)
	token := s.tokenFor(t, "alice", api.RoleCommon)
	qty := int64(5)

	rec := s.do(t, "POST", "/api/product", token, api.ProductRequest{Name: "Widget", Description: "A widget", Price: 2.5, Quantity: &qty})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created api.ProductResponse
	decodeBody(t, rec, &created)

	path := fmt.Sprintf("/api/product/%d", created.ID)
	if rec := s.do(t, "GET", path, token, nil); rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}

	qty = 9
	rec = s.do(t, "PUT", path, token, api.ProductRequest{Name: "Widget", Description: "Updated", Price: 3, Quantity: &qty})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}
	var updated api.ProductResponse
	decodeBody(t, rec, &updated)
	if updated.Quantity != 9 || updated.Description != "Updated" {
		t.Errorf("updated = %+v", updated)
	}

	rec = s.do(t, "GET", "/api/product", token, nil)
	var list []api.ProductResponse
	decodeBody(t, rec, &list)
	if len(list) != 1 {
		t.Errorf("list length = %d, want 1", len(list))
	}

	rec = s.do(t, "DELETE", path, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	var msg api.MessageResponse
	decodeBody(t, rec, &msg)
	if want := fmt.Sprintf("Product with ID: %d deleted successfully.", created.ID); msg.Message != want {
		t.Errorf("message = %q, want %q", msg.Message, want)
	}

	if rec := s.do(t, "GET", path, token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestProductRouteErrors(t *testing.T) {
	s := newTestStack(t, nil)
	token := s.tokenFor(t, "alice", api.RoleCommon)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
	}{
		{"non-numeric id", "GET", "/api/product/abc", nil, http.StatusBadRequest},
		{"zero id", "GET", "/api/product/0", nil, http.StatusBadRequest},
		{"unknown id", "DELETE", "/api/product/42", nil, http.StatusNotFound},
		{"missing fields", "POST", "/api/product", map[string]any{"name": "x"}, http.StatusBadRequest},
		{"unknown route", "GET", "/api/product/1/extra", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, token, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if body := decodeError(t, rec); body.Status != tt.wantStatus {
				t.Errorf("body status = %d, want %d", body.Status, tt.wantStatus)
			}
		})
	}
}

func TestUserRoutes(t *testing.T) {
	s := newTestStack(t, nil)
	admin := s.tokenFor(t, "root", api.RoleAdmin)

	rec := s.do(t, "POST", "/api/user", admin, api.SignUpRequest{Login: "bob", Password: "pw", Role: api.RoleCommon})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "hash") || strings.Contains(rec.Body.String(), "pw") {
		t.Errorf("response leaks password material: %s", rec.Body.String())
	}
	var bob api.UserResponse
	decodeBody(t, rec, &bob)

	rec = s.do(t, "PUT", "/api/user/"+bob.ID.String(), admin, api.UpdateUserRequest{Login: "bob", Password: "new-pw", Role: api.RoleCommon})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, "PUT", "/api/user/"+bob.ID.String(), admin, api.UpdateUserRequest{Login: "bob", Password: strings.Repeat("é", 40), Role: api.RoleCommon})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("update with 80-byte password status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = s.do(t, "POST", "/auth/signin", "", api.SignInRequest{Login: "bob", Password: "new-pw"})
	if rec.Code != http.StatusOK {
		t.Errorf("signin with updated password status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = s.do(t, "GET", "/api/user", admin, nil)
	var users []api.UserResponse
	decodeBody(t, rec, &users)
	if len(users) != 2 {
		t.Errorf("user count = %d, want 2", len(users))
	}

	if rec := s.do(t, "GET", "/api/user/not-a-uuid", admin, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = s.do(t, "DELETE", "/api/user/"+bob.ID.String(), admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := s.do(t, "GET", "/api/user/"+bob.ID.String(), admin, nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestAdminIsNotCommon(t *testing.T) {
	s := newTestStack(t, nil)
	admin := s.tokenFor(t, "root", api.RoleAdmin)

	if rec := s.do(t, "GET", "/api/product", admin, nil); rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestRequestValidation(t *testing.T) {
	s := newTestStack(t, func(c *HandlerConfig) { c.MaxBodySize = 64 })

	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
	}{
		{"wrong content type", "text/plain", `{}`, http.StatusUnsupportedMediaType},
		{"malformed json", "application/json", `{"login":`, http.StatusBadRequest},
		{"body too large", "application/json", `{"login":"` + strings.Repeat("a", 100) + `"}`, http.StatusRequestEntityTooLarge},
		{"charset is fine", "application/json; charset=utf-8", `{"login":"x","password":"y"}`, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/auth/signin", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()
			s.handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestSecurityAndRequestIDHeaders(t *testing.T) {
	s := newTestStack(t, nil)

	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("X-Request-ID", "trace-1")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	want := map[string]string{
		"X-Request-ID":           "trace-1",
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "no-referrer",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestAuthRateLimit(t *testing.T) {
	s := newTestStack(t, func(c *HandlerConfig) { c.AuthRateLimit = 2 })

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = s.do(t, "POST", "/auth/signin", "", api.SignInRequest{Login: "x", Password: "y"})
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("third attempt status = %d, want %d", last.Code, http.StatusTooManyRequests)
	}
	if body := decodeError(t, last); body.Error != api.ErrorTypeTooManyRequests {
		t.Errorf("error = %q, want %q", body.Error, api.ErrorTypeTooManyRequests)
	}

	// Other routes are not throttled.
	if rec := s.do(t, "GET", "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want %d", rec.Code, http.StatusOK)
	}
}

// unhealthy fails every health check.
type unhealthy struct{}

func (unhealthy) HealthCheck(context.Context) error { return errors.New("down") }

func TestReadyzReportsStoreHealth(t *testing.T) {
	s := newTestStack(t, func(c *HandlerConfig) { c.Services.Health = unhealthy{} })

	rec := s.do(t, "GET", "/readyz", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func mustHasher(t *testing.T) *auth.PasswordHasher {
	t.Helper()
	h, err := auth.NewPasswordHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewPasswordHasher: %v", err)
	}
	return h
}
