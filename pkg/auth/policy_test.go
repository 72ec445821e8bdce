package auth

import (
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/stockflow/stockflow/pkg/api"
)

var (
	adminPrincipal  = &Principal{ID: uuid.New(), Login: "root", Role: api.RoleAdmin}
	commonPrincipal = &Principal{ID: uuid.New(), Login: "alice", Role: api.RoleCommon}
)

func TestDefaultPolicyEvaluate(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name      string
		method    string
		path      string
		principal *Principal
		want      Decision
	}{
		{"signin anonymous", http.MethodPost, "/auth/signin", nil, Allow},
		{"signup anonymous", http.MethodPost, "/auth/signup", nil, Allow},
		{"signin with principal", http.MethodPost, "/auth/signin", commonPrincipal, Allow},
		{"healthz", http.MethodGet, "/healthz", nil, Allow},
		{"readyz head", http.MethodHead, "/readyz", nil, Allow},
		{"metrics", http.MethodGet, "/metrics", nil, Allow},
		{"signin via GET is not public", http.MethodGet, "/auth/signin", nil, DenyUnauthenticated},

		{"users anonymous", http.MethodGet, "/api/user", nil, DenyUnauthenticated},
		{"users common", http.MethodGet, "/api/user", commonPrincipal, DenyForbidden},
		{"users admin", http.MethodGet, "/api/user", adminPrincipal, Allow},
		{"user by id admin", http.MethodDelete, "/api/user/42", adminPrincipal, Allow},

		{"products anonymous", http.MethodGet, "/api/product", nil, DenyUnauthenticated},
		{"products common", http.MethodPost, "/api/product", commonPrincipal, Allow},
		{"product by id common", http.MethodPut, "/api/product/7", commonPrincipal, Allow},
		{"products admin is not common", http.MethodGet, "/api/product", adminPrincipal, DenyForbidden},

		{"unlisted anonymous", http.MethodGet, "/api/other", nil, DenyUnauthenticated},
		{"unlisted any role", http.MethodGet, "/api/other", commonPrincipal, Allow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(p, tt.method, tt.path, tt.principal)
			if got != tt.want {
				t.Errorf("Evaluate(%s %s) = %s, want %s", tt.method, tt.path, got, tt.want)
			}
		})
	}
}

func TestEvaluateCleansPaths(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		path string
		want Decision
	}{
		{"/api/product/../user", DenyForbidden},
		{"//api//user", DenyForbidden},
		{"/api/user/", DenyForbidden},
		{"/auth/signin/../../api/user", DenyForbidden},
		{"api/user", DenyForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := Evaluate(p, http.MethodGet, tt.path, commonPrincipal)
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %s, want %s", tt.path, got, tt.want)
			}
		})
	}
}

func TestNewPolicyOrdering(t *testing.T) {
	p, err := NewPolicy(
		Rule{Pattern: "/api/**", Requirement: RequiresAuth()},
		Rule{Pattern: "/api/*/reports", Requirement: RequiresRole(api.RoleAdmin)},
		Rule{Pattern: "/api/user/reports", Requirement: RequiresRole(api.RoleCommon)},
		Rule{Method: http.MethodGet, Pattern: "/api/user/reports", Requirement: RequiresRole(api.RoleAdmin)},
		Rule{Pattern: "/api/public/**", Requirement: Public()},
	)
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}

	want := []string{
		"* /api/public/** -> public",
		"GET /api/user/reports -> role:ADMIN",
		"* /api/user/reports -> role:COMMON",
		"* /api/*/reports -> role:ADMIN",
		"* /api/** -> authenticated",
	}
	got := p.Rules()
	if len(got) != len(want) {
		t.Fatalf("got %d rules, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Errorf("rule[%d] = %q, want %q", i, got[i].String(), want[i])
		}
	}
}

func TestPolicyMatchPatterns(t *testing.T) {
	p, err := NewPolicy(
		Rule{Pattern: "/exact", Requirement: Public()},
		Rule{Pattern: "/one/*", Requirement: Public()},
		Rule{Pattern: "/deep/**", Requirement: Public()},
	)
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}

	tests := []struct {
		path   string
		public bool
	}{
		{"/exact", true},
		{"/exact/more", false},
		{"/one", false},
		{"/one/x", true},
		{"/one/x/y", false},
		{"/deep", true},
		{"/deep/a/b/c", true},
		{"/deeper", false},
		{"/", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := p.Match(http.MethodGet, tt.path).Requirement.IsPublic()
			if got != tt.public {
				t.Errorf("Match(%q) public = %v, want %v", tt.path, got, tt.public)
			}
		})
	}
}

func TestNewPolicyRejectsBadRules(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
	}{
		{"relative pattern", Rule{Pattern: "api", Requirement: Public()}},
		{"inner double star", Rule{Pattern: "/api/**/x", Requirement: Public()}},
		{"dot segment", Rule{Pattern: "/api/../x", Requirement: Public()}},
		{"empty segment", Rule{Pattern: "/api//x", Requirement: Public()}},
		{"unknown role", Rule{Pattern: "/api", Requirement: RequiresRole("ROOT")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPolicy(tt.rule); err == nil {
				t.Errorf("expected error for %v", tt.rule)
			}
		})
	}
}

func TestRequirementString(t *testing.T) {
	tests := []struct {
		req  Requirement
		want string
	}{
		{Public(), "public"},
		{RequiresRole(api.RoleAdmin), "role:ADMIN"},
		{RequiresAuth(), "authenticated"},
	}
	for _, tt := range tests {
		if got := tt.req.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
