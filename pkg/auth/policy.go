package auth

import (
	"cmp"
	"fmt"
	"net/http"
	"path"
	"slices"
	"strings"

	"github.com/stockflow/stockflow/pkg/api"
	"github.com/stockflow/stockflow/pkg/debug"
)

// requirementKind orders the policy classes. Lower kinds are consulted first.
type requirementKind int

const (
	kindPublic requirementKind = iota
	kindRole
	kindAuth
)

// Requirement is what a route demands of the caller. Build one with
// Public, RequiresRole, or RequiresAuth.
type Requirement struct {
	kind requirementKind
	role api.Role
}

// Public lets any request through, with or without a principal.
func Public() Requirement { return Requirement{kind: kindPublic} }

// RequiresRole demands a principal whose role equals r exactly.
func RequiresRole(r api.Role) Requirement { return Requirement{kind: kindRole, role: r} }

// RequiresAuth demands a principal of any role.
func RequiresAuth() Requirement { return Requirement{kind: kindAuth} }

// IsPublic reports whether the requirement admits anonymous callers.
func (q Requirement) IsPublic() bool { return q.kind == kindPublic }

// Role returns the required role, or "" when the requirement is not
// role-based.
func (q Requirement) Role() api.Role { return q.role }

func (q Requirement) String() string {
	switch q.kind {
	case kindPublic:
		return "public"
	case kindRole:
		return "role:" + string(q.role)
	default:
		return "authenticated"
	}
}

// Rule maps a route pattern to a requirement.
//
// Pattern syntax: "/a/b" matches exactly that path, "*" matches a single
// segment, and a trailing "/**" matches the prefix itself and anything
// below it. An empty Method matches every method; a GET rule also covers
// HEAD.
type Rule struct {
	Method      string
	Pattern     string
	Requirement Requirement
}

func (r Rule) String() string {
	method := r.Method
	if method == "" {
		method = "*"
	}
	return method + " " + r.Pattern + " -> " + r.Requirement.String()
}

// compiledRule is a Rule with its pattern split into segments.
type compiledRule struct {
	Rule
	segments []string
	deep     bool
	literals int
	wildcard bool
	index    int
}

// Policy is an immutable, ordered table of rules.
type Policy struct {
	rules    []compiledRule
	fallback Rule
}

// NewPolicy validates and orders rules. Public rules come first, then
// role rules, then authenticated rules. Within a class, more specific
// patterns come first: more literal segments, then exact patterns over
// wildcard ones, then method-qualified rules over method-agnostic ones,
// then declaration order. Requests matching no rule require
// authentication.
func NewPolicy(rules ...Rule) (*Policy, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for i, r := range rules {
		c, err := compileRule(r, i)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, c)
	}

	slices.SortStableFunc(compiled, func(a, b compiledRule) int {
		if c := cmp.Compare(a.Requirement.kind, b.Requirement.kind); c != 0 {
			return c
		}
		if c := cmp.Compare(b.literals, a.literals); c != 0 {
			return c
		}
		if a.wildcard != b.wildcard {
			if !a.wildcard {
				return -1
			}
			return 1
		}
		aq, bq := a.Method != "", b.Method != ""
		if aq != bq {
			if aq {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.index, b.index)
	})

	return &Policy{
		rules:    compiled,
		fallback: Rule{Pattern: "/**", Requirement: RequiresAuth()},
	}, nil
}

// DefaultPolicy returns the StockFlow route table.
func DefaultPolicy() *Policy {
	p, err := NewPolicy(
		Rule{Method: http.MethodPost, Pattern: "/auth/signin", Requirement: Public()},
		Rule{Method: http.MethodPost, Pattern: "/auth/signup", Requirement: Public()},
		Rule{Method: http.MethodGet, Pattern: "/healthz", Requirement: Public()},
		Rule{Method: http.MethodGet, Pattern: "/readyz", Requirement: Public()},
		Rule{Method: http.MethodGet, Pattern: "/metrics", Requirement: Public()},
		Rule{Pattern: "/api/user/**", Requirement: RequiresRole(api.RoleAdmin)},
		Rule{Pattern: "/api/product/**", Requirement: RequiresRole(api.RoleCommon)},
	)
	if err != nil {
		panic(fmt.Sprintf("auth: invalid default policy: %v", err))
	}
	return p
}

// Rules returns the ordered table, without the fallback rule.
func (p *Policy) Rules() []Rule {
	out := make([]Rule, len(p.rules))
	for i, r := range p.rules {
		out[i] = r.Rule
	}
	return out
}

// Match returns the first rule matching method and urlPath, or the
// fallback rule when none does.
func (p *Policy) Match(method, urlPath string) Rule {
	segments := splitPath(cleanPath(urlPath))
	method = strings.ToUpper(method)
	for _, r := range p.rules {
		if r.matches(method, segments) {
			return r.Rule
		}
	}
	return p.fallback
}

// Decision is the outcome of evaluating a request against a policy.
type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "unauthenticated"
	default:
		return "forbidden"
	}
}

// Evaluate decides whether principal may reach method and urlPath. A nil
// principal means the request is anonymous.
func Evaluate(p *Policy, method, urlPath string, principal *Principal) Decision {
	rule := p.Match(method, urlPath)
	if debug.Enabled("policy") {
		debug.Log("policy", "rule matched", "method", method, "path", urlPath, "rule", rule.String())
	}
	req := rule.Requirement
	switch {
	case req.kind == kindPublic:
		return Allow
	case principal == nil:
		return DenyUnauthenticated
	case req.kind == kindRole && principal.Role != req.role:
		return DenyForbidden
	default:
		return Allow
	}
}

func compileRule(r Rule, index int) (compiledRule, error) {
	if !strings.HasPrefix(r.Pattern, "/") {
		return compiledRule{}, fmt.Errorf("rule %d: pattern %q must start with /", index, r.Pattern)
	}
	if r.Requirement.kind == kindRole && !r.Requirement.role.Valid() {
		return compiledRule{}, fmt.Errorf("rule %d: unknown role %q", index, r.Requirement.role)
	}

	c := compiledRule{Rule: r, index: index}
	c.Method = strings.ToUpper(r.Method)

	segments := splitPath(r.Pattern)
	for i, s := range segments {
		switch s {
		case "**":
			if i != len(segments)-1 {
				return compiledRule{}, fmt.Errorf("rule %d: ** is only allowed as the last segment of %q", index, r.Pattern)
			}
			c.deep = true
			c.wildcard = true
		case "*":
			c.wildcard = true
		case "", ".", "..":
			return compiledRule{}, fmt.Errorf("rule %d: pattern %q is not clean", index, r.Pattern)
		default:
			c.literals++
		}
	}
	if c.deep {
		segments = segments[:len(segments)-1]
	}
	c.segments = segments
	return c, nil
}

func (r compiledRule) matches(method string, segments []string) bool {
	if r.Method != "" && r.Method != method && !(r.Method == http.MethodGet && method == http.MethodHead) {
		return false
	}
	if r.deep {
		if len(segments) < len(r.segments) {
			return false
		}
	} else if len(segments) != len(r.segments) {
		return false
	}
	for i, want := range r.segments {
		if want != "*" && want != segments[i] {
			return false
		}
	}
	return true
}

// cleanPath normalizes a request path so that dot segments, repeated
// slashes, and trailing slashes cannot select a different rule.
func cleanPath(p string) string {
	if p == "" || p[0] != '/' {
		p = "/" + p
	}
	return path.Clean(p)
}

// splitPath returns the segments of a rooted path; "/" has none.
func splitPath(p string) []string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
