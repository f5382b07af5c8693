package auth

import (
	"net/http"
	"strings"
)

// Rule grants access to a path (or path prefix) for a minimum role. An empty
// Method matches any method.
type Rule struct {
	Method string
	Path   string
	Prefix bool
	Role   Role
}

func (r Rule) matches(method, path string) bool {
	if r.Method != "" && r.Method != method {
		return false
	}
	if r.Prefix {
		return strings.HasPrefix(path, r.Path)
	}
	return path == r.Path
}

// GridRules are the access rules for the grid capacity endpoints.
func GridRules() []Rule {
	return []Rule{
		{Method: http.MethodGet, Path: "/api/v1/grid/dashboard/export.", Prefix: true, Role: RoleAnalyst},
		{Method: http.MethodGet, Path: "/api/v1/grid/dashboard", Role: RoleViewer},
		{Method: http.MethodGet, Path: "/api/v1/grid/config", Role: RoleViewer},
		{Method: http.MethodPost, Path: "/api/v1/grid/evaluate", Role: RoleAnalyst},
	}
}

// Policy resolves the role a request needs. Rules are checked in order; other
// /api/ paths need viewer for reads and admin for writes.
type Policy struct {
	exemptPaths    map[string]struct{}
	exemptPrefixes []string
	rules          []Rule
}

// NewDefaultPolicy builds a policy with GridRules and the given exemptions.
func NewDefaultPolicy(exemptPaths []string, exemptPrefixes []string) Policy {
	return NewPolicy(GridRules(), exemptPaths, exemptPrefixes)
}

// NewPolicy builds a policy from explicit rules.
func NewPolicy(rules []Rule, exemptPaths []string, exemptPrefixes []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{
		exemptPaths:    set,
		exemptPrefixes: append([]string(nil), exemptPrefixes...),
		rules:          append([]Rule(nil), rules...),
	}
}

// IsExempt reports whether the request skips authentication.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if _, ok := p.exemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.exemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// RequiredRole returns the minimum role for the request. ok is false for
// paths outside the API.
func (p Policy) RequiredRole(r *http.Request) (role Role, ok bool) {
	if r == nil {
		return "", false
	}
	for _, rule := range p.rules {
		if rule.matches(r.Method, r.URL.Path) {
			return rule.Role, true
		}
	}
	if !strings.HasPrefix(r.URL.Path, "/api/") {
		return "", false
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return RoleViewer, true
	default:
		return RoleAdmin, true
	}
}
