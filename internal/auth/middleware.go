package auth

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// Middleware authenticates bearer tokens and enforces the policy.
type Middleware struct {
	secret []byte
	policy Policy
	logger logrus.FieldLogger
}

// NewMiddleware constructs an auth middleware. A nil logger disables denial
// logging.
func NewMiddleware(secret []byte, policy Policy, logger logrus.FieldLogger) *Middleware {
	return &Middleware{secret: secret, policy: policy, logger: logger}
}

// Wrap applies authentication and role checks to next.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.policy.IsExempt(r) {
			next.ServeHTTP(w, r)
			return
		}
		required, ok := m.policy.RequiredRole(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := ParseJWT(bearerToken(r), m.secret)
		if err != nil {
			m.deny(r, err.Error(), "")
			w.Header().Set("WWW-Authenticate", `Bearer realm="dashboard"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		role, _ := NormalizeRole(claims.Role)
		if !RoleAtLeast(role, required) {
			m.deny(r, "insufficient role", claims.Subject)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		identity := Identity{Subject: claims.Subject, Role: role, Department: claims.Department}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

func (m *Middleware) deny(r *http.Request, reason, subject string) {
	if m.logger == nil {
		return
	}
	m.logger.WithFields(logrus.Fields{
		"path":    r.URL.Path,
		"method":  r.Method,
		"subject": subject,
		"reason":  reason,
	}).Warn("request denied")
}

func bearerToken(r *http.Request) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
