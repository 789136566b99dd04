package auth

import (
	"net/http"
	"strings"
)

// Middleware authenticates bearer tokens and enforces the route policy.
// Requests that pass carry an Identity in their context.
type Middleware struct {
	secret []byte
	policy Policy
}

// NewMiddleware constructs an auth middleware.
func NewMiddleware(secret []byte, policy Policy) *Middleware {
	return &Middleware{secret: secret, policy: policy}
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
		required, guarded := m.policy.RequiredRole(r)
		if !guarded {
			next.ServeHTTP(w, r)
			return
		}

		identity, status := m.authenticate(r, required)
		if status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// authenticate resolves the request's identity and checks it against the
// required role. A non-zero status means the request must be rejected.
func (m *Middleware) authenticate(r *http.Request, required Role) (Identity, int) {
	claims, err := ParseJWT(bearerToken(r), m.secret)
	if err != nil {
		return Identity{}, http.StatusUnauthorized
	}
	role, ok := NormalizeRole(claims.Role)
	if !ok || !RoleAtLeast(role, required) {
		return Identity{}, http.StatusForbidden
	}
	return Identity{
		TenantID: claims.TenantID,
		Role:     role,
		Subject:  claims.Subject,
	}, 0
}

func bearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
