package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/trendsentry/service/internal/api/response"
)

// Auth validates the single operator bearer token against a bcrypt hash
// from configuration. An empty hash disables authentication, which is only
// acceptable in development.
type Auth struct {
	tokenHash string
}

// NewAuth creates the auth middleware. tokenHash is the bcrypt hash of the
// operator token, or empty to disable auth.
func NewAuth(tokenHash string) *Auth {
	return &Auth{tokenHash: tokenHash}
}

// Authenticate validates the Bearer token and records the caller identity in
// the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.tokenHash == "" {
			r = r.WithContext(setPrincipal(r.Context(), "operator"))
			next.ServeHTTP(w, r)
			return
		}

		token := extractBearerToken(r)
		if token == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(a.tokenHash), []byte(token)) != nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid token", nil)
			return
		}

		r = r.WithContext(setPrincipal(r.Context(), "operator"))
		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
