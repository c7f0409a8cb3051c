package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const principalKey contextKey = "principal"

func setPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// GetPrincipal returns the authenticated caller identity, if any. Handlers
// use it to attribute approvals and feedback.
func GetPrincipal(r *http.Request) (string, bool) {
	principal, ok := r.Context().Value(principalKey).(string)
	return principal, ok
}

// WithPrincipal injects a caller identity, for tests.
func WithPrincipal(ctx context.Context, principal string) context.Context {
	return setPrincipal(ctx, principal)
}
