// Package handler contains the HTTP handlers. Each handler depends on a
// small interface so services can be swapped for function-field fakes in
// tests.
package handler

import (
	"context"
	"net/http"

	"github.com/trendsentry/service/internal/api/response"
)

// Pinger reports reachability of one backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler returns GET /api/v1/health. Degraded dependencies are
// reported per component; the endpoint itself stays 200 so load balancers
// keep routing while operators investigate.
func NewHealthHandler(db, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{
			"service":  "ok",
			"database": "ok",
			"cache":    "ok",
		}
		if err := db.Ping(r.Context()); err != nil {
			status["database"] = "unreachable"
		}
		if err := cache.Ping(r.Context()); err != nil {
			status["cache"] = "unreachable"
		}
		response.JSON(w, status)
	}
}
