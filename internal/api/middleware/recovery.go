package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/trendsentry/service/internal/api/response"
)

// Recovery converts handler panics into a 500 so one bad request cannot
// take down the scan and analysis loops running in the same process.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				slog.Error("panic in request handler",
					"panic", v,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				response.Error(w, http.StatusInternalServerError,
					"INTERNAL_ERROR", "An unexpected error occurred", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
