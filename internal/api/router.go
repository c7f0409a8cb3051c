package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/trendsentry/service/internal/api/middleware"
	"github.com/trendsentry/service/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	ListAlertsHandler  http.HandlerFunc
	CreateAlertHandler http.HandlerFunc
	TriggerScanHandler http.HandlerFunc

	AnalyzeHandler         http.HandlerFunc
	PendingAnalysesHandler http.HandlerFunc
	ApproveHandler         http.HandlerFunc
	RejectHandler          http.HandlerFunc

	RecordFeedbackHandler http.HandlerFunc
	InsightsHandler       http.HandlerFunc

	GenerateReportHandler http.HandlerFunc
	LatestReportHandler   http.HandlerFunc
	ReportHistoryHandler  http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Get("/api/v1/alerts", orNotImplemented(deps.ListAlertsHandler))
		r.Post("/api/v1/alerts", orNotImplemented(deps.CreateAlertHandler))
		r.Post("/api/v1/scan", orNotImplemented(deps.TriggerScanHandler))

		r.Post("/api/v1/alerts/{alertID}/analyze", orNotImplemented(deps.AnalyzeHandler))
		r.Get("/api/v1/analyses/pending", orNotImplemented(deps.PendingAnalysesHandler))
		r.Post("/api/v1/analyses/{analysisID}/approve", orNotImplemented(deps.ApproveHandler))
		r.Post("/api/v1/analyses/{analysisID}/reject", orNotImplemented(deps.RejectHandler))

		r.Post("/api/v1/feedback", orNotImplemented(deps.RecordFeedbackHandler))
		r.Get("/api/v1/feedback/insights", orNotImplemented(deps.InsightsHandler))

		r.Post("/api/v1/reports", orNotImplemented(deps.GenerateReportHandler))
		r.Get("/api/v1/reports/latest", orNotImplemented(deps.LatestReportHandler))
		r.Get("/api/v1/reports", orNotImplemented(deps.ReportHistoryHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
