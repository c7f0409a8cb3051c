package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trendsentry/service/internal/api/middleware"
	"github.com/trendsentry/service/internal/api/response"
	"github.com/trendsentry/service/internal/store"
	"github.com/trendsentry/service/pkg/models"
)

// AlertGetter fetches one alert by ID.
type AlertGetter interface {
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
}

// AnalysisService is the analysis engine surface the handlers depend on.
type AnalysisService interface {
	Analyze(ctx context.Context, alert *models.Alert, org models.OrgContext) (*models.Analysis, error)
	Approve(ctx context.Context, analysisID, userID string) error
	Reject(ctx context.Context, analysisID, userID string) error
	PendingApprovals(ctx context.Context) ([]*models.Analysis, error)
}

// NewAnalyzeHandler returns POST /api/v1/alerts/{alertID}/analyze.
func NewAnalyzeHandler(alerts AlertGetter, svc AnalysisService, org models.OrgContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alertID := chi.URLParam(r, "alertID")

		alert, err := alerts.GetAlert(r.Context(), alertID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound,
					"NOT_FOUND", "Alert not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to load alert", nil)
			return
		}

		analysis, err := svc.Analyze(r.Context(), alert, org)
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Analysis failed", nil)
			return
		}
		response.Created(w, analysis)
	}
}

// NewPendingAnalysesHandler returns GET /api/v1/analyses/pending.
func NewPendingAnalysesHandler(svc AnalysisService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pending, err := svc.PendingApprovals(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to list pending analyses", nil)
			return
		}
		response.JSON(w, pending)
	}
}

// NewApprovalHandler returns POST /api/v1/analyses/{analysisID}/approve or
// .../reject depending on the transition argument.
func NewApprovalHandler(svc AnalysisService, approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		analysisID := chi.URLParam(r, "analysisID")
		userID, _ := middleware.GetPrincipal(r)
		if userID == "" {
			userID = "operator"
		}

		var err error
		if approve {
			err = svc.Approve(r.Context(), analysisID, userID)
		} else {
			err = svc.Reject(r.Context(), analysisID, userID)
		}
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound,
					"NOT_FOUND", "Analysis not found", nil)
			case errors.Is(err, store.ErrNotPending):
				response.Error(w, http.StatusConflict,
					"NOT_PENDING", "Analysis is not pending approval", nil)
			default:
				response.Error(w, http.StatusInternalServerError,
					"INTERNAL_ERROR", "Failed to update approval status", nil)
			}
			return
		}

		status := models.ApprovalRejected
		if approve {
			status = models.ApprovalApproved
		}
		response.JSON(w, map[string]any{
			"analysis_id":     analysisID,
			"approval_status": status,
		})
	}
}
