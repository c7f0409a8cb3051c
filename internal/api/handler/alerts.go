package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/trendsentry/service/internal/api/response"
	"github.com/trendsentry/service/internal/store"
	"github.com/trendsentry/service/pkg/models"
)

const defaultAlertLimit = 50

// AlertReader lists stored alerts.
type AlertReader interface {
	ListAlerts(ctx context.Context, filter store.AlertFilter) ([]*models.Alert, error)
}

// AlertScanner runs scan cycles and records manual alerts.
type AlertScanner interface {
	ScanSources(ctx context.Context) ([]models.Alert, error)
	CreateManualAlert(ctx context.Context, title, description string,
		category models.AlertCategory, severity models.Severity) (*models.Alert, error)
}

// NewListAlertsHandler returns GET /api/v1/alerts. Supports status, category,
// and limit query parameters; defaults to active alerts.
func NewListAlertsHandler(reader AlertReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.AlertFilter{
			Status: models.AlertStatusActive,
			Limit:  defaultAlertLimit,
		}
		if status := r.URL.Query().Get("status"); status != "" {
			filter.Status = models.AlertStatus(status)
		}
		if category := r.URL.Query().Get("category"); category != "" {
			filter.Category = models.AlertCategory(category)
		}
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 1 {
				response.Error(w, http.StatusBadRequest,
					"INVALID_REQUEST", "limit must be a positive integer", nil)
				return
			}
			filter.Limit = limit
		}

		alerts, err := reader.ListAlerts(r.Context(), filter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to list alerts", nil)
			return
		}
		response.Collection(w, alerts, response.CollectionMeta{
			Count: len(alerts),
			Limit: filter.Limit,
		})
	}
}

// NewCreateAlertHandler returns POST /api/v1/alerts for manual entries.
func NewCreateAlertHandler(scanner AlertScanner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Category    string `json:"category"`
			Severity    string `json:"severity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Title == "" {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "title is required", nil)
			return
		}

		alert, err := scanner.CreateManualAlert(r.Context(), req.Title, req.Description,
			models.AlertCategory(req.Category), models.Severity(req.Severity))
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to create alert", nil)
			return
		}
		response.Created(w, alert)
	}
}

// NewTriggerScanHandler returns POST /api/v1/scan, running one scan cycle
// synchronously and returning the alerts it produced.
func NewTriggerScanHandler(scanner AlertScanner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alerts, err := scanner.ScanSources(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Scan failed", nil)
			return
		}
		response.JSON(w, map[string]any{
			"alerts_created": len(alerts),
			"alerts":         alerts,
		})
	}
}
