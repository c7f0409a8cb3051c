package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/trendsentry/service/internal/api/response"
	"github.com/trendsentry/service/internal/cache"
	"github.com/trendsentry/service/internal/store"
	"github.com/trendsentry/service/pkg/models"
)

const (
	defaultReportLimit = 10
	latestReportTTL    = time.Hour
)

// ReportService is the report generator surface the handlers depend on.
type ReportService interface {
	Generate(ctx context.Context, kind models.ReportKind) (*models.Report, error)
	GenerateCustom(ctx context.Context, start, end time.Time, focusAreas []string) (*models.Report, error)
	Latest(ctx context.Context, kind models.ReportKind) (*models.Report, error)
	History(ctx context.Context, kind models.ReportKind, limit int) ([]*models.Report, error)
}

// NewGenerateReportHandler returns POST /api/v1/reports. A standard report
// names its kind; a custom report supplies start, end, and optional focus
// areas instead.
func NewGenerateReportHandler(svc ReportService, reportCache cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Kind       string   `json:"kind"`
			Start      string   `json:"start"`
			End        string   `json:"end"`
			FocusAreas []string `json:"focus_areas"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		var (
			report *models.Report
			err    error
		)
		switch {
		case req.Kind == string(models.ReportCustom) || (req.Kind == "" && req.Start != ""):
			start, perr := time.Parse(time.RFC3339, req.Start)
			if perr != nil {
				response.Error(w, http.StatusBadRequest,
					"INVALID_REQUEST", "start must be RFC3339", nil)
				return
			}
			end := time.Now().UTC()
			if req.End != "" {
				if end, perr = time.Parse(time.RFC3339, req.End); perr != nil {
					response.Error(w, http.StatusBadRequest,
						"INVALID_REQUEST", "end must be RFC3339", nil)
					return
				}
			}
			if !end.After(start) {
				response.Error(w, http.StatusBadRequest,
					"INVALID_REQUEST", "end must be after start", nil)
				return
			}
			report, err = svc.GenerateCustom(r.Context(), start, end, req.FocusAreas)
		case validReportKind(req.Kind):
			report, err = svc.Generate(r.Context(), models.ReportKind(req.Kind))
		default:
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "kind must be daily, weekly, monthly, quarterly, or custom", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Report generation failed", nil)
			return
		}

		if reportCache != nil && report.Kind != models.ReportCustom {
			if data, merr := json.Marshal(report); merr == nil {
				_ = reportCache.Set(r.Context(), cache.LatestReportKey(report.Kind), data, latestReportTTL)
			}
		}
		response.Created(w, report)
	}
}

// NewLatestReportHandler returns GET /api/v1/reports/latest, read-through
// cached in Redis.
func NewLatestReportHandler(svc ReportService, reportCache cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := models.ReportKind(r.URL.Query().Get("kind"))
		if kind == "" {
			kind = models.ReportWeekly
		}
		if !validReportKind(string(kind)) {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "unknown report kind", nil)
			return
		}

		if reportCache != nil {
			if data, ok, err := reportCache.Get(r.Context(), cache.LatestReportKey(kind)); err == nil && ok {
				var cached models.Report
				if json.Unmarshal(data, &cached) == nil {
					response.JSON(w, &cached)
					return
				}
			}
		}

		report, err := svc.Latest(r.Context(), kind)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound,
					"NOT_FOUND", "No report generated yet", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to load report", nil)
			return
		}

		if reportCache != nil {
			if data, merr := json.Marshal(report); merr == nil {
				_ = reportCache.Set(r.Context(), cache.LatestReportKey(kind), data, latestReportTTL)
			}
		}
		response.JSON(w, report)
	}
}

// NewReportHistoryHandler returns GET /api/v1/reports.
func NewReportHistoryHandler(svc ReportService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := models.ReportKind(r.URL.Query().Get("kind"))
		if kind == "" {
			kind = models.ReportWeekly
		}
		limit := defaultReportLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				response.Error(w, http.StatusBadRequest,
					"INVALID_REQUEST", "limit must be a positive integer", nil)
				return
			}
			limit = parsed
		}

		reports, err := svc.History(r.Context(), kind, limit)
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to list reports", nil)
			return
		}
		response.Collection(w, reports, response.CollectionMeta{
			Count: len(reports),
			Limit: limit,
		})
	}
}

func validReportKind(kind string) bool {
	switch models.ReportKind(kind) {
	case models.ReportDaily, models.ReportWeekly, models.ReportMonthly,
		models.ReportQuarterly, models.ReportCustom:
		return true
	}
	return false
}
