package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/trendsentry/service/internal/api/middleware"
	"github.com/trendsentry/service/internal/api/response"
	"github.com/trendsentry/service/internal/cache"
	"github.com/trendsentry/service/internal/feedback"
	"github.com/trendsentry/service/pkg/models"
)

// insightsTTL bounds staleness of cached learning insights between feedback
// events.
const insightsTTL = 5 * time.Minute

// FeedbackService is the learning loop surface the handlers depend on.
type FeedbackService interface {
	RecordFeedback(ctx context.Context, f *models.Feedback) error
	LearningInsights(ctx context.Context) (*feedback.Insights, error)
}

// NewRecordFeedbackHandler returns POST /api/v1/feedback. A recorded event
// changes the learned weights, so the cached insights entry is invalidated.
func NewRecordFeedbackHandler(svc FeedbackService, insightsCache cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AnalysisID       string            `json:"analysis_id"`
			Kind             string            `json:"kind"`
			AccuracyRating   float64           `json:"accuracy_rating"`
			UsefulnessRating float64           `json:"usefulness_rating"`
			Corrections      map[string]string `json:"corrections"`
			Comments         string            `json:"comments"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		userID, _ := middleware.GetPrincipal(r)
		f := &models.Feedback{
			AnalysisID:       req.AnalysisID,
			Kind:             models.FeedbackKind(req.Kind),
			AccuracyRating:   req.AccuracyRating,
			UsefulnessRating: req.UsefulnessRating,
			Corrections:      req.Corrections,
			Comments:         req.Comments,
			UserID:           userID,
		}

		if err := svc.RecordFeedback(r.Context(), f); err != nil {
			if errors.Is(err, feedback.ErrMissingFields) {
				response.Error(w, http.StatusBadRequest,
					"INVALID_REQUEST", "analysis_id and kind are required", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to record feedback", nil)
			return
		}

		if insightsCache != nil {
			_ = insightsCache.Delete(r.Context(), cache.InsightsKey())
		}
		response.Created(w, f)
	}
}

// NewInsightsHandler returns GET /api/v1/feedback/insights, read-through
// cached in Redis.
func NewInsightsHandler(svc FeedbackService, insightsCache cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if insightsCache != nil {
			if data, ok, err := insightsCache.Get(r.Context(), cache.InsightsKey()); err == nil && ok {
				var cached feedback.Insights
				if json.Unmarshal(data, &cached) == nil {
					response.JSON(w, &cached)
					return
				}
			}
		}

		insights, err := svc.LearningInsights(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to compute insights", nil)
			return
		}

		if insightsCache != nil {
			if data, merr := json.Marshal(insights); merr == nil {
				_ = insightsCache.Set(r.Context(), cache.InsightsKey(), data, insightsTTL)
			}
		}
		response.JSON(w, insights)
	}
}
