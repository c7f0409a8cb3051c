// Package feedback implements the learning loop: human judgments on analyses
// are recorded and converted into influence-weight adjustments, which in turn
// bias future confidence computations.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trendsentry/service/internal/store"
	"github.com/trendsentry/service/pkg/models"
)

// ErrMissingFields indicates a feedback submission without the required
// analysis reference or kind.
var ErrMissingFields = errors.New("feedback requires analysis_id and kind")

const (
	minWeight = 0.1
	maxWeight = 1.0

	// trendWindow is the number of recent adjustments inspected when
	// classifying a factor's trend in Insights.
	trendWindow = 10
)

// Loop owns the influence weights and applies every feedback event to them.
// Weight state is loaded once at construction and kept in memory; every
// mutation is flushed back to the store so restarts resume mid-learning.
type Loop struct {
	mu           sync.Mutex
	store        store.Store
	weights      map[string]*models.InfluenceWeight
	learningRate float64
}

// NewLoop loads the persisted weights and returns a ready loop.
func NewLoop(ctx context.Context, st store.Store, learningRate float64) (*Loop, error) {
	weights, err := st.LoadWeights(ctx)
	if err != nil {
		return nil, fmt.Errorf("load influence weights: %w", err)
	}
	return &Loop{
		store:        st,
		weights:      weights,
		learningRate: learningRate,
	}, nil
}

// RecordFeedback validates and persists one feedback event, then adjusts
// every influence weight according to the feedback kind and accuracy rating.
func (l *Loop) RecordFeedback(ctx context.Context, f *models.Feedback) error {
	if f.AnalysisID == "" || f.Kind == "" {
		return ErrMissingFields
	}
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	if f.Corrections == nil {
		f.Corrections = map[string]string{}
	}

	if err := l.store.CreateFeedback(ctx, f); err != nil {
		return fmt.Errorf("persist feedback: %w", err)
	}

	return l.adjustWeights(ctx, f)
}

// adjustWeights applies one feedback event to all influence weights.
// Approvals push weights up in proportion to how accurate the analysis was;
// rejections push them down in proportion to how inaccurate it was;
// modifications nudge toward the middle.
func (l *Loop) adjustWeights(ctx context.Context, f *models.Feedback) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	errorRate := 1.0 - f.AccuracyRating
	now := time.Now().UTC()

	for _, w := range l.weights {
		var adjustment float64
		switch f.Kind {
		case models.FeedbackApproval:
			adjustment = l.learningRate * (1.0 - errorRate)
			w.Weight = math.Min(maxWeight, w.Weight+adjustment)
		case models.FeedbackRejection:
			adjustment = l.learningRate * errorRate
			w.Weight = math.Max(minWeight, w.Weight-adjustment)
		default:
			adjustment = l.learningRate * (0.5 - errorRate)
			w.Weight = clampWeight(w.Weight + adjustment)
		}

		w.History = append(w.History, models.WeightAdjustment{
			Timestamp:    now,
			Adjustment:   adjustment,
			NewWeight:    w.Weight,
			FeedbackKind: f.Kind,
		})
		if len(w.History) > models.WeightHistoryCap {
			w.History = w.History[len(w.History)-models.WeightHistoryCap:]
		}
		w.UpdatedAt = now
	}

	if err := l.store.SaveWeights(ctx, l.weights); err != nil {
		return fmt.Errorf("save influence weights: %w", err)
	}
	return nil
}

// AdjustConfidence biases a base confidence by the learned weights. Each
// factor observation above neutral (0.5) pushes confidence up in proportion
// to that factor's weight; observations below neutral push it down. The
// result stays within [0.1, 1.0].
func (l *Loop) AdjustConfidence(base float64, factors map[string]float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	adjusted := base
	for factor, value := range factors {
		w, ok := l.weights[factor]
		if !ok {
			continue
		}
		adjusted += (value - 0.5) * w.Weight * 0.2
	}
	return clampConfidence(adjusted)
}

// Weights returns a snapshot of the current influence weights.
func (l *Loop) Weights() map[string]models.InfluenceWeight {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]models.InfluenceWeight, len(l.weights))
	for factor, w := range l.weights {
		out[factor] = *w
	}
	return out
}

// FactorTrend summarizes one influence weight's recent movement.
type FactorTrend struct {
	Weight    float64 `json:"weight"`
	Trend     string  `json:"trend"`
	Stability float64 `json:"stability"`
}

// Insights summarizes what the system has learned so far.
type Insights struct {
	TotalFeedback     int                    `json:"total_feedback"`
	AverageAccuracy   float64                `json:"average_accuracy"`
	AverageUsefulness float64                `json:"average_usefulness"`
	AverageConfidence float64                `json:"average_confidence"`
	Factors           map[string]FactorTrend `json:"factors"`
}

// LearningInsights reports feedback volume, trailing 30-day rating and
// analysis-confidence averages, and per-factor weight trends.
func (l *Loop) LearningInsights(ctx context.Context) (*Insights, error) {
	total, err := l.store.CountFeedback(ctx)
	if err != nil {
		return nil, fmt.Errorf("count feedback: %w", err)
	}
	since := time.Now().UTC().AddDate(0, 0, -30)
	accuracy, usefulness, err := l.store.AverageRatingsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("average ratings: %w", err)
	}
	confidence, err := l.store.AverageConfidenceSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("average confidence: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	factors := make(map[string]FactorTrend, len(l.weights))
	for factor, w := range l.weights {
		factors[factor] = FactorTrend{
			Weight:    w.Weight,
			Trend:     trendOf(w.History),
			Stability: stabilityOf(w.History),
		}
	}

	return &Insights{
		TotalFeedback:     total,
		AverageAccuracy:   accuracy,
		AverageUsefulness: usefulness,
		AverageConfidence: confidence,
		Factors:           factors,
	}, nil
}

// trendOf classifies the net movement over the most recent adjustments.
func trendOf(history []models.WeightAdjustment) string {
	if len(history) == 0 {
		return "stable"
	}
	recent := history
	if len(recent) > trendWindow {
		recent = recent[len(recent)-trendWindow:]
	}
	var net float64
	for _, adj := range recent {
		net += adj.Adjustment
	}
	switch {
	case net > 0.1:
		return "increasing"
	case net < -0.1:
		return "decreasing"
	default:
		return "stable"
	}
}

// stabilityOf is the standard deviation of the recent weight values. Lower
// means the weight has settled.
func stabilityOf(history []models.WeightAdjustment) float64 {
	recent := history
	if len(recent) > trendWindow {
		recent = recent[len(recent)-trendWindow:]
	}
	if len(recent) < 2 {
		return 0
	}
	var sum float64
	for _, adj := range recent {
		sum += adj.NewWeight
	}
	mean := sum / float64(len(recent))
	var variance float64
	for _, adj := range recent {
		d := adj.NewWeight - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(recent)))
}

func clampWeight(v float64) float64 {
	if v < minWeight {
		return minWeight
	}
	if v > maxWeight {
		return maxWeight
	}
	return v
}

func clampConfidence(v float64) float64 {
	if v < 0.1 {
		return 0.1
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}
