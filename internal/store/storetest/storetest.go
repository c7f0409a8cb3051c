// Package storetest provides an in-memory Store for service tests.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/trendsentry/service/internal/store"
	"github.com/trendsentry/service/pkg/models"
)

// Fake is an in-memory store.Store. Zero value is not usable; call New.
// Individual methods can be overridden via the function fields to inject
// failures.
type Fake struct {
	mu       sync.Mutex
	alerts   map[string]*models.Alert
	analyses map[string]*models.Analysis
	feedback []*models.Feedback
	weights  map[string]*models.InfluenceWeight
	reports  []*models.Report

	UpsertAlertFunc    func(ctx context.Context, alert *models.Alert) error
	CreateAnalysisFunc func(ctx context.Context, a *models.Analysis) error
	SaveWeightsFunc    func(ctx context.Context, weights map[string]*models.InfluenceWeight) error
}

var _ store.Store = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		alerts:   map[string]*models.Alert{},
		analyses: map[string]*models.Analysis{},
		weights:  map[string]*models.InfluenceWeight{},
	}
}

// SeedWeights installs influence weights, as migrations would.
func (f *Fake) SeedWeights(factors ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, factor := range factors {
		f.weights[factor] = &models.InfluenceWeight{
			Factor:    factor,
			Weight:    0.5,
			History:   []models.WeightAdjustment{},
			UpdatedAt: time.Now().UTC(),
		}
	}
}

func (f *Fake) Ping(ctx context.Context) error { return nil }

func (f *Fake) UpsertAlert(ctx context.Context, alert *models.Alert) error {
	if f.UpsertAlertFunc != nil {
		return f.UpsertAlertFunc(ctx, alert)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.alerts[alert.ID]; ok {
		existing.Confidence = alert.Confidence
		existing.DataSources = alert.DataSources
		return nil
	}
	clone := *alert
	f.alerts[alert.ID] = &clone
	return nil
}

func (f *Fake) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	alert, ok := f.alerts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *alert
	return &clone, nil
}

func (f *Fake) ListAlerts(ctx context.Context, filter store.AlertFilter) ([]*models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Alert{}
	for _, alert := range f.alerts {
		if filter.Status != "" && alert.Status != filter.Status {
			continue
		}
		if filter.Category != "" && alert.Category != filter.Category {
			continue
		}
		clone := *alert
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *Fake) ListAlertsInWindow(ctx context.Context, start, end time.Time) ([]*models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Alert{}
	for _, alert := range f.alerts {
		if alert.Timestamp.Before(start) || alert.Timestamp.After(end) {
			continue
		}
		clone := *alert
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (f *Fake) ArchiveAlertsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, alert := range f.alerts {
		if alert.Status == models.AlertStatusActive && alert.Timestamp.Before(cutoff) {
			alert.Status = models.AlertStatusArchived
			n++
		}
	}
	return n, nil
}

func (f *Fake) CreateAnalysis(ctx context.Context, a *models.Analysis) error {
	if f.CreateAnalysisFunc != nil {
		return f.CreateAnalysisFunc(ctx, a)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *a
	f.analyses[a.ID] = &clone
	return nil
}

func (f *Fake) GetAnalysis(ctx context.Context, id string) (*models.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.analyses[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (f *Fake) ListPendingAnalyses(ctx context.Context) ([]*models.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Analysis{}
	for _, a := range f.analyses {
		if a.HumanApprovalRequired && a.ApprovalStatus == models.ApprovalPending {
			clone := *a
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *Fake) ListAnalysesInWindow(ctx context.Context, start, end time.Time) ([]*models.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Analysis{}
	for _, a := range f.analyses {
		if a.CreatedAt.Before(start) || a.CreatedAt.After(end) {
			continue
		}
		clone := *a
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *Fake) SetApprovalStatus(ctx context.Context, id string, status models.ApprovalStatus, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.analyses[id]
	if !ok {
		return store.ErrNotFound
	}
	if a.ApprovalStatus != models.ApprovalPending {
		return store.ErrNotPending
	}
	a.ApprovalStatus = status
	return nil
}

func (f *Fake) AverageConfidenceSince(ctx context.Context, since time.Time) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum float64
	var n int
	for _, a := range f.analyses {
		if a.CreatedAt.Before(since) {
			continue
		}
		sum += a.Confidence
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

func (f *Fake) CreateFeedback(ctx context.Context, fb *models.Feedback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *fb
	f.feedback = append(f.feedback, &clone)
	return nil
}

func (f *Fake) ListFeedbackInWindow(ctx context.Context, start, end time.Time) ([]*models.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Feedback{}
	for _, fb := range f.feedback {
		if fb.CreatedAt.Before(start) || fb.CreatedAt.After(end) {
			continue
		}
		clone := *fb
		out = append(out, &clone)
	}
	return out, nil
}

func (f *Fake) CountFeedback(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.feedback), nil
}

func (f *Fake) AverageRatingsSince(ctx context.Context, since time.Time) (accuracy, usefulness float64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int
	for _, fb := range f.feedback {
		if fb.CreatedAt.Before(since) {
			continue
		}
		accuracy += fb.AccuracyRating
		usefulness += fb.UsefulnessRating
		n++
	}
	if n == 0 {
		return 0, 0, nil
	}
	return accuracy / float64(n), usefulness / float64(n), nil
}

func (f *Fake) LoadWeights(ctx context.Context) (map[string]*models.InfluenceWeight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]*models.InfluenceWeight, len(f.weights))
	for factor, w := range f.weights {
		clone := *w
		clone.History = append([]models.WeightAdjustment{}, w.History...)
		out[factor] = &clone
	}
	return out, nil
}

func (f *Fake) SaveWeights(ctx context.Context, weights map[string]*models.InfluenceWeight) error {
	if f.SaveWeightsFunc != nil {
		return f.SaveWeightsFunc(ctx, weights)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for factor, w := range weights {
		clone := *w
		clone.History = append([]models.WeightAdjustment{}, w.History...)
		f.weights[factor] = &clone
	}
	return nil
}

func (f *Fake) CreateReport(ctx context.Context, r *models.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *r
	f.reports = append(f.reports, &clone)
	return nil
}

func (f *Fake) LatestReport(ctx context.Context, kind models.ReportKind) (*models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.Report
	for _, r := range f.reports {
		if r.Kind != kind {
			continue
		}
		if latest == nil || r.GeneratedAt.After(latest.GeneratedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	clone := *latest
	return &clone, nil
}

func (f *Fake) ListReports(ctx context.Context, kind models.ReportKind, limit int) ([]*models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Report{}
	for _, r := range f.reports {
		if r.Kind != kind {
			continue
		}
		clone := *r
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Alerts returns all stored alerts, for assertions.
func (f *Fake) Alerts() []*models.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Alert, 0, len(f.alerts))
	for _, alert := range f.alerts {
		clone := *alert
		out = append(out, &clone)
	}
	return out
}

// Analyses returns all stored analyses, for assertions.
func (f *Fake) Analyses() []*models.Analysis {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Analysis, 0, len(f.analyses))
	for _, a := range f.analyses {
		clone := *a
		out = append(out, &clone)
	}
	return out
}

// Weights returns the stored weights, for assertions.
func (f *Fake) StoredWeights() map[string]*models.InfluenceWeight {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]*models.InfluenceWeight, len(f.weights))
	for factor, w := range f.weights {
		clone := *w
		clone.History = append([]models.WeightAdjustment{}, w.History...)
		out[factor] = &clone
	}
	return out
}
