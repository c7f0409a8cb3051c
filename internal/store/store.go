package store

import (
	"context"
	"errors"
	"time"

	"github.com/trendsentry/service/pkg/models"
)

var (
	ErrNotFound = errors.New("resource not found")
	// ErrNotPending is returned when an approval transition targets an
	// analysis that is no longer pending. Approval transitions are one-way.
	ErrNotPending = errors.New("analysis is not pending approval")
)

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	// Alerts. Upsert semantics: re-ingesting the same title updates
	// confidence and the source list rather than creating a duplicate row.
	UpsertAlert(ctx context.Context, alert *models.Alert) error
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	ListAlerts(ctx context.Context, filter AlertFilter) ([]*models.Alert, error)
	ListAlertsInWindow(ctx context.Context, start, end time.Time) ([]*models.Alert, error)
	ArchiveAlertsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Analyses are append-only except for the single pending -> approved or
	// pending -> rejected transition.
	CreateAnalysis(ctx context.Context, a *models.Analysis) error
	GetAnalysis(ctx context.Context, id string) (*models.Analysis, error)
	ListPendingAnalyses(ctx context.Context) ([]*models.Analysis, error)
	ListAnalysesInWindow(ctx context.Context, start, end time.Time) ([]*models.Analysis, error)
	SetApprovalStatus(ctx context.Context, id string, status models.ApprovalStatus, userID string) error
	AverageConfidenceSince(ctx context.Context, since time.Time) (float64, error)

	// Feedback is append-only.
	CreateFeedback(ctx context.Context, f *models.Feedback) error
	ListFeedbackInWindow(ctx context.Context, start, end time.Time) ([]*models.Feedback, error)
	CountFeedback(ctx context.Context) (int, error)
	AverageRatingsSince(ctx context.Context, since time.Time) (accuracy, usefulness float64, err error)

	// Influence weights are read as a whole at startup and flushed back as a
	// whole on every feedback event.
	LoadWeights(ctx context.Context) (map[string]*models.InfluenceWeight, error)
	SaveWeights(ctx context.Context, weights map[string]*models.InfluenceWeight) error

	// Reports are immutable once created.
	CreateReport(ctx context.Context, r *models.Report) error
	LatestReport(ctx context.Context, kind models.ReportKind) (*models.Report, error)
	ListReports(ctx context.Context, kind models.ReportKind, limit int) ([]*models.Report, error)
}

// AlertFilter narrows ListAlerts results.
type AlertFilter struct {
	Status   models.AlertStatus
	Category models.AlertCategory
	Limit    int
}
