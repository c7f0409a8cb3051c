package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/trendsentry/service/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Alerts ---

func (s *PostgresStore) UpsertAlert(ctx context.Context, alert *models.Alert) error {
	sourcesJSON, err := json.Marshal(alert.DataSources)
	if err != nil {
		return fmt.Errorf("marshal data sources: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO alerts (id, ts, category, severity, title, description,
		                     data_sources, confidence, requires_action, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		     confidence = EXCLUDED.confidence,
		     data_sources = EXCLUDED.data_sources`,
		alert.ID, alert.Timestamp, alert.Category, alert.Severity, alert.Title,
		alert.Description, sourcesJSON, alert.Confidence, alert.RequiresAction,
		alert.Status)
	if err != nil {
		return fmt.Errorf("upsert alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, ts, category, severity, title, description,
		        data_sources, confidence, requires_action, status
		 FROM alerts WHERE id = $1`, id)

	alert, err := scanAlert(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return alert, nil
}

func (s *PostgresStore) ListAlerts(ctx context.Context, filter AlertFilter) ([]*models.Alert, error) {
	query := `SELECT id, ts, category, severity, title, description,
	                 data_sources, confidence, requires_action, status
	          FROM alerts WHERE 1=1`
	args := []any{}
	n := 0

	if filter.Status != "" {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, filter.Status)
	}
	if filter.Category != "" {
		n++
		query += fmt.Sprintf(" AND category = $%d", n)
		args = append(args, filter.Category)
	}
	query += " ORDER BY ts DESC"
	if filter.Limit > 0 {
		n++
		query += fmt.Sprintf(" LIMIT $%d", n)
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()
	return collectAlerts(rows)
}

func (s *PostgresStore) ListAlertsInWindow(ctx context.Context, start, end time.Time) ([]*models.Alert, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, ts, category, severity, title, description,
		        data_sources, confidence, requires_action, status
		 FROM alerts WHERE ts BETWEEN $1 AND $2
		 ORDER BY ts`, start, end)
	if err != nil {
		return nil, fmt.Errorf("list alerts in window: %w", err)
	}
	defer rows.Close()
	return collectAlerts(rows)
}

func (s *PostgresStore) ArchiveAlertsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE alerts SET status = 'archived'
		 WHERE status = 'active' AND ts < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("archive alerts: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanAlert(row pgx.Row) (*models.Alert, error) {
	var a models.Alert
	var sourcesJSON []byte
	if err := row.Scan(&a.ID, &a.Timestamp, &a.Category, &a.Severity, &a.Title,
		&a.Description, &sourcesJSON, &a.Confidence, &a.RequiresAction, &a.Status); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(sourcesJSON, &a.DataSources); err != nil {
		return nil, fmt.Errorf("unmarshal data sources: %w", err)
	}
	return &a, nil
}

func collectAlerts(rows pgx.Rows) ([]*models.Alert, error) {
	var alerts []*models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// --- Analyses ---

func (s *PostgresStore) CreateAnalysis(ctx context.Context, a *models.Analysis) error {
	signalsJSON, err := json.Marshal(a.MarketSignals)
	if err != nil {
		return fmt.Errorf("marshal market signals: %w", err)
	}
	actionsJSON, err := json.Marshal(a.RecommendedActions)
	if err != nil {
		return fmt.Errorf("marshal recommended actions: %w", err)
	}
	evidenceJSON, err := json.Marshal(a.SupportingEvidence)
	if err != nil {
		return fmt.Errorf("marshal supporting evidence: %w", err)
	}
	risksJSON, err := json.Marshal(a.RiskAssessment)
	if err != nil {
		return fmt.Errorf("marshal risk assessment: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO analyses (id, alert_id, title, created_at, market_signals,
		                       confidence, predicted_impact, recommended_actions,
		                       supporting_evidence, risk_assessment,
		                       human_approval_required, approval_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.AlertID, a.Title, a.CreatedAt, signalsJSON, a.Confidence,
		a.PredictedImpact, actionsJSON, evidenceJSON, risksJSON,
		a.HumanApprovalRequired, a.ApprovalStatus)
	if err != nil {
		return fmt.Errorf("create analysis: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (*models.Analysis, error) {
	row := s.pool.QueryRow(ctx, selectAnalysis+` WHERE id = $1`, id)
	a, err := scanAnalysis(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ListPendingAnalyses(ctx context.Context) ([]*models.Analysis, error) {
	rows, err := s.pool.Query(ctx,
		selectAnalysis+` WHERE approval_status = 'pending'
		 AND human_approval_required ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list pending analyses: %w", err)
	}
	defer rows.Close()
	return collectAnalyses(rows)
}

func (s *PostgresStore) ListAnalysesInWindow(ctx context.Context, start, end time.Time) ([]*models.Analysis, error) {
	rows, err := s.pool.Query(ctx,
		selectAnalysis+` WHERE created_at BETWEEN $1 AND $2
		 ORDER BY confidence DESC`, start, end)
	if err != nil {
		return nil, fmt.Errorf("list analyses in window: %w", err)
	}
	defer rows.Close()
	return collectAnalyses(rows)
}

func (s *PostgresStore) SetApprovalStatus(ctx context.Context, id string, status models.ApprovalStatus, userID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE analyses
		 SET approval_status = $1, approved_by = $2, approved_at = $3
		 WHERE id = $4 AND approval_status = 'pending'`,
		status, userID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set approval status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the analysis does not exist or it already left pending.
		if _, err := s.GetAnalysis(ctx, id); err != nil {
			return err
		}
		return ErrNotPending
	}
	return nil
}

func (s *PostgresStore) AverageConfidenceSince(ctx context.Context, since time.Time) (float64, error) {
	var avg *float64
	err := s.pool.QueryRow(ctx,
		`SELECT AVG(confidence) FROM analyses WHERE created_at > $1`, since,
	).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("average confidence: %w", err)
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}

const selectAnalysis = `SELECT id, alert_id, title, created_at, market_signals,
       confidence, predicted_impact, recommended_actions, supporting_evidence,
       risk_assessment, human_approval_required, approval_status
  FROM analyses`

func scanAnalysis(row pgx.Row) (*models.Analysis, error) {
	var a models.Analysis
	var signalsJSON, actionsJSON, evidenceJSON, risksJSON []byte
	if err := row.Scan(&a.ID, &a.AlertID, &a.Title, &a.CreatedAt, &signalsJSON,
		&a.Confidence, &a.PredictedImpact, &actionsJSON, &evidenceJSON,
		&risksJSON, &a.HumanApprovalRequired, &a.ApprovalStatus); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(signalsJSON, &a.MarketSignals); err != nil {
		return nil, fmt.Errorf("unmarshal market signals: %w", err)
	}
	if err := json.Unmarshal(actionsJSON, &a.RecommendedActions); err != nil {
		return nil, fmt.Errorf("unmarshal recommended actions: %w", err)
	}
	if err := json.Unmarshal(evidenceJSON, &a.SupportingEvidence); err != nil {
		return nil, fmt.Errorf("unmarshal supporting evidence: %w", err)
	}
	if err := json.Unmarshal(risksJSON, &a.RiskAssessment); err != nil {
		return nil, fmt.Errorf("unmarshal risk assessment: %w", err)
	}
	return &a, nil
}

func collectAnalyses(rows pgx.Rows) ([]*models.Analysis, error) {
	var analyses []*models.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

// --- Feedback ---

func (s *PostgresStore) CreateFeedback(ctx context.Context, f *models.Feedback) error {
	correctionsJSON, err := json.Marshal(f.Corrections)
	if err != nil {
		return fmt.Errorf("marshal corrections: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO feedback (id, analysis_id, kind, accuracy_rating,
		                       usefulness_rating, corrections, comments,
		                       user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		f.ID, f.AnalysisID, f.Kind, f.AccuracyRating, f.UsefulnessRating,
		correctionsJSON, f.Comments, f.UserID, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListFeedbackInWindow(ctx context.Context, start, end time.Time) ([]*models.Feedback, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, analysis_id, kind, accuracy_rating, usefulness_rating,
		        corrections, comments, user_id, created_at
		 FROM feedback WHERE created_at BETWEEN $1 AND $2
		 ORDER BY created_at`, start, end)
	if err != nil {
		return nil, fmt.Errorf("list feedback in window: %w", err)
	}
	defer rows.Close()

	var feedback []*models.Feedback
	for rows.Next() {
		var f models.Feedback
		var correctionsJSON []byte
		if err := rows.Scan(&f.ID, &f.AnalysisID, &f.Kind, &f.AccuracyRating,
			&f.UsefulnessRating, &correctionsJSON, &f.Comments, &f.UserID,
			&f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		if err := json.Unmarshal(correctionsJSON, &f.Corrections); err != nil {
			return nil, fmt.Errorf("unmarshal corrections: %w", err)
		}
		feedback = append(feedback, &f)
	}
	return feedback, rows.Err()
}

func (s *PostgresStore) CountFeedback(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM feedback`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count feedback: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) AverageRatingsSince(ctx context.Context, since time.Time) (float64, float64, error) {
	var accuracy, usefulness *float64
	err := s.pool.QueryRow(ctx,
		`SELECT AVG(accuracy_rating), AVG(usefulness_rating)
		 FROM feedback WHERE created_at > $1`, since,
	).Scan(&accuracy, &usefulness)
	if err != nil {
		return 0, 0, fmt.Errorf("average ratings: %w", err)
	}
	return deref(accuracy), deref(usefulness), nil
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// --- Influence weights ---

func (s *PostgresStore) LoadWeights(ctx context.Context) (map[string]*models.InfluenceWeight, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT factor, weight, history, updated_at FROM influence_weights`)
	if err != nil {
		return nil, fmt.Errorf("load weights: %w", err)
	}
	defer rows.Close()

	weights := make(map[string]*models.InfluenceWeight)
	for rows.Next() {
		var w models.InfluenceWeight
		var historyJSON []byte
		if err := rows.Scan(&w.Factor, &w.Weight, &historyJSON, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan weight: %w", err)
		}
		if err := json.Unmarshal(historyJSON, &w.History); err != nil {
			return nil, fmt.Errorf("unmarshal weight history: %w", err)
		}
		weights[w.Factor] = &w
	}
	return weights, rows.Err()
}

func (s *PostgresStore) SaveWeights(ctx context.Context, weights map[string]*models.InfluenceWeight) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save weights: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, w := range weights {
		historyJSON, err := json.Marshal(w.History)
		if err != nil {
			return fmt.Errorf("marshal weight history: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO influence_weights (factor, weight, history, updated_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (factor) DO UPDATE SET
			     weight = EXCLUDED.weight,
			     history = EXCLUDED.history,
			     updated_at = EXCLUDED.updated_at`,
			w.Factor, w.Weight, historyJSON, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("save weight %s: %w", w.Factor, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save weights: %w", err)
	}
	return nil
}

// --- Reports ---

func (s *PostgresStore) CreateReport(ctx context.Context, r *models.Report) error {
	contentJSON, err := json.Marshal(r.Content)
	if err != nil {
		return fmt.Errorf("marshal report content: %w", err)
	}
	metricsJSON, err := json.Marshal(r.Metrics)
	if err != nil {
		return fmt.Errorf("marshal report metrics: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO reports (id, kind, period_start, period_end,
		                      executive_summary, content, metrics, generated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.Kind, r.PeriodStart, r.PeriodEnd, r.ExecutiveSummary,
		contentJSON, metricsJSON, r.GeneratedAt)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestReport(ctx context.Context, kind models.ReportKind) (*models.Report, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, kind, period_start, period_end, executive_summary,
		        content, metrics, generated_at
		 FROM reports WHERE kind = $1
		 ORDER BY generated_at DESC LIMIT 1`, kind)

	r, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest report: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListReports(ctx context.Context, kind models.ReportKind, limit int) ([]*models.Report, error) {
	query := `SELECT id, kind, period_start, period_end, executive_summary,
	                 content, metrics, generated_at
	          FROM reports`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = $1 ORDER BY generated_at DESC LIMIT $2`
		args = append(args, kind, limit)
	} else {
		query += ` ORDER BY generated_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func scanReport(row pgx.Row) (*models.Report, error) {
	var r models.Report
	var contentJSON, metricsJSON []byte
	if err := row.Scan(&r.ID, &r.Kind, &r.PeriodStart, &r.PeriodEnd,
		&r.ExecutiveSummary, &contentJSON, &metricsJSON, &r.GeneratedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(contentJSON, &r.Content); err != nil {
		return nil, fmt.Errorf("unmarshal report content: %w", err)
	}
	if err := json.Unmarshal(metricsJSON, &r.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal report metrics: %w", err)
	}
	return &r, nil
}

var _ Store = (*PostgresStore)(nil)
