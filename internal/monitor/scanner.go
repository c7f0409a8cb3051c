// Package monitor owns the scan cycle: concurrent source fan-out, scoring,
// filtering, deduplication, ranking, and persistence of alerts.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/trendsentry/service/internal/notify"
	"github.com/trendsentry/service/internal/scoring"
	"github.com/trendsentry/service/internal/sources"
	"github.com/trendsentry/service/internal/store"
	"github.com/trendsentry/service/pkg/models"
)

// actionThreshold marks alerts that demand follow-up regardless of operator
// review cadence.
const actionThreshold = 0.85

const maxDescriptionLen = 500

// Scanner fans out over all configured sources, scores what they return, and
// turns survivors into persisted alerts.
type Scanner struct {
	sources       []sources.Source
	engine        *scoring.Engine
	store         store.Store
	notifier      notify.Notifier
	threshold     float64
	sourceTimeout time.Duration
	scanQuery     string
	retention     time.Duration
}

// NewScanner creates a Scanner. threshold is the alert relevance threshold:
// candidates scoring at or below it are dropped.
func NewScanner(srcs []sources.Source, engine *scoring.Engine, st store.Store,
	notifier notify.Notifier, threshold float64, sourceTimeout time.Duration,
	scanQuery string, retention time.Duration) *Scanner {
	return &Scanner{
		sources:       srcs,
		engine:        engine,
		store:         st,
		notifier:      notifier,
		threshold:     threshold,
		sourceTimeout: sourceTimeout,
		scanQuery:     scanQuery,
		retention:     retention,
	}
}

// ScanSources scans every configured source concurrently and returns scored,
// deduplicated, ranked alerts. A single source's failure is logged and
// contributes zero alerts; it never aborts the scan. Every surviving alert is
// upserted and pushed to listeners before returning.
func (s *Scanner) ScanSources(ctx context.Context) ([]models.Alert, error) {
	results := make(chan []models.Candidate, len(s.sources))

	for _, src := range s.sources {
		go func(src sources.Source) {
			results <- s.scanOne(ctx, src)
		}(src)
	}

	var candidates []models.Candidate
	for range s.sources {
		candidates = append(candidates, <-results...)
	}

	alerts := s.filterAlerts(candidates)

	for i := range alerts {
		if err := s.store.UpsertAlert(ctx, &alerts[i]); err != nil {
			return nil, fmt.Errorf("persist alert %s: %w", alerts[i].ID, err)
		}
		s.notifier.AlertCreated(ctx, &alerts[i])
	}

	return alerts, nil
}

// scanOne runs one source's fetch+process under its own timeout. All failure
// modes, including panics in a misbehaving source, are contained here.
func (s *Scanner) scanOne(ctx context.Context, src sources.Source) (candidates []models.Candidate) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic scanning source", "source", src.Name(), "error", r)
			candidates = nil
		}
	}()

	srcCtx, cancel := context.WithTimeout(ctx, s.sourceTimeout)
	defer cancel()

	raw, err := src.Fetch(srcCtx, s.scanQuery)
	if err != nil {
		slog.Warn("source fetch failed", "source", src.Name(), "error", err)
		return nil
	}

	candidates, err = src.Process(raw)
	if err != nil {
		slog.Warn("source process failed", "source", src.Name(), "error", err)
		return nil
	}
	return candidates
}

// filterAlerts scores candidates, drops those at or below the threshold,
// deduplicates by lower-cased title, and ranks by severity then confidence.
func (s *Scanner) filterAlerts(candidates []models.Candidate) []models.Alert {
	seen := make(map[string]struct{})
	var alerts []models.Alert

	for _, c := range candidates {
		relevance, severity := s.engine.Score(c.Title+" "+c.Description, c.Category)
		if relevance <= s.threshold {
			continue
		}

		hash := models.TitleHash(c.Title)
		if _, dup := seen[hash]; dup {
			continue
		}
		seen[hash] = struct{}{}

		desc := truncateDescription(c.Description)

		alerts = append(alerts, models.Alert{
			ID:             models.NewAlertID(c.Title),
			Timestamp:      time.Now().UTC(),
			Category:       c.Category,
			Severity:       severity,
			Title:          c.Title,
			Description:    desc,
			DataSources:    []string{c.SourceName},
			Confidence:     relevance,
			RequiresAction: relevance > actionThreshold,
			Status:         models.AlertStatusActive,
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := models.SeverityRank(alerts[i].Severity), models.SeverityRank(alerts[j].Severity)
		if ri != rj {
			return ri < rj
		}
		return alerts[i].Confidence > alerts[j].Confidence
	})

	return alerts
}

// truncateDescription caps a description at maxDescriptionLen bytes, backing
// up to a rune boundary so a multibyte character is never split. The database
// rejects invalid UTF-8, so a split rune would fail the whole batch upsert.
func truncateDescription(desc string) string {
	if len(desc) <= maxDescriptionLen {
		return desc
	}
	cut := maxDescriptionLen
	for cut > 0 && !utf8.RuneStart(desc[cut]) {
		cut--
	}
	return desc[:cut]
}

// CreateManualAlert records an operator-entered alert. Manual entries carry
// high confidence and require action when severe.
func (s *Scanner) CreateManualAlert(ctx context.Context, title, description string,
	category models.AlertCategory, severity models.Severity) (*models.Alert, error) {
	if category == "" {
		category = models.CategoryManual
	}
	if severity == "" {
		severity = models.SeverityMedium
	}

	alert := &models.Alert{
		ID:             models.NewAlertID(title),
		Timestamp:      time.Now().UTC(),
		Category:       category,
		Severity:       severity,
		Title:          title,
		Description:    description,
		DataSources:    []string{"manual_entry"},
		Confidence:     0.9,
		RequiresAction: severity == models.SeverityHigh || severity == models.SeverityCritical,
		Status:         models.AlertStatusActive,
	}

	if err := s.store.UpsertAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("persist manual alert: %w", err)
	}
	s.notifier.AlertCreated(ctx, alert)
	return alert, nil
}

// Run drives periodic scan cycles until ctx is cancelled. Each cycle's
// failure is logged and never stops the loop. Alerts older than the retention
// window are archived at the end of each cycle.
func (s *Scanner) Run(ctx context.Context, interval time.Duration, onAlerts func(context.Context, []models.Alert)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("scan loop started", "interval", interval, "sources", len(s.sources))

	for {
		select {
		case <-ctx.Done():
			slog.Info("scan loop stopped")
			return
		case <-ticker.C:
			alerts, err := s.ScanSources(ctx)
			if err != nil {
				slog.Error("scan cycle failed", "error", err)
				continue
			}
			slog.Info("scan cycle complete", "alerts", len(alerts))

			if onAlerts != nil && len(alerts) > 0 {
				onAlerts(ctx, alerts)
			}

			if s.retention > 0 {
				cutoff := time.Now().UTC().Add(-s.retention)
				if n, err := s.store.ArchiveAlertsBefore(ctx, cutoff); err != nil {
					slog.Warn("alert archival failed", "error", err)
				} else if n > 0 {
					slog.Info("alerts archived", "count", n)
				}
			}
		}
	}
}
