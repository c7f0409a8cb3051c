package report

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/trendsentry/service/internal/cache"
	"github.com/trendsentry/service/pkg/models"
)

const cachedReportTTL = time.Hour

// job is one scheduled report. due decides whether the job fires at a given
// minute; the scheduler ticks once per minute so each job fires at most once
// per due minute.
type job struct {
	kind models.ReportKind
	due  func(t time.Time) bool
}

// Scheduler fires periodic report generation. Weekly reports go out Monday
// mornings; monthly reports on the first of the month.
type Scheduler struct {
	generator *Generator
	cache     cache.Cache
	jobs      []job
}

// NewScheduler creates a scheduler. reportCache may be nil to skip caching
// of freshly generated reports.
func NewScheduler(g *Generator, reportCache cache.Cache) *Scheduler {
	return &Scheduler{
		generator: g,
		cache:     reportCache,
		jobs: []job{
			{kind: models.ReportWeekly, due: func(t time.Time) bool {
				return t.Weekday() == time.Monday && t.Hour() == 9 && t.Minute() == 0
			}},
			{kind: models.ReportMonthly, due: func(t time.Time) bool {
				return t.Day() == 1 && t.Hour() == 9 && t.Minute() == 0
			}},
		},
	}
}

// Run polls once a minute and fires any due jobs. A failed generation is
// logged and does not affect other jobs or later fires. Blocks until ctx
// is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("report scheduler started")
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("report scheduler stopped")
			return
		case now := <-ticker.C:
			s.fireDue(ctx, now.UTC())
		}
	}
}

func (s *Scheduler) fireDue(ctx context.Context, now time.Time) {
	for _, j := range s.jobs {
		if !j.due(now) {
			continue
		}
		if err := s.runJob(ctx, j.kind); err != nil {
			slog.Error("scheduled report failed", "kind", j.kind, "error", err)
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context, kind models.ReportKind) error {
	r, err := s.generator.Generate(ctx, kind)
	if err != nil {
		return err
	}
	slog.Info("scheduled report generated", "kind", kind, "report_id", r.ID)

	if s.cache != nil {
		if data, merr := json.Marshal(r); merr == nil {
			if cerr := s.cache.Set(ctx, cache.LatestReportKey(kind), data, cachedReportTTL); cerr != nil {
				slog.Warn("report cache write failed", "kind", kind, "error", cerr)
			}
		}
	}
	return nil
}

// NextFire reports when each job will next run, from a given instant.
func (s *Scheduler) NextFire(from time.Time) map[models.ReportKind]time.Time {
	next := make(map[models.ReportKind]time.Time, len(s.jobs))
	for _, j := range s.jobs {
		t := from.UTC().Truncate(time.Minute).Add(time.Minute)
		// Bounded scan: a monthly job is at most ~31 days out.
		for i := 0; i < 60*24*32; i++ {
			if j.due(t) {
				break
			}
			t = t.Add(time.Minute)
		}
		next[j.kind] = t
	}
	return next
}
