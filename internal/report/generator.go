// Package report aggregates alerts, analyses, and feedback over a time
// window into periodic strategic reports.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/trendsentry/service/internal/store"
	"github.com/trendsentry/service/pkg/models"
)

const (
	maxHighlights        = 3
	maxImmediateActions  = 5
	actionsPerAnalysis   = 2
	topAnalysesForAction = 5
)

// Generator builds reports from persisted pipeline output.
type Generator struct {
	store store.Store
}

func NewGenerator(st store.Store) *Generator {
	return &Generator{store: st}
}

// windowFor returns the lookback window preceding end for a report kind.
func windowFor(kind models.ReportKind, end time.Time) time.Time {
	switch kind {
	case models.ReportDaily:
		return end.AddDate(0, 0, -1)
	case models.ReportWeekly:
		return end.AddDate(0, 0, -7)
	case models.ReportMonthly:
		return end.AddDate(0, 0, -30)
	case models.ReportQuarterly:
		return end.AddDate(0, 0, -90)
	default:
		return end.AddDate(0, 0, -7)
	}
}

// Generate builds and persists a report for one standard period ending now.
func (g *Generator) Generate(ctx context.Context, kind models.ReportKind) (*models.Report, error) {
	end := time.Now().UTC()
	return g.generate(ctx, kind, windowFor(kind, end), end, nil)
}

// GenerateCustom builds and persists a report for an arbitrary window,
// optionally filtered to analyses whose titles mention a focus area.
func (g *Generator) GenerateCustom(ctx context.Context, start, end time.Time, focusAreas []string) (*models.Report, error) {
	return g.generate(ctx, models.ReportCustom, start, end, focusAreas)
}

func (g *Generator) generate(ctx context.Context, kind models.ReportKind, start, end time.Time, focusAreas []string) (*models.Report, error) {
	alerts, err := g.store.ListAlertsInWindow(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list alerts for report: %w", err)
	}
	analyses, err := g.store.ListAnalysesInWindow(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list analyses for report: %w", err)
	}
	feedback, err := g.store.ListFeedbackInWindow(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list feedback for report: %w", err)
	}

	if len(focusAreas) > 0 {
		analyses = filterByFocus(analyses, focusAreas)
	}

	r := &models.Report{
		ID:               models.NewReportID(kind, end),
		Kind:             kind,
		PeriodStart:      start,
		PeriodEnd:        end,
		ExecutiveSummary: buildSummary(alerts, analyses, feedback),
		Content:          buildContent(alerts, analyses),
		Metrics:          buildMetrics(alerts, analyses, feedback),
		GeneratedAt:      time.Now().UTC(),
	}

	if err := g.store.CreateReport(ctx, r); err != nil {
		return nil, fmt.Errorf("persist report: %w", err)
	}
	return r, nil
}

// Latest returns the most recent report of a kind.
func (g *Generator) Latest(ctx context.Context, kind models.ReportKind) (*models.Report, error) {
	return g.store.LatestReport(ctx, kind)
}

// History lists past reports of a kind, newest first.
func (g *Generator) History(ctx context.Context, kind models.ReportKind, limit int) ([]*models.Report, error) {
	return g.store.ListReports(ctx, kind, limit)
}

func filterByFocus(analyses []*models.Analysis, focusAreas []string) []*models.Analysis {
	filtered := make([]*models.Analysis, 0, len(analyses))
	for _, a := range analyses {
		title := strings.ToLower(a.Title)
		for _, focus := range focusAreas {
			if strings.Contains(title, strings.ToLower(focus)) {
				filtered = append(filtered, a)
				break
			}
		}
	}
	return filtered
}

// buildSummary renders a markdown executive summary: period counts, the
// highest-impact trends, the most urgent actions, and learning progress when
// feedback exists.
func buildSummary(alerts []*models.Alert, analyses []*models.Analysis, feedback []*models.Feedback) string {
	var b strings.Builder

	b.WriteString("## Executive Summary\n\n")
	fmt.Fprintf(&b, "During this period, %d alerts were detected and %d analyses completed.\n",
		len(alerts), len(analyses))

	critical := 0
	for _, a := range alerts {
		if a.Severity == models.SeverityCritical {
			critical++
		}
	}
	var confidence float64
	for _, a := range analyses {
		confidence += a.Confidence
	}
	if len(analyses) > 0 {
		confidence /= float64(len(analyses))
	}
	fmt.Fprintf(&b, "%d high-impact developments and %d critical alerts were identified; average analysis confidence was %.0f%%.\n\n",
		len(highImpact(analyses)), critical, confidence*100)

	highlights := highImpact(analyses)
	if len(highlights) > 0 {
		b.WriteString("### Key Developments\n\n")
		for i, a := range highlights {
			if i >= maxHighlights {
				break
			}
			fmt.Fprintf(&b, "- **%s** (confidence: %.0f%%)\n", a.Title, a.Confidence*100)
		}
		b.WriteString("\n")
	}

	actions := immediateActions(analyses)
	if len(actions) > 0 {
		b.WriteString("### Immediate Actions\n\n")
		for _, action := range actions {
			fmt.Fprintf(&b, "- %s\n", action)
		}
		b.WriteString("\n")
	}

	if len(feedback) > 0 {
		var accuracy float64
		approvals := 0
		for _, f := range feedback {
			accuracy += f.AccuracyRating
			if f.Kind == models.FeedbackApproval {
				approvals++
			}
		}
		accuracy /= float64(len(feedback))
		b.WriteString("### System Learning\n\n")
		fmt.Fprintf(&b, "Received %d feedback events (%d approvals) with average accuracy %.0f%%.\n",
			len(feedback), approvals, accuracy*100)
	}

	return b.String()
}

func highImpact(analyses []*models.Analysis) []*models.Analysis {
	out := make([]*models.Analysis, 0, len(analyses))
	for _, a := range analyses {
		if a.PredictedImpact == models.ImpactHigh {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// immediateActions takes the first actions from the top-ranked analyses,
// capped so the summary stays scannable.
func immediateActions(analyses []*models.Analysis) []string {
	ranked := rankAnalyses(analyses)
	if len(ranked) > topAnalysesForAction {
		ranked = ranked[:topAnalysesForAction]
	}
	actions := make([]string, 0, maxImmediateActions)
	for _, a := range ranked {
		for i, action := range a.RecommendedActions {
			if i >= actionsPerAnalysis || len(actions) >= maxImmediateActions {
				break
			}
			actions = append(actions, action)
		}
		if len(actions) >= maxImmediateActions {
			break
		}
	}
	return actions
}

// rankAnalyses orders by predicted impact weight, then confidence descending.
func rankAnalyses(analyses []*models.Analysis) []*models.Analysis {
	ranked := make([]*models.Analysis, len(analyses))
	copy(ranked, analyses)
	sort.SliceStable(ranked, func(i, j int) bool {
		wi, wj := models.ImpactWeight(ranked[i].PredictedImpact), models.ImpactWeight(ranked[j].PredictedImpact)
		if wi != wj {
			return wi > wj
		}
		return ranked[i].Confidence > ranked[j].Confidence
	})
	return ranked
}

func buildContent(alerts []*models.Alert, analyses []*models.Analysis) models.ReportContent {
	content := models.ReportContent{
		TrendAnalyses:      make([]models.AnalysisDetail, 0, len(analyses)),
		KeyRecommendations: []models.Recommendation{},
		RiskOverview:       map[string][]models.RiskEntry{},
		MarketInsights:     map[models.AlertCategory][]models.InsightEntry{},
	}

	for _, a := range analyses {
		content.TrendAnalyses = append(content.TrendAnalyses, models.AnalysisDetail{
			Title:      a.Title,
			Impact:     a.PredictedImpact,
			Confidence: a.Confidence,
			Signals:    a.MarketSignals,
			Actions:    a.RecommendedActions,
			Risks:      a.RiskAssessment,
		})

		for _, risk := range sortedKeys(a.RiskAssessment) {
			content.RiskOverview[risk] = append(content.RiskOverview[risk], models.RiskEntry{
				Trend:       a.Title,
				Description: a.RiskAssessment[risk],
			})
		}
	}

	for _, a := range rankAnalyses(analyses) {
		for _, action := range a.RecommendedActions {
			content.KeyRecommendations = append(content.KeyRecommendations, models.Recommendation{
				Action:     action,
				Trend:      a.Title,
				Impact:     a.PredictedImpact,
				Confidence: a.Confidence,
			})
		}
	}

	for _, alert := range alerts {
		content.MarketInsights[alert.Category] = append(content.MarketInsights[alert.Category], models.InsightEntry{
			Title:      alert.Title,
			Severity:   alert.Severity,
			Confidence: alert.Confidence,
		})
	}

	return content
}

func buildMetrics(alerts []*models.Alert, analyses []*models.Analysis, feedback []*models.Feedback) models.ReportMetrics {
	metrics := models.ReportMetrics{
		TotalAlerts:      len(alerts),
		AlertsBySeverity: map[models.Severity]int{},
		TotalAnalyses:    len(analyses),
		AnalysesByImpact: map[models.Impact]int{},
	}

	for _, alert := range alerts {
		metrics.AlertsBySeverity[alert.Severity]++
	}

	var confidenceSum float64
	for _, a := range analyses {
		metrics.AnalysesByImpact[a.PredictedImpact]++
		confidenceSum += a.Confidence
		if a.HumanApprovalRequired {
			if a.ApprovalStatus == models.ApprovalApproved {
				metrics.HumanApproved++
			}
		} else {
			metrics.AutoApproved++
		}
	}
	if len(analyses) > 0 {
		metrics.AverageConfidence = confidenceSum / float64(len(analyses))
	}

	if len(feedback) > 0 {
		var accuracy float64
		for _, f := range feedback {
			accuracy += f.AccuracyRating
		}
		metrics.SystemAccuracy = accuracy / float64(len(feedback))
	}

	return metrics
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
