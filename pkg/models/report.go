package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ReportKind selects the lookback window of a generated report.
type ReportKind string

const (
	ReportDaily     ReportKind = "daily"
	ReportWeekly    ReportKind = "weekly"
	ReportMonthly   ReportKind = "monthly"
	ReportQuarterly ReportKind = "quarterly"
	ReportCustom    ReportKind = "custom"
)

// AnalysisDetail is the per-analysis entry in a report's content.
type AnalysisDetail struct {
	Title      string            `json:"title"`
	Impact     Impact            `json:"impact"`
	Confidence float64           `json:"confidence"`
	Signals    map[string]string `json:"signals"`
	Actions    []string          `json:"actions"`
	Risks      map[string]string `json:"risks"`
}

// Recommendation is one re-ranked action item extracted from an analysis.
type Recommendation struct {
	Action     string  `json:"action"`
	Trend      string  `json:"trend"`
	Impact     Impact  `json:"impact"`
	Confidence float64 `json:"confidence"`
}

// RiskEntry attributes one risk description to the trend it came from.
type RiskEntry struct {
	Trend       string `json:"trend"`
	Description string `json:"description"`
}

// InsightEntry summarizes one alert inside the per-category market rollup.
type InsightEntry struct {
	Title      string   `json:"title"`
	Severity   Severity `json:"severity"`
	Confidence float64  `json:"confidence"`
}

// ReportContent is the structured body of a report.
type ReportContent struct {
	TrendAnalyses      []AnalysisDetail                 `json:"trend_analyses"`
	KeyRecommendations []Recommendation                 `json:"key_recommendations"`
	RiskOverview       map[string][]RiskEntry           `json:"risk_overview"`
	MarketInsights     map[AlertCategory][]InsightEntry `json:"market_insights"`
}

// ReportMetrics is the numeric rollup of a report period.
type ReportMetrics struct {
	TotalAlerts       int              `json:"total_alerts"`
	AlertsBySeverity  map[Severity]int `json:"alerts_by_severity"`
	TotalAnalyses     int              `json:"total_analyses"`
	AnalysesByImpact  map[Impact]int   `json:"analyses_by_impact"`
	AverageConfidence float64          `json:"average_confidence"`
	AutoApproved      int              `json:"auto_approved"`
	HumanApproved     int              `json:"human_approved"`
	SystemAccuracy    float64          `json:"system_accuracy"`
}

// Report is one period's rollup. Immutable once created.
type Report struct {
	ID               string        `json:"id"`
	Kind             ReportKind    `json:"kind"`
	PeriodStart      time.Time     `json:"period_start"`
	PeriodEnd        time.Time     `json:"period_end"`
	ExecutiveSummary string        `json:"executive_summary"`
	Content          ReportContent `json:"content"`
	Metrics          ReportMetrics `json:"metrics"`
	GeneratedAt      time.Time     `json:"generated_at"`
}

// NewReportID derives a report identifier from its kind and period end.
func NewReportID(kind ReportKind, periodEnd time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s%s", kind, periodEnd.UTC().Format(time.RFC3339Nano))))
	return hex.EncodeToString(sum[:])[:12]
}
