// Package models contains shared data models used across the TrendSentry codebase.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Severity is the discrete priority label attached to an alert.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// SeverityRank orders severities for sorting; critical sorts first.
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// AlertCategory identifies which kind of source produced an alert.
// The set is open: operators may register sources with new categories.
type AlertCategory string

const (
	CategoryNews       AlertCategory = "news"
	CategoryPatent     AlertCategory = "patent"
	CategoryMarket     AlertCategory = "market"
	CategoryRegulatory AlertCategory = "regulatory"
	CategoryManual     AlertCategory = "manual"
)

// AlertStatus is the alert lifecycle state.
type AlertStatus string

const (
	AlertStatusActive   AlertStatus = "active"
	AlertStatusArchived AlertStatus = "archived"
)

// Alert is one detected signal: scored, deduplicated, and ranked by the scanner.
// Alerts are never mutated after creation except for status transitions and the
// upsert of confidence/data_sources when the same title is re-ingested.
type Alert struct {
	ID             string        `json:"id"`
	Timestamp      time.Time     `json:"timestamp"`
	Category       AlertCategory `json:"category"`
	Severity       Severity      `json:"severity"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	DataSources    []string      `json:"data_sources"`
	Confidence     float64       `json:"confidence"`
	RequiresAction bool          `json:"requires_action"`
	Status         AlertStatus   `json:"status"`
}

// NewAlertID derives the alert identifier from the lower-cased title, so that
// re-ingesting the same headline maps onto the same row and upserts instead of
// duplicating.
func NewAlertID(title string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(title)))
	return hex.EncodeToString(sum[:])[:12]
}

// TitleHash is the deduplication key for a candidate title. Exact-match after
// lower-casing only; near-duplicate headlines from different outlets stay
// distinct alerts.
func TitleHash(title string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(title)))
	return hex.EncodeToString(sum[:])
}
