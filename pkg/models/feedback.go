package models

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackKind classifies a human judgment on an analysis.
type FeedbackKind string

const (
	FeedbackApproval     FeedbackKind = "approval"
	FeedbackRejection    FeedbackKind = "rejection"
	FeedbackModification FeedbackKind = "modification"
)

// Feedback is one human judgment on one analysis. Append-only.
type Feedback struct {
	ID               uuid.UUID         `json:"id"`
	AnalysisID       string            `json:"analysis_id"`
	Kind             FeedbackKind      `json:"kind"`
	AccuracyRating   float64           `json:"accuracy_rating"`
	UsefulnessRating float64           `json:"usefulness_rating"`
	Corrections      map[string]string `json:"corrections"`
	Comments         string            `json:"comments"`
	UserID           string            `json:"user_id"`
	CreatedAt        time.Time         `json:"created_at"`
}
