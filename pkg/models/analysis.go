package models

import "time"

// Impact is the predicted business impact of an analyzed trend.
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// ImpactWeight ranks impacts for recommendation ordering in reports.
func ImpactWeight(i Impact) int {
	switch i {
	case ImpactHigh:
		return 3
	case ImpactMedium:
		return 2
	case ImpactLow:
		return 1
	default:
		return 0
	}
}

// ApprovalStatus is the human sign-off state of an analysis.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Analysis is a deeper, LLM-assisted assessment of one alert. Created once by
// the analysis engine; only the approval status ever changes afterwards.
// HumanApprovalRequired is computed at creation and never recomputed.
type Analysis struct {
	ID                    string            `json:"id"`
	AlertID               *string           `json:"alert_id"` // nil for standalone analyses
	Title                 string            `json:"title"`
	CreatedAt             time.Time         `json:"created_at"`
	MarketSignals         map[string]string `json:"market_signals"`
	Confidence            float64           `json:"confidence"`
	PredictedImpact       Impact            `json:"predicted_impact"`
	RecommendedActions    []string          `json:"recommended_actions"`
	SupportingEvidence    []string          `json:"supporting_evidence"`
	RiskAssessment        map[string]string `json:"risk_assessment"`
	HumanApprovalRequired bool              `json:"human_approval_required"`
	ApprovalStatus        ApprovalStatus    `json:"approval_status"`
}

// NewAnalysisID derives the analysis identifier from its alert.
func NewAnalysisID(alertID string) string {
	return "analysis_" + alertID
}

// OrgContext carries the organizational context an analysis is evaluated
// against: what the company cares about and how much risk it tolerates.
type OrgContext struct {
	Company          string   `json:"company"`
	FocusAreas       []string `json:"focus_areas"`
	CoreCompetencies []string `json:"core_competencies"`
	RiskTolerance    string   `json:"risk_tolerance"`
}
