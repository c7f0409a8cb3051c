// Package analysis turns a single alert into a structured, confidence-scored
// assessment via the generative-text collaborator, with a deterministic
// fallback when the collaborator misbehaves.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/trendsentry/service/internal/notify"
	"github.com/trendsentry/service/internal/store"
	"github.com/trendsentry/service/pkg/models"
)

const (
	providerAttempts  = 3
	defaultRetryDelay = 2 * time.Second
)

// payload is the structured schema expected from the text provider.
// All fields are optional; anything missing falls back.
type payload struct {
	Impact   string            `json:"impact"`
	Actions  []string          `json:"actions"`
	Evidence []string          `json:"evidence"`
	Risks    map[string]string `json:"risks"`
}

// fallbackPayload is the fixed, versioned default substituted whenever the
// provider response fails structured parsing. Deterministic so tests can
// assert on it exactly.
func fallbackPayload() payload {
	return payload{
		Impact: string(models.ImpactMedium),
		Actions: []string{
			"Conduct detailed market assessment",
			"Evaluate technical feasibility",
			"Identify potential partners",
		},
		Evidence: []string{
			"Market signals indicate growing opportunity",
			"Technology aligns with core competencies",
		},
		Risks: map[string]string{
			"market":     "Competition from established players",
			"technical":  "Integration complexity",
			"regulatory": "Evolving standards",
		},
	}
}

// ConfidenceAdjuster biases a computed confidence using learned factor
// weights. Implemented by the feedback loop.
type ConfidenceAdjuster interface {
	AdjustConfidence(base float64, factors map[string]float64) float64
}

// Engine performs semi-autonomous analysis with a human-approval gate.
type Engine struct {
	provider          models.TextProvider
	signals           SignalProvider
	store             store.Store
	notifier          notify.Notifier
	adjuster          ConfidenceAdjuster
	approvalThreshold float64
	maxTokens         int
	temperature       float64
	callTimeout       time.Duration
	retryDelay        time.Duration
}

// NewEngine creates an analysis engine. adjuster may be nil to disable
// weight-based confidence adjustment.
func NewEngine(provider models.TextProvider, signals SignalProvider, st store.Store,
	notifier notify.Notifier, adjuster ConfidenceAdjuster,
	approvalThreshold float64, maxTokens int, temperature float64,
	callTimeout time.Duration) *Engine {
	if signals == nil {
		signals = DefaultSignals{}
	}
	return &Engine{
		provider:          provider,
		signals:           signals,
		store:             st,
		notifier:          notifier,
		adjuster:          adjuster,
		approvalThreshold: approvalThreshold,
		maxTokens:         maxTokens,
		temperature:       temperature,
		callTimeout:       callTimeout,
		retryDelay:        defaultRetryDelay,
	}
}

// SetRetryDelay overrides the delay between provider attempts, used in tests.
func (e *Engine) SetRetryDelay(d time.Duration) { e.retryDelay = d }

// Analyze performs a full analysis of one alert: signal gathering, provider
// call with bounded retries, defensive parsing, confidence scoring, and the
// approval gate. The result is persisted and pushed to listeners.
func (e *Engine) Analyze(ctx context.Context, alert *models.Alert, org models.OrgContext) (*models.Analysis, error) {
	signals, err := e.signals.Gather(ctx, alert)
	if err != nil {
		// Degraded inputs, not a failed analysis.
		slog.Warn("signal gathering failed, using defaults", "alert_id", alert.ID, "error", err)
		signals, _ = DefaultSignals{}.Gather(ctx, alert)
	}

	prompt := buildPrompt(alert, signals, org)
	response := e.callProvider(ctx, prompt)
	parsed := parseResponse(response)

	confidence := computeConfidence(parsed, signals, org)
	if e.adjuster != nil {
		confidence = e.adjuster.AdjustConfidence(confidence, factorObservations(parsed, signals))
	}

	impact := models.Impact(parsed.Impact)
	requiresApproval := confidence < e.approvalThreshold ||
		alert.Severity == models.SeverityCritical ||
		impact == models.ImpactHigh

	alertID := alert.ID
	a := &models.Analysis{
		ID:                    models.NewAnalysisID(alert.ID),
		AlertID:               &alertID,
		Title:                 alert.Title,
		CreatedAt:             time.Now().UTC(),
		MarketSignals:         signals,
		Confidence:            confidence,
		PredictedImpact:       impact,
		RecommendedActions:    parsed.Actions,
		SupportingEvidence:    parsed.Evidence,
		RiskAssessment:        parsed.Risks,
		HumanApprovalRequired: requiresApproval,
		ApprovalStatus:        models.ApprovalPending,
	}

	if err := e.store.CreateAnalysis(ctx, a); err != nil {
		return nil, fmt.Errorf("persist analysis: %w", err)
	}
	e.notifier.AnalysisCompleted(ctx, a)

	return a, nil
}

// callProvider invokes the text provider with bounded retries and a fixed
// delay between attempts. After exhausting retries it returns a short
// diagnostic string so downstream parsing falls into its fallback path.
func (e *Engine) callProvider(ctx context.Context, prompt string) string {
	var lastErr error
	for attempt := 1; attempt <= providerAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		response, err := e.provider.Generate(callCtx, prompt, e.maxTokens, e.temperature)
		cancel()
		if err == nil {
			return response
		}
		lastErr = err
		slog.Warn("provider call failed", "attempt", attempt, "error", err)

		if attempt < providerAttempts {
			select {
			case <-time.After(e.retryDelay):
			case <-ctx.Done():
				return fmt.Sprintf("analysis unavailable: %v", ctx.Err())
			}
		}
	}
	return fmt.Sprintf("analysis unavailable: %v", lastErr)
}

func buildPrompt(alert *models.Alert, signals map[string]string, org models.OrgContext) string {
	signalsJSON, _ := json.MarshalIndent(signals, "", "  ")

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this strategic trend for %s:\n\n", org.Company)
	fmt.Fprintf(&b, "Alert: %s\n", alert.Title)
	fmt.Fprintf(&b, "Description: %s\n", alert.Description)
	fmt.Fprintf(&b, "Category: %s\n", alert.Category)
	fmt.Fprintf(&b, "Confidence: %.2f\n\n", alert.Confidence)
	fmt.Fprintf(&b, "Market Signals:\n%s\n\n", signalsJSON)
	b.WriteString("Company Context:\n")
	fmt.Fprintf(&b, "- Focus Areas: %s\n", strings.Join(org.FocusAreas, ", "))
	fmt.Fprintf(&b, "- Core Competencies: %s\n", strings.Join(org.CoreCompetencies, ", "))
	fmt.Fprintf(&b, "- Risk Tolerance: %s\n\n", org.RiskTolerance)
	b.WriteString("Provide a structured analysis with:\n")
	b.WriteString("1. Impact assessment (low/medium/high)\n")
	b.WriteString("2. Recommended actions (list 3-5 specific steps)\n")
	b.WriteString("3. Supporting evidence (key data points)\n")
	b.WriteString("4. Risk assessment (identify main risks and mitigation strategies)\n\n")
	b.WriteString("Format the response as JSON with keys: impact, actions, evidence, risks")
	return b.String()
}

// parseResponse parses the provider response defensively. Anything that is
// not valid JSON with the expected shape degrades to the fixed fallback.
func parseResponse(response string) payload {
	var p payload
	if err := json.Unmarshal([]byte(response), &p); err != nil {
		return fallbackPayload()
	}
	switch models.Impact(p.Impact) {
	case models.ImpactLow, models.ImpactMedium, models.ImpactHigh:
	default:
		p.Impact = string(models.ImpactMedium)
	}
	if p.Actions == nil {
		p.Actions = []string{}
	}
	if p.Evidence == nil {
		p.Evidence = []string{}
	}
	if p.Risks == nil {
		p.Risks = map[string]string{}
	}
	return p
}

// computeConfidence scores an analysis from its evidence, signals, risks, and
// alignment with organizational focus areas. Base 0.5, clamped to [0.1, 1.0].
func computeConfidence(p payload, signals map[string]string, org models.OrgContext) float64 {
	score := 0.5

	switch {
	case len(p.Evidence) >= 4:
		score += 0.2
	case len(p.Evidence) >= 2:
		score += 0.1
	}

	for _, value := range signals {
		if isPositiveSignal(value) {
			score += 0.05
		}
	}

	switch {
	case len(p.Risks) <= 2:
		score += 0.1
	case len(p.Risks) > 4:
		score -= 0.1
	}

	actionsText := strings.ToLower(strings.Join(p.Actions, " "))
	for _, focus := range org.FocusAreas {
		if strings.Contains(actionsText, strings.ToLower(focus)) {
			score += 0.05
		}
	}

	return clampConfidence(score)
}

// factorObservations maps the analysis onto normalized [0, 1] values for the
// tracked influence-weight factors. A value of 0.5 is neutral and leaves the
// confidence untouched.
func factorObservations(p payload, signals map[string]string) map[string]float64 {
	obs := map[string]float64{
		"market_evidence":      clamp01(float64(len(p.Evidence)) / 4),
		"technology_readiness": signalObservation(signals["technology_readiness"]),
		"competitive_pressure": signalObservation(signals["competitor_activity"]),
		"regulatory_alignment": signalObservation(signals["regulatory_environment"]),
		"customer_demand":      signalObservation(signals["customer_demand"]),
	}
	return obs
}

func signalObservation(value string) float64 {
	if value == "" {
		return 0.5
	}
	if isPositiveSignal(value) {
		return 1.0
	}
	return 0.5
}

// Approve marks a pending analysis approved.
func (e *Engine) Approve(ctx context.Context, analysisID, userID string) error {
	return e.store.SetApprovalStatus(ctx, analysisID, models.ApprovalApproved, userID)
}

// Reject marks a pending analysis rejected.
func (e *Engine) Reject(ctx context.Context, analysisID, userID string) error {
	return e.store.SetApprovalStatus(ctx, analysisID, models.ApprovalRejected, userID)
}

// PendingApprovals lists analyses waiting for human sign-off.
func (e *Engine) PendingApprovals(ctx context.Context) ([]*models.Analysis, error) {
	return e.store.ListPendingAnalyses(ctx)
}

func clampConfidence(v float64) float64 {
	if v < 0.1 {
		return 0.1
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
