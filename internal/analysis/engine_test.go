package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aimock "github.com/trendsentry/service/internal/ai/mock"
	"github.com/trendsentry/service/internal/store"
	"github.com/trendsentry/service/internal/store/storetest"
	"github.com/trendsentry/service/pkg/models"
)

type recordingNotifier struct {
	mu       sync.Mutex
	analyses []*models.Analysis
}

func (n *recordingNotifier) AlertCreated(context.Context, *models.Alert) {}

func (n *recordingNotifier) AnalysisCompleted(_ context.Context, a *models.Analysis) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.analyses = append(n.analyses, a)
}

func testOrg() models.OrgContext {
	return models.OrgContext{
		Company:          "Schaeffler",
		FocusAreas:       []string{"e-mobility", "autonomous driving"},
		CoreCompetencies: []string{"precision bearings"},
		RiskTolerance:    "moderate",
	}
}

func testAlert() *models.Alert {
	return &models.Alert{
		ID:          models.NewAlertID("Electric vehicle battery expansion"),
		Timestamp:   time.Now().UTC(),
		Category:    models.CategoryNews,
		Severity:    models.SeverityMedium,
		Title:       "Electric vehicle battery expansion",
		Description: "Major supplier expands battery production",
		DataSources: []string{"tech_news"},
		Confidence:  0.6,
		Status:      models.AlertStatusActive,
	}
}

func newTestEngine(provider models.TextProvider, st *storetest.Fake, n *recordingNotifier, threshold float64) *Engine {
	e := NewEngine(provider, DefaultSignals{}, st, n, nil, threshold, 1000, 0.3, time.Second)
	e.SetRetryDelay(time.Millisecond)
	return e
}

func TestAnalyzePersistsAndNotifies(t *testing.T) {
	st := storetest.New()
	n := &recordingNotifier{}
	engine := newTestEngine(aimock.NewMockProvider(), st, n, 0.8)

	alert := testAlert()
	a, err := engine.Analyze(context.Background(), alert, testOrg())
	require.NoError(t, err)

	assert.Equal(t, models.NewAnalysisID(alert.ID), a.ID)
	require.NotNil(t, a.AlertID)
	assert.Equal(t, alert.ID, *a.AlertID)
	assert.Equal(t, models.ApprovalPending, a.ApprovalStatus)

	stored, err := st.GetAnalysis(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Confidence, stored.Confidence)
	assert.Len(t, n.analyses, 1)
}

func TestAnalyzeConfidenceFromMockProvider(t *testing.T) {
	st := storetest.New()
	engine := newTestEngine(aimock.NewMockProvider(), st, &recordingNotifier{}, 0.8)

	a, err := engine.Analyze(context.Background(), testAlert(), testOrg())
	require.NoError(t, err)

	// Base 0.5, +0.1 for two evidence items, +0.2 for four positive signals,
	// +0.1 for two risks.
	assert.InDelta(t, 0.9, a.Confidence, 1e-9)
	assert.False(t, a.HumanApprovalRequired)
}

func TestAnalyzeFallbackOnProviderFailure(t *testing.T) {
	st := storetest.New()
	engine := newTestEngine(aimock.NewFailingProvider(errors.New("model offline")), st, &recordingNotifier{}, 0.95)

	a, err := engine.Analyze(context.Background(), testAlert(), testOrg())
	require.NoError(t, err, "provider failure degrades to fallback, never errors")

	want := fallbackPayload()
	assert.Equal(t, models.Impact(want.Impact), a.PredictedImpact)
	assert.Equal(t, want.Actions, a.RecommendedActions)
	assert.Equal(t, want.Evidence, a.SupportingEvidence)
	assert.Equal(t, want.Risks, a.RiskAssessment)
	assert.True(t, a.HumanApprovalRequired)
}

func TestAnalyzeFallbackOnProviderTimeout(t *testing.T) {
	st := storetest.New()
	engine := NewEngine(aimock.NewTimeoutProvider(), DefaultSignals{}, st, &recordingNotifier{},
		nil, 0.95, 1000, 0.3, 10*time.Millisecond)
	engine.SetRetryDelay(time.Millisecond)

	a, err := engine.Analyze(context.Background(), testAlert(), testOrg())
	require.NoError(t, err, "a provider that never answers degrades to fallback")

	want := fallbackPayload()
	assert.Equal(t, want.Actions, a.RecommendedActions)
	assert.Equal(t, want.Evidence, a.SupportingEvidence)
	assert.True(t, a.HumanApprovalRequired)
}

func TestAnalyzeRetriesBeforeFallback(t *testing.T) {
	st := storetest.New()
	var calls int
	provider := &aimock.MockProvider{
		Name_: "flaky",
		GenerateFunc: func(context.Context, string, int, float64) (string, error) {
			calls++
			return "", errors.New("transient failure")
		},
	}
	engine := newTestEngine(provider, st, &recordingNotifier{}, 0.8)

	_, err := engine.Analyze(context.Background(), testAlert(), testOrg())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestAnalyzeRecoversAfterTransientFailure(t *testing.T) {
	st := storetest.New()
	var calls int
	provider := &aimock.MockProvider{
		Name_: "flaky",
		GenerateFunc: func(context.Context, string, int, float64) (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("transient failure")
			}
			return `{"impact":"low","actions":["Watch"],"evidence":["a","b","c","d"],"risks":{"market":"x"}}`, nil
		},
	}
	engine := newTestEngine(provider, st, &recordingNotifier{}, 0.8)

	a, err := engine.Analyze(context.Background(), testAlert(), testOrg())
	require.NoError(t, err)
	assert.Equal(t, models.ImpactLow, a.PredictedImpact)
	assert.Equal(t, []string{"Watch"}, a.RecommendedActions)
}

func TestAnalyzeNormalizesUnknownImpact(t *testing.T) {
	st := storetest.New()
	provider := &aimock.MockProvider{
		Name_: "weird",
		GenerateFunc: func(context.Context, string, int, float64) (string, error) {
			return `{"impact":"catastrophic","actions":["Act"],"evidence":[],"risks":{}}`, nil
		},
	}
	engine := newTestEngine(provider, st, &recordingNotifier{}, 0.8)

	a, err := engine.Analyze(context.Background(), testAlert(), testOrg())
	require.NoError(t, err)
	assert.Equal(t, models.ImpactMedium, a.PredictedImpact)
}

func TestApprovalGate(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		severity  models.Severity
		response  string
		want      bool
	}{
		{
			name:      "high confidence auto-approves",
			threshold: 0.8,
			severity:  models.SeverityMedium,
			response:  `{"impact":"medium","actions":[],"evidence":["a","b"],"risks":{"m":"x"}}`,
			want:      false,
		},
		{
			name:      "low confidence requires approval",
			threshold: 0.99,
			severity:  models.SeverityMedium,
			response:  `{"impact":"medium","actions":[],"evidence":["a","b"],"risks":{"m":"x"}}`,
			want:      true,
		},
		{
			name:      "critical severity always requires approval",
			threshold: 0.5,
			severity:  models.SeverityCritical,
			response:  `{"impact":"medium","actions":[],"evidence":["a","b"],"risks":{"m":"x"}}`,
			want:      true,
		},
		{
			name:      "high impact always requires approval",
			threshold: 0.5,
			severity:  models.SeverityMedium,
			response:  `{"impact":"high","actions":[],"evidence":["a","b"],"risks":{"m":"x"}}`,
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := storetest.New()
			provider := &aimock.MockProvider{
				Name_: "scripted",
				GenerateFunc: func(context.Context, string, int, float64) (string, error) {
					return tt.response, nil
				},
			}
			engine := newTestEngine(provider, st, &recordingNotifier{}, tt.threshold)

			alert := testAlert()
			alert.Severity = tt.severity
			a, err := engine.Analyze(context.Background(), alert, testOrg())
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.HumanApprovalRequired)
		})
	}
}

type doublingAdjuster struct{}

func (doublingAdjuster) AdjustConfidence(base float64, _ map[string]float64) float64 {
	if base*2 > 1.0 {
		return 1.0
	}
	return base * 2
}

func TestAnalyzeAppliesConfidenceAdjuster(t *testing.T) {
	st := storetest.New()
	engine := NewEngine(aimock.NewMockProvider(), DefaultSignals{}, st, &recordingNotifier{},
		doublingAdjuster{}, 0.8, 1000, 0.3, time.Second)
	engine.SetRetryDelay(time.Millisecond)

	a, err := engine.Analyze(context.Background(), testAlert(), testOrg())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, a.Confidence, 1e-9)
}

func TestApproveRejectTransitions(t *testing.T) {
	st := storetest.New()
	engine := newTestEngine(aimock.NewMockProvider(), st, &recordingNotifier{}, 0.99)

	a, err := engine.Analyze(context.Background(), testAlert(), testOrg())
	require.NoError(t, err)
	require.True(t, a.HumanApprovalRequired)

	pending, err := engine.PendingApprovals(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, engine.Approve(context.Background(), a.ID, "reviewer"))

	// Transitions are one-way.
	err = engine.Reject(context.Background(), a.ID, "reviewer")
	assert.ErrorIs(t, err, store.ErrNotPending)

	err = engine.Approve(context.Background(), "analysis_missing", "reviewer")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
