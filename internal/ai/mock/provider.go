// Package mock provides a models.TextProvider for tests and offline runs.
package mock

import (
	"context"

	"github.com/trendsentry/service/pkg/models"
)

// MockProvider satisfies models.TextProvider for testing.
type MockProvider struct {
	Name_        string
	GenerateFunc func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, maxTokens, temperature)
	}
	return "", nil
}

// NewMockProvider returns a MockProvider that answers every prompt with a
// plausible structured analysis.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock",
		GenerateFunc: func(_ context.Context, _ string, _ int, _ float64) (string, error) {
			return `{
  "impact": "medium",
  "actions": ["Monitor developments closely", "Brief the strategy team", "Assess partnership options"],
  "evidence": ["Simulated evidence from mock provider", "Signal strength within expected range"],
  "risks": {"market": "Simulated market risk", "execution": "Simulated execution risk"}
}`, nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		GenerateFunc: func(_ context.Context, _ string, _ int, _ float64) (string, error) {
			return "", err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-timeout",
		GenerateFunc: func(ctx context.Context, _ string, _ int, _ float64) (string, error) {
			<-ctx.Done()
			return "", models.ErrInferenceTimeout
		},
	}
}

// Compile-time check that MockProvider implements TextProvider.
var _ models.TextProvider = (*MockProvider)(nil)
