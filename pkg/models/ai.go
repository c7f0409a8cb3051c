package models

import (
	"context"
	"errors"
)

// Sentinel errors shared by every TextProvider implementation. They live
// here rather than in internal/ai so provider subpackages can reference
// them without importing the factory package.
var (
	ErrProviderUnavailable = errors.New("text provider unavailable")
	ErrInferenceTimeout    = errors.New("text provider inference timeout")
	ErrInvalidResponse     = errors.New("text provider returned invalid response")
)

// TextProvider is the interface every generative-text backend implements.
// Callers own retries and must never assume the returned text is valid
// structured data.
type TextProvider interface {
	// Generate produces free-form text for the given prompt, capped at
	// maxTokens output tokens.
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
	// Name returns the provider identifier (e.g., "ollama", "openai").
	Name() string
}

// Candidate is the normalized item a source produces before scoring.
type Candidate struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    AlertCategory `json:"category"`
	SourceName  string        `json:"source_name"`
}
