package ai

import (
	"fmt"

	"github.com/trendsentry/service/internal/ai/anthropic"
	"github.com/trendsentry/service/internal/ai/mock"
	"github.com/trendsentry/service/internal/ai/ollama"
	"github.com/trendsentry/service/internal/ai/openai"
	"github.com/trendsentry/service/internal/config"
	"github.com/trendsentry/service/pkg/models"
)

// NewProvider constructs the appropriate text provider based on config.
// Called once at server startup.
func NewProvider(cfg config.AIConfig) (models.TextProvider, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.NewProvider(cfg.Ollama, cfg.InferenceTimeout), nil
	case "openai":
		return openai.NewProvider(cfg.OpenAI, cfg.InferenceTimeout), nil
	case "anthropic":
		return anthropic.NewProvider(cfg.Anthropic, cfg.InferenceTimeout), nil
	case "mock":
		return mock.NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of ollama, openai, anthropic, mock", cfg.Provider)
	}
}
