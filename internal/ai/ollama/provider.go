// Package ollama implements models.TextProvider against a local Ollama
// instance.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/trendsentry/service/internal/config"
	"github.com/trendsentry/service/pkg/models"
)

// Provider implements models.TextProvider using Ollama.
type Provider struct {
	cfg    config.OllamaConfig
	client *http.Client
}

func NewProvider(cfg config.OllamaConfig, timeout time.Duration) *Provider {
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *Provider) Name() string { return "ollama" }

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (p *Provider) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  p.cfg.Model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": temperature,
			"num_predict": maxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		var netErr net.Error
		if (errors.As(err, &netErr) && netErr.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", models.ErrInferenceTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", models.ErrProviderUnavailable, resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidResponse, err)
	}
	return parsed.Response, nil
}

var _ models.TextProvider = (*Provider)(nil)
