// Package openai implements models.TextProvider using the OpenAI chat
// completions API.
package openai

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

const baseURL = "https://api.openai.com/v1"

// Provider implements models.TextProvider using OpenAI.
type Provider struct {
	cfg     config.OpenAIConfig
	baseURL string
	client  *http.Client
}

func NewProvider(cfg config.OpenAIConfig, timeout time.Duration) *Provider {
	return &Provider{
		cfg:     cfg,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *Provider) Name() string { return "openai" }

// SetBaseURL overrides the API endpoint, used in tests.
func (p *Provider) SetBaseURL(u string) { p.baseURL = u }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *Provider) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       p.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", models.ErrProviderUnavailable, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidResponse, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", models.ErrInvalidResponse)
	}
	return parsed.Choices[0].Message.Content, nil
}

func classifyError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", models.ErrInferenceTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", models.ErrInferenceTimeout, err)
	}
	return fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
}

var _ models.TextProvider = (*Provider)(nil)
