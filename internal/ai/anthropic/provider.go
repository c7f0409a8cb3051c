// Package anthropic implements models.TextProvider using the Anthropic
// messages API.
package anthropic

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

const (
	baseURL    = "https://api.anthropic.com/v1"
	apiVersion = "2023-06-01"
)

// Provider implements models.TextProvider using Anthropic.
type Provider struct {
	cfg     config.AnthropicConfig
	baseURL string
	client  *http.Client
}

func NewProvider(cfg config.AnthropicConfig, timeout time.Duration) *Provider {
	return &Provider{
		cfg:     cfg,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *Provider) Name() string { return "anthropic" }

// SetBaseURL overrides the API endpoint, used in tests.
func (p *Provider) SetBaseURL(u string) { p.baseURL = u }

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (p *Provider) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	body, err := json.Marshal(messagesRequest{
		Model:       p.cfg.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages:    []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", models.ErrProviderUnavailable, resp.StatusCode)
	}

	var parsed messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidResponse, err)
	}
	for _, block := range parsed.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("%w: no text content", models.ErrInvalidResponse)
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
