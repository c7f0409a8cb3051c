// Package newsapi implements the source contract against the NewsAPI
// /v2/everything endpoint.
package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/trendsentry/service/internal/sources"
	"github.com/trendsentry/service/pkg/models"
)

var ErrNewsUnreachable = errors.New("newsapi unreachable")

const defaultBaseURL = "https://newsapi.org/v2"

// Source fetches English-language articles from the trailing 7 days.
type Source struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

// New creates a NewsAPI source. With an empty API key, Fetch returns an empty
// payload rather than an error so a keyless deployment degrades quietly.
func New(name, apiKey string, timeout time.Duration) *Source {
	return &Source{
		name:    name,
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *Source) Name() string                   { return s.name }
func (s *Source) Category() models.AlertCategory { return models.CategoryNews }

// SetBaseURL overrides the API endpoint, used in tests.
func (s *Source) SetBaseURL(u string) { s.baseURL = u }

func (s *Source) Fetch(ctx context.Context, query string) ([]byte, error) {
	if s.apiKey == "" {
		return []byte(`{"articles":[]}`), nil
	}

	now := time.Now()
	params := url.Values{
		"q":        {query},
		"apiKey":   {s.apiKey},
		"from":     {now.AddDate(0, 0, -7).Format("2006-01-02")},
		"to":       {now.Format("2006-01-02")},
		"sortBy":   {"relevancy"},
		"language": {"en"},
		"pageSize": {"20"},
	}

	u := fmt.Sprintf("%s/everything?%s", s.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNewsUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("newsapi status %d", resp.StatusCode)
	}

	var buf json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&buf); err != nil {
		return nil, fmt.Errorf("decoding newsapi response: %w", err)
	}
	return buf, nil
}

type newsResponse struct {
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

func (s *Source) Process(raw []byte) ([]models.Candidate, error) {
	var resp newsResponse
	if len(raw) == 0 {
		return []models.Candidate{}, nil
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		// Malformed payloads contribute nothing rather than failing the scan.
		return []models.Candidate{}, nil
	}

	candidates := make([]models.Candidate, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if a.Title == "" || a.Description == "" {
			continue
		}
		candidates = append(candidates, models.Candidate{
			Title:       a.Title,
			Description: a.Description,
			Category:    models.CategoryNews,
			SourceName:  s.name,
		})
	}
	return candidates, nil
}

var _ sources.Source = (*Source)(nil)
