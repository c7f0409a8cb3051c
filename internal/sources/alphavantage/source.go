// Package alphavantage implements the source contract against the Alpha
// Vantage GLOBAL_QUOTE endpoint for tracked mobility-sector stocks.
package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/trendsentry/service/internal/sources"
	"github.com/trendsentry/service/pkg/models"
)

var ErrMarketUnreachable = errors.New("alphavantage unreachable")

const defaultBaseURL = "https://www.alphavantage.co/query"

// significantMovePct is the absolute daily change a stock must exceed to
// become a candidate at all.
const significantMovePct = 3.0

// Source fetches quotes for a fixed set of tracked symbols.
type Source struct {
	name    string
	baseURL string
	apiKey  string
	symbols map[string]string // symbol -> company name
	client  *http.Client
}

// New creates an Alpha Vantage source for the given symbol -> company map.
// With an empty API key, Fetch returns an empty payload.
func New(name, apiKey string, symbols map[string]string, timeout time.Duration) *Source {
	return &Source{
		name:    name,
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		symbols: symbols,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *Source) Name() string                   { return s.name }
func (s *Source) Category() models.AlertCategory { return models.CategoryMarket }

// SetBaseURL overrides the API endpoint, used in tests.
func (s *Source) SetBaseURL(u string) { s.baseURL = u }

type quote struct {
	Symbol        string `json:"symbol"`
	Price         string `json:"price"`
	ChangePercent string `json:"change_percent"`
}

type payload struct {
	Quotes []quote `json:"quotes"`
}

func (s *Source) Fetch(ctx context.Context, query string) ([]byte, error) {
	if s.apiKey == "" {
		return json.Marshal(payload{Quotes: []quote{}})
	}

	symbols := make([]string, 0, len(s.symbols))
	if query != "" {
		symbols = append(symbols, query)
	} else {
		for sym := range s.symbols {
			symbols = append(symbols, sym)
		}
	}

	var out payload
	for _, sym := range symbols {
		params := url.Values{
			"function": {"GLOBAL_QUOTE"},
			"symbol":   {sym},
			"apikey":   {s.apiKey},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			fmt.Sprintf("%s?%s", s.baseURL, params.Encode()), nil)
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMarketUnreachable, err)
		}

		var body struct {
			GlobalQuote map[string]string `json:"Global Quote"`
		}
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil || len(body.GlobalQuote) == 0 {
			continue
		}

		out.Quotes = append(out.Quotes, quote{
			Symbol:        sym,
			Price:         body.GlobalQuote["05. price"],
			ChangePercent: body.GlobalQuote["10. change percent"],
		})
	}

	return json.Marshal(out)
}

func (s *Source) Process(raw []byte) ([]models.Candidate, error) {
	var p payload
	if len(raw) == 0 {
		return []models.Candidate{}, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return []models.Candidate{}, nil
	}

	candidates := make([]models.Candidate, 0, len(p.Quotes))
	for _, q := range p.Quotes {
		change, err := strconv.ParseFloat(strings.TrimSuffix(q.ChangePercent, "%"), 64)
		if err != nil {
			continue
		}
		if math.Abs(change) <= significantMovePct {
			continue
		}
		price, _ := strconv.ParseFloat(q.Price, 64)

		company := s.symbols[q.Symbol]
		if company == "" {
			company = q.Symbol
		}
		direction := "up"
		if change < 0 {
			direction = "down"
		}

		candidates = append(candidates, models.Candidate{
			Title: fmt.Sprintf("%s Stock Movement", company),
			Description: fmt.Sprintf("%s is %s %.2f%% at $%.2f",
				q.Symbol, direction, math.Abs(change), price),
			Category:   models.CategoryMarket,
			SourceName: s.name,
		})
	}
	return candidates, nil
}

var _ sources.Source = (*Source)(nil)
