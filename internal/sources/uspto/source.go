// Package uspto implements the source contract against the USPTO patent
// application search API.
package uspto

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/trendsentry/service/internal/sources"
	"github.com/trendsentry/service/pkg/models"
)

var ErrUSPTOUnreachable = errors.New("uspto unreachable")

const defaultBaseURL = "https://developer.uspto.gov/ibd-api/v1/patent/application"

// relevanceFloor drops patents matching too few tracked keywords before they
// ever reach the scoring engine.
const relevanceFloor = 0.3

// maxCandidates caps how many patents one scan cycle forwards.
const maxCandidates = 10

// maxAbstractLen caps the abstract carried into a candidate description.
const maxAbstractLen = 500

// Source fetches recently modified patent applications matching a query and
// pre-filters them against a tracked keyword list.
type Source struct {
	name     string
	baseURL  string
	keywords []string
	client   *http.Client
}

// New creates a USPTO source. keywords are the technology terms a patent must
// partially match to be considered at all.
func New(name string, keywords []string, timeout time.Duration) *Source {
	return &Source{
		name:     name,
		baseURL:  defaultBaseURL,
		keywords: keywords,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *Source) Name() string                   { return s.name }
func (s *Source) Category() models.AlertCategory { return models.CategoryPatent }

// SetBaseURL overrides the API endpoint, used in tests.
func (s *Source) SetBaseURL(u string) { s.baseURL = u }

func (s *Source) Fetch(ctx context.Context, query string) ([]byte, error) {
	params := url.Values{
		"searchText":          {query},
		"start":               {"0"},
		"rows":                {"20"},
		"largeTextSearchFlag": {"N"},
		"sortField":           {"lastModifiedDate"},
		"sortDirection":       {"desc"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s?%s", s.baseURL, params.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUSPTOUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("uspto status %d", resp.StatusCode)
	}

	var buf json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&buf); err != nil {
		return nil, fmt.Errorf("decoding uspto response: %w", err)
	}
	return buf, nil
}

type patentResponse struct {
	Results []struct {
		InventionTitle    string `json:"inventionTitle"`
		InventionAbstract string `json:"inventionAbstract"`
	} `json:"results"`
}

func (s *Source) Process(raw []byte) ([]models.Candidate, error) {
	var resp patentResponse
	if len(raw) == 0 {
		return []models.Candidate{}, nil
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return []models.Candidate{}, nil
	}

	type scored struct {
		candidate models.Candidate
		score     float64
	}
	var kept []scored

	for _, p := range resp.Results {
		if p.InventionTitle == "" {
			continue
		}
		score := s.keywordFraction(p.InventionTitle + " " + p.InventionAbstract)
		if score < relevanceFloor {
			continue
		}
		desc := p.InventionAbstract
		if len(desc) > maxAbstractLen {
			// Back up to a rune boundary so the cut never splits a
			// multibyte character.
			cut := maxAbstractLen
			for cut > 0 && !utf8.RuneStart(desc[cut]) {
				cut--
			}
			desc = desc[:cut] + "..."
		}
		kept = append(kept, scored{
			candidate: models.Candidate{
				Title:       p.InventionTitle,
				Description: desc,
				Category:    models.CategoryPatent,
				SourceName:  s.name,
			},
			score: score,
		})
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].score > kept[j].score })
	if len(kept) > maxCandidates {
		kept = kept[:maxCandidates]
	}

	out := make([]models.Candidate, len(kept))
	for i, k := range kept {
		out[i] = k.candidate
	}
	return out, nil
}

// keywordFraction is the fraction of tracked keywords literally present in
// the text, a cheap pre-filter before real scoring.
func (s *Source) keywordFraction(text string) float64 {
	if len(s.keywords) == 0 {
		return 0
	}
	textLower := strings.ToLower(text)
	matches := 0
	for _, kw := range s.keywords {
		if strings.Contains(textLower, strings.ToLower(kw)) {
			matches++
		}
	}
	return float64(matches) / float64(len(s.keywords))
}

var _ sources.Source = (*Source)(nil)
