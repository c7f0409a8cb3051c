package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/trendsentry/service/internal/scoring"
	"github.com/trendsentry/service/pkg/models"
)

// Watchlist is the declarative monitoring configuration: who the company is,
// what it cares about, which keywords to score against, and which external
// instruments to track. Kept as a YAML file so operators can tune monitoring
// without a deploy.
type Watchlist struct {
	Company          string               `yaml:"company"`
	FocusAreas       []string             `yaml:"focus_areas"`
	CoreCompetencies []string             `yaml:"core_competencies"`
	RiskTolerance    string               `yaml:"risk_tolerance"`
	ScanQuery        string               `yaml:"scan_query"`
	Keywords         scoring.KeywordTable `yaml:"keywords"`
	PatentKeywords   []string             `yaml:"patent_keywords"`
	MarketSymbols    map[string]string    `yaml:"market_symbols"`
}

// LoadWatchlist reads and validates the watchlist file at path.
func LoadWatchlist(path string) (*Watchlist, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watchlist: %w", err)
	}

	var w Watchlist
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("parse watchlist: %w", err)
	}

	if w.Company == "" {
		return nil, fmt.Errorf("watchlist: company is required")
	}
	if len(w.Keywords) == 0 {
		return nil, fmt.Errorf("watchlist: at least one keyword category is required")
	}
	for category, kws := range w.Keywords {
		for _, kw := range kws {
			if kw.Keyword == "" {
				return nil, fmt.Errorf("watchlist: empty keyword in category %q", category)
			}
			if kw.Weight <= 0 {
				return nil, fmt.Errorf("watchlist: keyword %q in category %q must have positive weight", kw.Keyword, category)
			}
		}
	}
	if w.RiskTolerance == "" {
		w.RiskTolerance = "medium"
	}

	return &w, nil
}

// OrgContext converts the watchlist's company section into the context the
// analysis engine evaluates alerts against.
func (w *Watchlist) OrgContext() models.OrgContext {
	return models.OrgContext{
		Company:          w.Company,
		FocusAreas:       w.FocusAreas,
		CoreCompetencies: w.CoreCompetencies,
		RiskTolerance:    w.RiskTolerance,
	}
}
