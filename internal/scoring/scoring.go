// Package scoring turns raw source content into a relevance score and a
// severity label using the configured keyword table. It is a pure function of
// its inputs: matching is literal, case-insensitive substring search with no
// stemming or tokenization, so results are deterministic and testable.
package scoring

import (
	"sort"
	"strings"

	"github.com/trendsentry/service/pkg/models"
)

// WeightedKeyword is one monitored keyword with its configured weight.
type WeightedKeyword struct {
	Keyword string  `yaml:"keyword" json:"keyword"`
	Weight  float64 `yaml:"weight" json:"weight"`
}

// KeywordTable groups monitored keywords by category.
type KeywordTable map[string][]WeightedKeyword

// Engine scores content against a keyword table. Stateless beyond its
// configuration; safe for concurrent use.
type Engine struct {
	keywords KeywordTable
	company  string
}

// NewEngine creates a scoring engine. company is the organization's own name;
// content mentioning it gets a relevance boost.
func NewEngine(keywords KeywordTable, company string) *Engine {
	return &Engine{keywords: keywords, company: strings.ToLower(company)}
}

// Relevance computes the keyword relevance of content, clamped to [0, 1].
//
// Per category, each keyword present in the lower-cased content contributes
// weight * 0.2, capped at 1.0 per category. Matching more than one category
// multiplies the total by (1 + 0.1 * matched categories), and a mention of
// the company name multiplies it by 1.5.
func (e *Engine) Relevance(content string) float64 {
	contentLower := strings.ToLower(content)
	total := 0.0
	matched := make(map[string]struct{})

	for category, keywords := range e.keywords {
		categoryScore := 0.0
		for _, kw := range keywords {
			if strings.Contains(contentLower, strings.ToLower(kw.Keyword)) {
				categoryScore += kw.Weight * 0.2
				matched[category] = struct{}{}
			}
		}
		if categoryScore > 1.0 {
			categoryScore = 1.0
		}
		total += categoryScore
	}

	if len(matched) > 1 {
		total *= 1 + 0.1*float64(len(matched))
	}

	if e.company != "" && strings.Contains(contentLower, e.company) {
		total *= 1.5
	}

	if total > 1.0 {
		return 1.0
	}
	if total < 0 {
		return 0
	}
	return total
}

// Severity maps a relevance score and source category to a severity label.
// The cascade is strict: regulatory content above 0.7 is critical before any
// other rule applies.
func Severity(relevance float64, category models.AlertCategory) models.Severity {
	if category == models.CategoryRegulatory && relevance > 0.7 {
		return models.SeverityCritical
	}
	switch {
	case relevance > 0.9:
		return models.SeverityHigh
	case relevance > 0.8:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// Score combines Relevance and Severity for one piece of content.
func (e *Engine) Score(content string, category models.AlertCategory) (float64, models.Severity) {
	relevance := e.Relevance(content)
	return relevance, Severity(relevance, category)
}

// Categories returns the configured category names, sorted.
func (e *Engine) Categories() []string {
	out := make([]string, 0, len(e.keywords))
	for c := range e.keywords {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
