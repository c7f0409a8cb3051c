package analysis

import (
	"context"
	"strings"

	"github.com/trendsentry/service/pkg/models"
)

// SignalProvider gathers auxiliary market signals for an alert. Gathering is
// best-effort enrichment: a failing provider degrades the analysis inputs but
// never fails the analysis itself.
type SignalProvider interface {
	Gather(ctx context.Context, alert *models.Alert) (map[string]string, error)
}

// DefaultSignals returns category-conditioned default observations, used when
// no live data provider is configured or a provider is unavailable.
type DefaultSignals struct{}

func (DefaultSignals) Gather(_ context.Context, alert *models.Alert) (map[string]string, error) {
	signals := map[string]string{
		"market_size":            "Growing",
		"growth_rate":            "15-20%",
		"competitor_activity":    "High",
		"regulatory_environment": "Favorable",
		"technology_readiness":   "Maturing",
		"customer_demand":        "Increasing",
	}

	switch alert.Category {
	case models.CategoryRegulatory:
		signals["regulatory_urgency"] = "High"
		signals["compliance_deadline"] = "12 months"
	case models.CategoryPatent:
		signals["innovation_level"] = "Breakthrough"
		signals["patent_activity"] = "Increasing"
	}

	return signals, nil
}

// positiveSignalWords are the markers that make a market signal count toward
// confidence.
var positiveSignalWords = []string{"high", "growing", "favorable", "increasing"}

func isPositiveSignal(value string) bool {
	v := strings.ToLower(value)
	for _, word := range positiveSignalWords {
		if strings.Contains(v, word) {
			return true
		}
	}
	return false
}
