// Package sources defines the contract every external data provider
// implements, so the scanner can fan out over heterogeneous sources through
// one dispatch point.
package sources

import (
	"context"

	"github.com/trendsentry/service/pkg/models"
)

// Source is the normalize contract for one external data provider.
//
// Fetch retrieves the raw payload for a query; transport failures and
// timeouts propagate as errors and are contained by the scanner. Process
// turns a raw payload into candidates and must not fail on empty or missing
// data; it returns an empty slice instead.
type Source interface {
	Name() string
	Category() models.AlertCategory
	Fetch(ctx context.Context, query string) ([]byte, error)
	Process(raw []byte) ([]models.Candidate, error)
}
