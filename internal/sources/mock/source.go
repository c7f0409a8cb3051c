// Package mock provides a configurable in-memory source for tests and
// keyless demo runs.
package mock

import (
	"context"
	"encoding/json"

	"github.com/trendsentry/service/internal/sources"
	"github.com/trendsentry/service/pkg/models"
)

// Source satisfies sources.Source with function fields.
type Source struct {
	Name_       string
	Category_   models.AlertCategory
	FetchFunc   func(ctx context.Context, query string) ([]byte, error)
	ProcessFunc func(raw []byte) ([]models.Candidate, error)
}

func (s *Source) Name() string                   { return s.Name_ }
func (s *Source) Category() models.AlertCategory { return s.Category_ }

func (s *Source) Fetch(ctx context.Context, query string) ([]byte, error) {
	if s.FetchFunc != nil {
		return s.FetchFunc(ctx, query)
	}
	return nil, nil
}

func (s *Source) Process(raw []byte) ([]models.Candidate, error) {
	if s.ProcessFunc != nil {
		return s.ProcessFunc(raw)
	}
	return []models.Candidate{}, nil
}

// NewStatic returns a source that always yields the given candidates.
func NewStatic(name string, category models.AlertCategory, candidates []models.Candidate) *Source {
	raw, _ := json.Marshal(candidates)
	return &Source{
		Name_:     name,
		Category_: category,
		FetchFunc: func(_ context.Context, _ string) ([]byte, error) {
			return raw, nil
		},
		ProcessFunc: func(b []byte) ([]models.Candidate, error) {
			var out []models.Candidate
			if err := json.Unmarshal(b, &out); err != nil {
				return []models.Candidate{}, nil
			}
			return out, nil
		},
	}
}

// NewFailing returns a source whose Fetch always fails with err.
func NewFailing(name string, category models.AlertCategory, err error) *Source {
	return &Source{
		Name_:     name,
		Category_: category,
		FetchFunc: func(_ context.Context, _ string) ([]byte, error) {
			return nil, err
		},
	}
}

var _ sources.Source = (*Source)(nil)
