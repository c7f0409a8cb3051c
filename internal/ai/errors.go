package ai

import "github.com/trendsentry/service/pkg/models"

// Aliases for the provider sentinel errors defined in pkg/models, kept so
// existing ai.Err* references keep working.
var (
	ErrProviderUnavailable = models.ErrProviderUnavailable
	ErrInferenceTimeout    = models.ErrInferenceTimeout
	ErrInvalidResponse     = models.ErrInvalidResponse
)
