package driven

import (
	"context"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
)

// VisionEstimator guesses corners and adjustments for a freshly imported image.
// Callers fall back to defaults when it fails.
type VisionEstimator interface {
	Estimate(ctx context.Context, imagePath string) (domain.Corners, domain.Config, error)
}

// Stemmer reduces a normalized search term to its stem
type Stemmer interface {
	Stem(term string) string
}
