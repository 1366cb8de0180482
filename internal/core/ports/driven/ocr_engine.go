package driven

import (
	"context"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
)

// OCREngine extracts text and word boxes from a page image
type OCREngine interface {
	// Recognize runs OCR on imagePath. Returns domain.ErrCancelled if ctx is
	// cancelled or times out before the engine finishes.
	Recognize(ctx context.Context, imagePath string) (*domain.PageText, error)

	// HealthCheck verifies the engine can be invoked
	HealthCheck(ctx context.Context) error

	// Path returns the engine executable in use
	Path() string
}

// OCREngineFactory creates OCR engines for a user-chosen executable
type OCREngineFactory interface {
	// Create returns an engine for path. Returns nil, nil if path is empty.
	Create(path string) (OCREngine, error)
}
