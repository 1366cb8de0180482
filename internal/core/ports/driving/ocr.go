package driving

import (
	"context"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
)

// OCRService recognises page text in the background
type OCRService interface {
	// RecognizePage runs the current engine on a page's raw image and applies
	// the result through the workspace
	RecognizePage(ctx context.Context, document, page string) (*domain.PageText, error)
}

// ExportService runs a full export: OCR for pages still lacking text,
// serialization, then the configured exporter
type ExportService interface {
	Export(ctx context.Context, document, outputPath string) (*domain.TaskResult, error)
}
