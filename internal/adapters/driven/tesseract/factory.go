package tesseract

import (
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.OCREngineFactory = (*Factory)(nil)

// Factory creates tesseract engines for user-chosen executables
type Factory struct {
	language string
	logger   *slog.Logger
}

// NewFactory creates a new engine factory
func NewFactory(language string, logger *slog.Logger) *Factory {
	return &Factory{language: language, logger: logger}
}

// Create resolves path and returns an engine for it. An empty path means OCR
// is not configured and yields nil, nil.
func (f *Factory) Create(path string) (driven.OCREngine, error) {
	if path == "" {
		return nil, nil
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("tesseract not found at %q: %w", path, err)
	}
	return NewEngine(Config{
		Path:     resolved,
		Language: f.language,
		Logger:   f.logger,
	}), nil
}
