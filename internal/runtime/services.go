package runtime

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven"
)

// Services holds references to swappable collaborators.
// The OCR engine can be replaced at runtime via settings.
// Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	// Config tracks capability flags
	config *domain.RuntimeConfig

	// Dynamic services (can be nil, updated at runtime)
	ocrEngine driven.OCREngine
	exporter  driven.Exporter
}

// NewServices creates a new Services registry
func NewServices(config *domain.RuntimeConfig) *Services {
	return &Services{
		config: config,
	}
}

// Config returns the runtime configuration
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// OCREngine returns the current OCR engine (may be nil)
func (s *Services) OCREngine() driven.OCREngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ocrEngine
}

// Exporter returns the current exporter (may be nil)
func (s *Services) Exporter() driven.Exporter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exporter
}

// SetOCREngine updates the OCR engine and the availability flag
func (s *Services) SetOCREngine(engine driven.OCREngine) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ocrEngine = engine
	s.config.SetOCRAvailable(engine != nil)
}

// SetExporter updates the exporter and the availability flag
func (s *Services) SetExporter(exporter driven.Exporter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.exporter = exporter
	s.config.SetExportAvailable(exporter != nil)
}

// Close drops all services
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ocrEngine = nil
	s.exporter = nil

	s.config.SetOCRAvailable(false)
	s.config.SetExportAvailable(false)

	return nil
}

// ValidateAndSetOCR health-checks the engine before swapping it in.
// A nil engine disables OCR.
func (s *Services) ValidateAndSetOCR(ctx context.Context, engine driven.OCREngine) error {
	if engine == nil {
		s.SetOCREngine(nil)
		return nil
	}

	if err := engine.HealthCheck(ctx); err != nil {
		return err
	}

	s.SetOCREngine(engine)
	return nil
}
