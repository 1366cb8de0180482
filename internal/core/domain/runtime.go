package domain

import "sync"

// RuntimeConfig tracks which collaborators are available at runtime.
// The queue backend is fixed at startup; OCR and export availability
// change when the engine path is updated through settings.
// Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	QueueBackend string // "redis" or "memory"

	ocrAvailable    bool
	exportAvailable bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(queueBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		QueueBackend: queueBackend,
	}
}

// OCRAvailable returns whether an OCR engine is configured and healthy
func (c *RuntimeConfig) OCRAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ocrAvailable
}

// ExportAvailable returns whether an exporter is configured
func (c *RuntimeConfig) ExportAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.exportAvailable
}

// SetOCRAvailable updates the OCR availability flag
func (c *RuntimeConfig) SetOCRAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ocrAvailable = available
}

// SetExportAvailable updates the export availability flag
func (c *RuntimeConfig) SetExportAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exportAvailable = available
}

// CanExportWithText returns true if exports will carry a text layer for
// pages that have not been recognised yet
func (c *RuntimeConfig) CanExportWithText() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.exportAvailable && c.ocrAvailable
}
