package driving

import "context"

// OCRStatus reports the configured OCR engine
type OCRStatus struct {
	Path      string `json:"path"`
	Available bool   `json:"available"`
	Exporter  string `json:"exporter,omitempty"`
}

// SettingsService manages collaborator configuration at runtime
type SettingsService interface {
	// GetOCR returns the current engine status
	GetOCR(ctx context.Context) (*OCRStatus, error)

	// UpdateOCR switches to the tesseract executable at path after a health
	// check and persists the choice. An empty path disables OCR.
	UpdateOCR(ctx context.Context, path string) (*OCRStatus, error)
}
