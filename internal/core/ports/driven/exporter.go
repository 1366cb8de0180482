package driven

import "context"

// Exporter produces an output file from a persisted document
type Exporter interface {
	// Name identifies the backend ("pdf", "script")
	Name() string

	// Export reads the document at documentPath and writes outputPath.
	// Failures carry the backend's message.
	Export(ctx context.Context, documentPath, outputPath string) error
}
