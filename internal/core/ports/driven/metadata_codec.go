package driven

import (
	"context"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
)

// MetadataCodec reads and writes the persisted document and page records.
// Writes must round-trip every field exactly.
type MetadataCodec interface {
	// ParseDocument reads a document index and every page it references.
	// Returns an error wrapping domain.ErrNotFound if path does not exist and
	// domain.ErrParse if the index or any page record is malformed.
	ParseDocument(ctx context.Context, path string) (*domain.Document, error)

	// ParsePage reads a single page record
	ParsePage(ctx context.Context, path string) (*domain.Page, error)

	// WriteDocument writes the document index only. Pages are written
	// separately with WritePage.
	WriteDocument(ctx context.Context, doc *domain.Document) error

	// WritePage writes a page record to page.MetadataPath, using a single
	// snapshot of the page text
	WritePage(ctx context.Context, page *domain.Page) error
}

// WorkspaceStateStore persists the startup state between runs
type WorkspaceStateStore interface {
	// Load returns the saved state, or an empty state if none exists
	Load(ctx context.Context) (*domain.WorkspaceState, error)

	// Save replaces the saved state
	Save(ctx context.Context, state *domain.WorkspaceState) error
}
