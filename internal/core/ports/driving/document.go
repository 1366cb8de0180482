package driving

import (
	"context"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
)

// DocumentService maintains page ordering and the files backing a document.
// Ordering changes are applied in memory before any file side effect; a file
// failure is returned but never rolls the ordering back.
// Callers serialize access (single writer).
type DocumentService interface {
	// Load parses the document index at path
	Load(ctx context.Context, path string) (*domain.Document, error)

	// AddPage appends a page and persists the document
	AddPage(ctx context.Context, doc *domain.Document, page *domain.Page) error

	// DeletePage removes a page, renumbers the rest, deletes the page's image
	// and metadata files and persists the document
	DeletePage(ctx context.Context, doc *domain.Document, page *domain.Page) error

	// ReorderPage moves a page to newOrder and persists the document.
	// newOrder outside [0, size-1] fails with domain.ErrOutOfRange.
	ReorderPage(ctx context.Context, doc *domain.Document, page *domain.Page, newOrder int) error

	// Rename moves the document directory to a sibling named newName.
	// Nothing in memory changes if the move fails.
	Rename(ctx context.Context, doc *domain.Document, newName string) error

	// Delete removes the document directory and every page image
	Delete(ctx context.Context, doc *domain.Document) error

	// Serialize writes every page record and then the document index
	Serialize(ctx context.Context, doc *domain.Document) error
}
