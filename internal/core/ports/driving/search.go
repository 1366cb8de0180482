package driving

import (
	"context"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
)

// SearchService ranks text matches across the workspace
type SearchService interface {
	// Query searches working and every other document in all.
	// working may be nil, in which case every hit lands in Elsewhere.
	// Page state is never modified.
	Query(ctx context.Context, text string, working *domain.Document, all []*domain.Document) (*domain.SearchResults, error)
}
