package domain

// Default result caps per tier
const (
	DefaultWorkingLimit   = 4
	DefaultElsewhereLimit = 10

	// SearchWindow is the number of consecutive terms scored together
	SearchWindow = 10
)

// SearchOptions configures a search request
type SearchOptions struct {
	// WorkingLimit caps hits from the working document. 0 means unlimited.
	WorkingLimit int `json:"working_limit"`
	// ElsewhereLimit caps hits from every other document. 0 means unlimited.
	ElsewhereLimit int `json:"elsewhere_limit"`
}

// DefaultSearchOptions returns the caps used by the workspace
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		WorkingLimit:   DefaultWorkingLimit,
		ElsewhereLimit: DefaultElsewhereLimit,
	}
}

// SearchHit is a scored match on one page
type SearchHit struct {
	Document *Document
	Page     *Page
	Snippet  string
	Score    float64
}

// SearchResults is the two-tier ranked result set
type SearchResults struct {
	Query        string
	InWorkingDoc []SearchHit
	Elsewhere    []SearchHit
}

// Total returns the number of hits across both tiers
func (r *SearchResults) Total() int {
	if r == nil {
		return 0
	}
	return len(r.InWorkingDoc) + len(r.Elsewhere)
}

// All returns working-document hits followed by the rest
func (r *SearchResults) All() []SearchHit {
	if r == nil {
		return nil
	}
	out := make([]SearchHit, 0, r.Total())
	out = append(out, r.InWorkingDoc...)
	return append(out, r.Elsewhere...)
}

// Truncate applies the tier caps in place
func (r *SearchResults) Truncate(opts SearchOptions) {
	if opts.WorkingLimit > 0 && len(r.InWorkingDoc) > opts.WorkingLimit {
		r.InWorkingDoc = r.InWorkingDoc[:opts.WorkingLimit]
	}
	if opts.ElsewhereLimit > 0 && len(r.Elsewhere) > opts.ElsewhereLimit {
		r.Elsewhere = r.Elsewhere[:opts.ElsewhereLimit]
	}
}
