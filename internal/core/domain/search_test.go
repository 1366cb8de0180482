package domain

import "testing"

func TestDefaultSearchOptions(t *testing.T) {
	opts := DefaultSearchOptions()

	if opts.WorkingLimit != 4 {
		t.Errorf("expected working limit 4, got %d", opts.WorkingLimit)
	}
	if opts.ElsewhereLimit != 10 {
		t.Errorf("expected elsewhere limit 10, got %d", opts.ElsewhereLimit)
	}
}

func TestSearchResults_TotalAndAll(t *testing.T) {
	a := NewDocument("a", "a/doc.xml")
	b := NewDocument("b", "b/doc.xml")
	r := &SearchResults{
		InWorkingDoc: []SearchHit{{Document: a, Score: 2}},
		Elsewhere:    []SearchHit{{Document: b, Score: 3}, {Document: b, Score: 1}},
	}

	if r.Total() != 3 {
		t.Errorf("expected 3 hits, got %d", r.Total())
	}
	all := r.All()
	if len(all) != 3 || all[0].Document != a || all[1].Document != b {
		t.Error("expected working-document hits first")
	}

	var nilResults *SearchResults
	if nilResults.Total() != 0 || nilResults.All() != nil {
		t.Error("nil results should be empty")
	}
}

func TestSearchResults_Truncate(t *testing.T) {
	hits := func(n int) []SearchHit {
		return make([]SearchHit, n)
	}

	tests := []struct {
		name          string
		opts          SearchOptions
		wantWorking   int
		wantElsewhere int
	}{
		{"defaults", DefaultSearchOptions(), 4, 10},
		{"unlimited", SearchOptions{}, 6, 12},
		{"tight", SearchOptions{WorkingLimit: 1, ElsewhereLimit: 2}, 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &SearchResults{InWorkingDoc: hits(6), Elsewhere: hits(12)}
			r.Truncate(tt.opts)
			if len(r.InWorkingDoc) != tt.wantWorking {
				t.Errorf("expected %d working hits, got %d", tt.wantWorking, len(r.InWorkingDoc))
			}
			if len(r.Elsewhere) != tt.wantElsewhere {
				t.Errorf("expected %d elsewhere hits, got %d", tt.wantElsewhere, len(r.Elsewhere))
			}
		})
	}
}
