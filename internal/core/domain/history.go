package domain

// Mode is the navigation mode recorded by an event
type Mode string

const (
	ModeView          Mode = "view"
	ModeEdit          Mode = "edit"
	ModeSearchResults Mode = "search_results"
)

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	switch m {
	case ModeView, ModeEdit, ModeSearchResults:
		return true
	}
	return false
}

// Event is an immutable navigation snapshot
type Event struct {
	mode     Mode
	document *Document
	page     *Page
	results  *SearchResults
}

// NewEvent creates a navigation event. results may be nil.
func NewEvent(mode Mode, doc *Document, page *Page, results *SearchResults) Event {
	return Event{
		mode:     mode,
		document: doc,
		page:     page,
		results:  results,
	}
}

func (e Event) Mode() Mode { return e.mode }

func (e Event) Document() *Document { return e.document }

func (e Event) Page() *Page { return e.page }

func (e Event) Results() *SearchResults { return e.results }

// IsZero reports whether e is the empty event returned by no-op navigation
func (e Event) IsZero() bool {
	return e.mode == "" && e.document == nil && e.page == nil && e.results == nil
}

// References reports whether the event points at the given document,
// either directly or through one of its search hits.
func (e Event) References(d *Document) bool {
	if d == nil {
		return false
	}
	if e.document == d {
		return true
	}
	if e.results != nil {
		for _, hit := range e.results.All() {
			if hit.Document == d {
				return true
			}
		}
	}
	return false
}

// ReferencesPage reports whether the event points at the given page,
// either directly or through one of its search hits.
func (e Event) ReferencesPage(p *Page) bool {
	if p == nil {
		return false
	}
	if e.page == p {
		return true
	}
	if e.results != nil {
		for _, hit := range e.results.All() {
			if hit.Page == p {
				return true
			}
		}
	}
	return false
}

// History is a linear undo/redo log of navigation events.
// Adding an event after stepping back discards the redo branch.
type History struct {
	entries []Event
	current int
}

// NewHistory creates an empty log
func NewHistory() *History {
	return &History{current: -1}
}

// Add appends an event, truncating everything after the current entry
func (h *History) Add(e Event) {
	if h.current < len(h.entries)-1 {
		for i := h.current + 1; i < len(h.entries); i++ {
			h.entries[i] = Event{}
		}
		h.entries = h.entries[:h.current+1]
	}
	h.entries = append(h.entries, e)
	h.current = len(h.entries) - 1
}

// Back steps to the previous entry. Returns false when already at the start.
func (h *History) Back() (Event, bool) {
	if h.current <= 0 {
		return Event{}, false
	}
	h.current--
	return h.entries[h.current], true
}

// Next steps to the following entry. Returns false when already at the end.
func (h *History) Next() (Event, bool) {
	if h.current < 0 || h.current >= len(h.entries)-1 {
		return Event{}, false
	}
	h.current++
	return h.entries[h.current], true
}

// Current returns the entry at the current index
func (h *History) Current() (Event, bool) {
	if h.current < 0 {
		return Event{}, false
	}
	return h.entries[h.current], true
}

// Index returns the current index, -1 when empty
func (h *History) Index() int {
	return h.current
}

// Len returns the number of recorded entries
func (h *History) Len() int {
	return len(h.entries)
}

// Entries returns a copy of the log
func (h *History) Entries() []Event {
	out := make([]Event, len(h.entries))
	copy(out, h.entries)
	return out
}

// Prune drops every entry for which keep returns false. The current index
// moves to the closest surviving entry at or before it.
func (h *History) Prune(keep func(Event) bool) {
	kept := h.entries[:0]
	newCurrent := -1
	for i, e := range h.entries {
		if !keep(e) {
			continue
		}
		kept = append(kept, e)
		if i <= h.current {
			newCurrent = len(kept) - 1
		}
	}
	for i := len(kept); i < len(h.entries); i++ {
		h.entries[i] = Event{}
	}
	h.entries = kept
	if newCurrent < 0 && len(kept) > 0 {
		newCurrent = 0
	}
	h.current = newCurrent
}
