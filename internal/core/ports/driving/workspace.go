package driving

import (
	"context"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
)

// WorkspaceService owns the set of known documents, the working document and
// the navigation history. Every structural operation runs under one lock, and
// everything handed out is a snapshot taken under that lock.
type WorkspaceService interface {
	// Startup loads the persisted state and every known document. Documents
	// whose files are missing or malformed are skipped; the returned error then
	// wraps domain.ErrNotFound or domain.ErrParse but the workspace is usable.
	Startup(ctx context.Context) error

	// Shutdown serializes the working document and saves the state
	Shutdown(ctx context.Context) error

	// Documents returns every known document
	Documents() []DocumentView

	// Document returns a document by name
	Document(name string) (*DocumentView, error)

	// Working returns the working document and page (either may be nil)
	Working() (*DocumentView, *PageView)

	// Open makes a document the working document, serializing the previous
	// one, and records a view event for its first page
	Open(ctx context.Context, name string) (*DocumentView, error)

	// OpenPage makes a page of a document current and records an event
	OpenPage(ctx context.Context, name string, order int, mode domain.Mode) (*PageView, error)

	// ImportFolder creates a document named after dir from the images in it
	ImportFolder(ctx context.Context, dir string) (*DocumentView, error)

	// ImportFile creates a single-page document named after the image file
	ImportFile(ctx context.Context, path string) (*DocumentView, error)

	RenameDocument(ctx context.Context, name, newName string) (*DocumentView, error)
	DeleteDocument(ctx context.Context, name string) error
	DeletePage(ctx context.Context, name string, order int) error
	ReorderPage(ctx context.Context, name string, order, newOrder int) (*DocumentView, error)

	// UpdatePage replaces the adjustment config and corners of a page
	UpdatePage(ctx context.Context, name string, order int, update PageUpdate) (*PageView, error)

	// SerializeDocument persists a document under the workspace lock
	SerializeDocument(ctx context.Context, name string) error

	// Search queries the working document and everything else, applies the
	// configured tier caps and records a search-results event
	Search(ctx context.Context, query string) (*ResultsView, error)

	// Back and Next step through the navigation history and make the
	// event's document and page current
	Back() (*EventView, bool)
	Next() (*EventView, bool)
	History() HistoryView

	// PageImage returns the raw image path of a page
	PageImage(name, page string) (string, error)

	// PendingOCR returns the names of pages that have no text yet
	PendingOCR(name string) ([]string, error)

	// ApplyOCR atomically replaces a page's text and persists the page
	ApplyOCR(ctx context.Context, name, page string, text *domain.PageText) error

	// ExportText writes the text of every page to outPath
	ExportText(ctx context.Context, name, outPath string) error

	// ExportImages copies every processed image into a new directory outDir
	ExportImages(ctx context.Context, name, outDir string) error

	// RequestOCR enqueues recognition of one page, or every page when page is empty
	RequestOCR(ctx context.Context, name, page string) ([]*domain.Task, error)

	// RequestExport enqueues an export of the document to outPath
	RequestExport(ctx context.Context, name, outPath string) (*domain.Task, error)

	// State returns the state that Shutdown would persist
	State() *domain.WorkspaceState

	// SetOCREnginePath records the engine path in the persisted state
	SetOCREnginePath(ctx context.Context, path string) error
}

// PageUpdate carries optional page changes; nil fields are left alone
type PageUpdate struct {
	Config  *domain.Config  `json:"config,omitempty"`
	Corners *domain.Corners `json:"corners,omitempty"`
}

// PageView is a snapshot of a page
type PageView struct {
	Order              int            `json:"order"`
	Name               string         `json:"name"`
	RawImagePath       string         `json:"raw_image_path"`
	ProcessedImagePath string         `json:"processed_image_path"`
	MetadataPath       string         `json:"metadata_path"`
	Corners            domain.Corners `json:"corners"`
	Config             domain.Config  `json:"config"`
	FullText           string         `json:"full_text"`
	WordCount          int            `json:"word_count"`
}

// DocumentView is a snapshot of a document and its pages in order
type DocumentView struct {
	Name    string     `json:"name"`
	Path    string     `json:"path"`
	Working bool       `json:"working"`
	Pages   []PageView `json:"pages"`
}

// HitView is a snapshot of a search hit
type HitView struct {
	Document string  `json:"document"`
	Page     string  `json:"page"`
	Order    int     `json:"order"`
	Snippet  string  `json:"snippet"`
	Score    float64 `json:"score"`
}

// ResultsView is a snapshot of two-tier search results
type ResultsView struct {
	Query        string    `json:"query"`
	InWorkingDoc []HitView `json:"in_working_doc"`
	Elsewhere    []HitView `json:"elsewhere"`
}

// EventView is a snapshot of a navigation event
type EventView struct {
	Mode     domain.Mode  `json:"mode"`
	Document string       `json:"document,omitempty"`
	Page     string       `json:"page,omitempty"`
	Order    int          `json:"order"`
	Results  *ResultsView `json:"results,omitempty"`
}

// HistoryView is a snapshot of the navigation log
type HistoryView struct {
	Entries []EventView `json:"entries"`
	Current int         `json:"current"`
}
