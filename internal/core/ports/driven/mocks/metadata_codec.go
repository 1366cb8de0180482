package mocks

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
)

// MockMetadataCodec keeps written records in memory so documents can be
// parsed back after they are serialized
type MockMetadataCodec struct {
	mu    sync.Mutex
	docs  map[string]docRecord
	pages map[string]pageRecord

	// Writes counts WritePage calls per metadata path
	Writes map[string]int

	// Custom behavior hooks (optional)
	WritePageFn     func(page *domain.Page) error
	WriteDocumentFn func(doc *domain.Document) error
	ParseDocumentFn func(path string) (*domain.Document, error)
}

type docRecord struct {
	name  string
	pages []string
}

type pageRecord struct {
	order     int
	name      string
	raw       string
	processed string
	corners   domain.Corners
	config    domain.Config
	text      *domain.PageText
}

// NewMockMetadataCodec creates a new MockMetadataCodec
func NewMockMetadataCodec() *MockMetadataCodec {
	return &MockMetadataCodec{
		docs:   make(map[string]docRecord),
		pages:  make(map[string]pageRecord),
		Writes: make(map[string]int),
	}
}

func (m *MockMetadataCodec) ParseDocument(ctx context.Context, path string) (*domain.Document, error) {
	if m.ParseDocumentFn != nil {
		return m.ParseDocumentFn(path)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.docs[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	doc := domain.NewDocument(rec.name, path)
	pages := make([]*domain.Page, 0, len(rec.pages))
	for _, pagePath := range rec.pages {
		page, err := m.parsePageLocked(pagePath)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	doc.SetPages(pages)
	return doc, nil
}

func (m *MockMetadataCodec) ParsePage(ctx context.Context, path string) (*domain.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.parsePageLocked(path)
}

func (m *MockMetadataCodec) parsePageLocked(path string) (*domain.Page, error) {
	rec, ok := m.pages[path]
	if !ok {
		return nil, fmt.Errorf("%w: missing page %s", domain.ErrParse, path)
	}
	page := domain.NewPage(rec.name)
	page.Order = rec.order
	page.RawImagePath = rec.raw
	page.ProcessedImagePath = rec.processed
	page.MetadataPath = path
	page.Corners = rec.corners
	page.Config = rec.config
	page.SetText(rec.text)
	return page, nil
}

func (m *MockMetadataCodec) WriteDocument(ctx context.Context, doc *domain.Document) error {
	if m.WriteDocumentFn != nil {
		if err := m.WriteDocumentFn(doc); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec := docRecord{name: doc.Name}
	for _, page := range doc.Pages() {
		rec.pages = append(rec.pages, page.MetadataPath)
	}
	m.docs[doc.Path] = rec
	return nil
}

func (m *MockMetadataCodec) WritePage(ctx context.Context, page *domain.Page) error {
	if m.WritePageFn != nil {
		if err := m.WritePageFn(page); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.pages[page.MetadataPath] = pageRecord{
		order:     page.Order,
		name:      page.Name,
		raw:       page.RawImagePath,
		processed: page.ProcessedImagePath,
		corners:   page.Corners,
		config:    page.Config,
		text:      page.Text(),
	}
	m.Writes[page.MetadataPath]++
	return nil
}

// HasDocument reports whether an index was written at path (for test assertions)
func (m *MockMetadataCodec) HasDocument(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[path]
	return ok
}

// DocumentPages returns the page paths of a written index (for test assertions)
func (m *MockMetadataCodec) DocumentPages(path string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.docs[path].pages...)
}

// PageText returns the text of a written page record (for test assertions)
func (m *MockMetadataCodec) PageText(path string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.pages[path]
	if !ok {
		return "", false
	}
	return rec.text.FullText(), true
}

// Store saves doc and its pages directly (for test setup)
func (m *MockMetadataCodec) Store(doc *domain.Document) {
	for _, page := range doc.Pages() {
		_ = m.WritePage(context.Background(), page)
	}
	_ = m.WriteDocument(context.Background(), doc)
}

// Forget drops every record below dir (simulates files deleted on disk)
func (m *MockMetadataCodec) Forget(dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for p := range m.docs {
		if filepath.Dir(p) == dir {
			delete(m.docs, p)
		}
	}
	for p := range m.pages {
		if filepath.Dir(p) == dir {
			delete(m.pages, p)
		}
	}
}
