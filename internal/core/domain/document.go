package domain

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// IndexFileName is the name of the document index inside a document directory
const IndexFileName = "doc.xml"

// Document is an ordered collection of scanned pages.
//
// Pages are held in an index-addressed slice. After every mutation the slice
// is re-sorted by Order and re-indexed so that Order is dense over [0, Len()).
type Document struct {
	Name string
	Path string // document index file, e.g. workspace/docs/mydoc/doc.xml

	pages []*Page
}

// NewDocument creates an empty document
func NewDocument(name, path string) *Document {
	return &Document{
		Name: name,
		Path: path,
	}
}

// Dir returns the backing directory of the document
func (d *Document) Dir() string {
	return filepath.Dir(d.Path)
}

// Len returns the number of pages
func (d *Document) Len() int {
	return len(d.pages)
}

// Pages returns the pages in ascending order.
// The returned slice is a copy; the pages are shared.
func (d *Document) Pages() []*Page {
	out := make([]*Page, len(d.pages))
	copy(out, d.pages)
	return out
}

// Page returns the page at the given order
func (d *Document) Page(order int) (*Page, error) {
	if order < 0 || order >= len(d.pages) {
		return nil, fmt.Errorf("%w: page %d of %d", ErrOutOfRange, order, len(d.pages))
	}
	return d.pages[order], nil
}

// PageByName returns the page with the given name
func (d *Document) PageByName(name string) (*Page, bool) {
	for _, p := range d.pages {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Contains reports whether the page belongs to this document
func (d *Document) Contains(p *Page) bool {
	return d.indexOf(p) >= 0
}

// AddPage appends a page. The page's order is set to the current size.
// A page whose record would overwrite the index or another page's record
// is rejected.
func (d *Document) AddPage(p *Page) error {
	if p == nil {
		return fmt.Errorf("%w: nil page", ErrInvalidInput)
	}
	if d.Contains(p) {
		return fmt.Errorf("%w: page %q", ErrAlreadyExists, p.Name)
	}
	if p.MetadataPath != "" {
		if sameFile(p.MetadataPath, d.Path) {
			return fmt.Errorf("%w: page %q record %s is the document index", ErrInvalidInput, p.Name, p.MetadataPath)
		}
		for _, page := range d.pages {
			if sameFile(p.MetadataPath, page.MetadataPath) {
				return fmt.Errorf("%w: page record %s", ErrAlreadyExists, p.MetadataPath)
			}
		}
	}
	p.Order = len(d.pages)
	d.pages = append(d.pages, p)
	return nil
}

// SetPages replaces the page collection. Pages are ordered by their current
// Order (ties keep slice order) and then re-indexed to be contiguous.
func (d *Document) SetPages(pages []*Page) {
	d.pages = make([]*Page, 0, len(pages))
	for _, p := range pages {
		if p != nil {
			d.pages = append(d.pages, p)
		}
	}
	d.reindex()
}

// RemovePage removes a page and shifts every later page down by one
func (d *Document) RemovePage(p *Page) error {
	idx := d.indexOf(p)
	if idx < 0 {
		return fmt.Errorf("%w: page is not part of document %q", ErrNotFound, d.Name)
	}

	removed := p.Order
	d.pages = append(d.pages[:idx], d.pages[idx+1:]...)
	for _, page := range d.pages {
		if page.Order > removed {
			page.Order--
		}
	}
	d.reindex()
	return nil
}

// MovePage moves a page to newOrder, shifting the pages between the old and
// new positions by one slot so that orders stay contiguous.
func (d *Document) MovePage(p *Page, newOrder int) error {
	if d.indexOf(p) < 0 {
		return fmt.Errorf("%w: page is not part of document %q", ErrNotFound, d.Name)
	}
	if newOrder < 0 || newOrder >= len(d.pages) {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrOutOfRange, newOrder, len(d.pages)-1)
	}

	oldOrder := p.Order
	switch {
	case oldOrder < newOrder:
		// moving towards the end: (old, new] slide down
		for _, page := range d.pages {
			if page.Order > oldOrder && page.Order <= newOrder {
				page.Order--
			}
		}
	case oldOrder > newOrder:
		// moving towards the front: [new, old) slide up
		for _, page := range d.pages {
			if page.Order >= newOrder && page.Order < oldOrder {
				page.Order++
			}
		}
	default:
		return nil
	}
	p.Order = newOrder
	d.reindex()
	return nil
}

// Relocate points the document and its page metadata files at a new
// directory. It only updates memory; moving files is the caller's job.
func (d *Document) Relocate(name, dir string) {
	d.Name = name
	d.Path = filepath.Join(dir, IndexFileName)
	for _, p := range d.pages {
		p.MetadataPath = filepath.Join(dir, filepath.Base(p.MetadataPath))
	}
}

// CheckOrder verifies that orders are exactly {0..Len()-1} in ascending order
func (d *Document) CheckOrder() error {
	for i, p := range d.pages {
		if p.Order != i {
			return fmt.Errorf("page %q at index %d has order %d", p.Name, i, p.Order)
		}
	}
	return nil
}

// sameFile compares paths case-insensitively, since the workspace may live on
// a case-insensitive file system
func sameFile(a, b string) bool {
	return strings.EqualFold(filepath.Clean(a), filepath.Clean(b))
}

func (d *Document) indexOf(p *Page) int {
	for i, page := range d.pages {
		if page == p {
			return i
		}
	}
	return -1
}

// reindex re-sorts by order and assigns dense orders
func (d *Document) reindex() {
	sort.SliceStable(d.pages, func(i, j int) bool {
		return d.pages[i].Order < d.pages[j].Order
	})
	for i, p := range d.pages {
		p.Order = i
	}
}
