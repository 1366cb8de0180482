package xmlcodec

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.MetadataCodec = (*Codec)(nil)

const defaultParseConcurrency = 4

// Codec reads and writes document indexes and page records as XML
type Codec struct {
	files       driven.FileSystem
	concurrency int
	logger      *slog.Logger
}

// Config holds codec dependencies
type Config struct {
	// Files performs reads and atomic writes
	Files driven.FileSystem
	// Concurrency bounds parallel page parsing (default 4)
	Concurrency int
	Logger      *slog.Logger
}

// NewCodec creates a new XML codec
func NewCodec(cfg Config) *Codec {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultParseConcurrency
	}
	return &Codec{
		files:       cfg.Files,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ParseDocument reads the index at path and every page it lists. Pages are
// returned in ascending order with orders renumbered densely.
func (c *Codec) ParseDocument(ctx context.Context, path string) (*domain.Document, error) {
	var index documentXML
	if err := c.readXML(path, &index); err != nil {
		return nil, err
	}

	doc := domain.NewDocument(index.Name, path)
	pages := make([]*domain.Page, len(index.Pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, ref := range index.Pages {
		g.Go(func() error {
			page, err := c.ParsePage(gctx, ref.Metafile)
			if errors.Is(err, domain.ErrNotFound) {
				// an index pointing at a missing record is malformed
				return fmt.Errorf("%w: %s lists missing page %s", domain.ErrParse, path, ref.Metafile)
			}
			if err != nil {
				return err
			}
			page.Order = ref.Order
			if ref.Name != "" {
				page.Name = ref.Name
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	doc.SetPages(pages)
	c.logger.Debug("document parsed", "path", path, "pages", doc.Len())
	return doc, nil
}

// ParsePage reads a single page record
func (c *Codec) ParsePage(ctx context.Context, path string) (*domain.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrCancelled, path, err)
	}
	var record pageXML
	if err := c.readXML(path, &record); err != nil {
		return nil, err
	}
	page, err := fromPageXML(record, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return page, nil
}

// WriteDocument writes the document index only
func (c *Codec) WriteDocument(ctx context.Context, doc *domain.Document) error {
	if err := requireXMLSafe(doc.Name); err != nil {
		return err
	}
	index := documentXML{Name: doc.Name}
	for _, page := range doc.Pages() {
		if err := requireXMLSafe(page.Name, page.MetadataPath); err != nil {
			return err
		}
		index.Pages = append(index.Pages, pageRefXML{
			Order:    page.Order,
			Metafile: page.MetadataPath,
			Name:     page.Name,
		})
	}
	return c.writeXML(doc.Path, index)
}

// WritePage writes the page record to its metadata path
func (c *Codec) WritePage(ctx context.Context, page *domain.Page) error {
	if page.MetadataPath == "" {
		return fmt.Errorf("%w: page %q has no metadata path", domain.ErrInvalidInput, page.Name)
	}
	record, err := toPageXML(page)
	if err != nil {
		return err
	}
	return c.writeXML(page.MetadataPath, record)
}

func (c *Codec) writeXML(path string, v any) error {
	data, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	data = append([]byte(xml.Header), data...)
	data = append(data, '\n')
	if err := c.files.WriteFile(path, data); err != nil {
		return fmt.Errorf("%w: write %s: %w", domain.ErrIO, path, err)
	}
	return nil
}

func (c *Codec) readXML(path string, v any) error {
	data, err := c.files.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", domain.ErrIO, path, err)
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrParse, path, err)
	}
	return nil
}
