package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driving"
)

// ImportFolder creates a document named after dir, one page per image in
// lexical order
func (s *workspaceService) ImportFolder(ctx context.Context, dir string) (*driving.DocumentView, error) {
	files, err := s.files.ListFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", domain.ErrNotFound, dir, err)
	}

	var images []string
	for _, f := range files {
		if isImage(f) {
			images = append(images, f)
		}
	}
	return s.importImages(ctx, filepath.Base(filepath.Clean(dir)), images)
}

// ImportFile creates a single-page document named after the image
func (s *workspaceService) ImportFile(ctx context.Context, path string) (*driving.DocumentView, error) {
	if !isImage(path) {
		return nil, fmt.Errorf("%w: unsupported image %s", domain.ErrInvalidInput, path)
	}
	if !s.files.Exists(path) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	return s.importImages(ctx, stripExt(filepath.Base(path)), []string{path})
}

func (s *workspaceService) importImages(ctx context.Context, name string, images []string) (*driving.DocumentView, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("%w: no images to import", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docDir := filepath.Join(s.root, domain.DocsDir, name)
	if _, err := s.findLocked(name); err == nil || s.files.Exists(docDir) {
		return nil, fmt.Errorf("%w: document %q", domain.ErrAlreadyExists, name)
	}

	rawDir := filepath.Join(s.root, domain.RawDir)
	processedDir := filepath.Join(s.root, domain.ProcessedDir)
	for _, dir := range []string{docDir, rawDir, processedDir} {
		if err := s.files.MkdirAll(dir); err != nil {
			return nil, fmt.Errorf("%w: create %s: %w", domain.ErrIO, dir, err)
		}
	}

	logger := s.logger.With("document", name)
	doc := domain.NewDocument(name, filepath.Join(docDir, domain.IndexFileName))
	var copied []string

	for _, src := range images {
		if err := ctx.Err(); err != nil {
			s.abortImport(ctx, logger, docDir, copied)
			return nil, fmt.Errorf("%w: import %s: %w", domain.ErrCancelled, name, err)
		}

		page, err := s.importPage(ctx, logger, doc, src, &copied)
		if err != nil {
			s.abortImport(ctx, logger, docDir, copied)
			return nil, err
		}
		if err := doc.AddPage(page); err != nil {
			s.abortImport(ctx, logger, docDir, copied)
			return nil, err
		}
	}

	if err := s.documents.Serialize(ctx, doc); err != nil {
		s.abortImport(ctx, logger, docDir, copied)
		return nil, err
	}

	s.docs = append(s.docs, doc)
	if err := s.saveStateLocked(ctx); err != nil {
		logger.Error("failed to save state after import", "error", err)
	}
	logger.Info("document imported", "pages", doc.Len())

	if s.ocrImport && s.queue != nil {
		tasks := make([]*domain.Task, 0, doc.Len())
		for _, page := range doc.Pages() {
			tasks = append(tasks, domain.NewOCRPageTask(doc.Name, page.Name))
		}
		if err := s.queue.EnqueueBatch(ctx, tasks); err != nil {
			logger.Warn("failed to enqueue OCR for imported pages", "error", err)
		}
	}

	return s.documentView(doc), nil
}

// importPage copies one image into the workspace and builds its page.
// The processed copy starts out identical to the raw image.
func (s *workspaceService) importPage(ctx context.Context, logger *slog.Logger, doc *domain.Document, src string, copied *[]string) (*domain.Page, error) {
	base := filepath.Base(src)
	pageName := pageNameFor(doc, base)

	// keep images of other documents intact when file names collide
	fileName := base
	rawPath := filepath.Join(s.root, domain.RawDir, fileName)
	if s.files.Exists(rawPath) {
		fileName = doc.Name + "_" + base
		rawPath = filepath.Join(s.root, domain.RawDir, fileName)
	}
	processedPath := filepath.Join(s.root, domain.ProcessedDir, fileName)

	if err := s.files.CopyFile(ctx, src, rawPath); err != nil {
		return nil, fmt.Errorf("%w: copy %s: %w", domain.ErrIO, src, err)
	}
	*copied = append(*copied, rawPath)
	if err := s.files.CopyFile(ctx, rawPath, processedPath); err != nil {
		return nil, fmt.Errorf("%w: copy %s: %w", domain.ErrIO, rawPath, err)
	}
	*copied = append(*copied, processedPath)

	page := domain.NewPage(pageName)
	page.RawImagePath = rawPath
	page.ProcessedImagePath = processedPath
	page.MetadataPath = filepath.Join(doc.Dir(), pageName+".xml")

	if s.vision != nil {
		corners, config, err := s.vision.Estimate(ctx, rawPath)
		if err != nil {
			logger.Warn("vision estimate failed, using defaults", "page", pageName, "error", err)
		} else {
			page.Corners = corners
			page.Config = config
		}
	}
	return page, nil
}

// abortImport removes whatever a failed import left behind
func (s *workspaceService) abortImport(ctx context.Context, logger *slog.Logger, docDir string, copied []string) {
	for _, path := range copied {
		if err := s.files.Remove(path); err != nil {
			logger.Warn("failed to clean up after import", "path", path, "error", err)
		}
	}
	if err := s.files.RemoveAll(context.WithoutCancel(ctx), docDir); err != nil {
		logger.Warn("failed to clean up after import", "path", docDir, "error", err)
	}
}

// pageNameFor derives a page name from the image file name. The record
// <name>.xml must not collide with the document index or an existing page:
// doc.png becomes doc_png, and later clashes add a counter (p_png2).
func pageNameFor(doc *domain.Document, base string) string {
	name := stripExt(base)
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(base)), ".")
	candidate := name
	for n := 1; !pageNameFree(doc, candidate); n++ {
		candidate = name + "_" + ext
		if n > 1 {
			candidate += strconv.Itoa(n)
		}
	}
	return candidate
}

func pageNameFree(doc *domain.Document, name string) bool {
	if strings.EqualFold(name+".xml", domain.IndexFileName) {
		return false
	}
	for _, p := range doc.Pages() {
		if strings.EqualFold(p.Name, name) {
			return false
		}
	}
	return true
}

func isImage(path string) bool {
	return slices.Contains(domain.ImageExtensions, strings.ToLower(filepath.Ext(path)))
}

func stripExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
