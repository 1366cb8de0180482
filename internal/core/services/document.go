package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driving"
)

// Ensure documentService implements DocumentService
var _ driving.DocumentService = (*documentService)(nil)

// documentService implements the DocumentService interface
type documentService struct {
	codec  driven.MetadataCodec
	files  driven.FileSystem
	logger *slog.Logger
}

// DocumentServiceConfig holds dependencies for the document service.
type DocumentServiceConfig struct {
	Codec  driven.MetadataCodec
	Files  driven.FileSystem
	Logger *slog.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(cfg DocumentServiceConfig) driving.DocumentService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &documentService{
		codec:  cfg.Codec,
		files:  cfg.Files,
		logger: logger,
	}
}

// Load parses the document index at path
func (s *documentService) Load(ctx context.Context, path string) (*domain.Document, error) {
	return s.codec.ParseDocument(ctx, path)
}

// AddPage appends a page, writes its record and rewrites the index
func (s *documentService) AddPage(ctx context.Context, doc *domain.Document, page *domain.Page) error {
	if err := doc.AddPage(page); err != nil {
		return err
	}
	if err := s.codec.WritePage(ctx, page); err != nil {
		return err
	}
	return s.codec.WriteDocument(ctx, doc)
}

// DeletePage removes a page from the document, deletes its files and
// persists the document. The ordering change is kept even if a file
// cannot be removed.
func (s *documentService) DeletePage(ctx context.Context, doc *domain.Document, page *domain.Page) error {
	if err := doc.RemovePage(page); err != nil {
		return err
	}

	logger := s.logger.With("document", doc.Name, "page", page.Name)
	firstErr := s.removeFiles(logger, page.MetadataPath, page.ProcessedImagePath, page.RawImagePath)

	if err := s.Serialize(ctx, doc); err != nil {
		if firstErr == nil {
			return err
		}
		logger.Error("failed to persist document after page delete", "error", err)
	}
	return firstErr
}

// ReorderPage moves a page to newOrder and persists the document
func (s *documentService) ReorderPage(ctx context.Context, doc *domain.Document, page *domain.Page, newOrder int) error {
	if err := doc.MovePage(page, newOrder); err != nil {
		return err
	}
	return s.Serialize(ctx, doc)
}

// Rename moves the document directory to a sibling named newName and
// repoints every page record into it
func (s *documentService) Rename(ctx context.Context, doc *domain.Document, newName string) error {
	if err := validateName(newName); err != nil {
		return err
	}

	oldDir := doc.Dir()
	newDir := filepath.Join(filepath.Dir(oldDir), newName)
	if newDir == oldDir {
		return nil
	}
	if s.files.Exists(newDir) {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, newDir)
	}

	if err := s.files.Rename(oldDir, newDir); err != nil {
		return fmt.Errorf("%w: move %s: %w", domain.ErrIO, oldDir, err)
	}

	s.logger.Info("document renamed", "from", doc.Name, "to", newName)
	doc.Relocate(newName, newDir)
	return s.Serialize(ctx, doc)
}

// Delete removes every page image and then the document directory.
// Every deletion is attempted; the first failure is returned.
func (s *documentService) Delete(ctx context.Context, doc *domain.Document) error {
	logger := s.logger.With("document", doc.Name)

	var firstErr error
	for _, page := range doc.Pages() {
		if err := s.removeFiles(logger, page.ProcessedImagePath, page.RawImagePath); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := s.files.RemoveAll(ctx, doc.Dir()); err != nil {
		err = fmt.Errorf("%w: remove %s: %w", domain.ErrIO, doc.Dir(), err)
		if firstErr == nil {
			firstErr = err
		} else {
			logger.Error("failed to remove document directory", "error", err)
		}
	}
	return firstErr
}

// Serialize writes every page record and then the document index
func (s *documentService) Serialize(ctx context.Context, doc *domain.Document) error {
	for _, page := range doc.Pages() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: serialize %s: %w", domain.ErrCancelled, doc.Name, err)
		}
		if err := s.codec.WritePage(ctx, page); err != nil {
			return err
		}
	}
	return s.codec.WriteDocument(ctx, doc)
}

// removeFiles attempts every path and returns the first failure, logging the rest
func (s *documentService) removeFiles(logger *slog.Logger, paths ...string) error {
	var firstErr error
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := s.files.Remove(path); err != nil {
			err = fmt.Errorf("%w: remove %s: %w", domain.ErrIO, path, err)
			if firstErr == nil {
				firstErr = err
				continue
			}
			logger.Error("failed to remove file", "error", err)
		}
	}
	return firstErr
}

// validateName rejects names that cannot be a single directory entry
func validateName(name string) error {
	if strings.TrimSpace(name) == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: document name %q", domain.ErrInvalidInput, name)
	}
	return nil
}
