package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-scan/internal/runtime"
)

// Ensure exportService implements ExportService
var _ driving.ExportService = (*exportService)(nil)

const defaultExportOCRConcurrency = 2

// exportService commits OCR results to disk before handing the document to
// the configured exporter
type exportService struct {
	workspace   driving.WorkspaceService
	ocr         driving.OCRService
	services    *runtime.Services
	timeout     time.Duration
	concurrency int
	logger      *slog.Logger
}

// ExportServiceConfig holds dependencies for the export service.
type ExportServiceConfig struct {
	Workspace driving.WorkspaceService
	OCR       driving.OCRService
	Services  *runtime.Services
	// Timeout bounds the exporter run. Zero means no timeout.
	Timeout time.Duration
	// OCRConcurrency bounds parallel recognition of pages lacking text
	OCRConcurrency int
	Logger         *slog.Logger
}

// NewExportService creates a new ExportService
func NewExportService(cfg ExportServiceConfig) driving.ExportService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.OCRConcurrency
	if concurrency <= 0 {
		concurrency = defaultExportOCRConcurrency
	}
	return &exportService{
		workspace:   cfg.Workspace,
		ocr:         cfg.OCR,
		services:    cfg.Services,
		timeout:     cfg.Timeout,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Export recognises pages still lacking text, serializes the document and
// runs the exporter
func (s *exportService) Export(ctx context.Context, document, outputPath string) (*domain.TaskResult, error) {
	start := time.Now()
	logger := s.logger.With("document", document, "output", outputPath)

	exporter := s.services.Exporter()
	if exporter == nil {
		return nil, fmt.Errorf("%w: no exporter configured", domain.ErrServiceUnavailable)
	}

	pending, err := s.workspace.PendingOCR(document)
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		if s.services.OCREngine() == nil {
			logger.Warn("exporting without text layer for unrecognised pages", "pages", len(pending))
		} else if err := s.recognizeAll(ctx, logger, document, pending); err != nil {
			return nil, err
		}
	}

	if err := s.workspace.SerializeDocument(ctx, document); err != nil {
		return nil, err
	}
	view, err := s.workspace.Document(document)
	if err != nil {
		return nil, err
	}

	exportCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		exportCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logger.Info("exporting document", "exporter", exporter.Name(), "pages", len(view.Pages))
	if err := exporter.Export(exportCtx, view.Path, outputPath); err != nil {
		return nil, asCancelled(exportCtx, err)
	}

	return &domain.TaskResult{
		Success:  true,
		Duration: time.Since(start),
		Pages:    len(view.Pages),
	}, nil
}

// recognizeAll runs OCR on the given pages with bounded parallelism.
// Engine failures on single pages are logged; only cancellation aborts.
func (s *exportService) recognizeAll(ctx context.Context, logger *slog.Logger, document string, pages []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, page := range pages {
		g.Go(func() error {
			_, err := s.ocr.RecognizePage(gctx, document, page)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, domain.ErrCancelled):
				return err
			default:
				logger.Warn("OCR failed during export", "page", page, "error", err)
				return nil
			}
		})
	}
	return g.Wait()
}
