package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-scan/internal/runtime"
)

// Ensure ocrService implements OCRService
var _ driving.OCRService = (*ocrService)(nil)

// ocrService runs the current engine outside the workspace lock and hands
// the finished text back to the workspace in one atomic replace
type ocrService struct {
	workspace driving.WorkspaceService
	services  *runtime.Services
	timeout   time.Duration
	logger    *slog.Logger
}

// OCRServiceConfig holds dependencies for the OCR service.
type OCRServiceConfig struct {
	Workspace driving.WorkspaceService
	Services  *runtime.Services
	// Timeout bounds a single recognition. Zero means no timeout.
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewOCRService creates a new OCRService
func NewOCRService(cfg OCRServiceConfig) driving.OCRService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ocrService{
		workspace: cfg.Workspace,
		services:  cfg.Services,
		timeout:   cfg.Timeout,
		logger:    logger,
	}
}

// RecognizePage recognises one page and applies the result
func (s *ocrService) RecognizePage(ctx context.Context, document, page string) (*domain.PageText, error) {
	engine := s.services.OCREngine()
	if engine == nil {
		return nil, fmt.Errorf("%w: no OCR engine configured", domain.ErrServiceUnavailable)
	}

	imagePath, err := s.workspace.PageImage(document, page)
	if err != nil {
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := engine.Recognize(ctx, imagePath)
	if err != nil {
		return nil, asCancelled(ctx, err)
	}

	if err := s.workspace.ApplyOCR(ctx, document, page, text); err != nil {
		return nil, err
	}

	s.logger.Info("page recognised",
		"document", document,
		"page", page,
		"words", text.WordCount(),
		"duration", time.Since(start))
	return text, nil
}

// asCancelled maps context expiry onto domain.ErrCancelled
func asCancelled(ctx context.Context, err error) error {
	if errors.Is(err, domain.ErrCancelled) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", domain.ErrCancelled, ctxErr)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrCancelled, err)
	}
	return err
}
