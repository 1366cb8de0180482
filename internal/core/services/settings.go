package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-scan/internal/runtime"
)

// Ensure settingsService implements SettingsService
var _ driving.SettingsService = (*settingsService)(nil)

// settingsService implements the SettingsService interface
type settingsService struct {
	workspace driving.WorkspaceService
	factory   driven.OCREngineFactory
	services  *runtime.Services
	logger    *slog.Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(
	workspace driving.WorkspaceService,
	factory driven.OCREngineFactory,
	services *runtime.Services,
	logger *slog.Logger,
) driving.SettingsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &settingsService{
		workspace: workspace,
		factory:   factory,
		services:  services,
		logger:    logger,
	}
}

// GetOCR returns the current engine status
func (s *settingsService) GetOCR(ctx context.Context) (*driving.OCRStatus, error) {
	return s.status(), nil
}

// UpdateOCR validates and swaps in a new engine, then persists its path
func (s *settingsService) UpdateOCR(ctx context.Context, path string) (*driving.OCRStatus, error) {
	var engine driven.OCREngine
	if path != "" {
		created, err := s.factory.Create(path)
		if err != nil {
			return nil, fmt.Errorf("%w: ocr engine %q: %w", domain.ErrInvalidInput, path, err)
		}
		engine = created
	}

	if err := s.services.ValidateAndSetOCR(ctx, engine); err != nil {
		return nil, fmt.Errorf("%w: ocr engine %q: %w", domain.ErrServiceUnavailable, path, err)
	}

	if err := s.workspace.SetOCREnginePath(ctx, path); err != nil {
		return nil, err
	}

	s.logger.Info("ocr engine updated", "path", path)
	return s.status(), nil
}

func (s *settingsService) status() *driving.OCRStatus {
	status := &driving.OCRStatus{
		Available: s.services.Config().OCRAvailable(),
	}
	if engine := s.services.OCREngine(); engine != nil {
		status.Path = engine.Path()
	}
	if exporter := s.services.Exporter(); exporter != nil {
		status.Exporter = exporter.Name()
	}
	return status
}
