// Package vision provides the initial corner guess for imported scans
package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"

	_ "golang.org/x/image/tiff"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VisionEstimator = (*Estimator)(nil)

// Estimator reads the image header and places the corners on the image
// extents. The adjustment config is always the default.
type Estimator struct {
	logger *slog.Logger
}

// NewEstimator creates an estimator
func NewEstimator(logger *slog.Logger) *Estimator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Estimator{logger: logger.With("component", "vision")}
}

// Estimate returns corners spanning the whole image
func (e *Estimator) Estimate(ctx context.Context, imagePath string) (domain.Corners, domain.Config, error) {
	if err := ctx.Err(); err != nil {
		return domain.Corners{}, domain.Config{}, fmt.Errorf("%w: %w", domain.ErrCancelled, err)
	}

	f, err := os.Open(imagePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Corners{}, domain.Config{}, fmt.Errorf("%w: %s", domain.ErrNotFound, imagePath)
		}
		return domain.Corners{}, domain.Config{}, fmt.Errorf("%w: %w", domain.ErrIO, err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return domain.Corners{}, domain.Config{}, fmt.Errorf("%w: %s: %w", domain.ErrParse, imagePath, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return domain.Corners{}, domain.Config{}, fmt.Errorf("%w: %s has no extent", domain.ErrParse, imagePath)
	}

	right, bottom := cfg.Width-1, cfg.Height-1
	corners := domain.Corners{
		UpLeft:    domain.Point{X: 0, Y: 0},
		UpRight:   domain.Point{X: right, Y: 0},
		DownLeft:  domain.Point{X: 0, Y: bottom},
		DownRight: domain.Point{X: right, Y: bottom},
	}
	e.logger.Debug("estimated corners", "image", imagePath, "format", format,
		"width", cfg.Width, "height", cfg.Height)
	return corners, domain.Config{}, nil
}
