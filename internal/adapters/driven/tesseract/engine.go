package tesseract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.OCREngine = (*Engine)(nil)

// Engine runs the tesseract executable with the hocr config and reads the
// result from stdout
type Engine struct {
	path     string
	language string
	logger   *slog.Logger
}

// Config holds engine settings
type Config struct {
	// Path is the tesseract executable
	Path string
	// Language is passed as -l when set (e.g. "eng", "deu+eng")
	Language string
	Logger   *slog.Logger
}

// NewEngine creates a tesseract engine
func NewEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		path:     cfg.Path,
		language: cfg.Language,
		logger:   logger.With("engine", "tesseract"),
	}
}

// Path returns the executable in use
func (e *Engine) Path() string {
	return e.path
}

// Recognize runs OCR on imagePath
func (e *Engine) Recognize(ctx context.Context, imagePath string) (*domain.PageText, error) {
	args := []string{imagePath, "stdout"}
	if e.language != "" {
		args = append(args, "-l", e.language)
	}
	args = append(args, "hocr")

	start := time.Now()
	out, err := e.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	text, err := parseHOCR(out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", imagePath, err)
	}

	e.logger.Debug("recognised image",
		"image", imagePath,
		"words", text.WordCount(),
		"duration", time.Since(start))
	return text, nil
}

// HealthCheck runs tesseract --version
func (e *Engine) HealthCheck(ctx context.Context) error {
	out, err := e.run(ctx, "--version")
	if err != nil {
		return err
	}
	if !bytes.Contains(bytes.ToLower(out), []byte("tesseract")) {
		return fmt.Errorf("%s does not look like tesseract", e.path)
	}
	return nil
}

func (e *Engine) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, e.path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%w: tesseract: %w", domain.ErrCancelled, ctxErr)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("tesseract exited with status %d: %s",
				exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("run %s: %w", e.path, err)
	}
	// --version prints to stderr on older releases
	if stdout.Len() == 0 {
		return stderr.Bytes(), nil
	}
	return stdout.Bytes(), nil
}
