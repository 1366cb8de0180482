// Package script delegates export to an external Python program that reports
// its outcome on stdout: "OK", or "ERROR" followed by a message line.
package script

import (
	"bufio"
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
var _ driven.Exporter = (*Exporter)(nil)

// ErrUnknownResult is returned when the script output follows neither protocol form
var ErrUnknownResult = errors.New("unknown export problem")

// Exporter runs `<python> <script> <document> <output>`
type Exporter struct {
	python string
	script string
	logger *slog.Logger
}

// Config holds script exporter settings
type Config struct {
	// Python is the interpreter; defaults to "python3"
	Python string
	Script string
	Logger *slog.Logger
}

// NewExporter creates a script exporter
func NewExporter(cfg Config) *Exporter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	python := cfg.Python
	if python == "" {
		python = "python3"
	}
	return &Exporter{
		python: python,
		script: cfg.Script,
		logger: logger.With("exporter", "script"),
	}
}

// Name identifies the backend
func (e *Exporter) Name() string {
	return "script"
}

// Export runs the script and interprets its first output lines
func (e *Exporter) Export(ctx context.Context, documentPath, outputPath string) error {
	if e.script == "" {
		return fmt.Errorf("%w: no export script configured", domain.ErrServiceUnavailable)
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, e.python, e.script, documentPath, outputPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: export script: %w", domain.ErrCancelled, ctxErr)
	}

	if err := parseResult(stdout.Bytes()); err != nil {
		e.logger.Warn("export script failed",
			"document", documentPath,
			"error", err,
			"stderr", strings.TrimSpace(stderr.String()))
		if errors.Is(err, ErrUnknownResult) && runErr != nil {
			return fmt.Errorf("%w: %w", err, runErr)
		}
		return err
	}

	e.logger.Info("exported document",
		"document", documentPath,
		"output", outputPath,
		"duration", time.Since(start))
	return nil
}

// parseResult reads the status line and, for ERROR, the message line after it
func parseResult(out []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if !scanner.Scan() {
		return ErrUnknownResult
	}
	switch strings.TrimSpace(scanner.Text()) {
	case "OK":
		return nil
	case "ERROR":
		msg := "export failed"
		if scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				msg = line
			}
		}
		return errors.New(msg)
	default:
		return ErrUnknownResult
	}
}
