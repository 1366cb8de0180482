// Package pdf renders a persisted document as a searchable PDF: one page per
// scan image with the recognised words drawn as an invisible text layer.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	_ "golang.org/x/image/tiff"
	"golang.org/x/text/encoding/charmap"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Exporter = (*Exporter)(nil)

const (
	fontFamily  = "Helvetica"
	fontSize    = 10.0
	ascentRatio = 0.8
)

// Exporter writes PDFs with fpdf and post-processes them with pdfcpu
type Exporter struct {
	codec    driven.MetadataCodec
	optimize bool
	logger   *slog.Logger
}

// Config holds exporter dependencies
type Config struct {
	Codec driven.MetadataCodec
	// Optimize runs the written file through pdfcpu before it is moved into place
	Optimize bool
	Logger   *slog.Logger
}

// NewExporter creates a PDF exporter
func NewExporter(cfg Config) *Exporter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		codec:    cfg.Codec,
		optimize: cfg.Optimize,
		logger:   logger.With("exporter", "pdf"),
	}
}

// Name identifies the backend
func (e *Exporter) Name() string {
	return "pdf"
}

// Export reads the document at documentPath and writes outputPath
func (e *Exporter) Export(ctx context.Context, documentPath, outputPath string) error {
	start := time.Now()

	doc, err := e.codec.ParseDocument(ctx, documentPath)
	if err != nil {
		return err
	}
	if doc.Len() == 0 {
		return fmt.Errorf("%w: document %q has no pages", domain.ErrInvalidInput, doc.Name)
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetTitle(doc.Name, true)
	pdf.SetCreator("sercha-scan", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)

	for _, page := range doc.Pages() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: pdf export: %w", domain.ErrCancelled, err)
		}
		if err := addPage(pdf, page); err != nil {
			return fmt.Errorf("page %q: %w", page.Name, err)
		}
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("%w: render pdf: %w", domain.ErrIO, err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIO, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(outputPath), ".export-*.pdf")
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIO, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := pdf.Output(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write pdf: %w", domain.ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIO, err)
	}

	if err := e.finish(tmpPath, outputPath); err != nil {
		return err
	}

	pages, err := api.PageCountFile(outputPath)
	if err != nil {
		return fmt.Errorf("%w: validate %s: %w", domain.ErrIO, outputPath, err)
	}
	if pages != doc.Len() {
		return fmt.Errorf("%w: %s has %d pages, expected %d", domain.ErrIO, outputPath, pages, doc.Len())
	}

	e.logger.Info("exported document",
		"document", doc.Name,
		"output", outputPath,
		"pages", pages,
		"duration", time.Since(start))
	return nil
}

func (e *Exporter) finish(tmpPath, outputPath string) error {
	if !e.optimize {
		if err := os.Rename(tmpPath, outputPath); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrIO, err)
		}
		return nil
	}
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	if err := api.OptimizeFile(tmpPath, outputPath, cfg); err != nil {
		return fmt.Errorf("%w: optimize pdf: %w", domain.ErrIO, err)
	}
	return nil
}

// addPage draws one scan at its pixel size (1px = 1pt) and overlays the words
func addPage(pdf *fpdf.Fpdf, page *domain.Page) error {
	img, err := loadImage(page)
	if err != nil {
		return err
	}
	w, h := float64(img.width), float64(img.height)

	pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
	opts := fpdf.ImageOptions{ReadDpi: false, ImageType: img.imageType}
	name := fmt.Sprintf("img-%d-%s", page.Order, page.Name)
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.data))
	pdf.ImageOptions(name, 0, 0, w, h, false, opts, 0, "")

	drawText(pdf, page.Text().Positions())
	return nil
}

// drawText writes every word with zero opacity, scaled to its box width
func drawText(pdf *fpdf.Fpdf, positions []domain.Position) {
	if len(positions) == 0 {
		return
	}
	pdf.SetFont(fontFamily, "", fontSize)
	pdf.SetAlpha(0, "Normal")
	encoder := charmap.ISO8859_1.NewEncoder()

	for _, pos := range positions {
		word, err := encoder.String(pos.Word)
		if err != nil {
			word = strings.Map(func(r rune) rune {
				if r > 0xff {
					return '?'
				}
				return r
			}, pos.Word)
			word, _ = encoder.String(word)
		}
		width := float64(pos.XMax - pos.XMin)
		if sw := pdf.GetStringWidth(word); sw > 0 && width > 0 {
			pdf.SetFontSize(fontSize * width / sw)
		}
		size, _ := pdf.GetFontSize()
		pdf.Text(float64(pos.XMin), float64(pos.YMin)+size*ascentRatio, word)
		pdf.SetFontSize(fontSize)
	}
	pdf.SetAlpha(1, "Normal")
}

type scanImage struct {
	data      []byte
	imageType string
	width     int
	height    int
}

// loadImage returns the processed image, or the raw one if it is missing.
// TIFF scans are re-encoded as PNG since fpdf only embeds PNG, JPEG and GIF.
func loadImage(page *domain.Page) (*scanImage, error) {
	var data []byte
	for _, path := range []string{page.ProcessedImagePath, page.RawImagePath} {
		if path == "" {
			continue
		}
		b, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrIO, err)
		}
		data = b
		break
	}
	if data == nil {
		return nil, fmt.Errorf("%w: no image for page %q", domain.ErrNotFound, page.Name)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %w", domain.ErrParse, err)
	}
	img := &scanImage{data: data, imageType: strings.ToUpper(format), width: cfg.Width, height: cfg.Height}
	if format == "png" || format == "jpeg" {
		return img, nil
	}

	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", domain.ErrParse, format, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return nil, fmt.Errorf("%w: re-encode %s: %w", domain.ErrIO, format, err)
	}
	img.data = buf.Bytes()
	img.imageType = "PNG"
	return img, nil
}
