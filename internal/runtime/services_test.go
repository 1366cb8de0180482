package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
)

// mockOCREngine is a mock implementation for testing
type mockOCREngine struct {
	healthCheckErr error
	path           string
}

func (m *mockOCREngine) Recognize(ctx context.Context, imagePath string) (*domain.PageText, error) {
	return domain.NewPageText("", nil), nil
}

func (m *mockOCREngine) HealthCheck(ctx context.Context) error {
	return m.healthCheckErr
}

func (m *mockOCREngine) Path() string {
	return m.path
}

// mockExporter is a mock implementation for testing
type mockExporter struct{}

func (m *mockExporter) Name() string {
	return "mock"
}

func (m *mockExporter) Export(ctx context.Context, documentPath, outputPath string) error {
	return nil
}

func TestNewServices(t *testing.T) {
	config := domain.NewRuntimeConfig("memory")
	services := NewServices(config)

	if services == nil {
		t.Fatal("expected non-nil services")
	}
	if services.Config() != config {
		t.Error("expected config to match")
	}
}

func TestServices_OCREngine(t *testing.T) {
	config := domain.NewRuntimeConfig("memory")
	services := NewServices(config)

	if services.OCREngine() != nil {
		t.Error("expected nil OCR engine initially")
	}

	services.SetOCREngine(&mockOCREngine{path: "/usr/bin/tesseract"})
	if services.OCREngine() == nil {
		t.Error("expected non-nil OCR engine after set")
	}
	if !config.OCRAvailable() {
		t.Error("expected OCR to be available")
	}

	services.SetOCREngine(nil)
	if services.OCREngine() != nil {
		t.Error("expected nil OCR engine after clearing")
	}
	if config.OCRAvailable() {
		t.Error("expected OCR to be unavailable")
	}
}

func TestServices_Exporter(t *testing.T) {
	config := domain.NewRuntimeConfig("memory")
	services := NewServices(config)

	services.SetExporter(&mockExporter{})
	if services.Exporter() == nil {
		t.Error("expected non-nil exporter after set")
	}
	if !config.ExportAvailable() {
		t.Error("expected export to be available")
	}

	services.SetExporter(nil)
	if config.ExportAvailable() {
		t.Error("expected export to be unavailable")
	}
}

func TestServices_ValidateAndSetOCR(t *testing.T) {
	config := domain.NewRuntimeConfig("memory")
	services := NewServices(config)
	ctx := context.Background()

	t.Run("successful validation", func(t *testing.T) {
		err := services.ValidateAndSetOCR(ctx, &mockOCREngine{path: "tesseract"})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if services.OCREngine() == nil {
			t.Error("expected OCR engine to be set")
		}
	})

	t.Run("failed validation keeps previous engine", func(t *testing.T) {
		previous := services.OCREngine()
		err := services.ValidateAndSetOCR(ctx, &mockOCREngine{healthCheckErr: errors.New("not found")})
		if err == nil {
			t.Error("expected error")
		}
		if services.OCREngine() != previous {
			t.Error("expected previous engine to remain")
		}
	})

	t.Run("nil engine", func(t *testing.T) {
		err := services.ValidateAndSetOCR(ctx, nil)
		if err != nil {
			t.Errorf("unexpected error for nil engine: %v", err)
		}
		if config.OCRAvailable() {
			t.Error("expected OCR to be unavailable")
		}
	})
}

func TestServices_Close(t *testing.T) {
	config := domain.NewRuntimeConfig("memory")
	services := NewServices(config)
	services.SetOCREngine(&mockOCREngine{})
	services.SetExporter(&mockExporter{})

	if err := services.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if services.OCREngine() != nil || services.Exporter() != nil {
		t.Error("expected services to be cleared")
	}
	if config.OCRAvailable() || config.ExportAvailable() {
		t.Error("expected capability flags to be cleared")
	}
}
