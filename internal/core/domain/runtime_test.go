package domain

import (
	"testing"
)

func TestNewRuntimeConfig(t *testing.T) {
	config := NewRuntimeConfig("memory")

	if config == nil {
		t.Fatal("expected non-nil config")
	}
	if config.QueueBackend != "memory" {
		t.Errorf("expected memory, got %s", config.QueueBackend)
	}
	if config.OCRAvailable() {
		t.Error("expected OCR to be unavailable initially")
	}
	if config.ExportAvailable() {
		t.Error("expected export to be unavailable initially")
	}
}

func TestRuntimeConfig_OCRAvailable(t *testing.T) {
	config := NewRuntimeConfig("redis")

	config.SetOCRAvailable(true)
	if !config.OCRAvailable() {
		t.Error("expected OCR to be available after setting")
	}

	config.SetOCRAvailable(false)
	if config.OCRAvailable() {
		t.Error("expected OCR to be unavailable after clearing")
	}
}

func TestRuntimeConfig_ExportAvailable(t *testing.T) {
	config := NewRuntimeConfig("redis")

	config.SetExportAvailable(true)
	if !config.ExportAvailable() {
		t.Error("expected export to be available after setting")
	}

	config.SetExportAvailable(false)
	if config.ExportAvailable() {
		t.Error("expected export to be unavailable after clearing")
	}
}

func TestRuntimeConfig_CanExportWithText(t *testing.T) {
	tests := []struct {
		name     string
		ocr      bool
		export   bool
		expected bool
	}{
		{"nothing configured", false, false, false},
		{"export only", false, true, false},
		{"ocr only", true, false, false},
		{"both", true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewRuntimeConfig("memory")
			config.SetOCRAvailable(tt.ocr)
			config.SetExportAvailable(tt.export)

			if got := config.CanExportWithText(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestRuntimeConfig_ThreadSafety(t *testing.T) {
	config := NewRuntimeConfig("memory")

	done := make(chan bool)

	go func() {
		for i := 0; i < 100; i++ {
			config.SetOCRAvailable(true)
			config.SetExportAvailable(true)
			config.SetOCRAvailable(false)
			config.SetExportAvailable(false)
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			_ = config.OCRAvailable()
			_ = config.ExportAvailable()
			_ = config.CanExportWithText()
		}
		done <- true
	}()

	<-done
	<-done
}
