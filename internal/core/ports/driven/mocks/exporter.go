package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
)

// MockExporter records export requests
type MockExporter struct {
	mu    sync.Mutex
	name  string
	calls [][2]string

	ExportFn func(ctx context.Context, documentPath, outputPath string) error
}

// NewMockExporter creates a new MockExporter
func NewMockExporter(name string) *MockExporter {
	return &MockExporter{name: name}
}

func (m *MockExporter) Name() string {
	return m.name
}

func (m *MockExporter) Export(ctx context.Context, documentPath, outputPath string) error {
	m.mu.Lock()
	m.calls = append(m.calls, [2]string{documentPath, outputPath})
	fn := m.ExportFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, documentPath, outputPath)
	}
	return nil
}

// Calls returns (documentPath, outputPath) pairs in call order
func (m *MockExporter) Calls() [][2]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][2]string(nil), m.calls...)
}

// MockVisionEstimator returns fixed corners and config
type MockVisionEstimator struct {
	Corners domain.Corners
	Config  domain.Config
	Err     error
}

func (m *MockVisionEstimator) Estimate(ctx context.Context, imagePath string) (domain.Corners, domain.Config, error) {
	if m.Err != nil {
		return domain.Corners{}, domain.Config{}, m.Err
	}
	return m.Corners, m.Config, nil
}

// MockStemmer maps terms through a fixed table, leaving unknown terms unchanged
type MockStemmer map[string]string

func (m MockStemmer) Stem(term string) string {
	if stem, ok := m[term]; ok {
		return stem
	}
	return term
}
