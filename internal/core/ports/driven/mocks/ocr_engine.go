package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
	"github.com/custodia-labs/sercha-scan/internal/core/ports/driven"
)

// MockOCREngine returns canned text per image path
type MockOCREngine struct {
	mu          sync.Mutex
	texts       map[string]*domain.PageText
	calls       []string
	path        string
	healthy     error
	RecognizeFn func(ctx context.Context, imagePath string) (*domain.PageText, error)
}

// NewMockOCREngine creates a new MockOCREngine for the given executable path
func NewMockOCREngine(path string) *MockOCREngine {
	return &MockOCREngine{
		texts: make(map[string]*domain.PageText),
		path:  path,
	}
}

// SetText configures the result for an image
func (m *MockOCREngine) SetText(imagePath string, text *domain.PageText) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts[imagePath] = text
}

// SetHealth configures the HealthCheck result
func (m *MockOCREngine) SetHealth(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = err
}

// Calls returns the images recognised so far
func (m *MockOCREngine) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockOCREngine) Recognize(ctx context.Context, imagePath string) (*domain.PageText, error) {
	m.mu.Lock()
	m.calls = append(m.calls, imagePath)
	fn := m.RecognizeFn
	text, ok := m.texts[imagePath]
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, imagePath)
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.ErrCancelled
	}
	if !ok {
		return domain.NewPageText("", nil), nil
	}
	return text, nil
}

func (m *MockOCREngine) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy
}

func (m *MockOCREngine) Path() string {
	return m.path
}

// MockOCREngineFactory is a testify mock of OCREngineFactory
type MockOCREngineFactory struct {
	mock.Mock
}

func (m *MockOCREngineFactory) Create(path string) (driven.OCREngine, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(driven.OCREngine), args.Error(1)
}
