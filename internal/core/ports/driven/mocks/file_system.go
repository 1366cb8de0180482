package mocks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// MockFileSystem is an in-memory FileSystem for testing.
// Directories are implicit unless created with MkdirAll.
type MockFileSystem struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool

	// Custom behavior hooks (optional). Returning a non-nil error fails the call
	// before any state changes.
	RemoveFn    func(path string) error
	RemoveAllFn func(root string) error
	RenameFn    func(oldPath, newPath string) error
	CopyFileFn  func(src, dst string) error
	ReadFileFn  func(path string) error
	WriteFileFn func(path string, data []byte) error
}

// NewMockFileSystem creates a new MockFileSystem
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

// Put creates a file (for test setup)
func (m *MockFileSystem) Put(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filepath.Clean(path)] = data
}

// Content returns a file's data (for test assertions)
func (m *MockFileSystem) Content(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[filepath.Clean(path)]
	return data, ok
}

// Paths returns every file path, sorted (for test assertions)
func (m *MockFileSystem) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (m *MockFileSystem) Remove(path string) error {
	if m.RemoveFn != nil {
		if err := m.RemoveFn(path); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, filepath.Clean(path))
	return nil
}

func (m *MockFileSystem) RemoveAll(ctx context.Context, root string) error {
	if m.RemoveAllFn != nil {
		if err := m.RemoveAllFn(root); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	root = filepath.Clean(root)
	for p := range m.files {
		if within(root, p) {
			delete(m.files, p)
		}
	}
	for d := range m.dirs {
		if within(root, d) {
			delete(m.dirs, d)
		}
	}
	return nil
}

func (m *MockFileSystem) Rename(oldPath, newPath string) error {
	if m.RenameFn != nil {
		if err := m.RenameFn(oldPath, newPath); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	oldPath, newPath = filepath.Clean(oldPath), filepath.Clean(newPath)
	if !m.existsLocked(oldPath) {
		return &os.PathError{Op: "rename", Path: oldPath, Err: os.ErrNotExist}
	}
	for p, data := range m.files {
		if within(oldPath, p) {
			delete(m.files, p)
			m.files[newPath+strings.TrimPrefix(p, oldPath)] = data
		}
	}
	for d := range m.dirs {
		if within(oldPath, d) {
			delete(m.dirs, d)
			m.dirs[newPath+strings.TrimPrefix(d, oldPath)] = true
		}
	}
	return nil
}

func (m *MockFileSystem) CopyFile(ctx context.Context, src, dst string) error {
	if m.CopyFileFn != nil {
		if err := m.CopyFileFn(src, dst); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[filepath.Clean(src)]
	if !ok {
		return &os.PathError{Op: "open", Path: src, Err: os.ErrNotExist}
	}
	m.files[filepath.Clean(dst)] = append([]byte(nil), data...)
	return nil
}

func (m *MockFileSystem) ReadFile(path string) ([]byte, error) {
	if m.ReadFileFn != nil {
		if err := m.ReadFileFn(path); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[filepath.Clean(path)]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

func (m *MockFileSystem) WriteFile(path string, data []byte) error {
	if m.WriteFileFn != nil {
		if err := m.WriteFileFn(path, data); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filepath.Clean(path)] = append([]byte(nil), data...)
	return nil
}

func (m *MockFileSystem) MkdirAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[filepath.Clean(path)] = true
	return nil
}

func (m *MockFileSystem) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.existsLocked(filepath.Clean(path))
}

func (m *MockFileSystem) ListFiles(dir string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dir = filepath.Clean(dir)
	if !m.existsLocked(dir) {
		return nil, &os.PathError{Op: "open", Path: dir, Err: os.ErrNotExist}
	}
	var paths []string
	for p := range m.files {
		if filepath.Dir(p) == dir {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (m *MockFileSystem) existsLocked(path string) bool {
	if _, ok := m.files[path]; ok {
		return true
	}
	if m.dirs[path] {
		return true
	}
	for p := range m.files {
		if within(path, p) {
			return true
		}
	}
	return false
}

func within(root, path string) bool {
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}

// ErrInjected is a convenience error for failure hooks
var ErrInjected = fmt.Errorf("injected failure")
