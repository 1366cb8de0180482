package driven

import "context"

// FileSystem performs the file side effects of document operations
type FileSystem interface {
	// Remove deletes a single file. A file that does not exist is not an error.
	Remove(path string) error

	// RemoveAll deletes root and everything below it. Every entry is attempted;
	// the first failure is returned.
	RemoveAll(ctx context.Context, root string) error

	// Rename moves a file or directory
	Rename(oldPath, newPath string) error

	// CopyFile copies src to dst, creating parent directories
	CopyFile(ctx context.Context, src, dst string) error

	// ReadFile returns the contents of path. A missing file yields an error
	// matching fs.ErrNotExist.
	ReadFile(path string) ([]byte, error)

	// WriteFile replaces path with data atomically
	WriteFile(path string, data []byte) error

	// MkdirAll creates a directory and any missing parents
	MkdirAll(path string) error

	// Exists reports whether path exists
	Exists(path string) bool

	// ListFiles returns the paths of the regular files directly inside dir,
	// sorted by name
	ListFiles(dir string) ([]string, error)
}
