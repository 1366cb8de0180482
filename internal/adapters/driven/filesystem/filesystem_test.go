package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRemove_MissingIsNotAnError(t *testing.T) {
	fs := New()
	assert.NoError(t, fs.Remove(filepath.Join(t.TempDir(), "missing.png")))
}

func TestRemoveAll_Nested(t *testing.T) {
	root := filepath.Join(t.TempDir(), "doc")
	writeTestFile(t, filepath.Join(root, "doc.xml"), "<DOCUMENT/>")
	writeTestFile(t, filepath.Join(root, "a", "b", "c", "deep.txt"), "deep")
	writeTestFile(t, filepath.Join(root, "a", "side.txt"), "side")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	fs := New()
	require.NoError(t, fs.RemoveAll(context.Background(), root))
	assert.False(t, fs.Exists(root))
}

func TestRemoveAll_MissingRoot(t *testing.T) {
	fs := New()
	assert.NoError(t, fs.RemoveAll(context.Background(), filepath.Join(t.TempDir(), "nope")))
}

func TestRemoveAll_Cancelled(t *testing.T) {
	root := filepath.Join(t.TempDir(), "doc")
	writeTestFile(t, filepath.Join(root, "doc.xml"), "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().RemoveAll(ctx, root)
	assert.ErrorIs(t, err, domain.ErrCancelled)
}

func TestCopyFile_CreatesParents(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	dst := filepath.Join(dir, "raw", "nested", "out.png")
	writeTestFile(t, src, "image bytes")

	require.NoError(t, New().CopyFile(context.Background(), src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "image bytes", string(data))
}

func TestCopyFile_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := New().CopyFile(context.Background(), filepath.Join(dir, "nope"), filepath.Join(dir, "out"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteFile_ReplacesWithoutLeftovers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.xml")
	fs := New()

	require.NoError(t, fs.WriteFile(path, []byte("first")))
	require.NoError(t, fs.WriteFile(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "b.png"), "b")
	writeTestFile(t, filepath.Join(dir, "a.png"), "a")
	writeTestFile(t, filepath.Join(dir, "sub", "c.png"), "c")

	files, err := New().ListFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "b.png")}, files)
}

func TestRename(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "old", "doc.xml"), "x")

	fs := New()
	require.NoError(t, fs.Rename(filepath.Join(dir, "old"), filepath.Join(dir, "new")))
	assert.True(t, fs.Exists(filepath.Join(dir, "new", "doc.xml")))
	assert.False(t, fs.Exists(filepath.Join(dir, "old")))
}

func TestReadFile(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "p.xml")
	writeTestFile(t, path, "<PAGE/>")

	data, err := fs.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<PAGE/>", string(data))

	_, err = fs.ReadFile(filepath.Join(t.TempDir(), "missing.xml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
