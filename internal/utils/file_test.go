package utils

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessedPath(t *testing.T) {
	assert.Equal(t, filepath.Join("uploads", "processed_mock.png"), ProcessedPath(filepath.Join("uploads", "mock.png")))
	assert.Equal(t, "processed_a.jpg", ProcessedPath("a.jpg"))
}

func TestIsImageFile(t *testing.T) {
	for _, name := range []string{"a.png", "b.JPG", "c.jpeg", "d.webp", "e.gif", "f.tiff"} {
		assert.True(t, IsImageFile(name), name)
	}
	for _, name := range []string{"a.txt", "noext", "b.png.exe"} {
		assert.False(t, IsImageFile(name), name)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"mock.png":             "mock.png",
		"../../etc/passwd":     "passwd",
		`C:\Users\me\shot.png`: "shot.png",
		"  .hidden.png ":       "hidden.png",
		"a:b*c?.png":           "a_b_c_.png",
		"..":                   "",
		"":                     "",
		"/":                    "",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	require.NoError(t, WriteFileAtomic(path, []byte("first"), 0644))
	require.NoError(t, WriteFileAtomic(path, []byte("second"), 0600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFileAtomicConcurrent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shared.txt")
	payloads := []string{"aaaaaaaaaaaaaaaa", "bbbbbbbbbbbbbbbb", "cccccccccccccccc"}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			assert.NoError(t, WriteFileAtomic(path, []byte(p), 0644))
		}(payloads[i%len(payloads)])
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, payloads, string(data), "file must hold one complete payload")
}

func TestWriteFileAtomicMissingDir(t *testing.T) {
	err := WriteFileAtomic(filepath.Join(t.TempDir(), "nope", "x"), []byte("x"), 0644)
	assert.Error(t, err)
}

func TestEnsureDirAndExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	assert.False(t, FileExists(dir), "directories are not files")

	f := filepath.Join(dir, "x.png")
	require.NoError(t, os.WriteFile(f, nil, 0644))
	assert.True(t, FileExists(f))
	assert.False(t, FileExists(filepath.Join(dir, "y.png")))
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatFileSize(512))
	assert.Equal(t, "1.5 KB", FormatFileSize(1536))
	assert.Equal(t, "16.0 MB", FormatFileSize(16*1024*1024))
}
