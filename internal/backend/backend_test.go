package backend_test

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/rohmanhakim/docs-crawler/internal/backend"
	"github.com/rohmanhakim/docs-crawler/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>hi</h1>"), 0o644))

	target := url.URL{Scheme: "file", Path: dir + "/index.html"}
	b := backend.NewFileBackend()

	result := b.Crawl(context.Background(), target, config.Config{}, 0)
	assert.True(t, result.IsSuccess())
	assert.Equal(t, "<h1>hi</h1>", string(result.Body()))
}

func TestFileBackend_DirectoryMapsToIndexHTML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>dir</h1>"), 0o644))

	target := url.URL{Scheme: "file", Path: dir}
	b := backend.NewFileBackend()

	result := b.Crawl(context.Background(), target, config.Config{}, 0)
	assert.True(t, result.IsSuccess())
	assert.Equal(t, "<h1>dir</h1>", string(result.Body()))
}

func TestFileBackend_MissingFileReturns404(t *testing.T) {
	target := url.URL{Scheme: "file", Path: "/does/not/exist.html"}
	b := backend.NewFileBackend()

	result := b.Crawl(context.Background(), target, config.Config{}, 0)
	assert.False(t, result.IsSuccess())
	assert.Equal(t, 404, result.Status())
}
