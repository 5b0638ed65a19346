package format_test

import (
	"context"
	"testing"

	"github.com/rohmanhakim/docs-crawler/internal/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassthroughHandler_CanHandleMatchesListedContentTypesOnly(t *testing.T) {
	h := format.NewPassthroughHandler()
	assert.True(t, h.CanHandle(nil, "text/plain"))
	assert.True(t, h.CanHandle(nil, "application/json"))
	assert.True(t, h.CanHandle(nil, "application/xml"))
	assert.True(t, h.CanHandle(nil, "application/yaml"))
	assert.False(t, h.CanHandle(nil, "text/html"))
}

func TestPassthroughHandler_FencesContentByExtension(t *testing.T) {
	h := format.NewPassthroughHandler()
	source := []byte(`{"name": "example", "version": 1}`)

	result, err := h.Process(context.Background(), source, mustURL(t, "https://docs.example.com/data/config.json"))
	require.NoError(t, err)

	assert.Equal(t, "passthrough", result.FormatName())
	assert.Equal(t, "config.json", result.Title())
	assert.Contains(t, result.Markdown(), "```json")
	assert.Contains(t, result.Markdown(), `"name": "example"`)
	require.Len(t, result.Outline(), 1)
	assert.Equal(t, format.OutlineCode, result.Outline()[0].Kind)
}

func TestPassthroughHandler_UntitledWhenPathHasNoBaseName(t *testing.T) {
	h := format.NewPassthroughHandler()
	result, err := h.Process(context.Background(), []byte("plain body"), mustURL(t, "https://docs.example.com/"))
	require.NoError(t, err)
	assert.Equal(t, "Untitled Document", result.Title())
}
