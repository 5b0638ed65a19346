package format_test

import (
	"context"
	"testing"

	"github.com/rohmanhakim/docs-crawler/internal/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuralHandler_CanHandleMatchesRSTAndAsciiDocOnly(t *testing.T) {
	h := format.NewStructuralHandler(newTestHTMLHandler())
	assert.True(t, h.CanHandle(nil, "text/x-rst"))
	assert.True(t, h.CanHandle(nil, "text/asciidoc"))
	assert.False(t, h.CanHandle(nil, "text/markdown"))
}

func TestStructuralHandler_RendersRSTUnderlineHeadings(t *testing.T) {
	h := format.NewStructuralHandler(newTestHTMLHandler())
	source := []byte(`Getting Started
================

Read the setup instructions below and make sure every dependency listed
in the requirements section is installed before continuing.

Installation
------------

Run the installer and follow the prompts until the process completes.`)

	result, err := h.Process(context.Background(), source, mustURL(t, "https://docs.example.com/guide"))
	require.NoError(t, err)

	assert.Equal(t, "structural", result.FormatName())
	require.GreaterOrEqual(t, len(result.Headings()), 1)
}

func TestStructuralHandler_RendersAsciiDocHeadingPrefixes(t *testing.T) {
	h := format.NewStructuralHandler(newTestHTMLHandler())
	source := []byte(`= Getting Started

Read the setup instructions below and make sure every dependency listed
in the requirements section is installed before continuing with the rest.

== Installation

Run the installer and follow the prompts until the process completes fully.`)

	result, err := h.Process(context.Background(), source, mustURL(t, "https://docs.example.com/guide"))
	require.NoError(t, err)

	assert.Equal(t, "structural", result.FormatName())
	require.GreaterOrEqual(t, len(result.Headings()), 1)
	assert.Equal(t, "Getting Started", result.Headings()[0].Text)
}

func TestStructuralHandler_EmptySourceRecordsError(t *testing.T) {
	h := format.NewStructuralHandler(newTestHTMLHandler())
	result, err := h.Process(context.Background(), []byte(""), mustURL(t, "https://docs.example.com/empty"))
	require.NoError(t, err)
	assert.True(t, result.HasErrors())
}
