package format_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/rohmanhakim/docs-crawler/internal/extractor"
	"github.com/rohmanhakim/docs-crawler/internal/format"
	"github.com/rohmanhakim/docs-crawler/internal/mdconvert"
	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/internal/sanitizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHTMLHandler() *format.HTMLHandler {
	sink := metadata.NoopSink{}
	ext := extractor.NewDomExtractor(sink)
	san := sanitizer.NewHTMLSanitizer(sink)
	conv := mdconvert.NewRule(sink)
	return format.NewHTMLHandler(&ext, &san, conv, nil, format.DefaultHTMLHandlerParam())
}

func mustURL(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return *u
}

func TestHTMLHandler_ExtractsTitleAndHeadings(t *testing.T) {
	h := newTestHTMLHandler()
	page := []byte(`<html><head><title>Guide</title></head><body>
<main>
<h1>Getting Started</h1>
<p>Read the <a href="/next">next page</a> for more.</p>
<h2>Installation</h2>
<pre><code class="language-go">fmt.Println("hi")</code></pre>
</main>
</body></html>`)

	result, err := h.Process(context.Background(), page, mustURL(t, "https://docs.example.com/guide"))
	require.NoError(t, err)

	assert.Equal(t, "Guide", result.Title())
	assert.Equal(t, "html", result.FormatName())
	require.Len(t, result.Headings(), 2)
	assert.Equal(t, "Getting Started", result.Headings()[0].Text)
	assert.Equal(t, 1, result.Headings()[0].Level)
	assert.Equal(t, "Installation", result.Headings()[1].Text)
	assert.Contains(t, result.Links(), "https://docs.example.com/next")
}

func TestHTMLHandler_ResolvesAssetsToAbsoluteURLs(t *testing.T) {
	h := newTestHTMLHandler()
	page := []byte(`<html><head>
<link rel="stylesheet" href="/css/site.css">
</head><body>
<main><img src="photo.png"><p>Body text long enough to pass extraction thresholds for meaningful content detection here.</p></main>
</body></html>`)

	result, err := h.Process(context.Background(), page, mustURL(t, "https://docs.example.com/guide/"))
	require.NoError(t, err)

	assert.Contains(t, result.Assets().Stylesheets, "https://docs.example.com/css/site.css")
	assert.Contains(t, result.Assets().Images, "https://docs.example.com/guide/photo.png")
}

func TestHTMLHandler_EmptyBodyRecordsError(t *testing.T) {
	h := newTestHTMLHandler()
	result, err := h.Process(context.Background(), []byte(""), mustURL(t, "https://docs.example.com/empty"))
	require.NoError(t, err)
	assert.True(t, result.HasErrors())
}

func TestHTMLHandler_CanHandleMatchesHTMLContentTypesOnly(t *testing.T) {
	h := newTestHTMLHandler()
	assert.True(t, h.CanHandle(nil, "text/html"))
	assert.True(t, h.CanHandle(nil, "application/xhtml+xml"))
	assert.False(t, h.CanHandle(nil, "text/markdown"))
}
