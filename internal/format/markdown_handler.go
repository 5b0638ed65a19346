package format

import (
	"context"
	"net/url"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

/*
Responsibilities
- Render Markdown source to HTML
- Delegate the rendered HTML to the HTML handler for isolation, metadata,
  outline, and asset extraction

The rendered markup never sees a real page chrome (no nav/header/footer),
so the HTML handler's semantic-container search degrades gracefully to the
whole rendered body.
*/

// MarkdownHandler converts Markdown source to HTML with gomarkdown, then
// reuses the HTML handler for everything past that point.
type MarkdownHandler struct {
	html *HTMLHandler
}

func NewMarkdownHandler(html *HTMLHandler) *MarkdownHandler {
	return &MarkdownHandler{html: html}
}

func (h *MarkdownHandler) Name() string { return "markdown" }

func (h *MarkdownHandler) CanHandle(content []byte, contentType string) bool {
	return contentType == "text/markdown" || contentType == "text/x-markdown"
}

func (h *MarkdownHandler) Process(ctx context.Context, content []byte, baseURL url.URL) (ProcessedContent, error) {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse(content)

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	rendered := markdown.Render(doc, renderer)

	processed, err := h.html.Process(ctx, rendered, baseURL)
	if err != nil {
		return processed, err
	}
	processed = processed.withFormatName(h.Name())
	return processed, nil
}
