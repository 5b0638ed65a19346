package format

import (
	"context"
	"net/url"
	"path"
	"strings"
	"time"
)

/*
Responsibilities
- Wrap content types with no structural conversion path (plain text, JSON,
  XML, YAML) into a minimal ProcessedContent, markdown fenced with a
  language tag taken from the URL path's extension so downstream storage
  still gets something readable

No heading, outline, or asset extraction applies: these formats carry no
HTML-equivalent structure worth isolating.
*/

// PassthroughHandler handles any content type with no dedicated Handler:
// the body is preserved verbatim, fenced as a code block in the markdown
// field.
type PassthroughHandler struct{}

func NewPassthroughHandler() *PassthroughHandler { return &PassthroughHandler{} }

func (h *PassthroughHandler) Name() string { return "passthrough" }

var passthroughContentTypes = map[string]bool{
	"text/plain":       true,
	"application/json": true,
	"application/xml":  true,
	"application/yaml": true,
}

func (h *PassthroughHandler) CanHandle(content []byte, contentType string) bool {
	return passthroughContentTypes[contentType]
}

func (h *PassthroughHandler) Process(ctx context.Context, content []byte, baseURL url.URL) (ProcessedContent, error) {
	title := titleFromPath(baseURL.Path)
	lang := fenceLanguage(baseURL.Path)
	markdown := "```" + lang + "\n" + strings.TrimRight(string(content), "\n") + "\n```\n"

	return NewProcessedContent(
		baseURL,
		title,
		markdown,
		nil,
		[]OutlineNode{{Kind: OutlineCode, Text: string(content), Language: lang}},
		nil,
		AssetInventory{},
		map[string]string{},
		nil,
		h.Name(),
		time.Now(),
	), nil
}

func titleFromPath(p string) string {
	base := path.Base(p)
	if base == "" || base == "." || base == "/" {
		return "Untitled Document"
	}
	return base
}

func fenceLanguage(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".json":
		return "json"
	case ".xml":
		return "xml"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return ""
	}
}
