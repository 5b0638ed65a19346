package format

import (
	"bytes"
	"context"
	"net/url"
	"path"
	"strings"
)

/*
Responsibilities
- Resolve a content type from, in priority order: an explicit argument,
  the response's MIME header, the filename extension, and finally
  sniffing the body for a recognizable pattern.
- Pick the first registered Handler that claims the resolved content.

Detection and handling are kept separate: the Detector never parses a
document body beyond the handful of bytes sniffing needs.
*/

// Handler is a format-specific content processor. Implementations never
// mutate the input; Process returns a fresh ProcessedContent.
type Handler interface {
	Name() string
	CanHandle(content []byte, contentType string) bool
	Process(ctx context.Context, content []byte, baseURL url.URL) (ProcessedContent, error)
}

// Detector holds a priority-ordered registry of Handlers.
type Detector struct {
	handlers []Handler
}

func NewDetector(handlers ...Handler) *Detector {
	return &Detector{handlers: handlers}
}

// Register appends a handler to the end of the detection order: earlier
// registrations win ties.
func (d *Detector) Register(h Handler) {
	d.handlers = append(d.handlers, h)
}

// ResolveContentType implements the detection order: explicit argument,
// response MIME, filename extension, then sniffing.
func (d *Detector) ResolveContentType(explicit, headerMIME, sourcePath string, content []byte) string {
	if ct := normalizeMIME(explicit); ct != "" {
		return ct
	}
	if ct := normalizeMIME(headerMIME); ct != "" {
		return ct
	}
	if ct := contentTypeForExtension(sourcePath); ct != "" {
		return ct
	}
	return sniff(content)
}

// Detect resolves a content type and returns the first registered Handler
// willing to claim it, or nil if none do.
func (d *Detector) Detect(content []byte, explicit, headerMIME, sourcePath string) Handler {
	contentType := d.ResolveContentType(explicit, headerMIME, sourcePath, content)
	for _, h := range d.handlers {
		if h.CanHandle(content, contentType) {
			return h
		}
	}
	return nil
}

func normalizeMIME(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if idx := strings.IndexByte(raw, ';'); idx >= 0 {
		raw = raw[:idx]
	}
	return strings.ToLower(strings.TrimSpace(raw))
}

var extensionContentTypes = map[string]string{
	".html":     "text/html",
	".htm":      "text/html",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".rst":      "text/x-rst",
	".adoc":     "text/asciidoc",
	".asciidoc": "text/asciidoc",
	".json":     "application/json",
	".xml":      "application/xml",
	".yaml":     "application/yaml",
	".yml":      "application/yaml",
	".txt":      "text/plain",
}

func contentTypeForExtension(sourcePath string) string {
	ext := strings.ToLower(path.Ext(sourcePath))
	return extensionContentTypes[ext]
}

// sniff inspects the first bytes of content and guesses a content type by
// pattern, matching the order the teacher's fetcher classifies responses in:
// markup first, then structured text, then plain text.
func sniff(content []byte) string {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return "text/plain"
	}

	lower := bytes.ToLower(trimmed)
	switch {
	case bytes.HasPrefix(lower, []byte("<!doctype html")), bytes.Contains(lower, []byte("<html")):
		return "text/html"
	case bytes.HasPrefix(trimmed, []byte("<?xml")), looksLikeXML(trimmed):
		return "application/xml"
	case bytes.HasPrefix(trimmed, []byte("{")), bytes.HasPrefix(trimmed, []byte("[")):
		return "application/json"
	case looksLikeRST(trimmed):
		return "text/x-rst"
	case looksLikeAsciiDoc(trimmed):
		return "text/asciidoc"
	case looksLikeMarkdown(trimmed):
		return "text/markdown"
	case looksLikeYAML(trimmed):
		return "application/yaml"
	default:
		return "text/plain"
	}
}

func looksLikeXML(content []byte) bool {
	return bytes.HasPrefix(content, []byte("<")) && bytes.Contains(content, []byte("</"))
}

func looksLikeMarkdown(content []byte) bool {
	lines := bytes.Split(content, []byte("\n"))
	for _, line := range lines {
		trimmed := bytes.TrimSpace(line)
		if bytes.HasPrefix(trimmed, []byte("#")) || bytes.HasPrefix(trimmed, []byte("```")) {
			return true
		}
	}
	return false
}

func looksLikeRST(content []byte) bool {
	lines := bytes.Split(content, []byte("\n"))
	for i := 1; i < len(lines); i++ {
		underline := bytes.TrimSpace(lines[i])
		title := bytes.TrimSpace(lines[i-1])
		if len(underline) == 0 || len(title) == 0 {
			continue
		}
		if isRSTUnderlineRune(underline) && len(underline) >= len(title) {
			return true
		}
	}
	return false
}

func isRSTUnderlineRune(line []byte) bool {
	if len(line) == 0 {
		return false
	}
	marks := []byte("=-~^\"'`#*+.:_")
	first := line[0]
	if !bytes.ContainsRune(marks, rune(first)) {
		return false
	}
	for _, b := range line {
		if b != first {
			return false
		}
	}
	return true
}

func looksLikeAsciiDoc(content []byte) bool {
	lines := bytes.Split(content, []byte("\n"))
	for _, line := range lines {
		trimmed := bytes.TrimSpace(line)
		if bytes.HasPrefix(trimmed, []byte("= ")) || bytes.HasPrefix(trimmed, []byte("== ")) {
			return true
		}
	}
	return false
}

func looksLikeYAML(content []byte) bool {
	lines := bytes.Split(content, []byte("\n"))
	colonKeyLines := 0
	for _, line := range lines {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 || bytes.HasPrefix(trimmed, []byte("#")) {
			continue
		}
		if idx := bytes.IndexByte(trimmed, ':'); idx > 0 {
			colonKeyLines++
		}
	}
	return colonKeyLines > 0
}
