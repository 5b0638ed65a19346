package format

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
)

/*
Responsibilities
- Recognize reStructuredText and AsciiDoc heading patterns without shelling
  out to docutils or asciidoctor
- Render the recognized structure as HTML headings plus paragraph bodies,
  then delegate to the HTML handler

Neither format's full grammar (directives, roles, substitutions) is
parsed: this is the basic structural fallback the teacher's own Markdown
path doesn't need, used only when a real converter isn't available.
*/

// StructuralHandler covers reStructuredText and AsciiDoc by recognizing
// their heading conventions and rendering the rest as plain paragraphs.
type StructuralHandler struct {
	html *HTMLHandler
}

func NewStructuralHandler(html *HTMLHandler) *StructuralHandler {
	return &StructuralHandler{html: html}
}

func (h *StructuralHandler) Name() string { return "structural" }

func (h *StructuralHandler) CanHandle(content []byte, contentType string) bool {
	return contentType == "text/x-rst" || contentType == "text/asciidoc"
}

func (h *StructuralHandler) Process(ctx context.Context, content []byte, baseURL url.URL) (ProcessedContent, error) {
	rendered := renderStructural(content)
	processed, err := h.html.Process(ctx, rendered, baseURL)
	if err != nil {
		return processed, err
	}
	processed = processed.withFormatName(h.Name())
	return processed, nil
}

// renderStructural recognizes RST underline headings and AsciiDoc "= "
// heading prefixes, and renders everything else as <p> blocks.
func renderStructural(content []byte) []byte {
	lines := strings.Split(string(content), "\n")
	var buf bytes.Buffer
	buf.WriteString("<html><body>\n")

	var paragraph []string
	flush := func() {
		text := strings.TrimSpace(strings.Join(paragraph, " "))
		if text != "" {
			fmt.Fprintf(&buf, "<p>%s</p>\n", text)
		}
		paragraph = nil
	}

	i := 0
	for i < len(lines) {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if level, text, ok := asciiDocHeading(trimmed); ok {
			flush()
			fmt.Fprintf(&buf, "<h%d>%s</h%d>\n", level, text, level)
			i++
			continue
		}

		if i+1 < len(lines) {
			next := strings.TrimSpace(lines[i+1])
			if trimmed != "" && isRSTUnderlineRune([]byte(next)) && len(next) >= len(trimmed) {
				flush()
				fmt.Fprintf(&buf, "<h2>%s</h2>\n", trimmed)
				i += 2
				continue
			}
		}

		if trimmed == "" {
			flush()
		} else {
			paragraph = append(paragraph, trimmed)
		}
		i++
	}
	flush()

	buf.WriteString("</body></html>\n")
	return buf.Bytes()
}

func asciiDocHeading(line string) (int, string, bool) {
	if !strings.HasPrefix(line, "=") {
		return 0, "", false
	}
	level := 0
	for level < len(line) && line[level] == '=' {
		level++
	}
	if level == 0 || level >= len(line) || line[level] != ' ' {
		return 0, "", false
	}
	text := strings.TrimSpace(line[level:])
	if text == "" {
		return 0, "", false
	}
	return level, text, true
}
