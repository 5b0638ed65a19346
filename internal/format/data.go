package format

import (
	"net/url"
	"time"
)

/*
ProcessedContent is the format-agnostic representation every Handler
produces, regardless of whether the source was HTML, Markdown, or a
plaintext fallback.
*/

// Heading is one entry in a document's table of contents, in document order.
type Heading struct {
	Level int
	Text  string
	ID    string
}

// OutlineNodeKind identifies what kind of section a structured outline node
// represents.
type OutlineNodeKind string

const (
	OutlineHeading   OutlineNodeKind = "heading"
	OutlineParagraph OutlineNodeKind = "paragraph"
	OutlineList      OutlineNodeKind = "list"
	OutlineCode      OutlineNodeKind = "code"
	OutlineTable     OutlineNodeKind = "table"
)

// OutlineNode is one top-level block in the structured, section-centric
// outline produced by the HTML handler's depth-first walk.
type OutlineNode struct {
	Kind     OutlineNodeKind
	Text     string
	Level    int
	Language string
	Links    []LinkNode
}

// LinkNode is an inline link or image reference discovered while building
// the structured outline. URL is always absolute.
type LinkNode struct {
	Text  string
	URL   string
	Image bool
}

// AssetInventory buckets the absolute asset URLs a document references.
type AssetInventory struct {
	Images      []string
	Stylesheets []string
	Scripts     []string
	Media       []string
}

// ProcessedContent is the normalized output of processing one fetched
// document, independent of its original format.
type ProcessedContent struct {
	sourceURL  url.URL
	title      string
	markdown   string
	headings   []Heading
	outline    []OutlineNode
	links      []string
	assets     AssetInventory
	metadata   map[string]string
	errors     []string
	formatName string
	processedAt time.Time
}

func NewProcessedContent(
	sourceURL url.URL,
	title string,
	markdown string,
	headings []Heading,
	outline []OutlineNode,
	links []string,
	assets AssetInventory,
	metadata map[string]string,
	errors []string,
	formatName string,
	processedAt time.Time,
) ProcessedContent {
	return ProcessedContent{
		sourceURL:   sourceURL,
		title:       title,
		markdown:    markdown,
		headings:    headings,
		outline:     outline,
		links:       links,
		assets:      assets,
		metadata:    metadata,
		errors:      errors,
		formatName:  formatName,
		processedAt: processedAt,
	}
}

func (p ProcessedContent) SourceURL() url.URL        { return p.sourceURL }
func (p ProcessedContent) Title() string             { return p.title }
func (p ProcessedContent) Markdown() string           { return p.markdown }
func (p ProcessedContent) Headings() []Heading        { return p.headings }
func (p ProcessedContent) Outline() []OutlineNode      { return p.outline }
func (p ProcessedContent) Links() []string             { return p.links }
func (p ProcessedContent) Assets() AssetInventory       { return p.assets }
func (p ProcessedContent) Metadata() map[string]string { return p.metadata }
func (p ProcessedContent) Errors() []string            { return p.errors }
func (p ProcessedContent) FormatName() string          { return p.formatName }
func (p ProcessedContent) ProcessedAt() time.Time      { return p.processedAt }

// HasErrors reports whether any pipeline sub-step recorded a best-effort
// failure while still producing output.
func (p ProcessedContent) HasErrors() bool { return len(p.errors) > 0 }

// WithError returns a copy of p with msg appended to its error list. Used by
// handlers that continue processing after a recoverable sub-step failure.
func (p ProcessedContent) WithError(msg string) ProcessedContent {
	p.errors = append(append([]string{}, p.errors...), msg)
	return p
}

// withFormatName returns a copy of p tagged with name. Used by handlers that
// delegate rendering to the HTML handler but want ProcessedContent.FormatName
// to reflect their own original format rather than "html".
func (p ProcessedContent) withFormatName(name string) ProcessedContent {
	p.formatName = name
	return p
}
