package sanitizer

import (
	"net/url"

	"golang.org/x/net/html"
)

type SanitizedHTMLDoc struct {
	contentNode    *html.Node
	discoveredUrls []url.URL
}

func (s *SanitizedHTMLDoc) GetDiscoveredURLs() []url.URL {
	return s.discoveredUrls
}

// GetContentNode returns the sanitized content root consumed by downstream
// Markdown conversion.
func (s *SanitizedHTMLDoc) GetContentNode() *html.Node {
	return s.contentNode
}
