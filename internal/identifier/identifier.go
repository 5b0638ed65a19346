package identifier

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

/*
Responsibilities
- Map a bare package name to a documentation seed URL when the crawl
  target doesn't already look like a URL

This is deliberately a narrow probe, not a package-registry client: it
tries a short list of common documentation hosting conventions and
returns the first one that answers 200. A real project registry lookup
(PyPI, npm, crates.io, ...) is an external collaborator a caller can wire
in as its own Identifier; this package only provides the pattern-probing
fallback every target needs when no registry is configured.
*/

// Identifier maps a package name to a documentation seed URL.
type Identifier interface {
	DiscoverDocURL(ctx context.Context, packageName string) (url.URL, bool)
}

// docPatterns mirrors the common documentation-hosting conventions tried
// before giving up: ReadTheDocs (latest then stable), a docs subdomain,
// and the project's own site under /docs/.
var docPatterns = []string{
	"https://%s.readthedocs.io/en/latest/",
	"https://%s.readthedocs.io/en/stable/",
	"https://docs.%s.org/",
	"https://%s.org/docs/",
	"https://www.%s.org/docs/",
}

// PatternProbingIdentifier tries docPatterns in order with an HTTP HEAD
// request, returning the first that responds 200.
type PatternProbingIdentifier struct {
	httpClient *http.Client
	patterns   []string
}

func NewPatternProbingIdentifier(httpClient *http.Client) *PatternProbingIdentifier {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &PatternProbingIdentifier{httpClient: httpClient, patterns: docPatterns}
}

func (p *PatternProbingIdentifier) DiscoverDocURL(ctx context.Context, packageName string) (url.URL, bool) {
	name := strings.ToLower(strings.TrimSpace(packageName))
	if name == "" {
		return url.URL{}, false
	}

	for _, pattern := range p.patterns {
		candidate := strings.Replace(pattern, "%s", name, 1)
		if p.probe(ctx, candidate) {
			parsed, err := url.Parse(candidate)
			if err == nil {
				return *parsed, true
			}
		}
	}
	return url.URL{}, false
}

func (p *PatternProbingIdentifier) probe(ctx context.Context, candidate string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, candidate, nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
