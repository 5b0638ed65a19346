package config

import (
	"fmt"
	"net/url"
	"regexp"
)

// CrawlTarget is the user-supplied crawl specification (spec.md §3):
// a seed (URL or package name) plus the admission rules the engine
// enforces on every discovered link.
type CrawlTarget struct {
	seed                string
	seedIsPackage       bool
	maxDepth            int
	maxPages            int
	followExternal      bool
	allowedContentTypes []string
	excludePatterns     []*regexp.Regexp
	requiredPatterns    []*regexp.Regexp
	allowedPaths        []string
	excludedPaths       []string
}

func NewCrawlTarget(seed string) *CrawlTarget {
	return &CrawlTarget{
		seed:                seed,
		maxDepth:            3,
		maxPages:            100,
		followExternal:      false,
		allowedContentTypes: []string{"text/html"},
	}
}

func (t *CrawlTarget) WithSeedIsPackage(isPackage bool) *CrawlTarget {
	t.seedIsPackage = isPackage
	return t
}

func (t *CrawlTarget) WithMaxDepth(depth int) *CrawlTarget {
	t.maxDepth = depth
	return t
}

func (t *CrawlTarget) WithMaxPages(pages int) *CrawlTarget {
	t.maxPages = pages
	return t
}

func (t *CrawlTarget) WithFollowExternal(follow bool) *CrawlTarget {
	t.followExternal = follow
	return t
}

func (t *CrawlTarget) WithAllowedContentTypes(types []string) *CrawlTarget {
	t.allowedContentTypes = types
	return t
}

func (t *CrawlTarget) WithExcludePatterns(patterns []string) (*CrawlTarget, error) {
	compiled, err := compilePatterns(patterns)
	if err != nil {
		return nil, err
	}
	t.excludePatterns = compiled
	return t, nil
}

func (t *CrawlTarget) WithRequiredPatterns(patterns []string) (*CrawlTarget, error) {
	compiled, err := compilePatterns(patterns)
	if err != nil {
		return nil, err
	}
	t.requiredPatterns = compiled
	return t, nil
}

func (t *CrawlTarget) WithAllowedPaths(paths []string) *CrawlTarget {
	t.allowedPaths = paths
	return t
}

func (t *CrawlTarget) WithExcludedPaths(paths []string) *CrawlTarget {
	t.excludedPaths = paths
	return t
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func (t *CrawlTarget) Build() (CrawlTarget, error) {
	if t.seed == "" {
		return CrawlTarget{}, fmt.Errorf("%w: seed cannot be empty", ErrInvalidConfig)
	}
	if t.maxDepth < 0 {
		return CrawlTarget{}, fmt.Errorf("%w: maxDepth cannot be negative", ErrInvalidConfig)
	}
	if t.maxPages < 0 {
		return CrawlTarget{}, fmt.Errorf("%w: maxPages cannot be negative", ErrInvalidConfig)
	}
	return *t, nil
}

func (t CrawlTarget) Seed() string                        { return t.seed }
func (t CrawlTarget) SeedIsPackage() bool                  { return t.seedIsPackage }
func (t CrawlTarget) MaxDepth() int                        { return t.maxDepth }
func (t CrawlTarget) MaxPages() int                        { return t.maxPages }
func (t CrawlTarget) FollowExternal() bool                 { return t.followExternal }
func (t CrawlTarget) AllowedContentTypes() []string        { return append([]string(nil), t.allowedContentTypes...) }
func (t CrawlTarget) ExcludePatterns() []*regexp.Regexp    { return t.excludePatterns }
func (t CrawlTarget) RequiredPatterns() []*regexp.Regexp   { return t.requiredPatterns }
func (t CrawlTarget) AllowedPaths() []string                { return append([]string(nil), t.allowedPaths...) }
func (t CrawlTarget) ExcludedPaths() []string               { return append([]string(nil), t.excludedPaths...) }

// LooksLikeURL reports whether seed should be treated as a URL rather
// than a package name to resolve via the project identifier, per
// spec.md §4.9 step 1 ("contains '://' or a known scheme after
// prefixing").
func (t CrawlTarget) LooksLikeURL() bool {
	return looksLikeURL(t.seed)
}

func looksLikeURL(seed string) bool {
	if seed == "" {
		return false
	}
	if containsScheme(seed) {
		return true
	}
	if u, err := url.Parse("http://" + seed); err == nil && u.Host != "" {
		return true
	}
	return false
}

func containsScheme(seed string) bool {
	for i := 0; i < len(seed); i++ {
		switch seed[i] {
		case ':':
			return i+2 < len(seed) && seed[i+1] == '/' && seed[i+2] == '/'
		case '/', '.', ' ':
			return false
		}
	}
	return false
}
