package robots

/*
Responsibilities

- Fetch robots.txt per host
- Cache rules for crawl duration
- Enforce allow/disallow rules before enqueue

Robots checks occur before a URL enters the frontier.
*/

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/metadata"
	"github.com/rohmanhakim/docs-crawler/internal/robots/cache"
)

// Robot is the admission-time authority the scheduler consults before a
// URL may enter the frontier. It must be initialized with Init (or
// InitWithCache) before Decide is called.
type Robot interface {
	Init(userAgent string)
	Decide(target url.URL) (Decision, *RobotsError)
}

// CachedRobot is the default Robot implementation. It fetches robots.txt
// lazily, per host, and relies on RobotsFetcher's cache to avoid refetching
// for the lifetime of a crawl.
type CachedRobot struct {
	metadataSink metadata.MetadataSink
	fetcher      *RobotsFetcher
	userAgent    string
}

// NewCachedRobot builds a CachedRobot that reports through metadataSink.
// Init or InitWithCache must be called before Decide.
func NewCachedRobot(metadataSink metadata.MetadataSink) CachedRobot {
	return CachedRobot{metadataSink: metadataSink}
}

// Init prepares the robot with an in-memory cache.
func (r *CachedRobot) Init(userAgent string) {
	r.InitWithCache(userAgent, cache.NewMemoryCache())
}

// InitWithCache prepares the robot with a caller-supplied cache.
func (r *CachedRobot) InitWithCache(userAgent string, c cache.Cache) {
	r.userAgent = userAgent
	r.fetcher = NewRobotsFetcher(r.metadataSink, userAgent, c)
}

// Decide fetches (or reuses the cached) robots.txt for target's host and
// evaluates whether target may be crawled.
func (r *CachedRobot) Decide(target url.URL) (Decision, *RobotsError) {
	scheme := target.Scheme
	if scheme == "" {
		scheme = "https"
	}

	result, err := r.fetcher.Fetch(context.Background(), scheme, target.Host)
	if err != nil {
		r.metadataSink.RecordError(
			time.Now(),
			"robots",
			"Decide",
			mapRobotsErrorToMetadataCause(err),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, target.String()),
			},
		)
		return Decision{}, err
	}

	rs := MapResponseToRuleSet(result.Response, r.userAgent, result.FetchedAt)
	return decide(rs, target), nil
}

// decide evaluates a path against a ruleSet using longest-match precedence,
// preferring Allow over Disallow on a tie.
func decide(rs ruleSet, target url.URL) Decision {
	var crawlDelay time.Duration
	if d := rs.CrawlDelay(); d != nil {
		crawlDelay = *d
	}

	if !rs.hasGroups {
		return Decision{Url: target, Allowed: true, Reason: EmptyRuleSet, CrawlDelay: crawlDelay}
	}
	if !rs.matchedGroup {
		return Decision{Url: target, Allowed: true, Reason: UserAgentNotMatched, CrawlDelay: crawlDelay}
	}

	path := target.Path
	if path == "" {
		path = "/"
	}

	bestLen := -1
	bestAllowed := true
	matched := false

	for _, rule := range rs.DisallowRules() {
		if len(rule.prefix) > bestLen && matchPattern(rule.prefix, path) {
			bestLen = len(rule.prefix)
			bestAllowed = false
			matched = true
		}
	}
	for _, rule := range rs.AllowRules() {
		if len(rule.prefix) >= bestLen && matchPattern(rule.prefix, path) {
			bestLen = len(rule.prefix)
			bestAllowed = true
			matched = true
		}
	}

	if !matched {
		return Decision{Url: target, Allowed: true, Reason: NoMatchingRules, CrawlDelay: crawlDelay}
	}

	reason := AllowedByRobots
	if !bestAllowed {
		reason = DisallowedByRobots
	}
	return Decision{Url: target, Allowed: bestAllowed, Reason: reason, CrawlDelay: crawlDelay}
}

// matchPattern interprets pattern as a robots.txt path rule: "*" matches any
// run of characters, and a trailing "$" anchors the match to the end of
// path. Everything else matches as a literal prefix.
func matchPattern(pattern, path string) bool {
	re, err := compilePattern(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(path)
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("^")
	runes := []rune(pattern)
	for i, c := range runes {
		switch {
		case c == '*':
			sb.WriteString(".*")
		case c == '$' && i == len(runes)-1:
			sb.WriteString("$")
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return regexp.Compile(sb.String())
}
