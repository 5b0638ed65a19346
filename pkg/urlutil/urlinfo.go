// Package urlutil implements the parsing, normalization, validation and
// classification rules for URLs crawled by the engine. Every exported
// function here is pure: no network access, no shared state, no
// dependence on crawl history.
package urlutil

import (
	"net"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// Classification is the relationship of a URL to a base URL.
type Classification int

const (
	ClassificationUnknown Classification = iota
	ClassificationInternal
	ClassificationExternal
)

func (c Classification) String() string {
	switch c {
	case ClassificationInternal:
		return "internal"
	case ClassificationExternal:
		return "external"
	default:
		return "unknown"
	}
}

var allowedSchemes = map[string]bool{"http": true, "https": true, "file": true}

var dangerousSchemes = map[string]bool{
	"javascript": true,
	"data":       true,
	"vbscript":   true,
	"blob":       true,
	"about":      true,
}

// URLInfo is an immutable record derived from a raw URL string plus an
// optional base URL. It is never mutated after construction.
type URLInfo struct {
	raw              string
	normalized       string
	scheme           string
	host             string
	port             string
	path             string
	query            []QueryPair
	fragment         string
	registeredDomain string
	subdomain        string
	classification   Classification
	valid            bool
	invalidReason    string
}

// QueryPair is one ordered key/value pair of a URL's query string.
// Order and duplicates are preserved; this is what lets two URLs whose
// query parameters are reordered still compare equal once sorted for
// the equality check, while the parsed form keeps original order for
// anyone who needs it verbatim.
type QueryPair struct {
	Key   string
	Value string
}

func (u URLInfo) Raw() string                    { return u.raw }
func (u URLInfo) Normalized() string              { return u.normalized }
func (u URLInfo) Scheme() string                  { return u.scheme }
func (u URLInfo) Host() string                    { return u.host }
func (u URLInfo) Port() string                    { return u.port }
func (u URLInfo) Path() string                    { return u.path }
func (u URLInfo) Query() []QueryPair              { return u.query }
func (u URLInfo) Fragment() string                { return u.fragment }
func (u URLInfo) RegisteredDomain() string         { return u.registeredDomain }
func (u URLInfo) Subdomain() string                { return u.subdomain }
func (u URLInfo) Classification() Classification  { return u.classification }
func (u URLInfo) IsValid() bool                   { return u.valid }
func (u URLInfo) InvalidReason() string           { return u.invalidReason }

func (u URLInfo) String() string { return u.normalized }

// Equal compares two URLInfo values by normalized form, per the
// identity/equality invariant: two URLs differing only in default
// port, trailing slash on root, percent-case of unreserved
// characters, host case, or query-parameter order compare equal.
func (u URLInfo) Equal(other URLInfo) bool {
	key := func(v URLInfo) string {
		if v.path == "/" && len(v.query) == 0 {
			v.path = ""
		}
		v.query = append([]QueryPair(nil), v.query...)
		sort.Slice(v.query, func(i, j int) bool {
			if v.query[i].Key != v.query[j].Key {
				return v.query[i].Key < v.query[j].Key
			}
			return v.query[i].Value < v.query[j].Value
		})
		return assemble(v)
	}
	return key(u) == key(other)
}

func invalid(raw, reason string) URLInfo {
	return URLInfo{raw: raw, valid: false, invalidReason: reason}
}

// Parse builds a URLInfo from a raw string and an optional base. It
// never fails: invalid input yields valid=false with a reason instead
// of an error return, so callers can always inspect what was wrong.
func Parse(raw string, base *URLInfo) URLInfo {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return invalid(raw, "empty")
	}
	if containsControlChar(trimmed) {
		return invalid(raw, "control character in URL")
	}
	if hasSecurityRejection(strings.ToLower(trimmed)) {
		return invalid(raw, "disallowed content in URL")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return invalid(raw, "unparseable: "+err.Error())
	}

	if parsed.Scheme == "" {
		if base == nil || !base.valid {
			return invalid(raw, "missing scheme and no base to resolve against")
		}
		baseURL, err := url.Parse(base.normalized)
		if err != nil {
			return invalid(raw, "invalid base URL")
		}
		parsed = baseURL.ResolveReference(parsed)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if dangerousSchemes[scheme] {
		return invalid(raw, "disallowed scheme: "+scheme)
	}
	if scheme == "file" && base != nil && base.valid && (base.scheme == "http" || base.scheme == "https") {
		return invalid(raw, "file scheme not allowed relative to http(s) base")
	}
	if !allowedSchemes[scheme] {
		return invalid(raw, "disallowed scheme: "+scheme)
	}

	if parsed.User != nil {
		return invalid(raw, "credentials in authority are not allowed")
	}

	host, err := normalizeHost(parsed.Hostname())
	if err != nil {
		return invalid(raw, err.Error())
	}
	if scheme != "file" && host == "" {
		return invalid(raw, "missing host")
	}
	if isPrivateOrLoopback(host) {
		return invalid(raw, "private/loopback host literal not permitted")
	}

	port := parsed.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}

	path, err := normalizePath(parsed.EscapedPath(), parsed.RawQuery != "")
	if err != nil {
		return invalid(raw, err.Error())
	}

	query, err := normalizeQuery(parsed.RawQuery)
	if err != nil {
		return invalid(raw, err.Error())
	}

	info := URLInfo{
		raw:      raw,
		scheme:   scheme,
		host:     host,
		port:     port,
		path:     path,
		query:    query,
		fragment: "",
		valid:    true,
	}
	info.registeredDomain, info.subdomain = splitRegisteredDomain(host)
	info.normalized = assemble(info)

	if base != nil && base.valid {
		info.classification = classify(info, *base)
	} else {
		info.classification = ClassificationUnknown
	}

	return info
}

func assemble(u URLInfo) string {
	var b strings.Builder
	b.WriteString(u.scheme)
	b.WriteString("://")
	b.WriteString(u.host)
	if u.port != "" {
		b.WriteByte(':')
		b.WriteString(u.port)
	}
	b.WriteString(u.path)
	if len(u.query) > 0 {
		b.WriteByte('?')
		b.WriteString(encodeQuery(u.query))
	}
	return b.String()
}

func classify(candidate, base URLInfo) Classification {
	if candidate.registeredDomain == "" || base.registeredDomain == "" {
		return ClassificationUnknown
	}
	if candidate.registeredDomain == base.registeredDomain {
		return ClassificationInternal
	}
	return ClassificationExternal
}

func containsControlChar(s string) bool {
	for _, r := range s {
		if (r >= 0x00 && r <= 0x1F) || r == 0x7F {
			return true
		}
	}
	return false
}

func hasSecurityRejection(lower string) bool {
	needles := []string{"<script", "javascript:", "vbscript:", "data:text/html"}
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	// on*= event handler prefixes, e.g. onerror=, onload=
	idx := 0
	for {
		i := strings.Index(lower[idx:], "on")
		if i < 0 {
			break
		}
		pos := idx + i
		rest := lower[pos:]
		if looksLikeEventHandler(rest) {
			return true
		}
		idx = pos + 2
		if idx >= len(lower) {
			break
		}
	}
	return false
}

func looksLikeEventHandler(s string) bool {
	// matches on<word>= e.g. onerror=, onclick=
	i := 2
	start := i
	for i < len(s) && isAlphaNum(s[i]) {
		i++
	}
	if i == start {
		return false
	}
	return i < len(s) && s[i] == '='
}

func isAlphaNum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

func normalizeHost(host string) (string, error) {
	if host == "" {
		return "", nil
	}
	lower := strings.ToLower(host)
	if net.ParseIP(lower) != nil {
		return lower, nil
	}
	ascii, err := idna.Lookup.ToASCII(lower)
	if err != nil {
		return "", ErrInvalidHost
	}
	for _, label := range strings.Split(ascii, ".") {
		if len(label) == 0 || len(label) > 63 {
			return "", ErrInvalidHost
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return "", ErrInvalidHost
		}
	}
	if len(ascii) > 253 {
		return "", ErrInvalidHost
	}
	return ascii, nil
}

func isPrivateOrLoopback(host string) bool {
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	if ip.IsLoopback() {
		return true
	}
	privateBlocks := []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "127.0.0.0/8", "fc00::/7"}
	for _, cidr := range privateBlocks {
		_, block, err := net.ParseCIDR(cidr)
		if err == nil && block.Contains(ip) {
			return true
		}
	}
	return ip.IsLoopback()
}

func splitRegisteredDomain(host string) (registered string, subdomain string) {
	if net.ParseIP(host) != nil || host == "" {
		return "", ""
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", ""
	}
	registered = etld1
	if host != etld1 {
		subdomain = strings.TrimSuffix(host, "."+etld1)
	}
	return registered, subdomain
}
