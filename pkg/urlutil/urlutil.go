package urlutil

import "net/url"

// Canonicalize applies the URLInfo normalization pipeline to a
// net/url.URL and returns the canonical form as a net/url.URL, for
// callers that work directly against the standard library type
// (asset resolution, link rewriting) rather than the richer URLInfo.
//
// Properties: pure, deterministic, idempotent.
func Canonicalize(sourceUrl url.URL) url.URL {
	info := Parse(sourceUrl.String(), nil)
	if !info.valid {
		// Fall back to the input with only its fragment dropped, so
		// callers that feed already-resolved absolute URLs never get a
		// blank URL back for input Parse rejects (e.g. a private or
		// loopback IP literal).
		canonical := sourceUrl
		canonical.Fragment = ""
		canonical.RawFragment = ""
		return canonical
	}
	out, _ := url.Parse(info.normalized)
	if out == nil {
		return sourceUrl
	}
	return *out
}

// Resolve resolves u (which may be relative) against a base
// scheme+host, returning an absolute URL. If u is already absolute it
// is returned unchanged.
func Resolve(u url.URL, scheme string, host string) url.URL {
	if u.IsAbs() {
		return u
	}
	base := url.URL{Scheme: scheme, Host: host, Path: "/"}
	return *base.ResolveReference(&u)
}

// FilterByHost returns the subset of urls whose host equals host.
func FilterByHost(urls []url.URL, host string) []url.URL {
	var out []url.URL
	for _, u := range urls {
		if u.Host == host {
			out = append(out, u)
		}
	}
	return out
}
