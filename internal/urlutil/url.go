// Package urlutil provides URL canonicalization, scheme coercion, and
// origin/site-root extraction used by the duplicate filter, the crawl
// engine's enqueue discipline, and the scoring component.
package urlutil

import (
	"net/url"
	"strings"
)

// Coerce accepts a bare hostname (no scheme) and defaults it to http://;
// http/https URLs pass through unchanged (spec §6 "Input URL coercion").
func Coerce(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "http://" + raw
}

// Canonicalize normalizes a URL for the duplicate filter and for display:
// lowercases scheme and host, strips default ports, preserves path case
// (spec §3 "URL").
func Canonicalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	host := u.Hostname()
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = host
	}
	return u.String()
}

// Origin returns scheme://host[:port] for u, the site root used to resolve
// relative candidate URLs discovered by the Site Parser.
func Origin(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// ResolveReference resolves a possibly-relative href against a base URL's
// origin/path, returning nil if either fails to parse.
func ResolveReference(base *url.URL, href string) *url.URL {
	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}
	if base == nil {
		return ref
	}
	return base.ResolveReference(ref)
}

// Domain returns the hostname of u, or "" if u is nil.
func Domain(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Hostname()
}

// IsSubdomainOrSuffix reports whether candidate's host equals origin's host
// or ends with "." plus origin's host (e.g. "feeds.example.com" is a
// suffix-match for "example.com"), used by the feed scorer (spec §4.7).
func IsSubdomainOrSuffix(originHost, candidateHost string) bool {
	originHost = strings.ToLower(originHost)
	candidateHost = strings.ToLower(candidateHost)
	if originHost == "" || candidateHost == "" {
		return false
	}
	return candidateHost == originHost || strings.HasSuffix(candidateHost, "."+originHost)
}
