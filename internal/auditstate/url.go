package auditstate

import (
	"net/url"
	"strings"
)

// canonicalizeURL lower-cases the scheme and host and strips a trailing
// slash from a bare-path URL, so "HTTP://Example.com/" and
// "http://example.com" de-duplicate to the same investigated_urls entry.
func canonicalizeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return trimmed
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "/" {
		u.Path = ""
	}
	return u.String()
}
