// Package urlutil provides helpers for resolving and filtering links found in pages.
package urlutil

import (
	"net/url"
	"strings"
)

// IsNavigable reports whether href points to another document. Fragments,
// javascript: pseudo-links and empty values are not navigable.
func IsNavigable(href string) bool {
	h := strings.TrimSpace(href)
	if h == "" || strings.HasPrefix(h, "#") {
		return false
	}
	lower := strings.ToLower(h)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	return true
}

// Resolve returns href as an absolute http(s) URL, resolved against base when relative.
func Resolve(base, href string) (string, bool) {
	if !IsNavigable(href) {
		return "", false
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	if !ref.IsAbs() {
		b, err := url.Parse(base)
		if err != nil || !b.IsAbs() {
			return "", false
		}
		ref = b.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return "", false
	}
	ref.Fragment = ""
	return ref.String(), true
}

// WithQuery returns base with the given query parameter set to value.
func WithQuery(base, key, value string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?" + url.QueryEscape(key) + "=" + url.QueryEscape(value)
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

// JoinPath appends segments to base, keeping a trailing slash when the last
// segment ends with one.
func JoinPath(base string, segments ...string) string {
	out := strings.TrimRight(base, "/")
	for _, s := range segments {
		if s == "" {
			continue
		}
		out += "/" + strings.TrimLeft(s, "/")
	}
	return out
}

// StripSize removes the Twitter avatar size suffix so the URL points to the original image.
func StripSize(imageURL string) string {
	return strings.Replace(imageURL, "_normal", "", 1)
}
