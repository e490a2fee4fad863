package core

import (
	"regexp"
	"strings"
)

var schemePattern = regexp.MustCompile(`(?i)^https?://`)

// ImageRules decides which image URLs are acceptable.
type ImageRules struct {
	// CDNHost is accepted without an explicit scheme, e.g. res.cloudinary.com
	CDNHost string

	// Placeholders are URL fragments of stock or dummy images
	Placeholders []string
}

// Normalize trims u and adds https:// to scheme-less CDN URLs.
func (r ImageRules) Normalize(u string) string {
	u = strings.TrimSpace(u)
	if u == "" || schemePattern.MatchString(u) || !r.onCDN(u) {
		return u
	}
	return "https://" + strings.TrimPrefix(u, "//")
}

// HasValidShape reports whether u has an http(s) scheme or points at the CDN.
func (r ImageRules) HasValidShape(u string) bool {
	return schemePattern.MatchString(u) || r.onCDN(u)
}

// Placeholder returns the placeholder pattern u matches, or "".
func (r ImageRules) Placeholder(u string) string {
	lower := strings.ToLower(u)
	for _, p := range r.Placeholders {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return p
		}
	}
	return ""
}

func (r ImageRules) onCDN(u string) bool {
	return r.CDNHost != "" && strings.Contains(strings.ToLower(u), strings.ToLower(r.CDNHost))
}
