// Package xurl parses X.com / Twitter status URLs.
package xurl

import (
	"fmt"
	"regexp"
)

var (
	statusRe = regexp.MustCompile(`(?:twitter|x)\.com/(\w+)/status/(\d+)`)
	webRe    = regexp.MustCompile(`(?:twitter|x)\.com/i/web/status/(\d+)`)
	handleRe = regexp.MustCompile(`(?:twitter|x)\.com/([^/]+)/status`)
)

// Ref is a parsed post reference. Two Refs with the same ID denote the same
// underlying post.
type Ref struct {
	URL    string
	ID     string
	Handle string
}

// Parse extracts the numeric post ID (and handle, when the URL carries one)
// from an X.com or Twitter status URL.
func Parse(url string) (Ref, error) {
	if m := statusRe.FindStringSubmatch(url); m != nil {
		return Ref{URL: url, ID: m[2], Handle: m[1]}, nil
	}
	if m := webRe.FindStringSubmatch(url); m != nil {
		return Ref{URL: url, ID: m[1]}, nil
	}
	return Ref{}, fmt.Errorf("not a valid X.com/Twitter status URL: %q", url)
}

// Handle extracts the handle segment from a status URL, or "" when the URL
// has no handle (e.g. /i/web/status/ links).
func Handle(url string) string {
	if m := handleRe.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return ""
}
