package github

import (
	"regexp"
	"strings"
)

// Pagination follows RFC5988-style Link headers:
//
//	<https://api.github.com/...?page=2>; rel="next", <...?page=7>; rel="last"

var linkPattern = regexp.MustCompile(`<([^>]+)>\s*;\s*rel="([^"]+)"`)

// parseLinkHeader extracts links and their relations from a Link header
// value, returning a relation-to-URL mapping.
func parseLinkHeader(header string) map[string]string {
	rels := make(map[string]string)
	for _, link := range strings.Split(header, ",") {
		m := linkPattern.FindStringSubmatch(strings.TrimSpace(link))
		if m == nil {
			continue
		}
		rels[m[2]] = m[1]
	}
	return rels
}

// nextLink returns the URL pagination should continue with: the "next"
// relation if present, otherwise "last" as the terminal page, otherwise
// the empty string.
func nextLink(header string) string {
	if header == "" {
		return ""
	}
	links := parseLinkHeader(header)
	if url, ok := links["next"]; ok {
		return url
	}
	return links["last"]
}
