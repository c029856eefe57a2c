package pagination

import (
	"strings"
)

// RelNext is the link relation of the following page.
const RelNext = "next"

// ParseLinkHeader parses an RFC 5988 Link header of the form
//
//	<https://org/api/v1/users?after=x>; rel="next", <...>; rel="self"
//
// into a map from relation to URL. Segments that are not well formed are
// skipped, so a missing or malformed header yields an empty map. Multiple
// Link header values may be passed and are read in order; the first URL
// seen for a relation wins.
func ParseLinkHeader(values ...string) map[string]string {
	links := make(map[string]string)

	for _, value := range values {
		for _, segment := range strings.Split(value, ",") {
			target, rels, ok := parseLinkSegment(segment)
			if !ok {
				continue
			}
			for _, rel := range rels {
				if _, seen := links[rel]; !seen {
					links[rel] = target
				}
			}
		}
	}

	return links
}

// NextURL returns the rel="next" target of the given Link header values.
func NextURL(values ...string) (string, bool) {
	next, ok := ParseLinkHeader(values...)[RelNext]
	return next, ok
}

func parseLinkSegment(segment string) (string, []string, bool) {
	parts := strings.Split(segment, ";")
	if len(parts) < 2 {
		return "", nil, false
	}

	target := strings.TrimSpace(parts[0])
	if len(target) < 2 || target[0] != '<' || target[len(target)-1] != '>' {
		return "", nil, false
	}
	target = strings.TrimSpace(target[1 : len(target)-1])
	if target == "" {
		return "", nil, false
	}

	var rels []string
	for _, param := range parts[1:] {
		key, value, found := strings.Cut(strings.TrimSpace(param), "=")
		if !found || !strings.EqualFold(strings.TrimSpace(key), "rel") {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		// rel may carry several space-separated relation types.
		for _, rel := range strings.Fields(value) {
			rels = append(rels, strings.ToLower(rel))
		}
	}
	if len(rels) == 0 {
		return "", nil, false
	}

	return target, rels, true
}
