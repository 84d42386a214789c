// Package query parses request URIs and RESTCONF query parameters into a
// flag-set and a skeletal tree, without itself touching the schema or the
// store.
package query

import "strings"

// Path is a parsed, percent-decoded request path: a chain of segments plus
// whether it ended in "/" (a search request) or a reserved extension.
type Path struct {
	Segments  []string
	Search    bool
	Extension string // "", ".xml", or ".html"
}

// ParsePath splits a document-root-relative path into segments, expanding
// RESTCONF "=value" list-instance notation ("list=fred" becomes the two
// segments "list", "fred") and detecting the trailing-slash search marker
// and the reserved ".xml"/".html" extensions.
func ParsePath(raw string) Path {
	raw = strings.TrimSpace(raw)
	search := strings.HasSuffix(raw, "/")
	trimmed := strings.Trim(raw, "/")

	var ext string
	if strings.HasSuffix(trimmed, ".xml") {
		ext = ".xml"
		trimmed = strings.TrimSuffix(trimmed, ".xml")
	} else if strings.HasSuffix(trimmed, ".html") {
		ext = ".html"
		trimmed = strings.TrimSuffix(trimmed, ".html")
	}

	if trimmed == "" {
		return Path{Search: search, Extension: ext}
	}

	var segs []string
	for _, raw := range strings.Split(trimmed, "/") {
		if raw == "" {
			continue
		}
		if i := strings.IndexByte(raw, '='); i >= 0 {
			name := raw[:i]
			keys := strings.Split(raw[i+1:], ",")
			segs = append(segs, name, strings.Join(keys, ","))
			continue
		}
		segs = append(segs, raw)
	}
	return Path{Segments: segs, Search: search, Extension: ext}
}

// Join re-renders segments with "/" separators, the inverse of the plain
// (non-bracket) form of ParsePath.
func Join(segs []string) string {
	return strings.Join(segs, "/")
}
