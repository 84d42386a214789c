package query

import (
	"fmt"
	"net/url"
	"strconv"
)

// Content selects the content=... subset of a GET response.
type Content int

const (
	ContentAll Content = iota
	ContentConfig
	ContentNonConfig
)

// WithDefaults selects the with-defaults=... default-handling mode.
type WithDefaults int

const (
	WithDefaultsUnset WithDefaults = iota
	WithDefaultsReportAll
	WithDefaultsTrim
	WithDefaultsExplicit
	WithDefaultsReportAllTagged
)

// Params holds the parsed RESTCONF-compatible query-string parameters.
type Params struct {
	Depth        int // 0 means unspecified/unlimited
	Fields       *FieldsNode
	Content      Content
	WithDefaults WithDefaults
	Filter       string
}

// ParseParams parses a raw URL query string (without the leading "?").
// Any parameter name other than depth/fields/content/with-defaults/filter
// is an error, matching the "unknown parameters fail" rule.
func ParseParams(raw string) (Params, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return Params{}, fmt.Errorf("invalid query string: %w", err)
	}

	var p Params
	for name, vals := range values {
		if len(vals) == 0 {
			continue
		}
		v := vals[0]
		switch name {
		case "depth":
			if v == "unbounded" {
				p.Depth = 0
				continue
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return Params{}, fmt.Errorf("invalid depth %q", v)
			}
			p.Depth = n
		case "fields":
			fields, err := ParseFields(v)
			if err != nil {
				return Params{}, fmt.Errorf("invalid fields expression: %w", err)
			}
			p.Fields = fields
		case "content":
			switch v {
			case "all":
				p.Content = ContentAll
			case "config":
				p.Content = ContentConfig
			case "nonconfig":
				p.Content = ContentNonConfig
			default:
				return Params{}, fmt.Errorf("invalid content %q", v)
			}
		case "with-defaults":
			switch v {
			case "report-all":
				p.WithDefaults = WithDefaultsReportAll
			case "trim":
				p.WithDefaults = WithDefaultsTrim
			case "explicit":
				p.WithDefaults = WithDefaultsExplicit
			case "report-all-tagged":
				p.WithDefaults = WithDefaultsReportAllTagged
			default:
				return Params{}, fmt.Errorf("invalid with-defaults %q", v)
			}
		case "filter":
			p.Filter = v
		default:
			return Params{}, fmt.Errorf("unknown query parameter %q", name)
		}
	}
	return p, nil
}
