package restreq

import (
	"fmt"
	"strings"

	"github.com/freeconf/restconf"
)

// MediaType is the negotiated wire format for a request's content or a
// response's accept type.
type MediaType int

const (
	MediaUnknown MediaType = iota
	MediaJSON
	MediaYangDataJSON
	MediaXML
	MediaYangDataXML
	MediaEventStream
	MediaStreamJSON
	MediaHTML
)

// IsRESTConf reports whether m is one of the RFC 8040-framed media types.
func (m MediaType) IsRESTConf() bool {
	return m == MediaYangDataJSON || m == MediaYangDataXML
}

// IsXML reports whether m renders/parses as XML rather than JSON.
func (m MediaType) IsXML() bool { return m == MediaXML || m == MediaYangDataXML }

// IsStreaming reports whether m hands the request to the subscription
// engine instead of producing a single response body.
func (m MediaType) IsStreaming() bool { return m == MediaEventStream || m == MediaStreamJSON }

// ParseMediaType resolves a Content-Type or Accept header value (ignoring
// any ";charset=..." parameter) to a MediaType, per the negotiation table:
// unknown values are rejected with ErrUnsupportedMediaType. An empty
// header, or "*/*", resolves to the server default: application/json.
func ParseMediaType(header string) (MediaType, error) {
	header = strings.TrimSpace(header)
	if i := strings.IndexByte(header, ';'); i >= 0 {
		header = header[:i]
	}
	header = strings.TrimSpace(header)
	switch header {
	case "", "*/*":
		return MediaJSON, nil
	case string(restconf.PlainJsonMimeType):
		return MediaJSON, nil
	case string(restconf.YangDataJsonMimeType1):
		return MediaYangDataJSON, nil
	case "application/xml":
		return MediaXML, nil
	case "application/yang-data+xml":
		return MediaYangDataXML, nil
	case string(restconf.TextStreamMimeType):
		return MediaEventStream, nil
	case "application/stream+json":
		return MediaStreamJSON, nil
	case "text/html":
		return MediaHTML, nil
	default:
		return MediaUnknown, fmt.Errorf("unsupported media type %q", header)
	}
}

// ContentType renders m back to a wire Content-Type header value, reusing
// freeconf/restconf's own MIME-type constants for the two JSON variants it
// defines; XML and the NDJSON stream type have no equivalent there, so
// those stay as literals.
func (m MediaType) ContentType() string {
	switch m {
	case MediaYangDataJSON:
		return string(restconf.YangDataJsonMimeType1)
	case MediaXML:
		return "application/xml"
	case MediaYangDataXML:
		return "application/yang-data+xml"
	case MediaEventStream:
		return string(restconf.TextStreamMimeType)
	case MediaStreamJSON:
		return "application/stream+json"
	case MediaHTML:
		return "text/html"
	default:
		return string(restconf.PlainJsonMimeType)
	}
}
