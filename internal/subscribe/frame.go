package subscribe

import "github.com/apteryx-rest/gateway/internal/restreq"

// FrameEvent wraps one JSON-encoded event body in the wire framing its
// accept type calls for: "data: <json>\r\n\r\n" for event-stream, plain
// "<json>\r\n" for stream+json.
func FrameEvent(accept restreq.MediaType, body []byte) []byte {
	switch accept {
	case restreq.MediaEventStream:
		out := make([]byte, 0, len(body)+8)
		out = append(out, "data: "...)
		out = append(out, body...)
		out = append(out, '\r', '\n', '\r', '\n')
		return out
	default:
		out := make([]byte, 0, len(body)+2)
		out = append(out, body...)
		out = append(out, '\r', '\n')
		return out
	}
}
