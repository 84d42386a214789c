package codec

import (
	"github.com/clbanning/mxj/v2"
)

// EncodeXML renders the same JSON-shaped value Encode would produce as an
// XML document, for clients that send an XML Accept header. It delegates
// the map/slice-to-XML mechanics to mxj rather than hand-rolling an
// encoder, wrapping the payload in a single root element named after the
// top-level schema node.
func EncodeXML(root string, value interface{}) ([]byte, error) {
	m := wrapForXML(value)
	mv := mxj.Map(map[string]interface{}{root: m})
	return mv.Xml()
}

// wrapForXML copies a JSON-shaped value's maps and slices recursively,
// leaving scalars as they are. Slices are passed through unchanged in
// shape; mxj renders a slice held under a map key as repeated elements
// of that key's name.
func wrapForXML(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, child := range v {
			out[k] = wrapForXML(child)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, child := range v {
			out[i] = wrapForXML(child)
		}
		return out
	default:
		return v
	}
}

// DecodeXML parses an XML document of the same shape EncodeXML produces
// back into a JSON-shaped Go value suitable for Decode.
func DecodeXML(data []byte) (interface{}, error) {
	mv, err := mxj.NewMapXml(data)
	if err != nil {
		return nil, err
	}
	for _, v := range mv {
		return v, nil
	}
	return map[string]interface{}{}, nil
}
