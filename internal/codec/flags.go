// Package codec implements the bidirectional, schema-driven JSON<->tree
// translation: array-vs-object for lists, typed scalars, namespace
// prefixing, pattern validation, and default insertion/trimming.
package codec

// Flags selects the request-specific rendering/parsing behaviour.
type Flags struct {
	Root         bool // include the single top-level key instead of chopping it
	Multi        bool // wrap the result in a top-level JSON array
	Arrays       bool // render lists as JSON arrays instead of keyed objects
	Types        bool // render leaves as typed JSON values when they parse as such
	Namespace    bool // add "model:" prefixes to non-native top-level keys
	AddDefaults  bool // inject schema default leaves missing from the tree
	TrimDefaults bool // remove leaves whose value equals the schema default
	RESTConf     bool // RFC 8040 framing (affects RPC input/output wrapping elsewhere)
}
