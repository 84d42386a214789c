// Package schema is the Schema Facade: lookup of nodes by path, mode/
// pattern/default/key/namespace queries, and enum-name<->value translation
// against a modular, YANG-like schema tree loaded once at startup.
//
// The schema graph is immutable after Build/BuildFromStrings returns and is addressed
// through arena indices rather than pointers, since a list instance's
// name *is* the value of its key leaf and a naive pointer graph would
// need the instance to point back at the list that defines it.
package schema

import "regexp"

// Kind is a tagged variant used in place of ad-hoc
// is-leaf/is-list/is-leaf-list/is-executable checks.
type Kind int

const (
	// Container is an interior node with named children.
	Container Kind = iota
	// Leaf is a scalar value node.
	Leaf
	// LeafList is a list whose instances are themselves scalars.
	LeafList
	// List is a list whose instances are named by a key leaf.
	List
	// Rpc is an executable node (mode flag 'x').
	Rpc
)

// Model describes one loaded schema module for namespace resolution and
// for the YANG Library publisher.
type Model struct {
	Prefix    string
	Name      string
	Namespace string
	Revision  string
}

// Node is one slot in the schema arena.
type Node struct {
	Name    string
	Mode    string // subset of "rwcxph"
	Pattern *regexp.Regexp
	Default string
	HasDefault bool
	Kind    Kind
	Key     string // key leaf name, set only on List
	Enum    map[string]string // enum name -> encoded value
	EnumRev map[string]string // encoded value -> enum name
	Model   *Model            // owning module; nil means "inherit from parent"

	parent     int
	firstChild int
	lastChild  int
	next       int
	prev       int
}

const noIndex = -1

// Facade is the immutable, built schema graph plus the namespace table.
// A Facade is safe for concurrent use by many request goroutines: nothing
// about it is mutated after Build returns.
type Facade struct {
	arena  []Node
	root   int
	models []Model
	byPrefix map[string]*Model
}

func newFacade() *Facade {
	return &Facade{byPrefix: map[string]*Model{}}
}

func (f *Facade) alloc(n Node) int {
	n.parent, n.firstChild, n.lastChild, n.next, n.prev = noIndex, noIndex, noIndex, noIndex, noIndex
	f.arena = append(f.arena, n)
	return len(f.arena) - 1
}

func (f *Facade) appendChild(parent, child int) {
	p := &f.arena[parent]
	c := &f.arena[child]
	c.parent = parent
	c.prev = p.lastChild
	if p.lastChild != noIndex {
		f.arena[p.lastChild].next = child
	} else {
		p.firstChild = child
	}
	p.lastChild = child
}

// Root returns the index of the schema root node.
func (f *Facade) Root() int { return f.root }

// Node exposes the raw node at idx for the rarer callers (codec, loader
// merge logic) that need more than the one-purpose accessors below.
func (f *Facade) Node(idx int) *Node {
	if idx == noIndex {
		return nil
	}
	return &f.arena[idx]
}

// Name returns the schema name of idx.
func (f *Facade) Name(idx int) string { return f.arena[idx].Name }

// Parent returns the index of idx's parent, or -1 for the root.
func (f *Facade) Parent(idx int) int { return f.arena[idx].parent }

// FirstChild returns the index of idx's first child, or -1.
func (f *Facade) FirstChild(idx int) int { return f.arena[idx].firstChild }

// NextSibling returns the index of idx's next sibling, or -1.
func (f *Facade) NextSibling(idx int) int { return f.arena[idx].next }

// Child looks up a direct schema child of idx by literal name, not
// counting the "*" wildcard (use WildcardChild for that). Hyphen and
// underscore are interchangeable.
func (f *Facade) Child(idx int, name string) int {
	norm := normalizeSegment(name)
	for c := f.arena[idx].firstChild; c != noIndex; c = f.arena[c].next {
		if f.arena[c].Name == "*" {
			continue
		}
		if normalizeSegment(f.arena[c].Name) == norm {
			return c
		}
	}
	return noIndex
}

// WildcardChild returns idx's "*" child (the list/leaf-list instance
// template), or -1 if idx has none.
func (f *Facade) WildcardChild(idx int) int {
	for c := f.arena[idx].firstChild; c != noIndex; c = f.arena[c].next {
		if f.arena[c].Name == "*" {
			return c
		}
	}
	return noIndex
}

// Children returns the indices of all direct schema children of idx,
// in declaration order, including "*" if present.
func (f *Facade) Children(idx int) []int {
	var out []int
	for c := f.arena[idx].firstChild; c != noIndex; c = f.arena[c].next {
		out = append(out, c)
	}
	return out
}

func normalizeSegment(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			c = '-'
		}
		out[i] = c
	}
	return string(out)
}

// Kind returns idx's tagged variant.
func (f *Facade) Kind(idx int) Kind { return f.arena[idx].Kind }

// IsLeaf reports whether idx is a scalar value node (Leaf), matching
// no node-type children implies leaf.
func (f *Facade) IsLeaf(idx int) bool { return f.arena[idx].Kind == Leaf }

// IsList reports whether idx is a keyed list.
func (f *Facade) IsList(idx int) bool { return f.arena[idx].Kind == List }

// IsLeafList reports whether idx is a leaf-list.
func (f *Facade) IsLeafList(idx int) bool { return f.arena[idx].Kind == LeafList }

// IsExecutable reports whether idx is an RPC (mode flag 'x').
func (f *Facade) IsExecutable(idx int) bool { return f.arena[idx].Kind == Rpc }

// ListKey returns the key leaf name of a List node, or "" otherwise.
func (f *Facade) ListKey(idx int) string { return f.arena[idx].Key }

func (f *Facade) hasMode(idx int, flag byte) bool {
	mode := f.arena[idx].Mode
	for i := 0; i < len(mode); i++ {
		if mode[i] == flag {
			return true
		}
	}
	return false
}

// IsReadable reports mode flag 'r'. Absence of a mode string defaults to
// readable, matching a validate-path style walk (no
// mode attribute at all means read is allowed).
func (f *Facade) IsReadable(idx int) bool {
	if f.arena[idx].Mode == "" {
		return true
	}
	return f.hasMode(idx, 'r')
}

// IsWritable reports mode flag 'w'.
func (f *Facade) IsWritable(idx int) bool { return f.hasMode(idx, 'w') }

// IsConfig reports mode flag 'c'.
func (f *Facade) IsConfig(idx int) bool { return f.hasMode(idx, 'c') }

// IsHidden reports mode flag 'h'.
func (f *Facade) IsHidden(idx int) bool { return f.hasMode(idx, 'h') }

// IsProxy reports mode flag 'p'.
func (f *Facade) IsProxy(idx int) bool { return f.hasMode(idx, 'p') }

// Pattern returns idx's leaf validation pattern, or nil.
func (f *Facade) Pattern(idx int) *regexp.Regexp { return f.arena[idx].Pattern }

// Default returns idx's default value and whether one was declared.
func (f *Facade) Default(idx int) (string, bool) {
	n := &f.arena[idx]
	return n.Default, n.HasDefault
}

// Model returns the owning module of idx, walking up to the nearest
// ancestor that declares one.
func (f *Facade) Model(idx int) *Model {
	for c := idx; c != noIndex; c = f.arena[c].parent {
		if f.arena[c].Model != nil {
			return f.arena[c].Model
		}
	}
	return nil
}

// Namespace is an alias for Model, named to match the
// `namespace(node)` accessor.
func (f *Facade) Namespace(idx int) *Model { return f.Model(idx) }

// LoadedModels returns every module registered with the facade, used by
// the YANG Library publisher (internal/yanglibrary).
func (f *Facade) LoadedModels() []Model { return f.models }

// ModelByPrefix resolves a RESTCONF "model:" path prefix to its module.
func (f *Facade) ModelByPrefix(prefix string) (*Model, bool) {
	m, ok := f.byPrefix[prefix]
	return m, ok
}

// TranslateTo converts an encoded enum value to its declared name, or
// returns value unchanged if idx has no matching enum entry.
func (f *Facade) TranslateTo(idx int, value string) string {
	if rev := f.arena[idx].EnumRev; rev != nil {
		if name, ok := rev[value]; ok {
			return name
		}
	}
	return value
}

// TranslateFrom converts an enum name back to its encoded value, or
// returns name unchanged if idx has no matching enum entry.
func (f *Facade) TranslateFrom(idx int, name string) string {
	if enum := f.arena[idx].Enum; enum != nil {
		if value, ok := enum[name]; ok {
			return value
		}
	}
	return name
}
