package codec

import (
	"github.com/apteryx-rest/gateway/internal/schema"
	"github.com/apteryx-rest/gateway/internal/tree"
)

// AddDefaults inserts a leaf for every readable child of schemaIdx that
// declares a default and is missing from treeIdx, recursing into
// containers and existing list instances. A missing container, list or
// leaf-list child is added as an empty node before recursing; no list
// instance or leaf-list entry is ever added, since a default only applies
// to a specific leaf.
func AddDefaults(f *schema.Facade, schemaIdx int, t *tree.Tree, treeIdx int) {
	switch f.Kind(schemaIdx) {
	case schema.Leaf:
		return
	case schema.LeafList:
		return
	case schema.List:
		wildcard := f.WildcardChild(schemaIdx)
		for _, inst := range t.Children(treeIdx) {
			AddDefaults(f, wildcard, t, inst)
		}
		return
	}

	for _, childSchema := range f.Children(schemaIdx) {
		name := f.Name(childSchema)
		if name == "*" || f.IsHidden(childSchema) || !f.IsReadable(childSchema) {
			continue
		}
		existing := t.Child(treeIdx, name)
		if f.Kind(childSchema) == schema.Leaf {
			if existing == -1 {
				if def, ok := f.Default(childSchema); ok {
					t.NewLeaf(treeIdx, name, def)
				}
			}
			continue
		}
		if existing == -1 {
			existing = t.NewChild(treeIdx, name)
		}
		AddDefaults(f, childSchema, t, existing)
	}
}

// TrimDefaults removes leaves whose stored value equals the schema
// default, the inverse of AddDefaults, used when rendering a response
// with with-defaults=trim.
func TrimDefaults(f *schema.Facade, schemaIdx int, t *tree.Tree, treeIdx int) {
	switch f.Kind(schemaIdx) {
	case schema.Leaf, schema.LeafList:
		return
	case schema.List:
		wildcard := f.WildcardChild(schemaIdx)
		for _, inst := range t.Children(treeIdx) {
			TrimDefaults(f, wildcard, t, inst)
		}
		return
	}

	for _, childTreeIdx := range t.Children(treeIdx) {
		name := t.Name(childTreeIdx)
		childSchema := f.Child(schemaIdx, name)
		if childSchema == -1 {
			continue
		}
		if f.Kind(childSchema) == schema.Leaf {
			if def, ok := f.Default(childSchema); ok && t.Value(childTreeIdx) == def {
				t.Unlink(childTreeIdx)
			}
			continue
		}
		TrimDefaults(f, childSchema, t, childTreeIdx)
	}
}
