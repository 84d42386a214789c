package codec

import (
	"strconv"

	"github.com/apteryx-rest/gateway/internal/schema"
	"github.com/apteryx-rest/gateway/internal/tree"
)

// Encode converts the tree rooted at treeIdx into a JSON-ready Go value
// (map[string]interface{}, []interface{}, or a scalar), validated against
// the schema subtree rooted at schemaIdx.
func Encode(f *schema.Facade, schemaIdx int, t *tree.Tree, treeIdx int, flags Flags) interface{} {
	switch f.Kind(schemaIdx) {
	case schema.Leaf, schema.Rpc:
		return encodeLeaf(f, schemaIdx, t, treeIdx, flags)
	case schema.LeafList:
		return encodeLeafList(t, treeIdx)
	case schema.List:
		return encodeList(f, schemaIdx, t, treeIdx, flags)
	default:
		return encodeContainer(f, schemaIdx, t, treeIdx, flags)
	}
}

func encodeLeaf(f *schema.Facade, schemaIdx int, t *tree.Tree, treeIdx int, flags Flags) interface{} {
	raw := t.Value(treeIdx)
	value := f.TranslateTo(schemaIdx, raw)
	if !flags.Types {
		return value
	}
	if value == "true" {
		return true
	}
	if value == "false" {
		return false
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	return value
}

func encodeLeafList(t *tree.Tree, treeIdx int) []interface{} {
	out := []interface{}{}
	for _, c := range t.Children(treeIdx) {
		out = append(out, t.Name(c))
	}
	return out
}

func encodeList(f *schema.Facade, schemaIdx int, t *tree.Tree, treeIdx int, flags Flags) interface{} {
	wildcard := f.WildcardChild(schemaIdx)
	instances := t.Children(treeIdx)
	if flags.Arrays {
		out := []interface{}{}
		for _, inst := range instances {
			if !f.IsReadable(wildcard) {
				continue
			}
			out = append(out, encodeContainer(f, wildcard, t, inst, flags))
		}
		return out
	}
	out := map[string]interface{}{}
	for _, inst := range instances {
		out[t.Name(inst)] = encodeContainer(f, wildcard, t, inst, flags)
	}
	return out
}

func encodeContainer(f *schema.Facade, schemaIdx int, t *tree.Tree, treeIdx int, flags Flags) map[string]interface{} {
	out := map[string]interface{}{}
	for _, childTreeIdx := range t.Children(treeIdx) {
		name := t.Name(childTreeIdx)
		childSchema := f.Child(schemaIdx, name)
		if childSchema < 0 {
			continue
		}
		if f.IsHidden(childSchema) || !f.IsReadable(childSchema) {
			continue
		}
		key := name
		if flags.Namespace {
			if m := f.Model(childSchema); m != nil {
				parentModel := f.Model(schemaIdx)
				if parentModel == nil || parentModel.Name != m.Name {
					key = m.Prefix + ":" + name
				}
			}
		}
		out[key] = Encode(f, childSchema, t, childTreeIdx, flags)
	}
	return out
}
