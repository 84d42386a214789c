package query

import "github.com/apteryx-rest/gateway/internal/tree"

// ApplyFields prunes t below idx to the nodes selected by fields, leaving
// idx itself untouched. A nil fields value is a no-op (no fields
// parameter was supplied).
func ApplyFields(t *tree.Tree, idx int, fields *FieldsNode) {
	if fields == nil {
		return
	}
	for _, c := range t.Children(idx) {
		sub, ok := fields.Includes(t.Name(c))
		if !ok {
			t.Unlink(c)
			continue
		}
		if sub != nil {
			ApplyFields(t, c, sub)
		}
	}
}

// TruncateDepth removes every node more than depth-1 edges below idx
// (depth is 1-based from the response root: depth==1 keeps idx itself
// with no children). depth <= 0 means unlimited, a no-op.
func TruncateDepth(t *tree.Tree, idx int, depth int) {
	if depth <= 0 {
		return
	}
	truncate(t, idx, depth)
}

func truncate(t *tree.Tree, idx int, remaining int) {
	if remaining <= 1 {
		for _, c := range t.Children(idx) {
			t.Unlink(c)
		}
		return
	}
	for _, c := range t.Children(idx) {
		truncate(t, c, remaining-1)
	}
}
