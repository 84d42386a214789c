package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apteryx-rest/gateway/internal/schema"
	"github.com/apteryx-rest/gateway/internal/tree"
)

// Decode converts a parsed JSON value (as produced by encoding/json's
// decode-into-interface{}) into children of treeIdx, validated against
// the schema subtree rooted at schemaIdx.
func Decode(f *schema.Facade, schemaIdx int, t *tree.Tree, treeIdx int, raw interface{}) error {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return newError(WrongShape, t.NodePath(treeIdx), "expected a JSON object")
	}
	for key, val := range obj {
		name := stripModelPrefix(key)
		childSchema := f.Child(schemaIdx, name)
		if childSchema < 0 {
			return newError(NoSchemaNode, name, "")
		}
		if err := decodeChild(f, childSchema, t, treeIdx, name, val); err != nil {
			return err
		}
	}
	return nil
}

func decodeChild(f *schema.Facade, childSchema int, t *tree.Tree, parent int, name string, val interface{}) error {
	switch f.Kind(childSchema) {
	case schema.List:
		arr, ok := val.([]interface{})
		if !ok {
			return newError(WrongShape, name, "expected a JSON array for a list")
		}
		listIdx := t.NewChild(parent, name)
		wildcard := f.WildcardChild(childSchema)
		keyName := f.ListKey(childSchema)
		for _, elem := range arr {
			obj, ok := elem.(map[string]interface{})
			if !ok {
				return newError(WrongShape, name, "expected a JSON object for a list instance")
			}
			keyRaw, ok := obj[keyName]
			if !ok {
				return newError(MissingKey, name, "missing key field "+keyName)
			}
			keyStr := scalarToString(keyRaw)
			instIdx := t.NewChild(listIdx, keyStr)
			if err := Decode(f, wildcard, t, instIdx, obj); err != nil {
				return err
			}
		}
		return nil

	case schema.LeafList:
		arr, ok := val.([]interface{})
		if !ok {
			return newError(WrongShape, name, "expected a JSON array for a leaf-list")
		}
		llIdx := t.NewChild(parent, name)
		for _, elem := range arr {
			t.NewChild(llIdx, scalarToString(elem))
		}
		return nil

	case schema.Leaf, schema.Rpc:
		writable := f.IsWritable(childSchema) || f.Kind(childSchema) == schema.Rpc
		if !writable {
			return newError(NotWritable, name, "")
		}
		s, err := scalarToCanonical(val)
		if err != nil {
			return newError(WrongShape, name, err.Error())
		}
		if s != "" {
			if p := f.Pattern(childSchema); p != nil && !p.MatchString(s) {
				return newError(PatternMismatch, name, s)
			}
		}
		t.NewLeaf(parent, name, f.TranslateFrom(childSchema, s))
		return nil

	default: // Container
		obj, ok := val.(map[string]interface{})
		if !ok {
			return newError(WrongShape, name, "expected a JSON object")
		}
		childIdx := t.NewChild(parent, name)
		return Decode(f, childSchema, t, childIdx, obj)
	}
}

// scalarToCanonical renders a decoded JSON scalar using the canonical
// string forms stored in the tree: "true"/"false" for booleans, decimal
// integers for numbers, and the string verbatim otherwise.
func scalarToCanonical(val interface{}) (string, error) {
	switch v := val.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		if v {
			return "true", nil
		}
		return "false", nil
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), nil
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported JSON scalar type %T", val)
	}
}

func scalarToString(val interface{}) string {
	s, _ := scalarToCanonical(val)
	return s
}

func stripModelPrefix(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[i+1:]
	}
	return key
}
