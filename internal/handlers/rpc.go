package handlers

import (
	"encoding/json"

	"github.com/apteryx-rest/gateway/internal/codec"
	"github.com/apteryx-rest/gateway/internal/restreq"
	"github.com/apteryx-rest/gateway/internal/tree"
)

// renderRPCOutput flattens an RPC's output tree into JSON or XML bytes.
// RPC output has no schema subtree of its own (the dispatcher hands back
// a plain table), so rendering here is untyped: every leaf is a string.
// wrapOutput adds the RFC 8040 "output" envelope key used under
// /restconf/operations; the permissive API returns the fields bare.
func renderRPCOutput(req *restreq.Request, out *tree.Tree, wrapOutput bool) ([]byte, error) {
	fields := map[string]interface{}{}
	for _, c := range out.Children(out.Root()) {
		fields[out.Name(c)] = rawTreeToValue(out, c)
	}
	var value interface{} = fields
	if wrapOutput {
		value = map[string]interface{}{"output": fields}
	}
	if req.AcceptType.IsXML() {
		return codec.EncodeXML("output", value)
	}
	return json.Marshal(value)
}

func rawTreeToValue(t *tree.Tree, idx int) interface{} {
	if t.IsLeaf(idx) {
		return t.Value(idx)
	}
	m := map[string]interface{}{}
	for _, c := range t.Children(idx) {
		m[t.Name(c)] = rawTreeToValue(t, c)
	}
	return m
}
