package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/apteryx-rest/gateway/internal/codec"
	"github.com/apteryx-rest/gateway/internal/logging"
	"github.com/apteryx-rest/gateway/internal/query"
	"github.com/apteryx-rest/gateway/internal/restreq"
	"github.com/apteryx-rest/gateway/internal/schema"
	"github.com/apteryx-rest/gateway/internal/store"
	"github.com/apteryx-rest/gateway/internal/tree"
)

func (g *Gateway) handlePost(ctx context.Context, w http.ResponseWriter, req *restreq.Request) []logging.ChangedLeaf {
	path := query.Join(query.ParsePath(req.Path).Segments)
	segs, lerr := g.Facade.Walk(path)
	if lerr != schema.OK {
		g.writeError(w, req, lookupErrToRESTError(lerr))
		return nil
	}
	schemaIdx := g.Facade.Root()
	if len(segs) > 0 {
		schemaIdx = segs[len(segs)-1].Index
	}

	if g.Facade.Kind(schemaIdx) == schema.Rpc {
		return g.invokeRPCPost(ctx, w, req, path, schemaIdx, false)
	}

	if !g.Facade.IsWritable(schemaIdx) {
		g.writeError(w, req, restreq.NewError(restreq.ErrAccessDenied, "not writable"))
		return nil
	}

	raw, perr := parseBody(req)
	if perr != nil {
		g.writeError(w, req, restreq.NewError(restreq.ErrMalformedBody, perr.Error()))
		return nil
	}

	if req.Flags.RESTConf {
		return g.createChildResource(ctx, w, req, path, schemaIdx, raw)
	}
	return g.mergeWrite(ctx, w, req, path, segs, schemaIdx, raw, http.StatusOK, false)
}

func (g *Gateway) handlePut(ctx context.Context, w http.ResponseWriter, req *restreq.Request) []logging.ChangedLeaf {
	return g.handleReplaceOrMerge(ctx, w, req, true)
}

func (g *Gateway) handlePatch(ctx context.Context, w http.ResponseWriter, req *restreq.Request) []logging.ChangedLeaf {
	return g.handleReplaceOrMerge(ctx, w, req, false)
}

func (g *Gateway) handleReplaceOrMerge(ctx context.Context, w http.ResponseWriter, req *restreq.Request, replace bool) []logging.ChangedLeaf {
	path := query.Join(query.ParsePath(req.Path).Segments)
	segs, lerr := g.Facade.Walk(path)
	if lerr != schema.OK {
		g.writeError(w, req, lookupErrToRESTError(lerr))
		return nil
	}
	schemaIdx := g.Facade.Root()
	if len(segs) > 0 {
		schemaIdx = segs[len(segs)-1].Index
	}
	if !g.Facade.IsWritable(schemaIdx) {
		g.writeError(w, req, restreq.NewError(restreq.ErrAccessDenied, "not writable"))
		return nil
	}

	raw, perr := parseBody(req)
	if perr != nil {
		g.writeError(w, req, restreq.NewError(restreq.ErrMalformedBody, perr.Error()))
		return nil
	}

	return g.mergeWrite(ctx, w, req, path, segs, schemaIdx, raw, http.StatusNoContent, replace)
}

func parseBody(req *restreq.Request) (interface{}, error) {
	if len(req.Body) == 0 {
		return map[string]interface{}{}, nil
	}
	if req.ContentType.IsXML() {
		return codec.DecodeXML(req.Body)
	}
	var raw interface{}
	if err := json.Unmarshal(req.Body, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// mergeWrite decodes raw against schemaIdx and writes the result into the
// store, choosing between the "list instance / addressed container" decode
// path and the "literal leaf or top-level list/leaf-list" decode path
// depending on how path was resolved.
func (g *Gateway) mergeWrite(ctx context.Context, w http.ResponseWriter, req *restreq.Request, path string, segs []schema.Segment, schemaIdx int, raw interface{}, successStatus int, replace bool) []logging.ChangedLeaf {
	contents := raw
	if includeEnvelope(req) && (req.Flags.RESTConf || g.Facade.Kind(schemaIdx) != schema.Container) {
		unwrapped, err := stripEnvelope(raw, g.envelopeKey(schemaIdx, literalOrKeyName(g.Facade, schemaIdx, segs), req.Flags.Namespace))
		if err != nil {
			g.writeError(w, req, restreq.NewError(restreq.ErrMalformedBody, err.Error()))
			return nil
		}
		contents = unwrapped
	}

	isInstance := len(segs) > 0 && segs[len(segs)-1].KeyValue != "" && g.Facade.Kind(schemaIdx) != schema.Leaf

	var t *tree.Tree
	var writePath string

	if isInstance {
		keyValue := segs[len(segs)-1].KeyValue
		if req.Flags.RESTConf {
			if listIdx := g.Facade.Parent(schemaIdx); listIdx >= 0 {
				keyName := g.Facade.ListKey(listIdx)
				if obj, ok := contents.(map[string]interface{}); ok {
					if raw, present := obj[keyName]; present {
						if s, ok := raw.(string); ok && s != keyValue {
							g.writeError(w, req, restreq.NewError(restreq.ErrUnsupportedMethod, "key leaf is immutable"))
							return nil
						}
					}
				}
			}
		}
		t = tree.New(keyValue)
		if err := codec.Decode(g.Facade, schemaIdx, t, t.Root(), contents); err != nil {
			g.writeError(w, req, restreq.NewError(restreq.ErrInvalidInput, err.Error()))
			return nil
		}
		if replace {
			fillAbsentLeavesEmpty(g.Facade, schemaIdx, t, t.Root())
		}
		writePath = path
	} else {
		parentIdx := g.Facade.Parent(schemaIdx)
		name := g.Facade.Name(schemaIdx)
		wrapped := map[string]interface{}{name: contents}
		t = tree.New("")
		if err := codec.Decode(g.Facade, parentIdx, t, t.Root(), wrapped); err != nil {
			g.writeError(w, req, restreq.NewError(restreq.ErrInvalidInput, err.Error()))
			return nil
		}
		writePath = parentPathOf(path)
	}

	ts, err := g.Store.TimestampOfPath(ctx, path)
	if err != nil {
		g.writeError(w, req, restreq.NewError(restreq.ErrInternal, err.Error()))
		return nil
	}
	if rerr := req.CheckWritePreconditions(ts, g.Boot); rerr != nil {
		g.writeError(w, req, rerr)
		return nil
	}

	changes := collectChangedLeaves(writePath, t, t.Root())

	if err := g.Store.WriteSubtree(ctx, writePath, t); err != nil {
		g.writeError(w, req, mapStoreError(err))
		return changes
	}

	w.WriteHeader(successStatus)
	return changes
}

// createChildResource implements the RESTCONF POST-to-collection semantics:
// the body names exactly one child of schemaIdx; if that child is a list,
// the body's single array element becomes a new instance created with
// compare-and-set (expect=0, so an existing instance yields 409); otherwise
// the child is written directly. Either way, Location names the created
// resource and the response status is 201.
func (g *Gateway) createChildResource(ctx context.Context, w http.ResponseWriter, req *restreq.Request, path string, schemaIdx int, raw interface{}) []logging.ChangedLeaf {
	obj, ok := raw.(map[string]interface{})
	if !ok || len(obj) != 1 {
		g.writeError(w, req, restreq.NewError(restreq.ErrMalformedBody, "expected a single-keyed object"))
		return nil
	}
	var key, childName string
	var value interface{}
	for k, v := range obj {
		key, value = k, v
	}
	childName = stripEnvelopePrefix(key)
	childIdx := g.Facade.Child(schemaIdx, childName)
	if childIdx < 0 {
		g.writeError(w, req, restreq.NewError(restreq.ErrUnknownPath, "no schema node"))
		return nil
	}
	if !g.Facade.IsWritable(childIdx) {
		g.writeError(w, req, restreq.NewError(restreq.ErrAccessDenied, "not writable"))
		return nil
	}

	if g.Facade.Kind(childIdx) == schema.List {
		arr, ok := value.([]interface{})
		if !ok || len(arr) != 1 {
			g.writeError(w, req, restreq.NewError(restreq.ErrMalformedBody, "expected a single-element array"))
			return nil
		}
		instObj, ok := arr[0].(map[string]interface{})
		if !ok {
			g.writeError(w, req, restreq.NewError(restreq.ErrMalformedBody, "expected an object"))
			return nil
		}
		wildcard := g.Facade.WildcardChild(childIdx)
		keyName := g.Facade.ListKey(childIdx)
		keyRaw, ok := instObj[keyName]
		if !ok {
			g.writeError(w, req, restreq.NewError(restreq.ErrMalformedBody, "missing key field "+keyName))
			return nil
		}
		keyValue, _ := keyRaw.(string)
		if keyValue == "" {
			if n, ok := keyRaw.(float64); ok {
				keyValue = formatNumber(n)
			}
		}
		t := tree.New(keyValue)
		if err := codec.Decode(g.Facade, wildcard, t, t.Root(), instObj); err != nil {
			g.writeError(w, req, restreq.NewError(restreq.ErrInvalidInput, err.Error()))
			return nil
		}
		instancePath := joinPath(path, childName, keyValue)
		changes := collectChangedLeaves(instancePath, t, t.Root())
		if err := g.Store.CompareAndSet(ctx, instancePath, t, 0); err != nil {
			g.writeError(w, req, mapStoreError(err))
			return changes
		}
		w.Header().Set("Location", locationURL(req, childName, keyValue))
		w.WriteHeader(http.StatusCreated)
		return changes
	}

	wrapped := map[string]interface{}{childName: value}
	t := tree.New("")
	if err := codec.Decode(g.Facade, schemaIdx, t, t.Root(), wrapped); err != nil {
		g.writeError(w, req, restreq.NewError(restreq.ErrInvalidInput, err.Error()))
		return nil
	}
	changes := collectChangedLeaves(path, t, t.Root())
	if err := g.Store.WriteSubtree(ctx, path, t); err != nil {
		g.writeError(w, req, mapStoreError(err))
		return changes
	}
	w.Header().Set("Location", locationURL(req, childName))
	w.WriteHeader(http.StatusCreated)
	return changes
}

// locationURL builds the absolute URL for a just-created resource, the way
// original_source/rest.c's handler formats "https://%s:%s%s/%s" from the
// request's server name/port and path rather than a bare relative path.
func locationURL(req *restreq.Request, names ...string) string {
	host := req.ServerName
	if req.ServerPort != "" {
		host = host + ":" + req.ServerPort
	}
	path := joinPath(append([]string{req.RequestURI}, names...)...)
	return "https://" + host + "/" + path
}

func (g *Gateway) invokeRPCPost(ctx context.Context, w http.ResponseWriter, req *restreq.Request, path string, schemaIdx int, restconfFraming bool) []logging.ChangedLeaf {
	raw, perr := parseBody(req)
	if perr != nil {
		g.writeError(w, req, restreq.NewError(restreq.ErrMalformedBody, perr.Error()))
		return nil
	}
	var inputTree *tree.Tree
	if obj, ok := raw.(map[string]interface{}); ok && len(obj) > 0 {
		inputTree = tree.New("input")
		if err := codec.Decode(g.Facade, schemaIdx, inputTree, inputTree.Root(), obj); err != nil {
			g.writeError(w, req, restreq.NewError(restreq.ErrInvalidInput, err.Error()))
			return nil
		}
	}
	reg, ok := g.Dispatcher.Match(path, http.MethodPost)
	if !ok {
		g.writeError(w, req, restreq.NewError(restreq.ErrUnknownPath, "no handler registered"))
		return nil
	}
	out, err := g.Dispatcher.Invoke(reg, inputTree, path, http.MethodPost, restconfFraming)
	if err != nil {
		g.writeError(w, req, err.(*restreq.Error))
		return nil
	}
	if out == nil {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	body, mErr := renderRPCOutput(req, out, restconfFraming)
	if mErr != nil {
		g.writeError(w, req, restreq.NewError(restreq.ErrInternal, mErr.Error()))
		return nil
	}
	w.Header().Set("Content-Type", req.AcceptType.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(body)
	return nil
}

func mapStoreError(err error) *restreq.Error {
	if err == store.ErrConflict {
		return restreq.NewError(restreq.ErrDataExists, err.Error())
	}
	return restreq.NewError(restreq.ErrAccessDenied, err.Error())
}

func fillAbsentLeavesEmpty(f *schema.Facade, schemaIdx int, t *tree.Tree, idx int) {
	for _, c := range f.Children(schemaIdx) {
		name := f.Name(c)
		if name == "*" || !f.IsWritable(c) || f.Kind(c) != schema.Leaf {
			continue
		}
		if t.Child(idx, name) != -1 {
			continue
		}
		t.NewLeaf(idx, name, "")
	}
}

func collectChangedLeaves(prefix string, t *tree.Tree, idx int) []logging.ChangedLeaf {
	var out []logging.ChangedLeaf
	var walk func(i int, rel string)
	walk = func(i int, rel string) {
		for _, c := range t.Children(i) {
			name := t.Name(c)
			childRel := name
			if rel != "" {
				childRel = rel + "/" + name
			}
			if t.IsLeaf(c) {
				out = append(out, logging.ChangedLeaf{Path: joinPath(prefix, childRel), Value: t.Value(c)})
				continue
			}
			walk(c, childRel)
		}
	}
	walk(idx, "")
	return out
}

func stripEnvelope(raw interface{}, rootKey string) (interface{}, error) {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, errBadEnvelope
	}
	if v, ok := obj[rootKey]; ok {
		return v, nil
	}
	want := stripEnvelopePrefix(rootKey)
	for k, v := range obj {
		if stripEnvelopePrefix(k) == want {
			return v, nil
		}
	}
	return nil, errBadEnvelope
}

var errBadEnvelope = errors.New("missing envelope key in request body")

func stripEnvelopePrefix(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[i+1:]
	}
	return key
}

func literalOrKeyName(f *schema.Facade, schemaIdx int, segs []schema.Segment) string {
	if len(segs) > 0 && segs[len(segs)-1].KeyValue != "" {
		return segs[len(segs)-1].KeyValue
	}
	return f.Name(schemaIdx)
}

func parentPathOf(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return ""
	}
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return ""
	}
	return path[:i]
}

func joinPath(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "/")
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}
