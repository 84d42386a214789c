package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/freeconf/yang/fc"

	"github.com/apteryx-rest/gateway/internal/logging"
	"github.com/apteryx-rest/gateway/internal/query"
	"github.com/apteryx-rest/gateway/internal/restreq"
	"github.com/apteryx-rest/gateway/internal/schema"
	"github.com/apteryx-rest/gateway/internal/tree"
)

// handleDelete removes the addressed node. The store deletes a whole
// subtree when its owning leaf is written empty, so the write side of a
// delete is a single empty leaf at the node's own name under its parent
// path — no recursive traversal of the subtree being removed.
func (g *Gateway) handleDelete(ctx context.Context, w http.ResponseWriter, req *restreq.Request) []logging.ChangedLeaf {
	path := query.Join(query.ParsePath(req.Path).Segments)
	if path == "" {
		g.writeError(w, req, restreq.NewError(restreq.ErrAccessDenied, "cannot delete the datastore root"))
		return nil
	}

	segs, lerr := g.Facade.Walk(path)
	if lerr != schema.OK {
		g.writeError(w, req, lookupErrToRESTError(lerr))
		return nil
	}
	schemaIdx := segs[len(segs)-1].Index

	// DELETE against an RPC resource predates RESTCONF's POST-only
	// /operations convention. Under strict RESTCONF framing it is
	// rejected outright; the permissive /api surface still honours it,
	// invoking the RPC with empty input, behind a logged deprecation
	// notice, as a legacy affordance rather than removed outright.
	if g.Facade.Kind(schemaIdx) == schema.Rpc {
		if req.Flags.RESTConf {
			w.Header().Set("Allow", "POST")
			g.writeError(w, req, restreq.NewError(restreq.ErrUnsupportedMethod, "RPCs are invoked with POST"))
			return nil
		}
		fc.Debug.Printf("deprecated: DELETE invoking RPC at %s, use POST instead", path)
		return g.invokeRPCAsDelete(ctx, w, req, path)
	}

	if !g.Facade.IsWritable(schemaIdx) {
		g.writeError(w, req, restreq.NewError(restreq.ErrAccessDenied, "not writable"))
		return nil
	}

	ts, err := g.Store.TimestampOfPath(ctx, path)
	if err != nil {
		g.writeError(w, req, restreq.NewError(restreq.ErrInternal, err.Error()))
		return nil
	}
	cur, err := g.Store.ReadSubtree(ctx, path, 2)
	if err != nil {
		g.writeError(w, req, restreq.NewError(restreq.ErrInternal, err.Error()))
		return nil
	}
	if ts == 0 || (!cur.HasValue(cur.Root()) && cur.ChildrenCount(cur.Root()) == 0) {
		g.writeError(w, req, restreq.NewError(restreq.ErrUnknownPath, "nothing stored at this path"))
		return nil
	}
	if rerr := req.CheckWritePreconditions(ts, g.Boot); rerr != nil {
		g.writeError(w, req, rerr)
		return nil
	}

	if !g.subtreeAllWritable(ctx, path) {
		g.writeError(w, req, restreq.NewError(restreq.ErrAccessDenied, "subtree contains a non-writable node"))
		return nil
	}

	parentPath := parentPathOf(path)
	name := lastPathSegment(path)
	t := tree.New("")
	t.NewLeaf(t.Root(), name, "")
	changes := []logging.ChangedLeaf{{Path: path, Value: ""}}

	if err := g.Store.WriteSubtree(ctx, parentPath, t); err != nil {
		g.writeError(w, req, mapStoreError(err))
		return changes
	}
	w.WriteHeader(http.StatusNoContent)
	return changes
}

// subtreeAllWritable reports whether every leaf currently stored beneath
// path maps to a writable schema node, so a delete never silently drops a
// read-only descendant along with its writable parent.
func (g *Gateway) subtreeAllWritable(ctx context.Context, path string) bool {
	t, err := g.Store.ReadSubtree(ctx, path, 0)
	if err != nil {
		return false
	}
	ok := true
	t.LeafForEach(t.Root(), func(leaf int) {
		rel := t.NodePath(leaf)
		full := path
		if rel != "" {
			full = joinPath(path, rel)
		}
		segs, lerr := g.Facade.Walk(full)
		if lerr != schema.OK || len(segs) == 0 {
			return
		}
		if !g.Facade.IsWritable(segs[len(segs)-1].Index) {
			ok = false
		}
	})
	return ok
}

// invokeRPCAsDelete is the deprecated legacy path: DELETE against an RPC
// resource invokes it the same way a no-input POST would, using the
// "DELETE" verb in the dispatch call so a script can still distinguish it
// if it needs to.
func (g *Gateway) invokeRPCAsDelete(ctx context.Context, w http.ResponseWriter, req *restreq.Request, path string) []logging.ChangedLeaf {
	reg, ok := g.Dispatcher.Match(path, http.MethodPost)
	if !ok {
		g.writeError(w, req, restreq.NewError(restreq.ErrUnknownPath, "no handler registered"))
		return nil
	}
	out, err := g.Dispatcher.Invoke(reg, nil, path, http.MethodDelete, req.Flags.RESTConf)
	if err != nil {
		g.writeError(w, req, err.(*restreq.Error))
		return nil
	}
	if out == nil {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	body, mErr := renderRPCOutput(req, out, req.Flags.RESTConf)
	if mErr != nil {
		g.writeError(w, req, restreq.NewError(restreq.ErrInternal, mErr.Error()))
		return nil
	}
	w.Header().Set("Content-Type", req.AcceptType.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(body)
	return nil
}

func lastPathSegment(path string) string {
	path = strings.Trim(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
