package handlers

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/apteryx-rest/gateway/internal/codec"
	"github.com/apteryx-rest/gateway/internal/query"
	"github.com/apteryx-rest/gateway/internal/restreq"
	"github.com/apteryx-rest/gateway/internal/schema"
)

func (g *Gateway) handleGet(ctx context.Context, w http.ResponseWriter, req *restreq.Request) {
	p := query.ParsePath(req.Path)

	if p.Extension == ".xml" {
		g.serveSchemaXML(w, req)
		return
	}
	if p.Extension == ".html" {
		g.serveExplorer(ctx, w, req)
		return
	}

	path := query.Join(p.Segments)
	segs, lerr := g.Facade.Walk(path)
	if lerr != schema.OK {
		g.writeError(w, req, lookupErrToRESTError(lerr))
		return
	}
	schemaIdx := g.Facade.Root()
	if len(segs) > 0 {
		schemaIdx = segs[len(segs)-1].Index
	}

	if p.Search {
		g.serveSearch(ctx, w, req, path, schemaIdx)
		return
	}

	if req.AcceptType.IsStreaming() {
		params, perr := query.ParseParams(req.RawQuery)
		if perr != nil {
			g.writeError(w, req, restreq.NewError(restreq.ErrInvalidInput, perr.Error()))
			return
		}
		flags := codecFlags(req.Flags, params.WithDefaults)
		if err := g.Subs.Serve(ctx, w, path, schemaIdx, flags, req.AcceptType); err != nil {
			g.writeError(w, req, restreq.NewError(restreq.ErrInternal, err.Error()))
		}
		return
	}

	if g.Facade.Kind(schemaIdx) == schema.Rpc && !req.Flags.RESTConf && g.Facade.IsReadable(schemaIdx) {
		g.invokeRPCAsGet(ctx, w, req, path)
		return
	}

	if !g.Facade.IsReadable(schemaIdx) || g.Facade.IsHidden(schemaIdx) {
		g.writeError(w, req, restreq.NewError(restreq.ErrAccessDenied, "not readable"))
		return
	}

	params, perr := query.ParseParams(req.RawQuery)
	if perr != nil {
		g.writeError(w, req, restreq.NewError(restreq.ErrInvalidInput, perr.Error()))
		return
	}

	ts, err := g.Store.TimestampOfPath(ctx, path)
	if err != nil {
		g.writeError(w, req, restreq.NewError(restreq.ErrInternal, err.Error()))
		return
	}
	if rerr := req.CheckReadPreconditions(ts, g.Boot); rerr != nil {
		g.writeError(w, req, rerr)
		return
	}

	t, err := g.Store.ReadSubtree(ctx, path, params.Depth)
	if err != nil {
		g.writeError(w, req, restreq.NewError(restreq.ErrInternal, err.Error()))
		return
	}

	query.ApplyFields(t, t.Root(), params.Fields)
	if params.Depth > 1 {
		query.TruncateDepth(t, t.Root(), params.Depth)
	}

	flags := codecFlags(req.Flags, params.WithDefaults)
	if flags.AddDefaults {
		codec.AddDefaults(g.Facade, schemaIdx, t, t.Root())
	}
	if flags.TrimDefaults {
		codec.TrimDefaults(g.Facade, schemaIdx, t, t.Root())
	}

	value := codec.Encode(g.Facade, schemaIdx, t, t.Root(), flags)
	name := t.Name(t.Root())
	rootKey := g.envelopeKey(schemaIdx, name, flags.Namespace)

	body, err := g.renderBody(req, rootKey, value)
	if err != nil {
		g.writeError(w, req, restreq.NewError(restreq.ErrInternal, err.Error()))
		return
	}

	w.Header().Set("Content-Type", req.AcceptType.ContentType())
	w.Header().Set("ETag", `"`+restreq.FormatETag(ts)+`"`)
	w.Header().Set("Last-Modified", restreq.FormatLastModified(g.Boot, ts))
	w.WriteHeader(http.StatusOK)
	if req.Method != http.MethodHead {
		w.Write(body)
	}
}

// serveSearch answers a trailing-slash request with the sorted names of
// schemaIdx's existing children.
func (g *Gateway) serveSearch(ctx context.Context, w http.ResponseWriter, req *restreq.Request, path string, schemaIdx int) {
	if !g.Facade.IsReadable(schemaIdx) {
		g.writeError(w, req, restreq.NewError(restreq.ErrAccessDenied, "not readable"))
		return
	}
	names, err := g.Store.SearchChildren(ctx, path)
	if err != nil {
		g.writeError(w, req, restreq.NewError(restreq.ErrInternal, err.Error()))
		return
	}
	names = g.filterSearchNames(schemaIdx, names)
	sort.Strings(names)

	out := make([]interface{}, 0, len(names))
	for _, n := range names {
		out = append(out, n)
	}
	segs := strings.Split(strings.Trim(path, "/"), "/")
	name := segs[len(segs)-1]
	if path == "" {
		name = ""
	}
	rootKey := g.envelopeKey(schemaIdx, name, req.Flags.Namespace)
	body, err := g.renderBody(req, rootKey, out)
	if err != nil {
		g.writeError(w, req, restreq.NewError(restreq.ErrInternal, err.Error()))
		return
	}
	w.Header().Set("Content-Type", req.AcceptType.ContentType())
	w.WriteHeader(http.StatusOK)
	if req.Method != http.MethodHead {
		w.Write(body)
	}
}

func (g *Gateway) filterSearchNames(schemaIdx int, names []string) []string {
	if g.Facade.Kind(schemaIdx) == schema.List {
		return names
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		child := g.Facade.Child(schemaIdx, n)
		if child < 0 {
			continue
		}
		if g.Facade.IsHidden(child) || !g.Facade.IsReadable(child) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func (g *Gateway) serveSchemaXML(w http.ResponseWriter, req *restreq.Request) {
	data, err := g.Facade.Dump()
	if err != nil {
		g.writeError(w, req, restreq.NewError(restreq.ErrInternal, err.Error()))
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	if req.Method != http.MethodHead {
		w.Write(data)
	}
}

// serveExplorer renders a read-only, schema-driven directory listing for
// the addressed node: one link per readable child, plus the current value
// when the node itself is a leaf (a leaf-list shows its entries joined by
// ", "). It has no client-side script and
// no styling dependency, in keeping with the original CGI's plain static
// page rather than a full browser client.
func (g *Gateway) serveExplorer(ctx context.Context, w http.ResponseWriter, req *restreq.Request) {
	if !g.Explorer {
		g.writeError(w, req, restreq.NewError(restreq.ErrUnknownPath, "explorer disabled"))
		return
	}

	p := query.ParsePath(req.Path)
	path := query.Join(p.Segments)
	segs, lerr := g.Facade.Walk(path)
	if lerr != schema.OK {
		g.writeError(w, req, lookupErrToRESTError(lerr))
		return
	}
	schemaIdx := g.Facade.Root()
	if len(segs) > 0 {
		schemaIdx = segs[len(segs)-1].Index
	}
	if !g.Facade.IsReadable(schemaIdx) {
		g.writeError(w, req, restreq.NewError(restreq.ErrAccessDenied, "not readable"))
		return
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>")
	sb.WriteString(htmlEscape("/" + path))
	sb.WriteString("</title></head><body>\n<h1>")
	sb.WriteString(htmlEscape("/" + path))
	sb.WriteString("</h1>\n<ul>\n")

	if path != "" {
		sb.WriteString("<li><a href=\"")
		sb.WriteString(htmlEscape(parentPathOf(path) + ".html"))
		sb.WriteString("\">..</a></li>\n")
	}

	if g.Facade.IsLeaf(schemaIdx) || g.Facade.IsLeafList(schemaIdx) {
		t, err := g.Store.ReadSubtree(ctx, path, 0)
		value := ""
		if err == nil && t != nil {
			if g.Facade.IsLeafList(schemaIdx) {
				var entries []string
				for _, c := range t.Children(t.Root()) {
					entries = append(entries, t.Name(c))
				}
				value = strings.Join(entries, ", ")
			} else {
				value = t.Value(t.Root())
			}
		}
		sb.WriteString("<li>value: ")
		sb.WriteString(htmlEscape(value))
		sb.WriteString("</li>\n")
	} else {
		for _, child := range g.Facade.Children(schemaIdx) {
			if g.Facade.IsHidden(child) || !g.Facade.IsReadable(child) {
				continue
			}
			name := g.Facade.Name(child)
			childPath := name
			if path != "" {
				childPath = joinPath(path, name)
			}
			sb.WriteString("<li><a href=\"")
			sb.WriteString(htmlEscape(childPath + ".html"))
			sb.WriteString("\">")
			sb.WriteString(htmlEscape(name))
			sb.WriteString("</a></li>\n")
		}
	}

	sb.WriteString("</ul>\n</body></html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if req.Method != http.MethodHead {
		w.Write([]byte(sb.String()))
	}
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}

// invokeRPCAsGet lets the permissive API invoke a readable, input-less RPC
// with a plain GET, a shorthand RESTCONF reserves for POST /operations.
func (g *Gateway) invokeRPCAsGet(ctx context.Context, w http.ResponseWriter, req *restreq.Request, path string) {
	reg, ok := g.Dispatcher.Match(path, http.MethodPost)
	if !ok {
		g.writeError(w, req, restreq.NewError(restreq.ErrUnknownPath, "no handler registered"))
		return
	}
	out, err := g.Dispatcher.Invoke(reg, nil, path, http.MethodGet, false)
	if err != nil {
		g.writeError(w, req, err.(*restreq.Error))
		return
	}
	if out == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	body, mErr := renderRPCOutput(req, out, false)
	if mErr != nil {
		g.writeError(w, req, restreq.NewError(restreq.ErrInternal, mErr.Error()))
		return
	}
	w.Header().Set("Content-Type", req.AcceptType.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func lookupErrToRESTError(le schema.LookupError) *restreq.Error {
	switch le {
	case schema.NoSchemaNode:
		return restreq.NewError(restreq.ErrUnknownPath, "no schema node for path")
	case schema.NotReadable:
		return restreq.NewError(restreq.ErrAccessDenied, "not readable")
	case schema.NotWritable:
		return restreq.NewError(restreq.ErrAccessDenied, "not writable")
	case schema.InvalidQuery:
		return restreq.NewError(restreq.ErrInvalidInput, "invalid query")
	case schema.PatternMismatch:
		return restreq.NewError(restreq.ErrInvalidInput, "pattern mismatch")
	default:
		return restreq.NewError(restreq.ErrInternal, le.String())
	}
}
