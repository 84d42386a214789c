package handlers

import (
	"net/http"
	"strings"

	"github.com/apteryx-rest/gateway/internal/query"
	"github.com/apteryx-rest/gateway/internal/restreq"
	"github.com/apteryx-rest/gateway/internal/schema"
)

// handleOptions answers with the Allow methods and, for a writable node,
// the Accept-Patch content types, both driven by the addressed node's mode.
func (g *Gateway) handleOptions(w http.ResponseWriter, req *restreq.Request) {
	path := query.Join(query.ParsePath(req.Path).Segments)
	schemaIdx := g.Facade.Root()
	if path != "" {
		segs, lerr := g.Facade.Walk(path)
		if lerr != schema.OK {
			g.writeError(w, req, lookupErrToRESTError(lerr))
			return
		}
		schemaIdx = segs[len(segs)-1].Index
	}

	methods := []string{"OPTIONS"}
	if g.Facade.IsReadable(schemaIdx) && !g.Facade.IsHidden(schemaIdx) {
		methods = append(methods, "GET", "HEAD")
	}
	if g.Facade.IsWritable(schemaIdx) {
		methods = append(methods, "POST", "PUT", "PATCH", "DELETE")
		w.Header().Set("Accept-Patch", "application/yang-data+json, application/yang-data+xml, application/json, application/xml")
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	w.WriteHeader(http.StatusOK)
}
