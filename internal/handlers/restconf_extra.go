package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/apteryx-rest/gateway/internal/query"
	"github.com/apteryx-rest/gateway/internal/restreq"
	"github.com/apteryx-rest/gateway/internal/schema"
)

// YangLibraryVersion is the RFC 8525 yang-library revision this gateway's
// startup publisher targets, reported verbatim at /yang-library-version.
const YangLibraryVersion = "2019-01-04"

// ServeYangLibraryVersion answers GET /restconf/yang-library-version, the
// one RESTCONF resource that exists independently of any loaded module.
func (g *Gateway) ServeYangLibraryVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", restreq.MediaYangDataJSON.ContentType())
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		json.NewEncoder(w).Encode(map[string]string{"ietf-restconf:yang-library-version": YangLibraryVersion})
	}
}

// ServeOperations answers every request under /restconf/operations. RFC
// 8040 allows only POST against a named RPC resource, so every other
// method is rejected with 405 — including DELETE, which a client might
// otherwise expect to work the way it does on /restconf/data.
func (g *Gateway) ServeOperations(w http.ResponseWriter, r *http.Request) {
	env := envFromHTTP(r)
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

	req, err := restreq.NewRequest(env, "", strings.TrimSuffix(g.RESTConfPrefix, "/data")+"/operations")
	if err != nil {
		g.writeError(sw, nil, err.(*restreq.Error))
		g.Logger.LogRequest(env.RequestMethod, sw.status, env.RemoteUser, env.RemoteAddr, env.RequestURI, nil)
		return
	}

	if req.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		g.writeError(sw, req, restreq.NewError(restreq.ErrUnsupportedMethod, "only POST is supported on an RPC resource"))
		g.Logger.LogRequest(req.Method, sw.status, req.RemoteUser, req.RemoteAddr, req.Path, nil)
		return
	}

	path := query.Join(query.ParsePath(req.Path).Segments)
	segs, lerr := g.Facade.Walk(path)
	if lerr != schema.OK {
		g.writeError(sw, req, lookupErrToRESTError(lerr))
		g.Logger.LogRequest(req.Method, sw.status, req.RemoteUser, req.RemoteAddr, req.Path, nil)
		return
	}
	if len(segs) == 0 || g.Facade.Kind(segs[len(segs)-1].Index) != schema.Rpc {
		g.writeError(sw, req, restreq.NewError(restreq.ErrUnknownPath, "not an RPC resource"))
		g.Logger.LogRequest(req.Method, sw.status, req.RemoteUser, req.RemoteAddr, req.Path, nil)
		return
	}
	schemaIdx := segs[len(segs)-1].Index

	g.invokeRPCPost(r.Context(), sw, req, path, schemaIdx, true)
	g.Logger.LogRequest(req.Method, sw.status, req.RemoteUser, req.RemoteAddr, req.Path, nil)
}
