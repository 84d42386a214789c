// Package handlers implements the method handlers that sit behind both the
// permissive JSON-tree API and the RESTCONF surface: GET/HEAD, POST, PUT,
// PATCH, DELETE, and OPTIONS, all funnelled through one Gateway.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/apteryx-rest/gateway/internal/codec"
	"github.com/apteryx-rest/gateway/internal/logging"
	"github.com/apteryx-rest/gateway/internal/query"
	"github.com/apteryx-rest/gateway/internal/restreq"
	"github.com/apteryx-rest/gateway/internal/rpcdispatch"
	"github.com/apteryx-rest/gateway/internal/schema"
	"github.com/apteryx-rest/gateway/internal/store"
	"github.com/apteryx-rest/gateway/internal/subscribe"
)

// Gateway answers every /api and /restconf request against one schema
// Facade and one store.Client. It is safe for concurrent use by many
// request goroutines: the Facade is immutable and the store is documented
// as internally thread-safe.
type Gateway struct {
	Facade     *schema.Facade
	Store      store.Client
	Dispatcher *rpcdispatch.Dispatcher
	Subs       *subscribe.Engine
	Logger     *logging.Logger

	APIPrefix      string
	RESTConfPrefix string
	Boot           time.Time

	// Explorer enables the read-only schema-driven HTML view served for
	// the ".html" extension.
	Explorer bool
}

// statusWriter records the status code actually written, defaulting to 200
// the way net/http's own ResponseWriter does when WriteHeader is never
// called, so the access log always has a real value.
type statusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *statusWriter) WriteHeader(code int) {
	if w.wrote {
		return
	}
	w.wrote = true
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	env := envFromHTTP(r)
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

	req, err := restreq.NewRequest(env, g.APIPrefix, g.RESTConfPrefix)
	if err != nil {
		g.writeError(sw, nil, err.(*restreq.Error))
		g.Logger.LogRequest(env.RequestMethod, sw.status, env.RemoteUser, env.RemoteAddr, env.RequestURI, nil)
		return
	}

	var changes []logging.ChangedLeaf
	switch req.Method {
	case http.MethodGet, http.MethodHead:
		g.handleGet(r.Context(), sw, req)
	case http.MethodPost:
		changes = g.handlePost(r.Context(), sw, req)
	case http.MethodPut:
		changes = g.handlePut(r.Context(), sw, req)
	case http.MethodPatch:
		changes = g.handlePatch(r.Context(), sw, req)
	case http.MethodDelete:
		changes = g.handleDelete(r.Context(), sw, req)
	case http.MethodOptions:
		g.handleOptions(sw, req)
	default:
		g.writeError(sw, req, restreq.NewError(restreq.ErrUnsupportedMethod, "method not supported"))
	}

	g.Logger.LogRequest(req.Method, sw.status, req.RemoteUser, req.RemoteAddr, req.Path, changes)
}

func envFromHTTP(r *http.Request) restreq.Env {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
	}
	user, _, _ := r.BasicAuth()
	return restreq.Env{
		RequestMethod:     r.Method,
		RequestURI:        r.URL.RequestURI(),
		ContentType:       r.Header.Get("Content-Type"),
		Accept:            r.Header.Get("Accept"),
		IfMatch:           r.Header.Get("If-Match"),
		IfNoneMatch:       r.Header.Get("If-None-Match"),
		IfModifiedSince:   r.Header.Get("If-Modified-Since"),
		IfUnmodifiedSince: r.Header.Get("If-Unmodified-Since"),
		ServerName:        r.Host,
		RemoteAddr:        r.RemoteAddr,
		RemoteUser:        user,
		XJSONRoot:         r.Header.Get("X-JSON-Root"),
		XJSONMulti:        r.Header.Get("X-JSON-Multi"),
		XJSONArray:        r.Header.Get("X-JSON-Array"),
		XJSONTypes:        r.Header.Get("X-JSON-Types"),
		XJSONNamespace:    r.Header.Get("X-JSON-Namespace"),
		Body:              body,
	}
}

// writeError renders err as a plain-text body on the permissive API, or as
// an ietf-restconf:errors document when the request was framed under
// /restconf.
func (g *Gateway) writeError(w http.ResponseWriter, req *restreq.Request, err *restreq.Error) {
	status := err.Kind.Status()
	if req != nil && req.Flags.RESTConf && status != http.StatusNotModified {
		data, mErr := json.Marshal(restreq.RESTConfBody(err))
		if mErr != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", restreq.MediaYangDataJSON.ContentType())
		w.WriteHeader(status)
		w.Write(data)
		return
	}
	if err.Message != "" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		w.Write([]byte(err.Message))
		return
	}
	w.WriteHeader(status)
}

// codecFlags projects restreq's request-wide flag-set plus the resolved
// with-defaults mode into the narrower set codec.Encode/Decode consult.
func codecFlags(rf restreq.Flags, wd query.WithDefaults) codec.Flags {
	return codec.Flags{
		Root:         rf.Root,
		Multi:        rf.Multi,
		Arrays:       rf.Arrays,
		Types:        rf.Types,
		Namespace:    rf.Namespace,
		AddDefaults:  wd == query.WithDefaultsReportAll || wd == query.WithDefaultsReportAllTagged,
		TrimDefaults: wd == query.WithDefaultsTrim,
		RESTConf:     rf.RESTConf,
	}
}

// includeEnvelope reports whether the response should keep the top-level
// "name": {...} wrapper. RESTCONF always keeps it (the wrapper carries the
// model-qualified resource name); the permissive API keeps it too unless
// the caller explicitly disables it with "X-JSON-Root: off".
func includeEnvelope(req *restreq.Request) bool {
	return req.Flags.RESTConf || req.Flags.Root
}

// envelopeKey renders the key a response envelope uses for schemaIdx/name,
// adding a "model:" prefix when namespacing is on and schemaIdx's module
// differs from its parent's.
func (g *Gateway) envelopeKey(schemaIdx int, name string, namespaced bool) string {
	if !namespaced {
		return name
	}
	m := g.Facade.Model(schemaIdx)
	if m == nil {
		return name
	}
	parent := g.Facade.Model(g.Facade.Parent(schemaIdx))
	if parent != nil && parent.Name == m.Name {
		return name
	}
	return m.Prefix + ":" + name
}

// renderBody turns value (the already-Encode'd contents of the addressed
// node, not yet wrapped in its own name) into the wire bytes for req's
// negotiated accept type, after applying the envelope and multi-wrap flags.
func (g *Gateway) renderBody(req *restreq.Request, rootKey string, value interface{}) ([]byte, error) {
	if includeEnvelope(req) {
		value = map[string]interface{}{rootKey: value}
	}
	if req.Flags.Multi {
		value = []interface{}{value}
	}
	if req.AcceptType.IsXML() {
		return codec.EncodeXML(rootKey, value)
	}
	return json.Marshal(value)
}
