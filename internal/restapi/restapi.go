// Package restapi wires the permissive "/api" tree and the three RFC 8040
// resources under a "/restconf" mount point onto one handlers.Gateway,
// splitting the RESTCONF surface into its data, operations, and
// yang-library-version resources the way the protocol itself does.
package restapi

import (
	"net/http"

	"github.com/apteryx-rest/gateway/internal/handlers"
)

// Mount registers apiPrefix ("/api") and restconfPrefix ("/restconf") on
// mux, all backed by g. g.APIPrefix must already equal apiPrefix, and
// g.RESTConfPrefix must equal restconfPrefix+"/data", for the plain read/write
// dispatch in g.ServeHTTP to frame requests correctly.
func Mount(mux *http.ServeMux, g *handlers.Gateway, apiPrefix, restconfPrefix string) {
	mux.Handle(apiPrefix+"/", g)

	dataPrefix := restconfPrefix + "/data"
	mux.Handle(dataPrefix+"/", g)
	mux.HandleFunc(dataPrefix, g.ServeHTTP)

	opsPrefix := restconfPrefix + "/operations"
	mux.HandleFunc(opsPrefix+"/", g.ServeOperations)
	mux.HandleFunc(opsPrefix, g.ServeOperations)

	mux.HandleFunc(restconfPrefix+"/yang-library-version", g.ServeYangLibraryVersion)
}
