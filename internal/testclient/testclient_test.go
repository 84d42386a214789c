package testclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/apteryx-rest/gateway/internal/handlers"
	"github.com/apteryx-rest/gateway/internal/logging"
	"github.com/apteryx-rest/gateway/internal/memstore"
	"github.com/apteryx-rest/gateway/internal/restapi"
	"github.com/apteryx-rest/gateway/internal/rpcdispatch"
	"github.com/apteryx-rest/gateway/internal/schema"
	"github.com/apteryx-rest/gateway/internal/subscribe"
)

const testSchema = `<MODULE name="test-system" namespace="urn:test:system" prefix="sys">
  <NODE name="system" mode="rwc">
    <NODE name="hostname" mode="rwc" default="localhost"/>
  </NODE>
</MODULE>`

func TestClientGetRoundTrip(t *testing.T) {
	f, err := schema.BuildFromStrings(map[string]string{"test-system": testSchema})
	if err != nil {
		t.Fatal(err)
	}
	st := memstore.New("")
	gw := &handlers.Gateway{
		Facade:         f,
		Store:          st,
		Dispatcher:     rpcdispatch.New(rpcdispatch.NopInterpreter{}),
		Subs:           subscribe.NewEngine(f, st),
		Logger:         logging.NewLogger(),
		APIPrefix:      "/api",
		RESTConfPrefix: "/restconf/data",
		Boot:           time.Now(),
	}

	mux := http.NewServeMux()
	restapi.Mount(mux, gw, "/api", "/restconf")
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL)
	status, _, err := c.Do(context.Background(), http.MethodPut, "/restconf/data/test-system:system/hostname", []byte(`{"hostname":"gateway1"}`))
	if err != nil {
		t.Fatal(err)
	}
	if status != http.StatusNoContent {
		t.Fatalf("PUT status = %d, want 204", status)
	}

	body, err := c.Get(context.Background(), "/restconf/data/test-system:system/hostname")
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != `{"hostname":"gateway1"}` {
		t.Fatalf("hostname = %s, want {\"hostname\":\"gateway1\"}", body)
	}
}
