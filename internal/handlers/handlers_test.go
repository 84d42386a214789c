package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/apteryx-rest/gateway/internal/logging"
	"github.com/apteryx-rest/gateway/internal/memstore"
	"github.com/apteryx-rest/gateway/internal/rpcdispatch"
	"github.com/apteryx-rest/gateway/internal/schema"
	"github.com/apteryx-rest/gateway/internal/subscribe"
)

const testSchema = `<MODULE name="test-system" namespace="urn:test:system" prefix="sys">
  <NODE name="system" mode="rwc">
    <NODE name="hostname" mode="rwc" default="localhost"/>
    <NODE name="users" mode="rwc">
      <NODE name="*" mode="rwc">
        <NODE name="name" mode="rwc" key="true"/>
        <NODE name="shell" mode="rwc"/>
      </NODE>
    </NODE>
    <NODE name="uptime" mode="rc"/>
    <NODE name="reboot" mode="x"/>
  </NODE>
</MODULE>`

type fakeInterp struct{}

func (fakeInterp) LoadScript(path string) ([]rpcdispatch.ScriptRegistration, error) {
	return nil, nil
}

func (fakeInterp) Call(handler interface{}, input map[string]interface{}, path, method string) (rpcdispatch.CallResult, error) {
	if handler == "reboot" {
		return rpcdispatch.CallResult{OK: true, Output: map[string]interface{}{"status": "rebooting"}}, nil
	}
	return rpcdispatch.CallResult{OK: false, Message: "unknown handler"}, nil
}

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	f, err := schema.BuildFromStrings(map[string]string{"test-system": testSchema})
	if err != nil {
		t.Fatal(err)
	}
	st := memstore.New("")
	d := rpcdispatch.New(fakeInterp{})
	d.Register("system/reboot", []string{"POST"}, "reboot")

	return &Gateway{
		Facade:         f,
		Store:          st,
		Dispatcher:     d,
		Subs:           subscribe.NewEngine(f, st),
		Logger:         logging.NewLogger(),
		APIPrefix:      "/api",
		RESTConfPrefix: "/restconf/data",
		Boot:           time.Now(),
	}
}

func doRequest(g *Gateway, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, req)
	return rec
}

func TestGatewayGetReturnsStoredLeaf(t *testing.T) {
	g := newTestGateway(t)
	doRequest(g, http.MethodPut, "/api/system/hostname", `{"hostname":"gateway1"}`)

	rec := doRequest(g, http.MethodGet, "/api/system/hostname", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); got != `{"hostname":"gateway1"}` {
		t.Fatalf("body = %q, want {\"hostname\":\"gateway1\"}", got)
	}
}

func TestGatewayGetUnknownPathIs404(t *testing.T) {
	g := newTestGateway(t)
	rec := doRequest(g, http.MethodGet, "/api/system/bogus", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGatewayPostMergesIntoContainer(t *testing.T) {
	g := newTestGateway(t)
	rec := doRequest(g, http.MethodPost, "/api/system", `{"hostname":"merged"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	get := doRequest(g, http.MethodGet, "/api/system/hostname", "")
	if got := get.Body.String(); got != `{"hostname":"merged"}` {
		t.Fatalf("hostname = %q, want {\"hostname\":\"merged\"}", got)
	}
}

func TestGatewayDeleteRemovesLeaf(t *testing.T) {
	g := newTestGateway(t)
	doRequest(g, http.MethodPut, "/api/system/hostname", `{"hostname":"gone-soon"}`)

	del := doRequest(g, http.MethodDelete, "/api/system/hostname", "")
	if del.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, body = %s", del.Code, del.Body.String())
	}

	get := doRequest(g, http.MethodGet, "/api/system/hostname", "")
	if get.Code != http.StatusOK {
		t.Fatalf("get after delete status = %d", get.Code)
	}
	if got := get.Body.String(); got != `{"hostname":""}` {
		t.Fatalf("hostname after delete = %q, want {\"hostname\":\"\"}", got)
	}
}

func TestGatewayDeleteNonexistentPathIs404(t *testing.T) {
	g := newTestGateway(t)
	rec := doRequest(g, http.MethodDelete, "/api/system/users/fred/shell", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGatewayDeleteReadOnlyNodeIsForbidden(t *testing.T) {
	g := newTestGateway(t)
	rec := doRequest(g, http.MethodDelete, "/api/system/uptime", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestGatewayOptionsReportsAllowAndAcceptPatch(t *testing.T) {
	g := newTestGateway(t)
	rec := doRequest(g, http.MethodOptions, "/api/system/hostname", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	allow := rec.Header().Get("Allow")
	if allow == "" {
		t.Fatal("expected a non-empty Allow header")
	}
	if rec.Header().Get("Accept-Patch") == "" {
		t.Fatal("expected Accept-Patch on a writable node")
	}
}

func TestGatewayOptionsReadOnlyNodeOmitsAcceptPatch(t *testing.T) {
	g := newTestGateway(t)
	rec := doRequest(g, http.MethodOptions, "/api/system/uptime", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Accept-Patch") != "" {
		t.Fatal("did not expect Accept-Patch on a read-only node")
	}
}

func TestGatewayRPCInvocationViaPost(t *testing.T) {
	g := newTestGateway(t)
	rec := doRequest(g, http.MethodPost, "/api/system/reboot", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Body.Len() == 0 {
		t.Fatal("expected a body echoing the RPC output")
	}
}

func TestGatewayRESTConfCreateChildListInstance(t *testing.T) {
	g := newTestGateway(t)
	rec := doRequest(g, http.MethodPost, "/restconf/data/test-system:system",
		`{"sys:users":[{"name":"fred","shell":"/bin/sh"}]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	wantLocation := "https://example.com/restconf/data/test-system:system/users/fred"
	if got := rec.Header().Get("Location"); got != wantLocation {
		t.Fatalf("Location = %q, want %q", got, wantLocation)
	}

	get := doRequest(g, http.MethodGet, "/restconf/data/test-system:system/users=fred/shell", "")
	if get.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", get.Code, get.Body.String())
	}
}

func TestGatewayRESTConfDuplicateCreateConflicts(t *testing.T) {
	g := newTestGateway(t)
	body := `{"sys:users":[{"name":"fred","shell":"/bin/sh"}]}`
	first := doRequest(g, http.MethodPost, "/restconf/data/test-system:system", body)
	if first.Code != http.StatusCreated {
		t.Fatalf("first create status = %d", first.Code)
	}
	second := doRequest(g, http.MethodPost, "/restconf/data/test-system:system", body)
	if second.Code != http.StatusConflict {
		t.Fatalf("second create status = %d, want 409", second.Code)
	}
}
