package rpcdispatch

import (
	"testing"

	"github.com/apteryx-rest/gateway/internal/tree"
)

type fakeInterp struct {
	calls int
}

func (f *fakeInterp) LoadScript(path string) ([]ScriptRegistration, error) { return nil, nil }

func (f *fakeInterp) Call(handler interface{}, input map[string]interface{}, path, method string) (CallResult, error) {
	f.calls++
	if handler == "reboot" {
		return CallResult{OK: true, Output: map[string]interface{}{"status": "rebooting"}}, nil
	}
	return CallResult{OK: false, Message: "unknown handler"}, nil
}

func TestMatchPicksFirstGlobAndMethod(t *testing.T) {
	d := New(&fakeInterp{})
	d.Register("/test/reboot", []string{"POST"}, "reboot")
	d.Register("/test/*", []string{"GET"}, "catch-all")

	reg, ok := d.Match("/test/reboot", "POST")
	if !ok || reg.Handler != "reboot" {
		t.Fatalf("match = %+v, ok=%v", reg, ok)
	}

	_, ok = d.Match("/test/reboot", "DELETE")
	if ok {
		t.Fatal("DELETE should not match a POST-only registration")
	}
}

func TestInvokeSuccessBuildsOutputTree(t *testing.T) {
	d := New(&fakeInterp{})
	d.Register("/test/reboot", []string{"POST"}, "reboot")
	reg, _ := d.Match("/test/reboot", "POST")

	out, err := d.Invoke(reg, nil, "/test/reboot", "POST", true)
	if err != nil {
		t.Fatal(err)
	}
	statusIdx := out.Child(out.Root(), "status")
	if statusIdx == -1 || out.Value(statusIdx) != "rebooting" {
		t.Fatalf("output tree missing status=rebooting")
	}
}

func TestInvokeFailureReturnsError(t *testing.T) {
	d := New(&fakeInterp{})
	d.Register("/test/bogus", []string{"POST"}, "bogus")
	reg, _ := d.Match("/test/bogus", "POST")

	if _, err := d.Invoke(reg, nil, "/test/bogus", "POST", true); err == nil {
		t.Fatal("expected an error for a failing handler")
	}
}

func TestTableFromTreeRoundTrip(t *testing.T) {
	in := tree.New("input")
	in.NewLeaf(in.Root(), "name", "fred")
	child := in.NewChild(in.Root(), "nested")
	in.NewLeaf(child, "value", "1")

	table := tableFromTree(in, in.Root())
	if table["name"] != "fred" {
		t.Fatalf("name = %v", table["name"])
	}
	nested, ok := table["nested"].(map[string]interface{})
	if !ok || nested["value"] != "1" {
		t.Fatalf("nested = %v", table["nested"])
	}
}
