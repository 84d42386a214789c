package restreq

import (
	"testing"
	"time"
)

func TestParseMediaTypeKnownAndUnknown(t *testing.T) {
	m, err := ParseMediaType("application/yang-data+json")
	if err != nil || m != MediaYangDataJSON {
		t.Fatalf("m=%v err=%v", m, err)
	}
	if _, err := ParseMediaType("application/bogus"); err == nil {
		t.Fatal("expected an error for an unsupported media type")
	}
}

func TestNewRequestSetsRESTConfDefaults(t *testing.T) {
	req, err := NewRequest(Env{
		RequestMethod: "get",
		RequestURI:    "/restconf/data/test:debug?depth=1",
		Accept:        "application/yang-data+json",
	}, "/api", "/restconf/data")
	if err != nil {
		t.Fatal(err)
	}
	if !req.Flags.RESTConf || !req.Flags.Arrays || !req.Flags.Types || !req.Flags.Namespace {
		t.Fatalf("flags = %+v, want RESTConf defaults", req.Flags)
	}
	if req.Path != "/test:debug" {
		t.Fatalf("path = %q, want /test:debug", req.Path)
	}
	if req.RawQuery != "depth=1" {
		t.Fatalf("rawQuery = %q", req.RawQuery)
	}
}

func TestETagRoundTrip(t *testing.T) {
	tag := FormatETag(0xABCD)
	if tag != "ABCD" {
		t.Fatalf("tag = %q, want ABCD", tag)
	}
}

func TestCheckReadPreconditionsNotModified(t *testing.T) {
	req := &Request{IfNoneMatch: "ABCD"}
	if err := req.CheckReadPreconditions(0xABCD, time.Now()); err == nil || err.Kind != ErrNotModified {
		t.Fatalf("err = %v, want ErrNotModified", err)
	}
}

func TestCheckWritePreconditionsIfMatchMismatch(t *testing.T) {
	req := &Request{IfMatch: "1234"}
	if err := req.CheckWritePreconditions(0xABCD, time.Now()); err == nil || err.Kind != ErrPreconditionFailed {
		t.Fatalf("err = %v, want ErrPreconditionFailed", err)
	}
}
