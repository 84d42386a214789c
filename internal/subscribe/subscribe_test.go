package subscribe

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/apteryx-rest/gateway/internal/codec"
	"github.com/apteryx-rest/gateway/internal/memstore"
	"github.com/apteryx-rest/gateway/internal/restreq"
	"github.com/apteryx-rest/gateway/internal/schema"
	"github.com/apteryx-rest/gateway/internal/tree"
)

func newLeafTree(t *testing.T, path, value string) *tree.Tree {
	t.Helper()
	segs := []string{}
	for _, s := range splitPath(path) {
		segs = append(segs, s)
	}
	tr := tree.New("root")
	idx := tr.Root()
	for i, seg := range segs {
		if i == len(segs)-1 {
			tr.NewLeaf(idx, seg, value)
		} else {
			idx = tr.NewChild(idx, seg)
		}
	}
	return tr
}

func TestFrameEventSSEAndNDJSON(t *testing.T) {
	sse := FrameEvent(restreq.MediaEventStream, []byte(`{"a":1}`))
	if string(sse) != "data: {\"a\":1}\r\n\r\n" {
		t.Fatalf("sse framing = %q", sse)
	}
	nd := FrameEvent(restreq.MediaStreamJSON, []byte(`{"a":1}`))
	if string(nd) != "{\"a\":1}\r\n" {
		t.Fatalf("ndjson framing = %q", nd)
	}
}

const testDoc = `<MODULE name="test" prefix="test">
  <NODE name="test">
    <NODE name="list" mode="rw">
      <NODE name="*" mode="rw">
        <NODE name="name" mode="rw" key="true"/>
      </NODE>
    </NODE>
  </NODE>
</MODULE>`

func TestServeDeliversEventOnStoreWrite(t *testing.T) {
	f, err := schema.BuildFromStrings(map[string]string{"test": testDoc})
	if err != nil {
		t.Fatal(err)
	}
	listIdx, err := f.Lookup("test/list")
	if err != schema.OK {
		t.Fatalf("lookup: %v", err)
	}

	s := memstore.New("root")
	e := NewEngine(f, s)

	rec := httptest.NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		e.Serve(ctx, rec, "test/list", listIdx, codec.Flags{}, restreq.MediaEventStream)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)

	tr := newLeafTree(t, "fred/name", "fred")
	if err := s.WriteSubtree(context.Background(), "test/list", tr); err != nil {
		t.Fatal(err)
	}

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	if !bytes.Contains(rec.Body.Bytes(), []byte("fred")) {
		t.Fatalf("response body missing event: %q", rec.Body.String())
	}
}
