package memstore

import (
	"context"
	"testing"

	"github.com/apteryx-rest/gateway/internal/store"
	"github.com/apteryx-rest/gateway/internal/tree"
)

func writeLeaf(t *testing.T, s *Store, path, value string) {
	t.Helper()
	segs := splitPath(path)
	tr := tree.New("root")
	idx := tr.Root()
	for i, seg := range segs {
		if i == len(segs)-1 {
			tr.NewLeaf(idx, seg, value)
		} else {
			idx = tr.NewChild(idx, seg)
		}
	}
	if err := s.WriteSubtree(context.Background(), "", tr); err != nil {
		t.Fatal(err)
	}
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	s := New("root")
	writeLeaf(t, s, "test/debug", "1")

	out, err := s.ReadSubtree(context.Background(), "test/debug", 0)
	if err != nil {
		t.Fatal(err)
	}
	if out.Value(out.Root()) != "1" {
		t.Fatalf("value = %q, want 1", out.Value(out.Root()))
	}
}

func TestTimestampIncreasesOnWrite(t *testing.T) {
	s := New("root")
	before, _ := s.TimestampOfPath(context.Background(), "test")
	writeLeaf(t, s, "test/debug", "1")
	after, _ := s.TimestampOfPath(context.Background(), "test")
	if after <= before {
		t.Fatalf("timestamp did not advance: before=%d after=%d", before, after)
	}
}

func TestCompareAndSetRejectsMismatch(t *testing.T) {
	s := New("root")
	writeLeaf(t, s, "test/debug", "1")

	tr := tree.New("root")
	tr.NewLeaf(tr.Root(), "debug", "2")
	err := s.CompareAndSet(context.Background(), "test", tr, 0)
	if err == nil {
		t.Fatal("expected a conflict since test already has a timestamp")
	}
}

func TestSearchChildrenSorted(t *testing.T) {
	s := New("root")
	writeLeaf(t, s, "test/list/tom/name", "tom")
	writeLeaf(t, s, "test/list/fred/name", "fred")

	names, err := s.SearchChildren(context.Background(), "test/list")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "fred" || names[1] != "tom" {
		t.Fatalf("names = %v, want [fred tom]", names)
	}
}

func TestWatchFiresOnMatchingWrite(t *testing.T) {
	s := New("root")
	fired := make(chan store.Event, 1)
	cancel, err := s.Watch("test/list", func(ev store.Event) { fired <- ev })
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	writeLeaf(t, s, "test/list/fred/name", "fred")

	select {
	case ev := <-fired:
		if ev.Path != "test/list/fred/name" {
			t.Fatalf("path = %q, want test/list/fred/name", ev.Path)
		}
	default:
		t.Fatal("watch callback did not fire")
	}
}

func TestWatchStopsAfterCancel(t *testing.T) {
	s := New("root")
	fired := make(chan store.Event, 1)
	cancel, err := s.Watch("test/list", func(ev store.Event) { fired <- ev })
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	writeLeaf(t, s, "test/list/fred/name", "fred")

	select {
	case ev := <-fired:
		t.Fatalf("watch fired after cancel: %+v", ev)
	default:
	}
}
