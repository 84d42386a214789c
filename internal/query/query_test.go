package query

import (
	"reflect"
	"testing"

	"github.com/apteryx-rest/gateway/internal/tree"
)

func TestParsePathExpandsRestconfKeyNotation(t *testing.T) {
	p := ParsePath("test/list=fred")
	want := []string{"test", "list", "fred"}
	if !reflect.DeepEqual(p.Segments, want) {
		t.Fatalf("segments = %v, want %v", p.Segments, want)
	}
}

func TestParsePathDetectsSearchAndExtension(t *testing.T) {
	p := ParsePath("test/list/")
	if !p.Search {
		t.Fatal("expected Search=true for trailing slash")
	}

	p = ParsePath("test/schema.xml")
	if p.Extension != ".xml" {
		t.Fatalf("extension = %q, want .xml", p.Extension)
	}
	if !reflect.DeepEqual(p.Segments, []string{"test", "schema"}) {
		t.Fatalf("segments = %v, want [test schema]", p.Segments)
	}
}

func TestParseFieldsNestedGrouping(t *testing.T) {
	f, err := ParseFields("a/b(c,d),e")
	if err != nil {
		t.Fatal(err)
	}
	a, ok := f.Includes("a")
	if !ok {
		t.Fatal("a not included")
	}
	b, ok := a.Includes("b")
	if !ok {
		t.Fatal("a/b not included")
	}
	if _, ok := b.Includes("c"); !ok {
		t.Fatal("a/b/c not included")
	}
	if _, ok := b.Includes("zzz"); ok {
		t.Fatal("a/b/zzz should not be included")
	}
	if _, ok := f.Includes("e"); !ok {
		t.Fatal("e not included")
	}
}

func TestApplyFieldsPrunesUnselectedSiblings(t *testing.T) {
	tr := tree.New("test")
	tr.NewLeaf(tr.Root(), "debug", "1")
	tr.NewLeaf(tr.Root(), "state", "0")

	fields, err := ParseFields("debug")
	if err != nil {
		t.Fatal(err)
	}
	ApplyFields(tr, tr.Root(), fields)

	if tr.Child(tr.Root(), "debug") == -1 {
		t.Fatal("debug should survive")
	}
	if tr.Child(tr.Root(), "state") != -1 {
		t.Fatal("state should have been pruned")
	}
}

func TestTruncateDepthKeepsExactlyNLevels(t *testing.T) {
	tr := tree.New("root")
	a := tr.NewChild(tr.Root(), "a")
	b := tr.NewChild(a, "b")
	tr.NewLeaf(b, "c", "1")

	TruncateDepth(tr, tr.Root(), 3)

	if tr.Child(tr.Root(), "a") == -1 {
		t.Fatal("level 2 child should survive")
	}
	aIdx := tr.Child(tr.Root(), "a")
	if tr.Child(aIdx, "b") == -1 {
		t.Fatal("level 3 child should survive")
	}
	bIdx := tr.Child(aIdx, "b")
	if tr.ChildrenCount(bIdx) != 0 {
		t.Fatal("level 4 nodes should have been truncated")
	}
}

func TestParseParamsRejectsUnknownParameter(t *testing.T) {
	if _, err := ParseParams("bogus=1"); err == nil {
		t.Fatal("expected an error for an unknown query parameter")
	}
}

func TestParseParamsDepthAndContent(t *testing.T) {
	p, err := ParseParams("depth=3&content=config")
	if err != nil {
		t.Fatal(err)
	}
	if p.Depth != 3 {
		t.Fatalf("depth = %d, want 3", p.Depth)
	}
	if p.Content != ContentConfig {
		t.Fatalf("content = %v, want ContentConfig", p.Content)
	}
}
