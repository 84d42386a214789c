package schema

import "testing"

// testDoc exercises a rw debug leaf with a default and enum, a read-only
// state leaf, a keyed list, and a hidden secret leaf.
const testDoc = `<MODULE name="test" namespace="urn:test" prefix="test" revision="2020-01-01">
  <NODE name="test">
    <NODE name="debug" mode="rw" default="0" pattern="^(0|1)$">
      <VALUE name="disable" value="0"/>
      <VALUE name="enable" value="1"/>
    </NODE>
    <NODE name="state" mode="r">
      <VALUE name="up" value="0"/>
      <VALUE name="down" value="1"/>
    </NODE>
    <NODE name="list" mode="rw">
      <NODE name="*" mode="rw">
        <NODE name="name" mode="rw" key="true"/>
      </NODE>
    </NODE>
    <NODE name="secret" mode="h"/>
    <NODE name="reboot" mode="rwx"/>
  </NODE>
</MODULE>`

func build(t *testing.T) *Facade {
	t.Helper()
	f, err := BuildFromStrings(map[string]string{"test": testDoc})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestLookupLeafModes(t *testing.T) {
	f := build(t)

	idx, err := f.Lookup("test/debug")
	if err != OK {
		t.Fatalf("lookup err = %v", err)
	}
	if !f.IsReadable(idx) || !f.IsWritable(idx) {
		t.Fatal("debug should be read-write")
	}
	if !f.IsLeaf(idx) {
		t.Fatal("debug should be a leaf")
	}
	def, ok := f.Default(idx)
	if !ok || def != "0" {
		t.Fatalf("default = %q, %v", def, ok)
	}

	state, _ := f.Lookup("test/state")
	if !f.IsReadable(state) || f.IsWritable(state) {
		t.Fatal("state should be read-only")
	}

	secret, _ := f.Lookup("test/secret")
	if !f.IsHidden(secret) {
		t.Fatal("secret should be hidden")
	}
}

func TestListKindAndKey(t *testing.T) {
	f := build(t)
	idx, err := f.Lookup("test/list")
	if err != OK {
		t.Fatalf("lookup err = %v", err)
	}
	if f.Kind(idx) != List {
		t.Fatalf("kind = %v, want List", f.Kind(idx))
	}
	if f.ListKey(idx) != "name" {
		t.Fatalf("key = %q, want name", f.ListKey(idx))
	}
}

func TestWalkWildcardInstance(t *testing.T) {
	f := build(t)
	segs, err := f.Walk("test/list/fred/name")
	if err != OK {
		t.Fatalf("walk err = %v", err)
	}
	if len(segs) != 4 {
		t.Fatalf("got %d segments, want 4: %+v", len(segs), segs)
	}
	if segs[2].KeyValue != "fred" {
		t.Fatalf("key value = %q, want fred", segs[2].KeyValue)
	}
}

func TestExecutableAndNoSchemaNode(t *testing.T) {
	f := build(t)
	idx, err := f.Lookup("test/reboot")
	if err != OK || !f.IsExecutable(idx) {
		t.Fatal("reboot should resolve as executable")
	}

	_, err = f.Lookup("test/bogus")
	if err != NoSchemaNode {
		t.Fatalf("err = %v, want NoSchemaNode", err)
	}
}

func TestEnumTranslation(t *testing.T) {
	f := build(t)
	idx, _ := f.Lookup("test/debug")
	if got := f.TranslateFrom(idx, "enable"); got != "1" {
		t.Fatalf("TranslateFrom = %q, want 1", got)
	}
	if got := f.TranslateTo(idx, "1"); got != "enable" {
		t.Fatalf("TranslateTo = %q, want enable", got)
	}
}

func TestProxyRestart(t *testing.T) {
	docs := map[string]string{
		"test": `<MODULE name="test" prefix="test">
		  <NODE name="a" mode="p"/>
		  <NODE name="b">
		    <NODE name="c" mode="r"/>
		  </NODE>
		</MODULE>`,
	}
	f, err := BuildFromStrings(docs)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := f.Lookup("a/b/c")
	if err != OK {
		t.Fatalf("lookup err = %v", err)
	}
	if f.Name(idx) != "c" {
		t.Fatalf("name = %q, want c", f.Name(idx))
	}
}

func TestHyphenUnderscoreInterchangeable(t *testing.T) {
	docs := map[string]string{
		"test": `<MODULE name="test"><NODE name="my-leaf" mode="r"/></MODULE>`,
	}
	f, err := BuildFromStrings(docs)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Lookup("my_leaf"); err != OK {
		t.Fatalf("err = %v, want OK", err)
	}
}
