package logging

import "testing"

func TestSetFlagsParsesKnownTokensOnly(t *testing.T) {
	l := NewLogger()
	l.SetFlags("post PUT bogus delete")
	if !l.methodEnabled("POST") || !l.methodEnabled("put") || !l.methodEnabled("DELETE") {
		t.Fatal("expected post/put/delete enabled")
	}
	if l.methodEnabled("GET") {
		t.Fatal("get should not be enabled")
	}
}

func TestSetFlagsReplacesPreviousSet(t *testing.T) {
	l := NewLogger()
	l.SetFlags("get head")
	l.SetFlags("post")
	if l.methodEnabled("GET") {
		t.Fatal("get should have been cleared by the second SetFlags call")
	}
	if !l.methodEnabled("POST") {
		t.Fatal("post should be enabled")
	}
}

func TestLogRequestNoopsWhenMethodDisabled(t *testing.T) {
	l := NewLogger()
	// Should not panic even though nothing is enabled.
	l.LogRequest("GET", 200, "", "127.0.0.1", "/test", nil)
}
