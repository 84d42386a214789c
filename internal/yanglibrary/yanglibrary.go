// Package yanglibrary publishes the startup-only ietf-yang-library and
// ietf-restconf-monitoring content into the store, sourced from the
// schema Facade's loaded-module table. It runs once at startup, before the
// front end accepts its first request.
package yanglibrary

import (
	"context"
	"crypto/sha1"
	"fmt"

	"github.com/apteryx-rest/gateway/internal/schema"
	"github.com/apteryx-rest/gateway/internal/store"
	"github.com/apteryx-rest/gateway/internal/tree"
)

// capabilities is the fixed set of RESTCONF query-parameter capabilities
// this gateway implements, published under restconf-state/capabilities.
// Extend this list alongside any new query.Params support.
var capabilities = []string{
	"urn:ietf:params:restconf:capability:defaults:1.0",
	"urn:ietf:params:restconf:capability:depth:1.0",
	"urn:ietf:params:restconf:capability:fields:1.0",
	"urn:ietf:params:restconf:capability:with-defaults:1.0",
}

// Publish writes the yang-library module list and content-id, plus the
// restconf-state capability list, into s. The corresponding
// ietf-yang-library and ietf-restconf-monitoring modules must already be
// part of the loaded schema (bundled in the operator's -m search
// directories like any other vendor module) for the published content to
// be reachable through the RESTCONF surface; Publish only populates the
// store side.
func Publish(ctx context.Context, s store.Client, f *schema.Facade) error {
	if err := publishModuleSet(ctx, s, f); err != nil {
		return fmt.Errorf("yanglibrary: module-set: %w", err)
	}
	if err := publishCapabilities(ctx, s); err != nil {
		return fmt.Errorf("yanglibrary: capabilities: %w", err)
	}
	return nil
}

func publishModuleSet(ctx context.Context, s store.Client, f *schema.Facade) error {
	t := tree.New("")
	lib := t.NewChild(t.Root(), "ietf-yang-library:yang-library")
	set := t.NewChild(lib, "module-set")
	modules := t.NewChild(set, "module")
	for _, m := range f.LoadedModels() {
		inst := t.NewChild(modules, m.Name)
		t.NewLeaf(inst, "name", m.Name)
		t.NewLeaf(inst, "revision", m.Revision)
		t.NewLeaf(inst, "namespace", m.Namespace)
	}
	t.NewLeaf(lib, "content-id", contentID(f))
	return s.WriteSubtree(ctx, "", t)
}

func publishCapabilities(ctx context.Context, s store.Client) error {
	t := tree.New("")
	state := t.NewChild(t.Root(), "ietf-restconf-monitoring:restconf-state")
	caps := t.NewChild(state, "capabilities")
	capList := t.NewChild(caps, "capability")
	for _, c := range capabilities {
		t.NewChild(capList, c)
	}
	return s.WriteSubtree(ctx, "", t)
}

// contentID hashes the loaded modules' names and revisions into a hex
// digest, so the same module set always yields the same content-id.
func contentID(f *schema.Facade) string {
	h := sha1.New()
	for _, m := range f.LoadedModels() {
		fmt.Fprintf(h, "%s@%s;", m.Name, m.Revision)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
