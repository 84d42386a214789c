// Package subscribe implements the streaming-GET subscription engine: a
// process-wide, mutex-protected registry of watch requests, each backed
// by a store-level watch callback and framed as Server-Sent Events or
// newline-delimited JSON.
package subscribe

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/freeconf/restconf"

	"github.com/apteryx-rest/gateway/internal/codec"
	"github.com/apteryx-rest/gateway/internal/restreq"
	"github.com/apteryx-rest/gateway/internal/schema"
	"github.com/apteryx-rest/gateway/internal/store"
	"github.com/apteryx-rest/gateway/internal/tree"
)

// pollInterval is the subscription loop's liveness-check cadence.
const pollInterval = time.Second

// Registration is one live watch request: the schema subtree and flags
// needed to render a store.Event the way the subscribing client asked
// for, plus the function that unregisters the underlying store watch.
type Registration struct {
	ID        int
	Path      string
	WatchPath string
	SchemaIdx int
	Flags     codec.Flags
	cancel    func()
	live      bool
}

// Engine owns the registration list and the single mutex every list
// mutation and every event delivery serialises through.
type Engine struct {
	facade *schema.Facade
	store  store.Client

	mu     chanMutex
	regs   map[int]*Registration
	nextID int
}

// chanMutex is a plain mutex; named to make the single-mutex discipline
// explicit at call sites (lock held only while mutating the list or while
// formatting and writing one event).
type chanMutex struct{ ch chan struct{} }

func newChanMutex() chanMutex {
	m := chanMutex{ch: make(chan struct{}, 1)}
	m.ch <- struct{}{}
	return m
}
func (m chanMutex) Lock()   { <-m.ch }
func (m chanMutex) Unlock() { m.ch <- struct{}{} }

// NewEngine returns an Engine with an empty registration list.
func NewEngine(f *schema.Facade, s store.Client) *Engine {
	return &Engine{facade: f, store: s, mu: newChanMutex(), regs: map[int]*Registration{}}
}

// Serve registers a watch for schemaIdx/path, writes the streaming
// response headers, and blocks until the request's context is cancelled
// (net/http cancels it when the client disconnects), at which point the
// registration is torn down. A one-second ticker wakes the loop but
// performs no check of its own.
func (e *Engine) Serve(ctx context.Context, w http.ResponseWriter, path string, schemaIdx int, flags codec.Flags, accept restreq.MediaType) error {
	watchPath := path
	if !e.facade.IsLeaf(schemaIdx) {
		watchPath = path + "/*"
	}

	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", accept.ContentType())
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if flusher != nil {
		flusher.Flush()
	}

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	reg := &Registration{ID: id, Path: path, WatchPath: watchPath, SchemaIdx: schemaIdx, Flags: flags, live: true}
	e.regs[id] = reg
	e.mu.Unlock()

	cancelWatch, err := e.store.Watch(watchPath, func(ev store.Event) {
		e.deliver(reg, ev, w, accept, flusher)
	})
	if err != nil {
		e.mu.Lock()
		delete(e.regs, id)
		e.mu.Unlock()
		return err
	}
	reg.cancel = cancelWatch

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.teardown(id)
			return nil
		case <-ticker.C:
			// no-op wake-up; delivery happens from the watch callback.
		}
	}
}

func (e *Engine) deliver(reg *Registration, ev store.Event, w http.ResponseWriter, accept restreq.MediaType, flusher http.Flusher) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !reg.live {
		return
	}

	t := tree.New(lastSegment(reg.Path))
	buildEventTree(t, t.Root(), reg.Path, ev.Path, ev.Changed)
	value := codec.Encode(e.facade, reg.SchemaIdx, t, t.Root(), reg.Flags)

	// RFC 8040's subscribed-event framing wraps the changed content in an
	// ietf-restconf:notification envelope carrying the change's event time.
	if reg.Flags.RESTConf {
		value = map[string]interface{}{
			"ietf-restconf:notification": map[string]interface{}{
				"eventTime": time.UnixMicro(int64(ev.Timestamp)).UTC().Format(restconf.EventTimeFormat),
				lastSegment(reg.Path): value,
			},
		}
	}

	body, err := json.Marshal(value)
	if err != nil {
		return
	}
	w.Write(FrameEvent(accept, body))
	if flusher != nil {
		flusher.Flush()
	}
}

// buildEventTree re-nests a changed leaf beneath the subscription root so
// the delivered event has the same shape a full read would: container
// nodes for every path segment between subRoot and the changed leaf, with
// the leaf's value copied in at the end.
func buildEventTree(t *tree.Tree, rootIdx int, subRoot, changedPath string, changed *tree.Tree) {
	if changed == nil {
		return
	}
	rel := strings.TrimPrefix(strings.TrimPrefix(changedPath, subRoot), "/")
	idx := rootIdx
	segs := splitPath(rel)
	for _, seg := range segs {
		idx = t.NewChild(idx, seg)
	}
	t.SetValue(idx, strPtrIfSet(changed))
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func strPtrIfSet(changed *tree.Tree) *string {
	if !changed.HasValue(changed.Root()) {
		return nil
	}
	v := changed.Value(changed.Root())
	return &v
}

func lastSegment(path string) string {
	segs := splitPath(path)
	if len(segs) == 0 {
		return path
	}
	return segs[len(segs)-1]
}

func (e *Engine) teardown(id int) {
	e.mu.Lock()
	reg, ok := e.regs[id]
	if ok {
		reg.live = false
		delete(e.regs, id)
	}
	e.mu.Unlock()
	if ok && reg.cancel != nil {
		reg.cancel()
	}
}
