// Package memstore is an in-memory reference implementation of
// store.Client, intended for tests and local development — never as a
// production datastore. It keeps one tree.Tree as the canonical state plus
// a per-path timestamp map and a mutex-protected watcher list.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/apteryx-rest/gateway/internal/store"
	"github.com/apteryx-rest/gateway/internal/tree"
)

type watcher struct {
	id     int
	prefix string
	fn     func(store.Event)
}

// Store is a single in-process tree guarded by one mutex. Reads and writes
// serialise through it, matching the "assumed to be internally
// thread-safe" contract store.Client documents; watch callbacks run on the
// writing goroutine after the mutex has been released.
type Store struct {
	mu         sync.Mutex
	data       *tree.Tree
	timestamps map[string]uint64
	lastClock  uint64
	watchers   []watcher
	nextID     int
}

// New returns an empty store rooted at name.
func New(name string) *Store {
	return &Store{
		data:       tree.New(name),
		timestamps: map[string]uint64{},
	}
}

// now returns a strictly increasing microsecond timestamp, guarding
// against a system clock that hasn't advanced since the last call.
func (s *Store) now() uint64 {
	t := uint64(time.Now().UnixMicro())
	if t <= s.lastClock {
		t = s.lastClock + 1
	}
	s.lastClock = t
	return t
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func (s *Store) ReadSubtree(ctx context.Context, path string, depth int) (*tree.Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	segs := splitPath(path)
	out := tree.New(leafName(segs, s.data.Name(s.data.Root())))
	srcIdx := s.data.FindPath(s.data.Root(), path)
	if srcIdx == -1 {
		return out, nil
	}
	copySubtree(s.data, srcIdx, out, out.Root(), depth)
	return out, nil
}

func leafName(segs []string, rootName string) string {
	if len(segs) == 0 {
		return rootName
	}
	return segs[len(segs)-1]
}

func copySubtree(src *tree.Tree, srcIdx int, dst *tree.Tree, dstIdx int, depth int) {
	if src.HasValue(srcIdx) {
		dst.SetValue(dstIdx, strPtr(src.Value(srcIdx)))
	}
	if depth == 1 {
		return
	}
	nextDepth := depth
	if nextDepth > 0 {
		nextDepth--
	}
	for _, c := range src.Children(srcIdx) {
		childIdx := dst.NewChild(dstIdx, src.Name(c))
		copySubtree(src, c, dst, childIdx, nextDepth)
	}
}

func strPtr(s string) *string { return &s }

type changedLeaf struct {
	path  string
	value string
}

func (s *Store) WriteSubtree(ctx context.Context, path string, t *tree.Tree) error {
	s.mu.Lock()
	changedLeaves := s.writeLocked(path, t)
	events := make([]store.Event, 0, len(changedLeaves))
	for _, cl := range changedLeaves {
		leaf := tree.New(lastSegment(cl.path))
		leaf.SetValue(leaf.Root(), strPtr(cl.value))
		events = append(events, store.Event{Path: cl.path, Timestamp: s.timestamps[cl.path], Changed: leaf})
	}
	watchers := append([]watcher(nil), s.watchers...)
	s.mu.Unlock()

	s.dispatch(watchers, events)
	return nil
}

func lastSegment(path string) string {
	segs := splitPath(path)
	if len(segs) == 0 {
		return path
	}
	return segs[len(segs)-1]
}

// writeLocked merges t into the store at path, recording a timestamp
// bump for every ancestor of every leaf actually written, and returns the
// leaves that changed. Caller must hold s.mu.
func (s *Store) writeLocked(path string, t *tree.Tree) []changedLeaf {
	base := strings.Trim(path, "/")
	var changed []changedLeaf
	s.mergeInto(base, t, t.Root(), &changed)
	now := s.now()
	for _, cl := range changed {
		s.bumpAncestors(cl.path, now)
	}
	if len(changed) > 0 {
		s.bumpAncestors(base, now)
	}
	return changed
}

func (s *Store) mergeInto(basePath string, t *tree.Tree, idx int, changed *[]changedLeaf) {
	for _, c := range t.Children(idx) {
		name := t.Name(c)
		childPath := name
		if basePath != "" {
			childPath = basePath + "/" + name
		}
		if t.IsLeaf(c) {
			value := t.Value(c)
			dstIdx := s.ensurePath(childPath)
			if value == "" {
				s.deleteLeaf(childPath)
			} else {
				s.data.SetValue(dstIdx, strPtr(value))
			}
			*changed = append(*changed, changedLeaf{path: childPath, value: value})
			continue
		}
		s.mergeInto(childPath, t, c, changed)
	}
}

// ensurePath creates (if absent) every node along path and returns the
// index of the final segment.
func (s *Store) ensurePath(path string) int {
	idx := s.data.Root()
	for _, seg := range splitPath(path) {
		child := s.data.Child(idx, seg)
		if child == -1 {
			child = s.data.NewChild(idx, seg)
		}
		idx = child
	}
	return idx
}

func (s *Store) deleteLeaf(path string) {
	idx := s.data.FindPath(s.data.Root(), path)
	if idx != -1 {
		s.data.FreeSubtree(idx)
	}
}

func (s *Store) bumpAncestors(path string, ts uint64) {
	segs := splitPath(path)
	for i := len(segs); i >= 0; i-- {
		p := strings.Join(segs[:i], "/")
		s.timestamps[p] = ts
	}
}

func (s *Store) CompareAndSet(ctx context.Context, path string, t *tree.Tree, expect uint64) error {
	s.mu.Lock()
	current := s.timestamps[strings.Trim(path, "/")]
	if current != expect {
		s.mu.Unlock()
		return store.ErrConflict
	}
	s.mu.Unlock()
	return s.WriteSubtree(ctx, path, t)
}

func (s *Store) SearchChildren(ctx context.Context, path string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.data.FindPath(s.data.Root(), path)
	if idx == -1 {
		return nil, nil
	}
	var names []string
	for _, c := range s.data.Children(idx) {
		names = append(names, s.data.Name(c))
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) TimestampOfPath(ctx context.Context, path string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timestamps[strings.Trim(path, "/")], nil
}

func (s *Store) Watch(watchPath string, fn func(store.Event)) (func(), error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers = append(s.watchers, watcher{id: id, prefix: strings.Trim(watchPath, "/"), fn: fn})
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		var filtered []watcher
		for _, w := range s.watchers {
			if w.id != id {
				filtered = append(filtered, w)
			}
		}
		s.watchers = filtered
	}
	return cancel, nil
}

func (s *Store) dispatch(watchers []watcher, events []store.Event) {
	for _, ev := range events {
		for _, w := range watchers {
			if matchesWatch(w.prefix, ev.Path) {
				w.fn(ev)
			}
		}
	}
}

func matchesWatch(prefix, path string) bool {
	prefix = strings.TrimSuffix(prefix, "/*")
	if prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
