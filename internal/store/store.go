// Package store declares the boundary between the request pipeline and the
// external hierarchical datastore. Client is an opaque capability: the
// gateway never assumes anything about how reads, writes, or watches are
// actually implemented beyond this interface's contract.
package store

import (
	"context"
	"errors"

	"github.com/apteryx-rest/gateway/internal/tree"
)

// ErrConflict is returned by CompareAndSet when the path already holds a
// value the caller asserted should be absent (the RESTCONF "data-exists"
// case).
var ErrConflict = errors.New("store: path already exists")

// Event is delivered to a Watch callback when some node beneath the
// watched path changes. Path is slash-delimited and relative to the store
// root. Changed is a borrowed subtree rooted at the changed node; the
// callback must finish using it before returning.
type Event struct {
	Path      string
	Changed   *tree.Tree
	Timestamp uint64
}

// Client is the external store capability: read-subtree, write-subtree,
// compare-and-set, search-children, timestamp-of-path, and watch-callbacks.
type Client interface {
	// ReadSubtree returns the subtree rooted at path, or an empty tree if
	// nothing is stored there. depth <= 0 means unlimited.
	ReadSubtree(ctx context.Context, path string, depth int) (*tree.Tree, error)

	// WriteSubtree merges t into the store at path. A leaf with an empty
	// value deletes the stored node at that path together with everything
	// beneath it.
	WriteSubtree(ctx context.Context, path string, t *tree.Tree) error

	// CompareAndSet writes t at path only if the path's current timestamp
	// equals expect (0 meaning "must not yet exist"). Returns ErrConflict
	// on mismatch.
	CompareAndSet(ctx context.Context, path string, t *tree.Tree, expect uint64) error

	// SearchChildren returns the sorted names of path's immediate readable
	// children that currently exist.
	SearchChildren(ctx context.Context, path string) ([]string, error)

	// TimestampOfPath returns the store's monotonic microsecond timestamp
	// for the last change affecting path (0 if path has never been set).
	TimestampOfPath(ctx context.Context, path string) (uint64, error)

	// Watch registers fn to be called whenever a node at or beneath
	// watchPath changes, until the returned cancel func is invoked.
	Watch(watchPath string, fn func(Event)) (cancel func(), err error)
}
