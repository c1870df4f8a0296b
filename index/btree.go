// Package index implements an ordered, in-memory map from a single
// typed key (value.Value) to a common.RID, supporting point lookup,
// insert with node splitting, delete with borrow/merge, and an ordered
// full scan over the leaf chain.
//
// The tree never persists across restarts: Create only touches the
// backing file to stake out its name, and everything else lives in the
// arena in memory.
package index

import (
	"fmt"
	"os"

	"github.com/ado-labs/pagestore/buffer"
	"github.com/ado-labs/pagestore/common"
	"github.com/ado-labs/pagestore/storage"
	"github.com/ado-labs/pagestore/value"
	"go.uber.org/zap"
)

// openPoolCapacity is the fixed buffer-pool size Open attaches to the
// backing device, matching the original's openBtree. The tree never
// pins a page through this pool: the index lives entirely in the
// in-memory arena (see O-1), but Open still pays the cost of standing
// the pool up so a caller inspecting device/pool state after Open sees
// what the original would have shown.
const openPoolCapacity = 1000

type keyT = value.Value

// Tree is one typed-key B+ tree index.
type Tree struct {
	name    string
	keyType value.Type
	order   int // max children per internal node; max keys per node is order-1

	nodes []node
	free  []nodeID
	root  nodeID

	numEntries int
	log        *zap.Logger

	// device/pool are stood up by Open to mirror the original's
	// openBtree, which attaches a buffer pool to the backing file but
	// never pins a page through it (see O-1). Nil after Create, since
	// Create never opens the file for page access either.
	device *storage.Device
	pool   *buffer.Pool
}

// Option configures a Tree at construction time.
type Option func(*Tree)

// WithLogger attaches a structured logger; the zero value logs nothing.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tree) { t.log = l }
}

// minOrder is the smallest order that can hold a valid split point.
const minOrder = 3

// maxOrder bounds how wide a node may fan out. The tree is never paged
// to disk, but the bound keeps ErrOrderTooHigh meaningful: a node wider
// than a page could sensibly hold is still rejected, matching the
// original's page-size-derived ceiling.
const maxOrder = storage.PageSize / 8

// Create stakes out name as the tree's backing file (created empty,
// truncating any existing file) and returns a new, empty tree of the
// given key type. n
// is the caller-facing order parameter; internally order = n+2.
func Create(name string, keyType value.Type, n int, opts ...Option) (*Tree, error) {
	order := n + 2
	if order < minOrder {
		return nil, fmt.Errorf("create tree %q: order %d: %w", name, order, common.ErrOrderTooHigh)
	}
	if order > maxOrder {
		return nil, fmt.Errorf("create tree %q: order %d: %w", name, order, common.ErrOrderTooHigh)
	}

	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("create tree %q: %w", name, common.ErrFileNotFound)
	}
	f.Close()

	t := &Tree{name: name, keyType: keyType, order: order, root: noNode}
	for _, opt := range opts {
		opt(t)
	}
	if t.log == nil {
		t.log = zap.NewNop()
	}
	t.log.Debug("tree created", zap.String("file", name), zap.Int("order", order), zap.String("keyType", keyType.String()))
	return t, nil
}

// Open checks that the tree's backing file exists, goes through Create
// (which truncates it), re-opens it as a storage.Device and attaches a
// buffer pool of capacity 1000 with FIFO eviction to it, matching the original's
// openBtree. The tree itself is always empty on open: the pool is
// never used to read tree state back (see O-1).
func Open(name string, keyType value.Type, n int, opts ...Option) (*Tree, error) {
	if _, err := os.Stat(name); err != nil {
		return nil, fmt.Errorf("open tree %q: %w", name, common.ErrFileNotFound)
	}
	t, err := Create(name, keyType, n, opts...)
	if err != nil {
		return nil, err
	}

	device, err := storage.Open(name, storage.WithLogger(t.log))
	if err != nil {
		return nil, fmt.Errorf("open tree %q: %w", name, err)
	}
	pool, err := buffer.New(device, openPoolCapacity, buffer.NewFIFO(), buffer.WithLogger(t.log))
	if err != nil {
		device.Close()
		return nil, fmt.Errorf("open tree %q: %w", name, err)
	}
	t.device = device
	t.pool = pool
	return t, nil
}

// Close flushes and releases the buffer pool Open attached, if any, and
// closes its device handle. There is no tree state to flush: the index
// is never persisted (see O-1).
func (t *Tree) Close() error {
	if t.pool == nil {
		return nil
	}
	if err := t.pool.Shutdown(); err != nil {
		return fmt.Errorf("close tree %q: %w", t.name, err)
	}
	if err := t.device.Close(); err != nil {
		return fmt.Errorf("close tree %q: %w", t.name, err)
	}
	t.pool = nil
	t.device = nil
	return nil
}

// Delete removes the tree's backing file.
func Delete(name string) error {
	if err := os.Remove(name); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("delete tree %q: %w", name, common.ErrFileNotFound)
		}
		return err
	}
	return nil
}

// KeyType reports the type every key in the tree must share.
func (t *Tree) KeyType() value.Type { return t.keyType }

// NumNodes reports how many nodes are currently live in the arena.
func (t *Tree) NumNodes() int { return t.liveNodes() }

// NumEntries reports how many key/RID pairs the tree currently holds.
func (t *Tree) NumEntries() int { return t.numEntries }

func (t *Tree) checkKind(k keyT) error {
	if k.Kind != t.keyType {
		return fmt.Errorf("key kind %s does not match tree key type %s", k.Kind, t.keyType)
	}
	return nil
}

// cut returns ceil(n/2), the canonical B+ tree split point.
func cut(n int) int {
	if n%2 == 0 {
		return n / 2
	}
	return n/2 + 1
}
