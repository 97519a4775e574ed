// Package store defines the BlockStore contract that every persistent tree,
// table, and database in prollydb is driven against, plus a name-keyed
// registry so a concrete backend can be selected by configuration.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ipfs/go-cid"

	"prollydb/block"
)

// ErrNotFound is returned by Get when no block exists for the requested CID.
var ErrNotFound = errors.New("store: block not found")

// BlockStore is the sole persistence collaborator the core relies on.
// Content addressing means Put is idempotent by CID; the store, not the
// core, is responsible for durability.
type BlockStore interface {
	// Get fetches the block for c, or ErrNotFound if absent.
	Get(ctx context.Context, c cid.Cid) (block.Block, error)
	// Put persists b; it is a no-op if a block with the same CID already
	// exists.
	Put(ctx context.Context, b block.Block) error
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func(dsn string) (BlockStore, error){}
)

// RegisterBackend adds a named BlockStore constructor to the registry. Each
// backend package calls this from an init() func, mirroring the teacher's
// dialect-registration convention.
func RegisterBackend(name string, ctor func(dsn string) (BlockStore, error)) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = ctor
}

// Open constructs the named backend with the given DSN (ignored by backends
// that need none, such as "memory").
func Open(name, dsn string) (BlockStore, error) {
	registryMu.RLock()
	ctor, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("store: unknown backend %q", name)
	}
	return ctor(dsn)
}
