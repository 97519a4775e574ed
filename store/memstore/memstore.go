// Package memstore implements an in-process store.BlockStore backed by a
// guarded map. It is the default backend for tests, the CLI's scratch mode,
// and anywhere durability across process restarts is not required.
package memstore

import (
	"context"
	"sync"

	"github.com/ipfs/go-cid"

	"prollydb/block"
	"prollydb/store"
)

func init() {
	store.RegisterBackend("memory", func(string) (store.BlockStore, error) {
		return New(), nil
	})
}

// Store is a concurrency-safe, in-memory BlockStore.
type Store struct {
	mu     sync.RWMutex
	blocks map[cid.Cid][]byte
}

var _ store.BlockStore = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{blocks: make(map[cid.Cid][]byte)}
}

// Get implements store.BlockStore.
func (s *Store) Get(_ context.Context, c cid.Cid) (block.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blocks[c]
	if !ok {
		return block.Block{}, store.ErrNotFound
	}
	return block.Block{CID: c, Bytes: b}, nil
}

// Put implements store.BlockStore. It is idempotent by CID.
func (s *Store) Put(_ context.Context, b block.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blocks[b.CID]; ok {
		return nil
	}
	s.blocks[b.CID] = b.Bytes
	return nil
}

// Len reports the number of distinct blocks held, mostly useful in tests.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocks)
}
