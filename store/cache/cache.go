// Package cache decorates a store.BlockStore with an in-memory LRU of
// decoded... well, raw block bytes. Cached entries are immutable blocks
// addressed by content, so the cache needs no invalidation, only an
// eviction policy, which we leave to the LRU implementation.
package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ipfs/go-cid"

	"prollydb/block"
	"prollydb/store"
)

// DefaultSize is the number of blocks cached when no size is configured.
const DefaultSize = 1000

// Store wraps a store.BlockStore with a bounded LRU of recently seen blocks.
type Store struct {
	inner store.BlockStore
	lru   *lru.Cache[cid.Cid, []byte]
}

var _ store.BlockStore = (*Store)(nil)

// New wraps inner with an LRU cache holding up to size blocks. A size of 0
// uses DefaultSize.
func New(inner store.BlockStore, size int) (*Store, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[cid.Cid, []byte](size)
	if err != nil {
		return nil, err
	}
	return &Store{inner: inner, lru: c}, nil
}

// Get returns the cached block if present, otherwise fetches it from the
// wrapped store and populates the cache. A cache miss silently falls
// through to the store; a store-level ErrNotFound still propagates.
func (s *Store) Get(ctx context.Context, c cid.Cid) (block.Block, error) {
	if b, ok := s.lru.Get(c); ok {
		return block.Block{CID: c, Bytes: b}, nil
	}
	blk, err := s.inner.Get(ctx, c)
	if err != nil {
		return block.Block{}, err
	}
	s.lru.Add(c, blk.Bytes)
	return blk, nil
}

// Put writes through to the wrapped store and populates the cache.
func (s *Store) Put(ctx context.Context, b block.Block) error {
	if err := s.inner.Put(ctx, b); err != nil {
		return err
	}
	s.lru.Add(b.CID, b.Bytes)
	return nil
}
