package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prollydb/block"
	"prollydb/store"
	"prollydb/store/memstore"
)

func TestGetAfterPutReturnsBlock(t *testing.T) {
	ctx := context.Background()
	inner := memstore.New()
	c, err := New(inner, 10)
	require.NoError(t, err)

	blk, err := block.New([]byte("cached"))
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, blk))

	got, err := c.Get(ctx, blk.CID)
	require.NoError(t, err)
	assert.Equal(t, blk.Bytes, got.Bytes)
}

func TestGetMissPropagatesNotFound(t *testing.T) {
	c, err := New(memstore.New(), 10)
	require.NoError(t, err)

	blk, err := block.New([]byte("absent"))
	require.NoError(t, err)

	_, err = c.Get(context.Background(), blk.CID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetFallsThroughToInnerStore(t *testing.T) {
	ctx := context.Background()
	inner := memstore.New()
	blk, err := block.New([]byte("in inner only"))
	require.NoError(t, err)
	require.NoError(t, inner.Put(ctx, blk))

	c, err := New(inner, 10)
	require.NoError(t, err)

	got, err := c.Get(ctx, blk.CID)
	require.NoError(t, err)
	assert.Equal(t, blk.Bytes, got.Bytes)
}
