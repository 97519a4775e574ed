package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prollydb/block"
	"prollydb/store"
)

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	blk, err := block.New([]byte("hello"))
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, blk))

	got, err := s.Get(ctx, blk.CID)
	require.NoError(t, err)
	assert.Equal(t, blk.Bytes, got.Bytes)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := New()
	blk, err := block.New([]byte("missing"))
	require.NoError(t, err)

	_, err = s.Get(context.Background(), blk.CID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestPutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	blk, err := block.New([]byte("dup"))
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, blk))
	require.NoError(t, s.Put(ctx, blk))
	assert.Equal(t, 1, s.Len())
}

func TestOpenViaRegistry(t *testing.T) {
	bs, err := store.Open("memory", "")
	require.NoError(t, err)
	assert.NotNil(t, bs)
}
