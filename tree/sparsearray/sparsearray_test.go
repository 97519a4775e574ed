package sparsearray

import (
	"context"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prollydb/chunker"
	"prollydb/codec"
	"prollydb/schema"
	"prollydb/store/memstore"
)

func TestInsertGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	bs := memstore.New()
	split := chunker.New(2)

	root := cid.Undef
	row := schema.Row{codec.NewInt(1), codec.NewVarchar("Mikeal")}
	newRoot, blocks, err := Insert(ctx, bs, root, 1, row, split)
	require.NoError(t, err)
	for _, b := range blocks {
		require.NoError(t, bs.Put(ctx, b))
	}

	got, ok, err := Get(ctx, bs, newRoot, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, row, got)
}

func TestInsertRejectsOutOfOrderRowID(t *testing.T) {
	ctx := context.Background()
	bs := memstore.New()
	split := chunker.New(2)

	root, blocks, err := Insert(ctx, bs, cid.Undef, 5, schema.Row{codec.NewInt(1)}, split)
	require.NoError(t, err)
	for _, b := range blocks {
		require.NoError(t, bs.Put(ctx, b))
	}

	_, _, err = Insert(ctx, bs, root, 5, schema.Row{codec.NewInt(2)}, split)
	assert.ErrorIs(t, err, ErrOutOfOrder)

	_, _, err = Insert(ctx, bs, root, 3, schema.Row{codec.NewInt(2)}, split)
	assert.ErrorIs(t, err, ErrOutOfOrder)
}

func TestScanAscendingAndDescending(t *testing.T) {
	ctx := context.Background()
	bs := memstore.New()
	split := chunker.New(1)

	root := cid.Undef
	for i := schema.RowID(1); i <= 30; i++ {
		newRoot, blocks, err := Insert(ctx, bs, root, i, schema.Row{codec.NewInt(int64(i))}, split)
		require.NoError(t, err)
		for _, b := range blocks {
			require.NoError(t, bs.Put(ctx, b))
		}
		root = newRoot
	}

	var ids []schema.RowID
	for e, err := range Scan(ctx, bs, root, nil, nil, false) {
		require.NoError(t, err)
		ids = append(ids, e.RowID)
	}
	require.Len(t, ids, 30)
	for i, id := range ids {
		assert.Equal(t, schema.RowID(i+1), id)
	}

	lo, hi := schema.RowID(10), schema.RowID(15)
	var bounded []schema.RowID
	for e, err := range Scan(ctx, bs, root, &lo, &hi, false) {
		require.NoError(t, err)
		bounded = append(bounded, e.RowID)
	}
	assert.Equal(t, []schema.RowID{10, 11, 12, 13, 14, 15}, bounded)

	var desc []schema.RowID
	for e, err := range Scan(ctx, bs, root, nil, nil, true) {
		require.NoError(t, err)
		desc = append(desc, e.RowID)
	}
	require.Len(t, desc, 30)
	assert.Equal(t, schema.RowID(30), desc[0])
	assert.Equal(t, schema.RowID(1), desc[29])
}

func TestGetMissingReturnsNotOK(t *testing.T) {
	ctx := context.Background()
	bs := memstore.New()
	_, ok, err := Get(ctx, bs, cid.Undef, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}
