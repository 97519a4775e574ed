package dbindex

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

func buildIndex(t *testing.T, ctx context.Context, bs *memstore.Store, split chunker.Splitter, pairs []struct {
	V codec.Value
	R schema.RowID
}) cid.Cid {
	t.Helper()
	root := cid.Undef
	for _, p := range pairs {
		newRoot, blocks, err := Insert(ctx, bs, root, p.V, p.R, split)
		require.NoError(t, err)
		for _, b := range blocks {
			require.NoError(t, bs.Put(ctx, b))
		}
		root = newRoot
	}
	return root
}

func intPairs(vals ...int64) []struct {
	V codec.Value
	R schema.RowID
} {
	out := make([]struct {
		V codec.Value
		R schema.RowID
	}, len(vals))
	for i, v := range vals {
		out[i] = struct {
			V codec.Value
			R schema.RowID
		}{V: codec.NewInt(v), R: schema.RowID(i + 1)}
	}
	return out
}

func rowIDs(t *testing.T, ctx context.Context, bs *memstore.Store, root cid.Cid, pred Predicate, desc bool) []schema.RowID {
	t.Helper()
	var got []schema.RowID
	for id, err := range Range(ctx, bs, root, pred, desc) {
		require.NoError(t, err)
		got = append(got, id)
	}
	return got
}

func TestRangeEquality(t *testing.T) {
	ctx := context.Background()
	bs := memstore.New()
	split := chunker.New(2)
	root := buildIndex(t, ctx, bs, split, intPairs(3, 1, 4, 1, 5, 9, 2, 6))

	got := rowIDs(t, ctx, bs, root, Predicate{Op: OpEq, Value: codec.NewInt(1)}, false)
	assert.Equal(t, []schema.RowID{2, 4}, got)
}

func TestRangeComparators(t *testing.T) {
	ctx := context.Background()
	bs := memstore.New()
	split := chunker.New(2)
	root := buildIndex(t, ctx, bs, split, intPairs(10, 20, 30, 40, 50))

	lt := rowIDs(t, ctx, bs, root, Predicate{Op: OpLt, Value: codec.NewInt(30)}, false)
	assert.Equal(t, []schema.RowID{1, 2}, lt)

	le := rowIDs(t, ctx, bs, root, Predicate{Op: OpLe, Value: codec.NewInt(30)}, false)
	assert.Equal(t, []schema.RowID{1, 2, 3}, le)

	gt := rowIDs(t, ctx, bs, root, Predicate{Op: OpGt, Value: codec.NewInt(30)}, false)
	assert.Equal(t, []schema.RowID{4, 5}, gt)

	ge := rowIDs(t, ctx, bs, root, Predicate{Op: OpGe, Value: codec.NewInt(30)}, false)
	assert.Equal(t, []schema.RowID{3, 4, 5}, ge)
}

func TestRangeDescending(t *testing.T) {
	ctx := context.Background()
	bs := memstore.New()
	split := chunker.New(2)
	root := buildIndex(t, ctx, bs, split, intPairs(1, 2, 3, 4, 5))

	got := rowIDs(t, ctx, bs, root, Predicate{Op: OpGe, Value: codec.NewInt(0)}, true)
	assert.Equal(t, []schema.RowID{5, 4, 3, 2, 1}, got)
}

func TestRangeVarchar(t *testing.T) {
	ctx := context.Background()
	bs := memstore.New()
	split := chunker.New(2)

	root := cid.Undef
	names := []string{"Rogers", "Mikeal", "Alice", "Zoe"}
	for i, n := range names {
		newRoot, blocks, err := Insert(ctx, bs, root, codec.NewVarchar(n), schema.RowID(i+1), split)
		require.NoError(t, err)
		for _, b := range blocks {
			require.NoError(t, bs.Put(ctx, b))
		}
		root = newRoot
	}

	got := rowIDs(t, ctx, bs, root, Predicate{Op: OpLt, Value: codec.NewVarchar("Rogers")}, false)
	// Alice(3), Mikeal(2) sort before Rogers.
	assert.Equal(t, []schema.RowID{3, 2}, got)
}

func TestRangeUnsupportedOp(t *testing.T) {
	ctx := context.Background()
	bs := memstore.New()
	split := chunker.New(2)
	root := buildIndex(t, ctx, bs, split, intPairs(1))

	var sawErr error
	for _, err := range Range(ctx, bs, root, Predicate{Op: Op(99), Value: codec.NewInt(1)}, false) {
		sawErr = err
	}
	assert.ErrorIs(t, sawErr, ErrUnsupportedOp)
}
