package tree

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prollydb/chunker"
	"prollydb/store/memstore"
)

func cidUndef() cid.Cid { return cid.Undef }

func u64Key(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

func bytesCmp(a, b []byte) (int, error) {
	switch {
	case string(a) < string(b):
		return -1, nil
	case string(a) > string(b):
		return 1, nil
	default:
		return 0, nil
	}
}

func smallWidthConfig() Config {
	return Config{Compare: bytesCmp, Split: chunker.New(1)}
}

func TestInsertGetSingleEntry(t *testing.T) {
	ctx := context.Background()
	bs := memstore.New()
	cfg := smallWidthConfig()

	root, blocks, err := Insert(ctx, bs, cidUndef(), u64Key(1), []byte("row-1"), cfg)
	require.NoError(t, err)
	for _, b := range blocks {
		require.NoError(t, bs.Put(ctx, b))
	}

	v, ok, err := Get(ctx, bs, root, u64Key(1), cfg.Compare)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("row-1"), v)
}

func TestInsertManyEntriesAllRetrievable(t *testing.T) {
	ctx := context.Background()
	bs := memstore.New()
	cfg := smallWidthConfig()

	root := cidUndef()
	const n = 200
	for i := uint64(1); i <= n; i++ {
		newRoot, blks, err := Insert(ctx, bs, root, u64Key(i), []byte{byte(i)}, cfg)
		require.NoError(t, err)
		for _, b := range blks {
			require.NoError(t, bs.Put(ctx, b))
		}
		root = newRoot
	}

	for i := uint64(1); i <= n; i++ {
		v, ok, err := Get(ctx, bs, root, u64Key(i), cfg.Compare)
		require.NoError(t, err)
		require.True(t, ok, "key %d missing", i)
		assert.Equal(t, []byte{byte(i)}, v)
	}

	_, ok, err := Get(ctx, bs, root, u64Key(n+1), cfg.Compare)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInsertReplacesExistingKey(t *testing.T) {
	ctx := context.Background()
	bs := memstore.New()
	cfg := smallWidthConfig()

	root, blocks, err := Insert(ctx, bs, cidUndef(), u64Key(5), []byte("first"), cfg)
	require.NoError(t, err)
	for _, b := range blocks {
		require.NoError(t, bs.Put(ctx, b))
	}
	root, blocks, err = Insert(ctx, bs, root, u64Key(5), []byte("second"), cfg)
	require.NoError(t, err)
	for _, b := range blocks {
		require.NoError(t, bs.Put(ctx, b))
	}

	v, ok, err := Get(ctx, bs, root, u64Key(5), cfg.Compare)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("second"), v)
}

func TestScanAscendingAndDescending(t *testing.T) {
	ctx := context.Background()
	bs := memstore.New()
	cfg := smallWidthConfig()

	root := cidUndef()
	for i := uint64(1); i <= 50; i++ {
		newRoot, blks, err := Insert(ctx, bs, root, u64Key(i), u64Key(i), cfg)
		require.NoError(t, err)
		for _, b := range blks {
			require.NoError(t, bs.Put(ctx, b))
		}
		root = newRoot
	}

	var got []uint64
	for e, err := range Scan(ctx, bs, root, Bound{}, cfg.Compare, false) {
		require.NoError(t, err)
		got = append(got, binary.BigEndian.Uint64(e.Key))
	}
	require.Len(t, got, 50)
	for i := range got {
		assert.Equal(t, uint64(i+1), got[i])
	}

	var desc []uint64
	for e, err := range Scan(ctx, bs, root, Bound{}, cfg.Compare, true) {
		require.NoError(t, err)
		desc = append(desc, binary.BigEndian.Uint64(e.Key))
	}
	require.Len(t, desc, 50)
	for i := range desc {
		assert.Equal(t, uint64(50-i), desc[i])
	}
}

func TestScanBoundedRange(t *testing.T) {
	ctx := context.Background()
	bs := memstore.New()
	cfg := smallWidthConfig()

	root := cidUndef()
	for i := uint64(1); i <= 20; i++ {
		newRoot, blks, err := Insert(ctx, bs, root, u64Key(i), u64Key(i), cfg)
		require.NoError(t, err)
		for _, b := range blks {
			require.NoError(t, bs.Put(ctx, b))
		}
		root = newRoot
	}

	bound := Bound{Lower: u64Key(5), Upper: u64Key(10), UpperExcl: true}
	var got []uint64
	for e, err := range Scan(ctx, bs, root, bound, cfg.Compare, false) {
		require.NoError(t, err)
		got = append(got, binary.BigEndian.Uint64(e.Key))
	}
	assert.Equal(t, []uint64{5, 6, 7, 8, 9}, got)
}

func TestScanEmptyTree(t *testing.T) {
	ctx := context.Background()
	bs := memstore.New()
	cfg := smallWidthConfig()

	var count int
	for _, err := range Scan(ctx, bs, cidUndef(), Bound{}, cfg.Compare, false) {
		require.NoError(t, err)
		count++
	}
	assert.Zero(t, count)
}
