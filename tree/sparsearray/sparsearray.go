// Package sparsearray implements the row store: a persistent tree mapping
// RowID to Row, keyed by an 8-byte big-endian encoding of the RowID so that
// byte-wise key order matches numeric order. Grounded on tree.Insert/Scan,
// the shared persistent node walk in ../insert.go and ../scan.go.
package sparsearray

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"iter"

	"github.com/ipfs/go-cid"

	"prollydb/block"
	"prollydb/chunker"
	"prollydb/codec"
	"prollydb/schema"
	"prollydb/store"
	"prollydb/tree"
)

// ErrOutOfOrder is returned by Insert when rowID does not exceed every key
// already present in the tree, matching spec.md §4.4's append-only contract.
var ErrOutOfOrder = errors.New("sparsearray: rowID must exceed every existing key")

func keyBytes(id schema.RowID) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func decodeKey(b []byte) schema.RowID {
	return schema.RowID(binary.BigEndian.Uint64(b))
}

func bytesCompare(a, b []byte) (int, error) {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1, nil
			}
			return 1, nil
		}
	}
	switch {
	case len(a) < len(b):
		return -1, nil
	case len(a) > len(b):
		return 1, nil
	default:
		return 0, nil
	}
}

func config(split chunker.Splitter) tree.Config {
	if split == nil {
		split = chunker.Default
	}
	return tree.Config{Compare: bytesCompare, Split: split}
}

type rowPayload struct {
	Values []codec.Value `cbor:"v"`
}

func encodeRow(r schema.Row) ([]byte, error) {
	b, err := codec.Encode(rowPayload{Values: r})
	if err != nil {
		return nil, err
	}
	return b.Bytes, nil
}

func decodeRow(b []byte) (schema.Row, error) {
	var p rowPayload
	if err := codec.Decode(b, &p); err != nil {
		return nil, err
	}
	return schema.Row(p.Values), nil
}

// Get looks up the row stored at rowID. ok is false if no such row exists.
func Get(ctx context.Context, bs store.BlockStore, root cid.Cid, rowID schema.RowID) (schema.Row, bool, error) {
	v, ok, err := tree.Get(ctx, bs, root, keyBytes(rowID), bytesCompare)
	if err != nil || !ok {
		return nil, ok, err
	}
	row, err := decodeRow(v)
	return row, true, err
}

// maxKey returns the greatest RowID present in root's tree, with ok=false
// for an empty tree.
func maxKey(ctx context.Context, bs store.BlockStore, root cid.Cid) (schema.RowID, bool, error) {
	if !root.Defined() {
		return 0, false, nil
	}
	var last schema.RowID
	found := false
	for e, err := range tree.Scan(ctx, bs, root, tree.Bound{}, bytesCompare, true) {
		if err != nil {
			return 0, false, err
		}
		last = decodeKey(e.Key)
		found = true
		break
	}
	return last, found, nil
}

// Insert adds row at rowID, which must exceed every key already present
// (spec.md §4.4). It returns the new root and every block the caller must
// persist via store.BlockStore.Put for the mutation to be durable.
func Insert(ctx context.Context, bs store.BlockStore, root cid.Cid, rowID schema.RowID, row schema.Row, split chunker.Splitter) (cid.Cid, []block.Block, error) {
	if max, ok, err := maxKey(ctx, bs, root); err != nil {
		return cid.Undef, nil, err
	} else if ok && rowID <= max {
		return cid.Undef, nil, fmt.Errorf("%w: got %d, max is %d", ErrOutOfOrder, rowID, max)
	}
	val, err := encodeRow(row)
	if err != nil {
		return cid.Undef, nil, err
	}
	return tree.Insert(ctx, bs, root, keyBytes(rowID), val, config(split))
}

// Entry is one (RowID, Row) pair produced by Scan.
type Entry struct {
	RowID schema.RowID
	Row   schema.Row
}

// Scan yields every (RowID, Row) pair in root whose RowID falls within
// [lo, hi] (either bound may be nil for unbounded), ascending or
// descending, as a pull-based iter.Seq2 matching tree.Scan's shape.
func Scan(ctx context.Context, bs store.BlockStore, root cid.Cid, lo, hi *schema.RowID, descending bool) iter.Seq2[Entry, error] {
	bound := tree.Bound{}
	if lo != nil {
		bound.Lower = keyBytes(*lo)
	}
	if hi != nil {
		bound.Upper = keyBytes(*hi)
	}
	return func(yield func(Entry, error) bool) {
		for e, err := range tree.Scan(ctx, bs, root, bound, bytesCompare, descending) {
			if err != nil {
				yield(Entry{}, err)
				return
			}
			row, err := decodeRow(e.Value)
			if err != nil {
				yield(Entry{}, err)
				return
			}
			if !yield(Entry{RowID: decodeKey(e.Key), Row: row}, nil) {
				return
			}
		}
	}
}
