// Package dbindex implements the per-column index tree: a persistent set of
// (Value, RowID) pairs ordered primarily by codec.Compare on Value,
// secondarily by RowID, so a Range query over a column's values can be
// answered by a single ordered tree walk. Grounded on tree.Insert/Scan, the
// same shared persistent node walk sparsearray builds on.
package dbindex

import (
	"context"
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

type keyPayload struct {
	Value codec.Value  `cbor:"val"`
	RowID schema.RowID `cbor:"row"`
}

func encodeKey(v codec.Value, id schema.RowID) ([]byte, error) {
	b, err := codec.Encode(keyPayload{Value: v, RowID: id})
	if err != nil {
		return nil, err
	}
	return b.Bytes, nil
}

func decodeKey(b []byte) (codec.Value, schema.RowID, error) {
	var p keyPayload
	if err := codec.Decode(b, &p); err != nil {
		return codec.Value{}, 0, err
	}
	return p.Value, p.RowID, nil
}

// compare orders two encoded (Value, RowID) keys by Value first, RowID
// second. Cross-type Value comparisons propagate codec.ErrTypeMismatch;
// callers that only ever insert/query one column's worth of keys never
// trigger it, since a column is single-typed.
func compare(a, b []byte) (int, error) {
	va, ra, err := decodeKey(a)
	if err != nil {
		return 0, err
	}
	vb, rb, err := decodeKey(b)
	if err != nil {
		return 0, err
	}
	c, err := codec.Compare(va, vb)
	if err != nil {
		return 0, err
	}
	if c != 0 {
		return c, nil
	}
	switch {
	case ra < rb:
		return -1, nil
	case ra > rb:
		return 1, nil
	default:
		return 0, nil
	}
}

func config(split chunker.Splitter) tree.Config {
	if split == nil {
		split = chunker.Default
	}
	return tree.Config{Compare: compare, Split: split}
}

// Insert adds (value, rowID) to the index rooted at root. Returns the new
// root and every block the caller must persist.
func Insert(ctx context.Context, bs store.BlockStore, root cid.Cid, value codec.Value, rowID schema.RowID, split chunker.Splitter) (cid.Cid, []block.Block, error) {
	key, err := encodeKey(value, rowID)
	if err != nil {
		return cid.Undef, nil, err
	}
	return tree.Insert(ctx, bs, root, key, nil, config(split))
}

// Op is a WHERE-clause comparison operator over a single column.
type Op uint8

const (
	OpEq Op = iota
	OpLt
	OpLe
	OpGt
	OpGe
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return "?"
	}
}

// Predicate is a single column comparison (col OP value), already resolved
// to the column's index; the planner is responsible for producing one per
// conjunct of a DNF-normalized WHERE clause.
type Predicate struct {
	Op    Op
	Value codec.Value
}

// ErrUnsupportedOp is returned by Range for an Op it doesn't recognize.
var ErrUnsupportedOp = fmt.Errorf("dbindex: unsupported operator")

// boundFor translates pred into the [Lower, Upper] range over (Value,
// RowID) keys that answers it. RowID has no influence on pred, so the
// bound's Value endpoints ignore RowID by bracketing it: the lower
// endpoint uses RowID 0 (no RowID sorts below it) and the upper endpoint
// uses the maximum RowID, so every row sharing the boundary Value is
// included or excluded as a whole rather than split mid-value.
func boundFor(pred Predicate) (tree.Bound, error) {
	const maxRowID = schema.RowID(^uint64(0))
	switch pred.Op {
	case OpEq:
		lo, err := encodeKey(pred.Value, 0)
		if err != nil {
			return tree.Bound{}, err
		}
		hi, err := encodeKey(pred.Value, maxRowID)
		if err != nil {
			return tree.Bound{}, err
		}
		return tree.Bound{Lower: lo, Upper: hi}, nil
	case OpLt:
		hi, err := encodeKey(pred.Value, 0)
		if err != nil {
			return tree.Bound{}, err
		}
		return tree.Bound{Upper: hi, UpperExcl: true}, nil
	case OpLe:
		hi, err := encodeKey(pred.Value, maxRowID)
		if err != nil {
			return tree.Bound{}, err
		}
		return tree.Bound{Upper: hi}, nil
	case OpGt:
		lo, err := encodeKey(pred.Value, maxRowID)
		if err != nil {
			return tree.Bound{}, err
		}
		return tree.Bound{Lower: lo, LowerExcl: true}, nil
	case OpGe:
		lo, err := encodeKey(pred.Value, 0)
		if err != nil {
			return tree.Bound{}, err
		}
		return tree.Bound{Lower: lo}, nil
	default:
		return tree.Bound{}, fmt.Errorf("%w: %v", ErrUnsupportedOp, pred.Op)
	}
}

// Range yields every RowID in root's index whose Value satisfies pred, in
// Value order (secondarily RowID order), ascending or descending.
func Range(ctx context.Context, bs store.BlockStore, root cid.Cid, pred Predicate, descending bool) iter.Seq2[schema.RowID, error] {
	return func(yield func(schema.RowID, error) bool) {
		bound, err := boundFor(pred)
		if err != nil {
			yield(0, err)
			return
		}
		for e, err := range tree.Scan(ctx, bs, root, bound, compare, descending) {
			if err != nil {
				yield(0, err)
				return
			}
			_, rowID, err := decodeKey(e.Key)
			if err != nil {
				yield(0, err)
				return
			}
			if !yield(rowID, nil) {
				return
			}
		}
	}
}

// All yields every RowID in root's index in Value order, ascending or
// descending, with no predicate. Used by the executor to drive ORDER BY
// over an indexed column with no WHERE clause to narrow the scan.
func All(ctx context.Context, bs store.BlockStore, root cid.Cid, descending bool) iter.Seq2[schema.RowID, error] {
	return func(yield func(schema.RowID, error) bool) {
		for e, err := range tree.Scan(ctx, bs, root, tree.Bound{}, compare, descending) {
			if err != nil {
				yield(0, err)
				return
			}
			_, rowID, err := decodeKey(e.Key)
			if err != nil {
				yield(0, err)
				return
			}
			if !yield(rowID, nil) {
				return
			}
		}
	}
}
