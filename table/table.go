// Package table implements the runtime table: an immutable value pairing a
// schema.Table with the content-addressed roots of its row store and its
// per-column indexes. Every mutation returns a new Table value and the
// blocks that must be persisted for it to take effect, never mutating the
// receiver, mirroring spec.md §4.6's "each mutation yields a new Table"
// contract and the teacher's dialect.Generator "build a new artifact, don't
// mutate" style (internal/dialect/mysql/mysql.go).
package table

import (
	"context"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"

	"prollydb/block"
	"prollydb/chunker"
	"prollydb/codec"
	"prollydb/schema"
	"prollydb/store"
	"prollydb/tree/dbindex"
	"prollydb/tree/sparsearray"
)

// Table is the runtime, tree-backed form of a declared schema.Table.
// RowsRoot and each entry of IndexRoots are the null cid.Undef until the
// first row lands.
type Table struct {
	Schema     schema.Table
	RowsRoot   cid.Cid
	IndexRoots []cid.Cid // parallel to Schema.Columns
	NextRowID  schema.RowID
}

// Create returns an empty Table for sch: no rows, every column's index root
// null.
func Create(sch schema.Table) Table {
	return Table{
		Schema:     sch,
		IndexRoots: make([]cid.Cid, len(sch.Columns)),
		NextRowID:  0,
	}
}

// ErrArity is returned by Insert when more values are supplied than the
// table has columns.
var ErrArity = errors.New("table: too many values for INSERT")

// ErrTypeMismatch is returned by Insert when a value's runtime Kind doesn't
// match its column's declared type.
var ErrTypeMismatch = errors.New("table: value type does not match column type")

// ErrStringTooLong is returned by Insert when a VARCHAR value's length
// exceeds its column's declared length (spec.md §7's ConstraintError kind).
var ErrStringTooLong = errors.New("table: string exceeds declared column length")

// Insert resolves a partial VALUES list by left-filling and padding with
// codec.Null, assigns the next RowID, and updates the row tree and every
// column's index tree. Returns the new Table and every block the caller
// must persist via store.BlockStore.Put.
func Insert(ctx context.Context, bs store.BlockStore, t Table, values []codec.Value, split chunker.Splitter) (Table, []block.Block, error) {
	if len(values) > len(t.Schema.Columns) {
		return Table{}, nil, fmt.Errorf("%w: table %q has %d columns, got %d values",
			ErrArity, t.Schema.Name, len(t.Schema.Columns), len(values))
	}

	row := make(schema.Row, len(t.Schema.Columns))
	for i, col := range t.Schema.Columns {
		if i < len(values) {
			v := values[i]
			if v.Kind != codec.KindNull && v.Kind != col.Type.Kind() {
				return Table{}, nil, fmt.Errorf("%w: column %q is %s, got %s",
					ErrTypeMismatch, col.Name, col.Type, v.Kind)
			}
			if col.Type == schema.TypeVarchar && len(v.Str) > col.Length {
				return Table{}, nil, fmt.Errorf("%w: column %q is VARCHAR(%d), got %d bytes",
					ErrStringTooLong, col.Name, col.Length, len(v.Str))
			}
			row[i] = v
		} else {
			row[i] = codec.Null
		}
	}

	rowID := t.NextRowID
	var blocks []block.Block

	newRowsRoot, rowBlocks, err := sparsearray.Insert(ctx, bs, t.RowsRoot, rowID, row, split)
	if err != nil {
		return Table{}, nil, err
	}
	blocks = append(blocks, rowBlocks...)

	newIndexRoots := make([]cid.Cid, len(t.IndexRoots))
	copy(newIndexRoots, t.IndexRoots)
	for i, v := range row {
		newRoot, idxBlocks, err := dbindex.Insert(ctx, bs, newIndexRoots[i], v, rowID, split)
		if err != nil {
			return Table{}, nil, err
		}
		newIndexRoots[i] = newRoot
		blocks = append(blocks, idxBlocks...)
	}

	return Table{
		Schema:     t.Schema,
		RowsRoot:   newRowsRoot,
		IndexRoots: newIndexRoots,
		NextRowID:  rowID + 1,
	}, blocks, nil
}
