// Package schema describes table shapes: column names, their declared
// types, and the row/rowid vocabulary every other package builds on.
// Narrowed from the teacher's internal/core.Column/Table (which spans nine
// SQL dialects' worth of options) down to the two scalar types prollydb
// actually stores.
package schema

import (
	"errors"
	"fmt"

	"prollydb/codec"
)

// DataType is the declared type of a column.
type DataType uint8

const (
	TypeInt DataType = iota
	TypeVarchar
)

func (t DataType) String() string {
	switch t {
	case TypeInt:
		return "INT"
	case TypeVarchar:
		return "VARCHAR"
	default:
		return "UNKNOWN"
	}
}

// Kind returns the codec.Kind a value of this DataType is encoded with.
func (t DataType) Kind() codec.Kind {
	if t == TypeVarchar {
		return codec.KindVarchar
	}
	return codec.KindInt
}

// Column describes one column: its name, declared type, and (for VARCHAR)
// its maximum length.
type Column struct {
	Name    string
	Type    DataType
	Length  int // VARCHAR(n); unused for INT
}

// Table is the declared shape of a table: an ordered list of columns. Column
// order is significant, matching INSERT's left-fill-by-position semantics.
type Table struct {
	Name    string
	Columns []Column
}

// ErrUnknownColumn is returned when a name doesn't match any declared column.
var ErrUnknownColumn = errors.New("schema: unknown column")

// ErrDuplicateColumn is returned by NewTable when two columns share a name.
var ErrDuplicateColumn = errors.New("schema: duplicate column name")

// ColumnIndex returns the position of name among t's columns.
func (t Table) ColumnIndex(name string) (int, error) {
	for i, c := range t.Columns {
		if c.Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q in table %q", ErrUnknownColumn, name, t.Name)
}

// Column returns the declared Column for name.
func (t Table) Column(name string) (Column, error) {
	i, err := t.ColumnIndex(name)
	if err != nil {
		return Column{}, err
	}
	return t.Columns[i], nil
}

// NewTable validates and constructs a Table from a name and column list.
func NewTable(name string, cols []Column) (Table, error) {
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if _, ok := seen[c.Name]; ok {
			return Table{}, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return Table{Name: name, Columns: cols}, nil
}

// RowID identifies a row within a table's SparseArray, assigned in strictly
// increasing insertion order starting at 0 (table.Create's NextRowID).
type RowID uint64

// Row is one table row: one codec.Value per declared column, in column
// order. A short Row (from a partial-column INSERT) is left-filled with
// codec.Null by table.Insert before it reaches the row tree.
type Row []codec.Value
