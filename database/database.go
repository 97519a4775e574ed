// Package database is the top-level facade: a name-keyed map of tables,
// the SQL entry point, and the block encodings that let a Database be
// addressed purely by its root CID. Grounded on the teacher's
// Database.FindTable/root-object shape in internal/core/schema.go, fused
// with the dialect.Generator/Parser write/read split (internal/dialect/mysql/mysql.go)
// into a single SQL entry point, since spec.md §4.7 calls for one.
package database

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/ipfs/go-cid"

	"prollydb/ast"
	"prollydb/block"
	"prollydb/chunker"
	"prollydb/codec"
	"prollydb/executor"
	"prollydb/planner"
	"prollydb/schema"
	"prollydb/store"
	"prollydb/table"
	"prollydb/tree/sparsearray"
)

// Database is an immutable snapshot: every table known by name, each
// holding the content-addressed roots of its own rows and indexes.
type Database struct {
	Tables map[string]table.Table
}

// ErrTableExists is returned by CREATE TABLE naming a table already present.
var ErrTableExists = errors.New("database: table already exists")

// ErrUnknownTable is returned by INSERT/SELECT naming an undeclared table.
var ErrUnknownTable = errors.New("database: unknown table")

// ErrArity is returned by INSERT when the column list and value list
// disagree in length, or an unqualified VALUES list overruns the table.
var ErrArity = errors.New("database: column/value count mismatch")

// Create returns an empty Database: no tables.
func Create() Database {
	return Database{Tables: map[string]table.Table{}}
}

func cloneTables(m map[string]table.Table) map[string]table.Table {
	out := make(map[string]table.Table, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cidBytes(c cid.Cid) []byte {
	if !c.Defined() {
		return nil
	}
	return c.Bytes()
}

func cidFromBytes(b []byte) (cid.Cid, error) {
	if len(b) == 0 {
		return cid.Undef, nil
	}
	return cid.Cast(b)
}

// rootPayload is the canonical wire shape of the Database root block
// (spec.md §6): a map from table name to that table's own block CID.
type rootPayload struct {
	Kind   string            `cbor:"kind"`
	Tables map[string][]byte `cbor:"tables"`
}

type columnPayload struct {
	Name      string `cbor:"name"`
	Type      string `cbor:"schema"`
	Length    int    `cbor:"length,omitempty"`
	IndexRoot []byte `cbor:"indexRoot,omitempty"`
}

// tablePayload is the canonical wire shape of one table's own block
// (spec.md §6): its schema, each column's index root, and the row tree root.
type tablePayload struct {
	Kind     string          `cbor:"kind"`
	Name     string          `cbor:"name"`
	Columns  []columnPayload `cbor:"columns"`
	RowsRoot []byte          `cbor:"rowsRoot,omitempty"`
}

func dataTypeName(t schema.DataType) string {
	if t == schema.TypeVarchar {
		return "VARCHAR"
	}
	return "INT"
}

func dataTypeFromName(s string) (schema.DataType, error) {
	switch s {
	case "INT":
		return schema.TypeInt, nil
	case "VARCHAR":
		return schema.TypeVarchar, nil
	default:
		return 0, fmt.Errorf("database: unrecognized column type %q", s)
	}
}

// encodeTable serializes tb's own block. Callers are responsible for
// persisting it (and for having already persisted every row/index block
// tb's roots point at).
func encodeTable(tb table.Table) (block.Block, error) {
	cols := make([]columnPayload, len(tb.Schema.Columns))
	for i, c := range tb.Schema.Columns {
		cols[i] = columnPayload{
			Name:      c.Name,
			Type:      dataTypeName(c.Type),
			Length:    c.Length,
			IndexRoot: cidBytes(tb.IndexRoots[i]),
		}
	}
	return codec.Encode(tablePayload{
		Kind:     "table",
		Name:     tb.Schema.Name,
		Columns:  cols,
		RowsRoot: cidBytes(tb.RowsRoot),
	})
}

func decodeTable(ctx context.Context, bs store.BlockStore, b block.Block) (table.Table, error) {
	var p tablePayload
	if err := codec.Decode(b.Bytes, &p); err != nil {
		return table.Table{}, err
	}
	cols := make([]schema.Column, len(p.Columns))
	indexRoots := make([]cid.Cid, len(p.Columns))
	for i, c := range p.Columns {
		dt, err := dataTypeFromName(c.Type)
		if err != nil {
			return table.Table{}, err
		}
		cols[i] = schema.Column{Name: c.Name, Type: dt, Length: c.Length}
		root, err := cidFromBytes(c.IndexRoot)
		if err != nil {
			return table.Table{}, err
		}
		indexRoots[i] = root
	}
	sch, err := schema.NewTable(p.Name, cols)
	if err != nil {
		return table.Table{}, err
	}
	rowsRoot, err := cidFromBytes(p.RowsRoot)
	if err != nil {
		return table.Table{}, err
	}

	tb := table.Create(sch)
	tb.RowsRoot = rowsRoot
	tb.IndexRoots = indexRoots
	maxID, ok, err := maxRowID(ctx, bs, rowsRoot)
	if err != nil {
		return table.Table{}, err
	}
	if ok {
		tb.NextRowID = maxID + 1
	}
	return tb, nil
}

// encodeRoot serializes db's root block: every table is assumed already
// encoded and persisted, tableCIDs supplying its block's CID by name.
func encodeRoot(tableCIDs map[string]cid.Cid) (block.Block, error) {
	p := rootPayload{Kind: "db", Tables: make(map[string][]byte, len(tableCIDs))}
	for name, c := range tableCIDs {
		p.Tables[name] = c.Bytes()
	}
	return codec.Encode(p)
}

// From loads the Database rooted at root: the root block plus every
// table's own block, and for each table the path to the last entry of its
// row tree (to recover NextRowID). The rest of the row and index trees is
// resolved lazily, on demand, by the tree walk itself.
func From(ctx context.Context, bs store.BlockStore, root cid.Cid) (Database, error) {
	rb, err := bs.Get(ctx, root)
	if err != nil {
		return Database{}, err
	}
	var rp rootPayload
	if err := codec.Decode(rb.Bytes, &rp); err != nil {
		return Database{}, err
	}

	tables := make(map[string]table.Table, len(rp.Tables))
	for name, cb := range rp.Tables {
		tableCID, err := cid.Cast(cb)
		if err != nil {
			return Database{}, err
		}
		tb, err := bs.Get(ctx, tableCID)
		if err != nil {
			return Database{}, err
		}
		tbl, err := decodeTable(ctx, bs, tb)
		if err != nil {
			return Database{}, err
		}
		tables[name] = tbl
	}
	return Database{Tables: tables}, nil
}

// Persist writes db's root block, and every table block it references, to
// bs and returns the root CID. Unlike a Mutation, no table changed: this is
// how a caller materializes the very first root (an empty Database with no
// tables) or re-persists one already fully in memory.
func Persist(ctx context.Context, bs store.BlockStore, db Database) (cid.Cid, error) {
	tableCIDs := make(map[string]cid.Cid, len(db.Tables))
	for name, tb := range db.Tables {
		tBlock, err := encodeTable(tb)
		if err != nil {
			return cid.Undef, err
		}
		if err := bs.Put(ctx, tBlock); err != nil {
			return cid.Undef, err
		}
		tableCIDs[name] = tBlock.CID
	}

	rootBlock, err := encodeRoot(tableCIDs)
	if err != nil {
		return cid.Undef, err
	}
	if err := bs.Put(ctx, rootBlock); err != nil {
		return cid.Undef, err
	}
	return rootBlock.CID, nil
}

// Mutation is the result of a CREATE TABLE or INSERT: the new Database
// value, and every block the caller must persist (in dependency order,
// children before parents) before the new root CID can be resolved with
// From. The root block itself is always the final entry.
type Mutation struct {
	Database Database
	Blocks   []block.Block
}

// Root returns the CID of m's final block: the new Database root.
func (m Mutation) Root() cid.Cid {
	if len(m.Blocks) == 0 {
		return cid.Undef
	}
	return m.Blocks[len(m.Blocks)-1].CID
}

// Result is the outcome of SQL: exactly one of Mutation or Rows is set,
// depending on whether text was DDL/DML or a SELECT (spec.md §4.7). Columns
// names each entry of a row, in order, and is only set alongside Rows.
type Result struct {
	Mutation *Mutation
	Columns  []string
	Rows     iter.Seq2[schema.Row, error]
}

// SQL parses and executes one statement against db. CREATE TABLE and
// INSERT return a Mutation; SELECT returns a lazy row sequence.
func SQL(ctx context.Context, bs store.BlockStore, db Database, split chunker.Splitter, text string) (Result, error) {
	stmt, err := ast.Parse(text)
	if err != nil {
		return Result{}, err
	}

	switch s := stmt.(type) {
	case *ast.CreateTableStmt:
		m, err := applyCreateTable(ctx, bs, db, s)
		if err != nil {
			return Result{}, err
		}
		return Result{Mutation: &m}, nil
	case *ast.InsertStmt:
		m, err := applyInsert(ctx, bs, db, s, split)
		if err != nil {
			return Result{}, err
		}
		return Result{Mutation: &m}, nil
	case *ast.SelectStmt:
		cols, rows, err := query(ctx, bs, db, s)
		if err != nil {
			return Result{}, err
		}
		return Result{Columns: cols, Rows: rows}, nil
	default:
		return Result{}, fmt.Errorf("%w: %T", ast.ErrUnsupported, stmt)
	}
}

func applyCreateTable(ctx context.Context, bs store.BlockStore, db Database, stmt *ast.CreateTableStmt) (Mutation, error) {
	if _, exists := db.Tables[stmt.Table]; exists {
		return Mutation{}, fmt.Errorf("%w: %q", ErrTableExists, stmt.Table)
	}
	cols := make([]schema.Column, len(stmt.Columns))
	for i, c := range stmt.Columns {
		cols[i] = schema.Column{Name: c.Name, Type: c.Type, Length: c.Length}
	}
	sch, err := schema.NewTable(stmt.Table, cols)
	if err != nil {
		return Mutation{}, err
	}

	newTables := cloneTables(db.Tables)
	newTables[stmt.Table] = table.Create(sch)
	return finishMutation(ctx, bs, newTables, stmt.Table, nil)
}

func applyInsert(ctx context.Context, bs store.BlockStore, db Database, stmt *ast.InsertStmt, split chunker.Splitter) (Mutation, error) {
	tb, ok := db.Tables[stmt.Table]
	if !ok {
		return Mutation{}, fmt.Errorf("%w: %q", ErrUnknownTable, stmt.Table)
	}

	var blocks []block.Block
	for _, row := range stmt.Rows {
		values, err := resolveInsertValues(tb.Schema, stmt.Columns, row)
		if err != nil {
			return Mutation{}, err
		}

		newTb, rowBlocks, err := table.Insert(ctx, bs, tb, values, split)
		if err != nil {
			return Mutation{}, err
		}
		tb = newTb
		blocks = append(blocks, rowBlocks...)
	}

	newTables := cloneTables(db.Tables)
	newTables[stmt.Table] = tb
	return finishMutation(ctx, bs, newTables, stmt.Table, blocks)
}

// resolveInsertValues expands one VALUES tuple into a full-width row, in
// declared column order: a named column list may reorder or omit columns,
// while an unqualified VALUES list fills left-to-right and table.Insert
// pads any remaining columns with NULL.
func resolveInsertValues(sch schema.Table, columns []string, values []ast.Expr) ([]codec.Value, error) {
	if columns == nil {
		if len(values) > len(sch.Columns) {
			return nil, fmt.Errorf("%w: table %q has %d columns, got %d values",
				ErrArity, sch.Name, len(sch.Columns), len(values))
		}
		out := make([]codec.Value, len(values))
		for i, expr := range values {
			v, err := literalValue(expr)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	if len(columns) != len(values) {
		return nil, fmt.Errorf("%w: %d columns named, %d values given",
			ErrArity, len(columns), len(values))
	}
	out := make([]codec.Value, len(sch.Columns))
	for i, name := range columns {
		idx, err := sch.ColumnIndex(name)
		if err != nil {
			return nil, err
		}
		v, err := literalValue(values[i])
		if err != nil {
			return nil, err
		}
		out[idx] = v
	}
	return out, nil
}

func literalValue(expr ast.Expr) (codec.Value, error) {
	switch v := expr.(type) {
	case ast.IntLiteral:
		return codec.NewInt(v.Value), nil
	case ast.StringLiteral:
		return codec.NewVarchar(v.Value), nil
	case ast.NullLiteral:
		return codec.Null, nil
	default:
		return codec.Value{}, fmt.Errorf("%w: INSERT value is not a literal", ast.ErrUnsupported)
	}
}

// finishMutation re-encodes the modified table's own block plus the
// Database root block, appending both to blocks in dependency order.
func finishMutation(ctx context.Context, bs store.BlockStore, tables map[string]table.Table, changedTable string, blocks []block.Block) (Mutation, error) {
	tb := tables[changedTable]
	tBlock, err := encodeTable(tb)
	if err != nil {
		return Mutation{}, err
	}
	blocks = append(blocks, tBlock)

	tableCIDs := make(map[string]cid.Cid, len(tables))
	for name, t := range tables {
		if name == changedTable {
			tableCIDs[name] = tBlock.CID
			continue
		}
		existing, err := encodeTable(t)
		if err != nil {
			return Mutation{}, err
		}
		tableCIDs[name] = existing.CID
	}

	rootBlock, err := encodeRoot(tableCIDs)
	if err != nil {
		return Mutation{}, err
	}
	blocks = append(blocks, rootBlock)

	return Mutation{Database: Database{Tables: tables}, Blocks: blocks}, nil
}

func query(ctx context.Context, bs store.BlockStore, db Database, stmt *ast.SelectStmt) ([]string, iter.Seq2[schema.Row, error], error) {
	tb, ok := db.Tables[stmt.Table]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownTable, stmt.Table)
	}
	plan, err := planner.Build(tb.Schema, stmt)
	if err != nil {
		return nil, nil, err
	}
	cols := plan.Columns
	if cols == nil {
		cols = make([]string, len(tb.Schema.Columns))
		for i, c := range tb.Schema.Columns {
			cols[i] = c.Name
		}
	}
	return cols, executor.Run(ctx, bs, tb, plan), nil
}

// maxRowID returns the greatest RowID present in the row tree rooted at
// root, with ok false for an empty tree, used by decodeTable to recover
// NextRowID for a Database loaded fresh from a store.
func maxRowID(ctx context.Context, bs store.BlockStore, root cid.Cid) (schema.RowID, bool, error) {
	if !root.Defined() {
		return 0, false, nil
	}
	for e, err := range sparsearray.Scan(ctx, bs, root, nil, nil, true) {
		if err != nil {
			return 0, false, err
		}
		return e.RowID, true, nil
	}
	return 0, false, nil
}
