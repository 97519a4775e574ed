// Package planner turns a parsed SELECT (ast.SelectStmt) into a Plan: a
// WHERE clause normalized to disjunctive normal form, resolved against a
// table's schema, ready for the executor to drive index lookups from.
// Grounded on the logical-plan-tree/execution split in
// _examples/other_examples/8d5429f6_chirst-cdb__planner-plan.go.go, minus
// its bytecode compilation stage: our Plan is consumed directly by a
// pull-based executor (spec.md §4.9), not compiled further.
package planner

import (
	"errors"
	"fmt"

	"prollydb/ast"
	"prollydb/codec"
	"prollydb/schema"
	"prollydb/tree/dbindex"
)

// ErrUnknownColumn is returned when a SELECT, WHERE, or ORDER BY clause
// names a column the table doesn't declare.
var ErrUnknownColumn = schema.ErrUnknownColumn

// ErrTypeMismatch is returned when a WHERE atom compares a column against a
// literal of a different Kind.
var ErrTypeMismatch = errors.New("planner: literal type does not match column type")

// ErrNullComparison is returned for any WHERE atom comparing a column
// against NULL. spec.md §9 leaves this behavior undefined upstream; we
// reject it at plan time rather than let it silently match or not match
// under the index's null-tolerant ordering.
var ErrNullComparison = errors.New("planner: comparison against NULL is not supported")

// ErrUnsupportedExpr is returned for an Expr shape Normalize/Eval doesn't
// recognize (e.g. a comparison between two columns, or two literals).
var ErrUnsupportedExpr = errors.New("planner: unsupported expression shape")

// Atom is one comparison "column OP literal", resolved to the column's
// position in the table and the dbindex operator it corresponds to.
type Atom struct {
	ColumnIndex int
	Op          dbindex.Op
	Value       codec.Value
}

// Conjunction is an AND-group of Atoms.
type Conjunction []Atom

// DNF is an OR of Conjunctions: disjunctive normal form for a WHERE clause.
type DNF []Conjunction

// Plan is a fully resolved SELECT, ready for executor.Run.
type Plan struct {
	Columns       []string // requested output columns; nil means every column, declared order
	ColumnIndices []int    // resolved positions for Columns; nil means every column
	Where         ast.Expr // original expression, used to filter the ORDER BY-driven scan
	DNF           DNF      // used for the non-ORDER BY path; empty means "no WHERE"
	OrderBy       string
	OrderByIndex  int
	Descending    bool
}

// Build resolves stmt against sch: validates every referenced column name,
// type-checks WHERE literals against their column's declared type, and
// normalizes WHERE to DNF.
func Build(sch schema.Table, stmt *ast.SelectStmt) (Plan, error) {
	p := Plan{Columns: stmt.Columns, Where: stmt.Where, OrderBy: stmt.OrderBy, Descending: stmt.Descending}

	if stmt.Columns != nil {
		p.ColumnIndices = make([]int, len(stmt.Columns))
		for i, name := range stmt.Columns {
			idx, err := sch.ColumnIndex(name)
			if err != nil {
				return Plan{}, err
			}
			p.ColumnIndices[i] = idx
		}
	}

	if stmt.OrderBy != "" {
		idx, err := sch.ColumnIndex(stmt.OrderBy)
		if err != nil {
			return Plan{}, err
		}
		p.OrderByIndex = idx
	}

	if stmt.Where != nil {
		dnf, err := normalize(sch, stmt.Where)
		if err != nil {
			return Plan{}, err
		}
		p.DNF = dnf
	}

	return p, nil
}

// normalize converts expr to disjunctive normal form over sch's columns.
func normalize(sch schema.Table, expr ast.Expr) (DNF, error) {
	switch e := expr.(type) {
	case ast.BinaryExpr:
		switch e.Op {
		case ast.OpAnd:
			l, err := normalize(sch, e.Left)
			if err != nil {
				return nil, err
			}
			r, err := normalize(sch, e.Right)
			if err != nil {
				return nil, err
			}
			return crossAnd(l, r), nil
		case ast.OpOr:
			l, err := normalize(sch, e.Left)
			if err != nil {
				return nil, err
			}
			r, err := normalize(sch, e.Right)
			if err != nil {
				return nil, err
			}
			return append(l, r...), nil
		default:
			atom, err := resolveAtom(sch, e)
			if err != nil {
				return nil, err
			}
			return DNF{Conjunction{atom}}, nil
		}
	default:
		return nil, fmt.Errorf("%w: %T as a WHERE clause", ErrUnsupportedExpr, expr)
	}
}

// crossAnd distributes AND over two DNFs: (a1 OR a2) AND (b1 OR b2) =
// (a1 AND b1) OR (a1 AND b2) OR (a2 AND b1) OR (a2 AND b2).
func crossAnd(l, r DNF) DNF {
	out := make(DNF, 0, len(l)*len(r))
	for _, lc := range l {
		for _, rc := range r {
			combined := make(Conjunction, 0, len(lc)+len(rc))
			combined = append(combined, lc...)
			combined = append(combined, rc...)
			out = append(out, combined)
		}
	}
	return out
}

// resolveAtom converts a single comparison "column OP literal" (in either
// operand order) into an Atom, validating the column name and its literal's
// type against the column's declared type.
func resolveAtom(sch schema.Table, e ast.BinaryExpr) (Atom, error) {
	col, lit, op, err := splitComparison(e)
	if err != nil {
		return Atom{}, err
	}
	idx, err := sch.ColumnIndex(col.Name)
	if err != nil {
		return Atom{}, err
	}
	value, err := literalValue(lit)
	if err != nil {
		return Atom{}, err
	}
	if value.Kind == codec.KindNull {
		return Atom{}, fmt.Errorf("%w: column %q", ErrNullComparison, col.Name)
	}
	column := sch.Columns[idx]
	if value.Kind != column.Type.Kind() {
		return Atom{}, fmt.Errorf("%w: column %q is %s, literal is %s",
			ErrTypeMismatch, col.Name, column.Type, value.Kind)
	}
	return Atom{ColumnIndex: idx, Op: dbindexOp(op), Value: value}, nil
}

// splitComparison normalizes "col OP lit" or "lit OP col" to (col, lit, op)
// where op is always read left-to-right as written (flipping the operator
// when the column is on the right, e.g. "1 < ID" becomes ID > 1).
func splitComparison(e ast.BinaryExpr) (ast.ColumnRef, ast.Expr, ast.Op, error) {
	if col, ok := e.Left.(ast.ColumnRef); ok {
		return col, e.Right, e.Op, nil
	}
	if col, ok := e.Right.(ast.ColumnRef); ok {
		return col, e.Left, flip(e.Op), nil
	}
	return ast.ColumnRef{}, nil, 0, fmt.Errorf("%w: comparison has no column operand", ErrUnsupportedExpr)
}

func flip(op ast.Op) ast.Op {
	switch op {
	case ast.OpLt:
		return ast.OpGt
	case ast.OpLe:
		return ast.OpGe
	case ast.OpGt:
		return ast.OpLt
	case ast.OpGe:
		return ast.OpLe
	default:
		return op
	}
}

func dbindexOp(op ast.Op) dbindex.Op {
	switch op {
	case ast.OpLt:
		return dbindex.OpLt
	case ast.OpLe:
		return dbindex.OpLe
	case ast.OpGt:
		return dbindex.OpGt
	case ast.OpGe:
		return dbindex.OpGe
	default:
		return dbindex.OpEq
	}
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
		return codec.Value{}, fmt.Errorf("%w: comparison operand is not a literal", ErrUnsupportedExpr)
	}
}

// Eval evaluates expr against a materialized row, used to filter the
// ORDER BY-driven scan (spec.md §4.8).
func Eval(sch schema.Table, row schema.Row, expr ast.Expr) (bool, error) {
	switch e := expr.(type) {
	case ast.BinaryExpr:
		switch e.Op {
		case ast.OpAnd:
			l, err := Eval(sch, row, e.Left)
			if err != nil || !l {
				return false, err
			}
			return Eval(sch, row, e.Right)
		case ast.OpOr:
			l, err := Eval(sch, row, e.Left)
			if err != nil {
				return false, err
			}
			if l {
				return true, nil
			}
			return Eval(sch, row, e.Right)
		default:
			atom, err := resolveAtom(sch, e)
			if err != nil {
				return false, err
			}
			c, err := codec.Compare(row[atom.ColumnIndex], atom.Value)
			if err != nil {
				return false, err
			}
			return matches(atom.Op, c), nil
		}
	default:
		return false, fmt.Errorf("%w: %T as a WHERE clause", ErrUnsupportedExpr, expr)
	}
}

func matches(op dbindex.Op, cmp int) bool {
	switch op {
	case dbindex.OpEq:
		return cmp == 0
	case dbindex.OpLt:
		return cmp < 0
	case dbindex.OpLe:
		return cmp <= 0
	case dbindex.OpGt:
		return cmp > 0
	case dbindex.OpGe:
		return cmp >= 0
	default:
		return false
	}
}
