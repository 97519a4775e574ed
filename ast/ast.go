// Package ast defines prollydb's own, narrow statement model — the three
// statement kinds the spec supports (CREATE TABLE, INSERT, SELECT) — and
// converts github.com/pingcap/tidb/pkg/parser's full MySQL AST down into it.
// The tidb parser is used purely as a tokenizer/grammar black box, exactly
// as the teacher uses it for CREATE TABLE dumps; this package extends that
// same per-node-kind conversion switch (internal/parser/mysql/parser.go's
// convertCreateTable/parseColumns shape) to also cover INSERT and SELECT.
package ast

import (
	"errors"
	"fmt"

	"prollydb/schema"
)

// ErrUnsupported marks SQL the parser accepted but prollydb's surface
// doesn't support (e.g. UPDATE, JOIN, multi-table FROM).
var ErrUnsupported = errors.New("ast: unsupported statement")

// ErrParse wraps a tidb parser syntax error.
var ErrParse = errors.New("ast: parse error")

// Stmt is the sum type of the three statements prollydb executes.
type Stmt interface {
	isStmt()
}

// ColumnDef is one column in a CREATE TABLE statement.
type ColumnDef struct {
	Name   string
	Type   schema.DataType
	Length int // VARCHAR(n)
}

// CreateTableStmt is "CREATE TABLE name (col type, ...)".
type CreateTableStmt struct {
	Table   string
	Columns []ColumnDef
}

func (*CreateTableStmt) isStmt() {}

// InsertStmt is "INSERT INTO name [(cols...)] VALUES (v, ...) [, (v, ...) ...]".
// Columns is nil when the statement omits the column list (all columns, in
// declaration order). Rows holds one value tuple per row, in statement order.
type InsertStmt struct {
	Table   string
	Columns []string
	Rows    [][]Expr
}

func (*InsertStmt) isStmt() {}

// SelectStmt is "SELECT cols|* FROM name [WHERE expr] [ORDER BY col [ASC|DESC]]".
type SelectStmt struct {
	Table    string
	Columns  []string // nil means SELECT *
	Where    Expr     // nil means no WHERE clause
	OrderBy  string   // empty means no ORDER BY
	Descending bool
}

func (*SelectStmt) isStmt() {}

// Op is a scalar or boolean operator appearing in an expression tree.
type Op uint8

const (
	OpEq Op = iota
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

// Expr is the sum type of expressions the planner understands: a column
// reference, a literal, or a binary operation joining two Exprs.
type Expr interface {
	isExpr()
}

// ColumnRef names a column by its unqualified identifier.
type ColumnRef struct {
	Name string
}

func (ColumnRef) isExpr() {}

// IntLiteral is an integer constant.
type IntLiteral struct {
	Value int64
}

func (IntLiteral) isExpr() {}

// StringLiteral is a string constant.
type StringLiteral struct {
	Value string
}

func (StringLiteral) isExpr() {}

// NullLiteral is the NULL constant.
type NullLiteral struct{}

func (NullLiteral) isExpr() {}

// BinaryExpr is "L OP R": either a comparison (column vs literal) or a
// boolean connective (AND/OR joining two sub-expressions).
type BinaryExpr struct {
	Op    Op
	Left  Expr
	Right Expr
}

func (BinaryExpr) isExpr() {}

func fmtErrUnsupported(what string) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, what)
}
