package ast

import (
	"fmt"

	"github.com/pingcap/tidb/pkg/parser"
	tidbast "github.com/pingcap/tidb/pkg/parser/ast"
	tidbmysql "github.com/pingcap/tidb/pkg/parser/mysql"
	"github.com/pingcap/tidb/pkg/parser/opcode"
	driver "github.com/pingcap/tidb/pkg/parser/test_driver"
	tidbtypes "github.com/pingcap/tidb/pkg/parser/types"

	"prollydb/schema"
)

const (
	tidbKindInt    = tidbtypes.KindInt64
	tidbKindUint   = tidbtypes.KindUint64
	tidbKindString = tidbtypes.KindString
)

func isIntType(tp byte) bool {
	switch tp {
	case tidbmysql.TypeTiny, tidbmysql.TypeShort, tidbmysql.TypeInt24, tidbmysql.TypeLong, tidbmysql.TypeLonglong:
		return true
	default:
		return false
	}
}

func isStringType(tp byte) bool {
	switch tp {
	case tidbmysql.TypeVarchar, tidbmysql.TypeString, tidbmysql.TypeVarString:
		return true
	default:
		return false
	}
}

// Parse tokenizes and parses a single SQL statement with the tidb parser,
// then converts its AST into one of CreateTableStmt, InsertStmt, or
// SelectStmt. Exactly one statement is expected; trailing statements are an
// error, matching Database.SQL's one-statement-per-call contract.
func Parse(sql string) (Stmt, error) {
	p := parser.New()
	nodes, _, err := p.Parse(sql, "", "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(nodes) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one statement, got %d", ErrUnsupported, len(nodes))
	}

	switch stmt := nodes[0].(type) {
	case *tidbast.CreateTableStmt:
		return convertCreateTable(stmt)
	case *tidbast.InsertStmt:
		return convertInsert(stmt)
	case *tidbast.SelectStmt:
		return convertSelect(stmt)
	default:
		return nil, fmtErrUnsupported(fmt.Sprintf("statement kind %T", stmt))
	}
}

func convertCreateTable(stmt *tidbast.CreateTableStmt) (*CreateTableStmt, error) {
	out := &CreateTableStmt{Table: stmt.Table.Name.O}
	for _, col := range stmt.Cols {
		dt, length, err := convertColumnType(col)
		if err != nil {
			return nil, err
		}
		out.Columns = append(out.Columns, ColumnDef{Name: col.Name.Name.O, Type: dt, Length: length})
	}
	return out, nil
}

// convertColumnType narrows a tidb FieldType down to INT or VARCHAR(n); any
// other declared type is unsupported, matching spec.md §3's two-type Value
// model.
func convertColumnType(col *tidbast.ColumnDef) (schema.DataType, int, error) {
	ft := col.Tp
	switch {
	case isIntType(ft.GetType()):
		return schema.TypeInt, 0, nil
	case isStringType(ft.GetType()):
		return schema.TypeVarchar, ft.GetFlen(), nil
	default:
		return 0, 0, fmtErrUnsupported(fmt.Sprintf("column type %s", ft.String()))
	}
}

func tableNameFrom(refs *tidbast.TableRefsClause) (string, error) {
	if refs == nil || refs.TableRefs == nil {
		return "", fmtErrUnsupported("missing FROM clause")
	}
	join := refs.TableRefs
	if join.Right != nil {
		return "", fmtErrUnsupported("JOIN")
	}
	src, ok := join.Left.(*tidbast.TableSource)
	if !ok {
		return "", fmtErrUnsupported("FROM clause shape")
	}
	name, ok := src.Source.(*tidbast.TableName)
	if !ok {
		return "", fmtErrUnsupported("FROM clause shape")
	}
	return name.Name.O, nil
}

func convertInsert(stmt *tidbast.InsertStmt) (*InsertStmt, error) {
	table, err := tableNameFrom(stmt.Table)
	if err != nil {
		return nil, err
	}

	out := &InsertStmt{Table: table}
	for _, col := range stmt.Columns {
		out.Columns = append(out.Columns, col.Name.O)
	}
	for _, list := range stmt.Lists {
		row := make([]Expr, 0, len(list))
		for _, expr := range list {
			e, err := convertExpr(expr)
			if err != nil {
				return nil, err
			}
			row = append(row, e)
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func convertSelect(stmt *tidbast.SelectStmt) (*SelectStmt, error) {
	table, err := tableNameFrom(stmt.From)
	if err != nil {
		return nil, err
	}
	out := &SelectStmt{Table: table}

	if stmt.Fields != nil {
		for _, f := range stmt.Fields.Fields {
			if f.WildCard != nil {
				out.Columns = nil
				break
			}
			colExpr, ok := f.Expr.(*tidbast.ColumnNameExpr)
			if !ok {
				return nil, fmtErrUnsupported("non-column SELECT expression")
			}
			out.Columns = append(out.Columns, colExpr.Name.Name.O)
		}
	}

	if stmt.Where != nil {
		w, err := convertExpr(stmt.Where)
		if err != nil {
			return nil, err
		}
		out.Where = w
	}

	if stmt.OrderBy != nil {
		if len(stmt.OrderBy.Items) != 1 {
			return nil, fmtErrUnsupported("ORDER BY with more than one column")
		}
		item := stmt.OrderBy.Items[0]
		colExpr, ok := item.Expr.(*tidbast.ColumnNameExpr)
		if !ok {
			return nil, fmtErrUnsupported("ORDER BY non-column expression")
		}
		out.OrderBy = colExpr.Name.Name.O
		out.Descending = item.Desc
	}

	return out, nil
}

func convertExpr(expr tidbast.ExprNode) (Expr, error) {
	switch e := expr.(type) {
	case *tidbast.ColumnNameExpr:
		return ColumnRef{Name: e.Name.Name.O}, nil
	case *driver.ValueExpr:
		return convertValue(e)
	case *tidbast.BinaryOperationExpr:
		op, err := convertOp(e.Op)
		if err != nil {
			return nil, err
		}
		l, err := convertExpr(e.L)
		if err != nil {
			return nil, err
		}
		r, err := convertExpr(e.R)
		if err != nil {
			return nil, err
		}
		return BinaryExpr{Op: op, Left: l, Right: r}, nil
	case *tidbast.ParenthesesExpr:
		return convertExpr(e.Expr)
	default:
		return nil, fmtErrUnsupported(fmt.Sprintf("expression kind %T", expr))
	}
}

func convertValue(v *driver.ValueExpr) (Expr, error) {
	if v.Datum.IsNull() {
		return NullLiteral{}, nil
	}
	switch v.Datum.Kind() {
	case tidbKindInt, tidbKindUint:
		return IntLiteral{Value: v.Datum.GetInt64()}, nil
	case tidbKindString:
		return StringLiteral{Value: v.Datum.GetString()}, nil
	default:
		return nil, fmtErrUnsupported(fmt.Sprintf("literal kind %d", v.Datum.Kind()))
	}
}

func convertOp(op opcode.Op) (Op, error) {
	switch op {
	case opcode.EQ:
		return OpEq, nil
	case opcode.LT:
		return OpLt, nil
	case opcode.LE:
		return OpLe, nil
	case opcode.GT:
		return OpGt, nil
	case opcode.GE:
		return OpGe, nil
	case opcode.LogicAnd:
		return OpAnd, nil
	case opcode.LogicOr:
		return OpOr, nil
	default:
		return 0, fmtErrUnsupported(fmt.Sprintf("operator %s", op.String()))
	}
}
