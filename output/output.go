// Package output renders a query result as human-readable text, JSON, or a
// one-line summary. Grounded directly on internal/output/formatter.go's
// Format enum and NewFormatter switch-by-name constructor, retargeted from
// schema diffs/migrations to query rows.
package output

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"prollydb/codec"
	"prollydb/schema"
)

// Format names one of the registered renderings.
type Format string

const (
	FormatTable   Format = "table"
	FormatJSON    Format = "json"
	FormatSummary Format = "summary"
)

// Formatter renders a SELECT's columns and rows to a displayable string.
type Formatter interface {
	Format(columns []string, rows []schema.Row) (string, error)
}

// NewFormatter builds the Formatter named by name. An empty name defaults
// to FormatTable, matching the teacher's "no format specified defaults to
// SQL" convention.
func NewFormatter(name string) (Formatter, error) {
	format := Format(strings.ToLower(strings.TrimSpace(name)))
	switch format {
	case "", FormatTable:
		return tableFormatter{}, nil
	case FormatJSON:
		return jsonFormatter{}, nil
	case FormatSummary:
		return summaryFormatter{}, nil
	default:
		return nil, fmt.Errorf("output: unsupported format %q; use 'table', 'json', or 'summary'", name)
	}
}

func valueString(v codec.Value) string {
	switch v.Kind {
	case codec.KindNull:
		return "NULL"
	case codec.KindInt:
		return strconv.FormatInt(v.Int, 10)
	case codec.KindVarchar:
		return v.Str
	default:
		return "?"
	}
}

type tableFormatter struct{}

// Format renders rows as an aligned, tab-separated table with a header row,
// grounded on the teacher's strings.Builder-driven diff_text.go rendering,
// here using text/tabwriter for column alignment since rows are uniform
// width (diff_text.go's sections are not).
func (tableFormatter) Format(columns []string, rows []schema.Row) (string, error) {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 2, 2, ' ', 0)
	if len(columns) > 0 {
		fmt.Fprintln(w, strings.Join(columns, "\t"))
	}
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = valueString(v)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

type jsonFormatter struct{}

func (jsonFormatter) Format(columns []string, rows []schema.Row) (string, error) {
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		obj := make(map[string]any, len(row))
		for j, v := range row {
			name := fmt.Sprintf("col%d", j)
			if j < len(columns) {
				name = columns[j]
			}
			if v.Kind == codec.KindNull {
				obj[name] = nil
			} else {
				obj[name] = valueString(v)
			}
		}
		out[i] = obj
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type summaryFormatter struct{}

func (summaryFormatter) Format(_ []string, rows []schema.Row) (string, error) {
	if len(rows) == 1 {
		return "1 row", nil
	}
	return fmt.Sprintf("%d rows", len(rows)), nil
}
