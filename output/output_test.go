package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prollydb/codec"
	"prollydb/schema"
)

func TestNewFormatterDefaultsToTable(t *testing.T) {
	f, err := NewFormatter("")
	require.NoError(t, err)
	_, ok := f.(tableFormatter)
	assert.True(t, ok)
}

func TestNewFormatterTableUppercase(t *testing.T) {
	f, err := NewFormatter("TABLE")
	require.NoError(t, err)
	_, ok := f.(tableFormatter)
	assert.True(t, ok)
}

func TestNewFormatterJSON(t *testing.T) {
	f, err := NewFormatter("json")
	require.NoError(t, err)
	_, ok := f.(jsonFormatter)
	assert.True(t, ok)
}

func TestNewFormatterSummary(t *testing.T) {
	f, err := NewFormatter("summary")
	require.NoError(t, err)
	_, ok := f.(summaryFormatter)
	assert.True(t, ok)
}

func TestNewFormatterInvalid(t *testing.T) {
	f, err := NewFormatter("yaml")
	assert.Error(t, err)
	assert.Nil(t, f)
	assert.Contains(t, err.Error(), "use 'table', 'json', or 'summary'")
}

func sampleRows() ([]string, []schema.Row) {
	return []string{"Name", "ID"}, []schema.Row{
		{codec.NewVarchar("a"), codec.NewInt(1)},
		{codec.NewVarchar("b"), codec.Null},
	}
}

func TestTableFormatterIncludesHeaderAndValues(t *testing.T) {
	cols, rows := sampleRows()
	out, err := tableFormatter{}.Format(cols, rows)
	require.NoError(t, err)
	assert.Contains(t, out, "Name")
	assert.Contains(t, out, "a")
	assert.Contains(t, out, "NULL")
}

func TestJSONFormatterUsesColumnNamesAndNull(t *testing.T) {
	cols, rows := sampleRows()
	out, err := jsonFormatter{}.Format(cols, rows)
	require.NoError(t, err)
	assert.Contains(t, out, `"Name": "a"`)
	assert.Contains(t, out, `"ID": null`)
}

func TestSummaryFormatterSingularPlural(t *testing.T) {
	cols, rows := sampleRows()
	out, err := summaryFormatter{}.Format(cols, rows[:1])
	require.NoError(t, err)
	assert.Equal(t, "1 row", out)

	out, err = summaryFormatter{}.Format(cols, rows)
	require.NoError(t, err)
	assert.Equal(t, "2 rows", out)

	out, err = summaryFormatter{}.Format(cols, nil)
	require.NoError(t, err)
	assert.Equal(t, "0 rows", out)
}
