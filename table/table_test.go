package table

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prollydb/chunker"
	"prollydb/codec"
	"prollydb/schema"
	"prollydb/store/memstore"
	"prollydb/tree/sparsearray"
)

func personsSchema(t *testing.T) schema.Table {
	t.Helper()
	sch, err := schema.NewTable("Persons", []schema.Column{
		{Name: "PersonID", Type: schema.TypeInt},
		{Name: "LastName", Type: schema.TypeVarchar, Length: 255},
		{Name: "FirstName", Type: schema.TypeVarchar, Length: 255},
	})
	require.NoError(t, err)
	return sch
}

func TestCreateIsEmpty(t *testing.T) {
	tb := Create(personsSchema(t))
	assert.False(t, tb.RowsRoot.Defined())
	assert.Len(t, tb.IndexRoots, 3)
	for _, r := range tb.IndexRoots {
		assert.False(t, r.Defined())
	}
	assert.Equal(t, schema.RowID(0), tb.NextRowID)
}

func TestInsertAssignsIncrementingRowIDs(t *testing.T) {
	ctx := context.Background()
	bs := memstore.New()
	split := chunker.New(2)
	tb := Create(personsSchema(t))

	tb, blocks, err := Insert(ctx, bs, tb, []codec.Value{codec.NewInt(12), codec.NewVarchar("Rogers"), codec.NewVarchar("Mikeal")}, split)
	require.NoError(t, err)
	for _, b := range blocks {
		require.NoError(t, bs.Put(ctx, b))
	}
	assert.Equal(t, schema.RowID(1), tb.NextRowID)

	tb, blocks, err = Insert(ctx, bs, tb, []codec.Value{codec.NewInt(13), codec.NewVarchar("Smith")}, split)
	require.NoError(t, err)
	for _, b := range blocks {
		require.NoError(t, bs.Put(ctx, b))
	}
	assert.Equal(t, schema.RowID(2), tb.NextRowID)

	row, ok, err := sparsearray.Get(ctx, bs, tb.RowsRoot, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, codec.NewVarchar("Smith"), row[1])
	assert.Equal(t, codec.Null, row[2])
}

func TestInsertRejectsTooManyValues(t *testing.T) {
	ctx := context.Background()
	bs := memstore.New()
	tb := Create(personsSchema(t))

	_, _, err := Insert(ctx, bs, tb, []codec.Value{codec.NewInt(1), codec.NewVarchar("a"), codec.NewVarchar("b"), codec.NewVarchar("c")}, chunker.Default)
	assert.ErrorIs(t, err, ErrArity)
}

func TestInsertRejectsTypeMismatch(t *testing.T) {
	ctx := context.Background()
	bs := memstore.New()
	tb := Create(personsSchema(t))

	_, _, err := Insert(ctx, bs, tb, []codec.Value{codec.NewVarchar("not an int")}, chunker.Default)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestInsertRejectsStringTooLong(t *testing.T) {
	ctx := context.Background()
	bs := memstore.New()
	sch, err := schema.NewTable("Test", []schema.Column{
		{Name: "Code", Type: schema.TypeVarchar, Length: 3},
	})
	require.NoError(t, err)
	tb := Create(sch)

	_, _, err = Insert(ctx, bs, tb, []codec.Value{codec.NewVarchar("much too long")}, chunker.Default)
	assert.ErrorIs(t, err, ErrStringTooLong)
}
