package schema

import (
	"errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/danthegoodman1/vcf2parquet/vcf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func one() vcf.Number {
	return vcf.Number{Kind: vcf.NumberCount, Count: 1}
}

func testHeader(t *testing.T) *vcf.Header {
	h, err := vcf.NewHeader(
		[]vcf.FieldDef{
			{ID: "DP", Number: one(), Type: vcf.TypeInteger},
			{ID: "AF", Number: vcf.Number{Kind: vcf.NumberA}, Type: vcf.TypeFloat},
			{ID: "DB", Number: vcf.Number{Count: 0}, Type: vcf.TypeFlag},
			{ID: "CSQ", Number: vcf.Number{Kind: vcf.NumberUnknown}, Type: vcf.TypeString},
		},
		[]vcf.FieldDef{
			{ID: "GT", Number: one(), Type: vcf.TypeString},
			{ID: "AD", Number: vcf.Number{Kind: vcf.NumberR}, Type: vcf.TypeInteger},
		},
		[]string{"S1", "S2"},
	)
	require.NoError(t, err)
	return h
}

func TestFromHeader(t *testing.T) {
	s, err := FromHeader(testHeader(t), Options{InfoOptional: true})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"chromosome", "position", "identifier", "reference", "alternate", "quality", "filter",
		"info_DP", "info_AF", "info_DB", "info_CSQ",
		"format_S1_GT", "format_S1_AD", "format_S2_GT", "format_S2_AD",
	}, s.Names())

	kinds := make([]Kind, s.Len())
	for i := 0; i < s.Len(); i++ {
		kinds[i] = s.Column(i).Kind
	}
	assert.Equal(t, []Kind{
		String, Int, ListString, String, ListString, Float, ListString,
		Int, ListFloat, Bool, ListString,
		String, ListInt, String, ListInt,
	}, kinds)

	col := s.Column(13)
	assert.Equal(t, OriginFormat, col.Origin)
	assert.Equal(t, "GT", col.Source)
	assert.Equal(t, 1, col.Sample)
	assert.True(t, s.Column(7).Nullable)
	assert.False(t, s.Column(0).Nullable)

	i, ok := s.Index("info_DB")
	require.True(t, ok)
	assert.Equal(t, 9, i)
	_, ok = s.Index("info_nope")
	assert.False(t, ok)
}

func TestFromHeaderDeterministic(t *testing.T) {
	h := testHeader(t)
	a, err := FromHeader(h, Options{})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		b, err := FromHeader(h, Options{})
		require.NoError(t, err)
		assert.Equal(t, a.Columns(), b.Columns())
	}
	assert.False(t, a.Column(7).Nullable, "INFO columns are required unless optional")
}

func TestFromHeaderRestrictFields(t *testing.T) {
	s, err := FromHeader(testHeader(t), Options{Infos: []string{"AF"}, Formats: []string{"GT"}})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"chromosome", "position", "identifier", "reference", "alternate", "quality", "filter",
		"info_AF", "format_S1_GT", "format_S2_GT",
	}, s.Names())
}

func TestFromHeaderNoConversion(t *testing.T) {
	h, err := vcf.NewHeader([]vcf.FieldDef{{ID: "X", Number: one(), Type: "Decimal"}}, nil, nil)
	require.NoError(t, err)

	_, err = FromHeader(h, Options{})
	require.ErrorIs(t, err, ErrNoConversion)
	var serr *SchemaError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "X", serr.Field)
	assert.Equal(t, vcf.ValueType("Decimal"), serr.Type)
}

func TestDuplicateColumn(t *testing.T) {
	// sample "a_b" with field "c" collides with sample "a" with field "b_c"
	h, err := vcf.NewHeader(nil, []vcf.FieldDef{
		{ID: "c", Number: one(), Type: vcf.TypeString},
		{ID: "b_c", Number: one(), Type: vcf.TypeString},
	}, []string{"a_b", "a"})
	require.NoError(t, err)
	_, err = FromHeader(h, Options{})
	assert.ErrorIs(t, err, ErrDuplicateColumn)
}

func TestArrowSchema(t *testing.T) {
	s, err := FromHeader(testHeader(t), Options{InfoOptional: true})
	require.NoError(t, err)
	as := s.ArrowSchema()
	require.Equal(t, s.Len(), len(as.Fields()))
	assert.True(t, arrow.TypeEqual(arrow.ListOf(arrow.PrimitiveTypes.Float32), as.Field(8).Type))
	assert.True(t, arrow.TypeEqual(arrow.FixedWidthTypes.Boolean, as.Field(9).Type))
}

func TestKind(t *testing.T) {
	assert.Equal(t, ListInt, Int.List())
	assert.Equal(t, Int, ListInt.Elem())
	assert.Equal(t, ListString, ListString.List())
	assert.True(t, ListBool.IsList())
	assert.False(t, String.IsList())
	assert.Equal(t, "ListFloat", ListFloat.String())
}
