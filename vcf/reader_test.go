package vcf

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVCF = `##fileformat=VCFv4.3
##contig=<ID=20,length=64444167>
##INFO=<ID=NS,Number=1,Type=Integer,Description="Number of Samples With Data">
##INFO=<ID=AF,Number=A,Type=Float,Description="Allele Frequency, comma separated">
##INFO=<ID=DB,Number=0,Type=Flag,Description="dbSNP membership">
##INFO=<ID=AA,Number=1,Type=String,Description="Ancestral Allele">
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
##FORMAT=<ID=HQ,Number=2,Type=Integer,Description="Haplotype Quality">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	NA00001	NA00002
20	14370	rs6054257	G	A	29	PASS	NS=3;AF=0.5;DB	GT:HQ	0|0:51,51	1|0:.,3
20	17330	.	T	A,C	.	q10;s50	NS=abc;AF=0.017,.	GT	0|1
20	1110696	rs6040355;rs1	A	G	67	.	.
`

func TestReadHeader(t *testing.T) {
	rd, err := NewReader(strings.NewReader(testVCF))
	require.NoError(t, err)
	h := rd.Header()

	assert.Equal(t, "VCFv4.3", h.FileFormat)
	assert.Equal(t, []string{"NA00001", "NA00002"}, h.Samples)
	require.Len(t, h.Infos, 4)
	assert.Equal(t, "NS", h.Infos[0].ID)
	assert.Equal(t, Number{Kind: NumberA}, h.Infos[1].Number)
	assert.Equal(t, "Allele Frequency, comma separated", h.Infos[1].Description)
	assert.Equal(t, TypeFlag, h.Infos[2].Type)
	require.Len(t, h.Formats, 2)
	assert.Equal(t, Number{Kind: NumberCount, Count: 2}, h.Formats[1].Number)
	assert.Equal(t, []string{"contig=<ID=20,length=64444167>"}, h.Meta)
}

func TestReadRecords(t *testing.T) {
	rd, err := NewReader(strings.NewReader(testVCF))
	require.NoError(t, err)

	rec, err := rd.Next()
	require.NoError(t, err)
	assert.Equal(t, "20", rec.Chromosome)
	assert.Equal(t, int32(14370), rec.Position)
	assert.Equal(t, []string{"rs6054257"}, rec.IDs)
	assert.Equal(t, []string{"A"}, rec.Alternates)
	require.NotNil(t, rec.Quality)
	assert.Equal(t, float32(29), *rec.Quality)
	assert.Equal(t, []string{"PASS"}, rec.Filters)
	assert.Equal(t, int32(3), rec.Info["NS"])
	assert.Equal(t, true, rec.Info["DB"])
	af := rec.Info["AF"].([]*float32)
	require.Len(t, af, 1)
	assert.Equal(t, float32(0.5), *af[0])

	gt, ok := rec.SampleValue("GT", 0)
	require.True(t, ok)
	assert.Equal(t, "0|0", gt)
	hq, ok := rec.SampleValue("HQ", 1)
	require.True(t, ok)
	hqs := hq.([]*int32)
	assert.Nil(t, hqs[0])
	assert.Equal(t, int32(3), *hqs[1])

	rec, err = rd.Next()
	require.NoError(t, err)
	assert.Nil(t, rec.IDs)
	assert.Nil(t, rec.Quality)
	assert.Equal(t, []string{"q10", "s50"}, rec.Filters)
	// unparseable values are kept verbatim
	assert.Equal(t, "abc", rec.Info["NS"])
	af = rec.Info["AF"].([]*float32)
	assert.Nil(t, af[1])
	_, ok = rec.SampleValue("GT", 1)
	assert.False(t, ok, "missing trailing sample")

	rec, err = rd.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"rs6040355", "rs1"}, rec.IDs)
	assert.Nil(t, rec.Filters)
	assert.Empty(t, rec.Info)
	assert.Nil(t, rec.Genotypes)
	_, ok = rec.SampleValue("GT", 0)
	assert.False(t, ok)

	for i := 0; i < 2; i++ {
		_, err = rd.Next()
		assert.ErrorIs(t, err, io.EOF)
	}
}

func TestReadGzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(testVCF))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	rd, err := NewReader(&buf, WithReadBuffer(64))
	require.NoError(t, err)
	defer rd.Close()

	n := 0
	for {
		_, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 3, n)
}

func TestHeaderErrors(t *testing.T) {
	_, err := NewReader(strings.NewReader("##fileformat=VCFv4.3\n"))
	assert.ErrorIs(t, err, ErrMissingColumnHeader)

	_, err = NewReader(strings.NewReader("#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tS1\tS1\n"))
	assert.ErrorIs(t, err, ErrDuplicateSample)

	_, err = NewReader(strings.NewReader("##INFO=<ID=X,Number=Z,Type=Integer>\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n"))
	assert.ErrorIs(t, err, ErrBadNumber)
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 1, perr.Line)
}

func TestRedeclaredFieldKeepsPosition(t *testing.T) {
	h, err := NewHeader([]FieldDef{
		{ID: "A", Type: TypeInteger, Number: Number{Count: 1}},
		{ID: "B", Type: TypeInteger, Number: Number{Count: 1}},
		{ID: "A", Type: TypeFloat, Number: Number{Count: 1}},
	}, nil, nil)
	require.NoError(t, err)
	require.Len(t, h.Infos, 2)
	assert.Equal(t, "A", h.Infos[0].ID)
	assert.Equal(t, TypeFloat, h.Infos[0].Type)
}

func TestBadRecord(t *testing.T) {
	rd, err := NewReader(strings.NewReader("#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n1\tx\t.\tA\tC\t.\t.\t.\n"))
	require.NoError(t, err)
	_, err = rd.Next()
	assert.ErrorIs(t, err, ErrBadPosition)
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 2, perr.Line)
}
