package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/danthegoodman1/vcf2parquet/chunk"
	"github.com/danthegoodman1/vcf2parquet/config"
	"github.com/danthegoodman1/vcf2parquet/datastore"
	"github.com/danthegoodman1/vcf2parquet/metastore"
	"github.com/danthegoodman1/vcf2parquet/metrics"
	"github.com/danthegoodman1/vcf2parquet/part"
	"github.com/danthegoodman1/vcf2parquet/schema"
	"github.com/danthegoodman1/vcf2parquet/vcf"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
)

func testVCF(records int) string {
	var sb strings.Builder
	sb.WriteString("##fileformat=VCFv4.3\n")
	sb.WriteString("##INFO=<ID=DP,Number=1,Type=Integer,Description=\"Depth\">\n")
	sb.WriteString("##FORMAT=<ID=GT,Number=1,Type=String,Description=\"Genotype\">\n")
	sb.WriteString("#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tS1\tS2\n")
	for i := 1; i <= records; i++ {
		sb.WriteString(fmt.Sprintf("1\t%d\t.\tA\tC\t30\tPASS\tDP=%d\tGT\t0/1\t1/1\n", i*100, i))
	}
	return sb.String()
}

type recordingMetaStore struct {
	parts []part.Part
	err   error
}

func (r *recordingMetaStore) CreatePart(_ context.Context, p part.Part) error {
	if r.err != nil {
		return r.err
	}
	r.parts = append(r.parts, p)
	return nil
}

func (r *recordingMetaStore) ListParts(context.Context, string) ([]part.Part, error) {
	return r.parts, nil
}

func (r *recordingMetaStore) Shutdown(context.Context) error {
	return nil
}

type fixture struct {
	dir     string
	conv    *Converter
	meta    *recordingMetaStore
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	dir := t.TempDir()
	store, err := datastore.NewDiskDataStore(dir)
	require.NoError(t, err)
	meta := &recordingMetaStore{}
	m := metrics.NewMetrics(prometheus.NewRegistry())
	return &fixture{dir: dir, conv: New(store, meta, m), meta: meta, metrics: m}
}

// rowGroups returns the row count of every row group of a written file
func rowGroups(t *testing.T, path string) []int64 {
	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, nil, 1)
	require.NoError(t, err)
	defer pr.ReadStop()
	var out []int64
	for _, rg := range pr.Footer.RowGroups {
		out = append(out, rg.NumRows)
	}
	return out
}

func smallBatches() Options {
	opts := DefaultOptions()
	opts.BatchSize = 2
	opts.Dataset = "genomes"
	return opts
}

func TestConvert(t *testing.T) {
	f := newFixture(t)
	res, err := f.conv.Convert(context.Background(), strings.NewReader(testVCF(5)), "genomes/all.parquet", smallBatches())
	require.NoError(t, err)

	assert.Equal(t, 5, res.Records)
	assert.Equal(t, []string{
		"chromosome", "position", "identifier", "reference", "alternate", "quality", "filter",
		"info_DP", "format_S1_GT", "format_S2_GT",
	}, res.Columns)
	require.Len(t, res.Parts, 1)
	p := res.Parts[0]
	assert.Equal(t, "genomes", p.Dataset)
	assert.Equal(t, int64(5), p.RowCount)
	assert.Equal(t, 3, p.RowGroups)
	assert.Equal(t, res.Columns, p.Columns)
	assert.Equal(t, []part.Part{p}, f.meta.parts)

	assert.Equal(t, []int64{2, 2, 1}, rowGroups(t, filepath.Join(f.dir, "genomes", "all.parquet")))

	assert.Equal(t, float64(5), testutil.ToFloat64(f.metrics.Records))
	assert.Equal(t, float64(3), testutil.ToFloat64(f.metrics.Chunks))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Parts.WithLabelValues("genomes")))
	assert.Equal(t, float64(p.Bytes), testutil.ToFloat64(f.metrics.BytesWritten))
}

func TestSplit(t *testing.T) {
	f := newFixture(t)
	res, err := f.conv.Split(context.Background(), strings.NewReader(testVCF(5)), "split/out_{}.parquet", smallBatches())
	require.NoError(t, err)
	require.Len(t, res.Parts, 3)

	for i, want := range []int64{2, 2, 1} {
		name := fmt.Sprintf("split/out_%d.parquet", i)
		assert.Equal(t, name, res.Parts[i].Name)
		assert.Equal(t, want, res.Parts[i].RowCount)
		assert.Equal(t, 1, res.Parts[i].RowGroups)
		assert.Equal(t, []int64{want}, rowGroups(t, filepath.Join(f.dir, filepath.FromSlash(name))))
	}
	assert.Len(t, f.meta.parts, 3)
}

func TestSplitBadTemplate(t *testing.T) {
	f := newFixture(t)
	_, err := f.conv.Split(context.Background(), strings.NewReader(testVCF(1)), "out.parquet", DefaultOptions())
	assert.ErrorIs(t, err, ErrBadTemplate)
}

func TestEmptyInput(t *testing.T) {
	f := newFixture(t)
	res, err := f.conv.Convert(context.Background(), strings.NewReader(testVCF(0)), "empty.parquet", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Parts[0].RowCount)
	assert.Empty(t, rowGroups(t, filepath.Join(f.dir, "empty.parquet")))

	res, err = f.conv.Split(context.Background(), strings.NewReader(testVCF(0)), "e_{}.parquet", DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, res.Parts)
}

func TestParseErrorAborts(t *testing.T) {
	f := newFixture(t)
	text := testVCF(3) + "1\tbad\t.\tA\tC\t.\t.\t.\n"
	_, err := f.conv.Convert(context.Background(), strings.NewReader(text), "bad.parquet", smallBatches())
	var perr *vcf.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Empty(t, f.meta.parts)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Errors.WithLabelValues("assemble")))
}

func TestGzipInput(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(testVCF(4)))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	f := newFixture(t)
	res, err := f.conv.Convert(context.Background(), &buf, "gz.parquet", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.Parts[0].RowCount)
	assert.Equal(t, 1, res.Parts[0].RowGroups)
}

func TestCatalogConflict(t *testing.T) {
	f := newFixture(t)
	f.meta.err = metastore.ErrPartExists
	_, err := f.conv.Convert(context.Background(), strings.NewReader(testVCF(1)), "dup.parquet", DefaultOptions())
	assert.ErrorIs(t, err, metastore.ErrPartExists)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Errors.WithLabelValues("catalog")))
}

func TestCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.conv.Convert(ctx, strings.NewReader(testVCF(3)), "c.parquet", DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSkipInvalid(t *testing.T) {
	text := testVCF(3) + "1\t400\t.\tA\tC\t.\t.\tDP=lots\n"
	f := newFixture(t)
	_, err := f.conv.Convert(context.Background(), strings.NewReader(text), "strict.parquet", DefaultOptions())
	require.Error(t, err)

	opts := DefaultOptions()
	opts.SkipInvalid = true
	res, err := f.conv.Convert(context.Background(), strings.NewReader(text), "lenient.parquet", opts)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Records)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Skipped))
}

func TestRestrictedFields(t *testing.T) {
	opts := DefaultOptions()
	opts.Formats = []string{"none"}
	f := newFixture(t)
	res, err := f.conv.Convert(context.Background(), strings.NewReader(testVCF(2)), "r.parquet", opts)
	require.NoError(t, err)
	assert.NotContains(t, res.Columns, "format_S1_GT")
	assert.Contains(t, res.Columns, "info_DP")
}

func TestEncodingResolution(t *testing.T) {
	rd, err := vcf.NewReader(strings.NewReader(testVCF(0)))
	require.NoError(t, err)
	opts := DefaultOptions()
	sch, err := schema.FromHeader(rd.Header(), opts.schemaOptions())
	require.NoError(t, err)

	opts.ColumnEncodings = map[string]chunk.Encoding{"info_dp": chunk.DeltaBinaryPacked}
	enc, err := opts.encodings(sch)
	require.NoError(t, err)
	i, _ := sch.Index("info_DP")
	assert.Equal(t, chunk.DeltaBinaryPacked, enc[i])

	opts.ColumnEncodings = map[string]chunk.Encoding{"info_nope": chunk.Plain}
	_, err = opts.encodings(sch)
	assert.ErrorIs(t, err, chunk.ErrBadEncoding)
}

func TestFromConfig(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	opts, err := FromConfig(cfg.Convert)
	require.NoError(t, err)
	def := DefaultOptions()
	assert.Equal(t, def.BatchSize, opts.BatchSize)
	assert.Equal(t, def.Compression, opts.Compression)
	assert.Equal(t, def.ReadBuffer, opts.ReadBuffer)
	assert.Equal(t, def.InfoOptional, opts.InfoOptional)
	assert.Equal(t, def.Encoding, opts.Encoding)
	assert.Equal(t, def.Dataset, opts.Dataset)
	assert.Equal(t, def.Parallelism, opts.Parallelism)
	assert.Empty(t, opts.Infos)
	assert.Empty(t, opts.ColumnEncodings)
}

func TestSplitCountsSkipsInLastBatch(t *testing.T) {
	text := testVCF(2) + "1\t300\t.\tA\tC\t.\t.\tDP=lots\n"
	f := newFixture(t)
	opts := DefaultOptions()
	opts.BatchSize = 2
	opts.SkipInvalid = true
	res, err := f.conv.Split(context.Background(), strings.NewReader(text), "s_{}.parquet", opts)
	require.NoError(t, err)
	assert.Len(t, res.Parts, 1)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Skipped))
}

type brokenStore struct{}

func (brokenStore) Create(context.Context, string) (io.WriteCloser, error) {
	return nil, errors.New("disk full")
}

func (brokenStore) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, datastore.ErrNotFound
}

func (brokenStore) Shutdown(context.Context) error {
	return nil
}

func TestSplitCreateFailureReleasesChunk(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	m := metrics.NewMetrics(prometheus.NewRegistry())
	conv := New(brokenStore{}, nil, m)
	opts := DefaultOptions()
	opts.BatchSize = 2
	opts.Allocator = mem
	_, err := conv.Split(context.Background(), strings.NewReader(testVCF(3)), "s_{}.parquet", opts)
	require.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Errors.WithLabelValues("create")))
}
