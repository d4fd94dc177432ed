package http_server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danthegoodman1/vcf2parquet/converter"
	"github.com/danthegoodman1/vcf2parquet/datastore"
	"github.com/danthegoodman1/vcf2parquet/metastore"
	"github.com/danthegoodman1/vcf2parquet/metrics"
	"github.com/danthegoodman1/vcf2parquet/part"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVCF = "##fileformat=VCFv4.3\n" +
	"##INFO=<ID=DP,Number=1,Type=Integer,Description=\"Depth\">\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
	"1\t100\t.\tA\tC\t30\tPASS\tDP=10\n" +
	"1\t200\t.\tG\t<DEL>\t.\t.\tDP=3\n"

func newTestServer(t *testing.T) *HTTPServer {
	store, err := datastore.NewDiskDataStore(t.TempDir())
	require.NoError(t, err)
	meta := metastore.NewMemoryMetaStore()
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	return New(Config{
		Converter: converter.New(store, meta, m),
		Store:     store,
		Meta:      meta,
		Defaults:  converter.DefaultOptions(),
		Gatherer:  reg,
	})
}

func do(s *HTTPServer, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	rec := do(newTestServer(t), http.MethodGet, "/hc", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestConvertAndList(t *testing.T) {
	s := newTestServer(t)
	rec := do(s, http.MethodPost, "/convert?dataset=genomes&batch_size=1&compression=zstd", strings.NewReader(testVCF))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var stats ConvertStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Records)
	assert.Equal(t, "genomes", stats.Part.Dataset)
	assert.Equal(t, int64(2), stats.Part.RowCount)
	assert.Equal(t, 2, stats.Part.RowGroups)
	assert.True(t, strings.HasPrefix(stats.Part.Name, "genomes/"))

	rec = do(s, http.MethodGet, "/datasets/genomes/parts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var parts []part.Part
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parts))
	require.Len(t, parts, 1)
	assert.Equal(t, stats.Part.ID, parts[0].ID)

	fileName := strings.TrimPrefix(stats.Part.Name, "genomes/")
	rec = do(s, http.MethodGet, "/datasets/genomes/parts/"+fileName, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, stats.Part.Bytes, int64(rec.Body.Len()))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PAR1")))

	rec = do(s, http.MethodGet, "/datasets/genomes/columns", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Name":"info_DP"`)

	rec = do(s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `vcf2parquet_parts_total{dataset="genomes"} 1`)
}

func TestConvertGzipBody(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(testVCF))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	rec := do(newTestServer(t), http.MethodPost, "/convert", &buf)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"Dataset":"default"`)
}

func TestConvertBadInput(t *testing.T) {
	s := newTestServer(t)
	cases := map[string]string{
		"/convert?batch_size=-1":          testVCF,
		"/convert?compression=brotli":     testVCF,
		"/convert?dataset=a%2Fb":          testVCF,
		"/convert?dataset=..":             testVCF,
		"/convert?dataset=.":              testVCF,
		"/convert":                        "not a vcf\n",
		"/convert?dataset=bad_record_set": testVCF + "1\tx\t.\tA\tC\t.\t.\t.\n",
	}
	for target, body := range cases {
		rec := do(s, http.MethodPost, target, strings.NewReader(body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, fmt.Sprintf("%s: %s", target, rec.Body.String()))
	}
}

func TestMissingPartFile(t *testing.T) {
	s := newTestServer(t)
	rec := do(s, http.MethodGet, "/datasets/genomes/parts/nope.parquet", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(s, http.MethodGet, "/datasets/empty/parts", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}
