package parquet_writer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/danthegoodman1/vcf2parquet/chunk"
	"github.com/danthegoodman1/vcf2parquet/gologger"
	"github.com/danthegoodman1/vcf2parquet/schema"
	"github.com/xitongsys/parquet-go/writer"
)

var logger = gologger.NewLogger()

const (
	DefaultParallelism = 4

	// row groups are cut by WriteChunk, never by size
	rowGroupSize = int64(1) << 62
)

type (
	Options struct {
		Compression Compression
		// Parallelism is the number of marshalling goroutines of the parquet writer
		Parallelism int64
	}

	Stats struct {
		Rows      int64
		RowGroups int
		Bytes     int64
	}

	// Writer writes chunks as row groups of one parquet file. It does not close the
	// underlying writer.
	Writer struct {
		pw        *writer.JSONWriter
		out       *countingWriter
		schema    *schema.Schema
		encodings []chunk.Encoding
		stats     Stats
		closed    bool
	}

	countingWriter struct {
		w io.Writer
		n int64
	}
)

var (
	ErrNullInRequiredColumn = errors.New("null in required column")
	ErrColumnTypeMismatch   = chunk.ErrColumnTypeMismatch
	ErrSchemaMismatch       = errors.New("chunk schema does not match writer schema")
	ErrWriterClosed         = errors.New("writer is closed")
)

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// New starts a parquet file on w. A nil encodings list means Plain for every column.
func New(w io.Writer, s *schema.Schema, encodings []chunk.Encoding, opts Options) (*Writer, error) {
	if encodings == nil {
		encodings = chunk.DefaultEncodings(s)
	}
	schemaString, err := SchemaString(s, encodings)
	if err != nil {
		return nil, err
	}
	if opts.Compression == "" {
		opts.Compression = DefaultCompression
	}
	codec, err := opts.Compression.Codec()
	if err != nil {
		return nil, err
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = DefaultParallelism
	}

	out := &countingWriter{w: w}
	pw, err := writer.NewJSONWriterFromWriter(schemaString, out, opts.Parallelism)
	if err != nil {
		return nil, fmt.Errorf("error in NewJSONWriterFromWriter: %w", err)
	}
	pw.CompressionType = codec
	pw.RowGroupSize = rowGroupSize

	return &Writer{
		pw:        pw,
		out:       out,
		schema:    s,
		encodings: encodings,
	}, nil
}

// WriteChunk writes every row of c and flushes them as one row group. An empty chunk writes
// nothing.
func (w *Writer) WriteChunk(c *chunk.Chunk) error {
	if w.closed {
		return ErrWriterClosed
	}
	if c.Schema != w.schema && !sameNames(c.Schema, w.schema) {
		return ErrSchemaMismatch
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Rows == 0 {
		return nil
	}

	row := make(map[string]any, w.schema.Len())
	for i := 0; i < c.Rows; i++ {
		for j, col := range c.Columns {
			def := w.schema.Column(j)
			v := value(col, i)
			if v == nil && !def.Nullable {
				return fmt.Errorf("%w: %s at row %d", ErrNullInRequiredColumn, def.Name, i)
			}
			row[def.Name] = v
		}
		b, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("error in json.Marshal of row: %w", err)
		}
		if err := w.pw.Write(string(b)); err != nil {
			return fmt.Errorf("error in pw.Write for row %d: %w", i, err)
		}
	}

	if err := w.pw.Flush(true); err != nil {
		return fmt.Errorf("error in pw.Flush: %w", err)
	}
	w.stats.Rows += int64(c.Rows)
	w.stats.RowGroups++
	w.stats.Bytes = w.out.n
	logger.Debug().Int("rows", c.Rows).Int("rowGroup", w.stats.RowGroups).Msg("wrote row group")
	return nil
}

// Close writes the file footer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.pw.WriteStop(); err != nil {
		return fmt.Errorf("error in pw.WriteStop: %w", err)
	}
	w.stats.Bytes = w.out.n
	return nil
}

func (w *Writer) Stats() Stats {
	return w.stats
}

func (w *Writer) Schema() *schema.Schema {
	return w.schema
}

func sameNames(a, b *schema.Schema) bool {
	return strings.Join(a.Names(), "\x00") == strings.Join(b.Names(), "\x00")
}

// value returns row i of arr as a JSON value, nil for null
func value(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.Boolean:
		return a.Value(i)
	case *array.Int32:
		return a.Value(i)
	case *array.Float32:
		return finite(a.Value(i))
	case *array.String:
		return a.Value(i)
	case *array.List:
		start, end := a.ValueOffsets(i)
		values := a.ListValues()
		out := make([]any, 0, end-start)
		for j := start; j < end; j++ {
			out = append(out, value(values, int(j)))
		}
		return out
	}
	return nil
}

// finite returns nil for NaN and infinities, which JSON cannot carry
func finite(f float32) any {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return nil
	}
	return f
}
