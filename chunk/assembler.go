package chunk

import (
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/danthegoodman1/vcf2parquet/column_accumulator"
	"github.com/danthegoodman1/vcf2parquet/gologger"
	"github.com/danthegoodman1/vcf2parquet/schema"
	"github.com/danthegoodman1/vcf2parquet/vcf"
)

var logger = gologger.NewLogger()

type (
	// RecordSource yields records in order and returns io.EOF once exhausted.
	RecordSource interface {
		Next() (*vcf.Record, error)
	}

	// Assembler turns a record source into a sequence of chunks of at most BatchSize rows.
	// It is forward only: once the source is exhausted every Next returns io.EOF.
	Assembler struct {
		source    RecordSource
		header    *vcf.Header
		schema    *schema.Schema
		batchSize int
		encodings []Encoding
		mem       memory.Allocator

		skipInvalid bool
		skipped     int
		consumed    int
		chunks      int
		exhausted   bool
	}

	Option func(*Assembler)
)

var ErrBadBatchSize = errors.New("batch size must be positive")

// WithAllocator sets the arrow allocator used for column buffers.
func WithAllocator(mem memory.Allocator) Option {
	return func(a *Assembler) {
		a.mem = mem
	}
}

// WithSkipInvalid makes the assembler drop records rejected with a no conversion error
// instead of failing the batch.
func WithSkipInvalid(skip bool) Option {
	return func(a *Assembler) {
		a.skipInvalid = skip
	}
}

// New creates an assembler. A nil encodings list means Plain for every column.
func New(source RecordSource, header *vcf.Header, s *schema.Schema, batchSize int, encodings []Encoding, opts ...Option) (*Assembler, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadBatchSize, batchSize)
	}
	if encodings == nil {
		encodings = DefaultEncodings(s)
	}
	if len(encodings) != s.Len() {
		return nil, fmt.Errorf("%w: got %d encodings for %d columns", ErrBadEncoding, len(encodings), s.Len())
	}
	a := &Assembler{
		source:    source,
		header:    header,
		schema:    s,
		batchSize: batchSize,
		encodings: encodings,
		mem:       memory.DefaultAllocator,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Assembler) Schema() *schema.Schema {
	return a.schema
}

func (a *Assembler) Encodings() []Encoding {
	return append([]Encoding(nil), a.encodings...)
}

// Consumed returns the number of records pulled from the source, skipped ones included.
func (a *Assembler) Consumed() int {
	return a.consumed
}

// Skipped returns the number of records dropped with WithSkipInvalid.
func (a *Assembler) Skipped() int {
	return a.skipped
}

// Next fills a fresh accumulator with up to BatchSize records and returns them as a chunk.
// A short final batch is returned as is. Errors from the source are returned unchanged; after
// any error the in-flight batch is discarded and the source stays where it failed.
func (a *Assembler) Next() (*Chunk, error) {
	if a.exhausted {
		return nil, io.EOF
	}

	acc := column_accumulator.NewWithAllocator(a.schema, a.mem)
	for acc.Len() < a.batchSize {
		rec, err := a.source.Next()
		if errors.Is(err, io.EOF) {
			a.exhausted = true
			break
		}
		if err != nil {
			discard(acc)
			return nil, err
		}
		a.consumed++

		if err := acc.AddRecord(rec, a.header); err != nil {
			if a.skipInvalid && errors.Is(err, column_accumulator.ErrNoConversion) {
				a.skipped++
				logger.Warn().Err(err).Str("chromosome", rec.Chromosome).Int32("position", rec.Position).Msg("skipping record")
				continue
			}
			discard(acc)
			return nil, err
		}
	}

	if acc.Len() == 0 {
		discard(acc)
		return nil, io.EOF
	}

	c := &Chunk{
		Schema:    a.schema,
		Columns:   acc.Finish(),
		Encodings: a.Encodings(),
		Rows:      acc.Len(),
	}
	a.chunks++
	logger.Debug().Int("chunk", a.chunks).Int("rows", c.Rows).Msg("assembled chunk")
	return c, nil
}

func discard(acc *column_accumulator.Accumulator) {
	for _, arr := range acc.Finish() {
		arr.Release()
	}
}
