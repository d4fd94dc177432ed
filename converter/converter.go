package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/danthegoodman1/vcf2parquet/chunk"
	"github.com/danthegoodman1/vcf2parquet/datastore"
	"github.com/danthegoodman1/vcf2parquet/gologger"
	"github.com/danthegoodman1/vcf2parquet/metastore"
	"github.com/danthegoodman1/vcf2parquet/metrics"
	"github.com/danthegoodman1/vcf2parquet/parquet_writer"
	"github.com/danthegoodman1/vcf2parquet/part"
	"github.com/danthegoodman1/vcf2parquet/schema"
	"github.com/danthegoodman1/vcf2parquet/vcf"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var logger = gologger.NewLogger()

const SplitPlaceholder = "{}"

var ErrBadTemplate = errors.New("split template must contain " + SplitPlaceholder)

type (
	// Converter turns VCF streams into parquet files in a data store and records every file
	// written as a part in the meta store.
	Converter struct {
		store   datastore.DataStore
		meta    metastore.MetaStore
		metrics *metrics.Metrics
	}

	Result struct {
		Parts   []part.Part
		Records int
		Skipped int
		Columns []string
	}

	// job is one input being converted
	job struct {
		reader    *vcf.Reader
		schema    *schema.Schema
		encodings []chunk.Encoding
		assembler *chunk.Assembler
		// skipped records already counted in metrics
		skipped int
	}
)

// New creates a converter. A nil meta store records nothing and nil metrics go to a private
// registry.
func New(store datastore.DataStore, meta metastore.MetaStore, m *metrics.Metrics) *Converter {
	if meta == nil {
		meta = metastore.NopMetaStore{}
	}
	if m == nil {
		m = metrics.NewMetrics(prometheus.NewRegistry())
	}
	return &Converter{
		store:   store,
		meta:    meta,
		metrics: m,
	}
}

func (c *Converter) prepare(in io.Reader, opts Options) (*job, error) {
	rd, err := vcf.NewReader(in, vcf.WithReadBuffer(opts.ReadBuffer))
	if err != nil {
		return nil, fmt.Errorf("error in vcf.NewReader: %w", err)
	}
	s, err := schema.FromHeader(rd.Header(), opts.schemaOptions())
	if err != nil {
		rd.Close()
		return nil, fmt.Errorf("error in schema.FromHeader: %w", err)
	}
	enc, err := opts.encodings(s)
	if err != nil {
		rd.Close()
		return nil, err
	}
	assemblerOpts := []chunk.Option{chunk.WithSkipInvalid(opts.SkipInvalid)}
	if opts.Allocator != nil {
		assemblerOpts = append(assemblerOpts, chunk.WithAllocator(opts.Allocator))
	}
	a, err := chunk.New(rd, rd.Header(), s, opts.BatchSize, enc, assemblerOpts...)
	if err != nil {
		rd.Close()
		return nil, err
	}
	return &job{reader: rd, schema: s, encodings: enc, assembler: a}, nil
}

func (j *job) result(parts []part.Part) *Result {
	return &Result{
		Parts:   parts,
		Records: j.assembler.Consumed() - j.assembler.Skipped(),
		Skipped: j.assembler.Skipped(),
		Columns: j.schema.Names(),
	}
}

// Convert writes the whole input as the single file name, one row group per chunk. An input
// without records still produces a file with the full schema.
func (c *Converter) Convert(ctx context.Context, in io.Reader, name string, opts Options) (*Result, error) {
	logger := zerolog.Ctx(ctx).With().Str("file", name).Logger()
	j, err := c.prepare(in, opts)
	if err != nil {
		c.metrics.Errors.WithLabelValues("prepare").Inc()
		return nil, err
	}
	defer j.reader.Close()

	p, err := c.writePart(ctx, name, j, opts, j.assembler.Next)
	if err != nil {
		return nil, err
	}
	logger.Debug().Int64("rows", p.RowCount).Int("rowGroups", p.RowGroups).Msg("converted")
	return j.result([]part.Part{p}), nil
}

// Split writes every chunk to its own file, named by replacing {} in template with the chunk
// index starting at 0. An input without records writes no file.
func (c *Converter) Split(ctx context.Context, in io.Reader, template string, opts Options) (*Result, error) {
	if !strings.Contains(template, SplitPlaceholder) {
		return nil, fmt.Errorf("%w: %q", ErrBadTemplate, template)
	}
	j, err := c.prepare(in, opts)
	if err != nil {
		c.metrics.Errors.WithLabelValues("prepare").Inc()
		return nil, err
	}
	defer j.reader.Close()

	parts := make([]part.Part, 0)
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ck, err := j.assembler.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.metrics.Errors.WithLabelValues("assemble").Inc()
			return nil, err
		}

		name := strings.ReplaceAll(template, SplitPlaceholder, strconv.Itoa(i))
		p, err := c.writePart(ctx, name, j, opts, single(ck))
		if err != nil {
			// no-op when writePart already released it
			ck.Release()
			return nil, err
		}
		parts = append(parts, p)
	}
	// the Next that returned io.EOF may have skipped records too
	c.countSkipped(j)
	zerolog.Ctx(ctx).Debug().Int("files", len(parts)).Str("template", template).Msg("split")
	return j.result(parts), nil
}

// single yields one chunk then io.EOF
func single(ck *chunk.Chunk) func() (*chunk.Chunk, error) {
	return func() (*chunk.Chunk, error) {
		if ck == nil {
			return nil, io.EOF
		}
		out := ck
		ck = nil
		return out, nil
	}
}

// countSkipped adds the records skipped since the last call to the metrics
func (c *Converter) countSkipped(j *job) {
	c.metrics.Skipped.Add(float64(j.assembler.Skipped() - j.skipped))
	j.skipped = j.assembler.Skipped()
}

// writePart writes the chunks from next into a new file and records it. On error the file is
// closed as written so far and the error returned.
func (c *Converter) writePart(ctx context.Context, name string, j *job, opts Options, next func() (*chunk.Chunk, error)) (part.Part, error) {
	f, err := c.store.Create(ctx, name)
	if err != nil {
		c.metrics.Errors.WithLabelValues("create").Inc()
		return part.Part{}, fmt.Errorf("error in Create for %s: %w", name, err)
	}

	w, err := parquet_writer.New(f, j.schema, j.encodings, parquet_writer.Options{
		Compression: opts.Compression,
		Parallelism: opts.Parallelism,
	})
	if err != nil {
		f.Close()
		c.metrics.Errors.WithLabelValues("write").Inc()
		return part.Part{}, err
	}

	fail := func(stage string, err error) (part.Part, error) {
		c.metrics.Errors.WithLabelValues(stage).Inc()
		if cerr := f.Close(); cerr != nil {
			logger.Warn().Err(cerr).Str("file", name).Msg("failed to close partial file")
		}
		logger.Error().Err(err).Str("file", name).Int64("rows", w.Stats().Rows).Msg("conversion aborted, file is incomplete")
		return part.Part{}, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return fail("cancel", err)
		}
		s := time.Now()
		ck, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail("assemble", err)
		}
		err = w.WriteChunk(ck)
		rows := ck.Rows
		ck.Release()
		if err != nil {
			return fail("write", err)
		}
		c.metrics.ChunkDuration.Observe(time.Since(s).Seconds())
		c.metrics.Chunks.Inc()
		c.metrics.Records.Add(float64(rows))
	}
	c.countSkipped(j)

	if err := w.Close(); err != nil {
		return fail("write", err)
	}
	if err := f.Close(); err != nil {
		c.metrics.Errors.WithLabelValues("write").Inc()
		return part.Part{}, fmt.Errorf("error closing %s: %w", name, err)
	}

	stats := w.Stats()
	c.metrics.BytesWritten.Add(float64(stats.Bytes))

	p := part.New(opts.Dataset, name)
	p.RowCount = stats.Rows
	p.RowGroups = stats.RowGroups
	p.Bytes = stats.Bytes
	p.Columns = j.schema.Names()
	if err := c.meta.CreatePart(ctx, p); err != nil {
		c.metrics.Errors.WithLabelValues("catalog").Inc()
		return part.Part{}, fmt.Errorf("error in CreatePart for %s: %w", name, err)
	}
	c.metrics.Parts.WithLabelValues(opts.Dataset).Inc()
	return p, nil
}
