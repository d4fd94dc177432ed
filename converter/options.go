package converter

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/danthegoodman1/vcf2parquet/chunk"
	"github.com/danthegoodman1/vcf2parquet/config"
	"github.com/danthegoodman1/vcf2parquet/parquet_writer"
	"github.com/danthegoodman1/vcf2parquet/schema"
	"github.com/danthegoodman1/vcf2parquet/vcf"
)

const DefaultBatchSize = 100000

type Options struct {
	BatchSize    int
	Compression  parquet_writer.Compression
	ReadBuffer   int
	InfoOptional bool
	Infos        []string
	Formats      []string
	SkipInvalid  bool
	// Encoding is used for every column without an entry in ColumnEncodings
	Encoding        chunk.Encoding
	ColumnEncodings map[string]chunk.Encoding
	// Dataset is the catalog dataset parts are recorded under
	Dataset     string
	Parallelism int64
	// Allocator backs the column buffers, the arrow default when nil
	Allocator memory.Allocator
}

func DefaultOptions() Options {
	return Options{
		BatchSize:    DefaultBatchSize,
		Compression:  parquet_writer.DefaultCompression,
		ReadBuffer:   vcf.DefaultReadBuffer,
		InfoOptional: true,
		Encoding:     chunk.Plain,
		Dataset:      "default",
		Parallelism:  parquet_writer.DefaultParallelism,
	}
}

// FromConfig builds options from a validated convert config.
func FromConfig(c config.ConvertConfig) (Options, error) {
	comp, err := parquet_writer.ParseCompression(c.Compression)
	if err != nil {
		return Options{}, err
	}
	enc, err := chunk.ParseEncoding(c.Encoding)
	if err != nil {
		return Options{}, err
	}
	overrides, err := c.ColumnEncodingMap()
	if err != nil {
		return Options{}, err
	}
	return Options{
		BatchSize:       c.BatchSize,
		Compression:     comp,
		ReadBuffer:      c.ReadBuffer,
		InfoOptional:    c.InfoOptional,
		Infos:           c.Infos,
		Formats:         c.Formats,
		SkipInvalid:     c.SkipInvalid,
		Encoding:        enc,
		ColumnEncodings: overrides,
		Dataset:         c.Dataset,
		Parallelism:     int64(c.Parallelism),
	}, nil
}

func (o Options) schemaOptions() schema.Options {
	return schema.Options{
		InfoOptional: o.InfoOptional,
		Infos:        o.Infos,
		Formats:      o.Formats,
	}
}

// encodings resolves the column encodings of s. Override names match column names exactly
// first, then ignoring case, since config keys come back lower cased.
func (o Options) encodings(s *schema.Schema) ([]chunk.Encoding, error) {
	overrides := make(map[string]chunk.Encoding, len(o.ColumnEncodings))
	for name, enc := range o.ColumnEncodings {
		if _, ok := s.Index(name); ok {
			overrides[name] = enc
			continue
		}
		resolved := ""
		for _, col := range s.Names() {
			if strings.EqualFold(col, name) {
				if resolved != "" {
					return nil, fmt.Errorf("%w: %s matches both %s and %s", chunk.ErrBadEncoding, name, resolved, col)
				}
				resolved = col
			}
		}
		if resolved == "" {
			resolved = name
		}
		overrides[resolved] = enc
	}
	return chunk.Encodings(s, o.Encoding, overrides)
}
