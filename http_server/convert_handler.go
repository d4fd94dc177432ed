package http_server

import (
	"errors"
	"net/http"
	"time"

	"github.com/danthegoodman1/vcf2parquet/column_accumulator"
	"github.com/danthegoodman1/vcf2parquet/datastore"
	"github.com/danthegoodman1/vcf2parquet/parquet_writer"
	"github.com/danthegoodman1/vcf2parquet/part"
	"github.com/danthegoodman1/vcf2parquet/schema"
	"github.com/danthegoodman1/vcf2parquet/utils"
	"github.com/danthegoodman1/vcf2parquet/vcf"
	"github.com/rs/zerolog"
)

type (
	ConvertQuery struct {
		Dataset     string   `query:"dataset" validate:"omitempty,excludesall=/\\"`
		BatchSize   int      `query:"batch_size" validate:"omitempty,min=1"`
		Compression string   `query:"compression" validate:"omitempty,oneof=uncompressed none snappy gzip lz4 zstd"`
		SkipInvalid bool     `query:"skip_invalid"`
		Info        []string `query:"info"`
		Format      []string `query:"format"`
	}

	ConvertStats struct {
		Part    part.Part
		Records int
		Skipped int
		Columns []string
		TimeMS  int64
	}
)

// ConvertHandler converts the request body, a plain or gzipped VCF, into one parquet file of
// the dataset.
func (s *HTTPServer) ConvertHandler(c *CustomContext) error {
	ctx := c.Request().Context()
	logger := zerolog.Ctx(ctx)
	start := time.Now()

	var q ConvertQuery
	if err := ValidateQuery(c, &q); err != nil {
		return err
	}

	opts := s.defaults
	if q.Dataset != "" {
		opts.Dataset = q.Dataset
	}
	if q.BatchSize > 0 {
		opts.BatchSize = q.BatchSize
	}
	opts.SkipInvalid = opts.SkipInvalid || q.SkipInvalid
	if q.Compression != "" {
		comp, err := parquet_writer.ParseCompression(q.Compression)
		if err != nil {
			return c.BadRequest(err)
		}
		opts.Compression = comp
	}
	if len(q.Info) > 0 {
		opts.Infos = q.Info
	}
	if len(q.Format) > 0 {
		opts.Formats = q.Format
	}

	defer c.Request().Body.Close()
	name := opts.Dataset + "/" + utils.GenKSortedID("") + ".parquet"
	res, err := s.conv.Convert(ctx, c.Request().Body, name, opts)
	if isInputError(err) {
		return c.BadRequest(err)
	}
	if err != nil {
		return c.InternalError(err, "error converting")
	}

	stats := ConvertStats{
		Part:    res.Parts[0],
		Records: res.Records,
		Skipped: res.Skipped,
		Columns: res.Columns,
		TimeMS:  time.Since(start).Milliseconds(),
	}
	logger.Debug().Str("file", name).Int("records", stats.Records).Int64("timeMS", stats.TimeMS).Msg("converted request body")
	return c.JSON(http.StatusOK, stats)
}

// isInputError reports errors caused by the uploaded VCF rather than the server
func isInputError(err error) bool {
	var perr *vcf.ParseError
	return errors.As(err, &perr) ||
		errors.Is(err, schema.ErrNoConversion) ||
		errors.Is(err, column_accumulator.ErrNoConversion) ||
		errors.Is(err, parquet_writer.ErrNullInRequiredColumn) ||
		errors.Is(err, parquet_writer.ErrColumnTypeMismatch) ||
		errors.Is(err, parquet_writer.ErrBadColumnName) ||
		errors.Is(err, datastore.ErrBadName)
}

