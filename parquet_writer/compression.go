package parquet_writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xitongsys/parquet-go/parquet"
)

type Compression string

const (
	Uncompressed Compression = "uncompressed"
	Snappy       Compression = "snappy"
	Gzip         Compression = "gzip"
	Lzo          Compression = "lzo"
	Brotli       Compression = "brotli"
	Lz4          Compression = "lz4"
	Zstd         Compression = "zstd"

	DefaultCompression = Snappy
)

var (
	ErrUnknownCompression     = errors.New("unknown compression")
	ErrUnsupportedCompression = errors.New("compression not supported by the parquet writer")
)

// ParseCompression accepts a codec name in any case. lzo and brotli parse but cannot be written.
func ParseCompression(s string) (Compression, error) {
	c := Compression(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case Uncompressed, Snappy, Gzip, Lzo, Brotli, Lz4, Zstd:
		return c, nil
	case "none":
		return Uncompressed, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCompression, s)
}

func (c Compression) Codec() (parquet.CompressionCodec, error) {
	switch c {
	case Uncompressed:
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	case Snappy:
		return parquet.CompressionCodec_SNAPPY, nil
	case Gzip:
		return parquet.CompressionCodec_GZIP, nil
	case Lz4:
		return parquet.CompressionCodec_LZ4, nil
	case Zstd:
		return parquet.CompressionCodec_ZSTD, nil
	case Lzo, Brotli:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedCompression, c)
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, string(c))
}
