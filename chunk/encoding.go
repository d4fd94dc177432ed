package chunk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danthegoodman1/vcf2parquet/schema"
)

// Encoding is the parquet encoding written for a column. The values are the parquet
// encoding names.
type Encoding string

const (
	Plain                Encoding = "PLAIN"
	PlainDictionary      Encoding = "PLAIN_DICTIONARY"
	RLEDictionary        Encoding = "RLE_DICTIONARY"
	DeltaBinaryPacked    Encoding = "DELTA_BINARY_PACKED"
	DeltaLengthByteArray Encoding = "DELTA_LENGTH_BYTE_ARRAY"
	DeltaByteArray       Encoding = "DELTA_BYTE_ARRAY"
)

var ErrBadEncoding = errors.New("bad encoding")

// ParseEncoding accepts parquet encoding names in any case, with - or _.
func ParseEncoding(s string) (Encoding, error) {
	e := Encoding(strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_"))
	switch e {
	case Plain, PlainDictionary, RLEDictionary, DeltaBinaryPacked, DeltaLengthByteArray, DeltaByteArray:
		return e, nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadEncoding, s)
}

// ValidFor reports whether the encoding can be used for values of kind k.
func (e Encoding) ValidFor(k schema.Kind) bool {
	switch e {
	case Plain, PlainDictionary, RLEDictionary:
		return true
	case DeltaBinaryPacked:
		return k.Elem() == schema.Int
	case DeltaLengthByteArray, DeltaByteArray:
		return k.Elem() == schema.String
	}
	return false
}

// DefaultEncodings returns Plain for every column.
func DefaultEncodings(s *schema.Schema) []Encoding {
	encodings := make([]Encoding, s.Len())
	for i := range encodings {
		encodings[i] = Plain
	}
	return encodings
}

// Encodings builds the per column encoding list from a default and overrides keyed by
// column name. Overrides naming unknown columns or not valid for the column kind fail.
func Encodings(s *schema.Schema, def Encoding, overrides map[string]Encoding) ([]Encoding, error) {
	if def == "" {
		def = Plain
	}
	encodings := make([]Encoding, s.Len())
	for i := range encodings {
		col := s.Column(i)
		encodings[i] = def
		if !def.ValidFor(col.Kind) {
			encodings[i] = Plain
		}
	}
	for name, e := range overrides {
		i, ok := s.Index(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown column %s", ErrBadEncoding, name)
		}
		if !e.ValidFor(s.Column(i).Kind) {
			return nil, fmt.Errorf("%w: %s cannot encode %s column %s", ErrBadEncoding, e, s.Column(i).Kind, name)
		}
		encodings[i] = e
	}
	return encodings, nil
}
