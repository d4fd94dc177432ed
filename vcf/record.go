package vcf

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type (
	// Record is one data line. Info and Genotypes hold values typed after their header
	// declaration, see Value.
	Record struct {
		Chromosome string
		Position   int32
		IDs        []string
		Reference  string
		Alternates []string
		// Quality is nil when missing
		Quality *float32
		// Filters is nil when missing, ["PASS"] for passing records
		Filters []string

		Info map[string]Value
		// FormatKeys is the FORMAT column, empty when the record has no genotype data
		FormatKeys []string
		// Genotypes holds one map per header sample, nil when the record has no genotype data
		Genotypes []map[string]Value
	}

	// Value is a parsed INFO or FORMAT value. It is one of bool, int32, float32, string,
	// []*bool, []*int32, []*float32 or []*string, where a nil element is a missing "." entry.
	// A value that does not parse as its declared type is kept as a string.
	Value any

	ParseError struct {
		Line int
		Err  error
	}
)

var (
	ErrTooFewColumns = errors.New("too few columns")
	ErrBadPosition   = errors.New("bad position")
	ErrBadQuality    = errors.New("bad quality")
)

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// InfoValue returns the INFO value for key.
func (r *Record) InfoValue(key string) (Value, bool) {
	v, ok := r.Info[key]
	return v, ok
}

// SampleValue returns the FORMAT value for key in the sample at index sample. It reports false
// when the record has no genotype data, the sample is missing, or the key is absent for it.
func (r *Record) SampleValue(key string, sample int) (Value, bool) {
	if sample < 0 || sample >= len(r.Genotypes) {
		return nil, false
	}
	v, ok := r.Genotypes[sample][key]
	return v, ok
}

// ParseRecord parses a tab separated data line against the header.
func ParseRecord(line string, h *Header) (*Record, error) {
	cols := strings.Split(line, "\t")
	if len(cols) < 8 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewColumns, len(cols))
	}

	pos, err := strconv.ParseInt(cols[1], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadPosition, cols[1])
	}

	rec := &Record{
		Chromosome: cols[0],
		Position:   int32(pos),
		IDs:        splitMissing(cols[2], ";"),
		Reference:  cols[3],
		Alternates: splitMissing(cols[4], ","),
		Filters:    splitMissing(cols[6], ";"),
		Info:       parseInfo(cols[7], h),
	}

	if cols[5] != "." {
		q, err := strconv.ParseFloat(cols[5], 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadQuality, cols[5])
		}
		qual := float32(q)
		rec.Quality = &qual
	}

	if len(cols) > 8 && cols[8] != "" && cols[8] != "." {
		rec.FormatKeys = strings.Split(cols[8], ":")
		rec.Genotypes = make([]map[string]Value, len(h.Samples))
		for i := range h.Samples {
			if 9+i >= len(cols) {
				break
			}
			rec.Genotypes[i] = parseSample(rec.FormatKeys, cols[9+i], h)
		}
	}

	return rec, nil
}

func splitMissing(s, sep string) []string {
	if s == "." || s == "" {
		return nil
	}
	return strings.Split(s, sep)
}

func parseInfo(s string, h *Header) map[string]Value {
	info := make(map[string]Value)
	if s == "." || s == "" {
		return info
	}
	for _, field := range strings.Split(s, ";") {
		key, raw, hasValue := strings.Cut(field, "=")
		def, declared := h.Info(key)
		switch {
		case !hasValue:
			info[key] = true
		case declared:
			info[key] = parseValue(raw, def)
		default:
			info[key] = raw
		}
	}
	return info
}

func parseSample(keys []string, s string, h *Header) map[string]Value {
	values := strings.Split(s, ":")
	sample := make(map[string]Value, len(keys))
	for i, key := range keys {
		// trailing fields may be dropped
		if i >= len(values) || values[i] == "." {
			continue
		}
		if def, declared := h.Format(key); declared {
			sample[key] = parseValue(values[i], def)
		} else {
			sample[key] = values[i]
		}
	}
	return sample
}

func parseValue(raw string, def FieldDef) Value {
	if def.Number.Scalar() {
		if raw == "." {
			return nil
		}
		return parseScalar(raw, def.Type)
	}

	parts := strings.Split(raw, ",")
	switch def.Type {
	case TypeInteger:
		out := make([]*int32, len(parts))
		for i, p := range parts {
			if p == "." {
				continue
			}
			v, err := strconv.ParseInt(p, 10, 32)
			if err != nil {
				return raw
			}
			n := int32(v)
			out[i] = &n
		}
		return out
	case TypeFloat:
		out := make([]*float32, len(parts))
		for i, p := range parts {
			if p == "." {
				continue
			}
			v, err := strconv.ParseFloat(p, 32)
			if err != nil {
				return raw
			}
			f := float32(v)
			out[i] = &f
		}
		return out
	case TypeFlag:
		out := make([]*bool, len(parts))
		for i, p := range parts {
			if p == "." {
				continue
			}
			b := p != "0"
			out[i] = &b
		}
		return out
	default:
		out := make([]*string, len(parts))
		for i, p := range parts {
			if p == "." {
				continue
			}
			s := p
			out[i] = &s
		}
		return out
	}
}

func parseScalar(raw string, t ValueType) Value {
	switch t {
	case TypeInteger:
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return raw
		}
		return int32(v)
	case TypeFloat:
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return raw
		}
		return float32(v)
	case TypeFlag:
		return raw != "0"
	default:
		return raw
	}
}
