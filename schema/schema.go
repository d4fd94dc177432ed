package schema

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/danthegoodman1/vcf2parquet/utils"
	"github.com/danthegoodman1/vcf2parquet/vcf"
)

const (
	Chromosome = "chromosome"
	Position   = "position"
	Identifier = "identifier"
	Reference  = "reference"
	Alternate  = "alternate"
	Quality    = "quality"
	Filter     = "filter"

	InfoPrefix   = "info_"
	FormatPrefix = "format_"
)

type (
	Column struct {
		Name     string
		Kind     Kind
		Nullable bool

		// Source is the header ID for INFO and FORMAT columns, empty for fixed columns
		Source string
		// Sample is the index of the sample a FORMAT column belongs to, -1 otherwise
		Sample int
		Origin Origin
	}

	Origin int

	// Schema is the ordered, immutable column list derived from a header.
	Schema struct {
		columns []Column
		index   map[string]int
	}

	Options struct {
		// InfoOptional makes INFO columns nullable
		InfoOptional bool
		// Infos restricts the INFO fields turned into columns, empty means all
		Infos []string
		// Formats restricts the FORMAT fields turned into columns, empty means all
		Formats []string
	}

	// SchemaError is returned when a declared header type has no column kind.
	SchemaError struct {
		Field string
		Type  vcf.ValueType
	}
)

const (
	OriginFixed Origin = iota
	OriginInfo
	OriginFormat
)

var (
	ErrNoConversion    = errors.New("no conversion")
	ErrDuplicateColumn = errors.New("duplicate column")
)

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: field %s has type %q", ErrNoConversion, e.Field, e.Type)
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrNoConversion
}

func fixedColumns() []Column {
	return []Column{
		{Name: Chromosome, Kind: String, Sample: -1},
		{Name: Position, Kind: Int, Sample: -1},
		{Name: Identifier, Kind: ListString, Nullable: true, Sample: -1},
		{Name: Reference, Kind: String, Sample: -1},
		{Name: Alternate, Kind: ListString, Nullable: true, Sample: -1},
		{Name: Quality, Kind: Float, Nullable: true, Sample: -1},
		{Name: Filter, Kind: ListString, Nullable: true, Sample: -1},
	}
}

// FromHeader builds the table schema for a header: fixed columns, then one column per INFO
// field, then one column per sample and FORMAT field.
func FromHeader(h *vcf.Header, opts Options) (*Schema, error) {
	columns := fixedColumns()

	for _, def := range h.Infos {
		if len(opts.Infos) > 0 && !utils.ContainsString(opts.Infos, def.ID) {
			continue
		}
		kind, err := kindOf(def)
		if err != nil {
			return nil, err
		}
		columns = append(columns, Column{
			Name:     InfoPrefix + def.ID,
			Kind:     kind,
			Nullable: opts.InfoOptional,
			Source:   def.ID,
			Sample:   -1,
			Origin:   OriginInfo,
		})
	}

	for sample, name := range h.Samples {
		for _, def := range h.Formats {
			if len(opts.Formats) > 0 && !utils.ContainsString(opts.Formats, def.ID) {
				continue
			}
			kind, err := kindOf(def)
			if err != nil {
				return nil, err
			}
			columns = append(columns, Column{
				Name:     FormatPrefix + name + "_" + def.ID,
				Kind:     kind,
				Nullable: true,
				Source:   def.ID,
				Sample:   sample,
				Origin:   OriginFormat,
			})
		}
	}

	return New(columns)
}

// New builds a schema from an explicit column list.
func New(columns []Column) (*Schema, error) {
	s := &Schema{
		columns: columns,
		index:   make(map[string]int, len(columns)),
	}
	for i, col := range columns {
		if _, exists := s.index[col.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, col.Name)
		}
		s.index[col.Name] = i
	}
	return s, nil
}

func kindOf(def vcf.FieldDef) (Kind, error) {
	var kind Kind
	switch def.Type {
	case vcf.TypeFlag:
		kind = Bool
	case vcf.TypeInteger:
		kind = Int
	case vcf.TypeFloat:
		kind = Float
	case vcf.TypeCharacter, vcf.TypeString:
		kind = String
	default:
		return Untyped, &SchemaError{Field: def.ID, Type: def.Type}
	}
	if !def.Number.Scalar() {
		kind = kind.List()
	}
	return kind, nil
}

func (s *Schema) Len() int {
	return len(s.columns)
}

// Column returns the column at position i.
func (s *Schema) Column(i int) Column {
	return s.columns[i]
}

// Columns returns a copy of the column list.
func (s *Schema) Columns() []Column {
	return append([]Column(nil), s.columns...)
}

// Index returns the position of the named column.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

func (s *Schema) Names() []string {
	names := make([]string, len(s.columns))
	for i, col := range s.columns {
		names[i] = col.Name
	}
	return names
}

// ArrowSchema returns the equivalent arrow schema.
func (s *Schema) ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(s.columns))
	for i, col := range s.columns {
		fields[i] = arrow.Field{
			Name:     col.Name,
			Type:     col.Kind.ArrowType(),
			Nullable: col.Nullable,
		}
	}
	return arrow.NewSchema(fields, nil)
}
