package parquet_writer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/danthegoodman1/vcf2parquet/chunk"
	"github.com/danthegoodman1/vcf2parquet/schema"
)

type (
	// ParquetJSONSchema is the schema tree understood by the parquet-go JSON writer.
	ParquetJSONSchema struct {
		Tag    string               `json:",omitempty"`
		Fields []*ParquetJSONSchema `json:",omitempty"`
	}

	SchemaTag struct {
		Name           string
		Type           string
		ConvertedType  string
		RepetitionType RepetitionType
		Encoding       chunk.Encoding
	}

	RepetitionType string
)

const (
	Optional RepetitionType = "OPTIONAL"
	Required RepetitionType = "REQUIRED"

	rootTag     = "name=parquet_go_root, repetitiontype=REQUIRED"
	elementName = "element"
)

var ErrBadColumnName = errors.New("column name cannot be used in a parquet schema")

func (t SchemaTag) String() string {
	var tagArr []string
	if t.Name != "" {
		tagArr = append(tagArr, "name="+t.Name)
	}
	if t.Type != "" {
		tagArr = append(tagArr, "type="+t.Type)
	}
	if t.ConvertedType != "" {
		tagArr = append(tagArr, "convertedtype="+t.ConvertedType)
	}
	if t.Encoding != "" {
		tagArr = append(tagArr, "encoding="+string(t.Encoding))
	}
	if t.RepetitionType != "" {
		tagArr = append(tagArr, "repetitiontype="+string(t.RepetitionType))
	}
	return strings.Join(tagArr, ", ")
}

// physicalType returns the parquet type and converted type of a scalar kind
func physicalType(k schema.Kind) (string, string) {
	switch k {
	case schema.Bool:
		return "BOOLEAN", ""
	case schema.Int:
		return "INT32", ""
	case schema.Float:
		return "FLOAT", ""
	default:
		return "BYTE_ARRAY", "UTF8"
	}
}

func columnSchema(col schema.Column, enc chunk.Encoding) *ParquetJSONSchema {
	rep := Required
	if col.Nullable {
		rep = Optional
	}

	if !col.Kind.IsList() {
		typ, conv := physicalType(col.Kind)
		return &ParquetJSONSchema{Tag: SchemaTag{
			Name:           col.Name,
			Type:           typ,
			ConvertedType:  conv,
			RepetitionType: rep,
			Encoding:       enc,
		}.String()}
	}

	// list elements can be missing values themselves
	typ, conv := physicalType(col.Kind.Elem())
	return &ParquetJSONSchema{
		Tag: SchemaTag{
			Name:           col.Name,
			Type:           "LIST",
			RepetitionType: rep,
		}.String(),
		Fields: []*ParquetJSONSchema{{Tag: SchemaTag{
			Name:           elementName,
			Type:           typ,
			ConvertedType:  conv,
			RepetitionType: Optional,
			Encoding:       enc,
		}.String()}},
	}
}

// SchemaString returns the JSON schema for the parquet-go JSON writer, one field per column in
// schema order.
func SchemaString(s *schema.Schema, encodings []chunk.Encoding) (string, error) {
	if encodings == nil {
		encodings = chunk.DefaultEncodings(s)
	}
	if len(encodings) != s.Len() {
		return "", fmt.Errorf("%w: got %d encodings for %d columns", chunk.ErrBadEncoding, len(encodings), s.Len())
	}

	pjs := ParquetJSONSchema{Tag: rootTag}
	for i, col := range s.Columns() {
		// the tag syntax has no escaping
		if strings.ContainsAny(col.Name, ",= \t") {
			return "", fmt.Errorf("%w: %q", ErrBadColumnName, col.Name)
		}
		pjs.Fields = append(pjs.Fields, columnSchema(col, encodings[i]))
	}

	b, err := json.Marshal(pjs)
	if err != nil {
		return "", fmt.Errorf("error in json.Marshal: %w", err)
	}
	return string(b), nil
}
