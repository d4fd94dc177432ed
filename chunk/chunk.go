package chunk

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/danthegoodman1/vcf2parquet/schema"
)

// Chunk is one batch of records as aligned column arrays, the unit written as a row group.
type Chunk struct {
	Schema *schema.Schema
	// Columns holds one array per schema column, all of length Rows
	Columns   []arrow.Array
	Encodings []Encoding
	Rows      int
}

var (
	ErrColumnTypeMismatch = errors.New("column type does not match schema")
	ErrColumnLength       = errors.New("column length does not match row count")
)

// Validate checks that every column has the schema type and the chunk row count.
func (c *Chunk) Validate() error {
	for i, col := range c.Columns {
		want := c.Schema.Column(i)
		if !arrow.TypeEqual(want.Kind.ArrowType(), col.DataType()) {
			return fmt.Errorf("%w: %s is %s, schema says %s", ErrColumnTypeMismatch, want.Name, col.DataType(), want.Kind)
		}
		if col.Len() != c.Rows {
			return fmt.Errorf("%w: %s has %d rows, expected %d", ErrColumnLength, want.Name, col.Len(), c.Rows)
		}
	}
	return nil
}

// Record returns an arrow record over the chunk columns. The caller releases it.
func (c *Chunk) Record() (arrow.Record, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return array.NewRecord(c.Schema.ArrowSchema(), c.Columns, int64(c.Rows)), nil
}

// Release frees the column buffers.
func (c *Chunk) Release() {
	for _, col := range c.Columns {
		col.Release()
	}
	c.Columns = nil
}
