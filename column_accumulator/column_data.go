package column_accumulator

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/danthegoodman1/vcf2parquet/schema"
)

type (
	// ColumnData is the growable buffer of one column. It counts nulls until the first non-null
	// value creates the builder. A column with a declared kind only accepts values of that kind;
	// an undeclared one takes the kind of its first value.
	ColumnData struct {
		name     string
		declared schema.Kind
		kind     schema.Kind
		// nulls pushed before the kind was fixed
		pending int
		mem     memory.Allocator
		builder array.Builder
	}

	// ColumnError is returned when a value does not match the kind of its column.
	ColumnError struct {
		Column   string
		Expected schema.Kind
		Actual   schema.Kind
	}
)

var ErrNoConversion = errors.New("no conversion")

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%s: column %s holds %s, got %s", ErrNoConversion, e.Column, e.Expected, e.Actual)
}

func (e *ColumnError) Is(target error) bool {
	return target == ErrNoConversion
}

// NewColumnData creates an empty column of the declared kind. Pass schema.Untyped to let the
// first value pick the kind.
func NewColumnData(name string, declared schema.Kind, mem memory.Allocator) *ColumnData {
	return &ColumnData{
		name:     name,
		declared: declared,
		mem:      mem,
	}
}

// Kind returns the fixed kind, or schema.Untyped when only nulls were pushed so far.
func (c *ColumnData) Kind() schema.Kind {
	return c.kind
}

func (c *ColumnData) Len() int {
	if c.builder == nil {
		return c.pending
	}
	return c.builder.Len()
}

func (c *ColumnData) PushNull() {
	if c.builder == nil {
		c.pending++
		return
	}
	c.builder.AppendNull()
}

func (c *ColumnData) PushBool(v *bool) error {
	if v == nil {
		c.PushNull()
		return nil
	}
	return c.push(schema.Bool, *v)
}

func (c *ColumnData) PushI32(v *int32) error {
	if v == nil {
		c.PushNull()
		return nil
	}
	return c.push(schema.Int, *v)
}

func (c *ColumnData) PushF32(v *float32) error {
	if v == nil {
		c.PushNull()
		return nil
	}
	return c.push(schema.Float, *v)
}

func (c *ColumnData) PushString(v *string) error {
	if v == nil {
		c.PushNull()
		return nil
	}
	return c.push(schema.String, *v)
}

// PushVecBool appends one list row, a nil slice is a null row.
func (c *ColumnData) PushVecBool(v []*bool) error {
	if v == nil {
		c.PushNull()
		return nil
	}
	return c.push(schema.ListBool, v)
}

func (c *ColumnData) PushVecI32(v []*int32) error {
	if v == nil {
		c.PushNull()
		return nil
	}
	return c.push(schema.ListInt, v)
}

func (c *ColumnData) PushVecF32(v []*float32) error {
	if v == nil {
		c.PushNull()
		return nil
	}
	return c.push(schema.ListFloat, v)
}

func (c *ColumnData) PushVecString(v []*string) error {
	if v == nil {
		c.PushNull()
		return nil
	}
	return c.push(schema.ListString, v)
}

// accepts reports whether a non-null value of kind k can be pushed.
func (c *ColumnData) accepts(k schema.Kind) error {
	want := c.kind
	if want == schema.Untyped {
		want = c.declared
	}
	if want != schema.Untyped && want != k {
		return &ColumnError{Column: c.name, Expected: want, Actual: k}
	}
	return nil
}

func (c *ColumnData) push(k schema.Kind, v any) error {
	if err := c.accepts(k); err != nil {
		return err
	}
	if c.builder == nil {
		c.builder = newBuilder(c.mem, k)
		c.builder.AppendNulls(c.pending)
		c.kind = k
	}

	switch k {
	case schema.Bool:
		c.builder.(*array.BooleanBuilder).Append(v.(bool))
	case schema.Int:
		c.builder.(*array.Int32Builder).Append(v.(int32))
	case schema.Float:
		c.builder.(*array.Float32Builder).Append(v.(float32))
	case schema.String:
		c.builder.(*array.StringBuilder).Append(v.(string))
	case schema.ListBool:
		lb := c.builder.(*array.ListBuilder)
		lb.Append(true)
		vb := lb.ValueBuilder().(*array.BooleanBuilder)
		for _, e := range v.([]*bool) {
			if e == nil {
				vb.AppendNull()
			} else {
				vb.Append(*e)
			}
		}
	case schema.ListInt:
		lb := c.builder.(*array.ListBuilder)
		lb.Append(true)
		vb := lb.ValueBuilder().(*array.Int32Builder)
		for _, e := range v.([]*int32) {
			if e == nil {
				vb.AppendNull()
			} else {
				vb.Append(*e)
			}
		}
	case schema.ListFloat:
		lb := c.builder.(*array.ListBuilder)
		lb.Append(true)
		vb := lb.ValueBuilder().(*array.Float32Builder)
		for _, e := range v.([]*float32) {
			if e == nil {
				vb.AppendNull()
			} else {
				vb.Append(*e)
			}
		}
	case schema.ListString:
		lb := c.builder.(*array.ListBuilder)
		lb.Append(true)
		vb := lb.ValueBuilder().(*array.StringBuilder)
		for _, e := range v.([]*string) {
			if e == nil {
				vb.AppendNull()
			} else {
				vb.Append(*e)
			}
		}
	}
	return nil
}

// NewArray finalizes the buffer. An untyped column becomes an all-null array of its
// declared kind. The column must not be used afterwards.
func (c *ColumnData) NewArray() arrow.Array {
	if c.builder == nil {
		if c.declared == schema.Untyped {
			return array.NewNull(c.pending)
		}
		c.builder = newBuilder(c.mem, c.declared)
		c.builder.AppendNulls(c.pending)
	}
	arr := c.builder.NewArray()
	c.builder.Release()
	c.builder = nil
	return arr
}

func newBuilder(mem memory.Allocator, k schema.Kind) array.Builder {
	return array.NewBuilder(mem, k.ArrowType())
}
