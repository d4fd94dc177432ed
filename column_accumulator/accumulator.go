package column_accumulator

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/danthegoodman1/vcf2parquet/schema"
	"github.com/danthegoodman1/vcf2parquet/vcf"
)

type (
	// Accumulator holds one ColumnData per schema column, in schema order. It is filled with
	// AddRecord and consumed once by Finish.
	Accumulator struct {
		schema   *schema.Schema
		slots    []*ColumnData
		rows     int
		finished bool

		// reused between records
		cells []cell
	}

	// cell is one extracted value, kind is schema.Untyped for null
	cell struct {
		kind  schema.Kind
		value any
	}
)

func New(s *schema.Schema) *Accumulator {
	return NewWithAllocator(s, memory.DefaultAllocator)
}

func NewWithAllocator(s *schema.Schema, mem memory.Allocator) *Accumulator {
	a := &Accumulator{
		schema: s,
		slots:  make([]*ColumnData, s.Len()),
		cells:  make([]cell, s.Len()),
	}
	for i := 0; i < s.Len(); i++ {
		col := s.Column(i)
		a.slots[i] = NewColumnData(col.Name, col.Kind, mem)
	}
	return a
}

// Len returns the number of records added.
func (a *Accumulator) Len() int {
	return a.rows
}

// Column returns the buffer of the named column. Unknown names are a programming error.
func (a *Accumulator) Column(name string) *ColumnData {
	if a.finished {
		panic("column_accumulator: use after Finish")
	}
	i, ok := a.schema.Index(name)
	if !ok {
		panic(fmt.Sprintf("column_accumulator: unknown column %q", name))
	}
	return a.slots[i]
}

func (a *Accumulator) PushNull(name string) {
	a.Column(name).PushNull()
}

func (a *Accumulator) PushBool(name string, v *bool) error {
	return a.Column(name).PushBool(v)
}

func (a *Accumulator) PushI32(name string, v *int32) error {
	return a.Column(name).PushI32(v)
}

func (a *Accumulator) PushF32(name string, v *float32) error {
	return a.Column(name).PushF32(v)
}

func (a *Accumulator) PushString(name string, v *string) error {
	return a.Column(name).PushString(v)
}

func (a *Accumulator) PushVecBool(name string, v []*bool) error {
	return a.Column(name).PushVecBool(v)
}

func (a *Accumulator) PushVecI32(name string, v []*int32) error {
	return a.Column(name).PushVecI32(v)
}

func (a *Accumulator) PushVecF32(name string, v []*float32) error {
	return a.Column(name).PushVecF32(v)
}

func (a *Accumulator) PushVecString(name string, v []*string) error {
	return a.Column(name).PushVecString(v)
}

// AddRecord pushes exactly one value, possibly null, into every column. All values are checked
// before any is pushed, so a record rejected with ErrNoConversion leaves every column at its
// previous length.
func (a *Accumulator) AddRecord(rec *vcf.Record, _ *vcf.Header) error {
	if a.finished {
		panic("column_accumulator: use after Finish")
	}

	for i := range a.slots {
		c := extract(a.schema.Column(i), rec)
		if c.kind != schema.Untyped {
			if err := a.slots[i].accepts(c.kind); err != nil {
				return err
			}
		}
		a.cells[i] = c
	}

	for i, c := range a.cells {
		if c.kind == schema.Untyped {
			a.slots[i].PushNull()
			continue
		}
		if err := a.slots[i].push(c.kind, c.value); err != nil {
			// accepts already passed for every slot
			panic(err)
		}
		a.cells[i] = cell{}
	}
	a.rows++
	return nil
}

// Finish converts every column, in schema order, into an arrow array of length Len().
func (a *Accumulator) Finish() []arrow.Array {
	if a.finished {
		panic("column_accumulator: Finish called twice")
	}
	a.finished = true
	arrays := make([]arrow.Array, len(a.slots))
	for i, slot := range a.slots {
		arrays[i] = slot.NewArray()
	}
	a.slots = nil
	return arrays
}

func extract(col schema.Column, rec *vcf.Record) cell {
	switch col.Origin {
	case schema.OriginInfo:
		v, ok := rec.InfoValue(col.Source)
		if !ok {
			return cell{}
		}
		return cellOf(v)
	case schema.OriginFormat:
		v, ok := rec.SampleValue(col.Source, col.Sample)
		if !ok {
			return cell{}
		}
		return cellOf(v)
	}

	switch col.Name {
	case schema.Chromosome:
		return cell{kind: schema.String, value: rec.Chromosome}
	case schema.Position:
		return cell{kind: schema.Int, value: rec.Position}
	case schema.Identifier:
		return stringList(rec.IDs)
	case schema.Reference:
		return cell{kind: schema.String, value: rec.Reference}
	case schema.Alternate:
		return stringList(rec.Alternates)
	case schema.Quality:
		if rec.Quality == nil {
			return cell{}
		}
		return cell{kind: schema.Float, value: *rec.Quality}
	case schema.Filter:
		return stringList(rec.Filters)
	}
	return cell{}
}

func stringList(values []string) cell {
	if len(values) == 0 {
		return cell{}
	}
	out := make([]*string, len(values))
	for i := range values {
		out[i] = &values[i]
	}
	return cell{kind: schema.ListString, value: out}
}

// cellOf maps a parsed vcf.Value onto the kind it would be stored as.
func cellOf(v vcf.Value) cell {
	switch t := v.(type) {
	case nil:
		return cell{}
	case bool:
		return cell{kind: schema.Bool, value: t}
	case int32:
		return cell{kind: schema.Int, value: t}
	case float32:
		return cell{kind: schema.Float, value: t}
	case string:
		return cell{kind: schema.String, value: t}
	case []*bool:
		if t == nil {
			return cell{}
		}
		return cell{kind: schema.ListBool, value: t}
	case []*int32:
		if t == nil {
			return cell{}
		}
		return cell{kind: schema.ListInt, value: t}
	case []*float32:
		if t == nil {
			return cell{}
		}
		return cell{kind: schema.ListFloat, value: t}
	case []*string:
		if t == nil {
			return cell{}
		}
		return cell{kind: schema.ListString, value: t}
	default:
		return cell{kind: schema.String, value: fmt.Sprint(t)}
	}
}
