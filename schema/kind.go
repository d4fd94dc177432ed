package schema

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// Kind is the storage kind of a column: an element type plus the list flag.
type Kind int

const (
	// Untyped is only used by column buffers that have not received a value yet
	Untyped Kind = iota
	Bool
	Int
	Float
	String
	ListBool
	ListInt
	ListFloat
	ListString
)

var kindNames = map[Kind]string{
	Untyped:    "Untyped",
	Bool:       "Bool",
	Int:        "Int",
	Float:      "Float",
	String:     "String",
	ListBool:   "ListBool",
	ListInt:    "ListInt",
	ListFloat:  "ListFloat",
	ListString: "ListString",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

func (k Kind) IsList() bool {
	return k >= ListBool && k <= ListString
}

// Elem returns the scalar kind of a list kind, or k itself.
func (k Kind) Elem() Kind {
	if k.IsList() {
		return k - ListBool + Bool
	}
	return k
}

// List returns the list kind holding elements of kind k.
func (k Kind) List() Kind {
	if k >= Bool && k <= String {
		return k - Bool + ListBool
	}
	return k
}

// ArrowType returns the arrow data type used to materialize the kind.
func (k Kind) ArrowType() arrow.DataType {
	switch k {
	case Bool:
		return arrow.FixedWidthTypes.Boolean
	case Int:
		return arrow.PrimitiveTypes.Int32
	case Float:
		return arrow.PrimitiveTypes.Float32
	case String:
		return arrow.BinaryTypes.String
	case ListBool, ListInt, ListFloat, ListString:
		return arrow.ListOf(k.Elem().ArrowType())
	default:
		return arrow.Null
	}
}
