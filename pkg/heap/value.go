package heap

import (
	"fmt"
	"strconv"

	"cactus_go/pkg/cactusref"
)

// Kind is the type tag of a Value
type Kind int

const (
	KNil Kind = iota
	KInt
	KStr
	KRef  // strong handle to an Object
	KWeak // weak handle to an Object
)

// Value is the tagged union the host runtime passes around.
//
// A Value of kind KRef or KWeak carries a handle. Values returned by Heap
// methods are owned by the caller and must be released; Values passed in are
// borrowed.
type Value struct {
	Kind Kind
	Int  int64
	Str  string
	Ref  *cactusref.Rc[*Object]
	Weak *cactusref.Weak[*Object]
}

// Nil is the empty value
var Nil = Value{Kind: KNil}

// Int creates an integer value
func Int(i int64) Value {
	return Value{Kind: KInt, Int: i}
}

// Str creates a string value
func Str(s string) Value {
	return Value{Kind: KStr, Str: s}
}

// IsRef checks if a value holds a strong handle
func (v Value) IsRef() bool {
	return v.Kind == KRef && v.Ref != nil
}

// IsWeak checks if a value holds a weak handle
func (v Value) IsWeak() bool {
	return v.Kind == KWeak && v.Weak != nil
}

// Object returns the object behind a strong handle, or nil
func (v Value) Object() *Object {
	if !v.IsRef() {
		return nil
	}
	return *v.Ref.Deref()
}

// Clone duplicates the handle carried by v, if any.
func (v Value) Clone() Value {
	switch {
	case v.IsRef():
		return Value{Kind: KRef, Ref: v.Ref.Clone()}
	case v.IsWeak():
		return Value{Kind: KWeak, Weak: v.Weak.Clone()}
	default:
		return v
	}
}

// Release drops the handle carried by v, if any.
func (v Value) Release() {
	switch {
	case v.IsRef():
		v.Ref.Drop()
	case v.IsWeak():
		v.Weak.Drop()
	}
}

// Truthy reports whether v counts as true in a condition
func (v Value) Truthy() bool {
	switch v.Kind {
	case KNil:
		return false
	case KInt:
		return v.Int != 0
	default:
		return true
	}
}

// String renders scalars; containers render through Inspect
func (v Value) String() string {
	switch v.Kind {
	case KNil:
		return "nil"
	case KInt:
		return strconv.FormatInt(v.Int, 10)
	case KStr:
		return strconv.Quote(v.Str)
	case KRef, KWeak:
		return Inspect(v)
	default:
		return fmt.Sprintf("#<unknown %d>", v.Kind)
	}
}

// KindName returns the name of a kind
func KindName(k Kind) string {
	switch k {
	case KNil:
		return "nil"
	case KInt:
		return "int"
	case KStr:
		return "str"
	case KRef:
		return "ref"
	case KWeak:
		return "weak"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}
