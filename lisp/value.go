// Package lisp implements the reader, compiler, and virtual machine for a
// small Lisp dialect, sharing one tagged value representation across all
// three stages.
package lisp

import (
	"math"
)

// Kind tags the variant held by a [Val].
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt32
	KindInt64
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindString
	KindSymbol
	KindCons
	KindVector
	KindMap
	KindClosure
	KindReturnAddress
	KindObject
)

// String returns a short label for the kind, used in error messages and
// debug prints.
func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindUint32:
		return "uint32"
	case KindUint64:
		return "uint64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindCons:
		return "cons"
	case KindVector:
		return "vector"
	case KindMap:
		return "map"
	case KindClosure:
		return "closure"
	case KindReturnAddress:
		return "return-address"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Val is a tagged union holding exactly one of the variants named in spec
// section 3. Scalar variants are stored inline; heap variants are stored
// behind ref so identity comparisons are reference comparisons on ref.
type Val struct {
	Kind Kind
	num  uint64 // bit pattern: bool (0/1), int32/int64 (two's complement), uint32/uint64, float32/float64 (IEEE bits)
	str  string // KindString payload
	ref  any    // *Symbol, *Cons, *Vector, *MapVal, *Closure, *ReturnAddress, or an opaque host value for KindObject
}

// Nil is the distinguished nil value. It prints as "()" and is distinct
// from Bool(false), but is false under truthiness tests like Bool(false).
var Nil = Val{Kind: KindNil}

// Bool constructs a boolean value.
func Bool(b bool) Val {
	v := Val{Kind: KindBool}
	if b {
		v.num = 1
	}

	return v
}

// Int32 constructs a 32-bit signed integer value.
func Int32(i int32) Val {
	return Val{Kind: KindInt32, num: uint64(uint32(i))}
}

// Int64 constructs a 64-bit signed integer value.
func Int64(i int64) Val {
	return Val{Kind: KindInt64, num: uint64(i)}
}

// Uint32 constructs a 32-bit unsigned integer value.
func Uint32(u uint32) Val {
	return Val{Kind: KindUint32, num: uint64(u)}
}

// Uint64 constructs a 64-bit unsigned integer value.
func Uint64(u uint64) Val {
	return Val{Kind: KindUint64, num: u}
}

// Float32 constructs a 32-bit floating point value.
func Float32(f float32) Val {
	return Val{Kind: KindFloat32, num: uint64(math.Float32bits(f))}
}

// Float64 constructs a 64-bit floating point value.
func Float64(f float64) Val {
	return Val{Kind: KindFloat64, num: math.Float64bits(f)}
}

// Str constructs an immutable string value.
func Str(s string) Val {
	return Val{Kind: KindString, str: s}
}

// SymVal wraps an interned symbol as a Val.
func SymVal(s *Symbol) Val {
	return Val{Kind: KindSymbol, ref: s}
}

// ConsVal wraps a cons cell as a Val.
func ConsVal(c *Cons) Val {
	return Val{Kind: KindCons, ref: c}
}

// VectorVal wraps a vector as a Val.
func VectorVal(v *Vector) Val {
	return Val{Kind: KindVector, ref: v}
}

// MapValOf wraps an immutable map as a Val.
func MapValOf(m *MapVal) Val {
	return Val{Kind: KindMap, ref: m}
}

// ClosureVal wraps a closure as a Val.
func ClosureVal(c *Closure) Val {
	return Val{Kind: KindClosure, ref: c}
}

// ReturnAddressVal wraps a return address as a Val.
func ReturnAddressVal(r *ReturnAddress) Val {
	return Val{Kind: KindReturnAddress, ref: r}
}

// ObjectVal wraps an opaque host value, used only by interop primitives.
func ObjectVal(obj any) Val {
	return Val{Kind: KindObject, ref: obj}
}

// IsNil reports whether v is the distinguished nil value.
func (v Val) IsNil() bool { return v.Kind == KindNil }

// AsBool returns the boolean payload; only meaningful when Kind == KindBool.
func (v Val) AsBool() bool { return v.num != 0 }

// Int64 returns the integer payload widened to int64; meaningful for any
// integer Kind.
func (v Val) Int64() int64 {
	switch v.Kind {
	case KindInt32:
		return int64(int32(v.num))
	case KindInt64:
		return int64(v.num)
	case KindUint32:
		return int64(uint32(v.num))
	case KindUint64:
		return int64(v.num)
	default:
		return 0
	}
}

// Uint64 returns the unsigned integer payload.
func (v Val) Uint64() uint64 { return v.num }

// Float64 returns the float payload widened to float64; integer payloads
// are converted to float64.
func (v Val) Float64() float64 {
	switch v.Kind {
	case KindInt32, KindInt64:
		return float64(v.Int64())
	case KindUint32, KindUint64:
		return float64(v.Uint64())
	case KindFloat32:
		return float64(math.Float32frombits(uint32(v.num)))
	case KindFloat64:
		return math.Float64frombits(v.num)
	default:
		return 0
	}
}

// AsStr returns the string payload; only meaningful when Kind == KindString.
func (v Val) AsStr() string { return v.str }

// Symbol returns the symbol payload; only meaningful when Kind == KindSymbol.
func (v Val) Symbol() *Symbol { s, _ := v.ref.(*Symbol); return s }

// Cons returns the cons payload; only meaningful when Kind == KindCons.
func (v Val) Cons() *Cons { c, _ := v.ref.(*Cons); return c }

// Vector returns the vector payload; only meaningful when Kind == KindVector.
func (v Val) Vector() *Vector { vec, _ := v.ref.(*Vector); return vec }

// Map returns the map payload; only meaningful when Kind == KindMap.
func (v Val) Map() *MapVal { m, _ := v.ref.(*MapVal); return m }

// Closure returns the closure payload; only meaningful when Kind == KindClosure.
func (v Val) Closure() *Closure { c, _ := v.ref.(*Closure); return c }

// ReturnAddress returns the return-address payload.
func (v Val) ReturnAddress() *ReturnAddress { r, _ := v.ref.(*ReturnAddress); return r }

// Object returns the opaque host payload; only meaningful when
// Kind == KindObject.
func (v Val) Object() any { return v.ref }

// IsInteger reports whether v holds one of the integer Kinds.
func (v Val) IsInteger() bool {
	switch v.Kind {
	case KindInt32, KindInt64, KindUint32, KindUint64:
		return true
	default:
		return false
	}
}

// IsFloat reports whether v holds one of the float Kinds.
func (v Val) IsFloat() bool {
	return v.Kind == KindFloat32 || v.Kind == KindFloat64
}

// IsNumber reports whether v holds an integer or float Kind.
func (v Val) IsNumber() bool { return v.IsInteger() || v.IsFloat() }

// Truthy implements the truthiness rule from spec section 3/4.3: only #f and
// nil are false, every other value (including 0 and "") is true.
func (v Val) Truthy() bool {
	if v.Kind == KindNil {
		return false
	}

	if v.Kind == KindBool {
		return v.AsBool()
	}

	return true
}

// Equal implements the structural/bitwise/reference-identity equality rule
// from spec section 3.
func Equal(a, b Val) bool {
	if a.Kind != b.Kind {
		return false
	}

	switch a.Kind {
	case KindNil:
		return true
	case KindBool, KindInt32, KindInt64, KindUint32, KindUint64, KindFloat32, KindFloat64:
		return a.num == b.num
	case KindString:
		return a.str == b.str
	case KindMap:
		return mapEqual(a.Map(), b.Map())
	case KindSymbol, KindCons, KindVector, KindClosure, KindObject, KindReturnAddress:
		return a.ref == b.ref
	default:
		return false
	}
}
