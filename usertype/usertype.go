// Package usertype implements the enumerable set of user types a
// register can be read or written as, and total conversion functions
// between any pair of them.
package usertype

import (
	"fmt"
	"math"
	"strconv"
)

// Kind tags one member of the user-type enumeration.
type Kind uint8

const (
	Int8 Kind = iota
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
	String
	Boolean
	Void
)

func (k Kind) String() string {
	switch k {
	case Int8:
		return "int8"
	case Uint8:
		return "uint8"
	case Int16:
		return "int16"
	case Uint16:
		return "uint16"
	case Int32:
		return "int32"
	case Uint32:
		return "uint32"
	case Int64:
		return "int64"
	case Uint64:
		return "uint64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case String:
		return "string"
	case Boolean:
		return "boolean"
	case Void:
		return "void"
	default:
		return fmt.Sprintf("usertype.Kind(%d)", uint8(k))
	}
}

// IsIntegral reports whether k names one of the fixed-width integer kinds.
func (k Kind) IsIntegral() bool {
	switch k {
	case Int8, Uint8, Int16, Uint16, Int32, Uint32, Int64, Uint64:
		return true
	default:
		return false
	}
}

// IsSigned reports whether k names a signed integer kind. Non-integral
// kinds report false.
func (k Kind) IsSigned() bool {
	switch k {
	case Int8, Int16, Int32, Int64:
		return true
	default:
		return false
	}
}

// Value is a tagged union over the user-type enumeration. Exactly one
// of the fields is meaningful, selected by Kind.
type Value struct {
	Kind    Kind
	i       int64
	u       uint64
	f       float64
	s       string
	boolean bool
}

func FromInt64(v int64) Value    { return Value{Kind: Int64, i: v} }
func FromUint64(v uint64) Value  { return Value{Kind: Uint64, u: v} }
func FromFloat64(v float64) Value { return Value{Kind: Float64, f: v} }
func FromFloat32(v float32) Value { return Value{Kind: Float32, f: float64(v)} }
func FromString(v string) Value  { return Value{Kind: String, s: v} }
func FromBool(v bool) Value      { return Value{Kind: Boolean, boolean: v} }

// rangeTable gives the representable [min, max] for every integral kind.
var rangeTable = map[Kind][2]int64{
	Int8:   {math.MinInt8, math.MaxInt8},
	Uint8:  {0, math.MaxUint8},
	Int16:  {math.MinInt16, math.MaxInt16},
	Uint16: {0, math.MaxUint16},
	Int32:  {math.MinInt32, math.MaxInt32},
	Uint32: {0, math.MaxUint32},
	Int64:  {math.MinInt64, math.MaxInt64},
	// Uint64's true max overflows int64; handled specially where needed.
}

// asFloat64 returns the value's best-effort float64 representation,
// regardless of its stored Kind. This is the common pivot every
// cross-type conversion below goes through.
func (v Value) asFloat64() float64 {
	switch v.Kind {
	case Int8, Int16, Int32, Int64:
		return float64(v.i)
	case Uint8, Uint16, Uint32, Uint64:
		return float64(v.u)
	case Float32, Float64:
		return v.f
	case Boolean:
		if v.boolean {
			return 1
		}
		return 0
	case String:
		f, _ := strconv.ParseFloat(v.s, 64)
		return f
	default:
		return 0
	}
}

// roundHalfAwayFromZero rounds x to the nearest integer, ties away from zero.
func roundHalfAwayFromZero(x float64) float64 {
	if x >= 0 {
		return math.Floor(x + 0.5)
	}
	return math.Ceil(x - 0.5)
}

// ConvertRangeChecked converts v to the target kind, clamping to the
// target's representable range with round-to-nearest for any
// fractional source. This is the variant used for raw/fixed-point
// transfers per spec §4.2.
func ConvertRangeChecked(v Value, to Kind) (Value, error) {
	switch to {
	case String:
		return FromString(FormatString(v)), nil
	case Boolean:
		return FromBool(v.asFloat64() != 0), nil
	case Float32:
		return FromFloat32(float32(v.asFloat64())), nil
	case Float64:
		return FromFloat64(v.asFloat64()), nil
	case Void:
		return Value{Kind: Void}, nil
	}
	if !to.IsIntegral() {
		return Value{}, fmt.Errorf("usertype: unsupported target kind %s", to)
	}
	f := roundHalfAwayFromZero(v.asFloat64())
	if to == Uint64 {
		if f < 0 {
			f = 0
		}
		if f > math.MaxUint64 {
			f = math.MaxUint64
		}
		return FromUint64(uint64(f)), nil
	}
	lim := rangeTable[to]
	if f < float64(lim[0]) {
		f = float64(lim[0])
	}
	if f > float64(lim[1]) {
		f = float64(lim[1])
	}
	if to.IsSigned() {
		return FromInt64(int64(f)), nil
	}
	return FromUint64(uint64(int64(f))), nil
}

// ConvertDirect converts v to the target kind with a direct cast
// (truncating, wraparound on overflow) rather than range-checked
// rounding. Used where the caller has already established the value
// fits (e.g. unpacking a raw word of known width).
func ConvertDirect(v Value, to Kind) Value {
	switch to {
	case Int8:
		return FromInt64(int64(int8(v.asFloat64())))
	case Uint8:
		return FromUint64(uint64(uint8(v.asFloat64())))
	case Int16:
		return FromInt64(int64(int16(v.asFloat64())))
	case Uint16:
		return FromUint64(uint64(uint16(v.asFloat64())))
	case Int32:
		return FromInt64(int64(int32(v.asFloat64())))
	case Uint32:
		return FromUint64(uint64(uint32(v.asFloat64())))
	case Int64:
		return FromInt64(int64(v.asFloat64()))
	case Uint64:
		return FromUint64(uint64(v.asFloat64()))
	case Float32:
		return FromFloat32(float32(v.asFloat64()))
	case Float64:
		return FromFloat64(v.asFloat64())
	case Boolean:
		return FromBool(v.asFloat64() != 0)
	case String:
		return FromString(FormatString(v))
	default:
		return Value{Kind: Void}
	}
}

// FormatString renders v using decimal round-trip formatting suitable
// for ParseString to invert exactly for any finite value representable
// in v's own Kind.
func FormatString(v Value) string {
	switch v.Kind {
	case Int8, Int16, Int32, Int64:
		return strconv.FormatInt(v.i, 10)
	case Uint8, Uint16, Uint32, Uint64:
		return strconv.FormatUint(v.u, 10)
	case Float32:
		return strconv.FormatFloat(v.f, 'g', -1, 32)
	case Float64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case Boolean:
		return strconv.FormatBool(v.boolean)
	case String:
		return v.s
	default:
		return ""
	}
}

// ParseString parses s into the given Kind using the inverse of
// FormatString.
func ParseString(s string, to Kind) (Value, error) {
	switch to {
	case Int8, Int16, Int32, Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, err
		}
		return ConvertRangeChecked(FromInt64(n), to)
	case Uint8, Uint16, Uint32, Uint64:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return Value{}, err
		}
		return ConvertRangeChecked(FromUint64(n), to)
	case Float32:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return Value{}, err
		}
		return FromFloat32(float32(f)), nil
	case Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, err
		}
		return FromFloat64(f), nil
	case Boolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Value{}, err
		}
		return FromBool(b), nil
	case String:
		return FromString(s), nil
	default:
		return Value{}, fmt.Errorf("usertype: cannot parse into kind %s", to)
	}
}

// Int64 returns v as an int64, converting if necessary. It is a
// convenience accessor for call sites that already know v holds an
// integral or boolean value.
func (v Value) Int64() int64 {
	switch v.Kind {
	case Int8, Int16, Int32, Int64:
		return v.i
	case Uint8, Uint16, Uint32, Uint64:
		return int64(v.u)
	case Boolean:
		if v.boolean {
			return 1
		}
		return 0
	default:
		return int64(v.asFloat64())
	}
}

// Float64 returns v's float64 representation.
func (v Value) Float64() float64 { return v.asFloat64() }

// String returns v's string representation (via FormatString).
func (v Value) String() string { return FormatString(v) }

// Bool returns v's boolean representation (nonzero is true).
func (v Value) Bool() bool {
	if v.Kind == Boolean {
		return v.boolean
	}
	return v.asFloat64() != 0
}
