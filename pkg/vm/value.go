package vm

import (
	"fmt"
	"math"
)

// ValueType represents the type of a Value held in a field, local or stack slot.
type ValueType int

const (
	TypeInt ValueType = iota
	TypeLong
	TypeFloat
	TypeDouble
	TypeRef
	TypeNull
	// TypeTop marks the second slot of a long or double.
	TypeTop
)

func (t ValueType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeLong:
		return "long"
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	case TypeRef:
		return "ref"
	case TypeNull:
		return "null"
	case TypeTop:
		return "top"
	}
	return fmt.Sprintf("ValueType(%d)", int(t))
}

// Value is a typed slot. Int covers boolean, byte, char, short and int.
// Long holds the 64-bit payload of long, float and double values; floats
// and doubles are stored as IEEE-754 bits.
type Value struct {
	Type ValueType
	Int  int32
	Long int64
	Ref  interface{}
}

// IntValue creates an integer Value.
func IntValue(v int32) Value {
	return Value{Type: TypeInt, Int: v}
}

// LongValue creates a long Value.
func LongValue(v int64) Value {
	return Value{Type: TypeLong, Long: v}
}

// FloatValue creates a float Value.
func FloatValue(v float32) Value {
	return Value{Type: TypeFloat, Long: int64(math.Float32bits(v))}
}

// DoubleValue creates a double Value.
func DoubleValue(v float64) Value {
	return Value{Type: TypeDouble, Long: int64(math.Float64bits(v))}
}

// RefValue creates a reference Value.
func RefValue(ref interface{}) Value {
	return Value{Type: TypeRef, Ref: ref}
}

// NullValue creates a null reference Value.
func NullValue() Value {
	return Value{Type: TypeNull}
}

// Wide reports whether v takes two local or operand stack slots.
func (v Value) Wide() bool {
	return v.Type == TypeLong || v.Type == TypeDouble
}

func (v Value) Float() float32 {
	return math.Float32frombits(uint32(v.Long))
}

func (v Value) Double() float64 {
	return math.Float64frombits(uint64(v.Long))
}

func (v Value) String() string {
	switch v.Type {
	case TypeInt:
		return fmt.Sprintf("%d", v.Int)
	case TypeLong:
		return fmt.Sprintf("%dL", v.Long)
	case TypeFloat:
		return fmt.Sprintf("%gf", v.Float())
	case TypeDouble:
		return fmt.Sprintf("%g", v.Double())
	case TypeRef:
		if s, ok := v.Ref.(string); ok {
			return fmt.Sprintf("%q", s)
		}
		return fmt.Sprintf("%v", v.Ref)
	case TypeTop:
		return "top"
	}
	return "null"
}

// ZeroValue returns the default value of a field with the given descriptor.
func ZeroValue(descriptor string) Value {
	if descriptor == "" {
		return NullValue()
	}
	switch descriptor[0] {
	case 'B', 'C', 'I', 'S', 'Z':
		return IntValue(0)
	case 'J':
		return LongValue(0)
	case 'F':
		return FloatValue(0)
	case 'D':
		return DoubleValue(0)
	}
	return NullValue()
}
