package rt

import (
	"math"

	"github.com/kvothe-dev/jalopy/pkg/classfile"
)

// ValueTag discriminates the two shapes a Value can hold: an object
// reference or a 64-bit primitive, packed as a tagged union rather than an
// interface so the stack word stays allocation-free.
type ValueTag uint8

const (
	TagInt ValueTag = iota
	TagLong
	TagFloat
	TagDouble
	TagRef
)

// Value is a single interpreter stack word: either a nullable object
// handle or a 64-bit primitive packed into Bits. Conversions are explicit
// and assert the expected tag.
type Value struct {
	tag  ValueTag
	bits uint64
	ref  ObjectHandle // valid iff tag == TagRef; zero Handle means null
}

func IntVal(v int32) Value    { return Value{tag: TagInt, bits: uint64(uint32(v))} }
func LongVal(v int64) Value   { return Value{tag: TagLong, bits: uint64(v)} }
func FloatVal(v float32) Value {
	return Value{tag: TagFloat, bits: uint64(math.Float32bits(v))}
}
func DoubleVal(v float64) Value { return Value{tag: TagDouble, bits: math.Float64bits(v)} }
func RefVal(h ObjectHandle) Value { return Value{tag: TagRef, ref: h} }
func NullVal() Value            { return Value{tag: TagRef} }

func (v Value) Tag() ValueTag { return v.tag }

func (v Value) Int() int32 {
	mustTag(v, TagInt)
	return int32(uint32(v.bits))
}

func (v Value) Long() int64 {
	mustTag(v, TagLong)
	return int64(v.bits)
}

func (v Value) Float() float32 {
	mustTag(v, TagFloat)
	return math.Float32frombits(uint32(v.bits))
}

func (v Value) Double() float64 {
	mustTag(v, TagDouble)
	return math.Float64frombits(v.bits)
}

func (v Value) Object() ObjectHandle {
	mustTag(v, TagRef)
	return v.ref
}

func (v Value) IsNull() bool {
	return v.tag == TagRef && !v.ref.Valid()
}

// isWide reports whether v is a category-2 computational type (long or
// double), which occupies a single stack word in this design but still
// behaves as its own category for dup/pop-family ops.
func (v Value) isWide() bool {
	return v.tag == TagLong || v.tag == TagDouble
}

func mustTag(v Value, want ValueTag) {
	if v.tag != want {
		panic("rt: Value tag assertion failed")
	}
}

// DefaultValue returns the zero value for a resolved descriptor's kind,
// used to initialize fields and freshly-allocated array slots.
func DefaultValue(d ResolvedDescriptor) Value {
	switch d.Kind {
	case classfile.DescLong:
		return LongVal(0)
	case classfile.DescFloat:
		return FloatVal(0)
	case classfile.DescDouble:
		return DoubleVal(0)
	case classfile.DescClass, classfile.DescArray:
		return NullVal()
	default:
		return IntVal(0)
	}
}
