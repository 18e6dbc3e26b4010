package rt

import (
	"github.com/kvothe-dev/jalopy/pkg/classfile"
	"github.com/kvothe-dev/jalopy/pkg/gc"
	"github.com/kvothe-dev/jalopy/pkg/istr"
)

// ObjectHandle is the GC handle for every heap-allocated Java object,
// including arrays: `new`, `newarray`/`anewarray`/`multianewarray`, and
// string-literal loads all produce one.
type ObjectHandle = gc.Handle[Object]

// Object is (class, data): either a plain-field instance or an array.
// java/lang/String instances are additionally backed by StringValue, an
// interned IStr, rather than decomposing into a char[] field — the intern
// table already guarantees permanence and content-hash equality, so there's
// no reason to re-derive those properties through ordinary field storage.
type Object struct {
	Class ClassHandle
	Array *ArrayStorage // non-nil iff this object is an array
	Data  []FieldCell   // non-nil iff this object is a plain instance

	HasStringValue bool
	StringValue    istr.Handle

	// Native is opaque host-side storage for natively-backed library
	// classes (java/util/HashMap's bucket table, java/io/PrintStream's
	// io.Writer, ...) that have no sensible representation as ordinary
	// Java fields. Only native methods registered against the owning
	// class ever read or write it.
	Native interface{}
}

// FieldCell is one instance field slot on a concrete object, cloned from
// the owning Class's instance-field template at `new` time.
type FieldCell struct {
	Descriptor ResolvedDescriptor
	Name       string
	Value      Value
}

// Trace marks the class and, for reference-bearing storage, every live
// element/field. Primitive storage needs no tracing.
func (o *Object) Trace(h *gc.Heap) {
	o.Class.Mark(h)
	if o.Array != nil {
		o.Array.trace(h)
	}
	for i := range o.Data {
		if o.Data[i].Value.Tag() == TagRef {
			o.Data[i].Value.Object().Mark(h)
		}
	}
}

// ArrayKind tags which element representation an ArrayStorage holds.
type ArrayKind int

const (
	ArrayByte ArrayKind = iota
	ArrayChar
	ArrayDouble
	ArrayFloat
	ArrayInt
	ArrayLong
	ArrayShort
	ArrayBoolean
	ArrayObject
)

// ArrayStorage is a tagged variant: one case per primitive element type
// plus an object case carrying nullable handles.
type ArrayStorage struct {
	Kind    ArrayKind
	ElemCls ClassHandle // valid iff Kind == ArrayObject: the element class

	Bytes    []int8
	Chars    []uint16
	Doubles  []float64
	Floats   []float32
	Ints     []int32
	Longs    []int64
	Shorts   []int16
	Booleans []int8
	Objects  []ObjectHandle
}

func (a *ArrayStorage) Len() int {
	switch a.Kind {
	case ArrayByte:
		return len(a.Bytes)
	case ArrayChar:
		return len(a.Chars)
	case ArrayDouble:
		return len(a.Doubles)
	case ArrayFloat:
		return len(a.Floats)
	case ArrayInt:
		return len(a.Ints)
	case ArrayLong:
		return len(a.Longs)
	case ArrayShort:
		return len(a.Shorts)
	case ArrayBoolean:
		return len(a.Booleans)
	case ArrayObject:
		return len(a.Objects)
	}
	return 0
}

func (a *ArrayStorage) trace(h *gc.Heap) {
	if a.Kind == ArrayObject {
		a.ElemCls.Mark(h)
		for _, o := range a.Objects {
			o.Mark(h)
		}
	}
}

// newArrayStorage allocates zero-filled storage of the given kind and length.
func newArrayStorage(kind ArrayKind, length int, elemCls ClassHandle) *ArrayStorage {
	a := &ArrayStorage{Kind: kind, ElemCls: elemCls}
	switch kind {
	case ArrayByte:
		a.Bytes = make([]int8, length)
	case ArrayChar:
		a.Chars = make([]uint16, length)
	case ArrayDouble:
		a.Doubles = make([]float64, length)
	case ArrayFloat:
		a.Floats = make([]float32, length)
	case ArrayInt:
		a.Ints = make([]int32, length)
	case ArrayLong:
		a.Longs = make([]int64, length)
	case ArrayShort:
		a.Shorts = make([]int16, length)
	case ArrayBoolean:
		a.Booleans = make([]int8, length)
	case ArrayObject:
		a.Objects = make([]ObjectHandle, length)
	}
	return a
}

// arrayKindFromDescriptorKind maps a primitive descriptor kind to the
// ArrayStorage case that holds it.
func arrayKindFromDescriptorKind(k classfile.DescKind) (ArrayKind, bool) {
	switch k {
	case classfile.DescByte, classfile.DescBoolean:
		if k == classfile.DescBoolean {
			return ArrayBoolean, true
		}
		return ArrayByte, true
	case classfile.DescChar:
		return ArrayChar, true
	case classfile.DescDouble:
		return ArrayDouble, true
	case classfile.DescFloat:
		return ArrayFloat, true
	case classfile.DescInt:
		return ArrayInt, true
	case classfile.DescLong:
		return ArrayLong, true
	case classfile.DescShort:
		return ArrayShort, true
	}
	return 0, false
}
