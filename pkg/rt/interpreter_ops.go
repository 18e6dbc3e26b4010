package rt

import (
	"github.com/kvothe-dev/jalopy/pkg/classfile"
	"github.com/kvothe-dev/jalopy/pkg/gc"
)

// classObjectFor returns (creating once) the java/lang/Class instance that
// reflectively represents cls, keyed by Class.Id.
func (ctx *Context) classObjectFor(cls ClassHandle) (ObjectHandle, error) {
	id := cls.Get().Id
	if obj, ok := ctx.classObjects[id]; ok {
		return obj, nil
	}
	jlc, err := ctx.LoadClass("java/lang/Class")
	if err != nil {
		return ObjectHandle{}, err
	}
	obj := newObjectNoInit(ctx, jlc)
	ctx.classObjects[id] = obj
	return obj, nil
}

func (f *frame) binArith(op *Op) (*JavaError, error) {
	ctx := f.ctx
	switch op.Num {
	case NumInt:
		b, a := f.pop().Int(), f.pop().Int()
		switch op.Kind {
		case OpAdd:
			f.push(IntVal(a + b))
		case OpSub:
			f.push(IntVal(a - b))
		case OpMul:
			f.push(IntVal(a * b))
		case OpDiv:
			if b == 0 {
				return mustThrow(ctx, "java/lang/ArithmeticException", "/ by zero"), nil
			}
			f.push(IntVal(a / b))
		case OpRem:
			if b == 0 {
				return mustThrow(ctx, "java/lang/ArithmeticException", "/ by zero"), nil
			}
			f.push(IntVal(a % b))
		}
	case NumLong:
		b, a := f.pop().Long(), f.pop().Long()
		switch op.Kind {
		case OpAdd:
			f.push(LongVal(a + b))
		case OpSub:
			f.push(LongVal(a - b))
		case OpMul:
			f.push(LongVal(a * b))
		case OpDiv:
			if b == 0 {
				return mustThrow(ctx, "java/lang/ArithmeticException", "/ by zero"), nil
			}
			f.push(LongVal(a / b))
		case OpRem:
			if b == 0 {
				return mustThrow(ctx, "java/lang/ArithmeticException", "/ by zero"), nil
			}
			f.push(LongVal(a % b))
		}
	case NumFloat:
		b, a := f.pop().Float(), f.pop().Float()
		switch op.Kind {
		case OpAdd:
			f.push(FloatVal(a + b))
		case OpSub:
			f.push(FloatVal(a - b))
		case OpMul:
			f.push(FloatVal(a * b))
		case OpDiv:
			f.push(FloatVal(a / b))
		case OpRem:
			f.push(FloatVal(floatRem(a, b)))
		}
	case NumDouble:
		b, a := f.pop().Double(), f.pop().Double()
		switch op.Kind {
		case OpAdd:
			f.push(DoubleVal(a + b))
		case OpSub:
			f.push(DoubleVal(a - b))
		case OpMul:
			f.push(DoubleVal(a * b))
		case OpDiv:
			f.push(DoubleVal(a / b))
		case OpRem:
			f.push(DoubleVal(doubleRem(a, b)))
		}
	}
	return nil, nil
}

func floatRem(a, b float32) float32 {
	return float32(doubleRem(float64(a), float64(b)))
}

func doubleRem(a, b float64) float64 {
	if b == 0 {
		return nanValue()
	}
	q := a / b
	trunc := float64(int64(q))
	return a - trunc*b
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

func (f *frame) unaryNeg(num NumKind) {
	switch num {
	case NumInt:
		f.push(IntVal(-f.pop().Int()))
	case NumLong:
		f.push(LongVal(-f.pop().Long()))
	case NumFloat:
		f.push(FloatVal(-f.pop().Float()))
	case NumDouble:
		f.push(DoubleVal(-f.pop().Double()))
	}
}

func (f *frame) shift(op *Op) {
	switch op.Num {
	case NumInt:
		shift, v := f.pop().Int(), f.pop().Int()
		s := uint(shift) & 0x1f
		switch op.Kind {
		case OpShl:
			f.push(IntVal(v << s))
		case OpShr:
			f.push(IntVal(v >> s))
		case OpUshr:
			f.push(IntVal(int32(uint32(v) >> s)))
		}
	case NumLong:
		shift, v := f.pop().Int(), f.pop().Long()
		s := uint(shift) & 0x3f
		switch op.Kind {
		case OpShl:
			f.push(LongVal(v << s))
		case OpShr:
			f.push(LongVal(v >> s))
		case OpUshr:
			f.push(LongVal(int64(uint64(v) >> s)))
		}
	}
}

func (f *frame) bitwise(op *Op) {
	switch op.Num {
	case NumInt:
		b, a := f.pop().Int(), f.pop().Int()
		switch op.Kind {
		case OpAnd:
			f.push(IntVal(a & b))
		case OpOr:
			f.push(IntVal(a | b))
		case OpXor:
			f.push(IntVal(a ^ b))
		}
	case NumLong:
		b, a := f.pop().Long(), f.pop().Long()
		switch op.Kind {
		case OpAnd:
			f.push(LongVal(a & b))
		case OpOr:
			f.push(LongVal(a | b))
		case OpXor:
			f.push(LongVal(a ^ b))
		}
	}
}

func (f *frame) convert(op *Op) {
	if op.Narrow != 0 {
		v := f.pop().Int()
		switch op.Narrow {
		case 1:
			f.push(IntVal(int32(int8(v))))
		case 2:
			f.push(IntVal(int32(uint16(v))))
		case 3:
			f.push(IntVal(int32(int16(v))))
		}
		return
	}
	switch op.From {
	case NumInt:
		v := f.pop().Int()
		switch op.To {
		case NumLong:
			f.push(LongVal(int64(v)))
		case NumFloat:
			f.push(FloatVal(float32(v)))
		case NumDouble:
			f.push(DoubleVal(float64(v)))
		}
	case NumLong:
		v := f.pop().Long()
		switch op.To {
		case NumInt:
			f.push(IntVal(int32(v)))
		case NumFloat:
			f.push(FloatVal(float32(v)))
		case NumDouble:
			f.push(DoubleVal(float64(v)))
		}
	case NumFloat:
		v := f.pop().Float()
		switch op.To {
		case NumInt:
			f.push(IntVal(float32ToInt32(v)))
		case NumLong:
			f.push(LongVal(float32ToInt64(v)))
		case NumDouble:
			f.push(DoubleVal(float64(v)))
		}
	case NumDouble:
		v := f.pop().Double()
		switch op.To {
		case NumInt:
			f.push(IntVal(float64ToInt32(v)))
		case NumLong:
			f.push(LongVal(float64ToInt64(v)))
		case NumFloat:
			f.push(FloatVal(float32(v)))
		}
	}
}

// float32ToInt32 etc. implement the JVM's saturating float->int conversion
// semantics (NaN -> 0, out-of-range saturates rather than wrapping).
func float32ToInt32(v float32) int32 { return float64ToInt32(float64(v)) }
func float32ToInt64(v float32) int64 { return float64ToInt64(float64(v)) }

func float64ToInt32(v float64) int32 {
	switch {
	case v != v: // NaN
		return 0
	case v >= 2147483647:
		return 2147483647
	case v <= -2147483648:
		return -2147483648
	default:
		return int32(v)
	}
}

func float64ToInt64(v float64) int64 {
	switch {
	case v != v:
		return 0
	case v >= 9223372036854775807:
		return 9223372036854775807
	case v <= -9223372036854775808:
		return -9223372036854775808
	default:
		return int64(v)
	}
}

func primitiveArrayDescriptor(kind ArrayKind) classfile.Descriptor {
	var k classfile.DescKind
	switch kind {
	case ArrayBoolean:
		k = classfile.DescBoolean
	case ArrayByte:
		k = classfile.DescByte
	case ArrayChar:
		k = classfile.DescChar
	case ArrayShort:
		k = classfile.DescShort
	case ArrayInt:
		k = classfile.DescInt
	case ArrayLong:
		k = classfile.DescLong
	case ArrayFloat:
		k = classfile.DescFloat
	case ArrayDouble:
		k = classfile.DescDouble
	}
	elem := classfile.Descriptor{Kind: k}
	return classfile.Descriptor{Kind: classfile.DescArray, Elem: &elem}
}

// buildMultiArray recursively constructs a multianewarray result: the
// outer len(dims) levels are materialized with real (possibly empty)
// arrays; any further nesting implied by arrClass's descriptor but not
// covered by dims is left null, matching javac's `new int[2][]` shape.
func buildMultiArray(ctx *Context, arrClass ClassHandle, dims []int32) (ObjectHandle, error) {
	c := arrClass.Get()
	length := dims[0]
	elemDesc := *c.ArrayValueType

	if len(dims) == 1 {
		if kind, ok := arrayKindFromDescriptorKind(elemDesc.Kind); ok {
			storage := newArrayStorage(kind, int(length), ClassHandle{})
			return gc.Alloc(ctx.Heap, Object{Class: arrClass, Array: storage}), nil
		}
		storage := newArrayStorage(ArrayObject, int(length), elemDesc.Class)
		return gc.Alloc(ctx.Heap, Object{Class: arrClass, Array: storage}), nil
	}

	storage := newArrayStorage(ArrayObject, int(length), elemDesc.Class)
	for i := range storage.Objects {
		sub, err := buildMultiArray(ctx, elemDesc.Class, dims[1:])
		if err != nil {
			return ObjectHandle{}, err
		}
		storage.Objects[i] = sub
	}
	return gc.Alloc(ctx.Heap, Object{Class: arrClass, Array: storage}), nil
}

func arrayLoad(ctx *Context, obj ObjectHandle, idx int32) (Value, *JavaError) {
	a := obj.Get().Array
	if idx < 0 || int(idx) >= a.Len() {
		return Value{}, mustThrow(ctx, "java/lang/ArrayIndexOutOfBoundsException", "")
	}
	switch a.Kind {
	case ArrayByte:
		return IntVal(int32(a.Bytes[idx])), nil
	case ArrayBoolean:
		return IntVal(int32(a.Booleans[idx])), nil
	case ArrayChar:
		return IntVal(int32(a.Chars[idx])), nil
	case ArrayShort:
		return IntVal(int32(a.Shorts[idx])), nil
	case ArrayInt:
		return IntVal(a.Ints[idx]), nil
	case ArrayLong:
		return LongVal(a.Longs[idx]), nil
	case ArrayFloat:
		return FloatVal(a.Floats[idx]), nil
	case ArrayDouble:
		return DoubleVal(a.Doubles[idx]), nil
	case ArrayObject:
		h := a.Objects[idx]
		if !h.Valid() {
			return NullVal(), nil
		}
		return RefVal(h), nil
	}
	return Value{}, nil
}

func arrayStore(ctx *Context, obj ObjectHandle, idx int32, v Value) *JavaError {
	a := obj.Get().Array
	if idx < 0 || int(idx) >= a.Len() {
		return mustThrow(ctx, "java/lang/ArrayIndexOutOfBoundsException", "")
	}
	switch a.Kind {
	case ArrayByte:
		a.Bytes[idx] = int8(v.Int())
	case ArrayBoolean:
		a.Booleans[idx] = int8(v.Int())
	case ArrayChar:
		a.Chars[idx] = uint16(v.Int())
	case ArrayShort:
		a.Shorts[idx] = int16(v.Int())
	case ArrayInt:
		a.Ints[idx] = v.Int()
	case ArrayLong:
		a.Longs[idx] = v.Long()
	case ArrayFloat:
		a.Floats[idx] = v.Float()
	case ArrayDouble:
		a.Doubles[idx] = v.Double()
	case ArrayObject:
		if !v.IsNull() {
			storedCls := v.Object().Get().Class
			if !storedCls.Get().CheckCast(storedCls, a.ElemCls) {
				return mustThrow(ctx, "java/lang/ArrayStoreException", "")
			}
			a.Objects[idx] = v.Object()
		} else {
			a.Objects[idx] = ObjectHandle{}
		}
	}
	return nil
}
