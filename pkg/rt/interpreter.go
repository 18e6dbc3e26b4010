package rt

import (
	"math"

	"github.com/kvothe-dev/jalopy/pkg/classfile"
	"github.com/kvothe-dev/jalopy/pkg/gc"
	"github.com/kvothe-dev/jalopy/pkg/istr"
)

// InvokeStatic runs a resolved static method with args already in call
// order (no receiver).
func (ctx *Context) InvokeStatic(m MethodHandle, args []Value) (Value, error) {
	if err := ctx.RunClinit(m.Get().Class); err != nil {
		return Value{}, err
	}
	return ctx.execMethod(m, args)
}

// InvokeSpecial runs m directly, bypassing virtual dispatch: super calls,
// private calls, and <init> all go through here. args[0] is the receiver.
func (ctx *Context) InvokeSpecial(m MethodHandle, args []Value) (Value, error) {
	return ctx.execMethod(m, args)
}

// InvokeVirtual dispatches through the receiver's own flattened v-table at
// the given declared-type slot.
func (ctx *Context) InvokeVirtual(receiver ObjectHandle, vslot int, args []Value) (Value, error) {
	if !receiver.Valid() {
		return Value{}, ctx.ThrowNew("java/lang/NullPointerException", "")
	}
	m := receiver.Get().Class.Get().InstanceMethodVTable.Get(vslot)
	return ctx.execMethod(m, args)
}

// InvokeInterface dispatches by (name, descriptor) on the receiver's own
// table, since interface method slot numbers aren't shared across
// unrelated implementors.
func (ctx *Context) InvokeInterface(receiver ObjectHandle, name string, desc ResolvedMethodDescriptor, args []Value) (Value, error) {
	if !receiver.Valid() {
		return Value{}, ctx.ThrowNew("java/lang/NullPointerException", "")
	}
	idx, ok := receiver.Get().Class.Get().InstanceMethodVTable.LookupByNameAndDescriptor(name, desc.key())
	if !ok {
		return Value{}, ctx.ThrowNew("java/lang/AbstractMethodError", name)
	}
	m := receiver.Get().Class.Get().InstanceMethodVTable.Get(idx)
	return ctx.execMethod(m, args)
}

// execMethod dispatches to a native implementation or runs the interpreted
// frame, resolving bytecode on first execution.
func (ctx *Context) execMethod(mh MethodHandle, args []Value) (Value, error) {
	m := mh.Get()
	if m.IsNative() {
		fn, ok := ctx.nativeFnFor(m)
		if !ok {
			return Value{}, ctx.ThrowNew("java/lang/UnsatisfiedLinkError", istr.Text(m.Name))
		}
		result, err := fn(ctx, args)
		if err != nil {
			return Value{}, err
		}
		if result == nil {
			return Value{}, nil
		}
		return *result, nil
	}
	if m.IsAbstract() {
		return Value{}, ctx.ThrowNew("java/lang/AbstractMethodError", istr.Text(m.Name))
	}
	if m.Bytecode == nil {
		bc, err := ResolveBytecode(ctx, m)
		if err != nil {
			return Value{}, err
		}
		if err := verifyMethod(m, bc); err != nil {
			return Value{}, err
		}
		m.Bytecode = bc
		m.Kind = MethodParsed
	}
	for _, c := range m.Bytecode.ClinitTargets {
		if err := ctx.RunClinit(c); err != nil {
			return Value{}, err
		}
	}
	return ctx.runFrame(mh, args)
}

// runFrame executes one interpreted call, carving a (locals, operand stack)
// window out of the shared Context.FrameData pre-allocated value stack.
func (ctx *Context) runFrame(mh MethodHandle, args []Value) (Value, error) {
	m := mh.Get()
	bc := m.Bytecode

	if ctx.frameDepth >= ctx.Config.MaxFrameDepth {
		return Value{}, ctx.ThrowNew("java/lang/StackOverflowError", "")
	}

	base := ctx.SP
	need := bc.MaxLocals + bc.MaxStack
	if base+need > len(ctx.FrameData) {
		return Value{}, ctx.ThrowNew("java/lang/StackOverflowError", "")
	}

	for i := 0; i < bc.MaxLocals; i++ {
		ctx.FrameData[base+i] = Value{}
	}
	for i, a := range args {
		ctx.FrameData[base+i] = a
	}

	ctx.frameDepth++
	ctx.SP = base + bc.MaxLocals
	ctx.callStack = append(ctx.callStack, StackFrameInfo{
		Class:  istr.Text(m.Class.Get().Name),
		Method: istr.Text(m.Name),
	})
	defer func() {
		ctx.callStack = ctx.callStack[:len(ctx.callStack)-1]
		ctx.SP = base
		ctx.frameDepth--
	}()

	f := &frame{ctx: ctx, base: base, localEnd: base + bc.MaxLocals, bc: bc, m: m}

	pc := 0
	for {
		op := &bc.Ops[pc]
		nextPC, done, retVal, thrown, err := f.exec(pc, op)
		if err != nil {
			return Value{}, err
		}
		if thrown != nil {
			handlerPC, ok := findHandler(bc, pc, thrown)
			if !ok {
				return Value{}, thrown
			}
			ctx.SP = f.localEnd
			f.push(RefVal(thrown.Object))
			pc = handlerPC
			continue
		}
		if done {
			return retVal, nil
		}
		pc = nextPC
	}
}

func findHandler(bc *BytecodeInfo, atOp int, thrown *JavaError) (int, bool) {
	if !thrown.Object.Valid() {
		return 0, false
	}
	actual := thrown.Object.Get().Class
	for _, e := range bc.Exceptions {
		if atOp < e.StartOp || atOp >= e.EndOp {
			continue
		}
		if !e.CatchType.Valid() {
			return e.HandlerOp, true
		}
		if actual.Get().MatchesClass(actual, e.CatchType) {
			return e.HandlerOp, true
		}
	}
	return 0, false
}

// frame is the per-call cursor over the shared value stack.
type frame struct {
	ctx      *Context
	base     int
	localEnd int
	bc       *BytecodeInfo
	m        *Method
}

func (f *frame) push(v Value)  { f.ctx.FrameData[f.ctx.SP] = v; f.ctx.SP++ }
func (f *frame) pop() Value    { f.ctx.SP--; return f.ctx.FrameData[f.ctx.SP] }
func (f *frame) local(i int) Value     { return f.ctx.FrameData[f.base+i] }
func (f *frame) setLocal(i int, v Value) { f.ctx.FrameData[f.base+i] = v }

// exec runs a single Op. Return shape: (nextPC, done, returnValue, thrown,
// nativeErr). Exactly one of {done, thrown!=nil, nativeErr!=nil} drives what
// the caller does; nextPC is meaningful only when none of those fire.
func (f *frame) exec(pc int, op *Op) (int, bool, Value, *JavaError, error) {
	ctx := f.ctx
	switch op.Kind {
	case OpNop:
	case OpConstNull:
		f.push(NullVal())
	case OpConstInt:
		f.push(IntVal(op.IntConst))
	case OpConstLong:
		f.push(LongVal(op.LongConst))
	case OpConstFloat:
		f.push(FloatVal(op.FloatConst))
	case OpConstDouble:
		f.push(DoubleVal(op.DoubleConst))
	case OpConstString:
		ctx.MaybeCollect()
		s, err := ctx.InternedJavaString(op.StrConst)
		if err != nil {
			return 0, false, Value{}, nil, err
		}
		f.push(RefVal(s))
	case OpConstClass:
		obj, err := ctx.classObjectFor(op.ClassRef)
		if err != nil {
			return 0, false, Value{}, nil, err
		}
		f.push(RefVal(obj))

	case OpLoad:
		f.push(f.local(op.Local))
	case OpStore:
		f.setLocal(op.Local, f.pop())
	case OpIinc:
		v := f.local(op.Local)
		f.setLocal(op.Local, IntVal(v.Int()+op.Iinc))

	case OpPop:
		f.pop()
	case OpPop2:
		v1 := f.pop()
		if !v1.isWide() {
			f.pop()
		}
	case OpDup:
		v := f.pop()
		f.push(v)
		f.push(v)
	case OpDupX1:
		v1, v2 := f.pop(), f.pop()
		f.push(v1)
		f.push(v2)
		f.push(v1)
	case OpDupX2:
		v1, v2 := f.pop(), f.pop()
		if v2.isWide() {
			f.push(v1)
			f.push(v2)
			f.push(v1)
		} else {
			v3 := f.pop()
			f.push(v1)
			f.push(v3)
			f.push(v2)
			f.push(v1)
		}
	case OpDup2:
		v1 := f.pop()
		if v1.isWide() {
			f.push(v1)
			f.push(v1)
		} else {
			v2 := f.pop()
			f.push(v2)
			f.push(v1)
			f.push(v2)
			f.push(v1)
		}
	case OpDup2X1:
		v1 := f.pop()
		if v1.isWide() {
			v2 := f.pop()
			f.push(v1)
			f.push(v2)
			f.push(v1)
		} else {
			v2, v3 := f.pop(), f.pop()
			f.push(v2)
			f.push(v1)
			f.push(v3)
			f.push(v2)
			f.push(v1)
		}
	case OpDup2X2:
		v1, v2 := f.pop(), f.pop()
		switch {
		case v1.isWide() && v2.isWide():
			// form 4: value1, value2 both category 2.
			f.push(v1)
			f.push(v2)
			f.push(v1)
		case v1.isWide() && !v2.isWide():
			// form 3: value1 category 2; value2, value3 category 1.
			v3 := f.pop()
			f.push(v1)
			f.push(v3)
			f.push(v2)
			f.push(v1)
		default:
			v3 := f.pop()
			if v3.isWide() {
				// form 2: value1, value2 category 1; value3 category 2.
				f.push(v2)
				f.push(v1)
				f.push(v3)
				f.push(v2)
				f.push(v1)
			} else {
				// form 1: value1..value4 all category 1.
				v4 := f.pop()
				f.push(v2)
				f.push(v1)
				f.push(v4)
				f.push(v3)
				f.push(v2)
				f.push(v1)
			}
		}
	case OpSwap:
		v1, v2 := f.pop(), f.pop()
		f.push(v1)
		f.push(v2)

	case OpAdd, OpSub, OpMul, OpDiv, OpRem:
		thrown, err := f.binArith(op)
		if thrown != nil || err != nil {
			return 0, false, Value{}, thrown, err
		}
	case OpNeg:
		f.unaryNeg(op.Num)
	case OpShl, OpShr, OpUshr:
		f.shift(op)
	case OpAnd, OpOr, OpXor:
		f.bitwise(op)

	case OpConvert:
		f.convert(op)

	case OpLCmp:
		b, a := f.pop().Long(), f.pop().Long()
		f.push(IntVal(cmp64(a, b)))
	case OpFCmpl, OpFCmpg:
		b, a := f.pop().Float(), f.pop().Float()
		f.push(IntVal(fcmp(float64(a), float64(b), op.Kind == OpFCmpg)))
	case OpDCmpl, OpDCmpg:
		b, a := f.pop().Double(), f.pop().Double()
		f.push(IntVal(fcmp(a, b, op.Kind == OpDCmpg)))

	case OpIfZero:
		if condHolds(op.Cond, f.pop().Int(), 0) {
			return op.Target, false, Value{}, nil, nil
		}
	case OpIfICmp:
		b, a := f.pop().Int(), f.pop().Int()
		if condHolds(op.Cond, a, b) {
			return op.Target, false, Value{}, nil, nil
		}
	case OpIfACmp:
		b, a := f.pop(), f.pop()
		eq := gc.PtrEq(a.refOrZero(), b.refOrZero())
		if (op.Cond == CondEq) == eq {
			return op.Target, false, Value{}, nil, nil
		}
	case OpIfNull:
		if f.pop().IsNull() {
			return op.Target, false, Value{}, nil, nil
		}
	case OpIfNonNull:
		if !f.pop().IsNull() {
			return op.Target, false, Value{}, nil, nil
		}
	case OpGoto:
		return op.Target, false, Value{}, nil, nil

	case OpTableSwitch:
		idx := f.pop().Int()
		if idx < op.Low || idx > op.High {
			return op.Targets[0], false, Value{}, nil, nil
		}
		return op.Targets[1+int(idx-op.Low)], false, Value{}, nil, nil
	case OpLookupSwitch:
		key := f.pop().Int()
		for i, k := range op.Keys {
			if k == key {
				return op.Targets[1+i], false, Value{}, nil, nil
			}
		}
		return op.Targets[0], false, Value{}, nil, nil

	case OpReturn:
		if op.Num == NumVoid {
			return 0, true, Value{}, nil, nil
		}
		return 0, true, f.pop(), nil, nil

	case OpGetStatic:
		if err := ctx.RunClinit(op.Field.Owner); err != nil {
			return 0, false, Value{}, nil, err
		}
		slot := op.Field.Owner.Get().StaticFields[op.Field.SlotIndex]
		f.push(slot.Get().Value)
	case OpPutStatic:
		if err := ctx.RunClinit(op.Field.Owner); err != nil {
			return 0, false, Value{}, nil, err
		}
		slot := op.Field.Owner.Get().StaticFields[op.Field.SlotIndex]
		slot.Get().Value = f.pop()
	case OpGetField:
		obj := f.pop()
		if obj.IsNull() {
			return 0, false, Value{}, npe(ctx), nil
		}
		f.push(obj.Object().Get().Data[op.Field.SlotIndex].Value)
	case OpPutField:
		v := f.pop()
		obj := f.pop()
		if obj.IsNull() {
			return 0, false, Value{}, npe(ctx), nil
		}
		obj.Object().Get().Data[op.Field.SlotIndex].Value = v

	case OpInvokeStatic:
		ctx.MaybeCollect()
		args := f.popArgs(len(op.Method.Descriptor.Args))
		v, err := ctx.InvokeStatic(op.Method.Direct, args)
		if thrown, nativeErr := splitErr(err); thrown != nil || nativeErr != nil {
			return 0, false, Value{}, thrown, nativeErr
		}
		if op.Method.Descriptor.Return.Kind != classfile.DescVoid {
			f.push(v)
		}
	case OpInvokeSpecial:
		ctx.MaybeCollect()
		args := f.popArgsWithReceiver(len(op.Method.Descriptor.Args))
		if args[0].IsNull() {
			return 0, false, Value{}, npe(ctx), nil
		}
		v, err := ctx.InvokeSpecial(op.Method.Direct, args)
		if thrown, nativeErr := splitErr(err); thrown != nil || nativeErr != nil {
			return 0, false, Value{}, thrown, nativeErr
		}
		if op.Method.Descriptor.Return.Kind != classfile.DescVoid {
			f.push(v)
		}
	case OpInvokeVirtual:
		ctx.MaybeCollect()
		args := f.popArgsWithReceiver(len(op.Method.Descriptor.Args))
		if args[0].IsNull() {
			return 0, false, Value{}, npe(ctx), nil
		}
		v, err := ctx.InvokeVirtual(args[0].Object(), op.Method.VSlot, args)
		if thrown, nativeErr := splitErr(err); thrown != nil || nativeErr != nil {
			return 0, false, Value{}, thrown, nativeErr
		}
		if op.Method.Descriptor.Return.Kind != classfile.DescVoid {
			f.push(v)
		}
	case OpInvokeInterface:
		ctx.MaybeCollect()
		args := f.popArgsWithReceiver(len(op.Method.Descriptor.Args))
		if args[0].IsNull() {
			return 0, false, Value{}, npe(ctx), nil
		}
		v, err := ctx.InvokeInterface(args[0].Object(), op.Method.Name, op.Method.Descriptor, args)
		if thrown, nativeErr := splitErr(err); thrown != nil || nativeErr != nil {
			return 0, false, Value{}, thrown, nativeErr
		}
		if op.Method.Descriptor.Return.Kind != classfile.DescVoid {
			f.push(v)
		}

	case OpNew:
		ctx.MaybeCollect()
		if err := ctx.RunClinit(op.ClassRef); err != nil {
			return 0, false, Value{}, nil, err
		}
		f.push(RefVal(newObjectNoInit(ctx, op.ClassRef)))
	case OpNewArray:
		ctx.MaybeCollect()
		n := f.pop().Int()
		if n < 0 {
			return 0, false, Value{}, mustThrow(ctx, "java/lang/NegativeArraySizeException", ""), nil
		}
		storage := newArrayStorage(op.ArrayElemKind, int(n), ClassHandle{})
		arrCls, err := ctx.ArrayClassFor(primitiveArrayDescriptor(op.ArrayElemKind))
		if err != nil {
			return 0, false, Value{}, nil, err
		}
		f.push(RefVal(gc.Alloc(ctx.Heap, Object{Class: arrCls, Array: storage})))
	case OpANewArray:
		ctx.MaybeCollect()
		n := f.pop().Int()
		if n < 0 {
			return 0, false, Value{}, mustThrow(ctx, "java/lang/NegativeArraySizeException", ""), nil
		}
		elemCls := op.ClassRef.Get().ArrayValueType.Class
		storage := newArrayStorage(ArrayObject, int(n), elemCls)
		f.push(RefVal(gc.Alloc(ctx.Heap, Object{Class: op.ClassRef, Array: storage})))
	case OpMultiANewArray:
		ctx.MaybeCollect()
		dims := make([]int32, op.Dims)
		for i := int(op.Dims) - 1; i >= 0; i-- {
			d := f.pop().Int()
			if d < 0 {
				return 0, false, Value{}, mustThrow(ctx, "java/lang/NegativeArraySizeException", ""), nil
			}
			dims[i] = d
		}
		obj, err := buildMultiArray(ctx, op.ClassRef, dims)
		if err != nil {
			return 0, false, Value{}, nil, err
		}
		f.push(RefVal(obj))
	case OpArrayLength:
		obj := f.pop()
		if obj.IsNull() {
			return 0, false, Value{}, npe(ctx), nil
		}
		f.push(IntVal(int32(obj.Object().Get().Array.Len())))
	case OpArrayLoad:
		idx := f.pop().Int()
		obj := f.pop()
		if obj.IsNull() {
			return 0, false, Value{}, npe(ctx), nil
		}
		v, thrown := arrayLoad(ctx, obj.Object(), idx)
		if thrown != nil {
			return 0, false, Value{}, thrown, nil
		}
		f.push(v)
	case OpArrayStore:
		v := f.pop()
		idx := f.pop().Int()
		obj := f.pop()
		if obj.IsNull() {
			return 0, false, Value{}, npe(ctx), nil
		}
		if thrown := arrayStore(ctx, obj.Object(), idx, v); thrown != nil {
			return 0, false, Value{}, thrown, nil
		}
	case OpCheckCast:
		v := f.pop()
		if !v.IsNull() {
			obj := v.Object()
			c := obj.Get().Class
			if !c.Get().CheckCast(c, op.ClassRef) {
				return 0, false, Value{}, mustThrow(ctx, "java/lang/ClassCastException", istr.Text(c.Get().Name)), nil
			}
		}
		f.push(v)
	case OpInstanceOf:
		v := f.pop()
		if v.IsNull() {
			f.push(IntVal(0))
		} else {
			c := v.Object().Get().Class
			if c.Get().CheckCast(c, op.ClassRef) {
				f.push(IntVal(1))
			} else {
				f.push(IntVal(0))
			}
		}
	case OpAThrow:
		v := f.pop()
		if v.IsNull() {
			return 0, false, Value{}, npe(ctx), nil
		}
		obj := v.Object()
		return 0, false, Value{}, &JavaError{
			ClassName: istr.Text(obj.Get().Class.Get().Name),
			Object:    obj,
			Stack:     ctx.captureStack(),
		}, nil

	case OpMonitorEnter, OpMonitorExit:
		// single-threaded interpreter: monitors are a no-op.

	default:
	}

	return pc + 1, false, Value{}, nil, nil
}

func (f *frame) popArgs(n int) []Value {
	args := make([]Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = f.pop()
	}
	return args
}

func (f *frame) popArgsWithReceiver(n int) []Value {
	args := make([]Value, n+1)
	for i := n; i >= 1; i-- {
		args[i] = f.pop()
	}
	args[0] = f.pop()
	return args
}

func npe(ctx *Context) *JavaError {
	return mustThrow(ctx, "java/lang/NullPointerException", "")
}

// mustThrow manufactures an exception, falling back to a bare JavaError
// with no materialized Object if the exception class itself can't be
// loaded (keeps a broken classpath from panicking the interpreter).
func mustThrow(ctx *Context, className, message string) *JavaError {
	err := ctx.ThrowNew(className, message)
	if je, ok := err.(*JavaError); ok {
		return je
	}
	return &JavaError{ClassName: className, Message: message}
}

// splitErr separates a thrown Java exception from every other error kind,
// which propagate directly without consulting any exception table.
func splitErr(err error) (*JavaError, error) {
	if err == nil {
		return nil, nil
	}
	if je, ok := err.(*JavaError); ok {
		return je, nil
	}
	return nil, err
}

func (v Value) refOrZero() ObjectHandle {
	if v.tag != TagRef {
		return ObjectHandle{}
	}
	return v.ref
}

func cmp64(a, b int64) int32 {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// fcmp implements fcmpl/fcmpg and dcmpl/dcmpg: NaN compares as "greater"
// under the *g variants and "less" under the *l variants, matching the
// JVM spec so that `x < NaN` style comparisons consistently evaluate false.
func fcmp(a, b float64, nanIsGreater bool) int32 {
	if math.IsNaN(a) || math.IsNaN(b) {
		if nanIsGreater {
			return 1
		}
		return -1
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func condHolds(c Cond, a, b int32) bool {
	switch c {
	case CondEq:
		return a == b
	case CondNe:
		return a != b
	case CondLt:
		return a < b
	case CondGe:
		return a >= b
	case CondGt:
		return a > b
	case CondLe:
		return a <= b
	}
	return false
}
