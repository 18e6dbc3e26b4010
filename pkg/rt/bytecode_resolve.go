package rt

import (
	"fmt"

	"github.com/kvothe-dev/jalopy/pkg/classfile"
	"github.com/kvothe-dev/jalopy/pkg/istr"
)

// resolveInstr turns one decoded-but-unresolved instruction into an Op,
// performing whatever constant-pool lookups and class loads that
// instruction requires. It returns a non-zero clinit target when executing
// the Op requires that class to have completed <clinit> first.
func resolveInstr(ctx *Context, currentClass ClassHandle, pool classfile.Pool, ri rawInstr, pcIndex map[int]int) (Op, ClassHandle, error) {
	op := Op{SourcePC: ri.pc}

	target := func(abs int32) (int, error) {
		idx, ok := pcIndex[int(abs)]
		if !ok {
			return 0, &VerifyError{Kind: ErrVerifyCountWrong, Detail: "branch target not an instruction boundary"}
		}
		return idx, nil
	}

	switch ri.opcode {
	case 0x00:
		op.Kind = OpNop
	case 0x01:
		op.Kind = OpConstNull
	case 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08:
		op.Kind = OpConstInt
		op.IntConst = int32(ri.opcode) - 3
	case 0x09:
		op.Kind, op.LongConst = OpConstLong, 0
	case 0x0a:
		op.Kind, op.LongConst = OpConstLong, 1
	case 0x0b:
		op.Kind, op.FloatConst = OpConstFloat, 0
	case 0x0c:
		op.Kind, op.FloatConst = OpConstFloat, 1
	case 0x0d:
		op.Kind, op.FloatConst = OpConstFloat, 2
	case 0x0e:
		op.Kind, op.DoubleConst = OpConstDouble, 0
	case 0x0f:
		op.Kind, op.DoubleConst = OpConstDouble, 1
	case 0x10, 0x11:
		op.Kind, op.IntConst = OpConstInt, ri.i32

	case 0x12, 0x13, 0x14:
		return resolveLdc(ctx, pool, ri)

	case 0x15:
		op.Kind, op.Num, op.Local = OpLoad, NumInt, int(ri.index)
	case 0x16:
		op.Kind, op.Num, op.Local = OpLoad, NumLong, int(ri.index)
	case 0x17:
		op.Kind, op.Num, op.Local = OpLoad, NumFloat, int(ri.index)
	case 0x18:
		op.Kind, op.Num, op.Local = OpLoad, NumDouble, int(ri.index)
	case 0x19:
		op.Kind, op.Num, op.Local = OpLoad, NumRef, int(ri.index)

	case 0x1a, 0x1b, 0x1c, 0x1d:
		op.Kind, op.Num, op.Local = OpLoad, NumInt, int(ri.opcode-0x1a)
	case 0x1e, 0x1f, 0x20, 0x21:
		op.Kind, op.Num, op.Local = OpLoad, NumLong, int(ri.opcode-0x1e)
	case 0x22, 0x23, 0x24, 0x25:
		op.Kind, op.Num, op.Local = OpLoad, NumFloat, int(ri.opcode-0x22)
	case 0x26, 0x27, 0x28, 0x29:
		op.Kind, op.Num, op.Local = OpLoad, NumDouble, int(ri.opcode-0x26)
	case 0x2a, 0x2b, 0x2c, 0x2d:
		op.Kind, op.Num, op.Local = OpLoad, NumRef, int(ri.opcode-0x2a)

	case 0x2e:
		op.Kind, op.Num = OpArrayLoad, NumInt
	case 0x2f:
		op.Kind, op.Num = OpArrayLoad, NumLong
	case 0x30:
		op.Kind, op.Num = OpArrayLoad, NumFloat
	case 0x31:
		op.Kind, op.Num = OpArrayLoad, NumDouble
	case 0x32:
		op.Kind, op.Num = OpArrayLoad, NumRef
	case 0x33, 0x34, 0x35:
		op.Kind, op.Num = OpArrayLoad, NumInt

	case 0x36:
		op.Kind, op.Num, op.Local = OpStore, NumInt, int(ri.index)
	case 0x37:
		op.Kind, op.Num, op.Local = OpStore, NumLong, int(ri.index)
	case 0x38:
		op.Kind, op.Num, op.Local = OpStore, NumFloat, int(ri.index)
	case 0x39:
		op.Kind, op.Num, op.Local = OpStore, NumDouble, int(ri.index)
	case 0x3a:
		op.Kind, op.Num, op.Local = OpStore, NumRef, int(ri.index)

	case 0x3b, 0x3c, 0x3d, 0x3e:
		op.Kind, op.Num, op.Local = OpStore, NumInt, int(ri.opcode-0x3b)
	case 0x3f, 0x40, 0x41, 0x42:
		op.Kind, op.Num, op.Local = OpStore, NumLong, int(ri.opcode-0x3f)
	case 0x43, 0x44, 0x45, 0x46:
		op.Kind, op.Num, op.Local = OpStore, NumFloat, int(ri.opcode-0x43)
	case 0x47, 0x48, 0x49, 0x4a:
		op.Kind, op.Num, op.Local = OpStore, NumDouble, int(ri.opcode-0x47)
	case 0x4b, 0x4c, 0x4d, 0x4e:
		op.Kind, op.Num, op.Local = OpStore, NumRef, int(ri.opcode-0x4b)

	case 0x4f:
		op.Kind, op.Num = OpArrayStore, NumInt
	case 0x50:
		op.Kind, op.Num = OpArrayStore, NumLong
	case 0x51:
		op.Kind, op.Num = OpArrayStore, NumFloat
	case 0x52:
		op.Kind, op.Num = OpArrayStore, NumDouble
	case 0x53:
		op.Kind, op.Num = OpArrayStore, NumRef
	case 0x54, 0x55, 0x56:
		op.Kind, op.Num = OpArrayStore, NumInt

	case 0x57:
		op.Kind = OpPop
	case 0x58:
		op.Kind = OpPop2
	case 0x59:
		op.Kind = OpDup
	case 0x5a:
		op.Kind = OpDupX1
	case 0x5b:
		op.Kind = OpDupX2
	case 0x5c:
		op.Kind = OpDup2
	case 0x5d:
		op.Kind = OpDup2X1
	case 0x5e:
		op.Kind = OpDup2X2
	case 0x5f:
		op.Kind = OpSwap

	case 0x60:
		op.Kind, op.Num = OpAdd, NumInt
	case 0x61:
		op.Kind, op.Num = OpAdd, NumLong
	case 0x62:
		op.Kind, op.Num = OpAdd, NumFloat
	case 0x63:
		op.Kind, op.Num = OpAdd, NumDouble
	case 0x64:
		op.Kind, op.Num = OpSub, NumInt
	case 0x65:
		op.Kind, op.Num = OpSub, NumLong
	case 0x66:
		op.Kind, op.Num = OpSub, NumFloat
	case 0x67:
		op.Kind, op.Num = OpSub, NumDouble
	case 0x68:
		op.Kind, op.Num = OpMul, NumInt
	case 0x69:
		op.Kind, op.Num = OpMul, NumLong
	case 0x6a:
		op.Kind, op.Num = OpMul, NumFloat
	case 0x6b:
		op.Kind, op.Num = OpMul, NumDouble
	case 0x6c:
		op.Kind, op.Num = OpDiv, NumInt
	case 0x6d:
		op.Kind, op.Num = OpDiv, NumLong
	case 0x6e:
		op.Kind, op.Num = OpDiv, NumFloat
	case 0x6f:
		op.Kind, op.Num = OpDiv, NumDouble
	case 0x70:
		op.Kind, op.Num = OpRem, NumInt
	case 0x71:
		op.Kind, op.Num = OpRem, NumLong
	case 0x72:
		op.Kind, op.Num = OpRem, NumFloat
	case 0x73:
		op.Kind, op.Num = OpRem, NumDouble
	case 0x74:
		op.Kind, op.Num = OpNeg, NumInt
	case 0x75:
		op.Kind, op.Num = OpNeg, NumLong
	case 0x76:
		op.Kind, op.Num = OpNeg, NumFloat
	case 0x77:
		op.Kind, op.Num = OpNeg, NumDouble
	case 0x78:
		op.Kind, op.Num = OpShl, NumInt
	case 0x79:
		op.Kind, op.Num = OpShl, NumLong
	case 0x7a:
		op.Kind, op.Num = OpShr, NumInt
	case 0x7b:
		op.Kind, op.Num = OpShr, NumLong
	case 0x7c:
		op.Kind, op.Num = OpUshr, NumInt
	case 0x7d:
		op.Kind, op.Num = OpUshr, NumLong
	case 0x7e:
		op.Kind, op.Num = OpAnd, NumInt
	case 0x7f:
		op.Kind, op.Num = OpAnd, NumLong
	case 0x80:
		op.Kind, op.Num = OpOr, NumInt
	case 0x81:
		op.Kind, op.Num = OpOr, NumLong
	case 0x82:
		op.Kind, op.Num = OpXor, NumInt
	case 0x83:
		op.Kind, op.Num = OpXor, NumLong

	case 0x84:
		op.Kind, op.Local, op.Iinc = OpIinc, int(ri.index), ri.i32

	case 0x85:
		op.Kind, op.From, op.To = OpConvert, NumInt, NumLong
	case 0x86:
		op.Kind, op.From, op.To = OpConvert, NumInt, NumFloat
	case 0x87:
		op.Kind, op.From, op.To = OpConvert, NumInt, NumDouble
	case 0x88:
		op.Kind, op.From, op.To = OpConvert, NumLong, NumInt
	case 0x89:
		op.Kind, op.From, op.To = OpConvert, NumLong, NumFloat
	case 0x8a:
		op.Kind, op.From, op.To = OpConvert, NumLong, NumDouble
	case 0x8b:
		op.Kind, op.From, op.To = OpConvert, NumFloat, NumInt
	case 0x8c:
		op.Kind, op.From, op.To = OpConvert, NumFloat, NumLong
	case 0x8d:
		op.Kind, op.From, op.To = OpConvert, NumFloat, NumDouble
	case 0x8e:
		op.Kind, op.From, op.To = OpConvert, NumDouble, NumInt
	case 0x8f:
		op.Kind, op.From, op.To = OpConvert, NumDouble, NumLong
	case 0x90:
		op.Kind, op.From, op.To = OpConvert, NumDouble, NumFloat
	case 0x91:
		op.Kind, op.From, op.To, op.Narrow = OpConvert, NumInt, NumInt, 1
	case 0x92:
		op.Kind, op.From, op.To, op.Narrow = OpConvert, NumInt, NumInt, 2
	case 0x93:
		op.Kind, op.From, op.To, op.Narrow = OpConvert, NumInt, NumInt, 3

	case 0x94:
		op.Kind = OpLCmp
	case 0x95:
		op.Kind = OpFCmpl
	case 0x96:
		op.Kind = OpFCmpg
	case 0x97:
		op.Kind = OpDCmpl
	case 0x98:
		op.Kind = OpDCmpg

	case 0x99, 0x9a, 0x9b, 0x9c, 0x9d, 0x9e:
		idx, err := target(ri.targets[0])
		if err != nil {
			return Op{}, ClassHandle{}, err
		}
		op.Kind, op.Cond, op.Target = OpIfZero, Cond(ri.opcode-0x99), idx
	case 0x9f, 0xa0, 0xa1, 0xa2, 0xa3, 0xa4:
		idx, err := target(ri.targets[0])
		if err != nil {
			return Op{}, ClassHandle{}, err
		}
		op.Kind, op.Cond, op.Target = OpIfICmp, Cond(ri.opcode-0x9f), idx
	case 0xa5, 0xa6:
		idx, err := target(ri.targets[0])
		if err != nil {
			return Op{}, ClassHandle{}, err
		}
		op.Kind, op.Cond, op.Target = OpIfACmp, Cond(ri.opcode-0xa5), idx
	case 0xa7, 0xc8:
		idx, err := target(ri.targets[0])
		if err != nil {
			return Op{}, ClassHandle{}, err
		}
		op.Kind, op.Target = OpGoto, idx
	case 0xc6:
		idx, err := target(ri.targets[0])
		if err != nil {
			return Op{}, ClassHandle{}, err
		}
		op.Kind, op.Target = OpIfNull, idx
	case 0xc7:
		idx, err := target(ri.targets[0])
		if err != nil {
			return Op{}, ClassHandle{}, err
		}
		op.Kind, op.Target = OpIfNonNull, idx

	case 0xaa, 0xab:
		targets := make([]int, len(ri.targets))
		for i, abs := range ri.targets {
			idx, err := target(abs)
			if err != nil {
				return Op{}, ClassHandle{}, err
			}
			targets[i] = idx
		}
		if ri.opcode == 0xaa {
			op.Kind, op.Targets, op.Low, op.High = OpTableSwitch, targets, ri.low, ri.high
		} else {
			op.Kind, op.Targets, op.Keys = OpLookupSwitch, targets, ri.keys
		}

	case 0xac:
		op.Kind, op.Num = OpReturn, NumInt
	case 0xad:
		op.Kind, op.Num = OpReturn, NumLong
	case 0xae:
		op.Kind, op.Num = OpReturn, NumFloat
	case 0xaf:
		op.Kind, op.Num = OpReturn, NumDouble
	case 0xb0:
		op.Kind, op.Num = OpReturn, NumRef
	case 0xb1:
		op.Kind, op.Num = OpReturn, NumVoid

	case 0xb2, 0xb3, 0xb4, 0xb5:
		return resolveFieldOp(ctx, pool, ri)

	case 0xb6, 0xb7, 0xb8, 0xb9:
		return resolveInvoke(ctx, currentClass, pool, ri)

	case 0xba:
		return Op{}, ClassHandle{}, fmt.Errorf("rt: invokedynamic is not implemented")

	case 0xbb:
		name, err := pool.ClassName(ri.index)
		if err != nil {
			return Op{}, ClassHandle{}, err
		}
		cls, err := ctx.LoadClass(istr.Text(name))
		if err != nil {
			return Op{}, ClassHandle{}, err
		}
		op.Kind, op.ClassRef = OpNew, cls
		return op, cls, nil

	case 0xbc:
		kind, ok := newArrayKind(ri.i32)
		if !ok {
			return Op{}, ClassHandle{}, fmt.Errorf("rt: newarray invalid atype %d", ri.i32)
		}
		op.Kind, op.ArrayElemKind = OpNewArray, kind

	case 0xbd:
		name, err := pool.ClassName(ri.index)
		if err != nil {
			return Op{}, ClassHandle{}, err
		}
		// plain class name (not a descriptor string): element is a class type;
		// only an array element type is written as a "[..." descriptor.
		text := istr.Text(name)
		symbolic := classfile.Descriptor{Kind: classfile.DescClass, Class: text}
		if len(text) > 0 && text[0] == '[' {
			symbolic, _, err = classfile.ParseDescriptor(text, false)
			if err != nil {
				return Op{}, ClassHandle{}, err
			}
		}
		cls, err := ctx.ArrayClassFor(classfile.Descriptor{Kind: classfile.DescArray, Elem: &symbolic})
		if err != nil {
			return Op{}, ClassHandle{}, err
		}
		op.Kind, op.ClassRef = OpANewArray, cls

	case 0xbe:
		op.Kind = OpArrayLength
	case 0xbf:
		op.Kind = OpAThrow

	case 0xc0, 0xc1:
		name, err := pool.ClassName(ri.index)
		if err != nil {
			return Op{}, ClassHandle{}, err
		}
		cls, err := ctx.LoadClass(istr.Text(name))
		if err != nil {
			return Op{}, ClassHandle{}, err
		}
		if ri.opcode == 0xc0 {
			op.Kind = OpCheckCast
		} else {
			op.Kind = OpInstanceOf
		}
		op.ClassRef = cls

	case 0xc2:
		op.Kind = OpMonitorEnter
	case 0xc3:
		op.Kind = OpMonitorExit

	case 0xc5:
		name, err := pool.ClassName(ri.index)
		if err != nil {
			return Op{}, ClassHandle{}, err
		}
		desc, _, err := classfile.ParseDescriptor(istr.Text(name), false)
		if err != nil {
			return Op{}, ClassHandle{}, err
		}
		cls, err := ctx.Resolve(desc)
		if err != nil {
			return Op{}, ClassHandle{}, err
		}
		op.Kind, op.ClassRef, op.Dims = OpMultiANewArray, cls.Class, ri.dims

	default:
		return Op{}, ClassHandle{}, fmt.Errorf("rt: unsupported opcode 0x%02x", ri.opcode)
	}

	return op, ClassHandle{}, nil
}

func newArrayKind(atype int32) (ArrayKind, bool) {
	switch atype {
	case 4:
		return ArrayBoolean, true
	case 5:
		return ArrayChar, true
	case 6:
		return ArrayFloat, true
	case 7:
		return ArrayDouble, true
	case 8:
		return ArrayByte, true
	case 9:
		return ArrayShort, true
	case 10:
		return ArrayInt, true
	case 11:
		return ArrayLong, true
	}
	return 0, false
}

func resolveLdc(ctx *Context, pool classfile.Pool, ri rawInstr) (Op, ClassHandle, error) {
	e := pool[ri.index]
	var op Op
	switch e.Tag {
	case classfile.TagInteger:
		op.Kind, op.IntConst = OpConstInt, e.Int
	case classfile.TagFloat:
		op.Kind, op.FloatConst = OpConstFloat, e.Float
	case classfile.TagLong:
		op.Kind, op.LongConst = OpConstLong, e.Long
	case classfile.TagDouble:
		op.Kind, op.DoubleConst = OpConstDouble, e.Double
	case classfile.TagString:
		text, err := pool.Utf8(e.StringIndex)
		if err != nil {
			return Op{}, ClassHandle{}, err
		}
		op.Kind, op.StrConst = OpConstString, istr.Text(text)
	case classfile.TagClass:
		name, err := pool.ClassName(ri.index)
		if err != nil {
			return Op{}, ClassHandle{}, err
		}
		cls, err := ctx.LoadClass(istr.Text(name))
		if err != nil {
			return Op{}, ClassHandle{}, err
		}
		op.Kind, op.ClassRef = OpConstClass, cls
	default:
		return Op{}, ClassHandle{}, fmt.Errorf("rt: ldc of unsupported constant kind (tag %d); MethodHandle/MethodType constants are not implemented", e.Tag)
	}
	op.SourcePC = ri.pc
	return op, ClassHandle{}, nil
}

func resolveFieldOp(ctx *Context, pool classfile.Pool, ri rawInstr) (Op, ClassHandle, error) {
	e := pool[ri.index]
	className, err := pool.ClassName(e.ClassIndex)
	if err != nil {
		return Op{}, ClassHandle{}, err
	}
	cls, err := ctx.LoadClass(istr.Text(className))
	if err != nil {
		return Op{}, ClassHandle{}, err
	}
	nat := pool[e.NameAndTypeIndex]
	name, err := pool.Utf8(nat.NameIndex)
	if err != nil {
		return Op{}, ClassHandle{}, err
	}
	descText, err := pool.Utf8(nat.DescriptorIndex)
	if err != nil {
		return Op{}, ClassHandle{}, err
	}
	symbolic, _, err := classfile.ParseDescriptor(istr.Text(descText), false)
	if err != nil {
		return Op{}, ClassHandle{}, err
	}
	resolved, err := ctx.Resolve(symbolic)
	if err != nil {
		return Op{}, ClassHandle{}, err
	}

	static := ri.opcode == 0xb2 || ri.opcode == 0xb3
	key := newFieldKey(name, resolved)
	var slot int
	var ok bool
	if static {
		slot, ok = cls.Get().StaticFieldVTable.Lookup(key)
	} else {
		slot, ok = cls.Get().InstanceFieldVTable.Lookup(key)
	}
	if !ok {
		return Op{}, ClassHandle{}, &JavaError{ClassName: "java/lang/NoSuchFieldError", Message: istr.Text(name)}
	}

	ref := &ResolvedFieldRef{Owner: cls, Name: istr.Text(name), Descriptor: resolved, Static: static, SlotIndex: slot}
	var op Op
	op.SourcePC = ri.pc
	op.Field = ref
	switch ri.opcode {
	case 0xb2:
		op.Kind = OpGetStatic
	case 0xb3:
		op.Kind = OpPutStatic
	case 0xb4:
		op.Kind = OpGetField
	case 0xb5:
		op.Kind = OpPutField
	}

	var clinit ClassHandle
	if static {
		clinit = cls
	}
	return op, clinit, nil
}

func resolveInvoke(ctx *Context, currentClass ClassHandle, pool classfile.Pool, ri rawInstr) (Op, ClassHandle, error) {
	e := pool[ri.index]
	className, err := pool.ClassName(e.ClassIndex)
	if err != nil {
		return Op{}, ClassHandle{}, err
	}
	cls, err := ctx.LoadClass(istr.Text(className))
	if err != nil {
		return Op{}, ClassHandle{}, err
	}
	nat := pool[e.NameAndTypeIndex]
	name, err := pool.Utf8(nat.NameIndex)
	if err != nil {
		return Op{}, ClassHandle{}, err
	}
	descText, err := pool.Utf8(nat.DescriptorIndex)
	if err != nil {
		return Op{}, ClassHandle{}, err
	}
	rawDesc, err := classfile.ParseMethodDescriptor(istr.Text(descText))
	if err != nil {
		return Op{}, ClassHandle{}, err
	}
	resolved, err := ctx.ResolveMethodDescriptor(rawDesc)
	if err != nil {
		return Op{}, ClassHandle{}, err
	}

	ref := &ResolvedMethodRef{
		Owner:       cls,
		Name:        istr.Text(name),
		Descriptor:  resolved,
		IsInterface: e.Tag == classfile.TagInterfaceMethodref,
	}

	var op Op
	op.SourcePC = ri.pc
	op.Method = ref
	var clinit ClassHandle

	mkey := methodKey{name: istr.Text(name), desc: resolved.key()}
	switch ri.opcode {
	case 0xb8: // invokestatic
		idx, ok := cls.Get().StaticMethodVTable.Lookup(mkey)
		if !ok {
			return Op{}, ClassHandle{}, &JavaError{ClassName: "java/lang/NoSuchMethodError", Message: istr.Text(name)}
		}
		ref.Direct = cls.Get().StaticMethods[idx]
		op.Kind = OpInvokeStatic
		clinit = cls
	case 0xb7: // invokespecial
		target := cls
		if istr.Text(name) != "<init>" && !cls.Get().IsInterface() && currentClass.Valid() && currentClass.Get().HasSuperClass(cls) {
			target = currentClass.Get().Super
		}
		idx, ok := target.Get().InstanceMethodVTable.Lookup(mkey)
		if !ok {
			return Op{}, ClassHandle{}, &JavaError{ClassName: "java/lang/NoSuchMethodError", Message: istr.Text(name)}
		}
		ref.Direct = target.Get().InstanceMethodVTable.Get(idx)
		op.Kind = OpInvokeSpecial
	case 0xb6: // invokevirtual
		idx, ok := cls.Get().InstanceMethodVTable.Lookup(mkey)
		if !ok {
			return Op{}, ClassHandle{}, &JavaError{ClassName: "java/lang/NoSuchMethodError", Message: istr.Text(name)}
		}
		ref.VSlot = idx
		op.Kind = OpInvokeVirtual
	case 0xb9: // invokeinterface
		op.Kind = OpInvokeInterface
	}

	return op, clinit, nil
}
