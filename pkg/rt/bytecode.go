package rt

import (
	"encoding/binary"

	"github.com/kvothe-dev/jalopy/pkg/classfile"
	"github.com/kvothe-dev/jalopy/pkg/istr"
)

// ResolveBytecode parses a method's raw Code attribute and resolves every
// constant-pool reference it touches, producing the cached BytecodeInfo —
// parsed and resolved once, on first execution, then cached for the
// Method's lifetime. Legacy jsr/ret (removed from class files targeting
// version >= 51) are not decoded, since no compiler still emits them.
func ResolveBytecode(ctx *Context, m *Method) (*BytecodeInfo, error) {
	ca, err := classfile.ParseCode(m.RawCode, m.CPool)
	if err != nil {
		return nil, err
	}

	raws, pcIndex, err := decodeRaw(ca.Code)
	if err != nil {
		return nil, err
	}

	ops := make([]Op, len(raws))
	clinitTargets := make([]ClassHandle, 0, 4)
	for i, ri := range raws {
		op, clinit, err := resolveInstr(ctx, m.Class, m.CPool, ri, pcIndex)
		if err != nil {
			return nil, err
		}
		ops[i] = op
		if clinit.Valid() {
			clinitTargets = append(clinitTargets, clinit)
		}
	}

	exceptions := make([]ResolvedExceptionHandler, len(ca.Exceptions))
	for i, e := range ca.Exceptions {
		startOp, ok := pcIndex[int(e.StartPC)]
		if !ok {
			return nil, &VerifyError{Kind: ErrVerifyCountWrong, Detail: "exception start_pc not an instruction boundary"}
		}
		endOp := len(ops)
		if idx, ok := pcIndex[int(e.EndPC)]; ok {
			endOp = idx
		}
		handlerOp, ok := pcIndex[int(e.HandlerPC)]
		if !ok {
			return nil, &VerifyError{Kind: ErrVerifyCountWrong, Detail: "exception handler_pc not an instruction boundary"}
		}
		var catch ClassHandle
		if e.CatchType != 0 {
			name, err := m.CPool.ClassName(e.CatchType)
			if err != nil {
				return nil, err
			}
			catch, err = ctx.LoadClass(istr.Text(name))
			if err != nil {
				return nil, err
			}
		}
		exceptions[i] = ResolvedExceptionHandler{StartOp: startOp, EndOp: endOp, HandlerOp: handlerOp, CatchType: catch}
	}

	return &BytecodeInfo{
		Ops:           ops,
		Exceptions:    exceptions,
		MaxStack:      int(ca.MaxStack),
		MaxLocals:     int(ca.MaxLocals),
		ClinitTargets: clinitTargets,
	}, nil
}

// rawInstr is one not-yet-resolved instruction: its start PC, opcode, and
// decoded numeric/offset operands. Constant-pool-indexed operands are
// resolved in a second pass once every instruction's PC is known (needed to
// turn branch byte-offsets into op indices).
type rawInstr struct {
	pc      int
	opcode  byte
	wide    bool
	i32     int32 // bipush/sipush const, iinc const, or newarray atype
	i32b    int32 // not set by decodeRaw
	index   uint16
	targets []int32 // absolute PCs: goto/if* holds one, switches hold [default, ...]
	keys    []int32
	low     int32
	high    int32
	dims    uint8
}

func decodeRaw(code []byte) ([]rawInstr, map[int]int, error) {
	var raws []rawInstr
	pcIndex := make(map[int]int)
	i := 0
	for i < len(code) {
		pc := i
		pcIndex[pc] = len(raws)
		op := code[i]
		i++

		wide := false
		if op == 0xC4 { // wide
			wide = true
			op = code[i]
			i++
		}

		ri := rawInstr{pc: pc, opcode: op, wide: wide}

		switch op {
		case 0x10: // bipush
			ri.i32 = int32(int8(code[i]))
			i++
		case 0x11: // sipush
			ri.i32 = int32(int16(binary.BigEndian.Uint16(code[i : i+2])))
			i += 2
		case 0x12: // ldc
			ri.index = uint16(code[i])
			i++
		case 0x13, 0x14: // ldc_w, ldc2_w
			ri.index = binary.BigEndian.Uint16(code[i : i+2])
			i += 2
		case 0x15, 0x16, 0x17, 0x18, 0x19, // iload/lload/fload/dload/aload
			0x36, 0x37, 0x38, 0x39, 0x3a: // istore/lstore/fstore/dstore/astore
			if wide {
				ri.index = binary.BigEndian.Uint16(code[i : i+2])
				i += 2
			} else {
				ri.index = uint16(code[i])
				i++
			}
		case 0x84: // iinc
			if wide {
				ri.index = binary.BigEndian.Uint16(code[i : i+2])
				i += 2
				ri.i32 = int32(int16(binary.BigEndian.Uint16(code[i : i+2])))
				i += 2
			} else {
				ri.index = uint16(code[i])
				i++
				ri.i32 = int32(int8(code[i]))
				i++
			}
		case 0x99, 0x9a, 0x9b, 0x9c, 0x9d, 0x9e, // ifeq..ifle
			0x9f, 0xa0, 0xa1, 0xa2, 0xa3, 0xa4, // if_icmp<cond>
			0xa5, 0xa6, // if_acmpeq/ne
			0xa7,                   // goto
			0xc6, 0xc7: // ifnull/ifnonnull
			off := int32(int16(binary.BigEndian.Uint16(code[i : i+2])))
			i += 2
			ri.targets = []int32{int32(pc) + off}
		case 0xc8: // goto_w
			off := int32(binary.BigEndian.Uint32(code[i : i+4]))
			i += 4
			ri.targets = []int32{int32(pc) + off}
		case 0xaa: // tableswitch
			i = pad4(i)
			def := int32(binary.BigEndian.Uint32(code[i : i+4]))
			i += 4
			low := int32(binary.BigEndian.Uint32(code[i : i+4]))
			i += 4
			high := int32(binary.BigEndian.Uint32(code[i : i+4]))
			i += 4
			ri.low, ri.high = low, high
			count := int(high - low + 1)
			targets := make([]int32, 0, count+1)
			targets = append(targets, int32(pc)+def)
			for k := 0; k < count; k++ {
				off := int32(binary.BigEndian.Uint32(code[i : i+4]))
				i += 4
				targets = append(targets, int32(pc)+off)
			}
			ri.targets = targets
		case 0xab: // lookupswitch
			i = pad4(i)
			def := int32(binary.BigEndian.Uint32(code[i : i+4]))
			i += 4
			npairs := int(binary.BigEndian.Uint32(code[i : i+4]))
			i += 4
			targets := make([]int32, 0, npairs+1)
			keys := make([]int32, 0, npairs)
			targets = append(targets, int32(pc)+def)
			for k := 0; k < npairs; k++ {
				key := int32(binary.BigEndian.Uint32(code[i : i+4]))
				i += 4
				off := int32(binary.BigEndian.Uint32(code[i : i+4]))
				i += 4
				keys = append(keys, key)
				targets = append(targets, int32(pc)+off)
			}
			ri.targets = targets
			ri.keys = keys
		case 0xb2, 0xb3, 0xb4, 0xb5, // getstatic/putstatic/getfield/putfield
			0xb6, 0xb7, 0xb8, // invokevirtual/special/static
			0xbb, 0xbd, 0xc0, 0xc1: // new/anewarray/checkcast/instanceof
			ri.index = binary.BigEndian.Uint16(code[i : i+2])
			i += 2
		case 0xb9: // invokeinterface
			ri.index = binary.BigEndian.Uint16(code[i : i+2])
			i += 2
			i += 2 // count byte + reserved 0 byte
		case 0xba: // invokedynamic
			ri.index = binary.BigEndian.Uint16(code[i : i+2])
			i += 4
		case 0xbc: // newarray
			ri.i32 = int32(code[i])
			i++
		case 0xc5: // multianewarray
			ri.index = binary.BigEndian.Uint16(code[i : i+2])
			i += 2
			ri.dims = code[i]
			i++
		case 0xc9: // jsr_w
			i += 4
		case 0xa8: // jsr
			i += 2
		case 0xa9: // ret
			if wide {
				i += 2
			} else {
				i++
			}
		default:
			// zero-operand instructions: nop, aconst_null, iconst_*, lconst_*,
			// fconst_*, dconst_*, iload_0-3/..., arithmetic, conversions,
			// array load/store, stack ops, compares, returns, arraylength,
			// athrow, monitorenter/exit.
		}

		raws = append(raws, ri)
	}
	return raws, pcIndex, nil
}

func pad4(i int) int {
	for (i % 4) != 0 {
		i++
	}
	return i
}
