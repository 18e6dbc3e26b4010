package rt

import "github.com/kvothe-dev/jalopy/pkg/gc"

// OpKind enumerates every resolved instruction shape the interpreter
// executes. Raw JVM opcodes collapse onto these: e.g. iload/lload/fload/
// dload/aload all become OpLoad tagged with the NumKind that picks their
// Value representation.
type OpKind int

const (
	OpNop OpKind = iota
	OpConstInt
	OpConstLong
	OpConstFloat
	OpConstDouble
	OpConstString
	OpConstNull
	OpConstClass

	OpLoad
	OpStore
	OpIinc

	OpArrayLoad
	OpArrayStore
	OpArrayLength

	OpPop
	OpPop2
	OpDup
	OpDupX1
	OpDupX2
	OpDup2
	OpDup2X1
	OpDup2X2
	OpSwap

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpNeg
	OpShl
	OpShr
	OpUshr
	OpAnd
	OpOr
	OpXor

	OpConvert
	OpLCmp
	OpFCmpl
	OpFCmpg
	OpDCmpl
	OpDCmpg

	OpIfZero    // ifeq/ifne/iflt/ifge/ifgt/ifle, Cond holds the comparison
	OpIfICmp    // if_icmp<cond>
	OpIfACmp    // if_acmpeq / if_acmpne
	OpIfNull    // ifnull
	OpIfNonNull // ifnonnull
	OpGoto

	OpTableSwitch
	OpLookupSwitch

	OpReturn // Num == NumVoid for return, else the value kind

	OpGetStatic
	OpPutStatic
	OpGetField
	OpPutField

	OpInvokeStatic
	OpInvokeSpecial
	OpInvokeVirtual
	OpInvokeInterface

	OpNew
	OpNewArray
	OpANewArray
	OpMultiANewArray
	OpCheckCast
	OpInstanceOf
	OpAThrow

	OpMonitorEnter
	OpMonitorExit
)

// NumKind tags the value category an arithmetic/load/store/convert/compare
// op operates on.
type NumKind int

const (
	NumInt NumKind = iota
	NumLong
	NumFloat
	NumDouble
	NumRef
	NumVoid
)

// Cond tags the comparison an OpIfZero/OpIfICmp performs.
type Cond int

const (
	CondEq Cond = iota
	CondNe
	CondLt
	CondGe
	CondGt
	CondLe
)

// ResolvedFieldRef is a field access site, resolved once when the owning
// method's bytecode is first parsed — resolution happens at first use and
// the result is cached on the Op for the method's lifetime.
type ResolvedFieldRef struct {
	Owner      ClassHandle
	Name       string
	Descriptor ResolvedDescriptor
	Static     bool
	// SlotIndex is into Owner's static-field-slot array for a static
	// field, or an index into the flattened instance-field template for
	// an instance field; both are resolved against the *declared* owner
	// so field-slot sharing across inheritance is honored.
	SlotIndex int
}

// ResolvedMethodRef is a call site.
type ResolvedMethodRef struct {
	Owner       ClassHandle
	Name        string
	Descriptor  ResolvedMethodDescriptor
	IsInterface bool

	// Direct is the method handle for invokestatic/invokespecial, resolved
	// eagerly since those never depend on the receiver's runtime class.
	Direct MethodHandle

	// VSlot is the declared-type v-table slot for invokevirtual, valid
	// because overriding always preserves the parent's slot index.
	// invokeinterface instead looks the method up by name+descriptor on the
	// receiver's own flattened table at every call, since unrelated
	// implementors don't share slot numbering.
	VSlot int
}

// Op is one resolved bytecode instruction. Every field not relevant to Kind
// is left zero; this costs a little extra memory per op in exchange for a
// single flat type the interpreter's main switch can consume directly.
type Op struct {
	Kind OpKind
	Num  NumKind
	Cond Cond

	// From/To/Narrow describe an OpConvert: From -> To widening conversion,
	// or (when Narrow != 0) an int -> byte/char/short truncation (i2b=1,
	// i2c=2, i2s=3) that stays within NumInt on both sides.
	From   NumKind
	To     NumKind
	Narrow byte

	IntConst    int32
	LongConst   int64
	FloatConst  float32
	DoubleConst float64
	StrConst    string

	Local int
	Iinc  int32

	Target  int   // op-index for single-target branches
	Targets []int // op-indices: [default, match0, match1, ...] for switches
	Keys    []int32
	Low     int32 // tableswitch low bound
	High    int32 // tableswitch high bound

	ClassRef ClassHandle
	ArrayElemKind ArrayKind // newarray primitive element
	Dims          uint8     // multianewarray dimension count

	Field  *ResolvedFieldRef
	Method *ResolvedMethodRef

	// SourcePC is the original bytecode offset this Op was decoded from,
	// used to map exception-table byte ranges onto op indices.
	SourcePC int
}

// traceRefs marks every Handle an Op embeds, so classes/methods/fields
// referenced by not-yet-collected bytecode survive a collection that runs
// mid-call (method.go's Method.Trace).
func (op *Op) traceRefs(h *gc.Heap) {
	op.ClassRef.Mark(h)
	if op.Field != nil {
		op.Field.Owner.Mark(h)
	}
	if op.Method != nil {
		op.Method.Owner.Mark(h)
		op.Method.Direct.Mark(h)
	}
}
