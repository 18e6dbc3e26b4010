package rt

import (
	"github.com/kvothe-dev/jalopy/pkg/classfile"
	"github.com/kvothe-dev/jalopy/pkg/gc"
	"github.com/kvothe-dev/jalopy/pkg/istr"
)

// MethodHandle is the GC handle for a Method. Methods are heap-allocated
// (rather than plain values) because BytecodeInfo is filled in lazily on
// first call and that mutation must be visible through every VTable slot
// and every inherited array entry that aliases the same method.
type MethodHandle = gc.Handle[Method]

// MethodInfoKind tags which of the five method bodies a Method currently
// holds.
type MethodInfoKind int

const (
	MethodUnparsed MethodInfoKind = iota
	MethodParsed
	MethodNative
	MethodNativeNotFound
	MethodEmpty
)

// NativeFn is the signature every registered native method implementation
// satisfies. args[0] is the receiver for instance methods.
type NativeFn func(ctx *Context, args []Value) (*Value, error)

// Method is (descriptor, flags, name, class, info).
type Method struct {
	Name        istr.Handle
	Descriptor  ResolvedMethodDescriptor
	RawDescriptor classfile.MethodDescriptor
	AccessFlags uint16
	Class       ClassHandle

	Kind      MethodInfoKind
	RawCode   []byte // MethodUnparsed: the Code attribute's raw bytes
	Bytecode  *BytecodeInfo
	Native    NativeFn
	CPool     classfile.Pool // needed to lazily ParseCode and resolve ops
}

func (m *Method) IsStatic() bool   { return m.AccessFlags&classfile.AccStatic != 0 }
func (m *Method) IsAbstract() bool { return m.AccessFlags&classfile.AccAbstract != 0 }
func (m *Method) IsNative() bool   { return m.AccessFlags&classfile.AccNative != 0 }

// Trace marks the class and, once parsed, every class referenced by the
// bytecode (needed so pending <clinit> targets and resolved call sites
// stay alive across a collection mid-call).
func (m *Method) Trace(h *gc.Heap) {
	m.Class.Mark(h)
	if m.Bytecode != nil {
		for _, c := range m.Bytecode.ClinitTargets {
			c.Mark(h)
		}
		for _, op := range m.Bytecode.Ops {
			op.traceRefs(h)
		}
	}
}

// BytecodeInfo is the parsed, resolved form of a method's Code attribute,
// cached on the Method for its lifetime once first executed.
type BytecodeInfo struct {
	Ops           []Op
	Exceptions    []ResolvedExceptionHandler
	MaxStack      int
	MaxLocals     int
	ClinitTargets []ClassHandle // classes to initialize before first call
}

// ResolvedExceptionHandler is an exception table row with the op-index
// range (rather than byte offsets) and, when present, the resolved catch
// class.
type ResolvedExceptionHandler struct {
	StartOp   int
	EndOp     int
	HandlerOp int
	CatchType ClassHandle // zero Handle means catch-all
}
