package rt

import (
	"fmt"

	"github.com/kvothe-dev/jalopy/pkg/classfile"
	"github.com/kvothe-dev/jalopy/pkg/gc"
	"github.com/kvothe-dev/jalopy/pkg/istr"
)

// NativeKey identifies a registered native method.
type NativeKey struct {
	Class      string
	Method     string
	Descriptor string
}

// NativeRegistry is the additive, externally-populated native-method
// dispatch table: registration is performed by external modules at
// startup and is additive.
type NativeRegistry struct {
	fns map[NativeKey]NativeFn
}

func NewNativeRegistry() *NativeRegistry {
	return &NativeRegistry{fns: make(map[NativeKey]NativeFn)}
}

// Register adds or replaces the implementation for (class, method, descriptor).
func (r *NativeRegistry) Register(class, method, descriptor string, fn NativeFn) {
	r.fns[NativeKey{Class: class, Method: method, Descriptor: descriptor}] = fn
}

func (r *NativeRegistry) lookup(class, method, descriptor string) (NativeFn, bool) {
	fn, ok := r.fns[NativeKey{Class: class, Method: method, Descriptor: descriptor}]
	return fn, ok
}

func (ctx *Context) nativeFnFor(m *Method) (NativeFn, bool) {
	return ctx.natives.lookup(istr.Text(m.Class.Get().Name), istr.Text(m.Name), m.RawDescriptor.String())
}

// newObjectNoInit heap-allocates an instance of cls with every field set
// to its default value, without running any constructor; constructors run
// separately, at the caller's choosing.
func newObjectNoInit(ctx *Context, cls ClassHandle) ObjectHandle {
	c := cls.Get()
	data := make([]FieldCell, len(c.InstanceFields))
	for i, t := range c.InstanceFields {
		data[i] = FieldCell{Descriptor: t.Descriptor, Name: istr.Text(t.Name), Value: DefaultValue(t.Descriptor)}
	}
	return gc.Alloc(ctx.Heap, Object{Class: cls, Data: data})
}

// NewInstance heap-allocates an instance of cls with default-valued fields,
// for native methods (e.g. Integer.valueOf) that box a primitive into a
// fresh object without going through the bytecode `new` op.
func (ctx *Context) NewInstance(cls ClassHandle) ObjectHandle {
	return newObjectNoInit(ctx, cls)
}

// SetIntField sets the named instance field on obj to v, used by natives
// that construct boxed wrapper objects.
func SetIntField(obj ObjectHandle, name string, v int32) {
	o := obj.Get()
	for i := range o.Data {
		if o.Data[i].Name == name {
			o.Data[i].Value = IntVal(v)
			return
		}
	}
}

// IntField reads the named int instance field, or 0 if absent.
func IntField(obj ObjectHandle, name string) int32 {
	o := obj.Get()
	for i := range o.Data {
		if o.Data[i].Name == name {
			return o.Data[i].Value.Int()
		}
	}
	return 0
}

// StaticObjectField returns the named static field's current value as an
// ObjectHandle, for boot-time wiring that needs to reach into a class after
// its <clinit> has run (e.g. attaching host console streams to
// java/lang/System's pre-existing out/err fields).
func (ctx *Context) StaticObjectField(cls ClassHandle, name string) (ObjectHandle, bool) {
	for _, slot := range cls.Get().StaticFields {
		s := slot.Get()
		if istr.Text(s.Name) == name && s.Value.Tag() == TagRef {
			return s.Value.Object(), true
		}
	}
	return ObjectHandle{}, false
}

// FindMain looks up cls's public static void main(String[]) entry point.
func (ctx *Context) FindMain(cls ClassHandle) (MethodHandle, bool) {
	c := cls.Get()
	idx, ok := c.StaticMethodVTable.Lookup(methodKey{name: "main", desc: "([Ljava/lang/String;)V"})
	if !ok {
		return MethodHandle{}, false
	}
	return c.StaticMethods[idx], true
}

// NewStringArray builds a java/lang/String[] populated with args, for
// constructing the argument vector passed to a program's main(String[]).
func (ctx *Context) NewStringArray(args []string) (ObjectHandle, error) {
	elemCls, err := ctx.LoadClass("java/lang/String")
	if err != nil {
		return ObjectHandle{}, err
	}
	arrCls, err := ctx.ArrayClassFor(classfile.Descriptor{Kind: classfile.DescArray, Elem: &classfile.Descriptor{Kind: classfile.DescClass, Class: istr.Text(elemCls.Get().Name)}})
	if err != nil {
		return ObjectHandle{}, err
	}
	storage := newArrayStorage(ArrayObject, len(args), elemCls)
	for i, a := range args {
		s, err := ctx.NewJavaString(a)
		if err != nil {
			return ObjectHandle{}, err
		}
		storage.Objects[i] = s
	}
	return gc.Alloc(ctx.Heap, Object{Class: arrCls, Array: storage}), nil
}

// ThrowNew manufactures a pre-constructed instance of the named exception
// class, runs its no-arg constructor if one exists, and returns it wrapped
// as a JavaError ready to propagate through the interpreter's unwinder.
func (ctx *Context) ThrowNew(className, message string) error {
	cls, err := ctx.LoadClass(className)
	if err != nil {
		return fmt.Errorf("rt: manufacturing %s: %w", className, err)
	}
	obj := newObjectNoInit(ctx, cls)
	if message != "" {
		ctx.setMessageField(obj, message)
	}

	if init, ok := findInitNoArgs(cls); ok {
		if _, err := ctx.InvokeSpecial(init, []Value{RefVal(obj)}); err != nil {
			return err
		}
	}
	return &JavaError{ClassName: className, Message: message, Object: obj, Stack: ctx.captureStack()}
}

// NewJavaString heap-allocates a java/lang/String instance backed by an
// interned copy of s.
func (ctx *Context) NewJavaString(s string) (ObjectHandle, error) {
	cls, err := ctx.LoadClass("java/lang/String")
	if err != nil {
		return ObjectHandle{}, err
	}
	return gc.Alloc(ctx.Heap, Object{
		Class:          cls,
		HasStringValue: true,
		StringValue:    ctx.Strings.Intern(s),
	}), nil
}

// InternedJavaString returns the single String object standing for text,
// allocating it the first time this text is seen (see Context.internedStrings).
func (ctx *Context) InternedJavaString(text string) (ObjectHandle, error) {
	key := ctx.Strings.Intern(text)
	if obj, ok := ctx.internedStrings[key]; ok {
		return obj, nil
	}
	obj, err := ctx.NewJavaString(text)
	if err != nil {
		return ObjectHandle{}, err
	}
	ctx.internedStrings[key] = obj
	return obj, nil
}

func (ctx *Context) setMessageField(obj ObjectHandle, msg string) {
	o := obj.Get()
	for i := range o.Data {
		if o.Data[i].Name == "message" {
			strObj, err := ctx.NewJavaString(msg)
			if err != nil {
				return
			}
			o.Data[i].Value = RefVal(strObj)
			return
		}
	}
}

func findInitNoArgs(cls ClassHandle) (MethodHandle, bool) {
	c := cls.Get()
	idx, ok := c.InstanceMethodVTable.Lookup(methodKey{name: "<init>", desc: "()V"})
	if !ok {
		return MethodHandle{}, false
	}
	return c.InstanceMethodVTable.Get(idx), true
}

// captureStack snapshots the current call stack into a JavaError's Stack.
func (ctx *Context) captureStack() []StackFrameInfo {
	out := make([]StackFrameInfo, len(ctx.callStack))
	copy(out, ctx.callStack)
	return out
}
