package rt

import (
	"bytes"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kvothe-dev/jalopy/pkg/classfile"
	"github.com/kvothe-dev/jalopy/pkg/gc"
	"github.com/kvothe-dev/jalopy/pkg/istr"
)

// ClassSource is the narrow external collaborator the context asks for
// class bytes: a mounted JAR or filesystem classpath entry.
type ClassSource interface {
	// Load returns the raw .class bytes for a fully-qualified class name,
	// or ok=false if this source doesn't have it.
	Load(className string) (data []byte, source LoadSource, ok bool, err error)
}

// CommonStrings holds the handful of interned names/descriptors almost
// every operation needs, avoiding a hash-table probe on every use.
type CommonStrings struct {
	JavaLangObject    istr.Handle
	JavaLangThrowable istr.Handle
	JavaLangString    istr.Handle
	JavaLangClass     istr.Handle
	Init              istr.Handle
	Clinit            istr.Handle
	NoArgsVoid        istr.Handle // "()V"
}

// Config carries the interpreter's tunables, populated from CLI flags in
// cmd/jalopy rather than read from a global singleton.
type Config struct {
	GCThreshold    int
	MaxFrameDepth  int
	FrameDataSize  int
}

func DefaultConfig() Config {
	return Config{
		GCThreshold:   10000,
		MaxFrameDepth: 1024,
		FrameDataSize: 1 << 20,
	}
}

// Context is the composition root and sole GC root.
type Context struct {
	Heap    *gc.Heap
	Strings *istr.Table
	Common  CommonStrings
	Log     logrus.FieldLogger
	Config  Config

	registry     *classRegistry
	descriptors  *descriptorCache
	classObjects map[int]ObjectHandle // Class.Id -> java/lang/Class instance, lazily materialized

	sources []ClassSource
	natives *NativeRegistry

	// internedStrings caches one String object per distinct ldc'd text, so
	// repeated execution of the same ldc (and separate ldc sites naming the
	// same UTF8 constant) observe reference-identical literals, matching
	// real javac/JVM string-literal interning.
	internedStrings map[istr.Handle]ObjectHandle

	FrameData []Value
	SP        int

	callStack []StackFrameInfo
	frameDepth int

	gcCounter int
}

// StackFrameInfo is a (class, method) pair captured for fillInStackTrace.
type StackFrameInfo struct {
	Class  string
	Method string
}

// New creates a Context over a fresh heap and intern table. Native method
// registration and class sources are added afterward via Register*.
func New(cfg Config, log logrus.FieldLogger) *Context {
	if log == nil {
		log = logrus.StandardLogger()
	}
	heap := gc.New(log)
	strings := istr.NewTable(heap)
	ctx := &Context{
		Heap:         heap,
		Strings:      strings,
		Log:          log,
		Config:       cfg,
		registry:     newClassRegistry(),
		descriptors:  newDescriptorCache(),
		classObjects: make(map[int]ObjectHandle),
		natives:      NewNativeRegistry(),
		internedStrings: make(map[istr.Handle]ObjectHandle),
		FrameData:    make([]Value, cfg.FrameDataSize),
	}
	ctx.Common = CommonStrings{
		JavaLangObject:    strings.Intern("java/lang/Object"),
		JavaLangThrowable: strings.Intern("java/lang/Throwable"),
		JavaLangString:    strings.Intern("java/lang/String"),
		JavaLangClass:     strings.Intern("java/lang/Class"),
		Init:              strings.Intern("<init>"),
		Clinit:            strings.Intern("<clinit>"),
		NoArgsVoid:        strings.Intern("()V"),
	}
	return ctx
}

// Trace is the GC root contract: the class registry (including synthetic
// array and primitive classes), the java/lang/Class object map, the intern
// table, the interned String objects, and only the *live* portion of the
// value stack. The descriptor cache, native table and call stack hold no
// heap handles of their own and are not traced.
func (ctx *Context) Trace(h *gc.Heap) {
	ctx.registry.trace(h)
	for _, handle := range ctx.classObjects {
		handle.Mark(h)
	}
	ctx.Strings.Trace(h)
	for _, obj := range ctx.internedStrings {
		obj.Mark(h)
	}
	for i := 0; i < ctx.SP; i++ {
		if ctx.FrameData[i].Tag() == TagRef {
			ctx.FrameData[i].Object().Mark(h)
		}
	}
}

// RegisterSource adds a class source searched in registration order, a
// flat list rather than a chain of nested parent-delegating loaders.
func (ctx *Context) RegisterSource(s ClassSource) {
	ctx.sources = append(ctx.sources, s)
}

// NativeRegistry exposes registration for the external native-method
// catalog; the core only calls through this interface.
func (ctx *Context) Natives() *NativeRegistry { return ctx.natives }

// LoadClass resolves a class by fully-qualified name, loading and
// constructing it on first use.
func (ctx *Context) LoadClass(name string) (ClassHandle, error) {
	if h, ok := ctx.registry.lookup(name); ok {
		return h, nil
	}

	for _, src := range ctx.sources {
		data, source, ok, err := src.Load(name)
		if err != nil {
			return ClassHandle{}, err
		}
		if !ok {
			continue
		}
		ctx.Log.WithField("class", name).Debug("loading class")
		cf, err := classfile.Decode(bytes.NewReader(data), ctx.Strings)
		if err != nil {
			return ClassHandle{}, err
		}
		return ctx.buildClass(ctx.Strings.Intern(name), cf, source)
	}

	return ClassHandle{}, &JavaError{ClassName: "java/lang/NoClassDefFoundError", Message: name, Stack: ctx.captureStack()}
}

// ArrayClassFor is the sole factory for a given array descriptor: exactly
// one ClassHandle exists per distinct descriptor.
func (ctx *Context) ArrayClassFor(desc classfile.Descriptor) (ClassHandle, error) {
	key := desc.String()
	if h, ok := ctx.descriptors.arrayByDesc[key]; ok {
		return h, nil
	}
	if desc.Kind != classfile.DescArray {
		return ClassHandle{}, fmt.Errorf("rt: ArrayClassFor called with non-array descriptor %q", key)
	}
	elemResolved, err := ctx.Resolve(*desc.Elem)
	if err != nil {
		return ClassHandle{}, err
	}

	object, err := ctx.LoadClass("java/lang/Object")
	if err != nil {
		return ClassHandle{}, err
	}
	c := &Class{
		Name:                 ctx.Strings.Intern(key),
		Flags:                classfile.AccPublic | classfile.AccFinal,
		Super:                object,
		HasSuper:             true,
		InstanceFieldVTable:  NewVTable[fieldKey](),
		StaticFieldVTable:    NewVTable[fieldKey](),
		StaticMethodVTable:   NewVTable[methodKey](),
		InstanceMethodVTable: shallowCopyInstanceMethods(object.Get().InstanceMethodVTable),
		ArrayValueType:       &elemResolved,
		Source:               SourceSynthetic,
		ClinitRun:            true,
		ClinitSlot:           -1,
	}
	handle := gc.Alloc(ctx.Heap, *c)
	handle.Get().Id = ctx.registry.nextID()
	ctx.descriptors.arrayByDesc[key] = handle
	ctx.registry.registerSynthetic(handle)
	return handle, nil
}

// PrimitiveClass returns (creating once) the synthetic Class for a
// primitive type, used only for reflection.
func (ctx *Context) PrimitiveClass(kind classfile.DescKind) ClassHandle {
	key := "$primitive$" + primitiveName(kind)
	if h, ok := ctx.descriptors.arrayByDesc[key]; ok {
		return h
	}
	k := kind
	c := &Class{
		Name:                 ctx.Strings.Intern(primitiveName(kind)),
		InstanceFieldVTable:  NewVTable[fieldKey](),
		StaticFieldVTable:    NewVTable[fieldKey](),
		StaticMethodVTable:   NewVTable[methodKey](),
		InstanceMethodVTable: NewInstanceMethodVTable(),
		PrimitiveType:        &k,
		Source:               SourceSynthetic,
		ClinitRun:            true,
		ClinitSlot:           -1,
	}
	handle := gc.Alloc(ctx.Heap, *c)
	handle.Get().Id = ctx.registry.nextID()
	ctx.descriptors.arrayByDesc[key] = handle
	ctx.registry.registerSynthetic(handle)
	return handle
}

func primitiveName(kind classfile.DescKind) string {
	switch kind {
	case classfile.DescBoolean:
		return "boolean"
	case classfile.DescByte:
		return "byte"
	case classfile.DescChar:
		return "char"
	case classfile.DescShort:
		return "short"
	case classfile.DescInt:
		return "int"
	case classfile.DescLong:
		return "long"
	case classfile.DescFloat:
		return "float"
	case classfile.DescDouble:
		return "double"
	default:
		return "void"
	}
}

// MaybeCollect increments the allocation counter and triggers a collection
// once it crosses Config.GCThreshold.
func (ctx *Context) MaybeCollect() {
	ctx.gcCounter++
	if ctx.gcCounter >= ctx.Config.GCThreshold {
		ctx.gcCounter = 0
		ctx.Heap.Collect(ctx)
	}
}

// classRegistry is the flat, insertion-ordered class table.
type classRegistry struct {
	byName map[string]ClassHandle
	all    []ClassHandle
	synthetic []ClassHandle
	idSeq  int
}

func newClassRegistry() *classRegistry {
	return &classRegistry{byName: make(map[string]ClassHandle)}
}

func (r *classRegistry) nextID() int {
	id := r.idSeq
	r.idSeq++
	return id
}

func (r *classRegistry) lookup(name string) (ClassHandle, bool) {
	h, ok := r.byName[name]
	return h, ok
}

func (r *classRegistry) register(name string, h ClassHandle) error {
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("rt: duplicate class registration for %s", name)
	}
	r.byName[name] = h
	r.all = append(r.all, h)
	return nil
}

func (r *classRegistry) registerSynthetic(h ClassHandle) {
	r.synthetic = append(r.synthetic, h)
}

func (r *classRegistry) trace(h *gc.Heap) {
	for _, c := range r.all {
		c.Mark(h)
	}
	for _, c := range r.synthetic {
		c.Mark(h)
	}
}

