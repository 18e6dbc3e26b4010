package rt

import (
	"fmt"

	"github.com/kvothe-dev/jalopy/pkg/classfile"
	"github.com/kvothe-dev/jalopy/pkg/gc"
	"github.com/kvothe-dev/jalopy/pkg/istr"
)

// ClassHandle is the GC handle for a runtime Class. The context's registry
// and array-class cache are the only factories.
type ClassHandle = gc.Handle[Class]

// LoadSource records where a class's bytes came from, for diagnostics.
type LoadSource int

const (
	SourceFilesystem LoadSource = iota
	SourceJAR
	SourceSynthetic // array/primitive classes manufactured by the context
)

// Class is the central runtime type.
type Class struct {
	Id   int
	Name istr.Handle
	Flags uint16

	Super          ClassHandle // zero Handle iff java/lang/Object, a primitive, or an array's... (arrays DO have Object as super)
	HasSuper       bool
	OwnInterfaces  []ClassHandle
	AllInterfaces  []ClassHandle

	StaticFieldVTable   *VTable[fieldKey]
	StaticFields        []FieldSlotHandle
	InstanceFieldVTable *VTable[fieldKey]
	InstanceFields      []FieldTemplate

	InstanceMethodVTable *InstanceMethodVTable
	StaticMethodVTable   *VTable[methodKey]
	StaticMethods        []MethodHandle

	ArrayValueType *ResolvedDescriptor // present iff this is an array class
	PrimitiveType  *classfile.DescKind // present iff this is a primitive class

	ClinitRun  bool
	ClinitSlot int // slot into StaticMethods, or -1 if no <clinit>

	ClassFile *classfile.ClassFile // nil for synthetic array/primitive classes
	Source    LoadSource
}

func (c *Class) IsInterface() bool { return c.Flags&classfile.AccInterface != 0 }
func (c *Class) IsAbstract() bool  { return c.Flags&classfile.AccAbstract != 0 }
func (c *Class) IsArray() bool     { return c.ArrayValueType != nil }
func (c *Class) IsPrimitive() bool { return c.PrimitiveType != nil }

func (c *Class) Trace(h *gc.Heap) {
	c.Name.Mark(h)
	if c.HasSuper {
		c.Super.Mark(h)
	}
	for _, i := range c.OwnInterfaces {
		i.Mark(h)
	}
	for _, i := range c.AllInterfaces {
		i.Mark(h)
	}
	for _, s := range c.StaticFields {
		s.Mark(h)
	}
	for _, m := range c.StaticMethods {
		m.Mark(h)
	}
	for _, m := range c.InstanceMethodVTable.Elements {
		m.Mark(h)
	}
}

// HasSuperClass walks the super chain looking for x.
func (c *Class) HasSuperClass(x ClassHandle) bool {
	cur := c
	for cur.HasSuper {
		super := cur.Super.Get()
		if gc.PtrEq(cur.Super, x) {
			return true
		}
		cur = super
	}
	return false
}

// MatchesClass is identity or HasSuperClass.
func (c *Class) MatchesClass(self ClassHandle, x ClassHandle) bool {
	return gc.PtrEq(self, x) || c.HasSuperClass(x)
}

// ImplementsInterface linearly scans AllInterfaces.
func (c *Class) ImplementsInterface(x ClassHandle) bool {
	for _, i := range c.AllInterfaces {
		if gc.PtrEq(i, x) {
			return true
		}
	}
	return false
}

// CheckCast implements the cast/subtype query: array types recurse on
// element type (primitive leaves compare by descriptor equality);
// otherwise it's matches-class-or-implements-interface.
func (c *Class) CheckCast(self ClassHandle, target ClassHandle) bool {
	targetCls := target.Get()
	if c.IsArray() && targetCls.IsArray() {
		elemSelf := c.ArrayValueType
		elemTarget := targetCls.ArrayValueType
		if elemSelf.IsReference() && elemTarget.IsReference() {
			return elemSelf.Class.Get().CheckCast(elemSelf.Class, elemTarget.Class)
		}
		return elemSelf.Kind == elemTarget.Kind && !elemSelf.IsReference()
	}
	return c.MatchesClass(self, target) || c.ImplementsInterface(target)
}

// RunClinit is the idempotent class-initialization gate. It sets the
// latch first (so a <clinit> that references its own class,
// directly or through a cycle, doesn't recurse forever), runs <clinit> if
// present, then recurses into super and every own interface.
func (ctx *Context) RunClinit(self ClassHandle) error {
	c := self.Get()
	if c.ClinitRun {
		return nil
	}
	c.ClinitRun = true

	if c.ClinitSlot >= 0 {
		ctx.Log.WithField("class", istr.Text(c.Name)).Debug("running <clinit>")
		method := c.StaticMethods[c.ClinitSlot]
		if _, err := ctx.InvokeStatic(method, nil); err != nil {
			return err
		}
	}
	if c.HasSuper {
		if err := ctx.RunClinit(c.Super); err != nil {
			return err
		}
	}
	for _, iface := range c.OwnInterfaces {
		if err := ctx.RunClinit(iface); err != nil {
			return err
		}
	}
	return nil
}

// buildClass constructs a Class from a decoded class file, in order:
// resolve super, resolve interfaces, compute all_interfaces, lay out
// fields, register, lay out methods, locate <clinit>.
func (ctx *Context) buildClass(name istr.Handle, cf *classfile.ClassFile, source LoadSource) (ClassHandle, error) {
	flags := cf.AccessFlags

	var super ClassHandle
	hasSuper := false
	superName, ok, err := cf.SuperClassName()
	if err != nil {
		return ClassHandle{}, err
	}
	if ok {
		super, err = ctx.LoadClass(istr.Text(superName))
		if err != nil {
			return ClassHandle{}, err
		}
		hasSuper = true
	}

	ownIfaces := make([]ClassHandle, 0, len(cf.Interfaces))
	for _, idx := range cf.Interfaces {
		ifaceName, err := cf.Pool.ClassName(idx)
		if err != nil {
			return ClassHandle{}, err
		}
		ifaceCls, err := ctx.LoadClass(istr.Text(ifaceName))
		if err != nil {
			return ClassHandle{}, err
		}
		if !ifaceCls.Get().IsInterface() {
			return ClassHandle{}, &ResolutionError{Kind: "ClassNotInterface", Detail: istr.Text(ifaceName)}
		}
		ownIfaces = append(ownIfaces, ifaceCls)
	}

	allIfaces := append([]ClassHandle{}, ownIfaces...)
	if hasSuper {
		allIfaces = append(allIfaces, super.Get().AllInterfaces...)
	}
	for _, iface := range ownIfaces {
		allIfaces = append(allIfaces, iface.Get().AllInterfaces...)
	}
	allIfaces = dedupClasses(allIfaces)

	instFieldVT, instFields, staticFieldVT, staticFields, err := ctx.layoutFields(cf, hasSuper, super, allIfaces)
	if err != nil {
		return ClassHandle{}, err
	}

	c := &Class{
		Name:                name,
		Flags:               flags,
		Super:               super,
		HasSuper:            hasSuper,
		OwnInterfaces:       ownIfaces,
		AllInterfaces:       allIfaces,
		InstanceFieldVTable: instFieldVT,
		InstanceFields:      instFields,
		StaticFieldVTable:   staticFieldVT,
		StaticFields:        staticFields,
		ClassFile:           cf,
		Source:              source,
		ClinitSlot:          -1,
	}
	handle := gc.Alloc(ctx.Heap, *c)
	c = handle.Get()
	c.Id = ctx.registry.nextID()

	if err := ctx.registry.register(istr.Text(name), handle); err != nil {
		return ClassHandle{}, err
	}

	staticMethodVT, staticMethods, instMethodVT, err := ctx.layoutMethods(cf, hasSuper, super, handle)
	if err != nil {
		return ClassHandle{}, err
	}
	c.StaticMethodVTable = staticMethodVT
	c.StaticMethods = staticMethods
	c.InstanceMethodVTable = instMethodVT

	// the static table falls through to the parent's, so only a <clinit>
	// declared by this class itself counts.
	if idx, ok := staticMethodVT.Lookup(methodKey{name: "<clinit>", desc: "()V"}); ok && gc.PtrEq(staticMethods[idx].Get().Class, handle) {
		c.ClinitSlot = idx
	}

	return handle, nil
}

func dedupClasses(in []ClassHandle) []ClassHandle {
	out := make([]ClassHandle, 0, len(in))
	for _, c := range in {
		dup := false
		for _, o := range out {
			if gc.PtrEq(c, o) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}

// shallowCopyInstanceMethods returns a shallow copy of Object's instance
// method v-table, so clone/toString/etc. are available on array classes.
func shallowCopyInstanceMethods(object *InstanceMethodVTable) *InstanceMethodVTable {
	return NewInstanceMethodVTableFromParent(object)
}

// ResolutionError is a native error for class/interface resolution
// failures that are not themselves Java errors (e.g. a supposed interface
// turning out not to be one). NoClassDefFoundError, by contrast, is a Java
// error.
type ResolutionError struct {
	Kind   string
	Detail string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}
