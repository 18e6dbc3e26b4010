package rt

import (
	"github.com/kvothe-dev/jalopy/pkg/classfile"
	"github.com/kvothe-dev/jalopy/pkg/gc"
	"github.com/kvothe-dev/jalopy/pkg/istr"
)

// layoutFields lays out a class's instance and static fields: instance
// fields are the super's instance fields (by value) concatenated with this
// class's own non-static fields; static fields are the super's static-field
// *references* plus every transitively-implemented interface's static
// fields (by reference) plus fresh storage for this class's own statics.
func (ctx *Context) layoutFields(cf *classfile.ClassFile, hasSuper bool, super ClassHandle, allIfaces []ClassHandle) (
	*VTable[fieldKey], []FieldTemplate, *VTable[fieldKey], []FieldSlotHandle, error,
) {
	var instVT *VTable[fieldKey]
	var instFields []FieldTemplate
	var staticVT *VTable[fieldKey]
	var staticFields []FieldSlotHandle

	if hasSuper {
		parent := super.Get()
		instVT = NewChildVTable(parent.InstanceFieldVTable)
		instFields = append(instFields, parent.InstanceFields...)
		staticVT = NewChildVTable(parent.StaticFieldVTable)
		staticFields = append(staticFields, parent.StaticFields...)
	} else {
		instVT = NewVTable[fieldKey]()
		staticVT = NewVTable[fieldKey]()
	}

	for _, iface := range allIfaces {
		ic := iface.Get()
		for i, slot := range ic.StaticFields {
			key := newFieldKey(slot.Get().Name, slot.Get().Descriptor)
			if _, ok := staticVT.Lookup(key); ok {
				continue
			}
			idx := staticVT.Append(key)
			_ = idx
			staticFields = append(staticFields, ic.StaticFields[i])
		}
	}

	for i := range cf.Fields {
		fi := &cf.Fields[i]
		symbolic, _, err := classfile.ParseDescriptor(istr.Text(fi.Descriptor), false)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		resolved, err := ctx.Resolve(symbolic)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		key := newFieldKey(fi.Name, resolved)
		if fi.AccessFlags&classfile.AccStatic != 0 {
			idx := staticVT.Append(key)
			_ = idx
			slot := gc.Alloc(ctx.Heap, FieldSlot{
				Name:       fi.Name,
				Descriptor: resolved,
				Value:      DefaultValue(resolved),
			})
			staticFields = append(staticFields, slot)
		} else {
			instVT.Append(key)
			instFields = append(instFields, FieldTemplate{Name: fi.Name, Descriptor: resolved})
		}
	}

	return instVT, instFields, staticVT, staticFields, nil
}

// layoutMethods lays out a class's static and instance methods: static
// methods are super's + own, in a fresh v-table; instance methods copy the parent's
// flat array and overwrite overridden slots in place so call-site slot
// indices stay valid under dynamic dispatch.
func (ctx *Context) layoutMethods(cf *classfile.ClassFile, hasSuper bool, super ClassHandle, owner ClassHandle) (
	*VTable[methodKey], []MethodHandle, *InstanceMethodVTable, error,
) {
	var staticVT *VTable[methodKey]
	var staticMethods []MethodHandle
	var instVT *InstanceMethodVTable

	if hasSuper {
		parent := super.Get()
		staticVT = NewChildVTable(parent.StaticMethodVTable)
		staticMethods = append(staticMethods, parent.StaticMethods...)
		instVT = NewInstanceMethodVTableFromParent(parent.InstanceMethodVTable)
	} else {
		staticVT = NewVTable[methodKey]()
		instVT = NewInstanceMethodVTable()
	}

	for i := range cf.Methods {
		mi := &cf.Methods[i]
		rawDesc, err := classfile.ParseMethodDescriptor(istr.Text(mi.Descriptor))
		if err != nil {
			return nil, nil, nil, err
		}
		resolved, err := ctx.ResolveMethodDescriptor(rawDesc)
		if err != nil {
			return nil, nil, nil, err
		}

		m := &Method{
			Name:          mi.Name,
			Descriptor:    resolved,
			RawDescriptor: rawDesc,
			AccessFlags:   mi.AccessFlags,
			Class:         owner,
			CPool:         cf.Pool,
		}
		switch {
		case m.IsNative():
			m.Kind = MethodNative
		case m.IsAbstract():
			m.Kind = MethodEmpty
		case mi.RawCode != nil:
			m.Kind = MethodUnparsed
			m.RawCode = mi.RawCode
		default:
			m.Kind = MethodEmpty
		}
		handle := gc.Alloc(ctx.Heap, *m)

		key := methodKey{name: istr.Text(mi.Name), desc: resolved.key()}
		if mi.AccessFlags&classfile.AccStatic != 0 {
			if idx, ok := staticVT.Lookup(key); ok && hasSuper {
				staticMethods[idx] = handle
			} else {
				idx := staticVT.Append(key)
				for len(staticMethods) <= idx {
					staticMethods = append(staticMethods, MethodHandle{})
				}
				staticMethods[idx] = handle
			}
		} else {
			instVT.Put(key, handle)
		}
	}

	return staticVT, staticMethods, instVT, nil
}
