package rt

import (
	"github.com/kvothe-dev/jalopy/pkg/gc"
	"github.com/kvothe-dev/jalopy/pkg/istr"
)

// FieldTemplate describes one instance field's shape in a Class's layout;
// `new` clones one FieldCell per template entry into the fresh Object.
type FieldTemplate struct {
	Name       istr.Handle
	Descriptor ResolvedDescriptor
}

// FieldSlot is a static field's shared, mutable storage cell. Subclasses
// hold a reference to the same FieldSlot as their parent so writes through
// either class observe the same value.
type FieldSlot struct {
	Name       istr.Handle
	Descriptor ResolvedDescriptor
	Value      Value
}

// FieldSlotHandle is the GC handle for a shared static field cell.
type FieldSlotHandle = gc.Handle[FieldSlot]

func (f *FieldSlot) Trace(h *gc.Heap) {
	if f.Value.Tag() == TagRef {
		f.Value.Object().Mark(h)
	}
}

// fieldKey is the VTable[K] key for both instance and static fields:
// (name, descriptor).
type fieldKey struct {
	name string
	desc string
}

func newFieldKey(name istr.Handle, desc ResolvedDescriptor) fieldKey {
	return fieldKey{name: istr.Text(name), desc: descriptorKeyString(desc)}
}

func descriptorKeyString(d ResolvedDescriptor) string {
	// Two descriptors compare equal as VTable keys iff they denote the same
	// resolved type; class/array descriptors are keyed by their (unique)
	// ClassHandle identity by way of the class's own name, which is unique
	// per the registry's invariant.
	if d.IsReference() {
		return string(rune(d.Kind)) + istr.Text(d.Class.Get().Name)
	}
	return string(rune(d.Kind))
}
