package rt

import "github.com/kvothe-dev/jalopy/pkg/istr"

// methodKey is the VTable[K] key for methods: (name, method descriptor).
type methodKey struct {
	name string
	desc string
}

func newMethodKey(name istr.Handle, desc ResolvedMethodDescriptor) methodKey {
	return methodKey{name: istr.Text(name), desc: desc.key()}
}

// VTable is a linked chain of hash maps key -> slot_index.
// Lookup falls through to the parent on miss; new keys are appended at
// firstUnused, which stays one past the highest slot assigned in self and
// every ancestor — this is what lets a subclass's static-field array keep
// the parent's slot numbers stable.
type VTable[K comparable] struct {
	parent      *VTable[K]
	slots       map[K]int
	firstUnused int
}

// NewVTable creates a root (parentless) VTable.
func NewVTable[K comparable]() *VTable[K] {
	return &VTable[K]{slots: make(map[K]int)}
}

// NewChildVTable creates a VTable whose lookups fall through to parent and
// whose new entries start numbering at parent's firstUnused.
func NewChildVTable[K comparable](parent *VTable[K]) *VTable[K] {
	return &VTable[K]{parent: parent, slots: make(map[K]int), firstUnused: parent.firstUnused}
}

// Lookup returns the slot for key, searching self then ancestors.
func (v *VTable[K]) Lookup(key K) (int, bool) {
	for t := v; t != nil; t = t.parent {
		if idx, ok := t.slots[key]; ok {
			return idx, true
		}
	}
	return 0, false
}

// Append assigns key a fresh slot at firstUnused and returns it. Callers
// must ensure key is not already present in this VTable or an ancestor.
func (v *VTable[K]) Append(key K) int {
	idx := v.firstUnused
	v.slots[key] = idx
	v.firstUnused++
	return idx
}

// FirstUnused is one past the highest slot assigned in self and ancestors.
func (v *VTable[K]) FirstUnused() int { return v.firstUnused }

// InstanceMethodVTable is the flattened variant used for instance-method
// dispatch: a hash map straight to a flat Method array, so
// invokevirtual/invokeinterface never walk a parent chain at the hot path.
type InstanceMethodVTable struct {
	slots    map[methodKey]int
	Elements []MethodHandle
}

// NewInstanceMethodVTable creates an empty table (used for a class with no
// super, i.e. java/lang/Object, and for synthetic primitive classes).
func NewInstanceMethodVTable() *InstanceMethodVTable {
	return &InstanceMethodVTable{slots: make(map[methodKey]int)}
}

// NewInstanceMethodVTableFromParent clones parent's (map, elements); the
// caller then overwrites overridden slots in place and appends new ones.
func NewInstanceMethodVTableFromParent(parent *InstanceMethodVTable) *InstanceMethodVTable {
	slots := make(map[methodKey]int, len(parent.slots))
	for k, v := range parent.slots {
		slots[k] = v
	}
	elems := make([]MethodHandle, len(parent.Elements))
	copy(elems, parent.Elements)
	return &InstanceMethodVTable{slots: slots, Elements: elems}
}

// Lookup finds the slot index for (name, descriptor).
func (t *InstanceMethodVTable) Lookup(key methodKey) (int, bool) {
	idx, ok := t.slots[key]
	return idx, ok
}

// LookupByNameAndDescriptor searches by (name, descriptor) text directly —
// used by invokeinterface, which cannot rely on a stable slot index across
// unrelated classes implementing the same interface.
func (t *InstanceMethodVTable) LookupByNameAndDescriptor(name string, desc string) (int, bool) {
	idx, ok := t.slots[methodKey{name: name, desc: desc}]
	return idx, ok
}

// Put overwrites the slot for key if present (an override), else appends a
// new slot holding m. Returns the slot index.
func (t *InstanceMethodVTable) Put(key methodKey, m MethodHandle) int {
	if idx, ok := t.slots[key]; ok {
		t.Elements[idx] = m
		return idx
	}
	idx := len(t.Elements)
	t.slots[key] = idx
	t.Elements = append(t.Elements, m)
	return idx
}

// Get returns the method at slot index.
func (t *InstanceMethodVTable) Get(index int) MethodHandle { return t.Elements[index] }
