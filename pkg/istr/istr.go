// Package istr implements IStr, the managed, content-hashed UTF-8 string
// used for every identifier, descriptor, and decoded constant-pool string.
package istr

import (
	"hash/fnv"

	"github.com/kvothe-dev/jalopy/pkg/gc"
)

// Str is the payload held behind a Handle. Equality is content-based and
// the hash is precomputed once at intern time.
type Str struct {
	text string
	hash uint64
}

// Handle is the managed, content-hashed string type referenced throughout
// the runtime. Two Handles for equal content are guaranteed to be the same
// allocation by the Table that produced them.
type Handle = gc.Handle[Str]

// Text returns the underlying Go string.
func Text(h Handle) string { return h.Get().text }

// Hash returns the precomputed content hash.
func Hash(h Handle) uint64 { return h.Get().hash }

// Equal compares two handles by content (cheap, since interning makes this
// a pointer comparison in the common case, but falls back to value equality
// for handles minted outside the same Table).
func Equal(a, b Handle) bool {
	if gc.PtrEq(a, b) {
		return true
	}
	return a.Get().hash == b.Get().hash && a.Get().text == b.Get().text
}

// Table interns strings, handing out the same Handle for equal content.
// It is the sole factory for IStr values for a given heap, matching the
// "context owns a ... map that is the sole factory" rule used elsewhere in
// the runtime for descriptors and array classes.
type Table struct {
	heap    *gc.Heap
	entries map[string]Handle
}

// NewTable creates an empty intern table bound to heap.
func NewTable(heap *gc.Heap) *Table {
	return &Table{heap: heap, entries: make(map[string]Handle)}
}

// Intern returns the Handle for s, allocating on first sight.
func (t *Table) Intern(s string) Handle {
	if h, ok := t.entries[s]; ok {
		return h
	}
	fn := fnv.New64a()
	_, _ = fn.Write([]byte(s))
	h := gc.Alloc(t.heap, Str{text: s, hash: fn.Sum64()})
	t.entries[s] = h
	return h
}

// Trace marks every interned string live. The intern table itself is
// reachable from the Context, which is the GC root, so every string stays
// alive for the process lifetime: interned content is effectively permanent
// once interned.
func (t *Table) Trace(h *gc.Heap) {
	for _, handle := range t.entries {
		handle.Mark(h)
	}
}
