package gc

import "testing"

type linkedNode struct {
	next Handle[linkedNode]
	live bool
}

func (n *linkedNode) Trace(h *Heap) { n.next.Mark(h) }

type root struct {
	held Handle[linkedNode]
}

func (r *root) Trace(h *Heap) { r.held.Mark(h) }

func TestCollectSweepsUnreachableAllocations(t *testing.T) {
	heap := New(nil)
	kept := Alloc(heap, linkedNode{})
	_ = Alloc(heap, linkedNode{}) // never rooted; should be swept

	if heap.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 before collection", heap.Len())
	}

	heap.Collect(&root{held: kept})

	if heap.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after collection", heap.Len())
	}
}

func TestCollectKeepsTransitivelyReachableChain(t *testing.T) {
	heap := New(nil)
	tail := Alloc(heap, linkedNode{})
	middle := Alloc(heap, linkedNode{next: tail})
	head := Alloc(heap, linkedNode{next: middle})

	heap.Collect(&root{held: head})

	if heap.Len() != 3 {
		t.Errorf("Len() = %d, want 3; chain should survive via transitive trace", heap.Len())
	}
}

func TestMarkIsIdempotentOnCycles(t *testing.T) {
	heap := New(nil)
	a := Alloc(heap, linkedNode{})
	b := Alloc(heap, linkedNode{next: a})
	a.Get().next = b // a -> b -> a

	done := make(chan struct{})
	go func() {
		heap.Collect(&root{held: a})
		close(done)
	}()
	<-done

	if heap.Len() != 2 {
		t.Errorf("Len() = %d, want 2; a cycle must not hang or lose live nodes", heap.Len())
	}
}

func TestHandleValidAndPtrEq(t *testing.T) {
	heap := New(nil)
	var zero Handle[linkedNode]
	if zero.Valid() {
		t.Error("zero Handle.Valid() = true, want false")
	}

	h1 := Alloc(heap, linkedNode{live: true})
	h2 := h1
	if !PtrEq(h1, h2) {
		t.Error("PtrEq(h, h) = false, want true for the same allocation")
	}

	h3 := Alloc(heap, linkedNode{live: true})
	if PtrEq(h1, h3) {
		t.Error("PtrEq(h1, h3) = true, want false for distinct allocations")
	}
}

func TestFinalizerRunsOnSweep(t *testing.T) {
	heap := New(nil)
	finalized := false
	Alloc(heap, finalizerPayload{onFinalize: func() { finalized = true }})

	heap.Collect(&root{})

	if !finalized {
		t.Error("Finalize was not called for a swept allocation")
	}
}

type finalizerPayload struct {
	onFinalize func()
}

func (p *finalizerPayload) Finalize() { p.onFinalize() }
