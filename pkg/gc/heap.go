// Package gc implements the mark-and-sweep heap that backs every
// long-lived runtime value (classes, objects, strings, field slots).
//
// The design mirrors a classic intrusive-list collector: every allocation
// gets a node linked at the head of the heap's chain (newest first), collect
// clears all marks, traces from a single root, then sweeps unmarked nodes.
package gc

import "github.com/sirupsen/logrus"

// Trace is implemented by anything reachable from the root that itself
// holds Handles. Trace must mark every Handle it owns by calling its
// Mark method; Mark is idempotent so cycles terminate naturally.
type Trace interface {
	Trace(h *Heap)
}

// Finalizer is implemented by payloads that hold native resources (open
// file descriptors, cached JAR bytes) that must be released deterministically
// when the payload is swept.
type Finalizer interface {
	Finalize()
}

// node is the type-erased header every allocation carries. It is embedded
// in cell[T] so the heap can link heterogeneous allocations into one chain.
type node struct {
	marked bool
	prev   *node
	next   *node

	// traceValue calls Trace on the payload if it implements Trace.
	traceValue func(h *Heap)
	// finalize calls Finalize on the payload if it implements Finalizer.
	finalize func()
}

type cell[T any] struct {
	node
	value T
}

// Handle is a Copy, deref-transparent reference to a GC-managed allocation.
// The zero Handle is not valid; it must be produced by Alloc.
type Handle[T any] struct {
	c *cell[T]
}

// Valid reports whether h was produced by Alloc (as opposed to the zero value).
func (h Handle[T]) Valid() bool { return h.c != nil }

// Get returns a pointer to the payload, allowing in-place mutation exactly
// like a real heap reference.
func (h Handle[T]) Get() *T { return &h.c.value }

// PtrEq reports whether two handles reference the same allocation.
func PtrEq[T any](a, b Handle[T]) bool { return a.c == b.c }

// Mark marks h live and, unless it was already marked, recursively traces
// its payload. Safe to call on an invalid (zero) handle.
func (h Handle[T]) Mark(heap *Heap) {
	if h.c == nil || h.c.marked {
		return
	}
	h.c.marked = true
	if h.c.traceValue != nil {
		h.c.traceValue(heap)
	}
}

// Heap owns the intrusive allocation chain.
type Heap struct {
	head  node // sentinel; head.next is the first real allocation
	log   logrus.FieldLogger
	count int
}

// New creates an empty heap. log may be nil, in which case a discard logger
// is used.
func New(log logrus.FieldLogger) *Heap {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(discardWriter{})
		log = discard
	}
	h := &Heap{log: log}
	h.head.next = nil
	return h
}

// Alloc heap-allocates value and returns an owning Handle.
func Alloc[T any](h *Heap, value T) Handle[T] {
	c := &cell[T]{value: value}
	c.traceValue = func(heap *Heap) {
		if tr, ok := any(&c.value).(Trace); ok {
			tr.Trace(heap)
		}
	}
	c.finalize = func() {
		if f, ok := any(&c.value).(Finalizer); ok {
			f.Finalize()
		}
	}

	c.prev = &h.head
	c.next = h.head.next
	if h.head.next != nil {
		h.head.next.prev = &c.node
	}
	h.head.next = &c.node
	h.count++

	return Handle[T]{c: c}
}

// Len returns the number of live allocations (valid only between sweeps).
func (h *Heap) Len() int { return h.count }

// Collect clears all marks, traces from root, then sweeps every node that
// was not reached. root is typically the interpreter Context.
func (h *Heap) Collect(root Trace) {
	before := h.count
	for n := h.head.next; n != nil; n = n.next {
		n.marked = false
	}

	root.Trace(h)

	n := h.head.next
	for n != nil {
		next := n.next
		if !n.marked {
			unlink(n)
			if n.finalize != nil {
				n.finalize()
			}
			h.count--
		}
		n = next
	}
	h.log.WithFields(logrus.Fields{
		"before": before,
		"after":  h.count,
		"freed":  before - h.count,
	}).Trace("gc: collection complete")
}

func unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
