package rt

import (
	"testing"

	"github.com/kvothe-dev/jalopy/pkg/gc"
)

func intArrayObject(h *gc.Heap, values []int32) ObjectHandle {
	storage := newArrayStorage(ArrayInt, len(values), ClassHandle{})
	copy(storage.Ints, values)
	return gc.Alloc(h, Object{Array: storage})
}

func longArrayObject(h *gc.Heap, values []int64) ObjectHandle {
	storage := newArrayStorage(ArrayLong, len(values), ClassHandle{})
	copy(storage.Longs, values)
	return gc.Alloc(h, Object{Array: storage})
}

func TestCopyArrayRangeInts(t *testing.T) {
	h := New(DefaultConfig(), nil).Heap
	src := intArrayObject(h, []int32{1, 2, 3, 4, 5})
	dst := intArrayObject(h, []int32{0, 0, 0, 0, 0})

	if err := CopyArrayRange(src, 1, dst, 0, 3); err != nil {
		t.Fatalf("CopyArrayRange: %v", err)
	}
	want := []int32{2, 3, 4, 0, 0}
	got := dst.Get().Array.Ints
	for i, w := range want {
		if got[i] != w {
			t.Errorf("dst[%d] = %d, want %d", i, got[i], w)
		}
	}
}

func TestCopyArrayRangeOutOfBounds(t *testing.T) {
	h := New(DefaultConfig(), nil).Heap
	src := intArrayObject(h, []int32{1, 2, 3})
	dst := intArrayObject(h, []int32{0, 0, 0})

	if err := CopyArrayRange(src, 2, dst, 0, 5); err == nil {
		t.Errorf("expected an error copying past the end of src")
	}
}

func TestCopyArrayRangeKindMismatch(t *testing.T) {
	h := New(DefaultConfig(), nil).Heap
	src := intArrayObject(h, []int32{1})
	dst := longArrayObject(h, []int64{0})

	if err := CopyArrayRange(src, 0, dst, 0, 1); err == nil {
		t.Errorf("expected an error copying between mismatched element kinds")
	}
}
