package native

import (
	"bytes"
	"testing"

	"github.com/kvothe-dev/jalopy/pkg/gc"
	"github.com/kvothe-dev/jalopy/pkg/istr"
	"github.com/kvothe-dev/jalopy/pkg/rt"
)

func newTestHeap() (*gc.Heap, *istr.Table) {
	heap := gc.New(nil)
	return heap, istr.NewTable(heap)
}

func stringValue(heap *gc.Heap, strings *istr.Table, s string) rt.Value {
	obj := gc.Alloc(heap, rt.Object{HasStringValue: true, StringValue: strings.Intern(s)})
	return rt.RefVal(obj)
}

func integerValue(heap *gc.Heap, strings *istr.Table, n int32) rt.Value {
	cls := gc.Alloc(heap, rt.Class{Name: strings.Intern("java/lang/Integer")})
	obj := gc.Alloc(heap, rt.Object{
		Class: cls,
		Data:  []rt.FieldCell{{Name: boxedValueField, Value: rt.IntVal(n)}},
	})
	return rt.RefVal(obj)
}

func TestMapKeyStringsCompareByContent(t *testing.T) {
	heap, strings := newTestHeap()
	a := stringValue(heap, strings, "hello")
	b := stringValue(heap, strings, "hello")

	if mapKey(a) != mapKey(b) {
		t.Errorf("two distinct String objects with the same text must produce equal map keys")
	}
}

func TestMapKeyBoxedIntegersCompareByValue(t *testing.T) {
	heap, strings := newTestHeap()
	a := integerValue(heap, strings, 42)
	b := integerValue(heap, strings, 42)

	if mapKey(a) != mapKey(b) {
		t.Errorf("two distinct boxed Integers with the same value must produce equal map keys")
	}
}

func TestMapKeyNullIsDistinguishable(t *testing.T) {
	if mapKey(rt.NullVal()) != nil {
		t.Errorf("mapKey(null) = %v, want nil", mapKey(rt.NullVal()))
	}
}

func TestHashMapPutGetRoundTrip(t *testing.T) {
	heap, strings := newTestHeap()
	reg := rt.NewNativeRegistry()
	RegisterHashMap(reg)

	mapObj := gc.Alloc(heap, rt.Object{})
	receiver := rt.RefVal(mapObj)
	backingMap(receiver) // lazily initializes, mirroring <init>'s effect

	key := stringValue(heap, strings, "k")
	val := stringValue(heap, strings, "v")

	m := backingMap(receiver)
	m.data[mapKey(key)] = val

	got, ok := m.data[mapKey(stringValue(heap, strings, "k"))]
	if !ok {
		t.Fatalf("expected key %q to be present", "k")
	}
	text, _ := rt.JavaStringText(got.Object())
	if text != "v" {
		t.Errorf("Get(k) = %q, want %q", text, "v")
	}
}

func TestPrintStreamWritesText(t *testing.T) {
	var buf bytes.Buffer
	heap, strings := newTestHeap()
	obj := gc.Alloc(heap, rt.Object{})
	BootstrapPrintStream(obj, &buf)

	ctx := rt.New(rt.DefaultConfig(), nil)
	err := printStreamWrite(ctx, []rt.Value{rt.RefVal(obj), stringValue(heap, strings, "hi")}, true)
	if err != nil {
		t.Fatalf("printStreamWrite: %v", err)
	}
	if buf.String() != "hi\n" {
		t.Errorf("println output = %q, want %q", buf.String(), "hi\n")
	}
}

func TestIdentityHashStableAndNullIsZero(t *testing.T) {
	heap, _ := newTestHeap()
	obj := gc.Alloc(heap, rt.Object{})
	v := rt.RefVal(obj)

	if identityHash(v) != identityHash(v) {
		t.Errorf("identityHash must be stable across calls for the same object")
	}
	if identityHash(rt.NullVal()) != 0 {
		t.Errorf("identityHash(null) = %d, want 0", identityHash(rt.NullVal()))
	}
}
