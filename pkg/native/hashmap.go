package native

import (
	"github.com/kvothe-dev/jalopy/pkg/istr"
	"github.com/kvothe-dev/jalopy/pkg/rt"
)

// nativeHashMap is the host-side bucket table backing a java/util/HashMap
// instance, stashed in Object.Native — there is no sensible way to express
// an open-addressed hash table as ordinary Java instance fields, so (as
// with PrintStream's io.Writer) the natives below own it directly.
type nativeHashMap struct {
	data map[interface{}]rt.Value
}

// RegisterHashMap wires java/util/HashMap's constructor, put, get,
// containsKey, and size onto reg.
func RegisterHashMap(reg *rt.NativeRegistry) {
	reg.Register("java/util/HashMap", "<init>", "()V", func(ctx *rt.Context, args []rt.Value) (*rt.Value, error) {
		args[0].Object().Get().Native = &nativeHashMap{data: make(map[interface{}]rt.Value)}
		return nil, nil
	})
	reg.Register("java/util/HashMap", "put", "(Ljava/lang/Object;Ljava/lang/Object;)Ljava/lang/Object;", func(ctx *rt.Context, args []rt.Value) (*rt.Value, error) {
		m := backingMap(args[0])
		key := mapKey(args[1])
		old, had := m.data[key]
		m.data[key] = args[2]
		if !had {
			v := rt.NullVal()
			return &v, nil
		}
		return &old, nil
	})
	reg.Register("java/util/HashMap", "get", "(Ljava/lang/Object;)Ljava/lang/Object;", func(ctx *rt.Context, args []rt.Value) (*rt.Value, error) {
		m := backingMap(args[0])
		v, ok := m.data[mapKey(args[1])]
		if !ok {
			null := rt.NullVal()
			return &null, nil
		}
		return &v, nil
	})
	reg.Register("java/util/HashMap", "containsKey", "(Ljava/lang/Object;)Z", func(ctx *rt.Context, args []rt.Value) (*rt.Value, error) {
		m := backingMap(args[0])
		_, ok := m.data[mapKey(args[1])]
		result := int32(0)
		if ok {
			result = 1
		}
		v := rt.IntVal(result)
		return &v, nil
	})
	reg.Register("java/util/HashMap", "size", "()I", func(ctx *rt.Context, args []rt.Value) (*rt.Value, error) {
		m := backingMap(args[0])
		v := rt.IntVal(int32(len(m.data)))
		return &v, nil
	})
}

func backingMap(receiver rt.Value) *nativeHashMap {
	obj := receiver.Object().Get()
	m, ok := obj.Native.(*nativeHashMap)
	if !ok {
		m = &nativeHashMap{data: make(map[interface{}]rt.Value)}
		obj.Native = m
	}
	return m
}

// mapKey derives a Go-comparable key from a Value: Strings compare by
// content (matching String.equals/hashCode), boxed Integers by their
// unboxed value, everything else by reference identity.
func mapKey(v rt.Value) interface{} {
	if v.IsNull() {
		return nil
	}
	obj := v.Object()
	if text, ok := rt.JavaStringText(obj); ok {
		return text
	}
	if istr.Text(obj.Get().Class.Get().Name) == "java/lang/Integer" {
		return rt.IntField(obj, boxedValueField)
	}
	return obj.Get()
}
