package native

import (
	"fmt"
	"strconv"

	"github.com/kvothe-dev/jalopy/pkg/rt"
)

// boxedValueField is the instance field name java/lang/Integer and friends
// declare their primitive payload under on the bootstrap classpath this
// catalog assumes.
const boxedValueField = "value"

// RegisterBoxing wires java/lang/Integer's boxing/unboxing natives and
// java/lang/Math's pure functions.
func RegisterBoxing(reg *rt.NativeRegistry) {
	reg.Register("java/lang/Integer", "valueOf", "(I)Ljava/lang/Integer;", func(ctx *rt.Context, args []rt.Value) (*rt.Value, error) {
		cls, err := ctx.LoadClass("java/lang/Integer")
		if err != nil {
			return nil, err
		}
		obj := ctx.NewInstance(cls)
		rt.SetIntField(obj, boxedValueField, args[0].Int())
		v := rt.RefVal(obj)
		return &v, nil
	})
	reg.Register("java/lang/Integer", "intValue", "()I", func(ctx *rt.Context, args []rt.Value) (*rt.Value, error) {
		v := rt.IntVal(rt.IntField(args[0].Object(), boxedValueField))
		return &v, nil
	})
	reg.Register("java/lang/Integer", "toString", "(I)Ljava/lang/String;", func(ctx *rt.Context, args []rt.Value) (*rt.Value, error) {
		return newStringResult(ctx, strconv.FormatInt(int64(args[0].Int()), 10))
	})
	reg.Register("java/lang/Integer", "parseInt", "(Ljava/lang/String;)I", func(ctx *rt.Context, args []rt.Value) (*rt.Value, error) {
		text, ok := rt.JavaStringText(args[0].Object())
		if !ok {
			return nil, ctx.ThrowNew("java/lang/NullPointerException", "")
		}
		n, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return nil, ctx.ThrowNew("java/lang/NumberFormatException", fmt.Sprintf("For input string: %q", text))
		}
		v := rt.IntVal(int32(n))
		return &v, nil
	})

	reg.Register("java/lang/Math", "abs", "(I)I", func(ctx *rt.Context, args []rt.Value) (*rt.Value, error) {
		n := args[0].Int()
		if n < 0 {
			n = -n
		}
		v := rt.IntVal(n)
		return &v, nil
	})
	reg.Register("java/lang/Math", "max", "(II)I", func(ctx *rt.Context, args []rt.Value) (*rt.Value, error) {
		a, b := args[0].Int(), args[1].Int()
		if a > b {
			b = a
		}
		v := rt.IntVal(b)
		return &v, nil
	})
	reg.Register("java/lang/Math", "min", "(II)I", func(ctx *rt.Context, args []rt.Value) (*rt.Value, error) {
		a, b := args[0].Int(), args[1].Int()
		if a < b {
			b = a
		}
		v := rt.IntVal(b)
		return &v, nil
	})
}

func newStringResult(ctx *rt.Context, s string) (*rt.Value, error) {
	obj, err := ctx.NewJavaString(s)
	if err != nil {
		return nil, err
	}
	v := rt.RefVal(obj)
	return &v, nil
}
