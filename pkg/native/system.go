// Package native is the built-in native-method catalog: the handful of
// java/lang, java/io, and java/util methods no class file provides a body
// for, wired into a Context's NativeRegistry at boot.
package native

import (
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"time"

	"github.com/kvothe-dev/jalopy/pkg/rt"
)

// PrintStream is the host-side backing for a java/io/PrintStream instance,
// stashed in an Object's Native field by BootstrapPrintStream. System.out
// and System.err are the only instances this catalog ever manufactures.
type PrintStream struct {
	Writer io.Writer
}

// RegisterSystem wires java/lang/System's identity/timing natives and the
// java/io/PrintStream println/print family onto reg.
func RegisterSystem(reg *rt.NativeRegistry) {
	reg.Register("java/lang/System", "currentTimeMillis", "()J", func(ctx *rt.Context, args []rt.Value) (*rt.Value, error) {
		v := rt.LongVal(time.Now().UnixMilli())
		return &v, nil
	})
	reg.Register("java/lang/System", "nanoTime", "()J", func(ctx *rt.Context, args []rt.Value) (*rt.Value, error) {
		v := rt.LongVal(time.Now().UnixNano())
		return &v, nil
	})
	reg.Register("java/lang/System", "identityHashCode", "(Ljava/lang/Object;)I", func(ctx *rt.Context, args []rt.Value) (*rt.Value, error) {
		v := rt.IntVal(identityHash(args[0]))
		return &v, nil
	})
	reg.Register("java/lang/System", "arraycopy", "(Ljava/lang/Object;ILjava/lang/Object;II)V", nativeArraycopy)

	for _, m := range []string{"println", "print"} {
		newline := m == "println"
		for _, desc := range []string{
			"()V", "(Ljava/lang/String;)V", "(I)V", "(J)V", "(Z)V",
			"(C)V", "(D)V", "(F)V", "(Ljava/lang/Object;)V",
		} {
			nl := newline
			reg.Register("java/io/PrintStream", m, desc, func(ctx *rt.Context, args []rt.Value) (*rt.Value, error) {
				return nil, printStreamWrite(ctx, args, nl)
			})
		}
	}
}

func printStreamWrite(ctx *rt.Context, args []rt.Value, newline bool) error {
	receiver := args[0]
	if receiver.IsNull() {
		return ctx.ThrowNew("java/lang/NullPointerException", "")
	}
	ps, _ := receiver.Object().Get().Native.(*PrintStream)
	if ps == nil {
		ps = &PrintStream{Writer: os.Stdout}
	}
	if len(args) > 1 {
		text, err := valueToDisplayString(args[1])
		if err != nil {
			return err
		}
		fmt.Fprint(ps.Writer, text)
	}
	if newline {
		fmt.Fprintln(ps.Writer)
	}
	return nil
}

// valueToDisplayString renders a single argument: strings print as their
// text, null as "null", any other object as "<object>", int-tagged values
// (including boolean and char) as decimal integers, and float/double with
// Go's %g. It does not reproduce Java's own formatting of char, boolean,
// float or double values (e.g. 1.0 prints as "1").
func valueToDisplayString(v rt.Value) (string, error) {
	if v.Tag() == rt.TagRef {
		if v.IsNull() {
			return "null", nil
		}
		if text, ok := rt.JavaStringText(v.Object()); ok {
			return text, nil
		}
		return "<object>", nil
	}
	switch v.Tag() {
	case rt.TagInt:
		return fmt.Sprintf("%d", v.Int()), nil
	case rt.TagLong:
		return fmt.Sprintf("%d", v.Long()), nil
	case rt.TagFloat:
		return fmt.Sprintf("%g", v.Float()), nil
	case rt.TagDouble:
		return fmt.Sprintf("%g", v.Double()), nil
	}
	return "", nil
}

// BootstrapPrintStream attaches a host io.Writer to an already-allocated
// java/io/PrintStream instance (internal/boot creates System.out/System.err
// this way once both classes are loaded).
func BootstrapPrintStream(obj rt.ObjectHandle, w io.Writer) {
	obj.Get().Native = &PrintStream{Writer: w}
}

// identityHash hashes the object's heap address (taken via its Go pointer,
// stable for the object's lifetime) rather than any field content, matching
// java/lang/Object.hashCode's default "arbitrary but stable" contract.
func identityHash(v rt.Value) int32 {
	if v.IsNull() {
		return 0
	}
	h := fnv.New32a()
	fmt.Fprintf(h, "%p", v.Object().Get())
	return int32(h.Sum32())
}

func nativeArraycopy(ctx *rt.Context, args []rt.Value) (*rt.Value, error) {
	src, srcPos, dst, dstPos, length := args[0], args[1].Int(), args[2], args[3].Int(), args[4].Int()
	if src.IsNull() || dst.IsNull() {
		return nil, ctx.ThrowNew("java/lang/NullPointerException", "")
	}
	if err := rt.CopyArrayRange(src.Object(), srcPos, dst.Object(), dstPos, length); err != nil {
		return nil, ctx.ThrowNew("java/lang/ArrayIndexOutOfBoundsException", err.Error())
	}
	return nil, nil
}
