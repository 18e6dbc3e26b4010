package rt

import (
	"fmt"

	"github.com/kvothe-dev/jalopy/pkg/istr"
)

// CopyArrayRange implements java/lang/System.arraycopy's semantics for two
// arrays of identical ArrayKind: a bounds-checked bulk copy, tolerant of
// overlapping src/dst ranges on the same array.
func CopyArrayRange(src ObjectHandle, srcPos int32, dst ObjectHandle, dstPos int32, length int32) error {
	if !src.Valid() || !dst.Valid() || src.Get().Array == nil || dst.Get().Array == nil {
		return fmt.Errorf("rt: arraycopy on non-array argument")
	}
	s, d := src.Get().Array, dst.Get().Array
	if s.Kind != d.Kind {
		return fmt.Errorf("rt: arraycopy element kind mismatch")
	}
	if srcPos < 0 || dstPos < 0 || length < 0 ||
		int(srcPos+length) > s.Len() || int(dstPos+length) > d.Len() {
		return fmt.Errorf("rt: arraycopy range out of bounds")
	}

	n := int(length)
	sp, dp := int(srcPos), int(dstPos)
	switch s.Kind {
	case ArrayByte:
		copy(d.Bytes[dp:dp+n], s.Bytes[sp:sp+n])
	case ArrayChar:
		copy(d.Chars[dp:dp+n], s.Chars[sp:sp+n])
	case ArrayDouble:
		copy(d.Doubles[dp:dp+n], s.Doubles[sp:sp+n])
	case ArrayFloat:
		copy(d.Floats[dp:dp+n], s.Floats[sp:sp+n])
	case ArrayInt:
		copy(d.Ints[dp:dp+n], s.Ints[sp:sp+n])
	case ArrayLong:
		copy(d.Longs[dp:dp+n], s.Longs[sp:sp+n])
	case ArrayShort:
		copy(d.Shorts[dp:dp+n], s.Shorts[sp:sp+n])
	case ArrayBoolean:
		copy(d.Booleans[dp:dp+n], s.Booleans[sp:sp+n])
	case ArrayObject:
		copy(d.Objects[dp:dp+n], s.Objects[sp:sp+n])
	}
	return nil
}

// JavaStringText returns the text backing a java/lang/String instance and
// true, or ("", false) if obj isn't a String.
func JavaStringText(obj ObjectHandle) (string, bool) {
	o := obj.Get()
	if !o.HasStringValue {
		return "", false
	}
	return istr.Text(o.StringValue), true
}
