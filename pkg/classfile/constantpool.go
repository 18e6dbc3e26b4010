package classfile

import (
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/kvothe-dev/jalopy/pkg/istr"
)

// Constant pool tags, JVM class-file format.
const (
	TagUtf8              = 1
	TagInteger           = 3
	TagFloat             = 4
	TagLong              = 5
	TagDouble            = 6
	TagClass             = 7
	TagString            = 8
	TagFieldref          = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagInvokeDynamic      = 18
)

// Reference kinds for CONSTANT_MethodHandle, JVM class-file format §4.4.8.
const (
	RefGetField         = 1
	RefGetStatic        = 2
	RefPutField         = 3
	RefPutStatic        = 4
	RefInvokeVirtual    = 5
	RefInvokeStatic     = 6
	RefInvokeSpecial    = 7
	RefNewInvokeSpecial = 8
	RefInvokeInterface  = 9
)

// Entry is the tagged-variant constant pool entry. Index 0 and the slot
// after every Long/Double entry are Placeholder.
type Entry struct {
	Tag int

	// utf8
	Str istr.Handle

	// integer / float / long / double
	Int    int32
	Float  float32
	Long   int64
	Double float64

	// class: NameIndex; string: StringIndex
	NameIndex   uint16
	StringIndex uint16

	// fieldref / methodref / interface-methodref
	ClassIndex       uint16
	NameAndTypeIndex uint16

	// name-and-type: NameIndex (reused above) + DescriptorIndex
	DescriptorIndex uint16

	// method-handle
	RefKind  uint8
	RefIndex uint16

	// invoke-dynamic
	BootstrapIndex uint16
}

// IsPlaceholder reports whether this entry occupies the slot after a
// Long/Double, or the unused slot 0.
func (e *Entry) IsPlaceholder() bool { return e.Tag == 0 }

// Pool is the 1-indexed constant pool; Pool[0] is always a placeholder.
type Pool []Entry

func parsePool(r *reader, count uint16, strings *istr.Table) (Pool, error) {
	pool := make(Pool, count)

	for i := uint16(1); i < count; i++ {
		tag, err := r.u8()
		if err != nil {
			return nil, decErrWrap(ErrEndOfFile, "constant pool tag", err)
		}

		switch tag {
		case TagUtf8:
			length, err := r.u16()
			if err != nil {
				return nil, decErrWrap(ErrEndOfFile, "utf8 length", err)
			}
			raw, err := r.bytes(int(length))
			if err != nil {
				return nil, decErrWrap(ErrEndOfFile, "utf8 bytes", err)
			}
			if !utf8.Valid(raw) {
				return nil, decErr(ErrInvalidString, "malformed utf8 in constant pool")
			}
			pool[i] = Entry{Tag: TagUtf8, Str: strings.Intern(string(raw))}

		case TagInteger:
			v, err := r.u32()
			if err != nil {
				return nil, decErrWrap(ErrEndOfFile, "integer", err)
			}
			pool[i] = Entry{Tag: TagInteger, Int: int32(v)}

		case TagFloat:
			v, err := r.u32()
			if err != nil {
				return nil, decErrWrap(ErrEndOfFile, "float", err)
			}
			pool[i] = Entry{Tag: TagFloat, Float: math.Float32frombits(v)}

		case TagLong:
			v, err := r.u64()
			if err != nil {
				return nil, decErrWrap(ErrEndOfFile, "long", err)
			}
			pool[i] = Entry{Tag: TagLong, Long: int64(v)}
			i++ // occupies two indices; the next slot stays a Placeholder

		case TagDouble:
			v, err := r.u64()
			if err != nil {
				return nil, decErrWrap(ErrEndOfFile, "double", err)
			}
			pool[i] = Entry{Tag: TagDouble, Double: math.Float64frombits(v)}
			i++ // ditto

		case TagClass:
			idx, err := r.u16()
			if err != nil {
				return nil, decErrWrap(ErrEndOfFile, "class name_index", err)
			}
			pool[i] = Entry{Tag: TagClass, NameIndex: idx}

		case TagString:
			idx, err := r.u16()
			if err != nil {
				return nil, decErrWrap(ErrEndOfFile, "string_index", err)
			}
			pool[i] = Entry{Tag: TagString, StringIndex: idx}

		case TagFieldref, TagMethodref, TagInterfaceMethodref:
			classIdx, err := r.u16()
			if err != nil {
				return nil, decErrWrap(ErrEndOfFile, "ref class_index", err)
			}
			natIdx, err := r.u16()
			if err != nil {
				return nil, decErrWrap(ErrEndOfFile, "ref name_and_type_index", err)
			}
			pool[i] = Entry{Tag: int(tag), ClassIndex: classIdx, NameAndTypeIndex: natIdx}

		case TagNameAndType:
			nameIdx, err := r.u16()
			if err != nil {
				return nil, decErrWrap(ErrEndOfFile, "name_and_type name_index", err)
			}
			descIdx, err := r.u16()
			if err != nil {
				return nil, decErrWrap(ErrEndOfFile, "name_and_type descriptor_index", err)
			}
			pool[i] = Entry{Tag: TagNameAndType, NameIndex: nameIdx, DescriptorIndex: descIdx}

		case TagMethodHandle:
			kind, err := r.u8()
			if err != nil {
				return nil, decErrWrap(ErrEndOfFile, "method_handle reference_kind", err)
			}
			refIdx, err := r.u16()
			if err != nil {
				return nil, decErrWrap(ErrEndOfFile, "method_handle reference_index", err)
			}
			pool[i] = Entry{Tag: TagMethodHandle, RefKind: kind, RefIndex: refIdx}

		case TagMethodType:
			descIdx, err := r.u16()
			if err != nil {
				return nil, decErrWrap(ErrEndOfFile, "method_type descriptor_index", err)
			}
			pool[i] = Entry{Tag: TagMethodType, DescriptorIndex: descIdx}

		case TagInvokeDynamic:
			bsIdx, err := r.u16()
			if err != nil {
				return nil, decErrWrap(ErrEndOfFile, "invoke_dynamic bootstrap_method_attr_index", err)
			}
			natIdx, err := r.u16()
			if err != nil {
				return nil, decErrWrap(ErrEndOfFile, "invoke_dynamic name_and_type_index", err)
			}
			pool[i] = Entry{Tag: TagInvokeDynamic, BootstrapIndex: bsIdx, NameAndTypeIndex: natIdx}

		default:
			return nil, decErr(ErrConstantPoolInvalidEntry, "tag "+strconv.Itoa(int(tag)))
		}
	}

	return pool, nil
}

// validate walks every cross-reference, enforcing that each targets the
// correct variant.
func (p Pool) validate() error {
	at := func(idx uint16) (*Entry, error) {
		if int(idx) >= len(p) || p[idx].IsPlaceholder() {
			return nil, decErr(ErrConstantPoolTypeMismatch, "index out of range or placeholder")
		}
		return &p[idx], nil
	}
	requireTag := func(idx uint16, tag int, what string) error {
		e, err := at(idx)
		if err != nil {
			return err
		}
		if e.Tag != tag {
			return decErr(ErrConstantPoolTypeMismatch, what)
		}
		return nil
	}

	for i := 1; i < len(p); i++ {
		e := &p[i]
		switch e.Tag {
		case 0, TagUtf8, TagInteger, TagFloat, TagLong, TagDouble:
			// no cross-references
		case TagClass:
			if err := requireTag(e.NameIndex, TagUtf8, "class.name_index must be Utf8"); err != nil {
				return err
			}
		case TagString:
			if err := requireTag(e.StringIndex, TagUtf8, "string.string_index must be Utf8"); err != nil {
				return err
			}
		case TagFieldref, TagMethodref, TagInterfaceMethodref:
			if err := requireTag(e.ClassIndex, TagClass, "ref.class_index must be Class"); err != nil {
				return err
			}
			if err := requireTag(e.NameAndTypeIndex, TagNameAndType, "ref.name_and_type_index must be NameAndType"); err != nil {
				return err
			}
		case TagNameAndType:
			if err := requireTag(e.NameIndex, TagUtf8, "name_and_type.name_index must be Utf8"); err != nil {
				return err
			}
			if err := requireTag(e.DescriptorIndex, TagUtf8, "name_and_type.descriptor_index must be Utf8"); err != nil {
				return err
			}
		case TagMethodHandle:
			if err := validateMethodHandle(p, e); err != nil {
				return err
			}
		case TagMethodType:
			if err := requireTag(e.DescriptorIndex, TagUtf8, "method_type.descriptor_index must be Utf8"); err != nil {
				return err
			}
		case TagInvokeDynamic:
			if err := requireTag(e.NameAndTypeIndex, TagNameAndType, "invoke_dynamic.name_and_type_index must be NameAndType"); err != nil {
				return err
			}
		default:
			return decErr(ErrConstantPoolInvalidEntry, "unreachable: unknown tag survived parse")
		}
	}
	return nil
}

// validateMethodHandle enforces the reference_kind/name rules: most kinds
// reject <init>/<clinit>; NewInvokeSpecial requires exactly <init>.
func validateMethodHandle(p Pool, e *Entry) error {
	var refTag int
	switch e.RefKind {
	case RefGetField, RefGetStatic, RefPutField, RefPutStatic:
		refTag = TagFieldref
	case RefInvokeVirtual, RefNewInvokeSpecial:
		refTag = TagMethodref
	case RefInvokeStatic, RefInvokeSpecial:
		refTag = TagMethodref // class files <= 52 only allow Methodref here
	case RefInvokeInterface:
		refTag = TagInterfaceMethodref
	default:
		return decErr(ErrConstantPoolVerifyError, "unknown method_handle reference_kind")
	}

	if int(e.RefIndex) >= len(p) || p[e.RefIndex].IsPlaceholder() {
		return decErr(ErrConstantPoolTypeMismatch, "method_handle.reference_index out of range")
	}
	ref := &p[e.RefIndex]
	if ref.Tag != refTag && !(refTag == TagMethodref && ref.Tag == TagInterfaceMethodref) {
		return decErr(ErrConstantPoolTypeMismatch, "method_handle.reference_index wrong variant")
	}
	if ref.Tag == TagFieldref || ref.Tag == TagMethodref || ref.Tag == TagInterfaceMethodref {
		if int(ref.NameAndTypeIndex) >= len(p) || p[ref.NameAndTypeIndex].IsPlaceholder() {
			return decErr(ErrConstantPoolTypeMismatch, "method_handle target name_and_type missing")
		}
		nat := &p[ref.NameAndTypeIndex]
		if int(nat.NameIndex) >= len(p) || p[nat.NameIndex].IsPlaceholder() || p[nat.NameIndex].Tag != TagUtf8 {
			return decErr(ErrConstantPoolTypeMismatch, "method_handle target name missing")
		}
		name := istr.Text(p[nat.NameIndex].Str)
		switch e.RefKind {
		case RefNewInvokeSpecial:
			if name != "<init>" {
				return decErr(ErrConstantPoolVerifyError, "NewInvokeSpecial must name <init>")
			}
		default:
			if name == "<init>" || name == "<clinit>" {
				return decErr(ErrConstantPoolVerifyError, "method_handle may not name <init>/<clinit>")
			}
		}
	}
	return nil
}

// Utf8 resolves a Utf8 entry at idx.
func (p Pool) Utf8(idx uint16) (istr.Handle, error) {
	if int(idx) >= len(p) || p[idx].IsPlaceholder() || p[idx].Tag != TagUtf8 {
		return istr.Handle{}, decErr(ErrConstantPoolTypeMismatch, "expected Utf8 entry")
	}
	return p[idx].Str, nil
}

// ClassName resolves the name of a CONSTANT_Class entry at idx.
func (p Pool) ClassName(idx uint16) (istr.Handle, error) {
	if int(idx) >= len(p) || p[idx].IsPlaceholder() || p[idx].Tag != TagClass {
		return istr.Handle{}, decErr(ErrConstantPoolTypeMismatch, "expected Class entry")
	}
	return p.Utf8(p[idx].NameIndex)
}

