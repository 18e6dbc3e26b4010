package classfile

import (
	"strings"
)

// DescKind tags the variant of a symbolic Descriptor.
type DescKind int

const (
	DescBoolean DescKind = iota
	DescByte
	DescChar
	DescShort
	DescInt
	DescLong
	DescFloat
	DescDouble
	DescVoid
	DescClass
	DescArray
)

// Descriptor is the symbolic (name-based) JVM type descriptor: one of the
// eight primitives, Void (method-return only), Class(name), or Array(elem).
type Descriptor struct {
	Kind  DescKind
	Class string      // valid iff Kind == DescClass
	Elem  *Descriptor // valid iff Kind == DescArray
}

func (d Descriptor) IsWide() bool { return d.Kind == DescLong || d.Kind == DescDouble }

// String renders d back to JVM descriptor syntax. Parse+String round-trips
// on any valid descriptor.
func (d Descriptor) String() string {
	switch d.Kind {
	case DescBoolean:
		return "Z"
	case DescByte:
		return "B"
	case DescChar:
		return "C"
	case DescShort:
		return "S"
	case DescInt:
		return "I"
	case DescLong:
		return "J"
	case DescFloat:
		return "F"
	case DescDouble:
		return "D"
	case DescVoid:
		return "V"
	case DescClass:
		return "L" + d.Class + ";"
	case DescArray:
		return "[" + d.Elem.String()
	}
	return "?"
}

// ParseDescriptor parses a single field (or element, or return) type
// descriptor from s, starting at s[0]. voidOK permits 'V' (only legal as a
// method's return type).
func ParseDescriptor(s string, voidOK bool) (Descriptor, int, error) {
	if len(s) == 0 {
		return Descriptor{}, 0, decErr("DescriptorMalformed", "empty descriptor")
	}
	switch s[0] {
	case 'Z':
		return Descriptor{Kind: DescBoolean}, 1, nil
	case 'B':
		return Descriptor{Kind: DescByte}, 1, nil
	case 'C':
		return Descriptor{Kind: DescChar}, 1, nil
	case 'S':
		return Descriptor{Kind: DescShort}, 1, nil
	case 'I':
		return Descriptor{Kind: DescInt}, 1, nil
	case 'J':
		return Descriptor{Kind: DescLong}, 1, nil
	case 'F':
		return Descriptor{Kind: DescFloat}, 1, nil
	case 'D':
		return Descriptor{Kind: DescDouble}, 1, nil
	case 'V':
		if !voidOK {
			return Descriptor{}, 0, decErr("DescriptorMalformed", "void only valid as return type")
		}
		return Descriptor{Kind: DescVoid}, 1, nil
	case 'L':
		end := strings.IndexByte(s, ';')
		if end < 0 {
			return Descriptor{}, 0, decErr("DescriptorMalformed", "unterminated class descriptor")
		}
		return Descriptor{Kind: DescClass, Class: s[1:end]}, end + 1, nil
	case '[':
		elem, n, err := ParseDescriptor(s[1:], false)
		if err != nil {
			return Descriptor{}, 0, err
		}
		e := elem
		return Descriptor{Kind: DescArray, Elem: &e}, n + 1, nil
	default:
		return Descriptor{}, 0, decErr("DescriptorMalformed", "unrecognized descriptor byte")
	}
}

// MethodDescriptor is (args, return), parsed from "(arg1arg2...)ret".
type MethodDescriptor struct {
	Args   []Descriptor
	Return Descriptor
}

// ParseMethodDescriptor parses a full method descriptor string.
func ParseMethodDescriptor(s string) (MethodDescriptor, error) {
	if len(s) == 0 || s[0] != '(' {
		return MethodDescriptor{}, decErr("DescriptorMalformed", "method descriptor must start with '('")
	}
	s = s[1:]
	var args []Descriptor
	for len(s) > 0 && s[0] != ')' {
		d, n, err := ParseDescriptor(s, false)
		if err != nil {
			return MethodDescriptor{}, err
		}
		args = append(args, d)
		s = s[n:]
	}
	if len(s) == 0 {
		return MethodDescriptor{}, decErr("DescriptorMalformed", "unterminated method descriptor")
	}
	s = s[1:] // skip ')'
	ret, n, err := ParseDescriptor(s, true)
	if err != nil {
		return MethodDescriptor{}, err
	}
	if n != len(s) {
		return MethodDescriptor{}, decErr("DescriptorMalformed", "trailing bytes after return type")
	}
	return MethodDescriptor{Args: args, Return: ret}, nil
}

// String renders m back to "(args)ret" form.
func (m MethodDescriptor) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for _, a := range m.Args {
		b.WriteString(a.String())
	}
	b.WriteByte(')')
	b.WriteString(m.Return.String())
	return b.String()
}

// Equal reports structural equality, used for hash-consing in pkg/rt.
func (m MethodDescriptor) Equal(other MethodDescriptor) bool {
	return m.String() == other.String()
}
