package classfile

import "github.com/kvothe-dev/jalopy/pkg/istr"

// Access flags shared by classes, fields, and methods. Not every flag
// applies to every kind; the runtime type system (pkg/rt) is responsible
// for only consulting the ones that make sense for the entity at hand.
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSuper        = 0x0020
	AccSynchronized = 0x0020
	AccVolatile     = 0x0040
	AccBridge       = 0x0040
	AccTransient    = 0x0080
	AccVarargs      = 0x0080
	AccNative       = 0x0100
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccStrict       = 0x0800
	AccSynthetic    = 0x1000
	AccAnnotation   = 0x2000
	AccEnum         = 0x4000
)

const Magic = 0xCAFEBABE

// ClassFile is the immutable, in-memory decode of a JVM .class file.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	Pool         Pool
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []FieldInfo
	Methods      []MethodInfo
	Attributes   []AttributeInfo
}

// ThisClassName resolves the this_class constant pool entry.
func (cf *ClassFile) ThisClassName() (istr.Handle, error) {
	return cf.Pool.ClassName(cf.ThisClass)
}

// SuperClassName resolves the super_class entry. super_class == 0 is only
// legal for java/lang/Object; callers must check ThisClassName first if
// they need to allow that case.
func (cf *ClassFile) SuperClassName() (istr.Handle, bool, error) {
	if cf.SuperClass == 0 {
		return istr.Handle{}, false, nil
	}
	name, err := cf.Pool.ClassName(cf.SuperClass)
	return name, true, err
}

// FieldInfo is a single field_info entry.
type FieldInfo struct {
	AccessFlags uint16
	Name        istr.Handle
	Descriptor  istr.Handle
	Attributes  []AttributeInfo
}

// MethodInfo is a single method_info entry. Attributes are retained
// verbatim; the Code attribute's bytes are parsed lazily at first call.
type MethodInfo struct {
	AccessFlags uint16
	Name        istr.Handle
	Descriptor  istr.Handle
	Attributes  []AttributeInfo
	RawCode     []byte // the Code attribute's raw bytes, nil if absent
}

// AttributeInfo is a raw, unparsed attribute: a name and its verbatim bytes.
type AttributeInfo struct {
	Name istr.Handle
	Data []byte
}

// FindAttribute returns the first attribute named name, if present.
func FindAttribute(attrs []AttributeInfo, name string) (*AttributeInfo, bool) {
	for i := range attrs {
		if istr.Text(attrs[i].Name) == name {
			return &attrs[i], true
		}
	}
	return nil, false
}

// ExceptionTableEntry is one row of a Code attribute's exception table.
// CatchType == 0 means "any Throwable" (a catch-all entry).
type ExceptionTableEntry struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

// CodeAttribute is the parsed form of the Code attribute, produced on
// demand by ParseCode (see code.go) the first time a method executes.
type CodeAttribute struct {
	MaxStack   uint16
	MaxLocals  uint16
	Code       []byte
	Exceptions []ExceptionTableEntry
	Attributes []AttributeInfo
}
