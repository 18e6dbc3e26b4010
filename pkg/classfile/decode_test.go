package classfile

import (
	"bytes"
	"testing"

	"github.com/kvothe-dev/jalopy/pkg/gc"
	"github.com/kvothe-dev/jalopy/pkg/istr"
)

// classBuilder assembles a minimal, valid .class byte stream by hand, the
// way a decoder test must when there is no real compiled .class fixture
// available — every multi-byte field is written big-endian, as the class
// file format requires.
type classBuilder struct {
	buf bytes.Buffer
}

func (b *classBuilder) u8(v uint8)   { b.buf.WriteByte(v) }
func (b *classBuilder) u16(v uint16) { b.buf.Write([]byte{byte(v >> 8), byte(v)}) }
func (b *classBuilder) u32(v uint32) {
	b.buf.Write([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}
func (b *classBuilder) raw(p []byte) { b.buf.Write(p) }

func (b *classBuilder) utf8(s string) {
	b.u8(TagUtf8)
	b.u16(uint16(len(s)))
	b.buf.WriteString(s)
}

func (b *classBuilder) class(nameIdx uint16) {
	b.u8(TagClass)
	b.u16(nameIdx)
}

// buildMinimalClass builds: class TestClass extends java/lang/Object with a
// single <init>()V method carrying a trivial Code attribute.
func buildMinimalClass() []byte {
	var b classBuilder
	b.u32(Magic)
	b.u16(0)  // minor
	b.u16(52) // major (Java 8)

	// constant_pool_count = 8 (7 real entries, 1-indexed)
	b.u16(8)
	b.utf8("TestClass")          // #1
	b.class(1)                   // #2 Class -> #1
	b.utf8("java/lang/Object")   // #3
	b.class(3)                   // #4 Class -> #3
	b.utf8("<init>")             // #5
	b.utf8("()V")                // #6
	b.utf8("Code")                // #7

	b.u16(AccSuper)  // access_flags
	b.u16(2)         // this_class
	b.u16(4)         // super_class
	b.u16(0)         // interfaces_count

	b.u16(0) // fields_count

	b.u16(1)          // methods_count
	b.u16(0)          // access_flags
	b.u16(5)          // name_index -> <init>
	b.u16(6)          // descriptor_index -> ()V
	b.u16(1)          // attributes_count
	b.u16(7)          // attribute_name_index -> Code

	code := []byte{0x2a, 0xb1} // aload_0, return
	var codeAttr classBuilder
	codeAttr.u16(1) // max_stack
	codeAttr.u16(1) // max_locals
	codeAttr.u32(uint32(len(code)))
	codeAttr.raw(code)
	codeAttr.u16(0) // exception_table_length
	codeAttr.u16(0) // attributes_count

	b.u32(uint32(codeAttr.buf.Len()))
	b.raw(codeAttr.buf.Bytes())

	b.u16(0) // classfile attributes_count

	return b.buf.Bytes()
}

func TestDecodeMinimalClass(t *testing.T) {
	strings := istr.NewTable(gc.New(nil))
	cf, err := Decode(bytes.NewReader(buildMinimalClass()), strings)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cf.MajorVersion != 52 {
		t.Errorf("major version: got %d, want 52", cf.MajorVersion)
	}
	name, err := cf.ThisClassName()
	if err != nil {
		t.Fatalf("ThisClassName: %v", err)
	}
	if istr.Text(name) != "TestClass" {
		t.Errorf("this class: got %q", istr.Text(name))
	}
	superName, hasSuper, err := cf.SuperClassName()
	if err != nil || !hasSuper {
		t.Fatalf("SuperClassName: %v hasSuper=%v", err, hasSuper)
	}
	if istr.Text(superName) != "java/lang/Object" {
		t.Errorf("super class: got %q", istr.Text(superName))
	}
	if len(cf.Methods) != 1 {
		t.Fatalf("methods: got %d, want 1", len(cf.Methods))
	}
	m := cf.Methods[0]
	if istr.Text(m.Name) != "<init>" || istr.Text(m.Descriptor) != "()V" {
		t.Errorf("method: got %s%s", istr.Text(m.Name), istr.Text(m.Descriptor))
	}
	if m.RawCode == nil {
		t.Fatal("expected Code attribute bytes")
	}
	code, err := ParseCode(m.RawCode, cf.Pool)
	if err != nil {
		t.Fatalf("ParseCode: %v", err)
	}
	if code.MaxStack != 1 || code.MaxLocals != 1 {
		t.Errorf("code: max_stack=%d max_locals=%d", code.MaxStack, code.MaxLocals)
	}
	if !bytes.Equal(code.Code, []byte{0x2a, 0xb1}) {
		t.Errorf("code bytes: got %x", code.Code)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	strings := istr.NewTable(gc.New(nil))
	_, err := Decode(bytes.NewReader([]byte{0, 0, 0, 0}), strings)
	if err == nil {
		t.Fatal("expected error for bad magic")
	}
	var de *DecodeError
	if !asDecodeError(err, &de) || de.Kind != ErrMagicMismatch {
		t.Errorf("expected MagicMismatch, got %v", err)
	}
}

func asDecodeError(err error, target **DecodeError) bool {
	de, ok := err.(*DecodeError)
	if !ok {
		return false
	}
	*target = de
	return true
}
