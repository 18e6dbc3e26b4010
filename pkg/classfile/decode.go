package classfile

import (
	"io"

	"github.com/kvothe-dev/jalopy/pkg/istr"
)

// Decode parses a .class file from r. strings is the interning table
// shared with the rest of the runtime (every Utf8 entry becomes an IStr
// owned by the same GC heap as everything else).
func Decode(r io.Reader, strings *istr.Table) (*ClassFile, error) {
	rd := newReader(r)
	cf := &ClassFile{}

	magic, err := rd.u32()
	if err != nil {
		return nil, decErrWrap(ErrEndOfFile, "magic", err)
	}
	if magic != Magic {
		return nil, decErr(ErrMagicMismatch, "bad magic number")
	}

	if cf.MinorVersion, err = rd.u16(); err != nil {
		return nil, decErrWrap(ErrEndOfFile, "minor_version", err)
	}
	if cf.MajorVersion, err = rd.u16(); err != nil {
		return nil, decErrWrap(ErrEndOfFile, "major_version", err)
	}

	cpCount, err := rd.u16()
	if err != nil {
		return nil, decErrWrap(ErrEndOfFile, "constant_pool_count", err)
	}
	pool, err := parsePool(rd, cpCount, strings)
	if err != nil {
		return nil, err
	}
	if err := pool.validate(); err != nil {
		return nil, err
	}
	cf.Pool = pool

	if cf.AccessFlags, err = rd.u16(); err != nil {
		return nil, decErrWrap(ErrEndOfFile, "access_flags", err)
	}
	if cf.ThisClass, err = rd.u16(); err != nil {
		return nil, decErrWrap(ErrEndOfFile, "this_class", err)
	}
	if cf.SuperClass, err = rd.u16(); err != nil {
		return nil, decErrWrap(ErrEndOfFile, "super_class", err)
	}
	if cf.SuperClass == 0 {
		thisName, err := pool.ClassName(cf.ThisClass)
		if err != nil {
			return nil, err
		}
		if istr.Text(thisName) != "java/lang/Object" {
			return nil, decErr(ErrExpectedNonZero, "super_class may only be 0 for java/lang/Object")
		}
	}

	ifaceCount, err := rd.u16()
	if err != nil {
		return nil, decErrWrap(ErrEndOfFile, "interfaces_count", err)
	}
	cf.Interfaces = make([]uint16, ifaceCount)
	for i := range cf.Interfaces {
		if cf.Interfaces[i], err = rd.u16(); err != nil {
			return nil, decErrWrap(ErrEndOfFile, "interfaces", err)
		}
	}

	fieldCount, err := rd.u16()
	if err != nil {
		return nil, decErrWrap(ErrEndOfFile, "fields_count", err)
	}
	cf.Fields = make([]FieldInfo, fieldCount)
	for i := range cf.Fields {
		fi, err := decodeFieldOrMethod(rd, pool)
		if err != nil {
			return nil, err
		}
		cf.Fields[i] = FieldInfo{
			AccessFlags: fi.accessFlags,
			Name:        fi.name,
			Descriptor:  fi.descriptor,
			Attributes:  fi.attributes,
		}
	}

	methodCount, err := rd.u16()
	if err != nil {
		return nil, decErrWrap(ErrEndOfFile, "methods_count", err)
	}
	cf.Methods = make([]MethodInfo, methodCount)
	for i := range cf.Methods {
		mi, err := decodeFieldOrMethod(rd, pool)
		if err != nil {
			return nil, err
		}
		var rawCode []byte
		if code, ok := FindAttribute(mi.attributes, "Code"); ok {
			rawCode = code.Data
		}
		cf.Methods[i] = MethodInfo{
			AccessFlags: mi.accessFlags,
			Name:        mi.name,
			Descriptor:  mi.descriptor,
			Attributes:  mi.attributes,
			RawCode:     rawCode,
		}
	}

	attrCount, err := rd.u16()
	if err != nil {
		return nil, decErrWrap(ErrEndOfFile, "classfile attributes_count", err)
	}
	cf.Attributes, err = decodeAttributes(rd, pool, attrCount)
	if err != nil {
		return nil, err
	}

	return cf, nil
}

type fieldOrMethod struct {
	accessFlags uint16
	name        istr.Handle
	descriptor  istr.Handle
	attributes  []AttributeInfo
}

func decodeFieldOrMethod(rd *reader, pool Pool) (fieldOrMethod, error) {
	var out fieldOrMethod
	flags, err := rd.u16()
	if err != nil {
		return out, decErrWrap(ErrEndOfFile, "access_flags", err)
	}
	nameIdx, err := rd.u16()
	if err != nil {
		return out, decErrWrap(ErrEndOfFile, "name_index", err)
	}
	name, err := pool.Utf8(nameIdx)
	if err != nil {
		return out, err
	}
	descIdx, err := rd.u16()
	if err != nil {
		return out, decErrWrap(ErrEndOfFile, "descriptor_index", err)
	}
	desc, err := pool.Utf8(descIdx)
	if err != nil {
		return out, err
	}
	attrCount, err := rd.u16()
	if err != nil {
		return out, decErrWrap(ErrEndOfFile, "attributes_count", err)
	}
	attrs, err := decodeAttributes(rd, pool, attrCount)
	if err != nil {
		return out, err
	}
	out.accessFlags = flags
	out.name = name
	out.descriptor = desc
	out.attributes = attrs
	return out, nil
}

func decodeAttributes(rd *reader, pool Pool, count uint16) ([]AttributeInfo, error) {
	attrs := make([]AttributeInfo, count)
	for i := range attrs {
		nameIdx, err := rd.u16()
		if err != nil {
			return nil, decErrWrap(ErrEndOfFile, "attribute_name_index", err)
		}
		name, err := pool.Utf8(nameIdx)
		if err != nil {
			return nil, err
		}
		length, err := rd.u32()
		if err != nil {
			return nil, decErrWrap(ErrEndOfFile, "attribute_length", err)
		}
		data, err := rd.bytes(int(length))
		if err != nil {
			return nil, decErrWrap(ErrEndOfFile, "attribute bytes", err)
		}
		attrs[i] = AttributeInfo{Name: name, Data: data}
	}
	return attrs, nil
}
