package classfile

import "bytes"

// ParseCode parses the Code attribute's bytes on demand, at first method
// execution rather than eagerly during Decode, so MethodInfo keeps only the
// raw bytes until a Method (pkg/rt) is first invoked.
func ParseCode(raw []byte, pool Pool) (*CodeAttribute, error) {
	rd := newReader(bytes.NewReader(raw))
	var ca CodeAttribute
	var err error

	if ca.MaxStack, err = rd.u16(); err != nil {
		return nil, decErrWrap(ErrEndOfFile, "code.max_stack", err)
	}
	if ca.MaxLocals, err = rd.u16(); err != nil {
		return nil, decErrWrap(ErrEndOfFile, "code.max_locals", err)
	}
	codeLen, err := rd.u32()
	if err != nil {
		return nil, decErrWrap(ErrEndOfFile, "code.code_length", err)
	}
	if ca.Code, err = rd.bytes(int(codeLen)); err != nil {
		return nil, decErrWrap(ErrEndOfFile, "code.code", err)
	}

	excCount, err := rd.u16()
	if err != nil {
		return nil, decErrWrap(ErrEndOfFile, "code.exception_table_length", err)
	}
	ca.Exceptions = make([]ExceptionTableEntry, excCount)
	for i := range ca.Exceptions {
		e := &ca.Exceptions[i]
		if e.StartPC, err = rd.u16(); err != nil {
			return nil, decErrWrap(ErrEndOfFile, "exception.start_pc", err)
		}
		if e.EndPC, err = rd.u16(); err != nil {
			return nil, decErrWrap(ErrEndOfFile, "exception.end_pc", err)
		}
		if e.HandlerPC, err = rd.u16(); err != nil {
			return nil, decErrWrap(ErrEndOfFile, "exception.handler_pc", err)
		}
		if e.CatchType, err = rd.u16(); err != nil {
			return nil, decErrWrap(ErrEndOfFile, "exception.catch_type", err)
		}
	}

	attrCount, err := rd.u16()
	if err != nil {
		return nil, decErrWrap(ErrEndOfFile, "code.attributes_count", err)
	}
	if ca.Attributes, err = decodeAttributes(rd, pool, attrCount); err != nil {
		return nil, err
	}

	return &ca, nil
}
