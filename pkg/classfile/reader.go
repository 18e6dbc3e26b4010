package classfile

import "io"

// reader is a tiny unbuffered big-endian byte reader. A short read returns
// io.ReadFull's error unchanged; callers wrap it into an EndOfFile
// DecodeError naming the field being read.
type reader struct {
	r io.Reader
}

func newReader(r io.Reader) *reader { return &reader{r: r} }

func (rd *reader) bytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rd.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (rd *reader) u8() (uint8, error) {
	b, err := rd.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (rd *reader) u16() (uint16, error) {
	b, err := rd.bytes(2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

func (rd *reader) u32() (uint32, error) {
	b, err := rd.bytes(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

func (rd *reader) u64() (uint64, error) {
	hi, err := rd.u32()
	if err != nil {
		return 0, err
	}
	lo, err := rd.u32()
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}
