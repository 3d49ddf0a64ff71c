package ptcow

import (
	"encoding/binary"
	"math"
)

// reader is a cursor over an immutable byte buffer. All multi-byte values are
// little endian. Every method returns a *DecodeError wrapping ErrTruncated
// when the buffer runs out; tag/field context is filled in by the caller via
// decodeErr.
type reader struct {
	data []byte
	pos  int
	tag  string
}

func (r *reader) truncated(field string) error {
	return &DecodeError{Offset: r.pos, Tag: r.tag, Field: field, Err: ErrTruncated}
}

func (r *reader) malformed(field string) error {
	return &DecodeError{Offset: r.pos, Tag: r.tag, Field: field, Err: ErrMalformed}
}

func (r *reader) bytes(n int, field string) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, r.truncated(field)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) u8(field string) (uint8, error) {
	b, err := r.bytes(1, field)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) i8(field string) (int8, error) {
	v, err := r.u8(field)
	return int8(v), err
}

func (r *reader) u16(field string) (uint16, error) {
	b, err := r.bytes(2, field)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) u32(field string) (uint32, error) {
	b, err := r.bytes(4, field)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) i32(field string) (int32, error) {
	v, err := r.u32(field)
	return int32(v), err
}

func (r *reader) f32(field string) (float32, error) {
	v, err := r.u32(field)
	return math.Float32frombits(v), err
}

// varint reads the PxTone variable-width integer: up to 5 bytes, 7 payload
// bits each, the top bit marking continuation. The payload bits are packed
// little endian.
func (r *reader) varint(field string) (uint32, error) {
	var a [5]byte
	n := 0
	for n < 5 {
		b, err := r.u8(field)
		if err != nil {
			return 0, err
		}
		a[n] = b
		n++
		if b&0x80 == 0 {
			break
		}
	}
	return varintToInt(a, n), nil
}

func varintToInt(a [5]byte, n int) uint32 {
	var b [4]byte
	switch n {
	case 1:
		b[0] = a[0] & 0x7f
	case 2:
		b[0] = a[0]&0x7f | a[1]<<7
		b[1] = (a[1] & 0x7f) >> 1
	case 3:
		b[0] = a[0]&0x7f | a[1]<<7
		b[1] = (a[1]&0x7f)>>1 | a[2]<<6
		b[2] = (a[2] & 0x7f) >> 2
	case 4:
		b[0] = a[0]&0x7f | a[1]<<7
		b[1] = (a[1]&0x7f)>>1 | a[2]<<6
		b[2] = (a[2]&0x7f)>>2 | a[3]<<5
		b[3] = (a[3] & 0x7f) >> 3
	case 5:
		b[0] = a[0]&0x7f | a[1]<<7
		b[1] = (a[1]&0x7f)>>1 | a[2]<<6
		b[2] = (a[2]&0x7f)>>2 | a[3]<<5
		b[3] = (a[3]&0x7f)>>3 | a[4]<<4
	}
	return binary.LittleEndian.Uint32(b[:])
}

func appendVarint(out []byte, num uint32) []byte {
	var a [4]byte
	binary.LittleEndian.PutUint32(a[:], num)
	switch {
	case num < 0x80:
		return append(out, a[0])
	case num < 0x4000:
		return append(out,
			a[0]&0x7f|0x80,
			a[0]>>7|a[1]<<1&0x7f)
	case num < 0x20_0000:
		return append(out,
			a[0]&0x7f|0x80,
			a[0]>>7|a[1]<<1&0x7f|0x80,
			a[1]>>6|a[2]<<2&0x7f)
	case num < 0x1000_0000:
		return append(out,
			a[0]&0x7f|0x80,
			a[0]>>7|a[1]<<1&0x7f|0x80,
			a[1]>>6|a[2]<<2&0x7f|0x80,
			a[2]>>5|a[3]<<3&0x7f)
	default:
		return append(out,
			a[0]&0x7f|0x80,
			a[0]>>7|a[1]<<1&0x7f|0x80,
			a[1]>>6|a[2]<<2&0x7f|0x80,
			a[2]>>5|a[3]<<3&0x7f|0x80,
			a[3]>>4)
	}
}

func appendU16(out []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(out, v)
}

func appendU32(out []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(out, v)
}

func appendF32(out []byte, v float32) []byte {
	return binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
}
