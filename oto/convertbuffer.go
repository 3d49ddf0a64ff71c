package oto

// int16BufferToLE converts an []int16 buffer to little-endian bytes,
// appending to dst to avoid reallocating on every call.
func int16BufferToLE(buff []int16, dst []byte) []byte {
	for _, v := range buff {
		dst = append(dst, byte(uint16(v)), byte(uint16(v)>>8))
	}
	return dst
}
