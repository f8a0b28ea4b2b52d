// Package leb128 decodes the variable-length integer encodings used
// throughout DWARF: unsigned and signed LEB128.
package leb128

// Uint64 decodes an unsigned LEB128 value starting at offset in buf.
// It returns the decoded value and the offset of the first byte past
// the encoding.
func Uint64(buf []byte, offset int) (uint64, int) {
	var result uint64
	var shift uint
	for {
		b := buf[offset]
		offset++
		result |= uint64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	return result, offset
}

// Int64 decodes a signed LEB128 value starting at offset in buf,
// sign-extending from bit 6 of the final byte when the encoded value
// did not fill a full machine word.
func Int64(buf []byte, offset int) (int64, int) {
	var result int64
	var shift uint
	var b byte
	for {
		b = buf[offset]
		offset++
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, offset
}

// SkipUint64 advances offset past one ULEB128 value without decoding it.
func SkipUint64(buf []byte, offset int) int {
	_, next := Uint64(buf, offset)
	return next
}

// SkipInt64 advances offset past one SLEB128 value without decoding it.
func SkipInt64(buf []byte, offset int) int {
	_, next := Int64(buf, offset)
	return next
}
