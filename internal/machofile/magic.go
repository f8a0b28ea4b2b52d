package machofile

import "encoding/binary"

// LooksLike reports whether data begins with a thin or fat Mach-O
// magic number, used by binaryfile.Open to dispatch without fully
// parsing the image first.
func LooksLike(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	switch binary.BigEndian.Uint32(data[:4]) {
	case magic32, cigam32, magic64, cigam64, fatMagic, fatCigam, fatMagic64, fatCigam64:
		return true
	default:
		return false
	}
}
