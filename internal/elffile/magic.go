package elffile

// LooksLike reports whether data begins with the ELF magic number,
// used by binaryfile.Open to dispatch without fully parsing the image
// first.
func LooksLike(data []byte) bool {
	return len(data) >= 4 && data[0] == 0x7f && data[1] == 'E' && data[2] == 'L' && data[3] == 'F'
}
