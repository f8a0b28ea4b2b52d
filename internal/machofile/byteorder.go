package machofile

import "encoding/binary"

// NativeByteOrder is always little-endian on the two architectures
// (arm64, x86_64) this library targets for in-process Mach-O images.
func NativeByteOrder() binary.ByteOrder {
	return binary.LittleEndian
}
