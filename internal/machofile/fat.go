package machofile

import (
	"encoding/binary"
	"runtime"
)

// currentCPUTypeFallback maps the running Go architecture to a Mach-O
// cpu_type_t, used on every platform that has no sysctl hw.cputype to
// ask instead (see cpu_darwin.go/cpu_other.go).
func currentCPUTypeFallback() uint32 {
	switch runtime.GOARCH {
	case "arm64":
		return cpuTypeARM64
	case "amd64":
		return cpuTypeX8664
	default:
		return 0
	}
}

// SelectSlice picks the fat-archive slice matching the running
// process's CPU type, mirroring the best-slice algorithm the OS
// otherwise provides (macho_best_slice/NXFindBestFatArch). When no
// platform helper is available this library matches on exact CPU
// type only, which is sufficient for the two architectures it
// targets.
//
// Returns (sliceOffset, sliceSize, ok, isFat). isFat is false when
// data is not a fat archive at all (the caller should then try to
// parse it as a thin image directly); ok is false in that case too,
// and when no slice matches the running CPU - per spec.md §8, that
// yields no image at all.
func SelectSlice(data []byte) (offset, size int64, ok bool, isFat bool) {
	if len(data) < 8 {
		return 0, 0, false, false
	}
	magic := binary.BigEndian.Uint32(data[:4])

	var order binary.ByteOrder = binary.BigEndian
	is64 := false
	switch magic {
	case fatMagic:
	case fatCigam:
		order = binary.LittleEndian
	case fatMagic64:
		is64 = true
	case fatCigam64:
		is64 = true
		order = binary.LittleEndian
	default:
		return 0, 0, false, false
	}

	nfat := order.Uint32(data[4:8])
	wantType := currentCPUType()

	pos := 8
	for i := uint32(0); i < nfat; i++ {
		var cputype uint32
		var archOffset, archSize uint64
		if is64 {
			if pos+32 > len(data) {
				break
			}
			cputype = order.Uint32(data[pos:])
			archOffset = order.Uint64(data[pos+8:])
			archSize = order.Uint64(data[pos+16:])
			pos += 32
		} else {
			if pos+20 > len(data) {
				break
			}
			cputype = order.Uint32(data[pos:])
			archOffset = uint64(order.Uint32(data[pos+8:]))
			archSize = uint64(order.Uint32(data[pos+12:]))
			pos += 20
		}
		if cputype == wantType {
			return int64(archOffset), int64(archSize), true, true
		}
	}
	return 0, 0, false, true
}
