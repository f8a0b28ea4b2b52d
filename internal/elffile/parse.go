package elffile

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/mhahnFr/CallstackLibrary/internal/log"
)

var logger = log.Logger("elffile")

// Parse fully parses the ELF image in data: section headers, the
// debug sections, the symbol (or, lacking one, dynamic symbol) table
// and the writable+allocated regions. Grounded on
// original_source/src/parser/file/elf/elfFile.c's elfFile_parseFile.
func Parse(data []byte, path string) (*File, error) {
	f, order, err := parseHeader(data, path)
	if err != nil {
		return nil, err
	}

	shoff := readWord(data, ehShoffFieldOff(f.Is64), f.Is64, order)
	if shoff == 0 {
		return nil, fmt.Errorf("elffile: %s has no section headers", path)
	}
	shentsize := int(order.Uint16(data[ehShentsizeOff(f.Is64):]))
	shnum := loadShnum(data, f.Is64, order, shoff, shentsize)
	shstrndx := loadShstrndx(data, f.Is64, order, shoff, shentsize, shnum)
	if shstrndx == shnUndef {
		return nil, fmt.Errorf("elffile: %s has no section name string table", path)
	}

	strtabHdr := sectionAt(data, int(shoff), shentsize, int(shstrndx))
	shStrOff := readWord(strtabHdr, offsetOff(f.Is64), f.Is64, order)
	shStrTab := data[shStrOff:]

	var symtabHdr, strtabForSyms, dynsymHdr, dynstrHdr []byte

	for i := 0; i < int(shnum); i++ {
		sect := sectionAt(data, int(shoff), shentsize, i)
		nameOff := order.Uint32(sect[0:4])
		name := cStr(shStrTab, int(nameOff))
		sType := order.Uint32(sect[4:8])
		sFlags := readWord(sect, 8, f.Is64, order)
		sAddr := readWord(sect, addrOff(f.Is64), f.Is64, order)
		sOffset := readWord(sect, offsetOff(f.Is64), f.Is64, order)
		sSize := readWord(sect, sizeOff(f.Is64), f.Is64, order)

		switch name {
		case ".debug_line":
			f.DebugSections.DebugLine = sliceAt(data, sOffset, sSize)
		case ".debug_str":
			f.DebugSections.DebugStr = sliceAt(data, sOffset, sSize)
		case ".debug_line_str":
			f.DebugSections.DebugLineStr = sliceAt(data, sOffset, sSize)
		case ".debug_info":
			f.DebugSections.DebugInfo = sliceAt(data, sOffset, sSize)
		case ".debug_abbrev":
			f.DebugSections.DebugAbbrev = sliceAt(data, sOffset, sSize)
		case ".debug_str_offsets":
			f.DebugSections.DebugStrOffsets = sliceAt(data, sOffset, sSize)
		}

		switch sType {
		case shtSymtab:
			symtabHdr = sect
		case shtDynsym:
			dynsymHdr = sect
		case shtStrtab:
			if name == ".strtab" {
				strtabForSyms = sect
			} else if name == ".dynstr" {
				dynstrHdr = sect
			}
		}

		if sFlags&shfWrite != 0 && sFlags&shfAlloc != 0 {
			f.Regions = append(f.Regions, Region{Begin: sAddr, End: sAddr + sSize})
		}
	}

	if symtabHdr == nil || strtabForSyms == nil {
		symtabHdr, strtabForSyms = dynsymHdr, dynstrHdr
	}
	if symtabHdr == nil || strtabForSyms == nil {
		return nil, fmt.Errorf("elffile: %s has no usable symbol table", path)
	}

	strBeginOff := readWord(strtabForSyms, offsetOff(f.Is64), f.Is64, order)
	parseSymtab(f, data, symtabHdr, data[strBeginOff:], order)

	sort.Slice(f.Functions, func(i, j int) bool {
		return f.Functions[i].StartAddress < f.Functions[j].StartAddress
	})

	return f, nil
}

// ParseShallow reads just enough of the ELF image (its program
// headers) to compute the mapped address range, without walking
// sections or symbols - used for the loaded-in-memory fast path.
func ParseShallow(data []byte, path string) (*File, error) {
	f, order, err := parseHeader(data, path)
	if err != nil {
		return nil, err
	}

	phoff := readWord(data, phOffOff(f.Is64), f.Is64, order)
	phentsize := int(order.Uint16(data[ehPhentsizeOff(f.Is64):]))
	phnum := loadPhnum(data, f.Is64, order, phoff)

	const ptLoad = 1
	var biggest uint64
	for i := 0; i < int(phnum); i++ {
		off := int(phoff) + i*phentsize
		if off+phentsize > len(data) {
			break
		}
		seg := data[off : off+phentsize]
		if order.Uint32(seg[0:4]) != ptLoad {
			continue
		}
		pOffset := readWord(seg, phOffsetFieldOff(f.Is64), f.Is64, order)
		pMemsz := readWord(seg, phMemszFieldOff(f.Is64), f.Is64, order)
		end := pOffset + pMemsz
		if end > biggest {
			biggest = end
		}
	}
	f.End = biggest
	return f, nil
}

func parseHeader(data []byte, path string) (*File, binary.ByteOrder, error) {
	if len(data) < 20 || string(data[1:4]) != "ELF" {
		return nil, nil, fmt.Errorf("elffile: bad ELF magic in %s", path)
	}
	class := data[4]
	dataEnc := data[5]

	var is64 bool
	switch class {
	case class64:
		is64 = true
	case class32:
	default:
		return nil, nil, fmt.Errorf("elffile: unsupported ELF class in %s", path)
	}

	var order binary.ByteOrder
	switch dataEnc {
	case data2LSB:
		order = binary.LittleEndian
	case data2MSB:
		order = binary.BigEndian
	default:
		return nil, nil, fmt.Errorf("elffile: unsupported ELF data encoding in %s", path)
	}

	return &File{Path: path, Is64: is64, LittleEndian: dataEnc == data2LSB}, order, nil
}

// Layout helpers: field byte offsets differ between Elf32_Ehdr and
// Elf64_Ehdr only in the address-sized fields (e_entry, e_phoff,
// e_shoff), all after the fixed 16-byte e_ident.

func ehShoffFieldOff(is64 bool) int {
	if is64 {
		return 0x28
	}
	return 0x20
}

func phOffOff(is64 bool) int {
	if is64 {
		return 0x20
	}
	return 0x1c
}

func ehPhentsizeOff(is64 bool) int {
	if is64 {
		return 0x36
	}
	return 0x2a
}

func ehShentsizeOff(is64 bool) int {
	if is64 {
		return 0x3a
	}
	return 0x2e
}

func ehShnumOff(is64 bool) int {
	if is64 {
		return 0x3c
	}
	return 0x30
}

func ehShstrndxOff(is64 bool) int {
	if is64 {
		return 0x3e
	}
	return 0x32
}

// readWord reads an address-sized (4 or 8 byte) field at off.
func readWord(buf []byte, off int, is64 bool, order binary.ByteOrder) uint64 {
	if is64 {
		if off+8 > len(buf) {
			return 0
		}
		return order.Uint64(buf[off:])
	}
	if off+4 > len(buf) {
		return 0
	}
	return uint64(order.Uint32(buf[off:]))
}

func addrOff(is64 bool) int {
	if is64 {
		return 0x10
	}
	return 0x0c
}

func offsetOff(is64 bool) int {
	if is64 {
		return 0x18
	}
	return 0x10
}

func sizeOff(is64 bool) int {
	if is64 {
		return 0x20
	}
	return 0x14
}

func phOffsetFieldOff(is64 bool) int {
	if is64 {
		return 0x08
	}
	return 0x04
}

func phMemszFieldOff(is64 bool) int {
	if is64 {
		return 0x28
	}
	return 0x14
}

func sectionAt(data []byte, shoff, shentsize, index int) []byte {
	off := shoff + index*shentsize
	if off+shentsize > len(data) {
		return make([]byte, shentsize)
	}
	return data[off : off+shentsize]
}

func loadShnum(data []byte, is64 bool, order binary.ByteOrder, shoff uint64, shentsize int) uint64 {
	shnum := uint64(order.Uint16(data[ehShnumOff(is64):]))
	if shnum != 0 {
		return shnum
	}
	if shoff == 0 {
		return 0
	}
	first := sectionAt(data, int(shoff), shentsize, 0)
	return readWord(first, sizeOff(is64), is64, order)
}

// shLinkOff is sh_link's byte offset within a section header: it
// immediately follows sh_size, and is always a 4-byte Elf_Word
// regardless of class.
func shLinkOff(is64 bool) int {
	return sizeOff(is64) + wordSize(is64)
}

// shInfoOff is sh_info's byte offset: sh_link's 4-byte field
// immediately followed by sh_info, also always 4 bytes.
func shInfoOff(is64 bool) int {
	return shLinkOff(is64) + 4
}

func loadShstrndx(data []byte, is64 bool, order binary.ByteOrder, shoff uint64, shentsize int, shnum uint64) uint64 {
	idx := uint64(order.Uint16(data[ehShstrndxOff(is64):]))
	if idx != shnXindex {
		return idx
	}
	if shoff == 0 {
		return shnUndef
	}
	first := sectionAt(data, int(shoff), shentsize, 0)
	return uint64(order.Uint32(first[shLinkOff(is64):]))
}

func loadPhnum(data []byte, is64 bool, order binary.ByteOrder, phoff uint64) uint64 {
	phnumOff := 0x38
	if !is64 {
		phnumOff = 0x2c
	}
	phnum := uint64(order.Uint16(data[phnumOff:]))
	if phnum != pnXnum || phoff == 0 {
		return phnum
	}
	shoff := readWord(data, ehShoffFieldOff(is64), is64, order)
	if shoff == 0 {
		return phnum
	}
	shentsize := int(order.Uint16(data[ehShentsizeOff(is64):]))
	first := sectionAt(data, int(shoff), shentsize, 0)
	return uint64(order.Uint32(first[shInfoOff(is64):]))
}

func wordSize(is64 bool) int {
	if is64 {
		return 8
	}
	return 4
}

func sliceAt(data []byte, off, size uint64) []byte {
	if off+size > uint64(len(data)) || off > uint64(len(data)) {
		return nil
	}
	return data[off : off+size]
}

func cStr(buf []byte, offset int) string {
	if offset < 0 || offset >= len(buf) {
		return ""
	}
	end := offset
	for end < len(buf) && buf[end] != 0 {
		end++
	}
	return string(buf[offset:end])
}

func parseSymtab(f *File, data, symtabHdr, strBegin []byte, order binary.ByteOrder) {
	symOff := readWord(symtabHdr, offsetOff(f.Is64), f.Is64, order)
	symSize := readWord(symtabHdr, sizeOff(f.Is64), f.Is64, order)
	entrySize := 16
	if f.Is64 {
		entrySize = 24
	}
	if entrySize == 0 {
		return
	}
	count := symSize / uint64(entrySize)

	for i := uint64(0); i < count; i++ {
		off := symOff + i*uint64(entrySize)
		if off+uint64(entrySize) > uint64(len(data)) {
			break
		}
		entry := data[off : off+uint64(entrySize)]

		var nameIdx uint32
		var value, size uint64
		var info byte
		if f.Is64 {
			nameIdx = order.Uint32(entry[0:4])
			info = entry[4]
			value = order.Uint64(entry[8:16])
			size = order.Uint64(entry[16:24])
		} else {
			nameIdx = order.Uint32(entry[0:4])
			value = uint64(order.Uint32(entry[4:8]))
			size = uint64(order.Uint32(entry[8:12]))
			info = entry[12]
		}

		symType := info & 0xf
		if (symType == sttFunc || symType == sttObject) && value != 0 {
			f.Functions = append(f.Functions, Function{
				StartAddress: value,
				Length:       size,
				LinkedName:   cStr(strBegin, int(nameIdx)),
			})
		}
	}
}
