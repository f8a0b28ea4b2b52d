package machofile

import (
	"encoding/binary"
	"fmt"

	"github.com/mhahnFr/CallstackLibrary/internal/leb128"
	"github.com/mhahnFr/CallstackLibrary/internal/log"
)

var logger = log.Logger("machofile")

// Parse parses one thin Mach-O image (already fat-archive-sliced if
// necessary) found in data, which was read from path.
func Parse(data []byte, path string) (*File, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("macho: file too small: %s", path)
	}
	magic := binary.BigEndian.Uint32(data[:4])

	var order binary.ByteOrder = binary.LittleEndian
	var is64 bool
	switch magic {
	case magic64:
		is64 = true
		order = binary.BigEndian
	case cigam64:
		is64 = true
	case magic32:
		order = binary.BigEndian
	case cigam32:
	default:
		return nil, fmt.Errorf("macho: bad magic in %s", path)
	}

	f := &File{Path: path}

	var ncmds, sizeofcmds uint32
	var cmdsStart int
	if is64 {
		// mach_header_64: magic, cputype, cpusubtype, filetype, ncmds,
		// sizeofcmds, flags, reserved - 8 uint32 fields.
		ncmds = order.Uint32(data[16:])
		sizeofcmds = order.Uint32(data[20:])
		cmdsStart = 32
	} else {
		ncmds = order.Uint32(data[16:])
		sizeofcmds = order.Uint32(data[20:])
		cmdsStart = 28
	}
	_ = sizeofcmds

	pos := cmdsStart
	for i := uint32(0); i < ncmds; i++ {
		if pos+8 > len(data) {
			break
		}
		cmd := order.Uint32(data[pos:])
		cmdsize := order.Uint32(data[pos+4:])
		body := data[pos : pos+int(cmdsize)]

		switch cmd &^ lcRequiredDyld {
		case lcSegment64:
			handleSegment64(f, data, body, order)
		case lcSegment:
			handleSegment32(f, body, order)
		case lcSymtab:
			if err := handleSymtab(f, data, body, order, is64); err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("malformed symbol table, abandoning this image's symbols")
				f.Functions = nil
				f.ObjectFiles = nil
			}
		case lcUUID:
			if len(body) >= 24 {
				copy(f.UUID[:], body[8:24])
				f.HasUUID = true
			}
		case lcFunctionStarts:
			handleFunctionStarts(f, data, body, order)
		}

		pos += int(cmdsize)
	}

	fillFunctionEnds(f)
	return f, nil
}

const (
	segnameSize = 16
)

// segment64HeaderSize is sizeof(struct segment_command_64): cmd,
// cmdsize, segname[16], vmaddr, vmsize, fileoff, filesize, maxprot,
// initprot, nsects, flags.
const segment64HeaderSize = 8 + segnameSize + 8 + 8 + 8 + 8 + 4 + 4 + 4 + 4

// section64Size is sizeof(struct section_64).
const section64Size = segnameSize + segnameSize + 8 + 8 + 4 + 4 + 4 + 4 + 4 + 4 + 4 + 4

func handleSegment64(f *File, data, cmd []byte, order binary.ByteOrder) {
	if len(cmd) < 8+segnameSize+8+8 {
		return
	}
	name := cStr(cmd[8 : 8+segnameSize])
	vmaddr := order.Uint64(cmd[8+segnameSize:])
	vmsize := order.Uint64(cmd[8+segnameSize+8:])
	switch name {
	case segPageZero:
		f.AddressOffset = vmaddr + vmsize
	case "__LINKEDIT":
		f.LinkeditVMAddr = vmaddr
		if len(cmd) >= 8+segnameSize+8+8+8 {
			f.LinkeditFileOff = order.Uint64(cmd[8+segnameSize+16:])
		}
	case "__TEXT":
		f.TextVMAddr = vmaddr
	case "__DWARF":
		handleDWARFSegment64(f, data, cmd, order)
	}
	collectTLVSections64(f, cmd, order)
}

// collectTLVSections64 scans a segment's section_64 array for any
// section whose type marks it as thread-local storage, appending one
// Region per such section. TLV sections are not confined to a
// particular segment name (conventionally __DATA or __DATA_CONST), so
// this runs for every segment rather than being folded into the
// __DWARF-only walk above.
func collectTLVSections64(f *File, cmd []byte, order binary.ByteOrder) {
	if len(cmd) < segment64HeaderSize {
		return
	}
	nsects := order.Uint32(cmd[segment64HeaderSize-8:])
	pos := segment64HeaderSize
	for i := uint32(0); i < nsects; i++ {
		if pos+section64Size > len(cmd) {
			break
		}
		sect := cmd[pos : pos+section64Size]
		addr := order.Uint64(sect[segnameSize+segnameSize:])
		size := order.Uint64(sect[segnameSize+segnameSize+8:])
		flags := order.Uint32(sect[segnameSize+segnameSize+8+8+4+4+4+4:])
		if isTLVSectionType(flags) && size > 0 {
			f.TLSRegions = append(f.TLSRegions, Region{Begin: addr, End: addr + size})
		}
		pos += section64Size
	}
}

// handleDWARFSegment64 walks a __DWARF segment's section_64 array,
// slicing each recognized __debug_* section's bytes directly out of
// the full file buffer.
func handleDWARFSegment64(f *File, data, cmd []byte, order binary.ByteOrder) {
	if len(cmd) < segment64HeaderSize {
		return
	}
	nsects := order.Uint32(cmd[segment64HeaderSize-8:])
	pos := segment64HeaderSize
	for i := uint32(0); i < nsects; i++ {
		if pos+section64Size > len(cmd) {
			break
		}
		sect := cmd[pos : pos+section64Size]
		sectName := cStr(sect[0:segnameSize])
		addr := order.Uint64(sect[segnameSize+segnameSize:])
		size := order.Uint64(sect[segnameSize+segnameSize+8:])
		offset := order.Uint32(sect[segnameSize+segnameSize+8+8:])
		_ = addr

		if offset != 0 && offset+uint32(size) <= uint32(len(data)) {
			target := dwarfSectionField(f, sectName)
			if target != nil {
				*target = data[offset : uint64(offset)+size]
			}
		}
		pos += section64Size
	}
}

func dwarfSectionField(f *File, sectName string) *[]byte {
	switch sectName {
	case "__debug_line":
		return &f.DWARF.DebugLine
	case "__debug_line_str":
		return &f.DWARF.DebugLineStr
	case "__debug_str":
		return &f.DWARF.DebugStr
	case "__debug_info":
		return &f.DWARF.DebugInfo
	case "__debug_abbrev":
		return &f.DWARF.DebugAbbrev
	case "__debug_str_offsets":
		return &f.DWARF.DebugStrOffsets
	default:
		return nil
	}
}

func handleSegment32(f *File, cmd []byte, order binary.ByteOrder) {
	if len(cmd) < 8+segnameSize+4+4 {
		return
	}
	name := cStr(cmd[8 : 8+segnameSize])
	vmaddr := uint64(order.Uint32(cmd[8+segnameSize:]))
	vmsize := uint64(order.Uint32(cmd[8+segnameSize+4:]))
	if name == segPageZero {
		f.AddressOffset = vmaddr + vmsize
	}
}

func cStr(b []byte) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}

// handleSymtab walks the nlist entries of an LC_SYMTAB command,
// partitioning them into object files via the stab opcodes N_SO,
// N_OSO, N_BNSYM/N_ENSYM and N_FUN, per spec.md §4.4.
func handleSymtab(f *File, data, cmd []byte, order binary.ByteOrder, is64 bool) error {
	if len(cmd) < 16 {
		return fmt.Errorf("truncated symtab_command")
	}
	symoff := order.Uint32(cmd[8:])
	nsyms := order.Uint32(cmd[12:])
	stroff := order.Uint32(cmd[16:])

	entrySize := 12
	if is64 {
		entrySize = 16
	}

	var current ObjectFileStab
	var currentHasDir, currentHasFun bool
	var currentFun Function
	currentFun.ObjectFile = -1

	flushObjectFile := func() {
		if current.Name != "" || len(current.Functions) > 0 || current.SourceFile != "" {
			f.ObjectFiles = append(f.ObjectFiles, current)
		}
		current = ObjectFileStab{}
		currentHasDir = false
	}

	for i := uint32(0); i < nsyms; i++ {
		off := int(symoff) + int(i)*entrySize
		if off+entrySize > len(data) {
			return fmt.Errorf("symbol table entry %d out of bounds", i)
		}
		entry := data[off : off+entrySize]
		nStrx := order.Uint32(entry[0:4])
		nType := entry[4]
		var nValue uint64
		if is64 {
			nValue = order.Uint64(entry[8:16])
		} else {
			nValue = uint64(order.Uint32(entry[8:12]))
		}
		name := cStrAt(data, int(stroff)+int(nStrx))

		switch nType {
		case nBnsym:
			if currentHasFun {
				return fmt.Errorf("N_BNSYM while a function was already open")
			}
			currentFun = Function{ObjectFile: len(f.ObjectFiles)}
			currentHasFun = true

		case nEnsym:
			if !currentHasFun {
				return fmt.Errorf("N_ENSYM without a matching N_BNSYM")
			}
			current.Functions = append(current.Functions, currentFun)
			currentHasFun = false

		case nSO:
			if name == "" {
				flushObjectFile()
			} else if !currentHasDir {
				current.Directory = name
				currentHasDir = true
			} else if current.SourceFile == "" {
				current.SourceFile = name
			}

		case nOSO:
			current.Name = name
			current.ModTime = int64(nValue)

		case nFun:
			if !currentHasFun {
				return fmt.Errorf("N_FUN without a matching N_BNSYM")
			}
			if name != "" {
				currentFun.LinkedName = name
				currentFun.StartAddress = nValue
			} else {
				currentFun.Length = nValue
			}

		default:
			const sectionTypeMask = 0x0e
			if nType&sectionTypeMask != 0 && name != "" && nValue != 0 {
				f.Functions = append(f.Functions, Function{
					StartAddress: nValue,
					LinkedName:   name,
					ObjectFile:   -1,
				})
			}
		}
	}
	flushObjectFile()
	if currentHasFun {
		return fmt.Errorf("function entries did not end")
	}
	for _, obj := range f.ObjectFiles {
		f.Functions = append(f.Functions, obj.Functions...)
	}
	return nil
}

func cStrAt(data []byte, offset int) string {
	if offset < 0 || offset >= len(data) {
		return ""
	}
	end := offset
	for end < len(data) && data[end] != 0 {
		end++
	}
	return string(data[offset:end])
}

// handleFunctionStarts decodes the LEB128-delta-encoded function
// start addresses of an LC_FUNCTION_STARTS command.
func handleFunctionStarts(f *File, data, cmd []byte, order binary.ByteOrder) {
	if len(cmd) < 16 {
		return
	}
	dataoff := order.Uint32(cmd[8:])
	datasize := order.Uint32(cmd[12:])
	if int(dataoff)+int(datasize) > len(data) {
		return
	}
	buf := data[dataoff : dataoff+datasize]

	funcAddr := f.AddressOffset
	offset := 0
	for offset < len(buf) {
		delta, next := leb128.Uint64(buf, offset)
		offset = next
		funcAddr += delta
		f.FunctionStarts = append(f.FunctionStarts, funcAddr)
	}
}

// fillFunctionEnds derives each function's length from the sorted,
// de-duplicated function-starts table when the stabs did not record
// one. Per spec.md Open Question #2, a duplicate start address is
// left at length 0 rather than guessed at.
func fillFunctionEnds(f *File) {
	if len(f.FunctionStarts) == 0 {
		return
	}
	starts := append([]uint64(nil), f.FunctionStarts...)
	sortUint64(starts)

	index := make(map[uint64]int, len(starts))
	for i, v := range starts {
		if _, dup := index[v]; dup {
			index[v] = -1
			continue
		}
		index[v] = i
	}

	for i := range f.Functions {
		fn := &f.Functions[i]
		if fn.Length != 0 {
			continue
		}
		idx, ok := index[fn.StartAddress]
		if !ok || idx < 0 || idx+1 >= len(starts) {
			continue
		}
		fn.Length = starts[idx+1] - starts[idx]
	}
}

func sortUint64(s []uint64) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
