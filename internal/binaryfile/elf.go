package binaryfile

import (
	"encoding/binary"
	"os"
	"sort"

	"github.com/mhahnFr/CallstackLibrary/internal/demangle"
	"github.com/mhahnFr/CallstackLibrary/internal/dwarfline"
	"github.com/mhahnFr/CallstackLibrary/internal/elffile"
	"github.com/mhahnFr/CallstackLibrary/internal/pathutil"
)

// ELFHandle is the Handle implementation for ELF images, grounded on
// original_source/src/parser/file/elf/elfFile.c. Unlike Mach-O, ELF
// binaries carry their DWARF debug sections directly - there is no
// separate per-compilation-unit object file to resolve.
type ELFHandle struct {
	Base

	file      *elffile.File
	rows      []dwarfline.Row
	demangled map[string]string
}

var _ Handle = (*ELFHandle)(nil)

func NewELFHandle(name string, startAddress uint64, inMemory bool) *ELFHandle {
	return &ELFHandle{Base: Base{Name: name, StartAddress: startAddress, InMemory: inMemory}}
}

func (h *ELFHandle) MaybeParse() bool {
	return h.Base.MaybeParse(h.parse)
}

func (h *ELFHandle) parse() bool {
	data, err := os.ReadFile(h.Name)
	if err != nil {
		logger.Debug().Err(err).Str("name", h.Name).Msg("could not read ELF file")
		return false
	}
	f, err := elffile.Parse(data, h.Name)
	if err != nil {
		logger.Debug().Err(err).Str("name", h.Name).Msg("failed to parse ELF image")
		return false
	}
	h.file = f
	h.RelocationOffset = h.StartAddress

	sections := dwarfline.Sections{
		Line:       f.DebugSections.DebugLine,
		LineStr:    f.DebugSections.DebugLineStr,
		Str:        f.DebugSections.DebugStr,
		Info:       f.DebugSections.DebugInfo,
		Abbrev:     f.DebugSections.DebugAbbrev,
		StrOffsets: f.DebugSections.DebugStrOffsets,
	}
	if len(sections.Line) > 0 {
		var order binary.ByteOrder = binary.LittleEndian
		if !f.LittleEndian {
			order = binary.BigEndian
		}
		if err := dwarfline.Parse(sections, order, func(row dwarfline.Row) {
			h.rows = append(h.rows, row)
		}); err != nil {
			logger.Debug().Err(err).Str("name", h.Name).Msg("malformed DWARF in ELF image")
		}
	}
	sort.Slice(h.rows, func(i, j int) bool { return h.rows[i].Address < h.rows[j].Address })

	return true
}

func (h *ELFHandle) closestFunction(translated uint64) (elffile.Function, bool) {
	fns := h.file.Functions
	idx := sort.Search(len(fns), func(i int) bool { return fns[i].StartAddress > translated }) - 1
	if idx < 0 || idx >= len(fns) {
		return elffile.Function{}, false
	}
	fn := fns[idx]
	if fn.StartAddress > translated || (fn.Length != 0 && fn.StartAddress+fn.Length < translated) {
		return elffile.Function{}, false
	}
	return fn, true
}

func (h *ELFHandle) closestRow(translated uint64) (dwarfline.Row, bool) {
	idx := sort.Search(len(h.rows), func(i int) bool { return h.rows[i].Address > translated }) - 1
	if idx < 0 || idx >= len(h.rows) {
		return dwarfline.Row{}, false
	}
	return h.rows[idx], true
}

func (h *ELFHandle) demangledName(linked string, swiftEnabled bool) string {
	if h.demangled == nil {
		h.demangled = map[string]string{}
	}
	if v, ok := h.demangled[linked]; ok {
		return v
	}
	v := demangle.Name(linked, swiftEnabled)
	h.demangled[linked] = v
	return v
}

func (h *ELFHandle) Addr2String(address uint64, rawNames, swiftEnabled bool) (Frame, bool) {
	if !h.MaybeParse() {
		return Frame{}, false
	}
	translated := address - h.RelocationOffset
	fn, ok := h.closestFunction(translated)
	if !ok || fn.LinkedName == "" {
		return Frame{}, false
	}

	name := fn.LinkedName
	if !rawNames {
		name = h.demangledName(fn.LinkedName, swiftEnabled)
	}
	frame := Frame{Function: name}

	row, ok := h.closestRow(translated)
	if !ok || row.Address < fn.StartAddress || (fn.Length != 0 && row.Address >= fn.StartAddress+fn.Length) {
		frame.FunctionOffset = int64(translated) - int64(fn.StartAddress)
		return frame, true
	}

	frame.HasSourceInfo = true
	frame.SourceFile = pathutil.Absolute(row.File.Name)
	frame.SourceFileRelative = pathutil.Relative(row.File.Name)
	frame.SourceLine = uint64(row.Line)
	frame.SourceLineColumn = row.Column
	frame.SourceFileOutdated = isOutdated(row.File.Name, row.File.Timestamp, row.File.Size)

	return frame, true
}

func (h *ELFHandle) GetFunctionInfo(functionName string) (FunctionInfo, bool) {
	if !h.MaybeParse() {
		return FunctionInfo{}, false
	}
	for _, fn := range h.file.Functions {
		if fn.LinkedName == functionName {
			return FunctionInfo{Begin: fn.StartAddress + h.RelocationOffset, Length: fn.Length}, true
		}
	}
	return FunctionInfo{}, false
}

// GetTLSRegions is not implemented, matching the upstream
// elfFile_getTLSRegions, which is itself left as a documented TODO.
func (h *ELFHandle) GetTLSRegions() []Region {
	return nil
}

func (h *ELFHandle) Destroy() {
	h.rows = nil
	h.demangled = nil
}
