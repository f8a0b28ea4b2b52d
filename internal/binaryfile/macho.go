package binaryfile

import (
	"os"
	"sort"

	"github.com/mhahnFr/CallstackLibrary/internal/demangle"
	"github.com/mhahnFr/CallstackLibrary/internal/machofile"
	"github.com/mhahnFr/CallstackLibrary/internal/objectfile"
	"github.com/mhahnFr/CallstackLibrary/internal/pathutil"
)

// MachOHandle is the Handle implementation for Mach-O images,
// grounded on original_source/src/parser/file/macho/machoFile.c.
type MachOHandle struct {
	Base

	file      *machofile.File
	resolvers map[int]*objectfile.Resolver
	dsym      *machofile.File
	dsymRes   *objectfile.Resolver
	demangled map[string]string
}

var _ Handle = (*MachOHandle)(nil)

// NewMachOHandle constructs a handle for the Mach-O image at name,
// whose loaded address is startAddress (0 for an on-disk-only parse).
func NewMachOHandle(name string, startAddress uint64, inMemory bool) *MachOHandle {
	return &MachOHandle{
		Base: Base{Name: name, StartAddress: startAddress, InMemory: inMemory},
	}
}

func (h *MachOHandle) MaybeParse() bool {
	return h.Base.MaybeParse(h.parse)
}

func (h *MachOHandle) parse() bool {
	data, err := os.ReadFile(h.Name)
	if err != nil {
		logger.Debug().Err(err).Str("name", h.Name).Msg("could not read Mach-O file")
		return false
	}

	sliceOff, sliceSize, ok, isFat := machofile.SelectSlice(data)
	if isFat {
		if !ok {
			logger.Debug().Str("name", h.Name).Msg("fat archive has no slice for the running architecture")
			return false
		}
		data = data[sliceOff : sliceOff+sliceSize]
	}

	f, err := machofile.Parse(data, h.Name)
	if err != nil {
		logger.Debug().Err(err).Str("name", h.Name).Msg("failed to parse Mach-O image")
		return false
	}
	h.file = f
	h.RelocationOffset = h.StartAddress - f.AddressOffset

	if dsymPath := machofile.FindDSYMBundle(h.Name); dsymPath != "" {
		if dsymData, err := os.ReadFile(dsymPath); err == nil {
			if dsymFile, err := machofile.Parse(dsymData, dsymPath); err == nil && machofile.MatchesUUID(f, dsymFile) {
				h.dsym = dsymFile
				h.dsymRes = objectfile.New(machofile.ObjectFileStab{Name: dsymPath}, true)
			}
		}
	}

	return true
}

func (h *MachOHandle) resolverFor(objIndex int) *objectfile.Resolver {
	if objIndex < 0 || objIndex >= len(h.file.ObjectFiles) {
		return nil
	}
	if h.resolvers == nil {
		h.resolvers = map[int]*objectfile.Resolver{}
	}
	if r, ok := h.resolvers[objIndex]; ok {
		return r
	}
	r := objectfile.New(h.file.ObjectFiles[objIndex], false)
	h.resolvers[objIndex] = r
	return r
}

func (h *MachOHandle) closestFunction(translated uint64) (machofile.Function, bool) {
	fns := h.file.Functions
	idx := sort.Search(len(fns), func(i int) bool { return fns[i].StartAddress > translated }) - 1
	if idx < 0 || idx >= len(fns) {
		return machofile.Function{}, false
	}
	fn := fns[idx]
	if fn.StartAddress > translated || (fn.Length != 0 && fn.StartAddress+fn.Length < translated) {
		return machofile.Function{}, false
	}
	return fn, true
}

func (h *MachOHandle) demangledName(linked string, swiftEnabled bool) string {
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

func (h *MachOHandle) Addr2String(address uint64, rawNames, swiftEnabled bool) (Frame, bool) {
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

	if h.dsym != nil && h.dsymRes != nil {
		if info, ok := h.dsymRes.DebugInfo(translated, fn); ok {
			fillFrameSource(&frame, info)
			return frame, true
		}
	}
	if fn.ObjectFile >= 0 {
		if r := h.resolverFor(fn.ObjectFile); r != nil {
			if info, ok := r.DebugInfo(translated, fn); ok {
				fillFrameSource(&frame, info)
				return frame, true
			}
		}
	}

	frame.FunctionOffset = int64(translated) - int64(fn.StartAddress)
	return frame, true
}

func fillFrameSource(frame *Frame, info objectfile.SourceInfo) {
	frame.HasSourceInfo = true
	frame.SourceFile = info.FileNameAbsolute
	frame.SourceFileRelative = info.FileNameRelative
	frame.SourceLine = info.Line
	frame.SourceLineColumn = info.Column
	frame.SourceFileOutdated = isOutdated(info.FileName, info.Timestamp, info.Size)
}

// isOutdated reports whether fileName's modification time differs from
// the DWARF line table's recorded timestamp, or its size from the
// recorded non-zero size, mirroring
// binaryFile_isOutdated.
func isOutdated(fileName string, timestamp, size uint64) bool {
	if fileName == "" || timestamp == 0 {
		return false
	}
	info, err := os.Stat(pathutil.Absolute(fileName))
	if err != nil {
		return false
	}
	if uint64(info.ModTime().Unix()) != timestamp {
		return true
	}
	return size != 0 && uint64(info.Size()) != size
}

func (h *MachOHandle) GetFunctionInfo(functionName string) (FunctionInfo, bool) {
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

func (h *MachOHandle) GetTLSRegions() []Region {
	if !h.MaybeParse() {
		return nil
	}
	regions := make([]Region, 0, len(h.file.TLSRegions))
	for _, r := range h.file.TLSRegions {
		regions = append(regions, Region{Begin: r.Begin + h.RelocationOffset, End: r.End + h.RelocationOffset})
	}
	return regions
}

func (h *MachOHandle) Destroy() {
	h.resolvers = nil
	h.dsymRes = nil
	h.demangled = nil
}
