package callstack

import "github.com/mhahnFr/CallstackLibrary/internal/dlmap"

// GetSymbolInfo is a one-shot translator for a single address: it
// looks up the owning image, parses it if needed and resolves a full
// Frame, without requiring a Callstack at all. Mirrors
// symbols_getInfo.
func GetSymbolInfo(address uint64) (Frame, bool) {
	dlmap.Init()
	defer maybeClearCaches()

	img := dlmap.BinaryFileForAddress(address, true)
	if img == nil {
		return Frame{}, false
	}

	frame := Frame{
		Address:            address,
		BinaryFile:         img.FileNameAbsolute,
		BinaryFileRelative: img.FileNameRelative,
		BinaryFileIsSelf:   selfPathOnce() != "" && img.FileNameAbsolute == selfPathOnce(),
	}

	bf, ok := img.Handle.Addr2String(address, RawNames(), SwiftDemanglerActive())
	if !ok {
		return frame, true
	}
	fillFrameSource(&frame, bf)
	return frame, true
}
