package callstack

import (
	"os"
	"sync"

	"github.com/mhahnFr/CallstackLibrary/internal/binaryfile"
	"github.com/mhahnFr/CallstackLibrary/internal/dlmap"
	"github.com/mhahnFr/CallstackLibrary/internal/pathutil"
)

// binaryFileFrame is the internal binary-file package's resolved
// frame, aliased so frame.go does not need to import internal/binaryfile
// itself (keeping the public Frame type the sole public vocabulary).
type binaryFileFrame = binaryfile.Frame

// TranslationStatus is a Callstack's overall translation outcome, per
// the NONE/TRANSLATED/FAILED states of spec's Callstack.
type TranslationStatus int

const (
	StatusNone TranslationStatus = iota
	StatusTranslated
	StatusFailed
)

func (s TranslationStatus) String() string {
	switch s {
	case StatusTranslated:
		return "TRANSLATED"
	case StatusFailed:
		return "FAILED"
	default:
		return "NONE"
	}
}

var selfPathOnce = sync.OnceValue(func() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return pathutil.Absolute(exe)
})

// translateBinariesOnly resolves each address to its owning loaded
// image without paying for any DWARF/stab parsing, mirroring the
// "translate binaries only" fast path of §4.10.
func translateBinariesOnly(addresses []uint64) []*dlmap.Image {
	dlmap.Init()
	images := make([]*dlmap.Image, len(addresses))
	for i, addr := range addresses {
		images[i] = dlmap.BinaryFileForAddress(addr, true)
	}
	return images
}

// translate resolves every address to a fully populated Frame.
//
// Per spec's error model (§7), a per-address lookup miss (kind 4: no
// symbolic information) degrades that one frame to a synthetic
// "<< Unknown >>" entry rather than failing the whole batch - in this
// port, binaryfile.Handle.Addr2String's false return only ever signals
// that miss, never an allocation-class failure (Go has none to
// report), so translate always returns StatusTranslated, also for an
// empty address list; it never produces StatusFailed.
func translate(addresses []uint64) ([]Frame, TranslationStatus) {
	images := translateBinariesOnly(addresses)
	frames := make([]Frame, len(addresses))
	self := selfPathOnce()

	for i, addr := range addresses {
		frames[i].Address = addr

		img := images[i]
		if img == nil {
			continue
		}
		frames[i].BinaryFile = img.FileNameAbsolute
		frames[i].BinaryFileRelative = img.FileNameRelative
		frames[i].BinaryFileIsSelf = self != "" && img.FileNameAbsolute == self

		bf, ok := img.Handle.Addr2String(addr, RawNames(), SwiftDemanglerActive())
		if !ok {
			continue
		}
		fillFrameSource(&frames[i], bf)
	}

	if AutoClearCaches() {
		ClearAllCaches()
	}
	return frames, StatusTranslated
}

// ClearAllCaches drops the DL-mapper's loaded-image list, destroying
// every image's Handle, and runs every callback registered with
// binaryfile.RegisterClearCache, mirroring clearCaches. Invoked automatically at the end of each public
// operation when AutoClearCaches is set.
func ClearAllCaches() {
	dlmap.Deinit()
	binaryfile.ClearCaches()
}

func maybeClearCaches() {
	if AutoClearCaches() {
		ClearAllCaches()
	}
}
