// Package callstack captures and symbolicates call stacks: it reads a
// process's own Mach-O or ELF images plus whatever DWARF/stabs debug
// information they carry, without shelling out to an external
// symbolizer, mirroring the original CallstackLibrary's public API.
package callstack

import (
	"runtime"
	"strings"

	"github.com/mhahnFr/CallstackLibrary/internal/dlmap"
)

// Callstack is a captured, optionally translated, sequence of raw
// return addresses, per §3's Callstack record.
type Callstack struct {
	addresses []uint64
	frames    []Frame
	status    TranslationStatus
}

// Capture records the calling goroutine's current call stack, up to
// BacktraceSize frames. runtime.Callers is this port's equivalent of
// the original's backtrace(3) call.
func Capture() *Callstack {
	pcs := make([]uintptr, BacktraceSize())
	n := runtime.Callers(2, pcs)
	addresses := make([]uint64, n)
	for i := 0; i < n; i++ {
		addresses[i] = uint64(pcs[i])
	}
	return &Callstack{addresses: addresses}
}

// New returns an empty, untranslated Callstack, mirroring
// callstack_create's zero-initialised instance.
func New() *Callstack {
	return &Callstack{}
}

// Copy returns an independent copy of c.
func (c *Callstack) Copy() *Callstack {
	return &Callstack{
		addresses: append([]uint64(nil), c.addresses...),
		frames:    append([]Frame(nil), c.frames...),
		status:    c.status,
	}
}

// Translate resolves every captured address into a Frame, setting and
// returning the overall Status.
func (c *Callstack) Translate() TranslationStatus {
	frames, status := translate(c.addresses)
	c.frames = frames
	c.status = status
	return status
}

// Status reports the outcome of the last Translate call, or
// StatusNone if Translate has not been called.
func (c *Callstack) Status() TranslationStatus {
	return c.status
}

// Addresses returns the raw captured addresses.
func (c *Callstack) Addresses() []uint64 {
	return append([]uint64(nil), c.addresses...)
}

// ToArray returns the translated frames, in capture order. Empty
// until Translate has been called.
func (c *Callstack) ToArray() []Frame {
	return append([]Frame(nil), c.frames...)
}

// ToString joins every translated frame's String form with separator.
func (c *Callstack) ToString(separator string) string {
	parts := make([]string, len(c.frames))
	for i, f := range c.frames {
		parts[i] = f.String()
	}
	return strings.Join(parts, separator)
}

// BinaryInfo is one loaded image referenced by a Callstack's
// addresses, returned by GetBinaries/GetBinariesCached.
type BinaryInfo struct {
	Name         string
	NameRelative string
	IsSelf       bool
}

func binaryInfosFrom(images []*dlmap.Image) []BinaryInfo {
	self := selfPathOnce()
	seen := map[string]bool{}
	var out []BinaryInfo
	for _, img := range images {
		if img == nil || seen[img.FileNameAbsolute] {
			continue
		}
		seen[img.FileNameAbsolute] = true
		out = append(out, BinaryInfo{
			Name:         img.FileNameAbsolute,
			NameRelative: img.FileNameRelative,
			IsSelf:       self != "" && img.FileNameAbsolute == self,
		})
	}
	return out
}

// GetBinaries re-enumerates the currently loaded images before
// resolving each address, picking up any image loaded since the last
// DL-mapper initialisation (for example a plugin opened at runtime).
func (c *Callstack) GetBinaries() []BinaryInfo {
	dlmap.Deinit()
	defer maybeClearCaches()
	return binaryInfosFrom(translateBinariesOnly(c.addresses))
}

// GetBinariesCached resolves each address against whatever images the
// DL-mapper already knows about, initialising it only if it has never
// run at all.
func (c *Callstack) GetBinariesCached() []BinaryInfo {
	defer maybeClearCaches()
	return binaryInfosFrom(translateBinariesOnly(c.addresses))
}

// Delete releases c's addresses and frames. c must not be used
// afterward.
func (c *Callstack) Delete() {
	c.addresses = nil
	c.frames = nil
}
