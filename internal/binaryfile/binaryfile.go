// Package binaryfile defines the polymorphic handle that the rest of
// this library uses to address either a Mach-O or an ELF image
// uniformly, mirroring binaryFile.h/.c's "class" of function pointers
// realized here as a plain Go interface.
package binaryfile

import (
	"sync"

	"github.com/mhahnFr/CallstackLibrary/internal/log"
)

var logger = log.Logger("binaryfile")

// Frame is the debug information resolved for one address.
type Frame struct {
	Function           string
	FunctionOffset     int64
	HasSourceInfo      bool
	SourceFile         string
	SourceFileRelative string
	SourceFileOutdated bool
	SourceLine         uint64
	SourceLineColumn   uint64
}

// FunctionInfo is the (begin, length) pair reported for a named
// function, per spec.md §4.11.
type FunctionInfo struct {
	Begin  uint64
	Length uint64
}

// Region is a thread-local-storage or other writable+allocated
// address range.
type Region struct {
	Begin, End uint64
}

// Handle is implemented by each concrete binary format. Addr2String
// and Relativize take a raw runtime address and perform the
// relocation-offset subtraction themselves; GetFunctionInfo and
// GetTLSRegions report runtime addresses; Absolutize takes an
// image-relative offset.
type Handle interface {
	// MaybeParse parses the underlying file if it has not been
	// (successfully) parsed yet, returning whether it is now usable.
	MaybeParse() bool
	// Addr2String resolves address, demangling its function name
	// according to rawNames/swiftEnabled (the caller's config.go
	// settings - kept out of this package to avoid an import cycle
	// with the public API that owns them).
	Addr2String(address uint64, rawNames, swiftEnabled bool) (Frame, bool)
	GetFunctionInfo(functionName string) (FunctionInfo, bool)
	GetTLSRegions() []Region
	FileName() string
	// Relativize converts a runtime address into this image's own,
	// pre-relocation coordinate space - the same translation
	// Addr2String performs internally before a symbol lookup.
	Relativize(address uint64) uint64
	// Absolutize is Relativize's inverse.
	Absolutize(offset uint64) uint64
	// Destroy releases any cached resolvers this handle holds open.
	Destroy()
}

// Base carries the fields every concrete Handle shares, mirroring
// struct binaryFile's common prefix.
type Base struct {
	Name             string
	StartAddress     uint64
	RelocationOffset uint64
	InMemory         bool

	mu     sync.Mutex
	parsed bool
	ok     bool
}

// MaybeParse runs parseFunc at most once for this Base, caching both
// success and failure; ClearCaches does not reset it.
func (b *Base) MaybeParse(parseFunc func() bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.parsed {
		b.ok = parseFunc()
		b.parsed = true
	}
	return b.ok
}

func (b *Base) FileName() string { return b.Name }

func (b *Base) Relativize(address uint64) uint64 { return address - b.RelocationOffset }

func (b *Base) Absolutize(offset uint64) uint64 { return offset + b.RelocationOffset }

var clearMu sync.Mutex
var clearFuncs []func()

// RegisterClearCache registers a callback invoked by ClearCaches. No
// package of this library registers one, so ClearCaches only runs
// callbacks that an embedding caller has added.
func RegisterClearCache(f func()) {
	clearMu.Lock()
	defer clearMu.Unlock()
	clearFuncs = append(clearFuncs, f)
}

// ClearCaches invokes every registered cache-clearing callback,
// mirroring binaryFile_clearCaches.
func ClearCaches() {
	clearMu.Lock()
	fns := append([]func(){}, clearFuncs...)
	clearMu.Unlock()
	for _, f := range fns {
		f()
	}
}
