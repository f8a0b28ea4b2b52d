package callstack

import "sync/atomic"

// Default process-wide configuration values, as specified for the
// backtrace library: a fixed capture depth and conservative defaults
// for cache clearing, name mangling and the optional Swift demangler.
const (
	// DefaultBacktraceSize is the default maximum number of frames
	// captured by Capture.
	DefaultBacktraceSize = 128
)

// options holds the process-wide configuration knobs. Every field is
// an atomic so callers may set them from one goroutine and read them
// from translation goroutines without an explicit lock, matching the
// "set atomically, read without locks" contract of the option flags.
var options = struct {
	backtraceSize          atomic.Int32
	autoClearCaches        atomic.Bool
	rawNames               atomic.Bool
	activateSwiftDemangler atomic.Bool
}{}

func init() {
	options.backtraceSize.Store(DefaultBacktraceSize)
	options.activateSwiftDemangler.Store(true)
}

// SetBacktraceSize sets the maximum number of frames captured by
// Capture. A backtrace longer than this is truncated, never rejected.
func SetBacktraceSize(n int) {
	if n <= 0 {
		n = DefaultBacktraceSize
	}
	options.backtraceSize.Store(int32(n))
}

// BacktraceSize returns the currently configured capture depth.
func BacktraceSize() int {
	return int(options.backtraceSize.Load())
}

// SetAutoClearCaches controls whether every public API call clears
// the DL-mapper, binary-file and object-file caches once it returns.
// Disabled by default; enabling it trades repeated parsing cost for a
// smaller steady-state memory footprint.
func SetAutoClearCaches(v bool) {
	options.autoClearCaches.Store(v)
}

// AutoClearCaches reports the current auto-clear setting.
func AutoClearCaches() bool {
	return options.autoClearCaches.Load()
}

// SetRawNames controls whether translated frames carry mangled
// (true) or demangled (false, default) function names.
func SetRawNames(v bool) {
	options.rawNames.Store(v)
}

// RawNames reports the current raw-names setting.
func RawNames() bool {
	return options.rawNames.Load()
}

// SetSwiftDemanglerActive gates the dynamic Swift demangler lookup.
// Enabled by default.
func SetSwiftDemanglerActive(v bool) {
	options.activateSwiftDemangler.Store(v)
}

// SwiftDemanglerActive reports whether Swift demangling is enabled.
func SwiftDemanglerActive() bool {
	return options.activateSwiftDemangler.Load()
}
