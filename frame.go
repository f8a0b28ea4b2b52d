package callstack

import "fmt"

// Frame is one translated stack entry. A frame whose Function is
// empty could not be resolved to any function (BinaryFile is still set
// when its loaded image was found); a frame whose HasSourceInfo is false was resolved to a function but
// not to a source line, mirroring the synthetic
// "<linked-name> + <offset>" fallback of the original library.
//
// Unlike the C original, a Frame's strings are never "borrowed" from
// a cache that might outlive it or be cleared out from under it - Go
// strings are immutable and garbage-collected, so every Frame simply
// owns copies of whatever it reports.
type Frame struct {
	Address uint64

	BinaryFile         string
	BinaryFileRelative string
	BinaryFileIsSelf   bool

	Function       string
	FunctionOffset int64

	HasSourceInfo      bool
	SourceFile         string
	SourceFileRelative string
	SourceFileOutdated bool
	SourceLine         uint64
	SourceLineColumn   uint64
}

// String formats the frame the way a human-readable callstack printer
// would, matching the shape used throughout the pack's *_test.go
// golden output: "<address>: <function> (<file>:<line>)".
func (f Frame) String() string {
	if f.Function == "" {
		return fmt.Sprintf("0x%016x: << Unknown >>", f.Address)
	}
	if !f.HasSourceInfo {
		return fmt.Sprintf("0x%016x: %s", f.Address, f.Function)
	}
	if f.SourceLineColumn != 0 {
		return fmt.Sprintf("0x%016x: %s (%s:%d:%d)", f.Address, f.Function, f.SourceFile, f.SourceLine, f.SourceLineColumn)
	}
	return fmt.Sprintf("0x%016x: %s (%s:%d)", f.Address, f.Function, f.SourceFile, f.SourceLine)
}

func fillFrameSource(frame *Frame, from binaryFileFrame) {
	frame.Function = from.Function
	frame.FunctionOffset = from.FunctionOffset
	frame.HasSourceInfo = from.HasSourceInfo
	frame.SourceFile = from.SourceFile
	frame.SourceFileRelative = from.SourceFileRelative
	frame.SourceFileOutdated = from.SourceFileOutdated
	frame.SourceLine = from.SourceLine
	frame.SourceLineColumn = from.SourceLineColumn
}
