package callstack

import "github.com/mhahnFr/CallstackLibrary/internal/dlmap"

// FunctionInfo is the (begin, length) extent of a named function in a
// loaded image, per §4.11.
type FunctionInfo struct {
	Begin  uint64
	Length uint64
}

// LoadFunctionInfo looks up name across every loaded image, returning
// its runtime extent and whether it was found.
func LoadFunctionInfo(name string) (FunctionInfo, bool) {
	return LoadFunctionInfoHint(name, "")
}

// LoadFunctionInfoHint is LoadFunctionInfo, but tries the image named
// imageHint first before falling back to a linear scan of every
// loaded image, short-circuiting on the first hit - mirroring
// functionInfo_loadHint.
func LoadFunctionInfoHint(name, imageHint string) (FunctionInfo, bool) {
	dlmap.Init()
	defer maybeClearCaches()

	if imageHint != "" {
		if img := dlmap.BinaryFileForFileName(imageHint); img != nil {
			if fi, ok := lookupFunction(img, name); ok {
				return fi, true
			}
		}
	}
	for _, img := range dlmap.LoadedBinaries() {
		if fi, ok := lookupFunction(img, name); ok {
			return fi, true
		}
	}
	return FunctionInfo{}, false
}

func lookupFunction(img *dlmap.Image, name string) (FunctionInfo, bool) {
	fi, ok := img.Handle.GetFunctionInfo(name)
	if !ok {
		return FunctionInfo{}, false
	}
	return FunctionInfo{Begin: fi.Begin, Length: fi.Length}, true
}
