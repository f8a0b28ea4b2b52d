package machofile

import (
	"os"
	"path/filepath"
)

// FindDSYMBundle returns the path to the DWARF file inside binaryPath's
// companion dSYM bundle, following the same
// "<path>.dSYM/Contents/Resources/DWARF/<basename>" convention the
// linker produces, or "" if no such file exists on disk. Grounded on
// machoFile_findDSYMBundle in the original implementation.
func FindDSYMBundle(binaryPath string) string {
	base := filepath.Base(binaryPath)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return ""
	}
	candidate := binaryPath + ".dSYM/Contents/Resources/DWARF/" + base
	if _, err := os.Stat(candidate); err != nil {
		return ""
	}
	return candidate
}

// MatchesUUID reports whether a dSYM candidate's own UUID (as parsed
// from its Mach-O header) matches the original binary's, guarding
// against a stale bundle left behind by an older build.
func MatchesUUID(binary, dsym *File) bool {
	return binary.HasUUID && dsym.HasUUID && binary.UUID == dsym.UUID
}
