//go:build !linux
// +build !linux

package dlmap

import (
	"os"

	"github.com/mhahnFr/CallstackLibrary/internal/binaryfile"
)

// loadLoadedImages falls back to the single main executable on
// platforms other than Linux: enumerating the full set of loaded
// Mach-O libraries the way dlMapper/macho/dlMapper.c does requires
// dyld's _dyld_image_count/_dyld_get_image_header and the
// TASK_DYLD_INFO Mach call, both of which need cgo bindings this
// library does not carry - see DESIGN.md for the tradeoff. The main
// executable is still resolved so single-binary callstacks keep
// working; its start address is unknown without those APIs, so symbol
// offsets are reported relative to its on-disk layout instead of its
// true runtime load address.
func loadLoadedImages() ([]*Image, error) {
	exe, err := os.Executable()
	if err != nil {
		logger.Debug().Err(err).Msg("could not determine the main executable path")
		return nil, nil
	}

	h, err := binaryfile.Open(exe, 0, true)
	if err != nil {
		logger.Debug().Err(err).Str("path", exe).Msg("could not open the main executable")
		return nil, nil
	}

	logger.Warn().Msg("loaded shared libraries could not be enumerated on this platform; callstacks may be truncated")
	return []*Image{newImage(exe, 0, ^uint64(0), h)}, nil
}
