//go:build linux
// +build linux

package dlmap

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mhahnFr/CallstackLibrary/internal/binaryfile"
	"github.com/mhahnFr/CallstackLibrary/internal/elffile"
)

// mapsEntry is one parsed /proc/self/maps line.
type mapsEntry struct {
	start, end, offset uint64
	path               string
}

func parseMapsLine(line string) (mapsEntry, bool) {
	fields := strings.Fields(line)
	if len(fields) < 6 {
		return mapsEntry{}, false
	}
	addrs := strings.SplitN(fields[0], "-", 2)
	if len(addrs) != 2 {
		return mapsEntry{}, false
	}
	start, err := strconv.ParseUint(addrs[0], 16, 64)
	if err != nil {
		return mapsEntry{}, false
	}
	end, err := strconv.ParseUint(addrs[1], 16, 64)
	if err != nil {
		return mapsEntry{}, false
	}
	offset, err := strconv.ParseUint(fields[2], 16, 64)
	if err != nil {
		return mapsEntry{}, false
	}
	path := fields[5]
	if !strings.HasPrefix(path, "/") {
		return mapsEntry{}, false
	}
	path = strings.TrimSuffix(path, " (deleted)")
	return mapsEntry{start: start, end: end, offset: offset, path: path}, true
}

// loadLoadedImages enumerates the ELF images currently mapped into
// this process by reading /proc/self/maps, grounded on the
// getRuntimeLoadAddress approach used for PIE binaries in
// other_examples (locating the real runtime load bias from the
// mappings) combined with elffile.ParseShallow for the image's own
// extent, since Linux has no equivalent of dl_iterate_phdr reachable
// from pure Go without cgo.
func loadLoadedImages() ([]*Image, error) {
	f, err := os.Open("/proc/self/maps")
	if err != nil {
		return nil, fmt.Errorf("dlmap: %w", err)
	}
	defer f.Close()

	bases := map[string]uint64{}
	var order []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		entry, ok := parseMapsLine(scanner.Text())
		if !ok {
			continue
		}
		base := entry.start - entry.offset
		if existing, seen := bases[entry.path]; !seen || base < existing {
			if !seen {
				order = append(order, entry.path)
			}
			bases[entry.path] = base
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("dlmap: %w", err)
	}

	var images []*Image
	for _, path := range order {
		base := bases[path]
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Debug().Err(err).Str("path", path).Msg("could not read mapped image")
			continue
		}
		if !elffile.LooksLike(data) {
			continue
		}
		shallow, err := elffile.ParseShallow(data, path)
		if err != nil {
			logger.Debug().Err(err).Str("path", path).Msg("could not parse mapped image's program headers")
			continue
		}

		h, err := binaryfile.Open(path, base, true)
		if err != nil {
			logger.Debug().Err(err).Str("path", path).Msg("could not open mapped image")
			continue
		}
		images = append(images, newImage(path, base, base+shallow.End, h))
	}
	return images, nil
}
