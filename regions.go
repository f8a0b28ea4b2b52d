package callstack

import "github.com/mhahnFr/CallstackLibrary/internal/dlmap"

// RegionInfo is a named address range belonging to a loaded image,
// returned by GetLoadedRegions and GetTLSRegions.
type RegionInfo struct {
	Begin, End   uint64
	Name         string
	NameRelative string
}

// GetLoadedRegions flattens every loaded image's own [start,end)
// extent into a single sequence, per regions_getLoadedRegions.
func GetLoadedRegions() []RegionInfo {
	dlmap.Init()
	defer maybeClearCaches()

	images := dlmap.LoadedBinaries()
	out := make([]RegionInfo, 0, len(images))
	for _, img := range images {
		out = append(out, RegionInfo{
			Begin:        img.Start,
			End:          img.End,
			Name:         img.FileNameAbsolute,
			NameRelative: img.FileNameRelative,
		})
	}
	return out
}

// GetTLSRegions flattens every loaded image's thread-local-storage
// regions into a single sequence, per regions_getTLSRegions. On ELF
// images this is currently always empty - see internal/binaryfile's
// ELFHandle.GetTLSRegions.
func GetTLSRegions() []RegionInfo {
	dlmap.Init()
	defer maybeClearCaches()

	var out []RegionInfo
	for _, img := range dlmap.LoadedBinaries() {
		img.Handle.MaybeParse()
		for _, r := range img.Handle.GetTLSRegions() {
			out = append(out, RegionInfo{
				Begin:        r.Begin,
				End:          r.End,
				Name:         img.FileNameAbsolute,
				NameRelative: img.FileNameRelative,
			})
		}
	}
	return out
}
