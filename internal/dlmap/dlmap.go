// Package dlmap discovers the runtime images (the main executable and
// its loaded shared libraries) mapped into this process and answers
// address-to-image and name-to-image lookups against them. Grounded
// on original_source/src/dlMapper/dlMapper.c.
package dlmap

import (
	"sort"
	"sync"

	"github.com/mhahnFr/CallstackLibrary/internal/binaryfile"
	"github.com/mhahnFr/CallstackLibrary/internal/log"
	"github.com/mhahnFr/CallstackLibrary/internal/pathutil"
)

var logger = log.Logger("dlmap")

// Image is one loaded runtime image: its address range in this
// process and the Handle used to resolve addresses within it,
// mirroring struct loadedLibInfo.
type Image struct {
	Handle binaryfile.Handle
	Start  uint64
	End    uint64

	FileNameOriginal string
	FileNameAbsolute string
	FileNameRelative string
}

func newImage(path string, start, end uint64, h binaryfile.Handle) *Image {
	return &Image{
		Handle:           h,
		Start:            start,
		End:              end,
		FileNameOriginal: path,
		FileNameAbsolute: pathutil.Absolute(path),
		FileNameRelative: pathutil.Relative(path),
	}
}

// Mapper holds the discovered set of loaded images, sorted by start
// address for binary search, mirroring dlMapper's static state -
// exposed here as a value instead of package-level globals so tests
// can use an independent instance.
type Mapper struct {
	mu     sync.RWMutex
	images []*Image
	inited bool
}

// Init discovers and sorts the currently loaded images. Calling it
// again once already initialized is a no-op returning true, matching
// dlMapper_init.
func (m *Mapper) Init() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inited {
		return true
	}

	images, err := loadLoadedImages()
	if err != nil {
		logger.Debug().Err(err).Msg("failed to enumerate loaded images")
		m.images = nil
		m.inited = false
		return false
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Start < images[j].Start })
	m.images = images
	m.inited = true
	return true
}

func (m *Mapper) IsInited() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inited
}

// BinaryFileForAddress finds the image address falls into. When no
// image's main range contains it and includeRegions is set, each
// image's TLS regions (Handle.GetTLSRegions) are searched as a
// fallback, mirroring dlMapper_binaryFileForAddress. ELF images report
// no TLS regions, and the writable+allocated sections elffile collects
// are not searched.
func (m *Mapper) BinaryFileForAddress(address uint64, includeRegions bool) *Image {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.inited {
		return nil
	}

	idx := sort.Search(len(m.images), func(i int) bool { return m.images[i].Start > address }) - 1
	if idx >= 0 && idx < len(m.images) {
		img := m.images[idx]
		if address >= img.Start && address < img.End {
			return img
		}
	}

	if includeRegions {
		for _, img := range m.images {
			for _, r := range img.Handle.GetTLSRegions() {
				if address >= r.Begin && address < r.End {
					return img
				}
			}
		}
	}
	return nil
}

// BinaryFileForFileName finds the image known under fileName, tried
// against its original, absolute and relative forms, mirroring
// dlMapper_binaryFileForFileName.
func (m *Mapper) BinaryFileForFileName(fileName string) *Image {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.inited {
		return nil
	}
	for _, img := range m.images {
		if fileName == img.FileNameOriginal || fileName == img.FileNameAbsolute || fileName == img.FileNameRelative {
			return img
		}
	}
	return nil
}

// Relativize converts address into the owning image's own coordinate
// space, mirroring dlMapper_relativize. ok is false when address is
// not inside any loaded image.
func (m *Mapper) Relativize(address uint64) (img *Image, offset uint64, ok bool) {
	img = m.BinaryFileForAddress(address, false)
	if img == nil {
		return nil, 0, false
	}
	return img, img.Handle.Relativize(address), true
}

// Absolutize is Relativize's inverse given the image's file name,
// mirroring dlMapper_absolutize.
func (m *Mapper) Absolutize(offset uint64, binaryName string) (uint64, bool) {
	img := m.BinaryFileForFileName(binaryName)
	if img == nil {
		return 0, false
	}
	return img.Handle.Absolutize(offset), true
}

// LoadedBinaries returns the discovered images.
func (m *Mapper) LoadedBinaries() []*Image {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Image{}, m.images...)
}

// Deinit destroys every held Handle and resets the Mapper, mirroring
// dlMapper_deinit.
func (m *Mapper) Deinit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, img := range m.images {
		img.Handle.Destroy()
	}
	m.images = nil
	m.inited = false
}

var global Mapper

func Init() bool               { return global.Init() }
func IsInited() bool           { return global.IsInited() }
func Deinit()                  { global.Deinit() }
func LoadedBinaries() []*Image { return global.LoadedBinaries() }

func BinaryFileForAddress(address uint64, includeRegions bool) *Image {
	return global.BinaryFileForAddress(address, includeRegions)
}

func BinaryFileForFileName(fileName string) *Image {
	return global.BinaryFileForFileName(fileName)
}

func Relativize(address uint64) (*Image, uint64, bool) {
	return global.Relativize(address)
}

func Absolutize(offset uint64, binaryName string) (uint64, bool) {
	return global.Absolutize(offset, binaryName)
}
