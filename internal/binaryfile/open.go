package binaryfile

import (
	"fmt"
	"os"

	"github.com/mhahnFr/CallstackLibrary/internal/elffile"
	"github.com/mhahnFr/CallstackLibrary/internal/machofile"
)

// Open sniffs the magic number of the file at name and constructs the
// matching Handle, without eagerly parsing the rest of it - actual
// parsing stays behind MaybeParse, mirroring binaryFile_new's
// format-dispatch in original_source/src/parser/file/binaryFile.c.
func Open(name string, startAddress uint64, inMemory bool) (Handle, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	var header [4]byte
	_, err = f.Read(header[:])
	f.Close()
	if err != nil {
		return nil, err
	}

	switch {
	case machofile.LooksLike(header[:]):
		return NewMachOHandle(name, startAddress, inMemory), nil
	case elffile.LooksLike(header[:]):
		return NewELFHandle(name, startAddress, inMemory), nil
	default:
		return nil, fmt.Errorf("binaryfile: %s is neither a Mach-O nor an ELF image", name)
	}
}
