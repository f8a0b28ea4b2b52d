package elffile

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildMinimalELF64 assembles a tiny, well-formed little-endian
// 64-bit ELF image with the null section 0, one section string table,
// one .symtab and one .strtab, and a single STT_FUNC symbol.
func buildMinimalELF64(t *testing.T) []byte {
	t.Helper()
	order := binary.LittleEndian

	shstrtab := []byte("\x00.shstrtab\x00.symtab\x00.strtab\x00")
	shstrtabOff := uint64(1)
	symtabNameOff := uint64(11)
	strtabNameOff := uint64(19)

	strtab := []byte("\x00main\x00")
	symNameOff := uint32(1)

	// One Elf64_Sym for "main".
	sym := make([]byte, 24)
	order.PutUint32(sym[0:4], symNameOff)
	sym[4] = 2 // STT_FUNC
	sym[5] = 0
	order.PutUint16(sym[6:8], 1)
	order.PutUint64(sym[8:16], 0x1000) // st_value
	order.PutUint64(sym[16:24], 0x40)  // st_size

	// Layout the file: [ehdr][shstrtab][strtab][symtab-syms][4x shdr]
	ehdrSize := 64
	shstrtabStart := ehdrSize
	strtabStart := shstrtabStart + len(shstrtab)
	symtabStart := strtabStart + len(strtab)
	shoff := symtabStart + len(sym)

	buf := make([]byte, shoff+4*64)

	copy(buf[0:4], []byte{0x7f, 'E', 'L', 'F'})
	buf[4] = class64
	buf[5] = data2LSB
	buf[6] = 1
	order.PutUint16(buf[0x10:], 2)                  // e_type
	order.PutUint16(buf[0x12:], 0x3e)                // e_machine
	order.PutUint32(buf[0x14:], 1)                   // e_version
	order.PutUint64(buf[0x28:], uint64(shoff))       // e_shoff
	order.PutUint16(buf[0x3a:], 64)                  // e_shentsize
	order.PutUint16(buf[0x3c:], 4)                   // e_shnum
	order.PutUint16(buf[0x3e:], 1)                   // e_shstrndx -> section 1

	copy(buf[shstrtabStart:], shstrtab)
	copy(buf[strtabStart:], strtab)
	copy(buf[symtabStart:], sym)

	writeShdr := func(idx int, nameOff uint32, sType uint32, flags, addr, offset, size uint64) {
		off := shoff + idx*64
		order.PutUint32(buf[off:], nameOff)
		order.PutUint32(buf[off+4:], sType)
		order.PutUint64(buf[off+8:], flags)
		order.PutUint64(buf[off+16:], addr)
		order.PutUint64(buf[off+24:], offset)
		order.PutUint64(buf[off+32:], size)
	}
	// Section 0 is the all-zero SHN_UNDEF entry.
	writeShdr(1, uint32(shstrtabOff), shtStrtab, 0, 0, uint64(shstrtabStart), uint64(len(shstrtab)))
	writeShdr(2, uint32(symtabNameOff), shtSymtab, 0, 0, uint64(symtabStart), uint64(len(sym)))
	writeShdr(3, uint32(strtabNameOff), shtStrtab, 0, 0, uint64(strtabStart), uint64(len(strtab)))

	// symtab's sh_link must point at the strtab section (index 3).
	order.PutUint32(buf[shoff+2*64+40:], 3)

	_ = shstrtabOff
	return buf
}

func TestParseFindsSymbol(t *testing.T) {
	data := buildMinimalELF64(t)
	f, err := Parse(data, "/tmp/a.out")
	require.NoError(t, err)
	require.Len(t, f.Functions, 1)
	assert.Equal(t, "main", f.Functions[0].LinkedName)
	assert.Equal(t, uint64(0x1000), f.Functions[0].StartAddress)
	assert.Equal(t, uint64(0x40), f.Functions[0].Length)
}

func TestParseRejectsBadMagic(t *testing.T) {
	_, err := Parse([]byte("not an elf file padding padding"), "/tmp/bad")
	assert.Error(t, err)
}
