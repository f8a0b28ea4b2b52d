// Package elffile parses 32- and 64-bit ELF images: section headers,
// the symbol table, DWARF debug sections and writable+allocated data
// regions. Constants are hand-declared the way machofile declares its
// own Mach-O constants - never imported from debug/elf.
package elffile

const (
	classNone = 0
	class32   = 1
	class64   = 2

	dataNone = 0
	data2LSB = 1
	data2MSB = 2
)

const (
	shnUndef  = 0
	shnXindex = 0xffff

	shtSymtab = 2
	shtStrtab = 3
	shtDynsym = 11

	shfWrite = 0x1
	shfAlloc = 0x2

	sttFunc   = 2
	sttObject = 1

	pnXnum = 0xffff
)
