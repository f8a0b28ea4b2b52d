package dwarfline

import (
	"bytes"
	"encoding/binary"

	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeUint/encodeInt build the LEB128 test fixtures this file needs;
// internal/leb128 is decode-only, matching what the parser itself
// requires.
func encodeUint(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out
}

func encodeInt(v int64) []byte {
	var out []byte
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

// v4Header builds a DWARF v2-v4 .debug_line header (header_length's
// value is never consulted by the parser, so it is left at zero) plus
// one file "test.c" with no include directory.
func v4Header(version uint16) *bytes.Buffer {
	var header bytes.Buffer
	binary.Write(&header, binary.LittleEndian, uint32(0)) // header_length, unused
	header.WriteByte(1)                                   // minimum_instruction_length
	if version == 4 {
		header.WriteByte(1) // maximum_operations_per_instruction
	}
	header.WriteByte(1)                 // default_is_stmt
	header.WriteByte(0xfb)              // line_base = -5
	header.WriteByte(14)                // line_range
	header.WriteByte(13)                // opcode_base
	header.Write(make([]byte, 12))      // standard_opcode_lengths (unused by known opcodes)
	header.WriteByte(0)                 // include_directories terminator (none)
	header.WriteString("test.c")
	header.WriteByte(0)
	header.Write(encodeUint(0)) // dir_index
	header.Write(encodeUint(0)) // mtime
	header.Write(encodeUint(0)) // size
	header.WriteByte(0)                // file_names terminator
	return &header
}

func wrapUnit(version uint16, headerAndProgram []byte) []byte {
	var unit bytes.Buffer
	unit.Write(headerAndProgram)
	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, uint32(2+unit.Len()))
	binary.Write(&out, binary.LittleEndian, version)
	out.Write(unit.Bytes())
	return out.Bytes()
}

func extSetAddress(addr uint64) []byte {
	var b bytes.Buffer
	b.WriteByte(0x00)
	b.WriteByte(0x09) // length: 1 (sub-opcode) + 8 (address)
	b.WriteByte(lneSetAddress)
	addrBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(addrBytes, addr)
	b.Write(addrBytes)
	return b.Bytes()
}

func extEndSequence() []byte {
	return []byte{0x00, 0x01, lneEndSequence}
}

func TestParseV4BasicRow(t *testing.T) {
	header := v4Header(4)

	var program bytes.Buffer
	program.Write(extSetAddress(0x1000))
	program.WriteByte(lnsAdvancePC)
	program.Write(encodeUint(0x20))
	program.WriteByte(lnsAdvanceLine)
	program.Write(encodeInt(9)) // line 1 -> 10
	program.WriteByte(lnsCopy)
	program.Write(extEndSequence())

	unit := wrapUnit(4, append(header.Bytes(), program.Bytes()...))

	var rows []Row
	err := Parse(Sections{Line: unit}, binary.LittleEndian, func(r Row) {
		rows = append(rows, r)
	})
	require.NoError(t, err)
	require.Len(t, rows, 2) // the lnsCopy row, then the end_sequence row

	first := rows[0]
	assert.Equal(t, uint64(0x1020), first.Address)
	assert.Equal(t, int64(10), first.Line)
	assert.Equal(t, "test.c", first.File.Name)
	assert.True(t, first.IsStmt)
	assert.False(t, first.EndSequence)

	last := rows[1]
	assert.True(t, last.EndSequence)
}

func TestParseV4SpecialOpcode(t *testing.T) {
	header := v4Header(2)

	// opcode_base=13, line_base=-5, line_range=14: a special opcode
	// of 0x16 (22) gives adjusted=22-13=9, operation_advance=9/14=0,
	// line_advance=-5+(9%14)=4.
	var program bytes.Buffer
	program.Write(extSetAddress(0x2000))
	program.WriteByte(22)
	program.Write(extEndSequence())

	unit := wrapUnit(2, append(header.Bytes(), program.Bytes()...))

	var rows []Row
	err := Parse(Sections{Line: unit}, binary.LittleEndian, func(r Row) {
		rows = append(rows, r)
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, uint64(0x2000), rows[0].Address)
	assert.Equal(t, int64(5), rows[0].Line) // default line 1 + advance 4
}

func TestParseV4NegateStmtAndColumn(t *testing.T) {
	header := v4Header(4)

	var program bytes.Buffer
	program.Write(extSetAddress(0x3000))
	program.WriteByte(lnsSetColumn)
	program.Write(encodeUint(7))
	program.WriteByte(lnsNegateStmt)
	program.WriteByte(lnsCopy)
	program.Write(extEndSequence())

	unit := wrapUnit(4, append(header.Bytes(), program.Bytes()...))

	var rows []Row
	err := Parse(Sections{Line: unit}, binary.LittleEndian, func(r Row) {
		rows = append(rows, r)
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, uint64(7), rows[0].Column)
	assert.False(t, rows[0].IsStmt) // negated from the default true
}

func TestParseConcatenatedUnits(t *testing.T) {
	header := v4Header(4)

	var program1 bytes.Buffer
	program1.Write(extSetAddress(0x1000))
	program1.WriteByte(lnsCopy)
	program1.Write(extEndSequence())
	unit1 := wrapUnit(4, append(append([]byte{}, header.Bytes()...), program1.Bytes()...))

	var program2 bytes.Buffer
	program2.Write(extSetAddress(0x5000))
	program2.WriteByte(lnsCopy)
	program2.Write(extEndSequence())
	unit2 := wrapUnit(4, append(append([]byte{}, header.Bytes()...), program2.Bytes()...))

	var rows []Row
	err := Parse(Sections{Line: append(unit1, unit2...)}, binary.LittleEndian, func(r Row) {
		rows = append(rows, r)
	})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, uint64(0x1000), rows[0].Address)
	assert.Equal(t, uint64(0x5000), rows[2].Address)
}

// v5PathOnlyTable encodes a v5 directory/file entry-format table
// with a single DW_LNCT_path / form column, followed by count entries
// each consisting of one offset into str.
func v5PathOnlyTable(offsets []uint64, form uint64, is64 bool) []byte {
	var b bytes.Buffer
	b.WriteByte(1) // format_count
	b.Write(encodeUint(lnctPath))
	b.Write(encodeUint(form))
	b.Write(encodeUint(uint64(len(offsets))))
	for _, off := range offsets {
		if is64 {
			var tmp [8]byte
			binary.LittleEndian.PutUint64(tmp[:], off)
			b.Write(tmp[:])
		} else {
			var tmp [4]byte
			binary.LittleEndian.PutUint32(tmp[:], uint32(off))
			b.Write(tmp[:])
		}
	}
	return b.Bytes()
}

func TestParseV5LineStrp(t *testing.T) {
	lineStr := []byte("/comp/dir\x00main.c\x00")
	compDirOff := uint64(0)
	fileOff := uint64(len("/comp/dir\x00"))

	var header bytes.Buffer
	header.WriteByte(8) // address_size
	header.WriteByte(0) // segment_selector_size
	binary.Write(&header, binary.LittleEndian, uint32(0)) // header_length, unused
	header.WriteByte(1)            // minimum_instruction_length
	header.WriteByte(1)            // maximum_operations_per_instruction
	header.WriteByte(1)            // default_is_stmt
	header.WriteByte(0xfb)         // line_base = -5
	header.WriteByte(14)           // line_range
	header.WriteByte(13)           // opcode_base
	header.Write(make([]byte, 12)) // standard_opcode_lengths

	header.Write(v5PathOnlyTable([]uint64{compDirOff}, dwFormLineStrp, false))
	header.Write(v5PathOnlyTable([]uint64{fileOff}, dwFormLineStrp, false))

	var program bytes.Buffer
	program.Write(extSetAddress(0x4000))
	program.WriteByte(lnsSetFile)
	program.Write(encodeUint(0))
	program.WriteByte(lnsCopy)
	program.Write(extEndSequence())

	unit := wrapUnit(5, append(header.Bytes(), program.Bytes()...))

	var rows []Row
	err := Parse(Sections{Line: unit, LineStr: lineStr}, binary.LittleEndian, func(r Row) {
		rows = append(rows, r)
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// The directory table supplies an absolute "/comp/dir", which
	// Join keeps verbatim and concatenates with the file's own name.
	assert.Equal(t, "/comp/dir/main.c", rows[0].File.Name)
}

// v5PathOnlyTableStrx1 encodes a v5 entry-format table whose single
// DW_LNCT_path column uses DW_FORM_strx1: each entry is a raw 1-byte
// index into .debug_str_offsets, not an inline string offset.
func v5PathOnlyTableStrx1(indices []byte) []byte {
	var b bytes.Buffer
	b.WriteByte(1) // format_count
	b.Write(encodeUint(lnctPath))
	b.Write(encodeUint(dwFormStrx1))
	b.Write(encodeUint(uint64(len(indices))))
	b.Write(indices)
	return b.Bytes()
}

func TestParseV5Strx(t *testing.T) {
	str := []byte("strx-dir\x00strx-file.c\x00")
	dirOff := uint64(0)
	fileOff := uint64(len("strx-dir\x00"))

	var strOffsets bytes.Buffer
	binary.Write(&strOffsets, binary.LittleEndian, uint32(8)) // unit length covering two 4-byte entries
	binary.Write(&strOffsets, binary.LittleEndian, uint32(dirOff))
	binary.Write(&strOffsets, binary.LittleEndian, uint32(fileOff))

	var header bytes.Buffer
	header.WriteByte(8)
	header.WriteByte(0)
	binary.Write(&header, binary.LittleEndian, uint32(0))
	header.WriteByte(1)
	header.WriteByte(1)
	header.WriteByte(1)
	header.WriteByte(0xfb)
	header.WriteByte(14)
	header.WriteByte(13)
	header.Write(make([]byte, 12))

	header.Write(v5PathOnlyTableStrx1([]byte{0}))
	header.Write(v5PathOnlyTableStrx1([]byte{1}))

	var program bytes.Buffer
	program.Write(extSetAddress(0x6000))
	program.WriteByte(lnsSetFile)
	program.Write(encodeUint(0))
	program.WriteByte(lnsCopy)
	program.Write(extEndSequence())

	unit := wrapUnit(5, append(header.Bytes(), program.Bytes()...))

	var rows []Row
	err := Parse(Sections{Line: unit, Str: str, StrOffsets: strOffsets.Bytes()}, binary.LittleEndian, func(r Row) {
		rows = append(rows, r)
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// The directory entry resolves to the relative "strx-dir", joined
	// with the compilation directory (empty here) then the file name.
	assert.Equal(t, "strx-dir/strx-file.c", rows[0].File.Name)
}

func TestParseMalformedSectionDoesNotPanic(t *testing.T) {
	err := Parse(Sections{Line: []byte{1, 2, 3}}, binary.LittleEndian, func(Row) {})
	assert.Error(t, err)
}
