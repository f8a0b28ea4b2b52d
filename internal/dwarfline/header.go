package dwarfline

import (
	"encoding/binary"

	"github.com/mhahnFr/CallstackLibrary/internal/pathutil"
)

// fileNameEntry is one entry of the v2-v4 file-name table:
// (name, dirIndex, mtime, size) as emitted by DW_LNE_define_file or
// the header's file-name list.
type fileNameEntry struct {
	name      string
	dirIndex  uint64
	timestamp uint64
	size      uint64
}

// fileAttr is one v5 directory/file entry, built from its entry-format
// table (DW_LNCT_path/directory_index/timestamp/size/MD5).
type fileAttr struct {
	path      string
	index     uint64
	timestamp uint64
	size      uint64
	md5       []byte
}

// program holds the fully parsed state of one line-number program:
// registers, header fields, and the version-specific file tables.
type program struct {
	sections  Sections
	order     binary.ByteOrder
	bigEndian bool
	bit64     bool
	version   uint16

	addressSize int

	minInstrLen    uint8
	maxOpsPerInstr uint8
	defaultIsStmt  bool
	lineBase       int8
	lineRange      uint8
	opcodeBase     uint8
	stdOpcodeLens  []uint8

	// v2-v4
	includeDirs []string
	fileNamesV4 []fileNameEntry

	// v5
	dirEntries  []fileAttr
	fileEntries []fileAttr

	compDir           string
	strOffsetsBase    uint64
	strOffsetsBaseSet bool
}

// parseHeader parses the line-program header for the program's
// version, dispatching between the v2-v4 layout and the v5 layout.
func (p *program) parseHeader(c *cursor) bool {
	if p.version >= 5 {
		return p.parseHeaderV5(c)
	}
	return p.parseHeaderV4(c)
}

func (p *program) parseHeaderV4(c *cursor) bool {
	c.offset(p.bit64) // header_length, unused: we derive bounds from unit_length

	p.minInstrLen = c.u8()
	p.maxOpsPerInstr = 1
	if p.version == 4 {
		p.maxOpsPerInstr = c.u8()
	}
	p.defaultIsStmt = c.u8() != 0
	p.lineBase = c.i8()
	p.lineRange = c.u8()
	p.opcodeBase = c.u8()

	p.stdOpcodeLens = make([]uint8, 0, int(p.opcodeBase)-1)
	for i := uint8(1); i < p.opcodeBase; i++ {
		p.stdOpcodeLens = append(p.stdOpcodeLens, c.u8())
	}

	for c.buf[c.off] != 0 {
		p.includeDirs = append(p.includeDirs, c.cstring())
	}
	c.skip(1)

	for c.buf[c.off] != 0 {
		name := c.cstring()
		dirIndex := c.uleb()
		mtime := c.uleb()
		size := c.uleb()
		p.fileNamesV4 = append(p.fileNamesV4, fileNameEntry{name, dirIndex, mtime, size})
	}
	c.skip(1)
	return true
}

func (p *program) parseHeaderV5(c *cursor) bool {
	p.addressSize = int(c.u8())
	c.u8() // segment_selector_size

	c.offset(p.bit64) // header_length, unused

	p.minInstrLen = c.u8()
	p.maxOpsPerInstr = c.u8()
	p.defaultIsStmt = c.u8() != 0
	p.lineBase = c.i8()
	p.lineRange = c.u8()
	p.opcodeBase = c.u8()

	p.stdOpcodeLens = make([]uint8, 0, int(p.opcodeBase)-1)
	for i := uint8(1); i < p.opcodeBase; i++ {
		p.stdOpcodeLens = append(p.stdOpcodeLens, c.u8())
	}

	dirs, ok := p.parseV5EntryTable(c)
	if !ok {
		return false
	}
	p.dirEntries = dirs

	files, ok := p.parseV5EntryTable(c)
	if !ok {
		return false
	}
	p.fileEntries = files
	return true
}

// parseV5EntryTable parses one of the two v5 entry-format tables
// (directories, then files): an entry-format list of (content-type,
// form) pairs, followed by that many attribute tuples.
func (p *program) parseV5EntryTable(c *cursor) ([]fileAttr, bool) {
	formatCount := int(c.u8())
	type entryFormat struct{ contentType, form uint64 }
	formats := make([]entryFormat, formatCount)
	for i := range formats {
		formats[i] = entryFormat{c.uleb(), c.uleb()}
	}

	count := c.uleb()
	entries := make([]fileAttr, 0, count)
	for i := uint64(0); i < count; i++ {
		var attr fileAttr
		for _, f := range formats {
			switch f.contentType {
			case lnctPath:
				attr.path = p.readString(c, f.form)
			case lnctDirectoryIdx:
				v, ok := p.readIndexForm(c, f.form)
				if !ok {
					return nil, false
				}
				attr.index = v
			case lnctTimestamp:
				v, ok := p.readTimestampForm(c, f.form)
				if !ok {
					return nil, false
				}
				attr.timestamp = v
			case lnctSize:
				v, ok := p.readSizeForm(c, f.form)
				if !ok {
					return nil, false
				}
				attr.size = v
			case lnctMD5:
				if f.form != dwFormData16 {
					return nil, false
				}
				attr.md5 = c.bytes(16)
			default:
				if !p.consumeForm(c, f.form) {
					return nil, false
				}
			}
		}
		entries = append(entries, attr)
	}
	return entries, true
}

func (p *program) readIndexForm(c *cursor, form uint64) (uint64, bool) {
	switch form {
	case dwFormData1:
		return uint64(c.u8()), true
	case dwFormData2:
		return uint64(c.u16()), true
	case dwFormUdata:
		return c.uleb(), true
	default:
		return 0, false
	}
}

func (p *program) readTimestampForm(c *cursor, form uint64) (uint64, bool) {
	switch form {
	case dwFormUdata:
		return c.uleb(), true
	case dwFormData4:
		return uint64(c.u32()), true
	case dwFormData8:
		return c.u64(), true
	case dwFormBlock:
		n := int(c.uleb())
		c.skip(n)
		return 0, true
	default:
		return 0, false
	}
}

func (p *program) readSizeForm(c *cursor, form uint64) (uint64, bool) {
	switch form {
	case dwFormUdata:
		return c.uleb(), true
	case dwFormData1:
		return uint64(c.u8()), true
	case dwFormData2:
		return uint64(c.u16()), true
	case dwFormData4:
		return uint64(c.u32()), true
	case dwFormData8:
		return c.u64(), true
	default:
		return 0, false
	}
}

// fileName resolves a file-table index into a FileRef, joining the
// recorded directory and the compilation directory the way
// dwarf_pathConcatenate does.
func (p *program) fileName(file uint64) FileRef {
	if p.version >= 5 {
		if file >= uint64(len(p.fileEntries)) {
			return FileRef{}
		}
		entry := p.fileEntries[file]
		dir := p.compDir
		if entry.index < uint64(len(p.dirEntries)) {
			dir = p.resolveDir(p.dirEntries[entry.index].path)
		}
		return FileRef{
			Name:      pathutil.Join(dir, entry.path),
			Timestamp: entry.timestamp,
			Size:      entry.size,
		}
	}

	if file == 0 || int(file) > len(p.fileNamesV4) {
		return FileRef{}
	}
	entry := p.fileNamesV4[file-1]
	dir := p.compDir
	if entry.dirIndex > 0 && int(entry.dirIndex) <= len(p.includeDirs) {
		dir = p.resolveDir(p.includeDirs[entry.dirIndex-1])
	}
	return FileRef{
		Name:      pathutil.Join(dir, entry.name),
		DirIndex:  entry.dirIndex,
		Timestamp: entry.timestamp,
		Size:      entry.size,
	}
}

// resolveDir joins dir with the compilation directory unless dir is
// already absolute.
func (p *program) resolveDir(dir string) string {
	if dir == "" {
		return p.compDir
	}
	if dir[0] == '/' {
		return dir
	}
	return pathutil.Join(p.compDir, dir)
}
