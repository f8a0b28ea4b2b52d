package dwarfline

// readString resolves a string-shaped DWARF attribute form, following
// the indirection rules of spec.md §4.3: DW_FORM_string is inline,
// DW_FORM_strp/line_strp/strp_sup index into .debug_str/.debug_line_str,
// and the DW_FORM_strx family indexes into .debug_str_offsets
// (optionally relative to strOffsetsBase) before landing in .debug_str.
func (p *program) readString(c *cursor, form uint64) string {
	switch form {
	case dwFormString:
		return c.cstring()

	case dwFormStrp:
		off := c.offset(p.bit64)
		return cStringAt(p.sections.Str, off)

	case dwFormLineStrp:
		off := c.offset(p.bit64)
		return cStringAt(p.sections.LineStr, off)

	case dwFormStrpSup:
		// No supplementary string section is modeled; consume the
		// offset and report an empty string.
		c.offset(p.bit64)
		return ""

	case dwFormStrx:
		return p.strFromIndex(c.uleb())

	case dwFormStrx1:
		return p.strFromIndex(uint64(c.u8()))

	case dwFormStrx2:
		return p.strFromIndex(uint64(c.u16()))

	case dwFormStrx3:
		b := c.bytes(3)
		v := uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16
		if p.order16() {
			v = uint64(b[2]) | uint64(b[1])<<8 | uint64(b[0])<<16
		}
		return p.strFromIndex(v)

	case dwFormStrx4:
		return p.strFromIndex(uint64(c.u32()))

	case dwFormIndirect:
		return p.readString(c, c.uleb())

	default:
		return ""
	}
}

// order16 reports whether the cursor's byte order is big-endian; used
// only by the 3-byte strx form, which has no native integer type.
func (p *program) order16() bool {
	return p.bigEndian
}

func cStringAt(section []byte, offset uint64) string {
	if section == nil || offset >= uint64(len(section)) {
		return ""
	}
	end := offset
	for end < uint64(len(section)) && section[end] != 0 {
		end++
	}
	return string(section[offset:end])
}

// strFromIndex resolves index through .debug_str_offsets into
// .debug_str, honoring strOffsetsBase when the header supplied one.
func (p *program) strFromIndex(index uint64) string {
	off, ok := p.strOffsetFromTable(index)
	if !ok {
		return ""
	}
	return cStringAt(p.sections.Str, off)
}

func (p *program) strOffsetFromTable(index uint64) (uint64, bool) {
	table := p.sections.StrOffsets
	if len(table) == 0 {
		return 0, false
	}
	c := newCursor(table, p.order)
	size, is64 := c.initialLength()
	base := c.off
	if p.strOffsetsBaseSet {
		base = int(p.strOffsetsBase)
	}
	entrySize := 4
	count := size / 4
	if is64 {
		entrySize = 8
		count = size / 8
	}
	if index >= count {
		return 0, false
	}
	pos := base + int(index)*entrySize
	if pos+entrySize > len(table) {
		return 0, false
	}
	ec := newCursor(table[pos:], p.order)
	if is64 {
		return ec.u64(), true
	}
	return uint64(ec.u32()), true
}

// consumeForm advances c past one attribute value of the given form
// without materializing it, used when walking .debug_abbrev/.debug_info
// for attributes other than the handful the compilation-unit walk
// cares about. An unsupported form aborts the walk (spec error tier 5).
func (p *program) consumeForm(c *cursor, form uint64) bool {
	switch form {
	case dwFormAddr:
		c.skip(p.addressSize)
	case dwFormBlock1:
		n := int(c.u8())
		c.skip(n)
	case dwFormBlock2:
		n := int(c.u16())
		c.skip(n)
	case dwFormBlock4:
		n := int(c.u32())
		c.skip(n)
	case dwFormBlock, dwFormExprloc:
		n := int(c.uleb())
		c.skip(n)
	case dwFormFlag, dwFormStrx1, dwFormData1, dwFormRef1, dwFormAddrx1:
		c.skip(1)
	case dwFormStrx2, dwFormData2, dwFormRef2, dwFormAddrx2:
		c.skip(2)
	case dwFormStrx3, dwFormAddrx3:
		c.skip(3)
	case dwFormStrx4, dwFormData4, dwFormRef4, dwFormRefSup4, dwFormAddrx4:
		c.skip(4)
	case dwFormData8, dwFormRef8, dwFormRefSig8, dwFormRefSup8:
		c.skip(8)
	case dwFormData16:
		c.skip(16)
	case dwFormString:
		c.cstring()
	case dwFormStrp, dwFormLineStrp, dwFormStrpSup, dwFormSecOffset, dwFormRefAddr:
		c.skip(bit64Size(p.bit64))
	case dwFormSdata:
		c.sleb()
	case dwFormStrx, dwFormUdata, dwFormRefUdata, dwFormAddrx, dwFormLoclistx, dwFormRnglistx:
		c.uleb()
	case dwFormFlagPresent:
		// No data at all.
	case dwFormImplicitConst:
		// The value was already consumed alongside the abbreviation.
	case dwFormIndirect:
		return p.consumeForm(c, c.uleb())
	default:
		return false
	}
	return true
}

func bit64Size(is64 bool) int {
	if is64 {
		return 8
	}
	return 4
}
