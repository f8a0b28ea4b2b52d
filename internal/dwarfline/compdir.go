package dwarfline

// abbrevAttr is one (attribute, form) pair from a .debug_abbrev
// declaration.
type abbrevAttr struct {
	name  uint64
	form  uint64
	value int64 // only meaningful when form == dwFormImplicitConst
}

// abbrevDecl finds the declaration for abbreviationCode starting at
// offset in .debug_abbrev, returning its name/form pairs in
// declaration order. DW_FORM_implicit_const values are consumed
// (and recorded) even for attributes the caller does not want.
func abbrevDecl(section []byte, abbreviationCode, offset uint64, version uint16) []abbrevAttr {
	c := newCursor(section, nil)
	c.off = int(offset)

	for {
		if c.eof() {
			return nil
		}
		code := c.uleb()
		if code == 0 {
			continue
		}
		c.uleb()   // tag
		c.u8()     // has-children

		var attrs []abbrevAttr
		for {
			name := c.uleb()
			form := c.uleb()
			var value int64
			if version >= 5 && form == dwFormImplicitConst {
				value = c.sleb()
			}
			if name == 0 && form == 0 {
				break
			}
			attrs = append(attrs, abbrevAttr{name, form, value})
		}
		if code == abbreviationCode {
			return attrs
		}
		if c.eof() {
			return nil
		}
	}
}

// cuInfo is the handful of facts the line-program header needs from
// the first compilation unit of .debug_info.
type cuInfo struct {
	compDir        string
	strOffsetsBase uint64
	hasStrOffsets  bool
}

// readFirstCompDir performs the minimal .debug_info/.debug_abbrev walk
// described in spec.md §4.3: find the first compilation unit, locate
// its DW_AT_comp_dir (and, for DWARF5, DW_AT_str_offsets_base) by
// consulting .debug_abbrev for the attribute's form.
func (p *program) readFirstCompDir() cuInfo {
	info := cuInfo{}
	if len(p.sections.Info) == 0 || len(p.sections.Abbrev) == 0 {
		return info
	}

	defer func() { recover() }() // malformed .debug_info aborts the walk only

	c := newCursor(p.sections.Info, p.order)
	_, is64 := c.initialLength()
	version := c.u16()

	var abbrevOffset uint64
	var addressSize uint8
	if version >= 5 {
		c.u8() // unit_type
		addressSize = c.u8()
		abbrevOffset = c.offset(is64)
	} else {
		abbrevOffset = c.offset(is64)
		addressSize = c.u8()
	}
	_ = addressSize

	code := c.uleb()
	attrs := abbrevDecl(p.sections.Abbrev, code, abbrevOffset, version)
	if attrs == nil {
		return info
	}

	for _, a := range attrs {
		switch a.name {
		case dwAtCompDir:
			info.compDir = p.readString(c, a.form)
		case dwAtStrOffsetsBase:
			if a.form == dwFormImplicitConst {
				info.strOffsetsBase = uint64(a.value)
			} else if a.form == dwFormSecOffset {
				info.strOffsetsBase = c.offset(is64)
			} else {
				p.consumeForm(c, a.form)
				continue
			}
			info.hasStrOffsets = true
		default:
			if a.form == dwFormImplicitConst {
				continue
			}
			if !p.consumeForm(c, a.form) {
				return info
			}
		}
	}
	return info
}
