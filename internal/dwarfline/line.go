package dwarfline

import (
	"encoding/binary"

	"github.com/mhahnFr/CallstackLibrary/internal/log"
)

var logger = log.Logger("dwarfline")

// EmitFunc receives one decoded line-number-table row.
type EmitFunc func(Row)

// Parse interprets every line-number program found in sections.Line,
// emitting one Row per row via emit, per spec.md §4.3. It normalizes
// DWARF versions 2 through 5 behind a single driver; CUs are
// concatenated in .debug_line and are parsed one after another until
// the section is exhausted.
//
// order is the byte order recorded by the owning binary (ELF's
// EI_DATA, or native order for Mach-O, which is always little-endian
// on the architectures this library targets).
func Parse(sections Sections, order binary.ByteOrder, emit EmitFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn().Interface("panic", r).Msg("malformed .debug_line, aborting this unit")
			err = errMalformed
		}
	}()

	buf := sections.Line
	offset := 0
	for offset < len(buf) {
		consumed, perr := parseOneUnit(sections, order, buf[offset:], emit)
		if perr != nil {
			return perr
		}
		if consumed <= 0 {
			break
		}
		offset += consumed
	}
	return nil
}

type malformedError struct{ msg string }

func (e *malformedError) Error() string { return e.msg }

var errMalformed = &malformedError{"malformed DWARF line program"}

// parseOneUnit parses exactly one compilation unit's line-number
// program out of buf and returns the number of bytes it consumed.
func parseOneUnit(sections Sections, order binary.ByteOrder, buf []byte, emit EmitFunc) (int, error) {
	c := newCursor(buf, order)
	unitLength, is64 := c.initialLength()
	headerStart := c.off
	unitEnd := headerStart + int(unitLength)
	if unitEnd > len(buf) {
		unitEnd = len(buf)
	}

	version := c.u16()

	p := &program{
		sections:    sections,
		order:       order,
		bigEndian:   order == binary.BigEndian,
		bit64:       is64,
		version:     version,
		addressSize: 8,
	}

	cu := p.readFirstCompDir()
	p.compDir = cu.compDir
	p.strOffsetsBase = cu.strOffsetsBase
	p.strOffsetsBaseSet = cu.hasStrOffsets

	if !p.parseHeader(c) {
		return unitEnd, nil
	}

	runProgram(p, c, unitEnd, emit)
	return unitEnd, nil
}

// runProgram executes the line-number program's opcode stream from
// c's current offset through end, calling emit for every row the
// program produces.
func runProgram(p *program, c *cursor, end int, emit EmitFunc) {
	var (
		address       uint64
		opIndex       uint64
		file          uint64 = 1
		line          int64  = 1
		column        uint64
		isa           uint64
		discriminator uint64
	)
	isStmt := p.defaultIsStmt
	var basicBlock, endSequence, prologueEnd, epilogueBegin bool

	emitRow := func() {
		emit(Row{
			Address:       address,
			Line:          line,
			Column:        column,
			ISA:           isa,
			Discriminator: discriminator,
			File:          p.fileName(file),
			IsStmt:        isStmt,
			BasicBlock:    basicBlock,
			EndSequence:   endSequence,
			PrologueEnd:   prologueEnd,
			EpilogueBegin: epilogueBegin,
		})
	}

	advance := func(operationAdvance uint64) {
		if p.version > 3 && p.maxOpsPerInstr > 1 {
			address += uint64(p.minInstrLen) * ((opIndex + operationAdvance) / uint64(p.maxOpsPerInstr))
			opIndex = (opIndex + operationAdvance) % uint64(p.maxOpsPerInstr)
		} else {
			address += uint64(p.minInstrLen) * operationAdvance
		}
	}

	for c.off < end {
		opcode := c.u8()

		switch {
		case opcode == 0:
			length := c.uleb()
			next := c.off + int(length)
			extOpcode := c.u8()
			switch extOpcode {
			case lneEndSequence:
				endSequence = true
				emitRow()
				address, opIndex, column, isa, discriminator = 0, 0, 0, 0, 0
				basicBlock, endSequence, prologueEnd, epilogueBegin = false, false, false, false
				file, line = 1, 1
				isStmt = p.defaultIsStmt

			case lneSetAddress:
				address = readAddress(c, next)
				opIndex = 0

			case lneDefineFile:
				name := c.cstring()
				dirIndex := c.uleb()
				mtime := c.uleb()
				size := c.uleb()
				if p.version < 5 {
					p.fileNamesV4 = append(p.fileNamesV4, fileNameEntry{name, dirIndex, mtime, size})
				}

			case lneSetDiscriminator:
				if p.version > 3 {
					discriminator = c.uleb()
				}

			default:
				// Unknown extended opcode: skip by its declared length.
			}
			c.off = next

		case opcode < p.opcodeBase:
			switch opcode {
			case lnsCopy:
				emitRow()
				discriminator = 0
				basicBlock, prologueEnd, epilogueBegin = false, false, false

			case lnsAdvancePC:
				advance(c.uleb())

			case lnsAdvanceLine:
				line += c.sleb()

			case lnsSetFile:
				file = c.uleb()

			case lnsSetColumn:
				column = c.uleb()

			case lnsNegateStmt:
				isStmt = !isStmt

			case lnsSetBasicBlock:
				basicBlock = true

			case lnsConstAddPC:
				adjusted := uint64(255 - p.opcodeBase)
				advance(adjusted / uint64(p.lineRange))

			case lnsFixedAdvancePC:
				opIndex = 0
				address += uint64(c.u16())

			case lnsSetPrologueEnd:
				if p.version > 2 {
					prologueEnd = true
				}

			case lnsSetEpilogueBgn:
				if p.version > 2 {
					epilogueBegin = true
				}

			case lnsSetISA:
				if p.version > 2 {
					isa = c.uleb()
				}

			default:
				skipUnknownStandardOpcode(p, c, opcode)
			}

		default:
			adjusted := uint64(opcode - p.opcodeBase)
			advance(adjusted / uint64(p.lineRange))
			line += int64(p.lineBase) + int64(adjusted%uint64(p.lineRange))
			emitRow()
			basicBlock, prologueEnd, epilogueBegin, discriminator = false, false, false, 0
		}
	}
}

// skipUnknownStandardOpcode consumes the number of LEB128 operands
// the header declared for a standard opcode this driver does not
// otherwise recognize.
func skipUnknownStandardOpcode(p *program, c *cursor, opcode uint8) {
	idx := int(opcode) - 1
	if idx < 0 || idx >= len(p.stdOpcodeLens) {
		return
	}
	for i := uint8(0); i < p.stdOpcodeLens[idx]; i++ {
		c.sleb()
	}
}

// readAddress reads a machine-word address literal. Its width is
// whatever remains between the cursor and the extended opcode's
// declared end (8 bytes for a 64-bit target, 4 for a 32-bit one).
func readAddress(c *cursor, opEnd int) uint64 {
	width := opEnd - c.off
	switch width {
	case 4:
		return uint64(c.u32())
	case 8:
		return c.u64()
	default:
		if width > 8 {
			return c.u64()
		}
		var v uint64
		for i := 0; i < width; i++ {
			v |= uint64(c.u8()) << (8 * i)
		}
		return v
	}
}
