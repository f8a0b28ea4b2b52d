package dwarfline

import (
	"encoding/binary"

	"github.com/mhahnFr/CallstackLibrary/internal/leb128"
)

// cursor is a small byte-buffer reader used by both the line-program
// driver and the minimal .debug_info/.debug_abbrev walk. It never
// bounds-checks defensively beyond what Go's slice indexing already
// provides: a truncated section surfaces as a panic that the caller
// recovers from, matching the "malformed binary -> abandon this
// image's parse" error tier.
type cursor struct {
	buf   []byte
	off   int
	order binary.ByteOrder
}

func newCursor(buf []byte, order binary.ByteOrder) *cursor {
	return &cursor{buf: buf, order: order}
}

func (c *cursor) u8() uint8 {
	v := c.buf[c.off]
	c.off++
	return v
}

func (c *cursor) i8() int8 { return int8(c.u8()) }

func (c *cursor) u16() uint16 {
	v := c.order.Uint16(c.buf[c.off:])
	c.off += 2
	return v
}

func (c *cursor) u32() uint32 {
	v := c.order.Uint32(c.buf[c.off:])
	c.off += 4
	return v
}

func (c *cursor) u64() uint64 {
	v := c.order.Uint64(c.buf[c.off:])
	c.off += 8
	return v
}

func (c *cursor) uleb() uint64 {
	v, next := leb128.Uint64(c.buf, c.off)
	c.off = next
	return v
}

func (c *cursor) sleb() int64 {
	v, next := leb128.Int64(c.buf, c.off)
	c.off = next
	return v
}

func (c *cursor) cstring() string {
	start := c.off
	for c.buf[c.off] != 0 {
		c.off++
	}
	s := string(c.buf[start:c.off])
	c.off++
	return s
}

func (c *cursor) bytes(n int) []byte {
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b
}

func (c *cursor) skip(n int) {
	c.off += n
}

func (c *cursor) eof() bool {
	return c.off >= len(c.buf)
}

// initialLength reads a DWARF "initial length" field: a 32-bit value,
// or, when that value is the escape 0xffffffff, an 8-byte 64-bit
// length (the DWARF64 format).
func (c *cursor) initialLength() (length uint64, is64 bool) {
	v := c.u32()
	if v == 0xffffffff {
		return c.u64(), true
	}
	return uint64(v), false
}

func (c *cursor) offset(is64 bool) uint64 {
	if is64 {
		return c.u64()
	}
	return uint64(c.u32())
}
