package machofile

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildLC64 appends one load command to buf and returns the new slice.
func buildLC64(buf []byte, cmd uint32, body []byte) []byte {
	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:], cmd)
	binary.LittleEndian.PutUint32(header[4:], uint32(len(body)+8))
	buf = append(buf, header...)
	buf = append(buf, body...)
	return buf
}

func segment64Body(name string, vmaddr, vmsize, fileoff, filesize uint64) []byte {
	b := make([]byte, 56)
	copy(b[0:16], name)
	binary.LittleEndian.PutUint64(b[16:], vmaddr)
	binary.LittleEndian.PutUint64(b[24:], vmsize)
	binary.LittleEndian.PutUint64(b[32:], fileoff)
	binary.LittleEndian.PutUint64(b[40:], filesize)
	return b
}

func TestParseHeaderAndSegments(t *testing.T) {
	var cmds []byte
	cmds = buildLC64(cmds, lcSegment64, segment64Body(segPageZero, 0, 0x100000000, 0, 0))
	cmds = buildLC64(cmds, lcSegment64, segment64Body("__TEXT", 0x100000000, 0x1000, 0, 0x1000))

	var header bytes.Buffer
	binary.Write(&header, binary.LittleEndian, uint32(magic64))
	binary.Write(&header, binary.LittleEndian, uint32(cpuTypeARM64))
	binary.Write(&header, binary.LittleEndian, uint32(0)) // cpusubtype
	binary.Write(&header, binary.LittleEndian, uint32(2)) // filetype
	binary.Write(&header, binary.LittleEndian, uint32(2)) // ncmds
	binary.Write(&header, binary.LittleEndian, uint32(len(cmds)))
	binary.Write(&header, binary.LittleEndian, uint32(0)) // flags
	binary.Write(&header, binary.LittleEndian, uint32(0)) // reserved

	data := append(header.Bytes(), cmds...)

	f, err := Parse(data, "/tmp/test")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x100000000), f.AddressOffset)
	assert.Equal(t, uint64(0x100000000), f.TextVMAddr)
}

func TestParseRejectsBadMagic(t *testing.T) {
	_, err := Parse([]byte{0, 0, 0, 0}, "/tmp/bad")
	assert.Error(t, err)
}

func TestParseTooSmall(t *testing.T) {
	_, err := Parse([]byte{1, 2}, "/tmp/tiny")
	assert.Error(t, err)
}

func TestFindDSYMBundleMissing(t *testing.T) {
	assert.Equal(t, "", FindDSYMBundle("/nonexistent/path/to/binary"))
}

func TestMatchesUUID(t *testing.T) {
	a := &File{HasUUID: true, UUID: [16]byte{1, 2, 3}}
	b := &File{HasUUID: true, UUID: [16]byte{1, 2, 3}}
	c := &File{HasUUID: true, UUID: [16]byte{9}}
	assert.True(t, MatchesUUID(a, b))
	assert.False(t, MatchesUUID(a, c))
}
