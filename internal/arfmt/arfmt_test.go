package arfmt

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func padField(s string, width int) string {
	for len(s) < width {
		s += " "
	}
	return s[:width]
}

func buildMember(name string, modTime int64, data []byte) []byte {
	header := padField(name, 16) +
		padField(fmt.Sprintf("%d", modTime), 12) +
		padField("0", 6) +
		padField("0", 6) +
		padField("644", 8) +
		padField(fmt.Sprintf("%d", len(data)), 10) +
		endMagic
	buf := append([]byte(header), data...)
	if len(buf)%2 != 0 {
		buf = append(buf, '\n')
	}
	return buf
}

func TestParseSimpleArchive(t *testing.T) {
	var data []byte
	data = append(data, []byte(magic)...)
	data = append(data, buildMember("foo.o", 1234, []byte("hello"))...)
	data = append(data, buildMember("bar.o", 5678, []byte("world!!"))...)

	var members []Member
	err := Parse(data, "lib.a", func(m Member) { members = append(members, m) })
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "lib.a(foo.o)", members[0].Name)
	assert.Equal(t, int64(1234), members[0].ModTime)
	assert.Equal(t, []byte("hello"), members[0].Data)
	assert.Equal(t, "lib.a(bar.o)", members[1].Name)
	assert.Equal(t, []byte("world!!"), members[1].Data)
}

func TestIsArchiveRejectsOther(t *testing.T) {
	assert.False(t, IsArchive([]byte("not an archive")))
}

func TestParseRejectsBadMagic(t *testing.T) {
	err := Parse([]byte("garbage data here"), "lib.a", func(Member) {})
	assert.Error(t, err)
}
