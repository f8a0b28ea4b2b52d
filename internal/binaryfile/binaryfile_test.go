package binaryfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseMaybeParseMemoizes(t *testing.T) {
	var b Base
	calls := 0
	parse := func() bool {
		calls++
		return true
	}
	assert.True(t, b.MaybeParse(parse))
	assert.True(t, b.MaybeParse(parse))
	assert.Equal(t, 1, calls)
}

func TestBaseMaybeParseCachesFailure(t *testing.T) {
	var b Base
	calls := 0
	parse := func() bool {
		calls++
		return false
	}
	assert.False(t, b.MaybeParse(parse))
	assert.False(t, b.MaybeParse(parse))
	assert.Equal(t, 1, calls)
}

func TestIsOutdatedMissingFile(t *testing.T) {
	assert.False(t, isOutdated("/nonexistent/source.c", 12345, 10))
}

func TestIsOutdatedNoTimestamp(t *testing.T) {
	assert.False(t, isOutdated("/etc/hostname", 0, 0))
}

func TestClearCachesInvokesRegistered(t *testing.T) {
	called := false
	RegisterClearCache(func() { called = true })
	ClearCaches()
	assert.True(t, called)
}

func TestMachOHandleFileName(t *testing.T) {
	h := NewMachOHandle("/bin/ls", 0x1000, true)
	assert.Equal(t, "/bin/ls", h.FileName())
}

func TestELFHandleFileName(t *testing.T) {
	h := NewELFHandle("/bin/ls", 0x1000, true)
	assert.Equal(t, "/bin/ls", h.FileName())
}
