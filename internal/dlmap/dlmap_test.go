package dlmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapperInitFindsSelf(t *testing.T) {
	var m Mapper
	require.True(t, m.Init())
	defer m.Deinit()

	assert.True(t, m.IsInited())
	assert.NotEmpty(t, m.LoadedBinaries())
}

func TestMapperInitIsIdempotent(t *testing.T) {
	var m Mapper
	require.True(t, m.Init())
	defer m.Deinit()

	first := m.LoadedBinaries()
	require.True(t, m.Init())
	assert.Equal(t, len(first), len(m.LoadedBinaries()))
}

func TestMapperBinaryFileForAddressNotInited(t *testing.T) {
	var m Mapper
	assert.Nil(t, m.BinaryFileForAddress(0x1000, false))
}

func TestMapperBinaryFileForFileNameNotInited(t *testing.T) {
	var m Mapper
	assert.Nil(t, m.BinaryFileForFileName("/bin/anything"))
}

func TestMapperBinaryFileForAddressFindsOwnBinary(t *testing.T) {
	var m Mapper
	require.True(t, m.Init())
	defer m.Deinit()

	images := m.LoadedBinaries()
	require.NotEmpty(t, images)

	var testBinary *Image
	for _, img := range images {
		if img.End > img.Start {
			testBinary = img
			break
		}
	}
	require.NotNil(t, testBinary, "expected at least one image with a known extent")

	mid := testBinary.Start + (testBinary.End-testBinary.Start)/2
	found := m.BinaryFileForAddress(mid, false)
	require.NotNil(t, found)
	assert.Equal(t, testBinary.FileNameOriginal, found.FileNameOriginal)
}

func TestMapperRelativizeUnknownAddress(t *testing.T) {
	var m Mapper
	require.True(t, m.Init())
	defer m.Deinit()

	_, _, ok := m.Relativize(0)
	assert.False(t, ok)
}

func TestMapperAbsolutizeUnknownName(t *testing.T) {
	var m Mapper
	require.True(t, m.Init())
	defer m.Deinit()

	_, ok := m.Absolutize(0x10, "/definitely/not/loaded")
	assert.False(t, ok)
}

func TestMapperDeinitResets(t *testing.T) {
	var m Mapper
	require.True(t, m.Init())
	m.Deinit()
	assert.False(t, m.IsInited())
	assert.Empty(t, m.LoadedBinaries())
}
