package callstack

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureReturnsSelf(t *testing.T) {
	cs := Capture()
	require.NotNil(t, cs)
	assert.NotEmpty(t, cs.Addresses())
	assert.Equal(t, StatusNone, cs.Status())
}

func TestNewIsEmpty(t *testing.T) {
	cs := New()
	assert.Empty(t, cs.Addresses())
	assert.Equal(t, StatusNone, cs.Status())
}

func TestCopyIsIndependent(t *testing.T) {
	cs := Capture()
	cp := cs.Copy()
	cp.Delete()

	assert.NotEmpty(t, cs.Addresses())
	assert.Empty(t, cp.Addresses())
}

func TestTranslateProducesOneFrameForEachAddress(t *testing.T) {
	cs := Capture()
	status := cs.Translate()

	assert.Equal(t, StatusTranslated, status)
	assert.Equal(t, len(cs.Addresses()), len(cs.ToArray()))
}

func TestTranslateUnresolvableAddressYieldsUnknownFrame(t *testing.T) {
	cs := &Callstack{addresses: []uint64{0}}
	cs.Translate()

	frames := cs.ToArray()
	require.Len(t, frames, 1)
	assert.Empty(t, frames[0].Function)
	assert.Equal(t, "0x0000000000000000: << Unknown >>", frames[0].String())
}

func TestToStringJoinsFrames(t *testing.T) {
	cs := &Callstack{addresses: []uint64{0, 0}}
	cs.Translate()

	joined := cs.ToString("\n")
	assert.Equal(t, 2, strings.Count(joined, "\n")+1)
}

func TestGetBinariesCachedFindsSelf(t *testing.T) {
	cs := Capture()
	infos := cs.GetBinariesCached()
	require.NotEmpty(t, infos)

	found := false
	for _, info := range infos {
		if info.IsSelf {
			found = true
		}
	}
	assert.True(t, found, "expected the running test binary to be reported as self")
}

func TestFunctionInfoUnknownName(t *testing.T) {
	_, ok := LoadFunctionInfo("this function definitely does not exist anywhere")
	assert.False(t, ok)
}

func TestGetLoadedRegionsNonEmpty(t *testing.T) {
	regions := GetLoadedRegions()
	assert.NotEmpty(t, regions)
}

func TestGetSymbolInfoForNullAddress(t *testing.T) {
	_, ok := GetSymbolInfo(0)
	assert.False(t, ok)
}
