package raid5

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXORIOVsSingleSegment(t *testing.T) {
	dst := []IOVec{{0x0F, 0x0F, 0x0F, 0x0F}}
	src := []IOVec{{0xFF, 0x00, 0xFF, 0x00}}
	XORIOVs(dst, 0, src, 0, 4)
	assert.Equal(t, []byte{0xF0, 0x0F, 0xF0, 0x0F}, []byte(dst[0]))
}

func TestXORIOVsCrossSegmentBoundary(t *testing.T) {
	dst := []IOVec{{0, 0}, {0, 0}}
	src := []IOVec{{1, 1, 1}, {1}}
	XORIOVs(dst, 0, src, 0, 4)
	assert.Equal(t, []byte{1, 1}, []byte(dst[0]))
	assert.Equal(t, []byte{1, 1}, []byte(dst[1]))
}

func TestXORIOVsWithOffsets(t *testing.T) {
	dst := []IOVec{{9, 9, 9, 9, 9, 9}}
	src := []IOVec{{0, 0, 5, 5}}
	XORIOVs(dst, 2, src, 2, 2)
	assert.Equal(t, []byte{9, 9, 12, 12, 9, 9}, []byte(dst[0]))
}

func TestMemcpyIOVs(t *testing.T) {
	dst := []IOVec{make([]byte, 4)}
	src := []IOVec{{1, 2, 3, 4}}
	MemcpyIOVs(dst, 0, src, 0, 4)
	assert.Equal(t, []byte{1, 2, 3, 4}, []byte(dst[0]))
}

func TestZeroIOVs(t *testing.T) {
	v := []IOVec{{1, 2}, {3, 4}}
	ZeroIOVs(v)
	assert.Equal(t, []byte{0, 0}, []byte(v[0]))
	assert.Equal(t, []byte{0, 0}, []byte(v[1]))
}

func TestXORSelfInverse(t *testing.T) {
	original := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	working := make([]byte, len(original))
	copy(working, original)

	a := []IOVec{working}
	b := []IOVec{{9, 8, 7, 6, 5, 4, 3, 2, 1}}

	XORIOVs(a, 0, b, 0, len(original))
	XORIOVs(a, 0, b, 0, len(original))
	assert.Equal(t, original, []byte(a[0]))
}

func TestLocate(t *testing.T) {
	iovs := []IOVec{{0, 0, 0}, {0, 0}, {0, 0, 0, 0}}
	idx, off := locate(iovs, 4)
	assert.Equal(t, 1, idx)
	assert.Equal(t, 1, off)

	idx, off = locate(iovs, 0)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 0, off)

	idx, _ = locate(iovs, 9)
	assert.Equal(t, 3, idx)
}
