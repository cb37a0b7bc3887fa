package raid5

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripeCacheGetHitAndMiss(t *testing.T) {
	c := NewStripeCache(4, 4, 16, 512, 0)

	s1, ok := c.Get(10)
	assert.True(t, ok)
	assert.Equal(t, uint64(10), s1.Index)
	assert.Equal(t, int32(1), s1.RefCount())
	assert.Equal(t, 1, c.Len())

	s1Again, ok := c.Get(10)
	assert.True(t, ok)
	assert.Same(t, s1, s1Again)
	assert.Equal(t, int32(2), s1Again.RefCount())
	assert.Equal(t, 1, c.Len())
}

func TestStripeCacheExhaustionWithoutRelease(t *testing.T) {
	c := NewStripeCache(2, 4, 16, 512, 0)

	s1, ok := c.Get(1)
	assert.True(t, ok)
	_, ok = c.Get(2)
	assert.True(t, ok)

	// Both stripes still referenced: nothing reclaimable.
	_, ok = c.Get(3)
	assert.False(t, ok)

	c.Release(s1)
	s3, ok := c.Get(3)
	assert.True(t, ok)
	assert.Equal(t, uint64(3), s3.Index)
}

func TestStripeCacheLenBounded(t *testing.T) {
	c := NewStripeCache(3, 4, 16, 512, 0)
	for i := uint64(0); i < 3; i++ {
		s, ok := c.Get(i)
		assert.True(t, ok)
		c.Release(s)
	}
	assert.LessOrEqual(t, c.Len(), 3)
}
