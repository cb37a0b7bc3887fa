package raid5

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChannelPostRunsInOrder(t *testing.T) {
	ch := NewChannel(4, 4)
	defer ch.Close()

	var order []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		ch.Post(func() {
			order = append(order, i)
			if i == 4 {
				close(done)
			}
		})
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("posted work never ran")
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestChannelRetryQueueDrainsOldestFirst(t *testing.T) {
	ch := NewChannel(4, 4)
	defer ch.Close()

	var ran []int
	ch.enqueueRetry(func() { ran = append(ran, 1) })
	ch.enqueueRetry(func() { ran = append(ran, 2) })

	ch.drainOneRetry()
	assert.Equal(t, []int{1}, ran)

	ch.drainOneRetry()
	assert.Equal(t, []int{1, 2}, ran)

	// No more entries: should be a no-op, not a panic.
	ch.drainOneRetry()
	assert.Equal(t, []int{1, 2}, ran)
}

func TestChannelIOVHeaderPoolReusesCapacity(t *testing.T) {
	ch := NewChannel(4, 4)
	defer ch.Close()

	h := ch.getIOVHeader(8)
	assert.Equal(t, 0, len(h))
	assert.GreaterOrEqual(t, cap(h), 8)

	h = append(h, IOVec{1, 2, 3})
	ch.putIOVHeader(h)

	h2 := ch.getIOVHeader(4)
	assert.Equal(t, 0, len(h2))
}
