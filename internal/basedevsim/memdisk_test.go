package basedevsim_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Anthya1104/raid-simulator/internal/basedevsim"
	"github.com/Anthya1104/raid-simulator/internal/raid5"
)

func TestWriteThenReadBack(t *testing.T) {
	d := basedevsim.New(4, 64, 512)

	data := make([]byte, 512)
	for i := range data {
		data[i] = byte(i)
	}

	done := make(chan error, 1)
	err := d.WritevBlocks(context.Background(), 0, []raid5.IOVec{data}, 0, 1, func(err error) { done <- err })
	assert.Nil(t, err)
	assert.Nil(t, <-done)

	out := make([]byte, 512)
	err = d.ReadvBlocks(context.Background(), 0, []raid5.IOVec{out}, 0, 1, func(err error) { done <- err })
	assert.Nil(t, err)
	assert.Nil(t, <-done)
	assert.Equal(t, data, out)
}

func TestDegradedFlag(t *testing.T) {
	d := basedevsim.New(3, 16, 512)
	assert.False(t, d.IsDegraded(1))
	d.SetDegraded(1, true)
	assert.True(t, d.IsDegraded(1))
	d.SetDegraded(1, false)
	assert.False(t, d.IsDegraded(1))
}

func TestInjectedNoMemAndUnblock(t *testing.T) {
	d := basedevsim.New(3, 16, 512)
	blocked := true
	d.Inject = func(memberIndex int, isWrite bool) error {
		if blocked {
			return raid5.ErrNoMem
		}
		return nil
	}

	data := make([]byte, 512)
	err := d.WritevBlocks(context.Background(), 0, []raid5.IOVec{data}, 0, 1, func(error) {})
	assert.ErrorIs(t, err, raid5.ErrNoMem)

	retried := make(chan struct{})
	d.QueueIOWait(0, func() { close(retried) })
	blocked = false
	d.Unblock(0)

	select {
	case <-retried:
	case <-time.After(time.Second):
		t.Fatal("queued retry never ran")
	}
}

func TestOutOfBoundsReadFails(t *testing.T) {
	d := basedevsim.New(2, 4, 512)
	done := make(chan error, 1)
	out := make([]byte, 512*8)
	err := d.ReadvBlocks(context.Background(), 0, []raid5.IOVec{out}, 0, 8, func(err error) { done <- err })
	assert.Nil(t, err)
	got := <-done
	assert.NotNil(t, got)
	assert.Contains(t, got.Error(), "out of bounds")
}
