package raid5_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/Anthya1104/raid-simulator/internal/basedevsim"
	"github.com/Anthya1104/raid-simulator/internal/raid5"
)

func init() {
	logrus.SetLevel(logrus.DebugLevel)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

const (
	testMembers    = 4
	testStripSize  = 8
	testBlockLen   = 512
	testMemberSize = 256
)

func newTestArray(t *testing.T) (*raid5.Array, *basedevsim.MemDisk) {
	base := basedevsim.New(testMembers, testMemberSize, testBlockLen)
	arr, err := raid5.Start(raid5.Config{
		NumMembers:          testMembers,
		StripSize:           testStripSize,
		BlockLen:            testBlockLen,
		MinMemberBlockCount: testMemberSize,
		StripeCacheCapacity: 8,
		NumChannels:         2,
		BufAlign:            0,
	}, base)
	assert.Nil(t, err)
	return arr, base
}

func blockingWrite(t *testing.T, arr *raid5.Array, channel int, offsetBlocks uint64, data []byte) raid5.Status {
	t.Helper()
	done := make(chan raid5.Status, 1)
	io := &raid5.RaidIO{
		Type:         raid5.IOWrite,
		OffsetBlocks: offsetBlocks,
		NumBlocks:    len(data) / testBlockLen,
		IOVs:         []raid5.IOVec{data},
		Ctx:          context.Background(),
		OnComplete:   func(status raid5.Status) { done <- status },
	}
	arr.SubmitRW(channel, io)
	select {
	case s := <-done:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("write timed out")
		return raid5.StatusFailed
	}
}

func blockingRead(t *testing.T, arr *raid5.Array, channel int, offsetBlocks uint64, out []byte) raid5.Status {
	t.Helper()
	done := make(chan raid5.Status, 1)
	io := &raid5.RaidIO{
		Type:         raid5.IORead,
		OffsetBlocks: offsetBlocks,
		NumBlocks:    len(out) / testBlockLen,
		IOVs:         []raid5.IOVec{out},
		Ctx:          context.Background(),
		OnComplete:   func(status raid5.Status) { done <- status },
	}
	arr.SubmitRW(channel, io)
	select {
	case s := <-done:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("read timed out")
		return raid5.StatusFailed
	}
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	arr, _ := newTestArray(t)
	defer arr.Stop()

	data := make([]byte, testBlockLen*4)
	for i := range data {
		data[i] = byte(i)
	}

	status := blockingWrite(t, arr, 0, 0, data)
	assert.Equal(t, raid5.StatusSuccess, status)

	out := make([]byte, len(data))
	status = blockingRead(t, arr, 0, 0, out)
	assert.Equal(t, raid5.StatusSuccess, status)
	assert.Equal(t, data, out)
}

func TestDegradedReadReconstructsData(t *testing.T) {
	arr, base := newTestArray(t)
	defer arr.Stop()

	data := make([]byte, testBlockLen*4)
	for i := range data {
		data[i] = byte(i*3 + 1)
	}
	status := blockingWrite(t, arr, 0, 0, data)
	assert.Equal(t, raid5.StatusSuccess, status)

	// Blocks 0..3 of stripe 0 live on member 0 (parity is member 3), so
	// degrading member 0 forces the read through reconstruction.
	base.SetDegraded(0, true)

	out := make([]byte, len(data))
	status = blockingRead(t, arr, 0, 0, out)
	assert.Equal(t, raid5.StatusSuccess, status)
	assert.Equal(t, data, out)
}

func TestPartialStripeWritePreservesUntouchedData(t *testing.T) {
	arr, _ := newTestArray(t)
	defer arr.Stop()

	full := make([]byte, testBlockLen*4)
	for i := range full {
		full[i] = 0xAA
	}
	assert.Equal(t, raid5.StatusSuccess, blockingWrite(t, arr, 0, 0, full))

	patch := make([]byte, testBlockLen)
	for i := range patch {
		patch[i] = 0xBB
	}
	assert.Equal(t, raid5.StatusSuccess, blockingWrite(t, arr, 0, testBlockLen/testBlockLen, patch))

	out := make([]byte, len(full))
	assert.Equal(t, raid5.StatusSuccess, blockingRead(t, arr, 0, 0, out))

	expected := append([]byte(nil), full...)
	copy(expected[testBlockLen:2*testBlockLen], patch)
	assert.Equal(t, expected, out)
}

// TestFullStripeWriteIsNotSplit pins spec §8 scenario S1 and the
// handleStripe split guard (spec §4.6: only writes smaller than one strip
// get split): a full-stripe write must flow through a single StripeRequest
// with zero prereads and exactly D+1 chunk writes (data + parity), not two
// serialized partial-write sub-requests that would each preread and
// re-update parity.
func TestFullStripeWriteIsNotSplit(t *testing.T) {
	arr, base := newTestArray(t)
	defer arr.Stop()

	var reads, writes int32
	var mu sync.Mutex
	base.Inject = func(memberIndex int, isWrite bool) error {
		mu.Lock()
		if isWrite {
			writes++
		} else {
			reads++
		}
		mu.Unlock()
		return nil
	}

	data := make([]byte, testBlockLen*testStripSize*(testMembers-1))
	for i := range data {
		data[i] = 0xAA
	}
	status := blockingWrite(t, arr, 0, 0, data)
	assert.Equal(t, raid5.StatusSuccess, status)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, int32(0), reads, "full-stripe write must produce zero prereads")
	assert.Equal(t, int32(testMembers), writes, "full-stripe write must produce exactly D+1 chunk writes, not a split pair of partial writes")
}

// TestStripSizeWriteAtBoundaryIsNotSplit covers the `blocks == strip_size`
// edge of the split guard: a write of exactly one strip's worth of blocks
// that straddles a strip boundary (because its offset isn't chunk-aligned)
// must NOT be split — handleStripe only splits writes strictly smaller
// than one strip (spec §4.6) — and must still produce correct data.
func TestStripSizeWriteAtBoundaryIsNotSplit(t *testing.T) {
	arr, base := newTestArray(t)
	defer arr.Stop()

	full := make([]byte, testBlockLen*testStripSize*(testMembers-1))
	for i := range full {
		full[i] = 0xCC
	}
	assert.Equal(t, raid5.StatusSuccess, blockingWrite(t, arr, 0, 0, full))

	var writes int32
	var mu sync.Mutex
	base.Inject = func(memberIndex int, isWrite bool) error {
		if isWrite {
			mu.Lock()
			writes++
			mu.Unlock()
		}
		return nil
	}

	patch := make([]byte, testBlockLen*testStripSize)
	for i := range patch {
		patch[i] = 0xDD
	}
	straddleOffset := uint64(testStripSize / 2)
	status := blockingWrite(t, arr, 0, straddleOffset, patch)
	assert.Equal(t, raid5.StatusSuccess, status)

	mu.Lock()
	assert.Equal(t, int32(3), writes, "a blocks==strip_size straddling write touches 2 data chunks + parity, not a split pair of partial writes")
	mu.Unlock()

	out := make([]byte, len(full))
	assert.Equal(t, raid5.StatusSuccess, blockingRead(t, arr, 0, 0, out))

	expected := append([]byte(nil), full...)
	copy(expected[straddleOffset*testBlockLen:straddleOffset*testBlockLen+uint64(len(patch))], patch)
	assert.Equal(t, expected, out)
}

func TestConcurrentOverlappingWritesSerialize(t *testing.T) {
	arr, _ := newTestArray(t)
	defer arr.Stop()

	const iterations = 20
	var wg sync.WaitGroup
	for i := 0; i < iterations; i++ {
		wg.Add(1)
		val := byte(i + 1)
		go func() {
			defer wg.Done()
			buf := make([]byte, testBlockLen)
			for j := range buf {
				buf[j] = val
			}
			status := blockingWrite(t, arr, i%2, 0, buf)
			assert.Equal(t, raid5.StatusSuccess, status)
		}()
	}
	wg.Wait()

	out := make([]byte, testBlockLen)
	assert.Equal(t, raid5.StatusSuccess, blockingRead(t, arr, 0, 0, out))
	for _, b := range out {
		assert.Equal(t, out[0], b, "write did not land atomically; stripe serialization broken")
	}
}
