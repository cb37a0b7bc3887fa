package raid5

import (
	"sync"

	"git.lukeshu.com/go/typedsync"
)

// Channel is this module's stand-in for an spdk_io_channel / spdk_thread:
// a single logical owner of a set of stripe requests, with its own message
// queue so that every continuation touching a StripeRequest's fields runs
// strictly one-at-a-time, in submission order, without a lock. The
// original relies on SPDK's one-thread-per-channel, run-to-completion
// model for this; Go has no equivalent thread affinity, so every
// completion callback in request.go is re-entered via Post rather than
// called inline, making the channel's goroutine the only writer of the
// requests it owns. Grounded on struct raid5_io_channel (retry_queue,
// iov_w_queue) and raid5_io_channel_resource_init/deinit.
type Channel struct {
	reqPool *StripeRequestPool

	// iovPool recycles the []IOVec header slices StripeRequest.mapReqData
	// (request.go) builds to bind a chunk's in-flight I/O to segments of
	// the upstream RaidIO's buffers, via getIOVHeader/putIOVHeader below.
	// Borrowed on first use per chunk and returned by bindScratch (if the
	// chunk is rebound to scratch) or reset (when the request completes),
	// avoiding a fresh header allocation per chunk per I/O. Grounded on
	// the fixed 512-entry iovec wrapper pool
	// raid5_io_channel_resource_init preallocates per channel.
	iovPool typedsync.Pool[[]IOVec]

	mailbox chan func()
	done    chan struct{}

	// retryQueue holds submissions that could not acquire a stripe
	// because the cache was full and nothing was reclaimable (spec §4.2:
	// "a channel-level retry queue, drained whenever any stripe on this
	// channel completes"). Distinct from a BaseDevice's own ENOMEM wait
	// facility, which is chunk-submission-level and owned by the device.
	retryMu    sync.Mutex
	retryQueue []func()
}

// NewChannel constructs a channel with its own stripe-request pool slice
// and starts its message-processing goroutine. capacity is this channel's
// share of the module-wide stripe request pool (spec: pool sized
// MAX_STRIPES * 4, divided across channels).
func NewChannel(reqPoolCapacity, numMembers int) *Channel {
	ch := &Channel{
		reqPool: NewStripeRequestPool(reqPoolCapacity, numMembers),
		mailbox: make(chan func(), 4096),
		done:    make(chan struct{}),
	}
	go ch.run()
	return ch
}

// Post enqueues fn to run on this channel's goroutine. Used for every
// completion continuation (cross-channel or same-channel) so that a
// StripeRequest is never mutated concurrently from two goroutines.
func (ch *Channel) Post(fn func()) {
	ch.mailbox <- fn
}

// Close stops the channel's run loop. Pending mailbox entries are
// discarded.
func (ch *Channel) Close() {
	close(ch.done)
}

func (ch *Channel) run() {
	for {
		select {
		case fn := <-ch.mailbox:
			fn()
		case <-ch.done:
			return
		}
	}
}

// getIOVHeader borrows a zero-length []IOVec with at least capacity cap
// from the pool, allocating one if the pool is empty.
func (ch *Channel) getIOVHeader(capacity int) []IOVec {
	if s, ok := ch.iovPool.Get(); ok {
		if cap(s) >= capacity {
			return s[:0]
		}
	}
	return make([]IOVec, 0, capacity)
}

// putIOVHeader returns s to the pool for reuse.
func (ch *Channel) putIOVHeader(s []IOVec) {
	ch.iovPool.Put(s[:0])
}

// enqueueRetry parks fn to be retried the next time a stripe on this
// channel completes.
func (ch *Channel) enqueueRetry(fn func()) {
	ch.retryMu.Lock()
	defer ch.retryMu.Unlock()
	ch.retryQueue = append(ch.retryQueue, fn)
}

// drainOneRetry re-attempts the oldest parked submission, if any. Called
// after every StripeRequest completion, since that is the only event that
// can free up a stripe slot.
func (ch *Channel) drainOneRetry() {
	ch.retryMu.Lock()
	if len(ch.retryQueue) == 0 {
		ch.retryMu.Unlock()
		return
	}
	fn := ch.retryQueue[0]
	ch.retryQueue = ch.retryQueue[1:]
	ch.retryMu.Unlock()
	fn()
}
