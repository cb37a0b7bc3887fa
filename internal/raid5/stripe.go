package raid5

import (
	"sync"
	"sync/atomic"
)

// Stripe is the pooled per-logical-stripe object (C3): the FIFO of
// in-flight requests against it, its scratch buffers, and a reference
// count that pins it against cache reclamation. Grounded on struct stripe
// in the original source.
type Stripe struct {
	// Index is the stripe's index in the logical device. Also the cache's
	// hash key.
	Index uint64

	// refCount pins the stripe against reclamation while >0. Read/written
	// without the cache lock (spec §5: "stripe.ref_count: atomic; may be
	// read/written outside any lock").
	refCount int32

	// requests is the FIFO of stripe requests queued against this stripe.
	// Protected by queueMu, never held across I/O submission.
	queueMu  sync.Mutex
	requests list[*StripeRequest]

	// scratch holds one DMA-aligned buffer per member, sized
	// strip_size*blocklen, allocated once at module start and reused
	// across requests for preread/parity-compute data (spec §3).
	scratch [][]byte

	// node is this stripe's own linkage in the cache's active/free list.
	node node[*Stripe]
}

// newStripe allocates a Stripe with its per-member scratch buffers bound.
// alignment is the DMA buffer alignment to request (spec: buf_align).
func newStripe(index uint64, numMembers, stripSize, blockLen, alignment int) *Stripe {
	s := &Stripe{Index: index}
	s.node.Value = s
	s.scratch = make([][]byte, numMembers)
	for i := range s.scratch {
		s.scratch[i] = alignedAlloc(stripSize*blockLen, alignment)
	}
	return s
}

// Ref increments the stripe's reference count. Called while a stripe
// request is live against the stripe (cache.Get already does this on
// acquisition; additional calls are not needed in the normal flow).
func (s *Stripe) Ref() {
	atomic.AddInt32(&s.refCount, 1)
}

// Unref decrements the stripe's reference count. Called once per RaidIO,
// when the last stripe request split off it completes (a write split in
// two still holds a single reference).
func (s *Stripe) Unref() {
	atomic.AddInt32(&s.refCount, -1)
}

// RefCount returns the current reference count.
func (s *Stripe) RefCount() int32 {
	return atomic.LoadInt32(&s.refCount)
}

// Enqueue appends req to the stripe's request queue and reports whether
// the queue was empty beforehand (i.e. whether the caller must submit req
// itself rather than waiting for a predecessor's completion to dequeue it).
func (s *Stripe) Enqueue(req *StripeRequest) (wasEmpty bool) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	wasEmpty = s.requests.Empty()
	req.qnode.Value = req
	s.requests.PushBack(&req.qnode)
	return wasEmpty
}

// Dequeue unlinks req from the queue and returns the next queued request,
// if any. Invariant 1 (spec §3) guarantees req is always at the front.
func (s *Stripe) Dequeue(req *StripeRequest) (next *StripeRequest) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	s.requests.Remove(&req.qnode)
	if n := s.requests.Front(); n != nil {
		return n.Value
	}
	return nil
}
