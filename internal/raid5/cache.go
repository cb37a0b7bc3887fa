package raid5

import "sync"

// StripeCache is the bounded, fixed-capacity pool of active stripes (C4):
// a hash table from stripe index to *Stripe, an "active" MRU list of
// mapped stripes, and a "free" list of unmapped, reusable stripe objects.
// All operations run under a single lock; critical sections are pointer
// and map updates only, never I/O. Grounded on raid5_get_stripe /
// raid5_reclaim_stripes and struct raid5_info's active_stripes_hash /
// active_stripes / free_stripes.
type StripeCache struct {
	mu       sync.Mutex
	capacity int
	byIndex  map[uint64]*Stripe
	active   list[*Stripe]
	free     list[*Stripe]
}

// NewStripeCache preallocates capacity stripes (each with its per-member
// scratch buffers bound) into the free list. capacity is spec's
// MAX_STRIPES.
func NewStripeCache(capacity, numMembers, stripSize, blockLen, alignment int) *StripeCache {
	c := &StripeCache{
		capacity: capacity,
		byIndex:  make(map[uint64]*Stripe, capacity*2),
	}
	for i := 0; i < capacity; i++ {
		s := newStripe(0, numMembers, stripSize, blockLen, alignment)
		c.free.PushBack(&s.node)
	}
	return c
}

// Get looks up stripeIndex. On a hit it moves the stripe to the front of
// the active list and increments its ref count. On a miss it takes a
// stripe from the free list (reclaiming from the active tail first if the
// free list is empty), maps it to stripeIndex, and returns it with
// ref count 1. Returns ok=false if no stripe could be obtained (the cache
// is full and nothing was reclaimable) — the caller must queue for retry.
func (c *StripeCache) Get(stripeIndex uint64) (stripe *Stripe, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, found := c.byIndex[stripeIndex]; found {
		c.active.MoveToFront(&s.node)
		s.Ref()
		return s, true
	}

	n := c.free.PopBack()
	if n == nil {
		if c.reclaimLocked() == 0 {
			return nil, false
		}
		n = c.free.PopBack()
		if n == nil {
			return nil, false
		}
	}

	s := n.Value
	s.Index = stripeIndex
	c.byIndex[stripeIndex] = s
	c.active.PushFront(&s.node)
	s.refCount = 1
	return s, true
}

// Release decrements a stripe's reference count. The stripe is not moved
// or unmapped; only Reclaim can evict it (spec §4.3: "not moved or
// unmapped").
func (c *StripeCache) Release(stripe *Stripe) {
	stripe.Unref()
}

// Len returns the number of stripes currently mapped in the hash (spec §8
// property 5: "the stripe cache contains <= MAX_STRIPES entries").
func (c *StripeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byIndex)
}

// Reclaim walks the active list from the tail (oldest), evicting every
// stripe with ref_count==0 into the free list until either the computed
// target count has been freed or the walk reaches the front. Returns the
// number reclaimed.
//
// The target is (capacity/8 - capacity + active_count), taken unmodified
// from the original source's raid5_reclaim_stripes. This value is
// negative whenever the cache is not nearly full, which means the loop
// (mirroring the original's "if (++reclaimed > to_reclaim) break") always
// reclaims at least the first eligible stripe it finds and then stops —
// it does not eagerly free 7/8 of capacity ahead of time. This is a
// deliberate compatibility choice (spec §9 open question): the original's
// behavior is "reclaim lazily, one stripe at a time, until the hash is
// almost full", not "proactively free most of the cache".
func (c *StripeCache) Reclaim() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reclaimLocked()
}

func (c *StripeCache) reclaimLocked() int {
	toReclaim := c.capacity/8 - c.capacity + len(c.byIndex)

	reclaimed := 0
	n := c.active.Back()
	for n != nil {
		stripe := n.Value
		prev := n.prev
		if stripe.RefCount() > 0 {
			n = prev
			continue
		}

		c.active.Remove(n)
		delete(c.byIndex, stripe.Index)
		c.free.PushBack(n)

		reclaimed++
		if reclaimed > toReclaim {
			break
		}
		n = prev
	}

	return reclaimed
}
