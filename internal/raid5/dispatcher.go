package raid5

import (
	"errors"
	"fmt"
)

// EnableFastPathRead gates the non-degraded single-chunk read bypass that
// skips stripe acquisition entirely (spec §9 supplemented feature, ported
// from the disabled-by-default raid5_handle_read in the original source).
// Left off by default: the original never enabled it either, and the
// engine has not yet been exercised against the correctness property
// tests this would need to bypass safely (concurrent writes to the same
// stripe must still serialize against a fast-path read that touches the
// same logical blocks, which this bypass does not arrange for).
var EnableFastPathRead = false

// Dispatcher is the module-level entry point (C6): it owns the stripe
// cache and the set of channels, splits incoming logical I/O into one or
// two StripeRequests against a single stripe, and routes stripe
// acquisition failures to the submitting channel's retry queue. Grounded
// on raid5_submit_rw_request / raid5_handle_stripe.
type Dispatcher struct {
	geometry    *Geometry
	cache       *StripeCache
	base        BaseDevice
	maxDegraded int
}

// NewDispatcher builds a Dispatcher over geometry, backed by base and a
// stripe cache of the given capacity.
func NewDispatcher(geometry *Geometry, base BaseDevice, cacheCapacity, alignment int) *Dispatcher {
	return &Dispatcher{
		geometry:    geometry,
		cache:       NewStripeCache(cacheCapacity, geometry.NumMembers, geometry.StripSize, geometry.BlockLen, alignment),
		base:        base,
		maxDegraded: 1,
	}
}

// SubmitRW is the module's public entry point for a logical read or write.
// Grounded on raid5_submit_rw_request: compute the stripe index and
// intra-stripe offset, acquire the stripe (retrying on the owning
// channel if the cache is full), and hand off to handleStripe.
func (d *Dispatcher) SubmitRW(ch *Channel, io *RaidIO) {
	if EnableFastPathRead && io.Type == IORead {
		if d.tryFastPathRead(ch, io) {
			return
		}
	}

	stripeIndex := io.OffsetBlocks / uint64(d.geometry.StripeBlocks())
	stripeOffset := int(io.OffsetBlocks % uint64(d.geometry.StripeBlocks()))

	stripe, ok := d.cache.Get(stripeIndex)
	if !ok {
		ch.enqueueRetry(func() { d.SubmitRW(ch, io) })
		return
	}

	io.stripe = stripe
	io.beginParts(io.NumBlocks)
	d.handleStripe(ch, io, stripe, stripeIndex, stripeOffset, io.NumBlocks)
}

// handleStripe splits a write smaller than one strip that straddles the
// strip-size boundary into at most two StripeRequests against the same
// stripe (a partial-chunk write, followed immediately by the remaining
// portion in the next data chunk, would otherwise double-count which data
// chunk "owns" the parity preread math in plan()). Writes of a full strip
// or more, and all reads, are never split: plan() already computes correct
// per-member chunk ranges across multiple data chunks in a single request,
// and splitting them would double the prereads/parity updates for no
// reason. Grounded on raid5_handle_stripe's
// `base_bdev_io_remaining == blocks && type == WRITE && blocks <
// raid_bdev->strip_size` guard.
func (d *Dispatcher) handleStripe(ch *Channel, io *RaidIO, stripe *Stripe, stripeIndex uint64, stripeOffset, blocks int) {
	g := d.geometry

	splitAt := -1
	if io.Type == IOWrite && blocks < g.StripSize {
		firstIdx := stripeOffset >> g.StripSizeShift()
		lastIdx := (stripeOffset + blocks - 1) >> g.StripSizeShift()
		if firstIdx != lastIdx {
			boundary := (firstIdx + 1) << g.StripSizeShift()
			if boundary > stripeOffset && boundary < stripeOffset+blocks {
				splitAt = boundary
			}
		}
	}

	if splitAt == -1 {
		d.submitOne(ch, io, stripe, stripeIndex, stripeOffset, blocks)
		return
	}

	d.submitOne(ch, io, stripe, stripeIndex, stripeOffset, splitAt-stripeOffset)
	d.submitOne(ch, io, stripe, stripeIndex, splitAt, stripeOffset+blocks-splitAt)
}

func (d *Dispatcher) submitOne(ch *Channel, io *RaidIO, stripe *Stripe, stripeIndex uint64, stripeOffset, blocks int) {
	req := ch.reqPool.Get()
	if req == nil {
		ch.enqueueRetry(func() { d.submitOne(ch, io, stripe, stripeIndex, stripeOffset, blocks) })
		return
	}

	req.raidIO = io
	req.stripe = stripe
	req.geometry = d.geometry
	req.base = d.base
	req.channel = ch
	req.maxDegraded = d.maxDegraded
	req.status = StatusSuccess

	req.plan(stripeIndex, stripeOffset, blocks)
	req.iovOffset = d.iovOffsetFor(io, stripeIndex, stripeOffset)
	req.initIOVOffset = req.iovOffset

	if stripe.Enqueue(req) {
		ch.Post(req.submit)
	}
}

// iovOffsetFor computes the byte offset into io.IOVs where this
// sub-request's portion of the upstream buffer begins, expressed relative
// to the stripe's logical start (io.OffsetBlocks always falls inside a
// single stripe per the dispatcher's no-cross-stripe-span contract).
func (d *Dispatcher) iovOffsetFor(io *RaidIO, stripeIndex uint64, stripeOffset int) int {
	stripeStart := int(io.OffsetBlocks % uint64(d.geometry.StripeBlocks()))
	return (stripeOffset - stripeStart) * d.geometry.BlockLen
}

// tryFastPathRead is the disabled-by-default bypass: a read entirely
// within one data chunk of a non-degraded array can be issued straight to
// that member, skipping stripe/cache acquisition altogether. Grounded on
// raid5_handle_read / raid5_map_iov / raid5_complete_chunk_request_read,
// which the original source keeps present but never calls.
func (d *Dispatcher) tryFastPathRead(ch *Channel, io *RaidIO) bool {
	g := d.geometry
	stripeIndex := io.OffsetBlocks / uint64(g.StripeBlocks())
	stripeOffset := int(io.OffsetBlocks % uint64(g.StripeBlocks()))
	firstIdx := stripeOffset >> g.StripSizeShift()
	lastIdx := (stripeOffset + io.NumBlocks - 1) >> g.StripSizeShift()
	if firstIdx != lastIdx {
		return false
	}

	memberIdx := g.MemberIndexForDataIndex(stripeIndex, firstIdx)
	if d.base.IsDegraded(memberIdx) {
		return false
	}

	chunkOffset := firstIdx * g.StripSize
	offsetInChunk := stripeOffset - chunkOffset
	baseOffset := g.BaseOffsetBlocks(stripeIndex, offsetInChunk)

	cb := func(err error) {
		ch.Post(func() {
			io.completePart(io.NumBlocks, errnoToStatus(err))
		})
	}
	err := d.base.ReadvBlocks(io.Ctx, memberIdx, io.IOVs, baseOffset, io.NumBlocks, cb)
	switch {
	case err == nil:
		io.beginParts(io.NumBlocks)
		return true
	case errors.Is(err, ErrNoMem):
		// Member can't accept it right now; fall back to the normal
		// stripe-acquisition path rather than queuing here, since this
		// bypass owns no retry state of its own.
		return false
	default:
		panic(fmt.Errorf("raid5: fast-path read submission failed: %w", err))
	}
}
