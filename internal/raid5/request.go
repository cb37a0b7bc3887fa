package raid5

import (
	"context"
	"errors"
	"fmt"
)

// noChunk is the sentinel for "no member index" (degradedChunk when the
// array is not currently degraded).
const noChunk = -1

// StripeRequest is the unit of work against a single stripe (C5): the plan
// (which chunks need preread, which need read/write, which is parity,
// which if any is degraded), the in-flight chunk count, and the completion
// continuation. One upstream RaidIO produces one StripeRequest, or two when
// a write straddles a strip boundary (handled by the dispatcher). Grounded
// on struct stripe_request in the original source.
type StripeRequest struct {
	raidIO *RaidIO
	stripe *Stripe

	geometry   *Geometry
	base       BaseDevice
	channel    *Channel
	maxDegraded int

	// qnode links this request into its stripe's FIFO (stripe.go).
	qnode node[*StripeRequest]

	chunks        []Chunk
	firstDataChunk int
	lastDataChunk  int
	parityChunk    int
	degradedChunk  int

	// iovOffset/initIOVOffset track the cursor into raidIO.IOVs as chunks
	// are mapped to upstream buffers; initIOVOffset is the value iovOffset
	// started at, restored before the post-reconstruction copy pass of a
	// degraded read.
	iovOffset     int
	initIOVOffset int

	status    Status
	remaining int

	// onAllChunksComplete is the current phase's continuation, invoked
	// once remaining reaches zero with no failures. Reassigned as the
	// request advances through its state machine (preread -> compute ->
	// submit -> complete).
	onAllChunksComplete func()
}

// reset clears a StripeRequest for return to its pool. chunks retains its
// backing array (sized for the geometry's member count); everything else
// is zeroed.
func (req *StripeRequest) reset() {
	for i := range req.chunks {
		c := &req.chunks[i]
		if c.headerBorrowed {
			req.channel.putIOVHeader(c.IOVs)
		}
		req.chunks[i] = Chunk{Index: i}
	}
	req.raidIO = nil
	req.stripe = nil
	req.geometry = nil
	req.base = nil
	req.channel = nil
	req.firstDataChunk = 0
	req.lastDataChunk = 0
	req.parityChunk = 0
	req.degradedChunk = noChunk
	req.iovOffset = 0
	req.initIOVOffset = 0
	req.status = StatusSuccess
	req.remaining = 0
	req.onAllChunksComplete = nil
}

// plan fills in req's chunk ranges for a request covering [stripeOffset,
// stripeOffset+blocks) of logical stripe stripeIndex's data space (blocks
// counted in units of D*strip_size). Grounded on the middle section of
// raid5_handle_stripe.
func (req *StripeRequest) plan(stripeIndex uint64, stripeOffset, blocks int) {
	g := req.geometry
	req.parityChunk = g.ParityMemberIndex(stripeIndex)
	req.degradedChunk = noChunk

	firstDataIdx := stripeOffset >> g.StripSizeShift()
	lastDataIdx := (stripeOffset + blocks - 1) >> g.StripSizeShift()
	req.firstDataChunk = g.MemberIndexForDataIndex(stripeIndex, firstDataIdx)
	req.lastDataChunk = g.MemberIndexForDataIndex(stripeIndex, lastDataIdx)

	stripeOffsetFrom := stripeOffset
	stripeOffsetTo := stripeOffset + blocks

	for i := range req.chunks {
		c := &req.chunks[i]
		c.Index = i
		if i == req.parityChunk || i < req.firstDataChunk || i > req.lastDataChunk {
			c.ReqOffset, c.ReqBlocks = 0, 0
			continue
		}

		dataIdx := g.DataIndexForMemberIndex(stripeIndex, i)
		chunkOffsetFrom := dataIdx * g.StripSize
		chunkOffsetTo := chunkOffsetFrom + g.StripSize

		reqOffset := 0
		if stripeOffsetFrom > chunkOffsetFrom {
			reqOffset = stripeOffsetFrom - chunkOffsetFrom
		}
		reqBlocks := g.StripSize
		if stripeOffsetTo < chunkOffsetTo {
			reqBlocks = stripeOffsetTo - chunkOffsetFrom
		}
		reqBlocks -= reqOffset

		c.ReqOffset = reqOffset
		c.ReqBlocks = reqBlocks
	}
}

func (req *StripeRequest) forEachChunk(fn func(idx int, c *Chunk)) {
	for i := range req.chunks {
		fn(i, &req.chunks[i])
	}
}

func (req *StripeRequest) forEachDataChunk(fn func(idx int, c *Chunk)) {
	for i := range req.chunks {
		if i == req.parityChunk {
			continue
		}
		fn(i, &req.chunks[i])
	}
}

// bindScratch points chunk idx's IOVs at the first blocks*blockLen bytes of
// the stripe's scratch buffer for that member. Used for preread
// destinations and parity compute/verify buffers, never for request data
// mapped directly from the upstream RaidIO. Grounded on the
// chunk->iov.iov_base = stripe_req->stripe->chunk_buffers[chunk->index]
// assignments throughout raid5.c: the buffer is always addressed from its
// own start, with req_offset/preread_offset kept as separate bookkeeping
// used only to compute relative offsets between chunks (see
// onPrereadCompleteRMW/RCW below), not as an offset into the buffer itself.
func (req *StripeRequest) bindScratch(idx, blocks int) {
	c := &req.chunks[idx]
	if c.headerBorrowed {
		req.channel.putIOVHeader(c.IOVs)
		c.headerBorrowed = false
	}
	buf := req.stripe.scratch[idx]
	ln := blocks * req.geometry.BlockLen
	c.IOVs = []IOVec{buf[:ln]}
}

// mapReqData binds chunk idx's IOVs to the upstream RaidIO's buffers
// starting at the request's current iovOffset cursor, advancing the
// cursor. The chunk's []IOVec header is borrowed from the owning
// channel's pool on first use (reset returns it), so splitting a request
// across several upstream segments doesn't allocate a fresh header slice
// per chunk per I/O. Grounded on raid5_chunk_map_req_data.
func (req *StripeRequest) mapReqData(idx int) error {
	c := &req.chunks[idx]
	if c.IOVs == nil {
		c.IOVs = req.channel.getIOVHeader(4)
		c.headerBorrowed = true
	}
	length := c.ReqBlocks * req.geometry.BlockLen
	if err := MapIOVToChunk(c, req.raidIO.IOVs, req.iovOffset, length); err != nil {
		return err
	}
	req.iovOffset += length
	return nil
}

// checkDegraded scans every member of the stripe, whether or not this
// request touches it, and records the last degraded member found. Returns false if more members are degraded
// than the array can tolerate. Grounded on raid5_check_degraded.
func (req *StripeRequest) checkDegraded() bool {
	degraded := noChunk
	total := 0
	req.forEachChunk(func(idx int, _ *Chunk) {
		if req.base.IsDegraded(idx) {
			total++
			degraded = idx
		}
	})
	req.degradedChunk = degraded
	return total <= req.maxDegraded
}

// submit is the entry point for a freshly planned request and for a
// request dequeued to run next against its stripe (spec §4.4 intro: "every
// request re-checks degraded state when it is dispatched, not just when it
// is planned"). Grounded on raid5_submit_stripe_request.
func (req *StripeRequest) submit() {
	if !req.checkDegraded() {
		req.abort(StatusFailed)
		return
	}
	if req.raidIO.Type == IORead {
		req.planRead()
	} else {
		req.planWrite()
	}
}

// planWrite is the write-path entry: degraded writes take a dedicated
// path; otherwise this is the RMW/RCW vote followed by preread submission.
// Grounded on raid5_stripe_write.
func (req *StripeRequest) planWrite() {
	if req.degradedChunk != noChunk {
		req.planDegradedWrite()
		return
	}

	g := req.geometry
	p := req.parityChunk

	if req.firstDataChunk == req.lastDataChunk {
		req.chunks[p].ReqOffset = req.chunks[req.firstDataChunk].ReqOffset
		req.chunks[p].ReqBlocks = req.chunks[req.firstDataChunk].ReqBlocks
	} else {
		req.chunks[p].ReqOffset = 0
		req.chunks[p].ReqBlocks = g.StripSize
	}

	balance := 0
	req.forEachDataChunk(func(idx int, c *Chunk) {
		if c.ReqBlocks < req.chunks[p].ReqBlocks {
			balance++
		}
		if c.ReqBlocks > 0 {
			balance--
		}
	})
	rmw := balance > 0
	if rmw {
		req.onAllChunksComplete = req.onPrereadCompleteRMW
	} else {
		req.onAllChunksComplete = req.onPrereadCompleteRCW
	}

	req.forEachChunk(func(idx int, c *Chunk) {
		if rmw {
			c.PrereadOffset = c.ReqOffset
			c.PrereadBlocks = c.ReqBlocks
		} else {
			switch {
			case idx == p:
				c.PrereadOffset, c.PrereadBlocks = 0, 0
			case req.firstDataChunk == req.lastDataChunk:
				if c.ReqBlocks > 0 {
					c.PrereadOffset, c.PrereadBlocks = 0, 0
				} else {
					c.PrereadOffset = req.chunks[p].ReqOffset
					c.PrereadBlocks = req.chunks[p].ReqBlocks
				}
			default:
				if c.ReqOffset > 0 {
					c.PrereadOffset = 0
					c.PrereadBlocks = c.ReqOffset
				} else {
					c.PrereadOffset = c.ReqBlocks
					c.PrereadBlocks = g.StripSize - c.ReqBlocks
				}
			}
		}

		if c.PrereadBlocks > 0 || idx == p {
			blocks := c.PrereadBlocks
			if idx == p {
				blocks = c.ReqBlocks
			}
			req.bindScratch(idx, blocks)
		}
		if c.PrereadBlocks > 0 {
			req.submitChunk(idx, ChunkPreread)
		}
	})

	if req.remaining == 0 {
		req.onAllChunksComplete()
	}
}

// onPrereadCompleteRMW computes parity as old_parity XOR old_data XOR
// new_data for every touched data chunk, then submits the writes.
// Grounded on raid5_stripe_write_preread_complete_rmw.
func (req *StripeRequest) onPrereadCompleteRMW() {
	g := req.geometry
	p := req.parityChunk
	var failed error

	req.forEachDataChunk(func(idx int, c *Chunk) {
		if failed != nil || c.ReqBlocks == 0 {
			return
		}
		destOffset := (c.ReqOffset - req.chunks[p].ReqOffset) * g.BlockLen
		XORIOVs(req.chunks[p].IOVs, destOffset, c.IOVs, 0, c.ReqBlocks*g.BlockLen)
		if err := req.mapReqData(idx); err != nil {
			failed = err
			return
		}
		XORIOVs(req.chunks[p].IOVs, destOffset, c.IOVs, 0, c.ReqBlocks*g.BlockLen)
	})
	if failed != nil {
		req.abort(errnoToStatus(failed))
		return
	}
	req.submitWrites()
}

// onPrereadCompleteRCW computes parity from scratch as XOR of every data
// chunk's new data (and, for partially-touched chunks, its prereads),
// then submits the writes. Grounded on raid5_stripe_write_preread_complete.
func (req *StripeRequest) onPrereadCompleteRCW() {
	g := req.geometry
	p := req.parityChunk
	ZeroIOVs(req.chunks[p].IOVs)
	var failed error

	req.forEachDataChunk(func(idx int, c *Chunk) {
		if failed != nil {
			return
		}
		if c.PrereadBlocks > 0 {
			destOffset := (c.PrereadOffset - req.chunks[p].ReqOffset) * g.BlockLen
			XORIOVs(req.chunks[p].IOVs, destOffset, c.IOVs, 0, c.PrereadBlocks*g.BlockLen)
		}
		if c.ReqBlocks > 0 {
			if err := req.mapReqData(idx); err != nil {
				failed = err
				return
			}
			destOffset := (c.ReqOffset - req.chunks[p].ReqOffset) * g.BlockLen
			XORIOVs(req.chunks[p].IOVs, destOffset, c.IOVs, 0, c.ReqBlocks*g.BlockLen)
		}
	})
	if failed != nil {
		req.abort(errnoToStatus(failed))
		return
	}
	req.submitWrites()
}

// submitWrites submits the actual write for every chunk with request
// blocks, skipping the degraded member (if any). Grounded on
// raid5_stripe_write_submit.
func (req *StripeRequest) submitWrites() {
	req.onAllChunksComplete = req.complete
	req.forEachChunk(func(idx int, c *Chunk) {
		if c.ReqBlocks > 0 && idx != req.degradedChunk {
			req.submitChunk(idx, ChunkWrite)
		}
	})
}

// planDegradedWrite handles a write that touches a currently-degraded
// member. If the parity member itself is degraded, this degrades to a
// plain RMW-free write (there is no parity to maintain). Otherwise every
// surviving chunk must be prereads so the degraded member's new contents
// can be derived from parity after the fact. Grounded on
// raid5_degraded_write.
func (req *StripeRequest) planDegradedWrite() {
	g := req.geometry
	d := req.degradedChunk
	p := req.parityChunk

	if d == p {
		var failed error
		req.forEachDataChunk(func(idx int, c *Chunk) {
			if failed != nil || c.ReqBlocks == 0 {
				return
			}
			if err := req.mapReqData(idx); err != nil {
				failed = err
			}
		})
		if failed != nil {
			req.abort(errnoToStatus(failed))
			return
		}
		req.submitWrites()
		return
	}

	if req.firstDataChunk == req.lastDataChunk {
		req.chunks[p].ReqOffset = req.chunks[req.firstDataChunk].ReqOffset
		req.chunks[p].ReqBlocks = req.chunks[req.firstDataChunk].ReqBlocks
	} else {
		req.chunks[p].ReqOffset = 0
		req.chunks[p].ReqBlocks = g.StripSize
	}

	if req.chunks[d].ReqBlocks > 0 {
		req.onAllChunksComplete = req.onPrereadCompleteDegraded
	} else {
		req.onAllChunksComplete = req.onPrereadCompleteRMW
	}

	dChunk := &req.chunks[d]
	for i := range req.chunks {
		if i == d {
			req.chunks[i].PrereadOffset, req.chunks[i].PrereadBlocks = 0, 0
			continue
		}
		c := &req.chunks[i]

		switch {
		case dChunk.ReqBlocks == 0:
			c.PrereadOffset = c.ReqOffset
			c.PrereadBlocks = c.ReqBlocks
		case req.firstDataChunk == req.lastDataChunk:
			if i == p {
				c.PrereadOffset, c.PrereadBlocks = 0, 0
			} else {
				c.PrereadOffset = req.chunks[p].ReqOffset
				c.PrereadBlocks = req.chunks[p].ReqBlocks
			}
		case dChunk.ReqOffset == 0 && dChunk.ReqBlocks == g.StripSize:
			switch {
			case i == p:
				c.PrereadOffset, c.PrereadBlocks = 0, 0
			case c.ReqOffset > 0:
				c.PrereadOffset = 0
				c.PrereadBlocks = c.ReqOffset
			default:
				c.PrereadOffset = c.ReqBlocks
				c.PrereadBlocks = g.StripSize - c.ReqBlocks
			}
		case i == p:
			if dChunk.ReqOffset > 0 {
				c.PrereadOffset = 0
				c.PrereadBlocks = dChunk.ReqOffset
			} else {
				c.PrereadOffset = dChunk.ReqBlocks
				c.PrereadBlocks = g.StripSize - dChunk.ReqBlocks
			}
		case i == req.firstDataChunk || i == req.lastDataChunk || c.ReqBlocks == 0:
			c.PrereadOffset = 0
			c.PrereadBlocks = g.StripSize
		default:
			if dChunk.ReqOffset > 0 {
				c.PrereadOffset = 0
				c.PrereadBlocks = dChunk.ReqOffset
			} else {
				c.PrereadOffset = dChunk.ReqBlocks
				c.PrereadBlocks = g.StripSize - dChunk.ReqBlocks
			}
		}

		if c.PrereadBlocks > 0 || i == p {
			blocks := c.PrereadBlocks
			if i == p {
				blocks = c.ReqBlocks
			}
			req.bindScratch(i, blocks)
		}
		if c.PrereadBlocks > 0 {
			req.submitChunk(i, ChunkPreread)
		}
	}

	if req.remaining == 0 {
		req.onAllChunksComplete()
	}
}

// onPrereadCompleteDegraded recomputes parity from scratch, the same way
// onPrereadCompleteRCW does, with one exception: the degraded member never
// contributed a preread (it cannot be read), so its term in the XOR sum is
// its new data alone, never an old-data cancellation. The preread plan
// built by planDegradedWrite already arranged every surviving member's
// preread to cover exactly the range needed for this to produce a correct
// new parity. Grounded on raid5_stripe_write_preread_complete_degraded.
func (req *StripeRequest) onPrereadCompleteDegraded() {
	g := req.geometry
	p := req.parityChunk
	d := req.degradedChunk
	ZeroIOVs(req.chunks[p].IOVs)
	var failed error

	req.forEachDataChunk(func(idx int, c *Chunk) {
		if failed != nil {
			return
		}
		if idx != d && c.PrereadBlocks > 0 {
			destOffset := (c.PrereadOffset - req.chunks[p].ReqOffset) * g.BlockLen
			XORIOVs(req.chunks[p].IOVs, destOffset, c.IOVs, 0, c.PrereadBlocks*g.BlockLen)
		}
		if c.ReqBlocks > 0 {
			if err := req.mapReqData(idx); err != nil {
				failed = err
				return
			}
			destOffset := (c.ReqOffset - req.chunks[p].ReqOffset) * g.BlockLen
			XORIOVs(req.chunks[p].IOVs, destOffset, c.IOVs, 0, c.ReqBlocks*g.BlockLen)
		}
	})
	if failed != nil {
		req.abort(errnoToStatus(failed))
		return
	}
	req.submitWrites()
}

// planRead is the read-path entry. A degraded read that actually touches
// the missing member reconstructs it from parity and surviving data; any
// other read (including one where the degraded member happens not to be
// touched) is a plain scatter read. Grounded on raid5_stripe_read.
func (req *StripeRequest) planRead() {
	d := req.degradedChunk
	g := req.geometry

	if d == noChunk || req.chunks[d].ReqBlocks == 0 {
		req.onAllChunksComplete = req.complete
		var failed error
		req.forEachDataChunk(func(idx int, c *Chunk) {
			if failed != nil || c.ReqBlocks == 0 {
				return
			}
			if err := req.mapReqData(idx); err != nil {
				failed = err
				return
			}
			req.submitChunk(idx, ChunkRead)
		})
		if failed != nil {
			req.abort(errnoToStatus(failed))
		}
		return
	}

	req.onAllChunksComplete = req.completeReconstructedRead
	dReq := req.chunks[d]
	var failed error

	for i := range req.chunks {
		if failed != nil {
			break
		}
		c := &req.chunks[i]
		switch {
		case c.ReqBlocks == 0:
			c.PrereadOffset = dReq.ReqOffset
			c.PrereadBlocks = dReq.ReqBlocks
			req.bindScratch(i, c.PrereadBlocks)
		case i == d:
			c.PrereadOffset, c.PrereadBlocks = 0, 0
			if err := req.mapReqData(i); err != nil {
				failed = err
				continue
			}
		case c.ReqOffset > dReq.ReqOffset || c.ReqOffset+c.ReqBlocks < dReq.ReqOffset+dReq.ReqBlocks:
			lo := c.ReqOffset
			if dReq.ReqOffset < lo {
				lo = dReq.ReqOffset
			}
			hi := c.ReqOffset + c.ReqBlocks
			if dReq.ReqOffset+dReq.ReqBlocks > hi {
				hi = dReq.ReqOffset + dReq.ReqBlocks
			}
			c.PrereadOffset = lo
			c.PrereadBlocks = hi - lo
			req.bindScratch(i, c.PrereadBlocks)
			req.iovOffset += c.ReqBlocks * g.BlockLen
		default:
			c.PrereadOffset, c.PrereadBlocks = 0, 0
			if err := req.mapReqData(i); err != nil {
				failed = err
				continue
			}
		}

		if c.PrereadBlocks > 0 {
			req.submitChunk(i, ChunkPreread)
		} else if c.ReqBlocks > 0 && i != d {
			req.submitChunk(i, ChunkRead)
		}
	}

	if failed != nil {
		req.abort(errnoToStatus(failed))
	}
}

// completeReconstructedRead XORs every surviving member's contribution
// directly into the degraded member's upstream destination buffers, copies
// every other chunk's already-preread data into the upstream buffers, then
// completes. Grounded on
// raid5_complete_reconstructed_stripe_request.
func (req *StripeRequest) completeReconstructedRead() {
	g := req.geometry
	d := req.degradedChunk
	dReq := req.chunks[d]

	ZeroIOVs(req.chunks[d].IOVs)
	for i := range req.chunks {
		if i == d {
			continue
		}
		c := &req.chunks[i]
		var srcOffset int
		if c.RequestType == ChunkPreread {
			srcOffset = (dReq.ReqOffset - c.PrereadOffset) * g.BlockLen
		} else {
			srcOffset = (dReq.ReqOffset - c.ReqOffset) * g.BlockLen
		}
		XORIOVs(req.chunks[d].IOVs, 0, c.IOVs, srcOffset, dReq.ReqBlocks*g.BlockLen)
	}

	req.iovOffset = req.initIOVOffset
	var failed error
	req.forEachDataChunk(func(idx int, c *Chunk) {
		if failed != nil {
			return
		}
		ln := c.ReqBlocks * g.BlockLen
		if c.ReqBlocks > 0 && idx != d && c.RequestType == ChunkPreread {
			prereadIOVs := c.IOVs
			// Detach the scratch binding so mapReqData does not reuse (and
			// overwrite) the backing array prereadIOVs still points into.
			c.IOVs = nil
			if err := req.mapReqData(idx); err != nil {
				failed = err
				return
			}
			srcOffset := (c.ReqOffset - c.PrereadOffset) * g.BlockLen
			MemcpyIOVs(c.IOVs, 0, prereadIOVs, srcOffset, ln)
		} else if c.ReqBlocks > 0 {
			req.iovOffset += ln
		}
	})
	if failed != nil {
		req.abort(errnoToStatus(failed))
		return
	}
	req.complete()
}

// submitChunk marks chunk idx in-flight as request type t and attempts
// submission, registering for retry on NOMEM. Grounded on
// raid5_submit_chunk_request.
func (req *StripeRequest) submitChunk(idx int, t ChunkRequestType) {
	req.remaining++
	req.chunks[idx].RequestType = t
	req.doSubmitChunk(idx)
}

// doSubmitChunk is the retryable half of submitChunk, re-entered directly
// from a base device's wait-queue callback without re-incrementing
// remaining. Grounded on _raid5_submit_chunk_request.
func (req *StripeRequest) doSubmitChunk(idx int) {
	c := &req.chunks[idx]

	var offset, numBlocks int
	var isRead bool
	switch c.RequestType {
	case ChunkPreread:
		offset, numBlocks, isRead = c.PrereadOffset, c.PrereadBlocks, true
	case ChunkRead:
		offset, numBlocks, isRead = c.ReqOffset, c.ReqBlocks, true
	case ChunkWrite:
		offset, numBlocks, isRead = c.ReqOffset, c.ReqBlocks, false
	}

	baseOffset := req.geometry.BaseOffsetBlocks(req.stripe.Index, offset)
	ch := req.channel
	cb := func(err error) {
		ch.Post(func() { req.onChunkDone(idx, err) })
	}

	ctx := req.raidIO.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	var err error
	if isRead {
		err = req.base.ReadvBlocks(ctx, idx, c.IOVs, baseOffset, numBlocks, cb)
	} else {
		err = req.base.WritevBlocks(ctx, idx, c.IOVs, baseOffset, numBlocks, cb)
	}
	if err == nil {
		return
	}
	if errors.Is(err, ErrNoMem) {
		req.base.QueueIOWait(idx, func() { req.doSubmitChunk(idx) })
		return
	}
	panic(fmt.Errorf("raid5: base device rejected chunk submission for a reason other than NOMEM: %w", err))
}

// onChunkDone accounts for one completed chunk I/O, latching failure and
// advancing to the next phase (or straight to completion on failure) once
// every outstanding chunk for this request has finished. Grounded on
// raid5_complete_chunk_request.
func (req *StripeRequest) onChunkDone(idx int, err error) {
	if err != nil {
		req.status = StatusFailed
	}
	req.remaining--
	if req.remaining > 0 {
		return
	}
	if req.status == StatusSuccess {
		req.onAllChunksComplete()
	} else {
		req.complete()
	}
}

// abort short-circuits straight to completion with status, abandoning any
// further phases. Grounded on raid5_abort_stripe_request.
func (req *StripeRequest) abort(status Status) {
	req.remaining = 0
	req.status = status
	req.complete()
}

// complete is the terminal step for a StripeRequest: dequeue and kick off
// the next request (if any) waiting on this stripe, account the completed
// blocks against the owning RaidIO, release the request back to its pool,
// and drop the stripe's reference once the whole logical I/O is done.
// Grounded on raid5_complete_stripe_request.
func (req *StripeRequest) complete() {
	next := req.stripe.Dequeue(req)
	if next != nil {
		nc := next.channel
		nc.Post(func() { next.submit() })
	}

	reqBlocks := 0
	req.forEachDataChunk(func(_ int, c *Chunk) {
		reqBlocks += c.ReqBlocks
	})

	status := req.status
	stripe := req.stripe
	raidIO := req.raidIO
	channel := req.channel
	pool := channel.reqPool

	pool.Put(req)

	if raidIO.completePart(reqBlocks, status) {
		stripe.Unref()
	}
	channel.drainOneRetry()
}
