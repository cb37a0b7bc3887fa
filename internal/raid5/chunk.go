package raid5

// ChunkRequestType is the kind of I/O a chunk is currently submitted as.
// Grounded on enum chunk_request_type { CHUNK_READ, CHUNK_WRITE, CHUNK_PREREAD }.
type ChunkRequestType int

const (
	ChunkRead ChunkRequestType = iota
	ChunkWrite
	ChunkPreread
)

func (t ChunkRequestType) String() string {
	switch t {
	case ChunkRead:
		return "read"
	case ChunkWrite:
		return "write"
	case ChunkPreread:
		return "preread"
	default:
		return "unknown"
	}
}

// Chunk is the per-member slice of one stripe request (C2): offset, length,
// buffers, and submission state. Grounded on struct chunk in the original
// source. Go slices already grow/shrink without the embedded-vs-heap-array
// distinction the C struct needs (a single inline iovec vs. a realloc'd
// array), so IOVs is simply a slice throughout.
type Chunk struct {
	// Index is the member (base device) index this chunk targets.
	Index int

	// ReqOffset/ReqBlocks is the range, in blocks from the strip start,
	// that this chunk must read or write to satisfy the upstream request.
	ReqOffset int
	ReqBlocks int

	// PrereadOffset/PrereadBlocks is the range that must be read before
	// parity can be computed (RMW/RCW) or before data can be reconstructed
	// (degraded read). Zero when no preread is needed.
	PrereadOffset int
	PrereadBlocks int

	// IOVs is the scatter-gather vector bound to this chunk's in-flight
	// I/O: either a view into the upstream request's buffers (mapped via
	// MapIOVToChunk) or the stripe's scratch buffer for this member.
	IOVs []IOVec

	RequestType ChunkRequestType

	// retryQueued is set while this chunk is parked on a base device's
	// own wait facility after an ENOMEM submission (spec §4.4.8 /
	// §7: "NOMEM during chunk submission -> queued on base device's own
	// wait facility; retried automatically").
	retryQueued bool

	// headerBorrowed marks that IOVs's backing array was borrowed from
	// the owning channel's iovec-header pool (via mapReqData) rather
	// than freshly allocated, so it must be returned to that pool
	// instead of dropped when the chunk is rebound or the request is
	// reset.
	headerBorrowed bool
}

// MapIOVToChunk walks upstream, the iovecs of the upstream logical request,
// to locate the segment covering byte offset upstreamOffset, then fills
// chunk.IOVs with however many upstream segments are needed to cover len
// bytes, each entry offset into its source segment appropriately. Returns
// ErrInvalidInput if len exceeds what upstream actually contains starting
// at upstreamOffset. Grounded on raid5_chunk_map_iov / raid5_map_iov.
func MapIOVToChunk(chunk *Chunk, upstream []IOVec, upstreamOffset, length int) error {
	startIdx, startOff := locate(upstream, upstreamOffset)
	if startIdx >= len(upstream) {
		return ErrInvalidInput
	}

	out := chunk.IOVs[:0]
	off := startOff
	remaining := length
	for i := startIdx; i < len(upstream) && remaining > 0; i++ {
		seg := upstream[i]
		avail := len(seg) - off
		n := avail
		if n > remaining {
			n = remaining
		}
		out = append(out, seg[off:off+n])
		remaining -= n
		off = 0
	}

	if remaining > 0 {
		return ErrInvalidInput
	}

	chunk.IOVs = out
	return nil
}

// blocksFromBytes returns the number of blocks represented by lengthBytes
// bytes given blockLen.
func blocksFromBytes(lengthBytes, blockLen int) int {
	return lengthBytes / blockLen
}

func bytesFromBlocks(blocks, blockLen int) int {
	return blocks * blockLen
}
