package raid5

import "fmt"

// Geometry is the immutable logical layout of a RAID5 array: member count,
// strip size, and the derived stripe/member math. Grounded on raid5_info /
// raid_bdev in the original source, and on the teacher's
// NewRAID5Controller's up-front validation of disk count and stripe size.
type Geometry struct {
	// NumMembers is N, the number of member devices (>= 3).
	NumMembers int
	// StripSize is the number of blocks a single member contributes to a
	// stripe. Assumed to be a power of two (a log-shift is precomputed).
	StripSize int
	// BlockLen is the byte size of one block.
	BlockLen int

	stripSizeShift uint
	blockLenShift  uint
}

// NewGeometry validates and constructs a Geometry. stripSize and blockLen
// must both be powers of two, mirroring raid_bdev->strip_size_shift /
// blocklen_shift being precomputed rather than derived with a division at
// I/O time.
func NewGeometry(numMembers, stripSize, blockLen int) (*Geometry, error) {
	if numMembers < 3 {
		return nil, fmt.Errorf("raid5: requires at least 3 members (2 data + 1 parity), got %d", numMembers)
	}
	if stripSize <= 0 || !isPowerOfTwo(stripSize) {
		return nil, fmt.Errorf("raid5: strip size must be a positive power of two, got %d", stripSize)
	}
	if blockLen <= 0 || !isPowerOfTwo(blockLen) {
		return nil, fmt.Errorf("raid5: block length must be a positive power of two, got %d", blockLen)
	}

	return &Geometry{
		NumMembers:     numMembers,
		StripSize:      stripSize,
		BlockLen:       blockLen,
		stripSizeShift: log2(stripSize),
		blockLenShift:  log2(blockLen),
	}, nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func log2(n int) uint {
	var shift uint
	for n > 1 {
		n >>= 1
		shift++
	}
	return shift
}

// DataMembers returns D = N - 1, the data members per stripe.
func (g *Geometry) DataMembers() int {
	return g.NumMembers - 1
}

// StripeBlocks returns D * strip_size, the logical blocks per stripe.
func (g *Geometry) StripeBlocks() int {
	return g.DataMembers() * g.StripSize
}

// TotalStripes returns the number of stripes that fit given the smallest
// member's block count.
func (g *Geometry) TotalStripes(minMemberBlockCnt int) int {
	return minMemberBlockCnt / g.StripSize
}

// LogicalBlockCount returns the logical size, in blocks, exposed upstream.
func (g *Geometry) LogicalBlockCount(minMemberBlockCnt int) int {
	return g.StripeBlocks() * g.TotalStripes(minMemberBlockCnt)
}

// ParityMemberIndex computes P(s) = D - (s mod N), the rotating,
// left-symmetric parity placement for stripe index s.
func (g *Geometry) ParityMemberIndex(stripeIndex uint64) int {
	d := g.DataMembers()
	n := g.NumMembers
	return d - int(stripeIndex%uint64(n))
}

// MemberIndexForDataIndex maps a data index k in [0, D) to its member
// index within stripe s: k if k < P(s), else k+1.
func (g *Geometry) MemberIndexForDataIndex(stripeIndex uint64, dataIndex int) int {
	p := g.ParityMemberIndex(stripeIndex)
	if dataIndex < p {
		return dataIndex
	}
	return dataIndex + 1
}

// DataIndexForMemberIndex is the inverse of MemberIndexForDataIndex; it is
// only valid for member indices other than the parity member.
func (g *Geometry) DataIndexForMemberIndex(stripeIndex uint64, memberIndex int) int {
	p := g.ParityMemberIndex(stripeIndex)
	if memberIndex < p {
		return memberIndex
	}
	return memberIndex - 1
}

// StripSizeShift exposes the precomputed log2(StripSize), used for the
// member-relative base offset math (stripe_index << strip_size_shift).
func (g *Geometry) StripSizeShift() uint {
	return g.stripSizeShift
}

// BaseOffsetBlocks returns the physical block offset on a member device for
// a given stripe index and an offset within that member's strip.
func (g *Geometry) BaseOffsetBlocks(stripeIndex uint64, offsetInStrip int) uint64 {
	return (stripeIndex << g.stripSizeShift) + uint64(offsetInStrip)
}
