package raid5

// IOVec is a single contiguous scatter-gather segment, analogous to a C
// struct iovec's {base, len} but expressed as a Go slice (len is implicit).
type IOVec = []byte

// xorBuf XORs src into dst in place, in unrolled groups of 8 bytes
// (blocks are 512B/4KiB, so there is normally no remainder), falling back
// to a byte loop for any remainder. Mirrors the portable
// fallback implementation of raid5_xor_buf in the original source (the
// ISA-L-accelerated path is a lower-level concern this module doesn't own).
func xorBuf(dst, src []byte) {
	n := len(dst)
	i := 0
	for ; i+8 <= n; i += 8 {
		d := dst[i : i+8 : i+8]
		s := src[i : i+8 : i+8]
		d[0] ^= s[0]
		d[1] ^= s[1]
		d[2] ^= s[2]
		d[3] ^= s[3]
		d[4] ^= s[4]
		d[5] ^= s[5]
		d[6] ^= s[6]
		d[7] ^= s[7]
	}
	for ; i < n; i++ {
		dst[i] ^= src[i]
	}
}

// XORIOVs advances two independent cursors through dst and src to their
// respective byte offsets, then repeatedly XORs the min-contiguous window
// across both vectors into dst, advancing both cursors, until size bytes
// have been processed. Grounded on raid5_xor_iovs.
func XORIOVs(dst []IOVec, dstOff int, src []IOVec, srcOff int, size int) {
	walkIOVPair(dst, dstOff, src, srcOff, size, xorBuf)
}

// MemcpyIOVs has identical cursor logic to XORIOVs but copies src into dst
// instead of XOR-ing. Grounded on raid5_memcpy_iovs.
func MemcpyIOVs(dst []IOVec, dstOff int, src []IOVec, srcOff int, size int) {
	walkIOVPair(dst, dstOff, src, srcOff, size, func(d, s []byte) { copy(d, s) })
}

// ZeroIOVs zeroes every segment of iovs. Grounded on raid5_memset_iovs(...,
// 0), used to clear parity/reconstruction scratch before accumulating XORs
// into it.
func ZeroIOVs(iovs []IOVec) {
	for _, v := range iovs {
		clear(v)
	}
}

// walkIOVPair implements the shared cursor-advance logic used by XORIOVs
// and MemcpyIOVs: locate the starting segment+intra-segment offset in each
// vector, then repeatedly apply op to the largest contiguous window shared
// by both vectors and the remaining size.
func walkIOVPair(dst []IOVec, dstOff int, src []IOVec, srcOff int, size int, op func(d, s []byte)) {
	di, dOff := locate(dst, dstOff)
	si, sOff := locate(src, srcOff)

	for di < len(dst) && si < len(src) && size > 0 {
		d := dst[di][dOff:]
		s := src[si][sOff:]

		n := len(d)
		if len(s) < n {
			n = len(s)
		}
		if size < n {
			n = size
		}

		op(d[:n], s[:n])

		size -= n
		dOff += n
		sOff += n

		if dOff == len(dst[di]) {
			dOff = 0
			di++
		}
		if sOff == len(src[si]) {
			sOff = 0
			si++
		}
	}
}

// locate finds the segment index and intra-segment offset corresponding to
// a cumulative byte offset into a scatter-gather vector.
func locate(iovs []IOVec, offset int) (idx, segOff int) {
	n := 0
	for i, v := range iovs {
		if n+len(v) > offset {
			return i, offset - n
		}
		n += len(v)
	}
	return len(iovs), 0
}
