package raid5

import (
	"fmt"

	"github.com/klauspost/reedsolomon"
)

// ParityCodec computes and reconstructs stripe parity given whole,
// linearized shards (one buffer per data member, one for parity). It is a
// coarser-grained, pluggable alternative to the incremental XOR
// accumulation request.go performs chunk-by-chunk during RMW/RCW planning;
// spec §9 calls for the parity math to be "factored out cleanly so RAID-6
// ... slots in", and this is that seam. The hot path (request.go) always
// uses the XOR primitives in xor.go directly against scattered iovecs, not
// a ParityCodec — encoding/decoding whole shards requires them to be
// contiguous, which would force a copy out of the upstream buffers that
// the hot path is specifically designed to avoid (spec §4.1 rationale).
// ParityCodec operates on already materialized shard buffers; neither the
// engine nor the CLI calls it, and codec_test.go is its only caller here.
type ParityCodec interface {
	// Encode computes parity from data shards (each len bytes) into
	// parity (also len bytes).
	Encode(data [][]byte, parity []byte) error
	// Reconstruct restores any single nil entry in shards (length
	// len(shards)-1 data shards followed by the parity shard) from the
	// others. A no-op if no entry is nil.
	Reconstruct(shards [][]byte) error
}

// xorCodec is the default ParityCodec: parity = XOR of all data shards.
// Grounded on the bare XOR math the original source and this package's
// xor.go both use for RAID5 (single parity, D = N-1).
type xorCodec struct{}

// NewXORCodec returns the hand-rolled XOR-based ParityCodec.
func NewXORCodec() ParityCodec { return xorCodec{} }

func (xorCodec) Encode(data [][]byte, parity []byte) error {
	clear(parity)
	for _, d := range data {
		if len(d) != len(parity) {
			return fmt.Errorf("raid5: shard length mismatch: %d != %d", len(d), len(parity))
		}
		xorBuf(parity, d)
	}
	return nil
}

func (xorCodec) Reconstruct(shards [][]byte) error {
	missing := -1
	for i, s := range shards {
		if s == nil {
			if missing != -1 {
				return fmt.Errorf("raid5: more than one missing shard, cannot reconstruct with single parity")
			}
			missing = i
		}
	}
	if missing == -1 {
		return nil
	}

	var shardLen int
	for _, s := range shards {
		if s != nil {
			shardLen = len(s)
			break
		}
	}

	out := make([]byte, shardLen)
	for i, s := range shards {
		if i == missing {
			continue
		}
		xorBuf(out, s)
	}
	shards[missing] = out
	return nil
}

// rsCodec is a Reed-Solomon-backed ParityCodec (D data shards, 1 parity
// shard), wired via github.com/klauspost/reedsolomon. Grounded on the
// teacher repo's internal/rsutil package (EncodeStripeShards /
// ReconstructStripeShards), adapted to the ParityCodec interface.
type rsCodec struct {
	enc reedsolomon.Encoder
}

// NewReedSolomonCodec builds a ParityCodec for dataShards data members and
// exactly one parity member.
func NewReedSolomonCodec(dataShards int) (ParityCodec, error) {
	enc, err := reedsolomon.New(dataShards, 1)
	if err != nil {
		return nil, fmt.Errorf("raid5: failed to create reedsolomon encoder: %w", err)
	}
	return &rsCodec{enc: enc}, nil
}

func (c *rsCodec) Encode(data [][]byte, parity []byte) error {
	shards := make([][]byte, len(data)+1)
	copy(shards, data)
	shards[len(data)] = parity
	return c.enc.Encode(shards)
}

func (c *rsCodec) Reconstruct(shards [][]byte) error {
	missing := 0
	for _, s := range shards {
		if s == nil {
			missing++
		}
	}
	if missing == 0 {
		return nil
	}
	if missing > 1 {
		return fmt.Errorf("raid5: too many missing shards (%d), only 1 parity shard available", missing)
	}
	return c.enc.Reconstruct(shards)
}
