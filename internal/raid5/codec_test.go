package raid5

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXORCodecEncodeAndReconstruct(t *testing.T) {
	codec := NewXORCodec()

	data := [][]byte{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}}
	parity := make([]byte, 4)
	assert.Nil(t, codec.Encode(data, parity))

	shards := [][]byte{
		append([]byte(nil), data[0]...),
		append([]byte(nil), data[1]...),
		nil,
		append([]byte(nil), parity...),
	}
	assert.Nil(t, codec.Reconstruct(shards))
	assert.Equal(t, data[2], shards[2])
}

func TestXORCodecReconstructNoOpWhenComplete(t *testing.T) {
	codec := NewXORCodec()
	shards := [][]byte{{1}, {2}, {3}}
	err := codec.Reconstruct(shards)
	assert.Nil(t, err)
}

func TestXORCodecRejectsMultipleMissing(t *testing.T) {
	codec := NewXORCodec()
	shards := [][]byte{{1}, nil, nil}
	err := codec.Reconstruct(shards)
	assert.NotNil(t, err)
}

func TestReedSolomonCodecEncodeAndReconstruct(t *testing.T) {
	codec, err := NewReedSolomonCodec(3)
	assert.Nil(t, err)

	data := [][]byte{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}}
	parity := make([]byte, 4)
	assert.Nil(t, codec.Encode(data, parity))

	shards := [][]byte{
		append([]byte(nil), data[0]...),
		nil,
		append([]byte(nil), data[2]...),
		append([]byte(nil), parity...),
	}
	assert.Nil(t, codec.Reconstruct(shards))
	assert.Equal(t, data[1], shards[1])
}
