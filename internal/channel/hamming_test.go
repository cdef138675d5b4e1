package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flipBit(encoded []byte, pos int) []byte {
	out := make([]byte, len(encoded))
	copy(out, encoded)
	byteIdx := pos / 8
	bitIdx := 7 - uint(pos%8)
	out[byteIdx] ^= 1 << bitIdx
	return out
}

func TestHammingRoundTripNoNoise(t *testing.T) {
	for x := 0; x < 16; x++ {
		nibble := byte(x)
		encoded := packBits(encodeNibble(nibble))
		decoded := decodeNibble(unpackBits(encoded))
		assert.Equal(t, nibble, decoded, "nibble %04b", nibble)
	}
}

func TestHammingCorrectsSingleBitFlipAnyPosition(t *testing.T) {
	for x := 0; x < 16; x++ {
		nibble := byte(x)
		bits := encodeNibble(nibble)
		for pos := 0; pos < 7; pos++ {
			flipped := make([]byte, 7)
			copy(flipped, bits)
			flipped[pos] ^= 1
			decoded := decodeNibble(flipped)
			assert.Equal(t, nibble, decoded, "nibble %04b flipped at %d", nibble, pos)
		}
	}
}

func TestEncodeDecodeBytes(t *testing.T) {
	data := []byte("hello, satellite relay")
	encoded := EncodeHamming74(data)
	decoded, err := DecodeHamming74(encoded)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestEncodeDecodeWithSingleBitFlipPerBlock(t *testing.T) {
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	encoded := EncodeHamming74(data)

	// Flip one bit in the first 7-bit block only.
	flipped := flipBit(encoded, 3)

	decoded, err := DecodeHamming74(flipped)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestDecodeShortInputErrors(t *testing.T) {
	_, err := DecodeHamming74([]byte{0x00})
	assert.Error(t, err)
}

func TestDecodeDropsTrailingPaddingNibbleForOddByteCounts(t *testing.T) {
	// An odd number of source bytes forces zero-padding in the final
	// packed byte; decode must still recover exactly the original bytes.
	data := []byte{0x12, 0x34, 0x56}
	encoded := EncodeHamming74(data)
	decoded, err := DecodeHamming74(encoded)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}
