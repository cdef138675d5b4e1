// Package channel implements the forward-error-correction and bit-flip
// noise simulation pipeline (spec §4.7): the mandatory Hamming(7,4) codec,
// an FSPL-derived bit error rate model, and an optional Reed-Solomon codec
// offered as an alternate config choice (SPEC_FULL §4.10) that no
// invariant in spec §8 is defined against.
package channel

import "fmt"

// EncodeHamming74 Hamming-encodes a byte slice. Each byte splits into two
// 4-bit nibbles; each nibble becomes a 7-bit codeword p1 p2 d1 p3 d2 d3 d4.
// The resulting bitstream is packed into bytes, zero-padding the final
// byte if its length isn't a multiple of 8.
func EncodeHamming74(data []byte) []byte {
	var bits []byte
	for _, b := range data {
		hi := b >> 4
		lo := b & 0x0f
		bits = append(bits, encodeNibble(hi)...)
		bits = append(bits, encodeNibble(lo)...)
	}
	return packBits(bits)
}

// DecodeHamming74 reverses EncodeHamming74, correcting at most one bit
// flip per 7-bit block. The zero-padding EncodeHamming74 adds to fill the
// final byte decodes to at most one extra, unpaired nibble at the end of
// the stream; that nibble is dropped, so the original byte count never
// needs to travel alongside the encoded bytes.
func DecodeHamming74(encoded []byte) ([]byte, error) {
	bits := unpackBits(encoded)
	if len(bits) < 14 {
		return nil, fmt.Errorf("hamming decode: short input: have %d bits, need at least 14", len(bits))
	}

	numBlocks := len(bits) / 7
	nibbles := make([]byte, numBlocks)
	for i := 0; i < numBlocks; i++ {
		nibbles[i] = decodeNibble(bits[i*7 : i*7+7])
	}

	n := len(nibbles) / 2
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = nibbles[2*i]<<4 | nibbles[2*i+1]
	}
	return out, nil
}

// encodeNibble computes the 7-bit Hamming(7,4) codeword for a 4-bit
// nibble d1 d2 d3 d4 (nibble's bits 3..0): p1 p2 d1 p3 d2 d3 d4.
func encodeNibble(nibble byte) []byte {
	d1 := (nibble >> 3) & 1
	d2 := (nibble >> 2) & 1
	d3 := (nibble >> 1) & 1
	d4 := nibble & 1

	p1 := d1 ^ d2 ^ d4
	p2 := d1 ^ d3 ^ d4
	p3 := d2 ^ d3 ^ d4

	return []byte{p1, p2, d1, p3, d2, d3, d4}
}

// decodeNibble corrects at most one bit error in a 7-bit block and
// returns the reconstructed 4-bit nibble.
func decodeNibble(block []byte) byte {
	corrected := make([]byte, 7)
	copy(corrected, block)

	p1, p2, d1, p3, d2, d3, d4 := corrected[0], corrected[1], corrected[2], corrected[3], corrected[4], corrected[5], corrected[6]
	c1 := p1 ^ d1 ^ d2 ^ d4
	c2 := p2 ^ d1 ^ d3 ^ d4
	c3 := p3 ^ d2 ^ d3 ^ d4
	errPos := c1*1 + c2*2 + c3*4

	if errPos != 0 {
		corrected[errPos-1] ^= 1
	}

	d1 = corrected[2]
	d2 = corrected[4]
	d3 = corrected[5]
	d4 = corrected[6]
	return d1<<3 | d2<<2 | d3<<1 | d4
}

func packBits(bits []byte) []byte {
	nBytes := (len(bits) + 7) / 8
	out := make([]byte, nBytes)
	for i, bit := range bits {
		if bit != 0 {
			out[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return out
}

func unpackBits(data []byte) []byte {
	bits := make([]byte, 0, len(data)*8)
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			bits = append(bits, (b>>uint(i))&1)
		}
	}
	return bits
}
