package channel

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// zstdEncoder/zstdDecoder are shared across calls: both are safe for
// concurrent use and expensive to construct per-message (spec §4.10
// optional payload compression).
var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// Compress zstd-compresses plaintext before it is handed to envelope.Encrypt,
// shrinking the number of 245-byte RSA blocks a large telemetry record needs
// (spec §4.10 FECConfig.Compress). Compression happens before encryption so
// it still operates on the structured, highly-repetitive JSON rather than
// ciphertext, which is already high-entropy and would not shrink.
func Compress(plaintext []byte) []byte {
	return zstdEncoder.EncodeAll(plaintext, nil)
}

// Decompress reverses Compress, run immediately after envelope.Decrypt and
// before UTF-8 validation/JSON parsing.
func Decompress(compressed []byte) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}
