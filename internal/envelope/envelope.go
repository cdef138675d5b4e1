// Package envelope builds and opens the end-to-end message envelope (spec
// §3, §9 "RSA block size"): RSA-encrypted in fixed 245-byte plaintext /
// 256-byte ciphertext blocks, concatenated byte-for-byte. The Hamming or
// Reed-Solomon layer and the noise simulator wrap around this package's
// output; this package never sees them.
package envelope

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"net/http"

	"github.com/shurlinet/satrelay/internal/table"
)

// HTTP headers carried on a data POST (spec §6).
const (
	HeaderDestinationID   = "X-Destination-ID"
	HeaderDestinationIP   = "X-Destination-IP"
	HeaderDestinationPort = "X-Destination-Port"
	HeaderGroupID         = "X-Group-ID"
)

// plaintextBlockSize and cipherBlockSize are fixed by 2048-bit RSA with
// PKCS#1 v1.5 padding: at most 245 plaintext bytes fit in one 256-byte
// ciphertext block (spec §9). This framing must be preserved byte-for-byte.
const (
	plaintextBlockSize = 245
	cipherBlockSize    = 256
)

// Destination describes where an envelope is ultimately headed, carried
// on the wire as the X-Destination-* / X-Group-ID headers so intermediate
// relays can route without decoding the payload (spec §3).
type Destination struct {
	ID      table.PeerID
	IP      string
	Port    int
	GroupID string
}

// SetHeaders attaches the destination headers to an outbound request.
func (d Destination) SetHeaders(h http.Header) {
	h.Set(HeaderDestinationID, fmt.Sprintf("%d", d.ID))
	h.Set(HeaderDestinationIP, d.IP)
	h.Set(HeaderDestinationPort, fmt.Sprintf("%d", d.Port))
	h.Set(HeaderGroupID, d.GroupID)
}

// DestinationFromHeaders reconstructs a Destination from inbound request
// headers.
func DestinationFromHeaders(h http.Header) Destination {
	var d Destination
	fmt.Sscanf(h.Get(HeaderDestinationID), "%d", &d.ID)
	d.IP = h.Get(HeaderDestinationIP)
	fmt.Sscanf(h.Get(HeaderDestinationPort), "%d", &d.Port)
	d.GroupID = h.Get(HeaderGroupID)
	return d
}

// Encrypt RSA-encrypts plaintext in 245-byte chunks (245 for all but
// possibly the final chunk), producing 256-byte ciphertext chunks
// concatenated in order.
func Encrypt(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	var out []byte
	for i := 0; i < len(plaintext); i += plaintextBlockSize {
		end := i + plaintextBlockSize
		if end > len(plaintext) {
			end = len(plaintext)
		}
		chunk, err := rsa.EncryptPKCS1v15(rand.Reader, pub, plaintext[i:end])
		if err != nil {
			return nil, fmt.Errorf("rsa encrypt chunk %d: %w", i/plaintextBlockSize, err)
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// Decrypt reverses Encrypt: split ciphertext into 256-byte blocks, decrypt
// each, and concatenate the plaintext. Returns an error (permanent decode
// failure per spec §7) if ciphertext isn't a multiple of the block size or
// any block fails to decrypt.
func Decrypt(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	if len(ciphertext)%cipherBlockSize != 0 || len(ciphertext) == 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a multiple of %d", len(ciphertext), cipherBlockSize)
	}
	var out []byte
	for i := 0; i < len(ciphertext); i += cipherBlockSize {
		chunk, err := rsa.DecryptPKCS1v15(rand.Reader, priv, ciphertext[i:i+cipherBlockSize])
		if err != nil {
			return nil, fmt.Errorf("rsa decrypt block %d: %w", i/cipherBlockSize, err)
		}
		out = append(out, chunk...)
	}
	return out, nil
}
