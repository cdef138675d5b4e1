// Package identity loads the RSA keypair a node uses to encrypt and decrypt
// envelope payloads (spec §4.7, §7.4). Keys are generated by a separate
// out-of-band tool and placed in each node's keys directory as PKCS1 PEM
// files; this package never generates a keypair itself. Load fails only
// when neither half can be loaded; whether a missing half is fatal is
// decided by the caller for the half its role needs.
package identity

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/crypto/blake2b"
)

// CheckKeyFilePermissions verifies that a key file is not readable by group
// or others.
func CheckKeyFilePermissions(path string) error {
	if runtime.GOOS == "windows" {
		return nil // Windows file permissions work differently
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot stat key file %s: %w", path, err)
	}
	mode := info.Mode().Perm()
	if mode&0077 != 0 {
		return fmt.Errorf("key file %s has insecure permissions %04o (expected 0600); fix with: chmod 600 %s", path, mode, path)
	}
	return nil
}

// LoadPublicKey reads an RSA public key from a PKCS1 PEM file.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key %s: %w", path, err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in %s", path)
	}
	key, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key %s: %w", path, err)
	}
	return key, nil
}

// LoadPrivateKey reads an RSA private key from a PKCS1 PEM file, after
// checking that its permissions restrict it to the owner.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	if err := CheckKeyFilePermissions(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key %s: %w", path, err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in %s", path)
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key %s: %w", path, err)
	}
	return key, nil
}

// KeyPair bundles the public/private halves a node needs: the sink decrypts
// with its private key, while every node that addresses the sink encrypts
// with the sink's public key.
type KeyPair struct {
	Public  *rsa.PublicKey
	Private *rsa.PrivateKey
}

// Load reads public.pem and private.pem from dir. Either file may be
// omitted by a caller that only needs one half (e.g. a relay that merely
// forwards ciphertext never loads a private key), but at least one of the
// two must be present.
func Load(dir string) (*KeyPair, error) {
	pubPath := filepath.Join(dir, "public.pem")
	privPath := filepath.Join(dir, "private.pem")

	kp := &KeyPair{}
	var errPub, errPriv error
	kp.Public, errPub = LoadPublicKey(pubPath)
	kp.Private, errPriv = LoadPrivateKey(privPath)

	if errPub != nil && errPriv != nil {
		return nil, fmt.Errorf("no usable key in %s: %v / %v", dir, errPub, errPriv)
	}
	return kp, nil
}

// Fingerprint returns a short hex digest of a public key, for log lines that
// let an operator eyeball which keypair a node loaded without printing the
// key itself.
func Fingerprint(pub *rsa.PublicKey) string {
	h, err := blake2b.New256(nil)
	if err != nil {
		return ""
	}
	h.Write(pub.N.Bytes())
	sum := h.Sum(nil)
	return fmt.Sprintf("%x", sum[:8])
}
