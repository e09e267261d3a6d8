// Package cryptox implements the per-file symmetric cipher used by lockbox:
// AES-256-GCM with a fresh 96-bit nonce for every encryption.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/dmitrijs2005/lockbox/internal/common"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// NonceSize is the GCM standard nonce length in bytes.
	NonceSize = 12
	// TagSize is the GCM authentication tag appended to every ciphertext.
	TagSize = 16
)

// Key is 256-bit symmetric key material. It only exists in memory; use
// ExportKey to persist it.
type Key struct {
	b [KeySize]byte
}

// Nonce is a 96-bit GCM nonce.
type Nonce []byte

// randReader is a test seam for crypto/rand.
var randReader io.Reader = rand.Reader

// GenerateKey returns a fresh random AES-256 key.
func GenerateKey() (Key, error) {
	var k Key
	if _, err := io.ReadFull(randReader, k.b[:]); err != nil {
		return Key{}, fmt.Errorf("generate key: %w", err)
	}
	return k, nil
}

// GenerateNonce returns 12 fresh random bytes. Every call allocates and fills
// a new buffer; nonces are never cached or derived.
func GenerateNonce() (Nonce, error) {
	n := make(Nonce, NonceSize)
	if _, err := io.ReadFull(randReader, n); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return n, nil
}

func newGCM(key Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key.b[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCrypto, err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCrypto, err)
	}
	return aesgcm, nil
}

// Encrypt seals plaintext with AES-256-GCM. The 16-byte tag is appended to
// the returned ciphertext. Identical inputs give identical output.
//
// It fails with common.ErrCrypto when the nonce is not NonceSize bytes.
func Encrypt(plaintext []byte, key Key, nonce Nonce) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: nonce must be %d bytes, got %d", common.ErrCrypto, NonceSize, len(nonce))
	}
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return aesgcm.Seal(nil, nonce, plaintext, nil), nil
}

// Decrypt opens ciphertext produced by Encrypt. A tag that does not verify
// yields common.ErrAuthenticationFailure and no plaintext.
func Decrypt(ciphertext []byte, key Key, nonce Nonce) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: nonce must be %d bytes, got %d", common.ErrCrypto, NonceSize, len(nonce))
	}
	if len(ciphertext) < TagSize {
		return nil, fmt.Errorf("%w: ciphertext shorter than tag", common.ErrAuthenticationFailure)
	}
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, common.ErrAuthenticationFailure
	}
	return plaintext, nil
}

// ExportKey returns a copy of the raw key bytes.
func ExportKey(key Key) []byte {
	out := make([]byte, KeySize)
	copy(out, key.b[:])
	return out
}

// ImportKey rebuilds a Key from raw bytes, rejecting anything that is not
// exactly KeySize long.
func ImportKey(raw []byte) (Key, error) {
	if len(raw) != KeySize {
		return Key{}, fmt.Errorf("%w: key must be %d bytes, got %d", common.ErrCrypto, KeySize, len(raw))
	}
	var k Key
	copy(k.b[:], raw)
	return k, nil
}

// Wipe zeroes the key material in place.
func (k *Key) Wipe() {
	common.WipeByteArray(k.b[:])
}
