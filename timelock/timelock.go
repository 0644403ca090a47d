// Package timelock encrypts messages under a key derived from a VDF output,
// so a ciphertext can only be opened by whoever evaluated the delay or holds
// the trapdoor.
package timelock

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/spacemeshos/sha256-simd"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	KeySize   = chacha20poly1305.KeySize
	NonceSize = chacha20poly1305.NonceSizeX
)

var (
	keyInfo = []byte("vdf/timelock/key")

	ErrAuthentication = errors.New("timelock: message authentication failed")
)

// DeriveKey expands the serialized VDF output y into a KeySize-byte key. The
// nonce is used as HKDF salt, so each capsule gets its own key.
func DeriveKey(y, nonce []byte) ([]byte, error) {
	if len(y) == 0 {
		return nil, errors.New("timelock: empty VDF output")
	}
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, y, nonce, keyInfo), key); err != nil {
		return nil, fmt.Errorf("timelock: key derivation: %w", err)
	}
	return key, nil
}

// Capsule is a sealed message.
type Capsule struct {
	Nonce      []byte
	Ciphertext []byte
}

// Seal encrypts plaintext under the key derived from y. aad is authenticated but not encrypted;
// callers bind the VDF instance through it.
func Seal(random io.Reader, y, plaintext, aad []byte) (*Capsule, error) {
	if random == nil {
		random = rand.Reader
	}
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(random, nonce); err != nil {
		return nil, fmt.Errorf("timelock: sampling nonce: %w", err)
	}

	aead, err := newAEAD(y, nonce)
	if err != nil {
		return nil, err
	}
	return &Capsule{
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plaintext, aad),
	}, nil
}

// Open decrypts a capsule with the key derived from y.
func Open(y []byte, c *Capsule, aad []byte) ([]byte, error) {
	if len(c.Nonce) != NonceSize {
		return nil, fmt.Errorf("timelock: invalid nonce size; expected: %d, given: %d", NonceSize, len(c.Nonce))
	}
	aead, err := newAEAD(y, c.Nonce)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, c.Nonce, c.Ciphertext, aad)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}

func newAEAD(y, nonce []byte) (cipher.AEAD, error) {
	key, err := DeriveKey(y, nonce)
	if err != nil {
		return nil, err
	}
	c, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("timelock: %w", err)
	}
	return c, nil
}
