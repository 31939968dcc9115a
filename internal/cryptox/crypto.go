// Package cryptox implements the envelope encryption used for stored file
// payloads, content checksums and share-link password hashing.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
)

// KeySize is the length of the process-wide AES-256 key in bytes.
const KeySize = 32

// ErrInvalidKey is returned when the configured key is missing or malformed.
var ErrInvalidKey = errors.New("encryption key must be 32 bytes encoded as 64 hex characters")

// ParseKey decodes a hex-encoded AES-256 key.
func ParseKey(hexKey string) ([]byte, error) {
	if hexKey == "" {
		return nil, ErrInvalidKey
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKey, len(key))
	}
	return key, nil
}

// Sealed is the result of Envelope.Encrypt. IV is not secret and must be
// stored next to the ciphertext.
type Sealed struct {
	IV         []byte
	Ciphertext []byte
}

// IVHex returns the IV in the hex form kept in file records and blob metadata.
func (s *Sealed) IVHex() string {
	return hex.EncodeToString(s.IV)
}

// Envelope encrypts file payloads with AES-256-GCM under one injected key.
// A fresh random 12-byte IV is generated for every Encrypt call. It is safe
// for concurrent use.
type Envelope struct {
	aead cipher.AEAD
}

// NewEnvelope builds an Envelope for the given 32-byte key.
func NewEnvelope(key []byte) (*Envelope, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Envelope{aead: aead}, nil
}

// Encrypt seals plaintext under a newly generated IV.
func (e *Envelope) Encrypt(plaintext []byte) (*Sealed, error) {
	iv := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}

	return &Sealed{IV: iv, Ciphertext: e.aead.Seal(nil, iv, plaintext, nil)}, nil
}

// Decrypt opens ciphertext produced by Encrypt. A wrong key, a wrong or
// malformed IV and any truncation or modification of the ciphertext all
// yield common.ErrIntegrityOrKey.
func (e *Envelope) Decrypt(ciphertext, iv []byte) ([]byte, error) {
	if len(iv) != e.aead.NonceSize() {
		return nil, fmt.Errorf("%w: iv length %d", common.ErrIntegrityOrKey, len(iv))
	}

	plaintext, err := e.aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrIntegrityOrKey, err)
	}

	// Open returns nil for an empty payload
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

// DecryptHexIV is Decrypt for an IV kept in hex form.
func (e *Envelope) DecryptHexIV(ciphertext []byte, ivHex string) ([]byte, error) {
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return nil, fmt.Errorf("%w: bad iv encoding", common.ErrIntegrityOrKey)
	}
	return e.Decrypt(ciphertext, iv)
}
