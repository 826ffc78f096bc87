// Package aead implements the symmetric envelope every grievance payload
// travels in: JSON, sealed with AES-256-GCM under the process-wide key and
// IV, base64 encoded.
//
// The upstream service decrypts with one fixed IV for all traffic. Reusing a
// GCM nonce is a known weakness of that protocol; the IV is configuration,
// not something this package may vary per call.
package aead

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	dErrors "pmkisan/pkg/domain-errors"
)

const (
	KeySize = 32
	IVSize  = 12
)

var (
	// ErrCrypto is returned when a ciphertext is not valid base64 or fails
	// GCM authentication (tampered, truncated or sealed under another key).
	ErrCrypto = errors.New("ciphertext rejected")
	// ErrDecode is returned when an authenticated plaintext is not UTF-8 JSON.
	ErrDecode = errors.New("decrypted payload is not valid JSON")
)

// Wrapper is the request body shape the upstream expects.
type Wrapper struct {
	EncryptedRequest string `json:"EncryptedRequest"`
}

// Envelope seals and opens JSON payloads. It is immutable and safe for
// concurrent use.
type Envelope struct {
	gcm cipher.AEAD
	iv  []byte
}

// New builds an Envelope from raw key material.
func New(key, iv []byte) (*Envelope, error) {
	if len(key) == 0 || len(iv) == 0 {
		return nil, dErrors.New(dErrors.CodeConfiguration,
			"grievance crypto keys not configured; set GRIEVANCE_KEY_1 and GRIEVANCE_KEY_2")
	}
	if len(key) != KeySize {
		return nil, dErrors.New(dErrors.CodeConfiguration,
			fmt.Sprintf("grievance key must be %d bytes, got %d", KeySize, len(key)))
	}
	if len(iv) != IVSize {
		return nil, dErrors.New(dErrors.CodeConfiguration,
			fmt.Sprintf("grievance IV must be %d bytes, got %d", IVSize, len(iv)))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, "invalid grievance key")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, "invalid grievance key")
	}
	return &Envelope{gcm: gcm, iv: bytes.Clone(iv)}, nil
}

// FromHex builds an Envelope from hex-encoded key and IV strings.
func FromHex(keyHex, ivHex string) (*Envelope, error) {
	key, err := DecodeHex(keyHex)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, "GRIEVANCE_KEY_1 is not valid hex")
	}
	iv, err := DecodeHex(ivHex)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, "GRIEVANCE_KEY_2 is not valid hex")
	}
	return New(key, iv)
}

// DecodeHex decodes a hex string, ignoring surrounding and embedded whitespace.
func DecodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.Join(strings.Fields(s), ""))
}

// Encrypt serializes v to JSON (non-ASCII left unescaped) and seals it.
func (e *Envelope) Encrypt(v any) (Wrapper, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return Wrapper{}, fmt.Errorf("marshal payload: %w", err)
	}
	plaintext := bytes.TrimRight(buf.Bytes(), "\n")

	sealed := e.gcm.Seal(nil, e.iv, plaintext, nil)
	return Wrapper{EncryptedRequest: base64.StdEncoding.EncodeToString(sealed)}, nil
}

// Decrypt opens a base64 ciphertext and returns the JSON plaintext.
func (e *Envelope) Decrypt(ciphertext string) (json.RawMessage, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ciphertext))
	if err != nil {
		return nil, dErrors.Wrap(fmt.Errorf("%w: %v", ErrCrypto, err), dErrors.CodeProtocol, "invalid ciphertext encoding")
	}
	plaintext, err := e.gcm.Open(nil, e.iv, raw, nil)
	if err != nil {
		return nil, dErrors.Wrap(fmt.Errorf("%w: %v", ErrCrypto, err), dErrors.CodeProtocol, "ciphertext failed authentication")
	}
	if !utf8.Valid(plaintext) || !json.Valid(plaintext) {
		return nil, dErrors.Wrap(ErrDecode, dErrors.CodeProtocol, "decrypted payload is malformed")
	}
	return plaintext, nil
}

// DecryptInto opens ciphertext and unmarshals the plaintext into out.
func (e *Envelope) DecryptInto(ciphertext string, out any) error {
	plaintext, err := e.Decrypt(ciphertext)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plaintext, out); err != nil {
		return dErrors.Wrap(fmt.Errorf("%w: %v", ErrDecode, err), dErrors.CodeProtocol, "decrypted payload does not match schema")
	}
	return nil
}
