package view

import (
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"
)

// HashSize is the byte length of a receipt or data identifier.
const HashSize = 32

// CryptoHash is a fixed-size identifier. Its text form is base58.
type CryptoHash [HashSize]byte

// ParseCryptoHash decodes a base58 identifier.
func ParseCryptoHash(s string) (CryptoHash, error) {
	var h CryptoHash
	raw, err := base58.Decode(s)
	if err != nil {
		return h, fmt.Errorf("parse hash %q: %w", s, err)
	}
	if len(raw) != HashSize {
		return h, fmt.Errorf("parse hash %q: got %d bytes, want %d", s, len(raw), HashSize)
	}
	copy(h[:], raw)
	return h, nil
}

// MustParseCryptoHash is like ParseCryptoHash but panics on error.
func MustParseCryptoHash(s string) CryptoHash {
	h, err := ParseCryptoHash(s)
	if err != nil {
		panic(err)
	}
	return h
}

// HashFromBytes copies a raw identifier as stored in a row.
func HashFromBytes(b []byte) (CryptoHash, error) {
	var h CryptoHash
	if len(b) != HashSize {
		return h, fmt.Errorf("hash from bytes: got %d bytes, want %d", len(b), HashSize)
	}
	copy(h[:], b)
	return h, nil
}

func (h CryptoHash) String() string {
	return base58.Encode(h[:])
}

// Bytes returns a fresh copy of the raw identifier.
func (h CryptoHash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// MarshalJSON encodes the hash as a base58 string.
func (h CryptoHash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes a base58 string.
func (h *CryptoHash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCryptoHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
