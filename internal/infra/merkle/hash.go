package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

const HashSize = sha256.Size

const (
	leafPrefix byte = 0x00
	nodePrefix byte = 0x01
)

var ErrInvalidHash = errors.New("invalid hash")

// Hash is a SHA-256 digest of either a leaf or an internal node.
type Hash [HashSize]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash decodes a 64-character hex digest.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if len(s) != hex.EncodedLen(HashSize) {
		return h, fmt.Errorf("%w: expected %d hex characters, got %d", ErrInvalidHash, hex.EncodedLen(HashSize), len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return Hash{}, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	return h, nil
}

// LeafHash is H(0x00 || data).
func LeafHash(data []byte) Hash {
	hasher := sha256.New()
	hasher.Write([]byte{leafPrefix})
	hasher.Write(data)
	var out Hash
	hasher.Sum(out[:0])
	return out
}

// NodeHash is H(0x01 || left || right).
func NodeHash(left, right Hash) Hash {
	var buf [1 + 2*HashSize]byte
	buf[0] = nodePrefix
	copy(buf[1:], left[:])
	copy(buf[1+HashSize:], right[:])
	return sha256.Sum256(buf[:])
}
