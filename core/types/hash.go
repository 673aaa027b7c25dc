// Package types defines the core data structures of the merklepass ticket
// system: fixed-size hashes, private ticket records, and the published
// state snapshot that redemption verifiers consume.
package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// HashLength is the byte length of a Keccak256 digest.
const HashLength = 32

// Hash is a 32-byte Keccak256 digest. Its canonical textual form is a
// 0x-prefixed lowercase hex string; two hashes are equal iff their bytes
// are equal, which makes hex comparison case-insensitive by construction.
type Hash [HashLength]byte

// BytesToHash converts bytes to Hash, left-padding if shorter than 32 bytes.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// HexToHash converts a hex string (with or without 0x prefix) to a Hash.
// Malformed input yields the zero hash.
func HexToHash(s string) Hash {
	h, _ := ParseHash(s)
	return h
}

// ParseHash decodes a hex string into a Hash. The 0x prefix is optional on
// input; output is always canonical. Values shorter than 32 bytes are
// left-padded, longer values are rejected.
func ParseHash(s string) (Hash, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hexutil.Decode("0x" + s)
	if err != nil {
		return Hash{}, fmt.Errorf("types: invalid hash %q: %w", s, err)
	}
	if len(b) > HashLength {
		return Hash{}, fmt.Errorf("types: hash too long: %d bytes", len(b))
	}
	return BytesToHash(b), nil
}

// Bytes returns the byte representation of the hash.
func (h Hash) Bytes() []byte { return h[:] }

// Hex returns the canonical 0x-prefixed lowercase hex form.
func (h Hash) Hex() string { return hexutil.Encode(h[:]) }

// SetBytes sets the hash from a byte slice, left-padding if necessary.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
}

// IsZero returns whether the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String implements fmt.Stringer.
func (h Hash) String() string { return h.Hex() }

// MarshalText implements encoding.TextMarshaler, emitting the canonical
// hex form. This is what makes JSON snapshots serialize nullifier and
// leaf lists as ordered sequences of hex strings.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(in []byte) error {
	parsed, err := ParseHash(string(in))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
