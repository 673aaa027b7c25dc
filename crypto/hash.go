// Package crypto provides the digest primitives of the ticket system:
// Keccak-256 hashing, leaf and nullifier derivation, ordered node
// combination for Merkle trees, and per-level zero placeholders.
package crypto

import (
	"crypto/rand"
	"fmt"
	"strconv"

	"golang.org/x/crypto/sha3"

	"github.com/merklepass/merklepass/core/types"
)

// SecretLength is the size in bytes of generated ticket secrets.
const SecretLength = 32

// Keccak256 calculates the Keccak-256 hash of the concatenation of the
// given byte slices.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash calculates Keccak-256 and returns it as a types.Hash.
func Keccak256Hash(data ...[]byte) types.Hash {
	return types.BytesToHash(Keccak256(data...))
}

// LeafHash commits a ticket secret and its issuance time:
// H(secret || ":" || issuedAt), with issuedAt rendered as base-10 decimal
// milliseconds since epoch.
func LeafHash(secret []byte, issuedAtMs int64) types.Hash {
	return Keccak256Hash(secret, []byte(":"), []byte(strconv.FormatInt(issuedAtMs, 10)))
}

// NullifierHash derives the one-way spent-ticket marker for a secret:
// H("nullifier:" || secret). Publishing it at redemption marks the ticket
// spent without revealing the secret's leaf position.
func NullifierHash(secret []byte) types.Hash {
	return Keccak256Hash([]byte("nullifier:"), secret)
}

// Combine hashes an ordered node pair: H(left || right). Order matters;
// proof verification depends on the left/right placement matching the
// leaf index parity at each level.
func Combine(left, right types.Hash) types.Hash {
	return Keccak256Hash(left[:], right[:])
}

// ZeroHash returns the fixed, publicly-known placeholder used to pad the
// leaf layer of an incomplete tree at the given level. It must never
// change once trees exist: every proof touching an unfilled position
// hashes against it.
func ZeroHash(level int) types.Hash {
	return Keccak256Hash([]byte("ZERO_" + strconv.Itoa(level)))
}

// NewSecret generates a fresh high-entropy ticket secret.
func NewSecret() ([]byte, error) {
	secret := make([]byte, SecretLength)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("crypto: secret generation: %w", err)
	}
	return secret, nil
}
