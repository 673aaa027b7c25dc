package ticket

import (
	"github.com/merklepass/merklepass/core/types"
	"github.com/merklepass/merklepass/crypto"
	"github.com/merklepass/merklepass/merkle"
)

// Attempt is a redemption claim submitted by a ticket holder: the secret
// and issuance time that reproduce the leaf, plus the inclusion proof.
//
// There is deliberately no nullifier field. The verifying authority always
// re-derives the nullifier from the secret; a client-supplied nullifier
// without a secret is unverifiable and must be rejected outright.
type Attempt struct {
	Secret   []byte
	IssuedAt int64
	Proof    *merkle.Proof
}

// Result is the outcome of a redemption check. On success Nullifier holds
// the derived spent-ticket marker the caller must publish.
type Result struct {
	OK        bool
	Reason    RejectReason
	Nullifier types.Hash
}

func reject(reason RejectReason) Result {
	return Result{Reason: reason}
}

// Verify checks a redemption attempt against a published snapshot. It is
// a pure function: it never mutates the snapshot, so it is safe to call
// speculatively for dry-run checks. On success the caller is responsible
// for appending Result.Nullifier to the snapshot's spent set atomically
// with the check (see Service.Redeem).
//
// The checks run in strict order, short-circuiting: freshness, then
// uniqueness, then inclusion. The expiry boundary is inclusive: an attempt
// at exactly issuedAt+maxAgeMs is still valid.
func Verify(snap *types.StateSnapshot, att Attempt, nowMs int64) Result {
	if len(att.Secret) == 0 {
		return reject(RejectInvalidProof)
	}
	if nowMs > att.IssuedAt+snap.MaxAgeMs {
		return reject(RejectExpired)
	}
	nullifier := crypto.NullifierHash(att.Secret)
	if snap.HasNullifier(nullifier) {
		return reject(RejectAlreadyUsed)
	}
	leaf := crypto.LeafHash(att.Secret, att.IssuedAt)
	if !merkle.Verify(leaf, att.Proof, snap.Root) {
		return reject(RejectInvalidProof)
	}
	return Result{OK: true, Nullifier: nullifier}
}

// VerifyByLeaf is the alternate redemption mode: membership is checked by
// looking the derived leaf up in the issuer's authoritative ordered leaf
// list instead of verifying a self-contained proof. Weaker (it trusts the
// issuer's list) but requires no proof data from the redeemer. The same
// three checks apply in the same order; a membership miss means the
// record is absent from the issuer's store.
func VerifyByLeaf(snap *types.StateSnapshot, secret []byte, issuedAtMs int64, leaves []types.Hash, nowMs int64) Result {
	if len(secret) == 0 {
		return reject(RejectInvalidProof)
	}
	if nowMs > issuedAtMs+snap.MaxAgeMs {
		return reject(RejectExpired)
	}
	nullifier := crypto.NullifierHash(secret)
	if snap.HasNullifier(nullifier) {
		return reject(RejectAlreadyUsed)
	}
	leaf := crypto.LeafHash(secret, issuedAtMs)
	for _, known := range leaves {
		if known == leaf {
			return Result{OK: true, Nullifier: nullifier}
		}
	}
	return reject(RejectNotFound)
}
