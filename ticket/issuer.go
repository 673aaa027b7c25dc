package ticket

import (
	"fmt"
	"time"

	"github.com/merklepass/merklepass/core/types"
	"github.com/merklepass/merklepass/crypto"
	"github.com/merklepass/merklepass/merkle"
)

// Issuer owns the Merkle accumulator and the private ticket-record store.
// Both grow monotonically: records are never destroyed and the tree never
// shrinks, so a record's index stays valid for proof regeneration for the
// lifetime of the tree. Single-writer; the Service serializes access.
type Issuer struct {
	tree    *merkle.Tree
	records []types.TicketRecord

	// nowMs supplies issuance timestamps; replaceable in tests.
	nowMs func() int64
}

// NewIssuer creates an issuer over a fresh empty tree of the given depth.
func NewIssuer(depth int) (*Issuer, error) {
	tree, err := merkle.New(depth, nil)
	if err != nil {
		return nil, err
	}
	return &Issuer{
		tree:  tree,
		nowMs: unixMilli,
	}, nil
}

// RestoreIssuer rebuilds an issuer from a persisted record list. Leaves
// are re-derived from the records in index order; any gap or reordering
// in the persisted list is a divergence the caller must reconcile.
func RestoreIssuer(depth int, records []types.TicketRecord) (*Issuer, error) {
	leaves := make([]types.Hash, len(records))
	for i, rec := range records {
		if rec.Index != uint64(i) {
			return nil, fmt.Errorf("ticket: record %d has index %d, store is not contiguous", i, rec.Index)
		}
		leaves[i] = crypto.LeafHash(rec.Secret, rec.IssuedAt)
	}
	tree, err := merkle.New(depth, leaves)
	if err != nil {
		return nil, err
	}
	iss := &Issuer{
		tree:    tree,
		records: make([]types.TicketRecord, len(records)),
		nowMs:   unixMilli,
	}
	copy(iss.records, records)
	return iss, nil
}

func unixMilli() int64 { return time.Now().UnixMilli() }

// Issue generates a fresh secret, derives its leaf, appends it to the
// tree and records the ticket. The append is not rolled back on failure
// elsewhere; persistence divergence is reconciled by the caller through
// RestoreIssuer. Fails with merkle.ErrTreeFull when capacity is consumed.
func (i *Issuer) Issue() (types.TicketRecord, error) {
	secret, err := crypto.NewSecret()
	if err != nil {
		return types.TicketRecord{}, err
	}
	issuedAt := i.nowMs()
	leaf := crypto.LeafHash(secret, issuedAt)

	if err := i.tree.Append(leaf); err != nil {
		return types.TicketRecord{}, err
	}
	rec := types.TicketRecord{
		Secret:   secret,
		IssuedAt: issuedAt,
		Index:    i.tree.LeafCount() - 1,
	}
	i.records = append(i.records, rec)
	return rec, nil
}

// ProofFor regenerates the inclusion proof for a previously issued record.
func (i *Issuer) ProofFor(rec types.TicketRecord) (*merkle.Proof, error) {
	return i.tree.Proof(rec.Index)
}

// RecordByLeaf finds the record whose derived leaf matches the given
// secret and issuance time. The boolean is false when no such ticket was
// issued by this authority.
func (i *Issuer) RecordByLeaf(secret []byte, issuedAtMs int64) (types.TicketRecord, bool) {
	leaf := crypto.LeafHash(secret, issuedAtMs)
	for _, rec := range i.records {
		if crypto.LeafHash(rec.Secret, rec.IssuedAt) == leaf {
			return rec, true
		}
	}
	return types.TicketRecord{}, false
}

// Root returns the current tree root.
func (i *Issuer) Root() types.Hash { return i.tree.Root() }

// LeafCount returns the number of issued tickets.
func (i *Issuer) LeafCount() uint64 { return i.tree.LeafCount() }

// Depth returns the tree depth.
func (i *Issuer) Depth() int { return i.tree.Depth() }

// Leaves returns the authoritative ordered leaf list, consumed by the
// membership-by-leaf redemption mode.
func (i *Issuer) Leaves() []types.Hash { return i.tree.Leaves() }

// Records returns a copy of the private record store for persistence.
// The copies share secret buffers; callers must not mutate them.
func (i *Issuer) Records() []types.TicketRecord {
	out := make([]types.TicketRecord, len(i.records))
	copy(out, i.records)
	return out
}
