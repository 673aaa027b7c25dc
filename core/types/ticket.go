package types

// TicketRecord is the issuing authority's private record of one issued
// ticket. It never appears in the published snapshot; the issuer keeps it
// for proof regeneration and audit. Records are immutable once created.
type TicketRecord struct {
	Secret   []byte `json:"secret"`   // high-entropy holder secret
	IssuedAt int64  `json:"issuedAt"` // ms since epoch
	Index    uint64 `json:"index"`    // position of the derived leaf in the tree
}

// StateSnapshot is the published commitment record. Anyone holding it can
// verify redemption claims without access to ticket secrets: the root
// commits to the full ordered leaf set, the nullifier list marks spent
// tickets, and the validity window bounds freshness.
//
// Invariants: LeafCount <= 2^Depth, Nullifiers holds no duplicates, and
// Root always equals the root of the issuer's authoritative leaf sequence.
type StateSnapshot struct {
	Root       Hash   `json:"root"`
	MaxAgeMs   int64  `json:"maxAgeMs"`
	Nullifiers []Hash `json:"nullifiers"`
	LeafCount  uint64 `json:"leafCount"`
	Depth      int    `json:"depth"`
}

// HasNullifier reports whether n has already been published in this
// snapshot, i.e. whether the corresponding ticket is spent.
func (s *StateSnapshot) HasNullifier(n Hash) bool {
	for _, existing := range s.Nullifiers {
		if existing == n {
			return true
		}
	}
	return false
}

// AddNullifier appends n to the spent set. It returns false without
// mutating the snapshot if n is already present, preserving the
// no-duplicates invariant.
func (s *StateSnapshot) AddNullifier(n Hash) bool {
	if s.HasNullifier(n) {
		return false
	}
	s.Nullifiers = append(s.Nullifiers, n)
	return true
}

// Clone returns a deep copy. Callers handing snapshots across the trust
// boundary use this so later mutations of the authoritative snapshot do
// not leak into already-published copies.
func (s *StateSnapshot) Clone() StateSnapshot {
	out := *s
	out.Nullifiers = make([]Hash, len(s.Nullifiers))
	copy(out.Nullifiers, s.Nullifiers)
	return out
}
