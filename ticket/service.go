package ticket

import (
	"errors"
	"sync"

	"github.com/merklepass/merklepass/core/types"
	"github.com/merklepass/merklepass/log"
	"github.com/merklepass/merklepass/merkle"
	"github.com/merklepass/merklepass/metrics"
)

// ErrInvalidMaxAge rejects initialization with a negative validity window.
var ErrInvalidMaxAge = errors.New("ticket: max age must be non-negative")

// Service is the external surface of the ticket core: Initialize, Issue,
// Redeem, RedeemByLeaf, Snapshot. It owns the authoritative in-memory
// StateSnapshot and serializes every mutation under one mutex, so the
// read-check-append sequence of a redemption is atomic per snapshot. Two
// concurrent redemptions of the same secret cannot both pass the
// uniqueness check.
//
// Persistence is the collaborator's job: load a snapshot and record list,
// Restore a Service from them, and save Snapshot()/Records() after each
// mutating call.
type Service struct {
	mu     sync.Mutex
	issuer *Issuer
	snap   types.StateSnapshot
	nowMs  func() int64
	logger *log.Logger
}

// Initialize creates a service over an empty tree. The returned service's
// snapshot carries the empty-tree root, the validity window, an empty
// nullifier set, and a zero leaf count.
func Initialize(depth int, maxAgeMs int64) (*Service, error) {
	if maxAgeMs < 0 {
		return nil, ErrInvalidMaxAge
	}
	issuer, err := NewIssuer(depth)
	if err != nil {
		return nil, err
	}
	return newService(issuer, types.StateSnapshot{
		Root:      issuer.Root(),
		MaxAgeMs:  maxAgeMs,
		LeafCount: 0,
		Depth:     depth,
	}), nil
}

// Restore rebuilds a service from persisted state. The tree is re-derived
// from the record store; if its root disagrees with the snapshot root the
// two stores have diverged and ErrStateDivergence is returned so the
// caller can reconcile before the next mutating call.
func Restore(snap types.StateSnapshot, records []types.TicketRecord) (*Service, error) {
	if snap.MaxAgeMs < 0 {
		return nil, ErrInvalidMaxAge
	}
	issuer, err := RestoreIssuer(snap.Depth, records)
	if err != nil {
		return nil, err
	}
	if issuer.Root() != snap.Root || issuer.LeafCount() != snap.LeafCount {
		return nil, ErrStateDivergence
	}
	return newService(issuer, snap.Clone()), nil
}

func newService(issuer *Issuer, snap types.StateSnapshot) *Service {
	return &Service{
		issuer: issuer,
		snap:   snap,
		nowMs:  unixMilli,
		logger: log.Default().Module("ticket"),
	}
}

// Issue creates one ticket and returns its private record together with
// the updated published snapshot. Fails with merkle.ErrTreeFull when all
// capacity is consumed; the failure is reported, never retried.
func (s *Service) Issue() (types.TicketRecord, types.StateSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.issuer.Issue()
	if err != nil {
		return types.TicketRecord{}, types.StateSnapshot{}, err
	}
	s.snap.Root = s.issuer.Root()
	s.snap.LeafCount = s.issuer.LeafCount()

	metrics.TicketsIssued.Inc()
	s.logger.Info("ticket issued", "index", rec.Index, "root", s.snap.Root)
	return rec, s.snap.Clone(), nil
}

// ProofFor regenerates the inclusion proof for an issued record.
func (s *Service) ProofFor(rec types.TicketRecord) (*merkle.Proof, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issuer.ProofFor(rec)
}

// RecordFor looks up the issued record matching a secret and issuance
// time. The boolean is false when the ticket is absent from the local
// store.
func (s *Service) RecordFor(secret []byte, issuedAtMs int64) (types.TicketRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issuer.RecordByLeaf(secret, issuedAtMs)
}

// Redeem verifies a proof-carrying redemption claim and, on success,
// publishes the nullifier derived from the secret. The nullifier is never
// accepted from the client; it is re-derived here. On rejection the error
// is a *RejectionError carrying one of the four terminal reasons.
func (s *Service) Redeem(secret []byte, issuedAtMs int64, proof *merkle.Proof) (types.Hash, types.StateSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := Verify(&s.snap, Attempt{Secret: secret, IssuedAt: issuedAtMs, Proof: proof}, s.nowMs())
	return s.finish(res)
}

// RedeemByLeaf verifies a proofless redemption claim against the issuer's
// authoritative leaf list. Same checks, same snapshot mutation as Redeem.
func (s *Service) RedeemByLeaf(secret []byte, issuedAtMs int64) (types.Hash, types.StateSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := VerifyByLeaf(&s.snap, secret, issuedAtMs, s.issuer.Leaves(), s.nowMs())
	return s.finish(res)
}

// finish applies a verification result to the authoritative snapshot.
// Caller holds s.mu, which is what makes check-then-append atomic.
func (s *Service) finish(res Result) (types.Hash, types.StateSnapshot, error) {
	if !res.OK {
		metrics.RejectionCounter(res.Reason.String()).Inc()
		s.logger.Info("redemption rejected", "reason", res.Reason.String())
		return types.Hash{}, s.snap.Clone(), &RejectionError{Reason: res.Reason}
	}
	s.snap.AddNullifier(res.Nullifier)
	metrics.RedemptionsAccepted.Inc()
	s.logger.Info("redemption accepted", "nullifier", res.Nullifier, "spent", len(s.snap.Nullifiers))
	return res.Nullifier, s.snap.Clone(), nil
}

// Snapshot returns a copy of the current published state.
func (s *Service) Snapshot() types.StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

// Records returns a copy of the private record store for persistence.
func (s *Service) Records() []types.TicketRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issuer.Records()
}
