package ticket

import (
	"errors"
	"testing"

	"github.com/merklepass/merklepass/merkle"
)

// newTestService wires a service to a manual clock.
func newTestService(t *testing.T, depth int, maxAgeMs int64) (*Service, *int64) {
	t.Helper()
	svc, err := Initialize(depth, maxAgeMs)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	now := int64(1_700_000_000_000)
	clock := func() int64 { return now }
	svc.nowMs = clock
	svc.issuer.nowMs = clock
	return svc, &now
}

func TestInitialize(t *testing.T) {
	svc, _ := newTestService(t, 4, 2000)
	snap := svc.Snapshot()

	if snap.Depth != 4 || snap.MaxAgeMs != 2000 || snap.LeafCount != 0 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Root.IsZero() {
		t.Fatal("empty tree root must be the padded root, not zero")
	}
	if len(snap.Nullifiers) != 0 {
		t.Fatal("fresh snapshot must have no nullifiers")
	}

	if _, err := Initialize(4, -1); !errors.Is(err, ErrInvalidMaxAge) {
		t.Fatalf("negative max age: error = %v, want ErrInvalidMaxAge", err)
	}
	if _, err := Initialize(0, 1000); !errors.Is(err, merkle.ErrDepthOutOfRange) {
		t.Fatalf("depth 0: error = %v, want ErrDepthOutOfRange", err)
	}
}

// The first end-to-end scenario: depth 4 (capacity 16), 2000ms window.
// Issue A and B, redeem A, redeem A again, let B expire.
func TestService_EndToEnd(t *testing.T) {
	svc, now := newTestService(t, 4, 2000)

	recA, snapA, err := svc.Issue()
	if err != nil {
		t.Fatalf("issue A failed: %v", err)
	}
	if recA.Index != 0 || snapA.LeafCount != 1 {
		t.Fatalf("ticket A: index=%d leafCount=%d, want 0/1", recA.Index, snapA.LeafCount)
	}

	recB, snapB, err := svc.Issue()
	if err != nil {
		t.Fatalf("issue B failed: %v", err)
	}
	if recB.Index != 1 || snapB.LeafCount != 2 {
		t.Fatalf("ticket B: index=%d leafCount=%d, want 1/2", recB.Index, snapB.LeafCount)
	}
	if snapA.Root == snapB.Root {
		t.Fatal("root must change between issuances")
	}

	// Redeem A immediately.
	proofA, err := svc.ProofFor(recA)
	if err != nil {
		t.Fatalf("proof for A failed: %v", err)
	}
	nullifier, snap, err := svc.Redeem(recA.Secret, recA.IssuedAt, proofA)
	if err != nil {
		t.Fatalf("redeem A failed: %v", err)
	}
	if nullifier.IsZero() || len(snap.Nullifiers) != 1 {
		t.Fatalf("after redeem A: nullifier=%s spent=%d", nullifier, len(snap.Nullifiers))
	}

	// Redeeming A again is a terminal already-used rejection, and the
	// nullifier set still holds exactly one entry.
	_, snap, err = svc.Redeem(recA.Secret, recA.IssuedAt, proofA)
	if RejectionReason(err) != RejectAlreadyUsed {
		t.Fatalf("second redeem of A: error = %v, want already-used", err)
	}
	if len(snap.Nullifiers) != 1 {
		t.Fatalf("nullifier set grew on rejection: %d entries", len(snap.Nullifiers))
	}

	// 2010ms later ticket B is past its window.
	*now += 2010
	proofB, err := svc.ProofFor(recB)
	if err != nil {
		t.Fatalf("proof for B failed: %v", err)
	}
	_, _, err = svc.Redeem(recB.Secret, recB.IssuedAt, proofB)
	if RejectionReason(err) != RejectExpired {
		t.Fatalf("expired redeem of B: error = %v, want expired", err)
	}
}

// The second end-to-end scenario: depth 1 (capacity 2) exhausts.
func TestService_CapacityExhaustion(t *testing.T) {
	svc, _ := newTestService(t, 1, 2000)

	for i := 0; i < 2; i++ {
		if _, _, err := svc.Issue(); err != nil {
			t.Fatalf("issue %d failed: %v", i, err)
		}
	}
	if _, _, err := svc.Issue(); !errors.Is(err, merkle.ErrTreeFull) {
		t.Fatalf("third issue: error = %v, want ErrTreeFull", err)
	}
	if svc.Snapshot().LeafCount != 2 {
		t.Fatal("failed issuance must not change the leaf count")
	}
}

func TestService_RedeemByLeaf(t *testing.T) {
	svc, _ := newTestService(t, 4, 2000)
	rec, _, err := svc.Issue()
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	nullifier, snap, err := svc.RedeemByLeaf(rec.Secret, rec.IssuedAt)
	if err != nil {
		t.Fatalf("by-leaf redeem failed: %v", err)
	}
	if nullifier.IsZero() || len(snap.Nullifiers) != 1 {
		t.Fatal("by-leaf redemption must publish exactly one nullifier")
	}

	// Second attempt rejects identically to the proof-carrying mode.
	_, _, err = svc.RedeemByLeaf(rec.Secret, rec.IssuedAt)
	if RejectionReason(err) != RejectAlreadyUsed {
		t.Fatalf("second by-leaf redeem: error = %v, want already-used", err)
	}

	// A secret this authority never issued has no record.
	_, _, err = svc.RedeemByLeaf([]byte("never-issued"), rec.IssuedAt)
	if RejectionReason(err) != RejectNotFound {
		t.Fatalf("unknown secret: error = %v, want not-found", err)
	}
}

func TestService_CrossModeUniqueness(t *testing.T) {
	// A ticket spent through one mode is spent for both: the nullifier
	// set is shared.
	svc, _ := newTestService(t, 4, 2000)
	rec, _, err := svc.Issue()
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, _, err := svc.RedeemByLeaf(rec.Secret, rec.IssuedAt); err != nil {
		t.Fatalf("by-leaf redeem failed: %v", err)
	}

	proof, err := svc.ProofFor(rec)
	if err != nil {
		t.Fatalf("proof failed: %v", err)
	}
	_, _, err = svc.Redeem(rec.Secret, rec.IssuedAt, proof)
	if RejectionReason(err) != RejectAlreadyUsed {
		t.Fatalf("cross-mode double spend: error = %v, want already-used", err)
	}
}

func TestService_RestoreRoundTrip(t *testing.T) {
	svc, _ := newTestService(t, 4, 2000)
	recA, _, _ := svc.Issue()
	svc.Issue()
	if _, _, err := svc.RedeemByLeaf(recA.Secret, recA.IssuedAt); err != nil {
		t.Fatalf("redeem failed: %v", err)
	}

	restored, err := Restore(svc.Snapshot(), svc.Records())
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	restored.nowMs = svc.nowMs
	restored.issuer.nowMs = svc.issuer.nowMs
	got, want := restored.Snapshot(), svc.Snapshot()
	if got.Root != want.Root || got.LeafCount != want.LeafCount || len(got.Nullifiers) != len(want.Nullifiers) {
		t.Fatalf("restored snapshot diverges: %+v vs %+v", got, want)
	}

	// The restored service still rejects the spent ticket.
	_, _, err = restored.RedeemByLeaf(recA.Secret, recA.IssuedAt)
	if RejectionReason(err) != RejectAlreadyUsed {
		t.Fatalf("restored service forgot the nullifier: %v", err)
	}
}

func TestService_RestoreDetectsDivergence(t *testing.T) {
	svc, _ := newTestService(t, 4, 2000)
	svc.Issue()

	snap := svc.Snapshot()
	snap.Root[0] ^= 0x01
	if _, err := Restore(snap, svc.Records()); !errors.Is(err, ErrStateDivergence) {
		t.Fatalf("tampered root: error = %v, want ErrStateDivergence", err)
	}

	// A record store missing the latest ticket also diverges.
	snap = svc.Snapshot()
	if _, err := Restore(snap, nil); !errors.Is(err, ErrStateDivergence) {
		t.Fatalf("truncated records: error = %v, want ErrStateDivergence", err)
	}
}

func TestService_ProofRegeneration(t *testing.T) {
	// Proofs regenerate for old tickets after later appends, against the
	// current root.
	svc, _ := newTestService(t, 3, 2000)
	rec, _, _ := svc.Issue()
	for i := 0; i < 5; i++ {
		svc.Issue()
	}

	proof, err := svc.ProofFor(rec)
	if err != nil {
		t.Fatalf("ProofFor failed: %v", err)
	}
	if _, _, err := svc.Redeem(rec.Secret, rec.IssuedAt, proof); err != nil {
		t.Fatalf("redeem with regenerated proof failed: %v", err)
	}
}
