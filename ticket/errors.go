package ticket

import "errors"

// ErrStateDivergence is returned when a persisted snapshot and the ticket
// record store disagree: the root recomputed from the records does not
// match the snapshot root. The caller must reconcile (reload from the
// authoritative store) before the next state-mutating call.
var ErrStateDivergence = errors.New("ticket: snapshot root does not match record store")

// RejectReason classifies why a redemption attempt was refused. All four
// reasons are terminal, correct-by-design rejections of that specific
// attempt; none is ever retried by the core.
type RejectReason int

const (
	RejectNone RejectReason = iota
	// RejectExpired: the validity window has passed.
	RejectExpired
	// RejectAlreadyUsed: the derived nullifier is already published.
	RejectAlreadyUsed
	// RejectInvalidProof: the inclusion proof does not reproduce the root.
	RejectInvalidProof
	// RejectNotFound: the ticket record is absent from the issuer's local
	// store. A collaborator-layer condition, not a cryptographic failure.
	RejectNotFound
)

// String returns the reason name surfaced to callers.
func (r RejectReason) String() string {
	switch r {
	case RejectNone:
		return "none"
	case RejectExpired:
		return "expired"
	case RejectAlreadyUsed:
		return "already-used"
	case RejectInvalidProof:
		return "invalid-proof"
	case RejectNotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

// RejectionError carries a redemption rejection across the Service API.
type RejectionError struct {
	Reason RejectReason
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	return "ticket: redemption rejected: " + e.Reason.String()
}

// RejectionReason extracts the reason from an error returned by
// Service.Redeem or Service.RedeemByLeaf. It returns RejectNone for nil
// errors and for errors that are not redemption rejections.
func RejectionReason(err error) RejectReason {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return RejectNone
}
