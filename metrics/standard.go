package metrics

// Pre-defined service metrics, registered in the default registry.
var (
	// TicketsIssued counts successful Issue calls.
	TicketsIssued = DefaultRegistry.Counter("ticket/issued")

	// RedemptionsAccepted counts redemptions that passed all checks.
	RedemptionsAccepted = DefaultRegistry.Counter("ticket/redeem/accepted")
)

// RejectionCounter returns the counter for redemptions rejected with the
// given reason ("expired", "already-used", "invalid-proof", "not-found").
func RejectionCounter(reason string) *Counter {
	return DefaultRegistry.Counter("ticket/redeem/rejected/" + reason)
}
