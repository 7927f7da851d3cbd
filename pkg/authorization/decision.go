package authorization

// Outcome is the category of an authorization decision.
type Outcome string

const (
	// Approved authorizes the transfer of Decision.Amount.
	Approved Outcome = "approved"
	// Declined is an expected business outcome, not a fault. The calling
	// agent may act on the reason code (top-up, fall back to another rail).
	Declined Outcome = "declined"
)

// ReasonCode explains a decline. Surfaced to the caller verbatim and never
// retried automatically by the engine.
type ReasonCode string

const (
	ReasonMandateNotActive ReasonCode = "mandate_not_active"
	ReasonMandateExpired   ReasonCode = "mandate_expired"
	ReasonCurrencyMismatch ReasonCode = "currency_mismatch"
	ReasonLimitExceeded    ReasonCode = "limit_exceeded"
)

// Decision is the result of evaluating a payment request against a mandate
// snapshot. Amount is the approved amount in minor units; it equals the
// requested amount unless partial authorization is enabled.
type Decision struct {
	Outcome Outcome
	Reason  ReasonCode
	Amount  int64
}

// Approve builds an approving decision for the given amount.
func Approve(amount int64) Decision {
	return Decision{Outcome: Approved, Amount: amount}
}

// Decline builds a declining decision with the given reason.
func Decline(reason ReasonCode) Decision {
	return Decision{Outcome: Declined, Reason: reason}
}
