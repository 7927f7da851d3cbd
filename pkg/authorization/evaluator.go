// Package authorization holds the pure decision function that adjudicates a
// payment request against a mandate snapshot. It has no side effects; all
// state changes happen in the coordinator's store transaction.
package authorization

import (
	"errors"
	"fmt"
	"time"

	"github.com/payos/mandate-engine/pkg/models"
)

// ErrMalformedRequest is returned when the request itself is invalid.
// Unlike a decline, it is a caller error and carries no reason code.
var ErrMalformedRequest = errors.New("malformed payment request")

// ErrNotPayable is returned when the mandate is not a payment-type mandate.
// Only payment mandates are eligible for payment requests.
var ErrNotPayable = errors.New("mandate is not a payment mandate")

// PaymentRequest is a single payment attempt against a mandate.
type PaymentRequest struct {
	Amount         int64
	Currency       string
	IdempotencyKey string
}

// Validate checks the structural integrity of the request.
func (r PaymentRequest) Validate() error {
	if r.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrMalformedRequest)
	}
	if r.Currency == "" {
		return fmt.Errorf("%w: currency is required", ErrMalformedRequest)
	}
	if r.IdempotencyKey == "" {
		return fmt.Errorf("%w: idempotency key is required", ErrMalformedRequest)
	}
	return nil
}

// Config carries evaluator policy knobs.
type Config struct {
	// PartialAuthorization, when enabled, approves the remaining balance
	// instead of declining a request that overshoots the ceiling. Off by
	// default: the engine declines the entire requested amount.
	PartialAuthorization bool
}

// Evaluator is the pure decision function.
type Evaluator struct {
	cfg Config
}

// NewEvaluator creates an Evaluator with the given policy.
func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Evaluate applies the decision rules in order; the first match wins.
// A decline is a value, not an error: errors are reserved for malformed
// input and ineligible mandate types.
func (e *Evaluator) Evaluate(m *models.Mandate, req PaymentRequest, now time.Time) (Decision, error) {
	if err := req.Validate(); err != nil {
		return Decision{}, err
	}
	if m.Type != models.PAYMENT {
		return Decision{}, fmt.Errorf("%w: mandate %s has type %s", ErrNotPayable, m.Id, m.Type)
	}

	if m.Status != models.ACTIVE {
		return Decline(ReasonMandateNotActive), nil
	}
	if m.ValidUntil != nil && now.After(*m.ValidUntil) {
		return Decline(ReasonMandateExpired), nil
	}
	if req.Currency != m.Currency {
		return Decline(ReasonCurrencyMismatch), nil
	}
	// Compare against the remaining headroom; summing the used and requested
	// amounts could overflow on an enormous request.
	if req.Amount > m.RemainingAmount() {
		if e.cfg.PartialAuthorization && m.RemainingAmount() > 0 {
			return Approve(m.RemainingAmount()), nil
		}
		return Decline(ReasonLimitExceeded), nil
	}
	return Approve(req.Amount), nil
}
