package models

import (
	"time"
)

// MandateType distinguishes the three stages of an agentic payment
// authorization chain: intent -> cart -> payment.
type MandateType string

const (
	// INTENT expresses a future spending ceiling without itemization.
	INTENT MandateType = "intent"
	// CART binds the authorization to an itemized purchase.
	CART MandateType = "cart"
	// PAYMENT is the executable authorization that transfers are checked against.
	PAYMENT MandateType = "payment"
)

// MandateStatus defines the lifecycle states of a mandate.
type MandateStatus string

const (
	DRAFT     MandateStatus = "draft"
	ACTIVE    MandateStatus = "active"
	SUSPENDED MandateStatus = "suspended"
	COMPLETED MandateStatus = "completed"
	REVOKED   MandateStatus = "revoked"
	EXPIRED   MandateStatus = "expired"
)

// IsTerminal reports whether the status admits no further transitions.
func (s MandateStatus) IsTerminal() bool {
	switch s {
	case COMPLETED, REVOKED, EXPIRED:
		return true
	}
	return false
}

// ExecutionStatus defines the possible states of a committed execution.
type ExecutionStatus string

const (
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionFailed    ExecutionStatus = "failed"
)

// MetadataSingleUse marks a mandate that completes itself after its one
// authorized execution settles.
const MetadataSingleUse = "single_use"

// Credential is the externally issued proof binding a mandate to its payer.
// The engine validates its references; cryptographic verification is
// delegated to an external verifier.
type Credential struct {
	MandateRef string `json:"mandate_ref" dynamodbav:"mandate_ref"`
	Subject    string `json:"subject" dynamodbav:"subject"`
	Issuer     string `json:"issuer" dynamodbav:"issuer"`
	Proof      string `json:"proof" dynamodbav:"proof"`
}

// Mandate represents the internal domain model for a spending authorization.
// Amounts are integer minor units of Currency. It includes dynamodbav tags
// for marshalling.
type Mandate struct {
	Id               string            `dynamodbav:"id"`
	Type             MandateType       `dynamodbav:"mandate_type"`
	ParentId         string            `dynamodbav:"parent_id,omitempty"`
	PayerId          string            `dynamodbav:"payer_id"`
	PayeeId          string            `dynamodbav:"payee_id"`
	AuthorizedAmount int64             `dynamodbav:"authorized_amount"`
	UsedAmount       int64             `dynamodbav:"used_amount"`
	ExecutionCount   int64             `dynamodbav:"execution_count"`
	Currency         string            `dynamodbav:"currency"`
	Status           MandateStatus     `dynamodbav:"status"`
	Credential       *Credential       `dynamodbav:"credential,omitempty"`
	ValidUntil       *time.Time        `dynamodbav:"valid_until,omitempty"`
	Metadata         map[string]string `dynamodbav:"metadata,omitempty"`
	Version          int64             `dynamodbav:"version"`
	CreatedAt        time.Time         `dynamodbav:"created_at"`
	UpdatedAt        time.Time         `dynamodbav:"updated_at"`
}

// RemainingAmount returns the unspent portion of the authorization.
func (m *Mandate) RemainingAmount() int64 {
	return m.AuthorizedAmount - m.UsedAmount
}

// IsSingleUse reports whether the mandate completes after one execution.
func (m *Mandate) IsSingleUse() bool {
	return m.Metadata[MetadataSingleUse] == "true"
}

// Clone returns a deep copy of the mandate. Store mutators hand the mutation
// callback a clone so an aborted mutation never leaks partial writes into a
// shared snapshot.
func (m *Mandate) Clone() *Mandate {
	c := *m
	if m.Credential != nil {
		cred := *m.Credential
		c.Credential = &cred
	}
	if m.ValidUntil != nil {
		t := *m.ValidUntil
		c.ValidUntil = &t
	}
	if m.Metadata != nil {
		c.Metadata = make(map[string]string, len(m.Metadata))
		for k, v := range m.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// Execution represents one committed use of a mandate's authorization.
type Execution struct {
	Id             string          `dynamodbav:"execution_id"`
	MandateId      string          `dynamodbav:"mandate_id"`
	Index          int64           `dynamodbav:"execution_index"`
	Amount         int64           `dynamodbav:"amount"`
	Currency       string          `dynamodbav:"currency"`
	Status         ExecutionStatus `dynamodbav:"status"`
	IdempotencyKey string          `dynamodbav:"idempotency_key"`
	CreatedAt      time.Time       `dynamodbav:"created_at"`
	UpdatedAt      time.Time       `dynamodbav:"updated_at"`
}
