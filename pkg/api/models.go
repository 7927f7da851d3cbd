// Package api defines the wire models of the mandate engine's HTTP surface.
package api

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// Credential is the activation proof submitted by the payer's wallet.
type Credential struct {
	MandateRef openapi_types.UUID `json:"mandate_ref"`
	Subject    string             `json:"subject"`
	Issuer     string             `json:"issuer"`
	Proof      string             `json:"proof"`
}

// NewMandate is the request body for creating a mandate.
type NewMandate struct {
	Type             string              `json:"type"`
	ParentId         *openapi_types.UUID `json:"parent_id,omitempty"`
	PayerId          string              `json:"payer_id"`
	PayeeId          string              `json:"payee_id"`
	AuthorizedAmount int64               `json:"authorized_amount"`
	Currency         string              `json:"currency"`
	ValidUntil       *time.Time          `json:"valid_until,omitempty"`
	Metadata         map[string]string   `json:"metadata,omitempty"`
}

// Mandate is the API representation of a mandate.
type Mandate struct {
	Id               openapi_types.UUID  `json:"id"`
	Type             string              `json:"type"`
	ParentId         *openapi_types.UUID `json:"parent_id,omitempty"`
	PayerId          string              `json:"payer_id"`
	PayeeId          string              `json:"payee_id"`
	AuthorizedAmount int64               `json:"authorized_amount"`
	UsedAmount       int64               `json:"used_amount"`
	ExecutionCount   int64               `json:"execution_count"`
	Currency         string              `json:"currency"`
	Status           string              `json:"status"`
	Credential       *Credential         `json:"credential,omitempty"`
	ValidUntil       *time.Time          `json:"valid_until,omitempty"`
	Metadata         map[string]string   `json:"metadata,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// Execution is the API representation of a committed execution.
type Execution struct {
	Id             openapi_types.UUID `json:"id"`
	MandateId      openapi_types.UUID `json:"mandate_id"`
	Index          int64              `json:"index"`
	Amount         int64              `json:"amount"`
	Currency       string             `json:"currency"`
	Status         string             `json:"status"`
	IdempotencyKey string             `json:"idempotency_key"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// SuspendRequest is the request body for suspending a mandate.
type SuspendRequest struct {
	Reason string `json:"reason"`
}

// PaymentRequest is the request body for a payment attempt.
type PaymentRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	IdempotencyKey string `json:"idempotency_key"`
}

// PaymentResponse is the outcome of a payment attempt. ReasonCode is set
// only on declines, ExecutionId only on approvals.
type PaymentResponse struct {
	Status      string              `json:"status"`
	ReasonCode  string              `json:"reason_code,omitempty"`
	ExecutionId *openapi_types.UUID `json:"execution_id,omitempty"`
	Amount      int64               `json:"amount,omitempty"`
}

// ConfirmExecutionRequest is the callback body from the Payment Execution
// Service reporting a settlement outcome.
type ConfirmExecutionRequest struct {
	Settled bool `json:"settled"`
}

// ExpireSweepResponse reports how many mandates a sweep expired.
type ExpireSweepResponse struct {
	Expired int `json:"expired"`
}
