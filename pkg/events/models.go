package events

// MessageType defines the type of an agent notification message.
type MessageType string

const (
	// MessageTypeMandateUpdate is for lifecycle status changes.
	MessageTypeMandateUpdate MessageType = "mandateUpdate"
	// MessageTypePaymentDecision is for payment request outcomes.
	MessageTypePaymentDecision MessageType = "paymentDecision"
)

// Message represents a generic agent notification.
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// MandateUpdatePayload is the payload for a mandateUpdate message.
type MandateUpdatePayload struct {
	MandateID string `json:"mandate_id"`
	PayerID   string `json:"payer_id"`
	Status    string `json:"status"`
}

// PaymentDecisionPayload is the payload for a paymentDecision message.
type PaymentDecisionPayload struct {
	MandateID   string `json:"mandate_id"`
	Status      string `json:"status"`
	ReasonCode  string `json:"reason_code,omitempty"`
	ExecutionID string `json:"execution_id,omitempty"`
	Amount      int64  `json:"amount,omitempty"`
}
