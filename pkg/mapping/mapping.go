package mapping

import (
	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/payos/mandate-engine/pkg/api"
	"github.com/payos/mandate-engine/pkg/lifecycle"
	"github.com/payos/mandate-engine/pkg/models"
)

// toApiUUID parses a server-generated ID. Domain IDs are always UUIDs minted
// by the store, so a parse failure maps to the zero UUID.
func toApiUUID(id string) openapi_types.UUID {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return openapi_types.UUID{}
	}
	return openapi_types.UUID(parsed)
}

// ToApiMandate converts a domain Mandate model to an API Mandate model.
func ToApiMandate(m *models.Mandate) *api.Mandate {
	out := &api.Mandate{
		Id:               toApiUUID(m.Id),
		Type:             string(m.Type),
		PayerId:          m.PayerId,
		PayeeId:          m.PayeeId,
		AuthorizedAmount: m.AuthorizedAmount,
		UsedAmount:       m.UsedAmount,
		ExecutionCount:   m.ExecutionCount,
		Currency:         m.Currency,
		Status:           string(m.Status),
		ValidUntil:       m.ValidUntil,
		Metadata:         m.Metadata,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	if m.ParentId != "" {
		parent := toApiUUID(m.ParentId)
		out.ParentId = &parent
	}
	if m.Credential != nil {
		out.Credential = &api.Credential{
			MandateRef: toApiUUID(m.Credential.MandateRef),
			Subject:    m.Credential.Subject,
			Issuer:     m.Credential.Issuer,
			Proof:      m.Credential.Proof,
		}
	}
	return out
}

// ToDomainCreateParams converts an API NewMandate to lifecycle create
// parameters.
func ToDomainCreateParams(newMandate *api.NewMandate) lifecycle.CreateParams {
	params := lifecycle.CreateParams{
		Type:             models.MandateType(newMandate.Type),
		PayerId:          newMandate.PayerId,
		PayeeId:          newMandate.PayeeId,
		AuthorizedAmount: newMandate.AuthorizedAmount,
		Currency:         newMandate.Currency,
		ValidUntil:       newMandate.ValidUntil,
		Metadata:         newMandate.Metadata,
	}
	if newMandate.ParentId != nil {
		params.ParentId = uuid.UUID(*newMandate.ParentId).String()
	}
	return params
}

// ToDomainCredential converts an API Credential to the domain model.
func ToDomainCredential(cred *api.Credential) *models.Credential {
	return &models.Credential{
		MandateRef: uuid.UUID(cred.MandateRef).String(),
		Subject:    cred.Subject,
		Issuer:     cred.Issuer,
		Proof:      cred.Proof,
	}
}

// ToApiExecution converts a domain Execution model to an API Execution model.
func ToApiExecution(ex *models.Execution) *api.Execution {
	return &api.Execution{
		Id:             toApiUUID(ex.Id),
		MandateId:      toApiUUID(ex.MandateId),
		Index:          ex.Index,
		Amount:         ex.Amount,
		Currency:       ex.Currency,
		Status:         string(ex.Status),
		IdempotencyKey: ex.IdempotencyKey,
		CreatedAt:      ex.CreatedAt,
		UpdatedAt:      ex.UpdatedAt,
	}
}
