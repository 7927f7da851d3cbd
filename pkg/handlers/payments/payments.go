package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/payos/mandate-engine/pkg/api"
	"github.com/payos/mandate-engine/pkg/authorization"
	"github.com/payos/mandate-engine/pkg/mapping"
	"github.com/payos/mandate-engine/pkg/payments"
	"github.com/payos/mandate-engine/pkg/storage"
)

// PaymentsHandler holds the dependencies for payment request handlers.
type PaymentsHandler struct {
	Coordinator *payments.Coordinator
	Store       storage.ExecutionStore
}

// NewPaymentsHandler creates a new PaymentsHandler.
func NewPaymentsHandler(coordinator *payments.Coordinator, store storage.ExecutionStore) *PaymentsHandler {
	return &PaymentsHandler{Coordinator: coordinator, Store: store}
}

// RequestPayment adjudicates a payment attempt against the mandate. A
// decline is a successful response carrying a reason code, not an error.
func (h *PaymentsHandler) RequestPayment(w http.ResponseWriter, r *http.Request, mandateId string) {
	var req api.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	result, err := h.Coordinator.RequestPayment(r.Context(), mandateId, authorization.PaymentRequest{
		Amount:         req.Amount,
		Currency:       req.Currency,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		switch {
		case errors.Is(err, authorization.ErrMalformedRequest), errors.Is(err, authorization.ErrNotPayable):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, storage.ErrMandateNotFound):
			http.Error(w, "Mandate not found", http.StatusNotFound)
		case errors.Is(err, storage.ErrStoreUnavailable), errors.Is(err, storage.ErrStoreConflict):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			http.Error(w, fmt.Sprintf("Failed to process payment request: %v", err), http.StatusInternalServerError)
		}
		return
	}

	resp := api.PaymentResponse{Status: string(result.Status)}
	if result.Status == payments.StatusDeclined {
		resp.ReasonCode = string(result.Reason)
	} else if result.Execution != nil {
		id, _ := uuid.Parse(result.Execution.Id)
		apiID := openapi_types.UUID(id)
		resp.ExecutionId = &apiID
		resp.Amount = result.Execution.Amount
	}

	respondJSON(w, http.StatusOK, resp)
}

// ListExecutionsByMandateId retrieves the execution history of a mandate.
func (h *PaymentsHandler) ListExecutionsByMandateId(w http.ResponseWriter, r *http.Request, mandateId string) {
	executions, err := h.Store.ListExecutions(r.Context(), mandateId)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve executions: %v", err), http.StatusInternalServerError)
		return
	}

	apiExecutions := make([]*api.Execution, len(executions))
	for i, ex := range executions {
		apiExecutions[i] = mapping.ToApiExecution(&ex)
	}
	respondJSON(w, http.StatusOK, apiExecutions)
}

// ConfirmExecutionById is the callback for the external Payment Execution
// Service to report a settlement outcome for a pending execution.
func (h *PaymentsHandler) ConfirmExecutionById(w http.ResponseWriter, r *http.Request, mandateId, executionId string) {
	var req api.ConfirmExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	ex, err := h.Coordinator.ConfirmExecution(r.Context(), mandateId, executionId, req.Settled)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrExecutionNotFound), errors.Is(err, storage.ErrMandateNotFound):
			http.Error(w, "Execution not found", http.StatusNotFound)
		case errors.Is(err, storage.ErrStoreUnavailable), errors.Is(err, storage.ErrStoreConflict):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			http.Error(w, fmt.Sprintf("Failed to confirm execution: %v", err), http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, http.StatusOK, mapping.ToApiExecution(ex))
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, fmt.Sprintf("Failed to write response: %v", err), http.StatusInternalServerError)
	}
}
