package mandates

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/payos/mandate-engine/pkg/api"
	"github.com/payos/mandate-engine/pkg/credentials"
	"github.com/payos/mandate-engine/pkg/lifecycle"
	"github.com/payos/mandate-engine/pkg/mapping"
	"github.com/payos/mandate-engine/pkg/storage"
)

// MandatesHandler holds the dependencies for mandate lifecycle handlers.
type MandatesHandler struct {
	Controller *lifecycle.Controller
	Store      storage.MandateReader
}

// NewMandatesHandler creates a new MandatesHandler.
func NewMandatesHandler(controller *lifecycle.Controller, store storage.MandateReader) *MandatesHandler {
	return &MandatesHandler{Controller: controller, Store: store}
}

// CreateMandate handles the logic for creating a new draft mandate.
func (h *MandatesHandler) CreateMandate(w http.ResponseWriter, r *http.Request) {
	var newMandate api.NewMandate
	if err := json.NewDecoder(r.Body).Decode(&newMandate); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	created, err := h.Controller.Create(r.Context(), mapping.ToDomainCreateParams(&newMandate))
	if err != nil {
		if errors.Is(err, lifecycle.ErrInvalidMandate) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		} else {
			http.Error(w, fmt.Sprintf("Failed to create mandate: %v", err), http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, http.StatusCreated, mapping.ToApiMandate(created))
}

// GetMandateById handles the logic for retrieving a mandate by its ID.
func (h *MandatesHandler) GetMandateById(w http.ResponseWriter, r *http.Request, mandateId string) {
	m, err := h.Store.GetMandate(r.Context(), mandateId)
	if err != nil {
		if errors.Is(err, storage.ErrMandateNotFound) {
			http.Error(w, "Mandate not found", http.StatusNotFound)
		} else {
			http.Error(w, fmt.Sprintf("Failed to retrieve mandate: %v", err), http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, http.StatusOK, mapping.ToApiMandate(m))
}

// ListMandatesByPayerId handles the logic for retrieving a payer's mandates.
func (h *MandatesHandler) ListMandatesByPayerId(w http.ResponseWriter, r *http.Request, payerId string) {
	mandates, err := h.Store.ListMandatesByPayerID(r.Context(), payerId)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve mandates: %v", err), http.StatusInternalServerError)
		return
	}

	apiMandates := make([]*api.Mandate, len(mandates))
	for i, m := range mandates {
		apiMandates[i] = mapping.ToApiMandate(&m)
	}
	respondJSON(w, http.StatusOK, apiMandates)
}

// ActivateMandateById binds the submitted credential and activates the
// mandate.
func (h *MandatesHandler) ActivateMandateById(w http.ResponseWriter, r *http.Request, mandateId string) {
	var cred api.Credential
	if err := json.NewDecoder(r.Body).Decode(&cred); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	m, err := h.Controller.Activate(r.Context(), mandateId, mapping.ToDomainCredential(&cred))
	if err != nil {
		writeTransitionError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, mapping.ToApiMandate(m))
}

// SuspendMandateById handles the logic for suspending a mandate.
func (h *MandatesHandler) SuspendMandateById(w http.ResponseWriter, r *http.Request, mandateId string) {
	var req api.SuspendRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
			return
		}
	}

	m, err := h.Controller.Suspend(r.Context(), mandateId, req.Reason)
	if err != nil {
		writeTransitionError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, mapping.ToApiMandate(m))
}

// ResumeMandateById handles the logic for resuming a suspended mandate.
func (h *MandatesHandler) ResumeMandateById(w http.ResponseWriter, r *http.Request, mandateId string) {
	m, err := h.Controller.Resume(r.Context(), mandateId)
	if err != nil {
		writeTransitionError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, mapping.ToApiMandate(m))
}

// RevokeMandateById handles the logic for revoking a mandate.
func (h *MandatesHandler) RevokeMandateById(w http.ResponseWriter, r *http.Request, mandateId string) {
	m, err := h.Controller.Revoke(r.Context(), mandateId)
	if err != nil {
		writeTransitionError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, mapping.ToApiMandate(m))
}

// CompleteMandateById marks a mandate's purpose as fulfilled.
func (h *MandatesHandler) CompleteMandateById(w http.ResponseWriter, r *http.Request, mandateId string) {
	m, err := h.Controller.Complete(r.Context(), mandateId)
	if err != nil {
		writeTransitionError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, mapping.ToApiMandate(m))
}

// ExpireSweep expires every mandate past its validity window. Exposed for
// the scheduled sweep; idempotent.
func (h *MandatesHandler) ExpireSweep(w http.ResponseWriter, r *http.Request) {
	expired, err := h.Controller.ExpireSweep(r.Context(), time.Now())
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to run expire sweep: %v", err), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, api.ExpireSweepResponse{Expired: expired})
}

// writeTransitionError maps lifecycle errors onto HTTP statuses.
func writeTransitionError(w http.ResponseWriter, err error) {
	var ite *lifecycle.InvalidTransitionError
	switch {
	case errors.Is(err, storage.ErrMandateNotFound):
		http.Error(w, "Mandate not found", http.StatusNotFound)
	case errors.As(err, &ite):
		http.Error(w, ite.Error(), http.StatusConflict)
	case errors.Is(err, credentials.ErrCredentialMismatch), errors.Is(err, credentials.ErrCredentialUnverified), errors.Is(err, credentials.ErrMandateNotDraft):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, storage.ErrStoreUnavailable), errors.Is(err, storage.ErrStoreConflict):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, fmt.Sprintf("Failed to update mandate: %v", err), http.StatusInternalServerError)
	}
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, fmt.Sprintf("Failed to write response: %v", err), http.StatusInternalServerError)
	}
}
