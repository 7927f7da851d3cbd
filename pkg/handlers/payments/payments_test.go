package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/payos/mandate-engine/pkg/api"
	"github.com/payos/mandate-engine/pkg/authorization"
	"github.com/payos/mandate-engine/pkg/models"
	enginepayments "github.com/payos/mandate-engine/pkg/payments"
	"github.com/payos/mandate-engine/pkg/storage"
	"github.com/payos/mandate-engine/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
)

func newTestHandler(t *testing.T, mode enginepayments.SettlementMode) (*PaymentsHandler, *memory.Store, *models.Mandate) {
	t.Helper()
	store := memory.New()
	m, err := store.CreateMandate(context.Background(), &models.Mandate{
		Type:             models.PAYMENT,
		PayerId:          "payer1",
		PayeeId:          "payee1",
		AuthorizedAmount: 1000,
		Currency:         "USD",
	})
	assert.NoError(t, err)
	_, err = store.MutateMandate(context.Background(), m.Id, func(m *models.Mandate) (*storage.Mutation, error) {
		m.Status = models.ACTIVE
		return &storage.Mutation{Mandate: m}, nil
	})
	assert.NoError(t, err)

	coordinator := enginepayments.NewCoordinator(store, authorization.NewEvaluator(authorization.Config{}), nil, nil, mode, time.Now)
	return NewPaymentsHandler(coordinator, store), store, m
}

func requestPayment(t *testing.T, handler *PaymentsHandler, mandateID string, body api.PaymentRequest) (*httptest.ResponseRecorder, api.PaymentResponse) {
	t.Helper()
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/mandates/%s/payments", mandateID), bytes.NewReader(raw))
	rr := httptest.NewRecorder()

	handler.RequestPayment(rr, req, mandateID)

	var resp api.PaymentResponse
	if rr.Code == http.StatusOK {
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	}
	return rr, resp
}

func TestRequestPayment(t *testing.T) {
	t.Run("Approved", func(t *testing.T) {
		handler, _, m := newTestHandler(t, enginepayments.SettlementSync)

		rr, resp := requestPayment(t, handler, m.Id, api.PaymentRequest{Amount: 300, Currency: "USD", IdempotencyKey: "key1"})

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "approved", resp.Status)
		assert.Empty(t, resp.ReasonCode)
		assert.NotNil(t, resp.ExecutionId)
		assert.Equal(t, int64(300), resp.Amount)
	})

	t.Run("Declined Is Still 200", func(t *testing.T) {
		handler, _, m := newTestHandler(t, enginepayments.SettlementSync)

		rr, resp := requestPayment(t, handler, m.Id, api.PaymentRequest{Amount: 5000, Currency: "USD", IdempotencyKey: "key1"})

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "declined", resp.Status)
		assert.Equal(t, "limit_exceeded", resp.ReasonCode)
		assert.Nil(t, resp.ExecutionId)
	})

	t.Run("Currency Mismatch Reason Surfaces", func(t *testing.T) {
		handler, _, m := newTestHandler(t, enginepayments.SettlementSync)

		rr, resp := requestPayment(t, handler, m.Id, api.PaymentRequest{Amount: 100, Currency: "EUR", IdempotencyKey: "key1"})

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "currency_mismatch", resp.ReasonCode)
	})

	t.Run("Malformed Request", func(t *testing.T) {
		handler, _, m := newTestHandler(t, enginepayments.SettlementSync)

		rr, _ := requestPayment(t, handler, m.Id, api.PaymentRequest{Amount: 0, Currency: "USD", IdempotencyKey: "key1"})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Invalid Body", func(t *testing.T) {
		handler, _, m := newTestHandler(t, enginepayments.SettlementSync)

		req := httptest.NewRequest(http.MethodPost, "/mandates/m1/payments", bytes.NewReader([]byte("{not json")))
		rr := httptest.NewRecorder()
		handler.RequestPayment(rr, req, m.Id)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Mandate Not Found", func(t *testing.T) {
		handler, _, _ := newTestHandler(t, enginepayments.SettlementSync)

		rr, _ := requestPayment(t, handler, "missing", api.PaymentRequest{Amount: 100, Currency: "USD", IdempotencyKey: "key1"})

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("Retry Returns Same Execution", func(t *testing.T) {
		handler, _, m := newTestHandler(t, enginepayments.SettlementSync)

		_, first := requestPayment(t, handler, m.Id, api.PaymentRequest{Amount: 300, Currency: "USD", IdempotencyKey: "key1"})
		_, second := requestPayment(t, handler, m.Id, api.PaymentRequest{Amount: 300, Currency: "USD", IdempotencyKey: "key1"})

		assert.Equal(t, first.ExecutionId, second.ExecutionId)
	})
}

func TestListExecutionsByMandateId(t *testing.T) {
	handler, _, m := newTestHandler(t, enginepayments.SettlementSync)

	for i := 0; i < 3; i++ {
		rr, _ := requestPayment(t, handler, m.Id, api.PaymentRequest{Amount: 100, Currency: "USD", IdempotencyKey: fmt.Sprintf("key%d", i)})
		assert.Equal(t, http.StatusOK, rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/mandates/%s/executions", m.Id), nil)
	rr := httptest.NewRecorder()
	handler.ListExecutionsByMandateId(rr, req, m.Id)

	assert.Equal(t, http.StatusOK, rr.Code)
	var executions []api.Execution
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&executions))
	assert.Len(t, executions, 3)
	for i, ex := range executions {
		assert.Equal(t, int64(i+1), ex.Index)
		assert.Equal(t, "completed", ex.Status)
	}
}

func TestConfirmExecutionById(t *testing.T) {
	confirm := func(t *testing.T, handler *PaymentsHandler, mandateID, executionID string, settled bool) (*httptest.ResponseRecorder, api.Execution) {
		t.Helper()
		raw, _ := json.Marshal(api.ConfirmExecutionRequest{Settled: settled})
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/mandates/%s/executions/%s/confirm", mandateID, executionID), bytes.NewReader(raw))
		rr := httptest.NewRecorder()

		handler.ConfirmExecutionById(rr, req, mandateID, executionID)

		var ex api.Execution
		if rr.Code == http.StatusOK {
			assert.NoError(t, json.NewDecoder(rr.Body).Decode(&ex))
		}
		return rr, ex
	}

	t.Run("Settled", func(t *testing.T) {
		handler, store, m := newTestHandler(t, enginepayments.SettlementAsync)
		_, resp := requestPayment(t, handler, m.Id, api.PaymentRequest{Amount: 400, Currency: "USD", IdempotencyKey: "key1"})

		rr, ex := confirm(t, handler, m.Id, resp.ExecutionId.String(), true)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "completed", ex.Status)

		stored, err := store.GetMandate(context.Background(), m.Id)
		assert.NoError(t, err)
		assert.Equal(t, int64(400), stored.UsedAmount)
	})

	t.Run("Failed Settlement Releases Funds", func(t *testing.T) {
		handler, store, m := newTestHandler(t, enginepayments.SettlementAsync)
		_, resp := requestPayment(t, handler, m.Id, api.PaymentRequest{Amount: 400, Currency: "USD", IdempotencyKey: "key1"})

		rr, ex := confirm(t, handler, m.Id, resp.ExecutionId.String(), false)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "failed", ex.Status)

		stored, err := store.GetMandate(context.Background(), m.Id)
		assert.NoError(t, err)
		assert.Zero(t, stored.UsedAmount)
	})

	t.Run("Retry After Failed Settlement Reports Failed Status", func(t *testing.T) {
		handler, _, m := newTestHandler(t, enginepayments.SettlementAsync)
		_, resp := requestPayment(t, handler, m.Id, api.PaymentRequest{Amount: 400, Currency: "USD", IdempotencyKey: "key1"})

		rr, _ := confirm(t, handler, m.Id, resp.ExecutionId.String(), false)
		assert.Equal(t, http.StatusOK, rr.Code)

		// The funds never moved, so the retry must not read as approved.
		rr, retry := requestPayment(t, handler, m.Id, api.PaymentRequest{Amount: 400, Currency: "USD", IdempotencyKey: "key1"})
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "failed", retry.Status)
		assert.Equal(t, resp.ExecutionId, retry.ExecutionId)
		assert.Empty(t, retry.ReasonCode)
	})

	t.Run("Unknown Execution", func(t *testing.T) {
		handler, _, m := newTestHandler(t, enginepayments.SettlementAsync)

		rr, _ := confirm(t, handler, m.Id, "missing", true)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
