// Package payments implements the payment request coordinator: the
// concurrency boundary where payment attempts are evaluated and, on
// approval, committed against the mandate's usage counters in one store
// transaction.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/payos/mandate-engine/pkg/authorization"
	"github.com/payos/mandate-engine/pkg/events"
	"github.com/payos/mandate-engine/pkg/models"
	"github.com/payos/mandate-engine/pkg/scheduler"
	"github.com/payos/mandate-engine/pkg/storage"
)

// SettlementMode selects how approved executions are committed.
type SettlementMode string

const (
	// SettlementSync commits executions as completed immediately.
	SettlementSync SettlementMode = "sync"
	// SettlementAsync commits executions as pending and hands them to the
	// external Payment Execution Service; ConfirmExecution finalizes them.
	SettlementAsync SettlementMode = "async"
)

// Status is the outcome of a payment request.
type Status string

const (
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
	// StatusFailed marks an idempotent retry of a payment that was approved
	// but whose settlement later failed; the reservation has been released
	// and no funds moved.
	StatusFailed Status = "failed"
)

// Result is the outcome of RequestPayment. Declines are values, not errors:
// Reason is set only when Status is declined, Execution only on approval.
type Result struct {
	Status    Status
	Reason    authorization.ReasonCode
	Execution *models.Execution
}

// errDeclined aborts the store transaction on a decline; the decision is
// carried out of the closure separately.
var errDeclined = errors.New("payment declined")

// Coordinator serializes payment attempts per mandate via the store's
// transactional mutate path.
type Coordinator struct {
	store     storage.Storage
	evaluator *authorization.Evaluator
	scheduler scheduler.ExecutionScheduler
	publisher events.Publisher
	mode      SettlementMode
	now       func() time.Time
}

// NewCoordinator creates a Coordinator. scheduler is required in async mode
// and ignored in sync mode; publisher may be nil.
func NewCoordinator(store storage.Storage, evaluator *authorization.Evaluator, sched scheduler.ExecutionScheduler, publisher events.Publisher, mode SettlementMode, now func() time.Time) *Coordinator {
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = &events.NoOpPublisher{}
	}
	if mode == "" {
		mode = SettlementSync
	}
	return &Coordinator{
		store:     store,
		evaluator: evaluator,
		scheduler: sched,
		publisher: publisher,
		mode:      mode,
		now:       now,
	}
}

// RequestPayment adjudicates one payment attempt. Approval appends an
// execution and bumps the usage counters atomically; a decline leaves the
// mandate untouched and creates no record. Retries with the same idempotency
// key return the previously committed result without re-evaluating.
func (c *Coordinator) RequestPayment(ctx context.Context, mandateID string, req authorization.PaymentRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Fast path: a committed execution under this key is the prior result.
	prior, err := c.store.GetExecutionByIdempotencyKey(ctx, mandateID, req.IdempotencyKey)
	if err == nil {
		return c.priorResult(ctx, prior), nil
	}
	if !errors.Is(err, storage.ErrExecutionNotFound) {
		return nil, c.wrapStoreErr(err)
	}

	var decision authorization.Decision
	mut, err := c.store.MutateMandate(ctx, mandateID, func(m *models.Mandate) (*storage.Mutation, error) {
		decision, err = c.evaluator.Evaluate(m, req, c.now())
		if err != nil {
			return nil, err
		}
		if decision.Outcome == authorization.Declined {
			return nil, errDeclined
		}

		now := c.now()
		status := models.ExecutionCompleted
		if c.mode == SettlementAsync {
			status = models.ExecutionPending
		}
		ex := &models.Execution{
			Id:             uuid.New().String(),
			MandateId:      m.Id,
			Index:          m.ExecutionCount + 1,
			Amount:         decision.Amount,
			Currency:       m.Currency,
			Status:         status,
			IdempotencyKey: req.IdempotencyKey,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		m.UsedAmount += decision.Amount
		m.ExecutionCount++
		if status == models.ExecutionCompleted && m.IsSingleUse() {
			m.Status = models.COMPLETED
		}
		return &storage.Mutation{Mandate: m, NewExecution: ex}, nil
	})

	switch {
	case errors.Is(err, errDeclined):
		c.notifyDecision(ctx, mandateID, &Result{Status: StatusDeclined, Reason: decision.Reason})
		return &Result{Status: StatusDeclined, Reason: decision.Reason}, nil
	case errors.Is(err, storage.ErrExecutionExists):
		// Lost a race against a concurrent request with the same key; the
		// winner's committed execution is the result.
		prior, getErr := c.store.GetExecutionByIdempotencyKey(ctx, mandateID, req.IdempotencyKey)
		if getErr != nil {
			return nil, c.wrapStoreErr(getErr)
		}
		return c.priorResult(ctx, prior), nil
	case err != nil:
		return nil, c.wrapStoreErr(err)
	}

	result := &Result{Status: StatusApproved, Execution: mut.NewExecution}

	if c.mode == SettlementAsync && c.scheduler != nil {
		if err := c.scheduler.EnqueueExecution(ctx, mut.NewExecution); err != nil {
			// The approval is committed; RequeueStuckExecutions and the
			// idempotent retry path recover anything that failed to enqueue.
			slog.Error("CRITICAL: execution committed but failed to enqueue", "executionId", mut.NewExecution.Id, "error", err)
		}
	}

	c.notifyDecision(ctx, mandateID, result)
	return result, nil
}

// priorResult builds the outcome of an idempotent retry from the execution
// already committed under the request's key. A failed settlement surfaces as
// StatusFailed rather than a fresh approval. A row still pending in async
// mode is re-enqueued in case the original queue hand-off was lost;
// confirmation is idempotent, so a duplicate message is harmless.
func (c *Coordinator) priorResult(ctx context.Context, ex *models.Execution) *Result {
	if ex.Status == models.ExecutionPending && c.mode == SettlementAsync && c.scheduler != nil {
		if err := c.scheduler.EnqueueExecution(ctx, ex); err != nil {
			slog.Error("failed to re-enqueue pending execution on retry", "executionId", ex.Id, "error", err)
		}
	}
	if ex.Status == models.ExecutionFailed {
		return &Result{Status: StatusFailed, Execution: ex}
	}
	return &Result{Status: StatusApproved, Execution: ex}
}

// RequeueStuckExecutions re-enqueues executions that have sat in pending
// since before cutoff, recovering approvals whose queue hand-off was lost.
// One bad row does not stop the batch; it stays pending for the next sweep.
// Returns the number re-enqueued.
func (c *Coordinator) RequeueStuckExecutions(ctx context.Context, cutoff time.Time) (int, error) {
	if c.scheduler == nil {
		return 0, errors.New("no execution scheduler configured")
	}

	stuck, err := c.store.ListStuckExecutions(ctx, cutoff)
	if err != nil {
		return 0, c.wrapStoreErr(err)
	}

	requeued := 0
	for i := range stuck {
		if err := c.scheduler.EnqueueExecution(ctx, &stuck[i]); err != nil {
			slog.Error("failed to re-enqueue stuck execution", "executionId", stuck[i].Id, "error", err)
			continue
		}
		requeued++
	}
	return requeued, nil
}

// ConfirmExecution finalizes a pending execution after the external Payment
// Execution Service reports the outcome. A failed settlement releases the
// reserved amount; a settled one makes it permanent. Confirming an already
// finalized execution is a no-op returning the stored row.
func (c *Coordinator) ConfirmExecution(ctx context.Context, mandateID, executionID string, settled bool) (*models.Execution, error) {
	target, err := c.findExecution(ctx, mandateID, executionID)
	if err != nil {
		return nil, err
	}
	if target.Status != models.ExecutionPending {
		return target, nil
	}

	finalStatus := models.ExecutionFailed
	if settled {
		finalStatus = models.ExecutionCompleted
	}

	mut, err := c.store.MutateMandate(ctx, mandateID, func(m *models.Mandate) (*storage.Mutation, error) {
		updated := *target
		updated.Status = finalStatus
		updated.UpdatedAt = c.now()

		if !settled {
			m.UsedAmount -= target.Amount
		} else if m.Status == models.ACTIVE && m.IsSingleUse() {
			m.Status = models.COMPLETED
		}
		return &storage.Mutation{Mandate: m, FinalizedExecution: &updated}, nil
	})
	if errors.Is(err, storage.ErrExecutionNotPending) {
		// Confirmed concurrently; return whatever was committed.
		return c.findExecution(ctx, mandateID, executionID)
	}
	if err != nil {
		return nil, c.wrapStoreErr(err)
	}
	return mut.FinalizedExecution, nil
}

func (c *Coordinator) findExecution(ctx context.Context, mandateID, executionID string) (*models.Execution, error) {
	rows, err := c.store.ListExecutions(ctx, mandateID)
	if err != nil {
		return nil, c.wrapStoreErr(err)
	}
	for i := range rows {
		if rows[i].Id == executionID {
			return &rows[i], nil
		}
	}
	return nil, storage.ErrExecutionNotFound
}

// wrapStoreErr maps infrastructure timeouts onto the transient
// store-unavailable error so callers know a retry with the same idempotency
// key is safe. The caller must not assume the mutation committed.
func (c *Coordinator) wrapStoreErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", storage.ErrStoreUnavailable, err)
	}
	return err
}

func (c *Coordinator) notifyDecision(ctx context.Context, mandateID string, result *Result) {
	payload := events.PaymentDecisionPayload{
		MandateID:  mandateID,
		Status:     string(result.Status),
		ReasonCode: string(result.Reason),
	}
	if result.Execution != nil {
		payload.ExecutionID = result.Execution.Id
		payload.Amount = result.Execution.Amount
	}
	msg := events.Message{Type: events.MessageTypePaymentDecision, Payload: payload}
	if err := c.publisher.Publish(ctx, msg); err != nil {
		slog.Error("failed to publish payment decision", "mandateId", mandateID, "error", err)
	}
}
