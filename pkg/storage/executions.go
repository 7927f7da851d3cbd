package storage

import (
	"context"
	"time"

	"github.com/payos/mandate-engine/pkg/models"
)

// ExecutionStore defines the interface for reading a mandate's execution
// history. Executions are only ever written through MandateWriter.MutateMandate
// so that the usage counters and the execution rows move together.
type ExecutionStore interface {
	// ListExecutions retrieves all executions for a mandate, ordered by index.
	ListExecutions(ctx context.Context, mandateID string) ([]models.Execution, error)

	// GetExecutionByIdempotencyKey retrieves the execution committed under the
	// given idempotency key, or ErrExecutionNotFound.
	GetExecutionByIdempotencyKey(ctx context.Context, mandateID, key string) (*models.Execution, error)

	// ListStuckExecutions retrieves executions, across all mandates, that have
	// sat in pending since before cutoff. Used by the requeue sweep to recover
	// approvals whose queue hand-off was lost.
	ListStuckExecutions(ctx context.Context, cutoff time.Time) ([]models.Execution, error)
}
