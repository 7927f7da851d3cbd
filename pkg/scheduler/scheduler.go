package scheduler

import (
	"context"

	"github.com/payos/mandate-engine/pkg/models"
)

// ExecutionScheduler defines the interface for handing an approved pending
// execution to the external Payment Execution Service.
type ExecutionScheduler interface {
	// EnqueueExecution enqueues an execution for asynchronous settlement.
	EnqueueExecution(ctx context.Context, ex *models.Execution) error
}
