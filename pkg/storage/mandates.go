package storage

import (
	"context"
	"time"

	"github.com/payos/mandate-engine/pkg/models"
)

// Mutation is the result of a transactional mandate mutation. Mandate is the
// updated record; NewExecution, when set, is appended atomically with it;
// FinalizedExecution, when set, is an existing pending row whose status is
// updated atomically with it.
type Mutation struct {
	Mandate            *models.Mandate
	NewExecution       *models.Execution
	FinalizedExecution *models.Execution
}

// MutateFunc is applied to the current mandate snapshot inside a store
// transaction. The snapshot is a private copy; returning an error aborts the
// transaction with no mutation.
type MutateFunc func(m *models.Mandate) (*Mutation, error)

// MandateReader defines the interface for reading mandate data.
type MandateReader interface {
	// GetMandate retrieves a mandate by its ID.
	GetMandate(ctx context.Context, id string) (*models.Mandate, error)

	// ListExpiredCandidates retrieves non-terminal mandates whose valid_until
	// is before now. Used by the expiry sweep.
	ListExpiredCandidates(ctx context.Context, now time.Time) ([]models.Mandate, error)

	// ListMandatesByPayerID retrieves all mandates granted by a payer.
	ListMandatesByPayerID(ctx context.Context, payerID string) ([]models.Mandate, error)
}

// MandateWriter defines the interface for creating and mutating mandates.
type MandateWriter interface {
	// CreateMandate persists a new mandate in draft status and returns it
	// with server-assigned fields populated.
	CreateMandate(ctx context.Context, m *models.Mandate) (*models.Mandate, error)

	// MutateMandate applies fn to the current mandate snapshot atomically.
	// Concurrent mutations of the same mandate are serialized: the committed
	// state is always consistent with some total order of the callers.
	MutateMandate(ctx context.Context, id string, fn MutateFunc) (*Mutation, error)
}

// MandateStore combines the reader and writer interfaces.
type MandateStore interface {
	MandateReader
	MandateWriter
}
