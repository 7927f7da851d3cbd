// Package memory provides an in-memory Storage implementation. It backs the
// local development mode and the concurrency tests; the production store is
// DynamoDB.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/payos/mandate-engine/pkg/models"
	"github.com/payos/mandate-engine/pkg/storage"
)

// Store implements the Storage interface with process-local maps. Mutations
// of a single mandate are serialized on a per-mandate lock, giving the same
// per-id ordering guarantee as the DynamoDB store's conditional writes.
type Store struct {
	mu         sync.RWMutex
	mandates   map[string]*models.Mandate
	executions map[string][]models.Execution
	locks      map[string]*sync.Mutex
	sessions   map[string]struct{}
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		mandates:   make(map[string]*models.Mandate),
		executions: make(map[string][]models.Execution),
		locks:      make(map[string]*sync.Mutex),
		sessions:   make(map[string]struct{}),
	}
}

// Make sure we conform to the interfaces
var _ storage.Storage = (*Store)(nil)
var _ storage.SessionManager = (*Store)(nil)

func (s *Store) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// CreateMandate persists a new mandate in draft status.
func (s *Store) CreateMandate(ctx context.Context, m *models.Mandate) (*models.Mandate, error) {
	now := time.Now()
	m.Id = uuid.New().String()
	m.Status = models.DRAFT
	m.Version = 1
	m.CreatedAt = now
	m.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mandates[m.Id] = m.Clone()
	return m, nil
}

// GetMandate retrieves a mandate by its ID.
func (s *Store) GetMandate(ctx context.Context, id string) (*models.Mandate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mandates[id]
	if !ok {
		return nil, storage.ErrMandateNotFound
	}
	return m.Clone(), nil
}

// MutateMandate applies fn to the current snapshot under the mandate's lock.
func (s *Store) MutateMandate(ctx context.Context, id string, fn storage.MutateFunc) (*storage.Mutation, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snapshot, err := s.GetMandate(ctx, id)
	if err != nil {
		return nil, err
	}

	mut, err := fn(snapshot)
	if err != nil {
		return nil, err
	}

	if mut.NewExecution != nil {
		for _, ex := range s.listExecutions(id) {
			if ex.IdempotencyKey == mut.NewExecution.IdempotencyKey {
				return nil, storage.ErrExecutionExists
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if mut.FinalizedExecution != nil {
		if err := s.finalizeExecution(id, mut.FinalizedExecution); err != nil {
			return nil, err
		}
	}

	mut.Mandate.Version++
	mut.Mandate.UpdatedAt = time.Now()
	s.mandates[id] = mut.Mandate.Clone()

	if mut.NewExecution != nil {
		s.executions[id] = append(s.executions[id], *mut.NewExecution)
	}
	return mut, nil
}

func (s *Store) finalizeExecution(mandateID string, updated *models.Execution) error {
	rows := s.executions[mandateID]
	for i := range rows {
		if rows[i].Id == updated.Id {
			if rows[i].Status != models.ExecutionPending {
				return storage.ErrExecutionNotPending
			}
			rows[i] = *updated
			return nil
		}
	}
	return storage.ErrExecutionNotFound
}

func (s *Store) listExecutions(mandateID string) []models.Execution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]models.Execution, len(s.executions[mandateID]))
	copy(rows, s.executions[mandateID])
	return rows
}

// ListExecutions retrieves all executions for a mandate, ordered by index.
func (s *Store) ListExecutions(ctx context.Context, mandateID string) ([]models.Execution, error) {
	rows := s.listExecutions(mandateID)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Index < rows[j].Index })
	return rows, nil
}

// GetExecutionByIdempotencyKey retrieves the execution committed under the key.
func (s *Store) GetExecutionByIdempotencyKey(ctx context.Context, mandateID, key string) (*models.Execution, error) {
	for _, ex := range s.listExecutions(mandateID) {
		if ex.IdempotencyKey == key {
			row := ex
			return &row, nil
		}
	}
	return nil, storage.ErrExecutionNotFound
}

// ListStuckExecutions retrieves pending executions created before cutoff.
func (s *Store) ListStuckExecutions(ctx context.Context, cutoff time.Time) ([]models.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Execution
	for _, rows := range s.executions {
		for _, ex := range rows {
			if ex.Status == models.ExecutionPending && ex.CreatedAt.Before(cutoff) {
				out = append(out, ex)
			}
		}
	}
	return out, nil
}

// ListExpiredCandidates retrieves non-terminal mandates past their valid_until.
func (s *Store) ListExpiredCandidates(ctx context.Context, now time.Time) ([]models.Mandate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Mandate
	for _, m := range s.mandates {
		if m.Status.IsTerminal() || m.ValidUntil == nil {
			continue
		}
		if now.After(*m.ValidUntil) {
			out = append(out, *m.Clone())
		}
	}
	return out, nil
}

// ListMandatesByPayerID retrieves all mandates granted by a payer.
func (s *Store) ListMandatesByPayerID(ctx context.Context, payerID string) ([]models.Mandate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Mandate
	for _, m := range s.mandates {
		if m.PayerId == payerID {
			out = append(out, *m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// AddSession registers an agent notification session.
func (s *Store) AddSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = struct{}{}
	return nil
}

// RemoveSession drops an agent notification session.
func (s *Store) RemoveSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// GetAllSessions lists the registered agent notification sessions.
func (s *Store) GetAllSessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		out = append(out, id)
	}
	return out, nil
}
