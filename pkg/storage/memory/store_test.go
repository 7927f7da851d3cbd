package memory

import (
	"context"
	"testing"
	"time"

	"github.com/payos/mandate-engine/pkg/models"
	"github.com/payos/mandate-engine/pkg/storage"
	"github.com/stretchr/testify/assert"
)

func newMandate() *models.Mandate {
	return &models.Mandate{
		Type:             models.PAYMENT,
		PayerId:          "payer1",
		PayeeId:          "payee1",
		AuthorizedAmount: 1000,
		Currency:         "USD",
	}
}

func TestCreateAndGetMandate(t *testing.T) {
	ctx := context.Background()
	store := New()

	created, err := store.CreateMandate(ctx, newMandate())
	assert.NoError(t, err)
	assert.NotEmpty(t, created.Id)
	assert.Equal(t, models.DRAFT, created.Status)
	assert.Equal(t, int64(1), created.Version)

	got, err := store.GetMandate(ctx, created.Id)
	assert.NoError(t, err)
	assert.Equal(t, created.Id, got.Id)

	_, err = store.GetMandate(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrMandateNotFound)
}

func TestGetMandate_ReturnsIsolatedCopy(t *testing.T) {
	ctx := context.Background()
	store := New()

	created, err := store.CreateMandate(ctx, newMandate())
	assert.NoError(t, err)

	got, err := store.GetMandate(ctx, created.Id)
	assert.NoError(t, err)
	got.Status = models.REVOKED
	got.Metadata = map[string]string{"hacked": "true"}

	stored, err := store.GetMandate(ctx, created.Id)
	assert.NoError(t, err)
	assert.Equal(t, models.DRAFT, stored.Status)
	assert.Empty(t, stored.Metadata)
}

func TestMutateMandate(t *testing.T) {
	ctx := context.Background()

	t.Run("Commits And Bumps Version", func(t *testing.T) {
		store := New()
		created, err := store.CreateMandate(ctx, newMandate())
		assert.NoError(t, err)

		mut, err := store.MutateMandate(ctx, created.Id, func(m *models.Mandate) (*storage.Mutation, error) {
			m.Status = models.ACTIVE
			return &storage.Mutation{Mandate: m}, nil
		})

		assert.NoError(t, err)
		assert.Equal(t, int64(2), mut.Mandate.Version)

		stored, err := store.GetMandate(ctx, created.Id)
		assert.NoError(t, err)
		assert.Equal(t, models.ACTIVE, stored.Status)
	})

	t.Run("Aborted Mutation Writes Nothing", func(t *testing.T) {
		store := New()
		created, err := store.CreateMandate(ctx, newMandate())
		assert.NoError(t, err)

		_, err = store.MutateMandate(ctx, created.Id, func(m *models.Mandate) (*storage.Mutation, error) {
			m.Status = models.ACTIVE
			return nil, assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)

		stored, err := store.GetMandate(ctx, created.Id)
		assert.NoError(t, err)
		assert.Equal(t, models.DRAFT, stored.Status)
		assert.Equal(t, int64(1), stored.Version)
	})

	t.Run("Unknown Mandate", func(t *testing.T) {
		store := New()
		_, err := store.MutateMandate(ctx, "missing", func(m *models.Mandate) (*storage.Mutation, error) {
			return &storage.Mutation{Mandate: m}, nil
		})
		assert.ErrorIs(t, err, storage.ErrMandateNotFound)
	})

	t.Run("Rejects Duplicate Idempotency Key", func(t *testing.T) {
		store := New()
		created, err := store.CreateMandate(ctx, newMandate())
		assert.NoError(t, err)

		commit := func() (*storage.Mutation, error) {
			return store.MutateMandate(ctx, created.Id, func(m *models.Mandate) (*storage.Mutation, error) {
				m.UsedAmount += 100
				return &storage.Mutation{Mandate: m, NewExecution: &models.Execution{
					Id: "ex1", MandateId: m.Id, Index: m.ExecutionCount + 1,
					Amount: 100, Currency: "USD", Status: models.ExecutionCompleted,
					IdempotencyKey: "key1",
				}}, nil
			})
		}

		_, err = commit()
		assert.NoError(t, err)

		_, err = commit()
		assert.ErrorIs(t, err, storage.ErrExecutionExists)

		stored, err := store.GetMandate(ctx, created.Id)
		assert.NoError(t, err)
		assert.Equal(t, int64(100), stored.UsedAmount)
	})

	t.Run("Finalize Requires Pending", func(t *testing.T) {
		store := New()
		created, err := store.CreateMandate(ctx, newMandate())
		assert.NoError(t, err)

		pending := &models.Execution{
			Id: "ex1", MandateId: created.Id, Index: 1, Amount: 100,
			Currency: "USD", Status: models.ExecutionPending, IdempotencyKey: "key1",
		}
		_, err = store.MutateMandate(ctx, created.Id, func(m *models.Mandate) (*storage.Mutation, error) {
			return &storage.Mutation{Mandate: m, NewExecution: pending}, nil
		})
		assert.NoError(t, err)

		finalize := func(status models.ExecutionStatus) error {
			_, err := store.MutateMandate(ctx, created.Id, func(m *models.Mandate) (*storage.Mutation, error) {
				final := *pending
				final.Status = status
				return &storage.Mutation{Mandate: m, FinalizedExecution: &final}, nil
			})
			return err
		}

		assert.NoError(t, finalize(models.ExecutionCompleted))
		assert.ErrorIs(t, finalize(models.ExecutionFailed), storage.ErrExecutionNotPending)

		rows, err := store.ListExecutions(ctx, created.Id)
		assert.NoError(t, err)
		assert.Len(t, rows, 1)
		assert.Equal(t, models.ExecutionCompleted, rows[0].Status)
	})
}

func TestExecutionLookups(t *testing.T) {
	ctx := context.Background()
	store := New()
	created, err := store.CreateMandate(ctx, newMandate())
	assert.NoError(t, err)

	for i, key := range []string{"key-b", "key-a"} {
		idx := int64(i + 1)
		_, err = store.MutateMandate(ctx, created.Id, func(m *models.Mandate) (*storage.Mutation, error) {
			return &storage.Mutation{Mandate: m, NewExecution: &models.Execution{
				Id: key, MandateId: m.Id, Index: idx, Amount: 100,
				Currency: "USD", Status: models.ExecutionCompleted, IdempotencyKey: key,
			}}, nil
		})
		assert.NoError(t, err)
	}

	rows, err := store.ListExecutions(ctx, created.Id)
	assert.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].Index)
	assert.Equal(t, int64(2), rows[1].Index)

	ex, err := store.GetExecutionByIdempotencyKey(ctx, created.Id, "key-a")
	assert.NoError(t, err)
	assert.Equal(t, "key-a", ex.Id)

	_, err = store.GetExecutionByIdempotencyKey(ctx, created.Id, "missing")
	assert.ErrorIs(t, err, storage.ErrExecutionNotFound)
}

func TestListStuckExecutions(t *testing.T) {
	ctx := context.Background()
	store := New()
	now := time.Now()

	mk := func(id string, status models.ExecutionStatus, createdAt time.Time) {
		created, err := store.CreateMandate(ctx, newMandate())
		assert.NoError(t, err)
		_, err = store.MutateMandate(ctx, created.Id, func(m *models.Mandate) (*storage.Mutation, error) {
			return &storage.Mutation{Mandate: m, NewExecution: &models.Execution{
				Id: id, MandateId: m.Id, Index: 1, Amount: 100,
				Currency: "USD", Status: status, IdempotencyKey: id,
				CreatedAt: createdAt,
			}}, nil
		})
		assert.NoError(t, err)
	}

	mk("stuck", models.ExecutionPending, now.Add(-time.Hour))
	mk("fresh", models.ExecutionPending, now.Add(time.Hour))
	mk("done", models.ExecutionCompleted, now.Add(-time.Hour))
	mk("dead", models.ExecutionFailed, now.Add(-time.Hour))

	stuck, err := store.ListStuckExecutions(ctx, now)
	assert.NoError(t, err)
	assert.Len(t, stuck, 1)
	assert.Equal(t, "stuck", stuck[0].Id)
}

func TestListExpiredCandidates(t *testing.T) {
	ctx := context.Background()
	store := New()
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	mk := func(status models.MandateStatus, validUntil *time.Time) *models.Mandate {
		m := newMandate()
		m.ValidUntil = validUntil
		created, err := store.CreateMandate(ctx, m)
		assert.NoError(t, err)
		_, err = store.MutateMandate(ctx, created.Id, func(m *models.Mandate) (*storage.Mutation, error) {
			m.Status = status
			return &storage.Mutation{Mandate: m}, nil
		})
		assert.NoError(t, err)
		return created
	}

	lapsed := mk(models.ACTIVE, &past)
	mk(models.ACTIVE, &future)
	mk(models.ACTIVE, nil)
	mk(models.REVOKED, &past)

	candidates, err := store.ListExpiredCandidates(ctx, now)
	assert.NoError(t, err)
	assert.Len(t, candidates, 1)
	assert.Equal(t, lapsed.Id, candidates[0].Id)
}

func TestListMandatesByPayerID(t *testing.T) {
	ctx := context.Background()
	store := New()

	first, err := store.CreateMandate(ctx, newMandate())
	assert.NoError(t, err)
	other := newMandate()
	other.PayerId = "payer2"
	_, err = store.CreateMandate(ctx, other)
	assert.NoError(t, err)

	mandates, err := store.ListMandatesByPayerID(ctx, "payer1")
	assert.NoError(t, err)
	assert.Len(t, mandates, 1)
	assert.Equal(t, first.Id, mandates[0].Id)
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	store := New()

	assert.NoError(t, store.AddSession(ctx, "s1"))
	assert.NoError(t, store.AddSession(ctx, "s2"))

	sessions, err := store.GetAllSessions(ctx)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "s2"}, sessions)

	assert.NoError(t, store.RemoveSession(ctx, "s1"))
	sessions, err = store.GetAllSessions(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []string{"s2"}, sessions)
}
