// Package lifecycle orchestrates mandate state transitions. Every transition
// is a single store transaction; the controller never mutates a mandate
// outside Store.MutateMandate.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/payos/mandate-engine/pkg/credentials"
	"github.com/payos/mandate-engine/pkg/events"
	"github.com/payos/mandate-engine/pkg/models"
	"github.com/payos/mandate-engine/pkg/storage"
)

// ErrInvalidMandate is returned when creation parameters fail validation.
var ErrInvalidMandate = errors.New("invalid mandate")

// MetadataSuspensionReason records why a mandate was suspended.
const MetadataSuspensionReason = "suspension_reason"

// CreateParams are the caller-supplied fields of a new mandate.
type CreateParams struct {
	Type             models.MandateType
	ParentId         string
	PayerId          string
	PayeeId          string
	AuthorizedAmount int64
	Currency         string
	ValidUntil       *time.Time
	Metadata         map[string]string
}

// Controller drives the mandate state machine.
type Controller struct {
	store     storage.MandateStore
	binder    *credentials.Binder
	publisher events.Publisher
	now       func() time.Time
}

// NewController creates a Controller. publisher may be nil when agent
// notifications are not wired (lambdas, tests).
func NewController(store storage.MandateStore, binder *credentials.Binder, publisher events.Publisher, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = &events.NoOpPublisher{}
	}
	return &Controller{store: store, binder: binder, publisher: publisher, now: now}
}

// Create validates the parameters and persists a new draft mandate.
func (c *Controller) Create(ctx context.Context, params CreateParams) (*models.Mandate, error) {
	switch params.Type {
	case models.INTENT, models.CART, models.PAYMENT:
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidMandate, params.Type)
	}
	if params.AuthorizedAmount < 0 {
		return nil, fmt.Errorf("%w: authorized amount must not be negative", ErrInvalidMandate)
	}
	if params.Currency == "" {
		return nil, fmt.Errorf("%w: currency is required", ErrInvalidMandate)
	}
	if params.PayerId == "" || params.PayeeId == "" {
		return nil, fmt.Errorf("%w: payer and payee are required", ErrInvalidMandate)
	}
	if params.ParentId != "" {
		if params.Type == models.INTENT {
			return nil, fmt.Errorf("%w: intent mandates cannot have a parent", ErrInvalidMandate)
		}
		// A child may only reference an already-persisted parent, so chains
		// are acyclic by construction.
		if _, err := c.store.GetMandate(ctx, params.ParentId); err != nil {
			return nil, fmt.Errorf("%w: parent mandate: %v", ErrInvalidMandate, err)
		}
	}

	m := &models.Mandate{
		Type:             params.Type,
		ParentId:         params.ParentId,
		PayerId:          params.PayerId,
		PayeeId:          params.PayeeId,
		AuthorizedAmount: params.AuthorizedAmount,
		Currency:         params.Currency,
		ValidUntil:       params.ValidUntil,
		Metadata:         params.Metadata,
	}
	created, err := c.store.CreateMandate(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create mandate: %w", err)
	}
	return created, nil
}

// Activate binds the credential to a draft mandate and moves it to active.
func (c *Controller) Activate(ctx context.Context, id string, cred *models.Credential) (*models.Mandate, error) {
	return c.transition(ctx, id, TransitionActivate, func(m *models.Mandate) error {
		bound, err := c.binder.Bind(ctx, m, cred)
		if err != nil {
			return err
		}
		m.Credential = bound.Credential
		return nil
	})
}

// Suspend moves an active mandate to suspended. Reversible.
func (c *Controller) Suspend(ctx context.Context, id, reason string) (*models.Mandate, error) {
	return c.transition(ctx, id, TransitionSuspend, func(m *models.Mandate) error {
		if reason != "" {
			if m.Metadata == nil {
				m.Metadata = map[string]string{}
			}
			m.Metadata[MetadataSuspensionReason] = reason
		}
		return nil
	})
}

// Resume moves a suspended mandate back to active.
func (c *Controller) Resume(ctx context.Context, id string) (*models.Mandate, error) {
	return c.transition(ctx, id, TransitionResume, func(m *models.Mandate) error {
		delete(m.Metadata, MetadataSuspensionReason)
		return nil
	})
}

// Revoke irreversibly terminates an active or suspended mandate.
func (c *Controller) Revoke(ctx context.Context, id string) (*models.Mandate, error) {
	return c.transition(ctx, id, TransitionRevoke, nil)
}

// Complete marks an active mandate's purpose as fulfilled.
func (c *Controller) Complete(ctx context.Context, id string) (*models.Mandate, error) {
	return c.transition(ctx, id, TransitionComplete, nil)
}

// errAlreadyTerminal aborts an expire transaction without surfacing an error.
var errAlreadyTerminal = errors.New("mandate already terminal")

// Expire moves the mandate to expired. Idempotent: expiring a mandate that
// is already in a terminal state is a no-op, not an error.
func (c *Controller) Expire(ctx context.Context, id string) (*models.Mandate, error) {
	mut, err := c.store.MutateMandate(ctx, id, func(m *models.Mandate) (*storage.Mutation, error) {
		if m.Status.IsTerminal() {
			return nil, errAlreadyTerminal
		}
		next, err := checkTransition(m, TransitionExpire)
		if err != nil {
			return nil, err
		}
		m.Status = next
		return &storage.Mutation{Mandate: m}, nil
	})
	if errors.Is(err, errAlreadyTerminal) {
		return c.store.GetMandate(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	c.notify(ctx, mut.Mandate)
	return mut.Mandate, nil
}

// ExpireSweep expires every non-terminal mandate whose valid_until is before
// now and returns the number of mandates transitioned. Safe to call on a
// schedule.
func (c *Controller) ExpireSweep(ctx context.Context, now time.Time) (int, error) {
	candidates, err := c.store.ListExpiredCandidates(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list expiry candidates: %w", err)
	}

	expired := 0
	for _, m := range candidates {
		if _, err := c.Expire(ctx, m.Id); err != nil {
			var ite *InvalidTransitionError
			if errors.As(err, &ite) {
				// Raced with another transition; the sweep will see it again
				// next run if it is still expirable.
				continue
			}
			return expired, fmt.Errorf("failed to expire mandate %s: %w", m.Id, err)
		}
		expired++
	}
	return expired, nil
}

// transition applies the state machine inside a single store transaction.
// mutate, when non-nil, runs against the snapshot after the transition check.
func (c *Controller) transition(ctx context.Context, id string, t Transition, mutate func(*models.Mandate) error) (*models.Mandate, error) {
	mut, err := c.store.MutateMandate(ctx, id, func(m *models.Mandate) (*storage.Mutation, error) {
		next, err := checkTransition(m, t)
		if err != nil {
			return nil, err
		}
		if mutate != nil {
			if err := mutate(m); err != nil {
				return nil, err
			}
		}
		m.Status = next
		return &storage.Mutation{Mandate: m}, nil
	})
	if err != nil {
		return nil, err
	}
	c.notify(ctx, mut.Mandate)
	return mut.Mandate, nil
}

func (c *Controller) notify(ctx context.Context, m *models.Mandate) {
	msg := events.Message{
		Type: events.MessageTypeMandateUpdate,
		Payload: events.MandateUpdatePayload{
			MandateID: m.Id,
			PayerID:   m.PayerId,
			Status:    string(m.Status),
		},
	}
	if err := c.publisher.Publish(ctx, msg); err != nil {
		slog.Error("failed to publish mandate update", "mandateId", m.Id, "error", err)
	}
}
