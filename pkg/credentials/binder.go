// Package credentials validates and binds activation credentials to mandates.
// Cryptographic proof verification is delegated to an external verifier; the
// binder fails closed when verification cannot be confirmed.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/payos/mandate-engine/pkg/models"
)

// ErrCredentialMismatch is returned when the credential does not reference
// the mandate and its payer.
var ErrCredentialMismatch = errors.New("credential does not match mandate")

// ErrCredentialUnverified is returned when the external verifier did not
// confirm the credential's proof. Absence of confirmation is a rejection,
// never a silent success.
var ErrCredentialUnverified = errors.New("credential could not be verified")

// ErrMandateNotDraft is returned when binding is attempted on a mandate that
// has already left draft.
var ErrMandateNotDraft = errors.New("mandate is not in draft status")

// Verifier asserts the cryptographic validity of a credential's proof.
// Implemented by an external verification service.
type Verifier interface {
	// Verify reports whether the credential's proof is valid.
	Verify(ctx context.Context, cred *models.Credential) (bool, error)
}

// Binder validates the structural integrity of a credential and attaches it
// to a draft mandate.
type Binder struct {
	verifier Verifier
}

// NewBinder creates a Binder backed by the given verifier.
func NewBinder(verifier Verifier) *Binder {
	return &Binder{verifier: verifier}
}

// Bind returns a copy of the mandate with the credential attached, or a
// rejection. It does not persist anything; the lifecycle controller commits
// the returned mandate inside a store transaction.
func (b *Binder) Bind(ctx context.Context, m *models.Mandate, cred *models.Credential) (*models.Mandate, error) {
	if m.Status != models.DRAFT {
		return nil, fmt.Errorf("%w: mandate %s is %s", ErrMandateNotDraft, m.Id, m.Status)
	}
	if cred == nil {
		return nil, fmt.Errorf("%w: credential is required", ErrCredentialMismatch)
	}
	if cred.MandateRef != m.Id {
		return nil, fmt.Errorf("%w: credential references mandate %q", ErrCredentialMismatch, cred.MandateRef)
	}
	if cred.Subject != m.PayerId {
		return nil, fmt.Errorf("%w: credential subject %q is not the payer", ErrCredentialMismatch, cred.Subject)
	}

	ok, err := b.verifier.Verify(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCredentialUnverified, err)
	}
	if !ok {
		return nil, ErrCredentialUnverified
	}

	bound := m.Clone()
	credCopy := *cred
	bound.Credential = &credCopy
	return bound, nil
}
