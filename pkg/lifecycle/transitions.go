package lifecycle

import (
	"fmt"

	"github.com/payos/mandate-engine/pkg/models"
)

// Transition names a lifecycle operation on a mandate.
type Transition string

const (
	TransitionActivate Transition = "activate"
	TransitionSuspend  Transition = "suspend"
	TransitionResume   Transition = "resume"
	TransitionRevoke   Transition = "revoke"
	TransitionComplete Transition = "complete"
	TransitionExpire   Transition = "expire"
)

// allowedFrom is the state machine: which statuses each transition may leave.
var allowedFrom = map[Transition][]models.MandateStatus{
	TransitionActivate: {models.DRAFT},
	TransitionSuspend:  {models.ACTIVE},
	TransitionResume:   {models.SUSPENDED},
	TransitionRevoke:   {models.ACTIVE, models.SUSPENDED},
	TransitionComplete: {models.ACTIVE},
	TransitionExpire:   {models.ACTIVE, models.SUSPENDED},
}

// target is the status each transition lands in.
var target = map[Transition]models.MandateStatus{
	TransitionActivate: models.ACTIVE,
	TransitionSuspend:  models.SUSPENDED,
	TransitionResume:   models.ACTIVE,
	TransitionRevoke:   models.REVOKED,
	TransitionComplete: models.COMPLETED,
	TransitionExpire:   models.EXPIRED,
}

// InvalidTransitionError is returned when a transition is attempted from a
// terminal or incompatible status. The mandate is left untouched.
type InvalidTransitionError struct {
	MandateId  string
	From       models.MandateStatus
	Transition Transition
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: cannot %s mandate %s from status %s", e.Transition, e.MandateId, e.From)
}

// checkTransition returns the target status, or an InvalidTransitionError if
// the mandate's current status does not permit the transition.
func checkTransition(m *models.Mandate, t Transition) (models.MandateStatus, error) {
	for _, from := range allowedFrom[t] {
		if m.Status == from {
			return target[t], nil
		}
	}
	return "", &InvalidTransitionError{MandateId: m.Id, From: m.Status, Transition: t}
}
