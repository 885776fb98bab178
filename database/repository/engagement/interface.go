package engagementRepo

import (
	"context"
	"errors"
	"time"

	"serviflex/models"
)

// ErrNoMatch is returned by Transition when the engagement exists but is not
// in any of the expected source statuses, and by guarded writes whose
// precondition did not hold. Callers re-read to distinguish an idempotent
// replay from an invalid transition.
var ErrNoMatch = errors.New("engagement not in expected status")

// TransitionUpdate carries the fields a status transition may stamp alongside
// the history entry. Nil fields are left untouched.
type TransitionUpdate struct {
	Change models.StatusChange

	AcceptedAt  *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	PaidAt      *time.Time
	CancelledAt *time.Time

	FinalPrice       *float64
	PayoutKey        *string
	PaymentProof     *string
	CancellationNote *string
	ArrivalLocation  *models.GeoPoint
}

// EngagementRepository owns persistence for service engagements. All status
// transitions are single compare-and-set document updates: the filter guards
// the source status and the update appends to the audit trail in the same
// atomic operation.
type EngagementRepository interface {
	Create(ctx context.Context, eng *models.ServiceEngagement) error
	GetByID(ctx context.Context, id string) (*models.ServiceEngagement, error)
	ListByClient(ctx context.Context, clientID string) ([]models.ServiceEngagement, error)
	ListByProfessional(ctx context.Context, professionalID string) ([]models.ServiceEngagement, error)

	// Transition atomically moves the engagement from one of the given source
	// statuses to upd.Change.To, appending the history entry. Returns the
	// post-transition document, or ErrNoMatch if the guard did not hold.
	Transition(ctx context.Context, id string, from []models.EngagementStatus, upd TransitionUpdate) (*models.ServiceEngagement, error)

	// MarkNotified records a one-shot notification slot (acceptance,
	// completion, reminder) at-most-once. Returns false when the slot was
	// already stamped.
	MarkNotified(ctx context.Context, id, slot string, at time.Time) (bool, error)

	// ActiveWindows projects the professional's pending/accepted/scheduled/
	// in-progress engagements on a date into booking windows for the
	// availability scheduler.
	ActiveWindows(ctx context.Context, professionalID, date string) ([]models.BookingWindow, error)

	// ListAcceptedUnreminded returns accepted engagements on the given dates
	// whose reminder has not fired yet. Used by the reminder sweep.
	ListAcceptedUnreminded(ctx context.Context, dates []string) ([]models.ServiceEngagement, error)
}
