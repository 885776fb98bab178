package escrowRepo

import (
	"context"
	"errors"
	"time"

	"serviflex/models"
)

// ErrNoMatch is returned when a guarded update found the payment outside the
// expected status. For Release/Refund this is how the loser of the terminal
// race learns it lost.
var ErrNoMatch = errors.New("escrow payment not in expected status")

// ErrDuplicate is returned when an insert collides with the unique
// per-engagement index.
var ErrDuplicate = errors.New("escrow payment already exists for engagement")

// EscrowRepository owns persistence for escrow payments. Every state-changing
// method is a compare-and-set on the status field; the dual-confirmation
// flag writes return the post-update document so the caller can observe both
// flags from the same atomic read-modify-write.
type EscrowRepository interface {
	Create(ctx context.Context, p *models.EscrowPayment) error
	GetByID(ctx context.Context, id string) (*models.EscrowPayment, error)
	GetByEngagement(ctx context.Context, engagementID string) (*models.EscrowPayment, error)
	ListByClient(ctx context.Context, clientID string) ([]models.EscrowPayment, error)
	ListByProfessional(ctx context.Context, professionalID string) ([]models.EscrowPayment, error)

	// MarkFunded moves pending/processing to held_in_escrow and records the
	// processor's transaction reference.
	MarkFunded(ctx context.Context, id, transactionRef string, at time.Time) (*models.EscrowPayment, error)

	// SetCompletionFlag monotonically sets one party's confirmation flag
	// while the payment is held, returning the post-update document.
	SetCompletionFlag(ctx context.Context, id string, byClient bool, at time.Time) (*models.EscrowPayment, error)

	// Release and Refund are the mutually exclusive terminal transitions out
	// of held_in_escrow. Exactly one can ever succeed for a given payment.
	Release(ctx context.Context, id string, at time.Time) (*models.EscrowPayment, error)
	Refund(ctx context.Context, id, reason string, at time.Time) (*models.EscrowPayment, error)

	// Cancel voids a payment that never reached custody.
	Cancel(ctx context.Context, id string, at time.Time) (*models.EscrowPayment, error)

	// ListAutoReleasable returns held payments whose auto-release deadline
	// has passed.
	ListAutoReleasable(ctx context.Context, now time.Time) ([]models.EscrowPayment, error)
}
