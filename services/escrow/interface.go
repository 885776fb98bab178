package escrow

import (
	"context"

	"serviflex/models"
)

// Policy carries the platform escrow rules. Values come from config at wiring
// time so tests can pin their own.
type Policy struct {
	FeePercent      float64
	AutoReleaseDays int
	MinAmount       float64
	MaxAmount       float64
}

// OpenRequest describes a new escrow hold for an engagement.
type OpenRequest struct {
	EngagementID   string  `json:"engagementId" binding:"required"`
	ClientID       string  `json:"clientId" binding:"required"`
	ProfessionalID string  `json:"professionalId" binding:"required"`
	Amount         float64 `json:"amount" binding:"required"`
	Currency       string  `json:"currency"`
	PaymentMethod  string  `json:"paymentMethod"`
}

// EscrowService manages the hold-and-release money flow between a client and
// a professional.
type EscrowService interface {
	// Open creates the escrow record and initiates the payment with the
	// processor. Calling it again for the same engagement returns the
	// existing record.
	Open(ctx context.Context, req OpenRequest) (*models.EscrowPayment, error)

	// ConfirmFunding moves the payment into held once the processor reports
	// the charge settled.
	ConfirmFunding(ctx context.Context, paymentID, transactionRef string) (*models.EscrowPayment, error)

	// ConfirmCompletion records one party's sign-off on the delivered
	// service. When both parties have confirmed the funds release.
	ConfirmCompletion(ctx context.Context, paymentID, actorID string) (*models.EscrowPayment, error)

	// Release pays the professional. Allowed once both parties confirmed or
	// the auto release date has passed.
	Release(ctx context.Context, paymentID string) (*models.EscrowPayment, error)

	// Refund returns the held funds to the client.
	Refund(ctx context.Context, paymentID, reason string) (*models.EscrowPayment, error)

	// Cancel aborts an escrow that was never funded.
	Cancel(ctx context.Context, paymentID string) (*models.EscrowPayment, error)

	GetByID(ctx context.Context, paymentID string) (*models.EscrowPayment, error)
	GetByEngagement(ctx context.Context, engagementID string) (*models.EscrowPayment, error)
	ListByUser(ctx context.Context, userID, role string) ([]models.EscrowPayment, error)

	// SweepAutoRelease releases every held payment whose auto release date
	// has passed. Returns how many were released.
	SweepAutoRelease(ctx context.Context) (int, error)
}
