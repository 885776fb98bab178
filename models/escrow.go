package models

import "time"

// EscrowStatus enumerates the custody states of an escrow payment.
type EscrowStatus string

const (
	EscrowPending    EscrowStatus = "pending"
	EscrowProcessing EscrowStatus = "processing"
	EscrowHeld       EscrowStatus = "held_in_escrow"
	EscrowReleased   EscrowStatus = "released"
	EscrowRefunded   EscrowStatus = "refunded"
	EscrowCancelled  EscrowStatus = "cancelled"
)

// Terminal reports whether s admits no further transitions.
func (s EscrowStatus) Terminal() bool {
	return s == EscrowReleased || s == EscrowRefunded || s == EscrowCancelled
}

// EscrowPayment is the custody record for the money tied to exactly one
// engagement. PlatformFeeAmount + ProfessionalAmount == Amount always holds:
// the fee is rounded first and the professional receives the remainder.
type EscrowPayment struct {
	ID           string `bson:"id" json:"id"`
	EngagementID string `bson:"engagement_id" json:"engagementId"`

	ClientID       string `bson:"client_id" json:"clientId"`
	ProfessionalID string `bson:"professional_id" json:"professionalId"`

	Amount                float64 `bson:"amount" json:"amount"`
	PlatformFeePercentage float64 `bson:"platform_fee_percentage" json:"platformFeePercentage"`
	PlatformFeeAmount     float64 `bson:"platform_fee_amount" json:"platformFeeAmount"`
	ProfessionalAmount    float64 `bson:"professional_amount" json:"professionalAmount"`
	Currency              string  `bson:"currency,omitempty" json:"currency,omitempty"`

	Status        EscrowStatus `bson:"status" json:"status"`
	PaymentMethod string       `bson:"payment_method" json:"paymentMethod"`
	// TransactionRef is the external processor's reference; repeated
	// ConfirmFunding calls carrying the same ref are no-ops.
	TransactionRef string `bson:"transaction_ref,omitempty" json:"transactionRef,omitempty"`

	// Completion flags are monotonic: once true they are never reset.
	CompletedByProfessional bool `bson:"completed_by_professional" json:"serviceCompletedByProfessional"`
	CompletedByClient       bool `bson:"completed_by_client" json:"serviceCompletedByClient"`

	AutoReleaseDate time.Time `bson:"auto_release_date" json:"autoReleaseDate"`

	RefundReason string `bson:"refund_reason,omitempty" json:"refundReason,omitempty"`

	CreatedAt  time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `bson:"updated_at" json:"updatedAt"`
	FundedAt   *time.Time `bson:"funded_at,omitempty" json:"fundedAt,omitempty"`
	ReleasedAt *time.Time `bson:"released_at,omitempty" json:"releasedAt,omitempty"`
	RefundedAt *time.Time `bson:"refunded_at,omitempty" json:"refundedAt,omitempty"`
}

// BothConfirmed reports whether client and professional have both confirmed
// service completion.
func (p *EscrowPayment) BothConfirmed() bool {
	return p.CompletedByClient && p.CompletedByProfessional
}
