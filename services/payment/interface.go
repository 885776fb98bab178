package payment

import "context"

// PaymentRequest is the outbound request to the external payment processor.
type PaymentRequest struct {
	PaymentID    string
	EngagementID string
	ClientID     string
	Amount       float64
	Currency     string
	Method       string // pix, credit_card, debit_card
	Description  string
}

// IntentRef is the processor's handle for an initiated payment. Reference is
// what later funding callbacks carry.
type IntentRef struct {
	Reference    string
	ClientSecret string
}

// Processor is the narrow contract with the external payment processor. Only
// payment initiation is outbound; funding confirmation arrives as a callback
// into the escrow engine.
type Processor interface {
	InitiatePayment(ctx context.Context, req PaymentRequest) (*IntentRef, error)
}
