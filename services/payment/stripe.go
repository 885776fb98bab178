package payment

import (
	"context"
	"fmt"
	"math"

	"serviflex/utils"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"go.uber.org/zap"
)

// StripeProcessor initiates payments as Stripe PaymentIntents. The global
// stripe.Key is set once in main from config.
type StripeProcessor struct{}

// NewStripeProcessor returns the production payment processor client.
func NewStripeProcessor() *StripeProcessor {
	return &StripeProcessor{}
}

// InitiatePayment creates a PaymentIntent for the escrow amount and returns
// its id as the transaction reference.
func (p *StripeProcessor) InitiatePayment(ctx context.Context, req PaymentRequest) (*IntentRef, error) {
	logger := utils.GetLogger()

	currency := req.Currency
	if currency == "" {
		currency = "brl"
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(math.Round(req.Amount * 100))),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Description: stripe.String(req.Description),
	}
	params.Context = ctx
	params.AddMetadata("payment_id", req.PaymentID)
	params.AddMetadata("engagement_id", req.EngagementID)
	params.AddMetadata("client_id", req.ClientID)
	params.AddMetadata("method", req.Method)

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	logger.Info("payment intent created",
		zap.String("paymentID", req.PaymentID),
		zap.String("intentID", intent.ID))

	return &IntentRef{
		Reference:    intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}
