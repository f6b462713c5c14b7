package adapter

import "context"

// CreatedPayment is the gateway's view of a hosted-checkout payment.
type CreatedPayment struct {
	ID              string
	Status          string
	AmountKopeks    int64
	ConfirmationURL string
	Metadata        map[string]string
	Paid            bool
}

// PaymentGateway wraps the payment processor's hosted-checkout API.
type PaymentGateway interface {
	// CreatePayment submits a capture=true checkout request. Every call uses a
	// fresh idempotency key so repeated user taps create distinct payments.
	CreatePayment(ctx context.Context, amountKopeks int64, description, returnURL string, metadata map[string]string) (*CreatedPayment, error)
	GetPayment(ctx context.Context, paymentID string) (*CreatedPayment, error)
	Name() string
}
