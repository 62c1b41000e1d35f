// Package payment creates card payment intents with the payment processor.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

const Currency = "usd"

var (
	ErrNotConfigured = errors.New("payment processor not configured")
	ErrInvalidAmount = errors.New("invalid amount")
)

// IntentCreator opens a payment intent and returns the client secret the
// browser uses to confirm it.
type IntentCreator interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string) (string, error)
}

// AmountCents converts a price in dollars to integer cents.
func AmountCents(price float64) (int64, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, ErrInvalidAmount
	}
	cents := math.Round(price * 100)
	if cents < 1 {
		return 0, ErrInvalidAmount
	}
	return int64(cents), nil
}

type Stripe struct {
	api *client.API
}

func NewStripe(secretKey string) *Stripe {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Stripe{api: api}
}

func (s *Stripe) CreateIntent(ctx context.Context, amountCents int64, currency string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amountCents),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	intent, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return "", fmt.Errorf("create payment intent: %w", err)
	}
	return intent.ClientSecret, nil
}

// Disabled answers every request with ErrNotConfigured. It stands in when no
// processor key is set.
type Disabled struct{}

func (Disabled) CreateIntent(context.Context, int64, string) (string, error) {
	return "", ErrNotConfigured
}

// New returns a Stripe creator for secretKey, or Disabled when it is empty.
func New(secretKey string) IntentCreator {
	if secretKey == "" {
		return Disabled{}
	}
	return NewStripe(secretKey)
}
