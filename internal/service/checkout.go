package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"

	"tourbook/internal/model"
)

// CheckoutRequest describes a single-trip purchase handed to the payment
// provider.
type CheckoutRequest struct {
	TripID        string
	TripName      string
	TripSummary   string
	AmountCents   int64
	Currency      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// CheckoutCompleted is the verified outcome of a provider payment event.
type CheckoutCompleted struct {
	TripID        string
	CustomerEmail string
	AmountCents   int64
}

// CheckoutProvider creates checkout sessions and verifies signed payment
// events. Fulfillment only ever happens from a verified event; redirect
// parameters are never trusted.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, req CheckoutRequest) (*model.CheckoutSession, error)
	// VerifyEvent authenticates a webhook payload against its signature.
	// Events the core does not care about return (nil, nil).
	VerifyEvent(payload []byte, signature string) (*CheckoutCompleted, error)
}

type stripeProvider struct {
	webhookSecret string
}

// NewStripeProvider configures the Stripe SDK and returns a CheckoutProvider
// backed by Stripe Checkout.
func NewStripeProvider(apiKey, webhookSecret string) CheckoutProvider {
	stripe.Key = apiKey
	return &stripeProvider{webhookSecret: webhookSecret}
}

func (p *stripeProvider) CreateSession(ctx context.Context, req CheckoutRequest) (*model.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		CustomerEmail:     stripe.String(req.CustomerEmail),
		ClientReferenceID: stripe.String(req.TripID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(req.TripName + " Tour"),
						Description: stripe.String(req.TripSummary),
					},
				},
			},
		},
	}
	params.Context = ctx

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &model.CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (p *stripeProvider) VerifyEvent(payload []byte, signature string) (*CheckoutCompleted, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}
	if event.Type != "checkout.session.completed" {
		return nil, nil
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session event: %w", err)
	}

	email := s.CustomerEmail
	if email == "" && s.CustomerDetails != nil {
		email = s.CustomerDetails.Email
	}
	return &CheckoutCompleted{
		TripID:        s.ClientReferenceID,
		CustomerEmail: email,
		AmountCents:   s.AmountTotal,
	}, nil
}
