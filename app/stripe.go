package app

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/paymentintent"
)

// InitStripe wires the Stripe API key for the package-level SDK clients.
func InitStripe(secretKey string) {
	stripe.Key = secretKey
}

// CheckoutParams describes the one-time payment session to create.
type CheckoutParams struct {
	Currency    string
	ProductName string
	UnitAmount  int64
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// ProviderSession is the slice of a provider checkout session the handlers
// need: ids for correlation, metadata for the webhook round-trip.
type ProviderSession struct {
	ID            string
	URL           string
	PaymentIntent string
	AmountTotal   int64
	Metadata      map[string]string
}

// PaymentProvider is the seam between the handlers and Stripe. Tests swap
// in a mock; production uses the stripe-go implementation below.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*ProviderSession, error)
	SessionsByPaymentIntent(ctx context.Context, paymentIntentID string) ([]ProviderSession, error)
	PaymentIntentMetadata(ctx context.Context, id string) (map[string]string, error)
	UpdatePaymentIntentMetadata(ctx context.Context, id string, metadata map[string]string) error
}

type stripeProvider struct{}

// NewStripeProvider returns the stripe-go backed PaymentProvider.
func NewStripeProvider() PaymentProvider {
	return stripeProvider{}
}

func (stripeProvider) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*ProviderSession, error) {
	params := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		PaymentMethodTypes: stripe.StringSlice([]string{"card", "paypal"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(p.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(p.ProductName),
					},
					UnitAmount: stripe.Int64(p.UnitAmount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := session.New(params)
	if err != nil {
		return nil, err
	}
	return providerSessionFromStripe(sess), nil
}

func (stripeProvider) SessionsByPaymentIntent(ctx context.Context, paymentIntentID string) ([]ProviderSession, error) {
	params := &stripe.CheckoutSessionListParams{
		ListParams:    stripe.ListParams{Context: ctx, Limit: stripe.Int64(1)},
		PaymentIntent: stripe.String(paymentIntentID),
	}

	var out []ProviderSession
	iter := session.List(params)
	for iter.Next() {
		out = append(out, *providerSessionFromStripe(iter.CheckoutSession()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list sessions for intent %s: %w", paymentIntentID, err)
	}
	return out, nil
}

func (stripeProvider) PaymentIntentMetadata(ctx context.Context, id string) (map[string]string, error) {
	intent, err := paymentintent.Get(id, &stripe.PaymentIntentParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return nil, fmt.Errorf("get payment intent %s: %w", id, err)
	}
	return intent.Metadata, nil
}

func (stripeProvider) UpdatePaymentIntentMetadata(ctx context.Context, id string, metadata map[string]string) error {
	params := &stripe.PaymentIntentParams{Params: stripe.Params{Context: ctx}}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	if _, err := paymentintent.Update(id, params); err != nil {
		return fmt.Errorf("update payment intent %s: %w", id, err)
	}
	return nil
}

func providerSessionFromStripe(s *stripe.CheckoutSession) *ProviderSession {
	out := &ProviderSession{
		ID:          s.ID,
		URL:         s.URL,
		AmountTotal: s.AmountTotal,
		Metadata:    s.Metadata,
	}
	if s.PaymentIntent != nil {
		out.PaymentIntent = s.PaymentIntent.ID
	}
	return out
}
