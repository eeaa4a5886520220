package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Stripe refuses checkout expiries closer than this.
const stripeMinExpiry = 30 * time.Minute

type StripeProvider struct {
	api *client.API
}

func NewStripeProvider(secretKey string) *StripeProvider {
	return &StripeProvider{api: client.New(secretKey, nil)}
}

func (p *StripeProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(strconv.FormatUint(uint64(req.BookingID), 10)),
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	if !req.ExpiresAt.IsZero() && time.Until(req.ExpiresAt) >= stripeMinExpiry {
		params.ExpiresAt = stripe.Int64(req.ExpiresAt.Unix())
	}
	for _, line := range req.Lines {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(req.Currency)),
				UnitAmount: stripe.Int64(line.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
			},
			Quantity: stripe.Int64(int64(line.Quantity)),
		})
	}
	params.Context = ctx
	params.AddMetadata("booking_id", strconv.FormatUint(uint64(req.BookingID), 10))
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("stripe checkout session: %w", err)
	}
	return Session{ID: sess.ID, URL: sess.URL}, nil
}

func (p *StripeProvider) Refund(ctx context.Context, paymentRef string, amount int64) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentRef),
		Amount:        stripe.Int64(amount),
	}
	params.Context = ctx
	if _, err := p.api.Refunds.New(params); err != nil {
		return fmt.Errorf("stripe refund: %w", err)
	}
	return nil
}

// ParseStripeWebhook verifies the Stripe-Signature header and extracts the
// checkout session outcome. Event types other than completed and expired
// sessions return ErrIgnoredEvent.
func ParseStripeWebhook(payload []byte, signature, secret string) (Notification, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Notification{}, fmt.Errorf("verify stripe webhook: %w", err)
	}

	var kind NotificationKind
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		kind = Completed
	case stripe.EventTypeCheckoutSessionExpired:
		kind = Expired
	default:
		return Notification{}, ErrIgnoredEvent
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return Notification{}, fmt.Errorf("decode checkout session: %w", err)
	}
	n := Notification{Kind: kind, SessionID: sess.ID}
	if sess.PaymentIntent != nil {
		n.PaymentRef = sess.PaymentIntent.ID
	}
	return n, nil
}
