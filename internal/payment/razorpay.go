package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	razorpay "github.com/razorpay/razorpay-go"
)

// RazorpayProvider uses payment links as the hosted checkout. The SDK has no
// context support, so ctx only short-circuits calls that are already cancelled.
type RazorpayProvider struct {
	client *razorpay.Client
}

func NewRazorpayProvider(key, secret string) *RazorpayProvider {
	return &RazorpayProvider{client: razorpay.NewClient(key, secret)}
}

func (p *RazorpayProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	var amount int64
	names := make([]string, 0, len(req.Lines))
	for _, line := range req.Lines {
		amount += line.UnitAmount * int64(line.Quantity)
		names = append(names, fmt.Sprintf("%s x%d", line.Name, line.Quantity))
	}

	data := map[string]interface{}{
		"amount":       amount,
		"currency":     strings.ToUpper(req.Currency),
		"description":  strings.Join(names, ", "),
		"reference_id": strconv.FormatUint(uint64(req.BookingID), 10),
		"callback_url": req.SuccessURL,
		"notes": map[string]interface{}{
			"booking_id": req.BookingID,
		},
	}
	if req.Email != "" {
		data["customer"] = map[string]interface{}{"email": req.Email}
	}
	if !req.ExpiresAt.IsZero() {
		data["expire_by"] = req.ExpiresAt.Unix()
	}

	headers := map[string]string{}
	if req.IdempotencyKey != "" {
		headers["X-Idempotency-Key"] = req.IdempotencyKey
	}

	link, err := p.client.PaymentLink.Create(data, headers)
	if err != nil {
		return Session{}, fmt.Errorf("razorpay payment link creation failed: %w", err)
	}
	id, ok := link["id"].(string)
	if !ok {
		return Session{}, errors.New("unable to extract id from Razorpay response")
	}
	url, _ := link["short_url"].(string)
	return Session{ID: id, URL: url}, nil
}

func (p *RazorpayProvider) Refund(ctx context.Context, paymentRef string, amount int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.client.Payment.Refund(paymentRef, int(amount), nil, nil); err != nil {
		return fmt.Errorf("razorpay refund failed: %w", err)
	}
	return nil
}
