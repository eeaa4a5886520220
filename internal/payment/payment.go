// Package payment creates hosted checkout sessions and reads the provider's
// settlement notifications.
package payment

import (
	"context"
	"errors"
	"time"
)

var ErrIgnoredEvent = errors.New("payment event ignored")

type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int
}

type CheckoutRequest struct {
	BookingID  uint
	Currency   string
	Email      string
	Lines      []LineItem
	SuccessURL string
	CancelURL  string
	ExpiresAt  time.Time
	// IdempotencyKey is forwarded so a retried create returns the same session.
	IdempotencyKey string
}

type Session struct {
	ID  string
	URL string
}

type Provider interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (Session, error)
	Refund(ctx context.Context, paymentRef string, amount int64) error
}

type NotificationKind string

const (
	Completed NotificationKind = "payment.completed"
	Expired   NotificationKind = "payment.expired"
)

// Notification is a settlement signal for one checkout session, whether it
// arrived by webhook or over the message bus.
type Notification struct {
	Kind       NotificationKind `json:"kind"`
	SessionID  string           `json:"session_id"`
	PaymentRef string           `json:"payment_ref,omitempty"`
}
