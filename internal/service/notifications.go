package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fairwaylink/event-booking/internal/logging"
	"github.com/fairwaylink/event-booking/internal/payment"
)

// ApplyNotification settles or expires the booking behind a payment
// notification. Notifications for sessions this service never created are
// dropped, so the sender stops retrying them.
func ApplyNotification(ctx context.Context, bookings BookingService, n payment.Notification) error {
	if n.SessionID == "" {
		return fmt.Errorf("%w: notification without session id", payment.ErrIgnoredEvent)
	}

	var err error
	switch n.Kind {
	case payment.Completed:
		_, err = bookings.SettleCheckout(ctx, n.SessionID, n.PaymentRef)
	case payment.Expired:
		_, err = bookings.ExpireCheckout(ctx, n.SessionID)
	default:
		return fmt.Errorf("%w: kind %q", payment.ErrIgnoredEvent, n.Kind)
	}

	if errors.Is(err, ErrBookingNotFound) {
		logging.FromContext(ctx).WithField("session_id", n.SessionID).Warn("Payment notification for unknown checkout session")
		return nil
	}
	return err
}
