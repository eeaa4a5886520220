package service

import (
	"context"
	"time"

	"github.com/fairwaylink/event-booking/internal/logging"
	"github.com/fairwaylink/event-booking/internal/models"
)

// Publisher sends domain messages. A nil Publisher drops them.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

const (
	KeyEventCreated     = "event.created"
	KeyBookingCreated   = "booking.created"
	KeyBookingConfirmed = "booking.confirmed"
	KeyBookingCancelled = "booking.cancelled"
	KeyBookingRefunded  = "booking.refunded"
	KeyWaitlistJoined   = "waitlist.joined"
	KeyWaitlistNotified = "waitlist.notified"
)

type BookingMessage struct {
	BookingID   uint                 `json:"booking_id"`
	EventID     uint                 `json:"event_id"`
	Email       string               `json:"email"`
	Status      models.BookingStatus `json:"status"`
	Quantity    int                  `json:"quantity"`
	TotalAmount int64                `json:"total_amount"`
	OccurredAt  time.Time            `json:"occurred_at"`
}

func newBookingMessage(b *models.Booking, at time.Time) BookingMessage {
	return BookingMessage{
		BookingID:   b.ID,
		EventID:     b.EventID,
		Email:       b.Email,
		Status:      b.Status,
		Quantity:    b.Quantity,
		TotalAmount: b.TotalAmount,
		OccurredAt:  at,
	}
}

type WaitlistMessage struct {
	EntryID        uint       `json:"entry_id"`
	EventID        uint       `json:"event_id"`
	Email          string     `json:"email"`
	Position       int        `json:"position"`
	OfferExpiresAt *time.Time `json:"offer_expires_at,omitempty"`
}

func newWaitlistMessage(w *models.WaitlistEntry) WaitlistMessage {
	return WaitlistMessage{
		EntryID:        w.ID,
		EventID:        w.EventID,
		Email:          w.Email,
		Position:       w.Position,
		OfferExpiresAt: w.OfferExpiresAt,
	}
}

// publish is best effort: the database is the source of truth and a lost
// message never rolls back a committed booking.
func publish(ctx context.Context, p Publisher, key string, payload any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, key, payload); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("routing_key", key).Warn("Failed to publish message")
	}
}
