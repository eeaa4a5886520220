// Package consumer applies payment notifications that arrive over RabbitMQ.
package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fairwaylink/event-booking/internal/logging"
	"github.com/fairwaylink/event-booking/internal/payment"
	"github.com/fairwaylink/event-booking/internal/service"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Queue and binding for payment notifications relayed by the payments gateway.
const (
	PaymentQueue   = "event-booking.payments"
	PaymentBinding = "payment.*"
)

type PaymentConsumer struct {
	bookings service.BookingService
}

func NewPaymentConsumer(bookings service.BookingService) *PaymentConsumer {
	return &PaymentConsumer{bookings: bookings}
}

// Run handles deliveries until msgs closes or ctx is done.
func (pc *PaymentConsumer) Run(ctx context.Context, msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				logrus.Info("Payment queue closed, stopping consumer")
				return nil
			}
			pc.handleMessage(ctx, msg)
		}
	}
}

func (pc *PaymentConsumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	id := msg.CorrelationId
	if h, ok := msg.Headers[logging.HeaderCorrelationID].(string); ok && h != "" {
		id = h
	}
	if id == "" {
		id = logging.NewCorrelationID()
	}
	ctx = logging.ContextWithCorrelationID(ctx, id)
	log := logging.FromContext(ctx).WithField("routing_key", msg.RoutingKey).WithField("message_id", msg.MessageId)

	var n payment.Notification
	if err := json.Unmarshal(msg.Body, &n); err != nil {
		log.WithError(err).Warn("Dropping malformed payment notification")
		msg.Nack(false, false)
		return
	}

	err := service.ApplyNotification(ctx, pc.bookings, n)
	switch {
	case errors.Is(err, payment.ErrIgnoredEvent):
		log.WithError(err).Debug("Ignoring payment notification")
		msg.Ack(false)
	case err != nil:
		log.WithError(err).WithField("session_id", n.SessionID).Error("Failed to apply payment notification, requeueing")
		msg.Nack(false, !msg.Redelivered)
	default:
		log.WithField("session_id", n.SessionID).WithField("kind", n.Kind).Info("Applied payment notification")
		msg.Ack(false)
	}
}
