package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fairwaylink/event-booking/internal/logging"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	// amqp channels are not safe for concurrent publishes.
	mu  sync.Mutex
	now func() time.Time
}

func NewPublisher(url string) (*Publisher, error) {
	conn, ch, err := dial(url)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, channel: ch, now: time.Now}, nil
}

// Publish sends payload as persistent JSON. The context's correlation ID
// travels in the message headers.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    p.now(),
		Body:         body,
	}
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.CorrelationId = id
		msg.Headers = amqp.Table{logging.HeaderCorrelationID: id}
	}

	p.mu.Lock()
	err = p.channel.PublishWithContext(ctx, ExchangeName, routingKey, false, false, msg)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	logging.FromContext(ctx).WithField("routing_key", routingKey).WithField("message_id", msg.MessageId).Debug("Published message")
	return nil
}

func (p *Publisher) Close() {
	closeAll(p.channel, p.conn)
}
