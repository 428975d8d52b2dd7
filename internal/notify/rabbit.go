package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"bookingdesk/internal/booking"
	"bookingdesk/internal/observability"
)

const (
	Exchange          = "bookingdesk.events"
	RoutingKeyCreated = "booking.created"
	Queue             = "bookingdesk.notifications"
)

type CreatedMessage struct {
	BookingID string    `json:"booking_id"`
	Reference string    `json:"reference_number"`
	CreatedAt time.Time `json:"created_at"`
}

// Publisher hands creation notifications to RabbitMQ instead of sending inline.
type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, errors.Wrap(err, "declare exchange")
	}
	return &Publisher{ch: ch}, nil
}

func (p *Publisher) BookingCreated(ctx context.Context, b *booking.Booking) error {
	msg, err := createdPublishing(b)
	if err != nil {
		return err
	}
	return errors.Wrap(p.ch.PublishWithContext(ctx, Exchange, RoutingKeyCreated, false, false, msg), "publish booking.created")
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func createdPublishing(b *booking.Booking) (amqp.Publishing, error) {
	body, err := json.Marshal(CreatedMessage{BookingID: b.ID, Reference: b.ReferenceNumber, CreatedAt: b.CreatedAt})
	if err != nil {
		return amqp.Publishing{}, errors.Wrap(err, "marshal booking.created")
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Type:         RoutingKeyCreated,
		Body:         body,
	}, nil
}

type BookingLoader interface {
	Get(ctx context.Context, id string) (*booking.Booking, error)
}

type Consumer struct {
	ch    *amqp.Channel
	queue string
}

func NewConsumer(conn *amqp.Connection, queue string) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, errors.Wrap(err, "declare exchange")
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, errors.Wrap(err, "declare queue")
	}
	if err := ch.QueueBind(queue, RoutingKeyCreated, Exchange, false, nil); err != nil {
		return nil, errors.Wrap(err, "bind queue")
	}
	if err := ch.Qos(managerFanOut, 0, false); err != nil {
		return nil, errors.Wrap(err, "set qos")
	}
	return &Consumer{ch: ch, queue: queue}, nil
}

// Run delivers booking.created messages until ctx is done. Failed messages are
// dropped after logging; redelivery would repeat emails already sent.
func (c *Consumer) Run(ctx context.Context, loader BookingLoader, notifier booking.CreationNotifier, logger observability.Logger) error {
	deliveries, err := c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "consume")
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			lg := logger.WithField("message_id", d.MessageId)
			if err := HandleCreated(ctx, d.Body, loader, notifier); err != nil {
				lg.WithError(err).Error("booking.created handling failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) Close() error {
	return c.ch.Close()
}

// HandleCreated reloads the booking named in body and runs the notifier on it.
func HandleCreated(ctx context.Context, body []byte, loader BookingLoader, notifier booking.CreationNotifier) error {
	var msg CreatedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return errors.Wrap(err, "decode booking.created")
	}
	if msg.BookingID == "" {
		return errors.New("booking.created without booking_id")
	}
	b, err := loader.Get(ctx, msg.BookingID)
	if err != nil {
		return errors.Wrapf(err, "load booking %s", msg.BookingID)
	}
	return notifier.BookingCreated(ctx, b)
}
