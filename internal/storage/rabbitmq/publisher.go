// Package rabbitmq publishes ledger events to an AMQP broker.
package rabbitmq

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xenking/barista-pos/internal/domain/order"
	"github.com/xenking/barista-pos/internal/wire"
)

const (
	// Exchange is the topic exchange order events are published to.
	Exchange = "pos.orders"
	// RoutingKeyCreated is the routing key of order.created events.
	RoutingKeyCreated = "order.created"

	publishTimeout = 5 * time.Second
)

var _ order.Publisher = (*Publisher)(nil)

// Publisher sends order events with publisher confirms. Publish calls are
// serialized so every confirmation matches its message.
type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	acks <-chan amqp.Confirmation
	mu   sync.Mutex
}

// Dial connects to the broker at url, declares the exchange and enables
// publisher confirms.
func Dial(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "declare exchange")
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "enable confirms")
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	return &Publisher{conn: conn, ch: ch, acks: acks}, nil
}

// Ping reports whether the broker connection is open.
func (p *Publisher) Ping(context.Context) error {
	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// OrderCreated publishes an order.created event and waits for the broker
// to confirm it.
func (p *Publisher) OrderCreated(ctx context.Context, o *order.Order) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	msg := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    o.ID,
		Type:         RoutingKeyCreated,
		Timestamp:    o.CreatedAt,
		Body:         EncodeEvent(RoutingKeyCreated, o),
		Headers:      amqp.Table{"x-source": "barista-pos"},
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(ctx, Exchange, RoutingKeyCreated, false, false, msg); err != nil {
		return errors.Wrap(err, "publish")
	}
	select {
	case conf, ok := <-p.acks:
		if !ok {
			return errors.New("confirm channel closed")
		}
		if !conf.Ack {
			return errors.Errorf("broker nacked delivery %d", conf.DeliveryTag)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EncodeEvent renders the event envelope {event, order}.
func EncodeEvent(event string, o *order.Order) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.Obj(func(e *jx.Encoder) {
		e.Field("event", func(e *jx.Encoder) { e.Str(event) })
		e.Field("order", func(e *jx.Encoder) { wire.EncodeOrder(e, o) })
	})
	return append([]byte(nil), e.Bytes()...)
}
