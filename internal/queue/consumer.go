package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer binds an exclusive, auto-deleted queue of this instance to
// the change exchange and hands every event to a callback.
type Consumer struct {
	url    string
	id     string
	queue  string
	handle func(ChangeEvent)
}

// NewConsumer returns a Consumer with a queue name unique to this
// process.
func NewConsumer(url string, handle func(ChangeEvent)) *Consumer {
	id := uuid.NewString()
	return &Consumer{
		url:    url,
		id:     id,
		queue:  ExchangeName + "." + id,
		handle: handle,
	}
}

// ID identifies this instance.  Events whose Origin matches it were
// already applied locally by a Relay and are skipped.
func (c *Consumer) ID() string { return c.id }

// QueueName is the instance queue bound to the exchange.
func (c *Consumer) QueueName() string { return c.queue }

// dispatch hands ev to the callback unless this instance published it.
func (c *Consumer) dispatch(ev ChangeEvent) bool {
	if c.handle == nil || (ev.Origin != "" && ev.Origin == c.id) {
		return false
	}
	c.handle(ev)
	return true
}

// Run dials the broker and consumes until ctx is cancelled.  Dial
// failures back off from 1s up to 30s; a dropped connection is
// re-established.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			log.Printf("checkin-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("checkin-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("checkin-consumer: set QoS failed: %v", err)
	}
	if err := declareExchange(ch); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	// exclusive + autoDelete: the queue lives exactly as long as this connection
	if _, err := ch.QueueDeclare(c.queue, false, true, true, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(c.queue, "", ExchangeName, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			ev, err := DecodeChangeEvent(d.Body)
			if err != nil {
				log.Printf("checkin-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			c.dispatch(ev)
			_ = d.Ack(false)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
