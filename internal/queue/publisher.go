package queue

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the fanout exchange every instance publishes change
// events to and consumes them from.
const ExchangeName = "presence.changes"

// Publisher publishes ChangeEvents to the fanout exchange over a
// lazily opened connection.  A broken connection is dropped and redialed
// on the next publish.  Errors are logged and returned so callers can
// ignore them without interrupting the request flow.
type Publisher struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher returns a Publisher for url.  No connection is made
// until the first Publish.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url}
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.closeLocked()
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := declareExchange(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

// Publish sends ev to the exchange.  Messages are transient: an event
// nobody is listening for is stale by the time anyone could.
func (p *Publisher) Publish(ctx context.Context, ev ChangeEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		log.Printf("rabbitmq: connect failed: %v", err)
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		ExchangeName, // fanout exchange
		"",           // routing key ignored by fanout
		false,        // mandatory
		false,        // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		p.closeLocked()
		return err
	}
	return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func declareExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		ExchangeName, // name
		"fanout",     // kind
		true,         // durable
		false,        // autoDelete
		false,        // internal
		false,        // noWait
		nil,          // args
	)
}

// LocalNotifier delivers events to a handler in-process.  It stands in
// for the broker on single-instance deployments.
type LocalNotifier struct {
	handle func(ChangeEvent)
}

// NewLocalNotifier returns a notifier that calls handle for each event.
func NewLocalNotifier(handle func(ChangeEvent)) *LocalNotifier {
	return &LocalNotifier{handle: handle}
}

// Publish hands ev to the handler synchronously.
func (n *LocalNotifier) Publish(_ context.Context, ev ChangeEvent) error {
	if n.handle != nil {
		n.handle(ev)
	}
	return nil
}
