package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPClient publishes and consumes messages on a durable RabbitMQ queue.
type AMQPClient struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewAMQPClient dials url and declares the durable queue.
func NewAMQPClient(url, queueName string) (*AMQPClient, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("AMQP_URL is required")
	}
	if strings.TrimSpace(queueName) == "" {
		return nil, errors.New("AMQP_QUEUE is required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("amqp declare %s: %w", queueName, err)
	}
	return &AMQPClient{conn: conn, ch: ch, queue: queueName}, nil
}

// Send publishes msg as a persistent JSON message.
func (a *AMQPClient) Send(ctx context.Context, msg Message) error {
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode amqp message: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	err = a.ch.PublishWithContext(ctx, "", a.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Type:         msg.Kind,
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

// Delivery is one consumed message. Exactly one of Ack or Nack must be called.
type Delivery struct {
	Body string
	ack  func() error
	nack func(requeue bool) error
}

// NewDelivery builds a delivery from its acknowledgement callbacks.
func NewDelivery(body string, ack func() error, nack func(requeue bool) error) Delivery {
	return Delivery{Body: body, ack: ack, nack: nack}
}

func (d Delivery) Ack() error              { return d.ack() }
func (d Delivery) Nack(requeue bool) error { return d.nack(requeue) }

// Consume streams deliveries until ctx is cancelled or the channel closes.
// prefetch bounds the number of unacknowledged deliveries.
func (a *AMQPClient) Consume(ctx context.Context, prefetch int) (<-chan Delivery, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if prefetch > 0 {
		if err := a.ch.Qos(prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("amqp qos: %w", err)
		}
	}
	raw, err := a.ch.Consume(a.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("amqp consume: %w", err)
	}
	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			var d amqp.Delivery
			var ok bool
			select {
			case d, ok = <-raw:
				if !ok {
					return
				}
			case <-ctx.Done():
				return
			}
			delivery := Delivery{
				Body: string(d.Body),
				ack:  func() error { return d.Ack(false) },
				nack: func(requeue bool) error { return d.Nack(false, requeue) },
			}
			select {
			case out <- delivery:
			case <-ctx.Done():
				_ = d.Nack(false, true)
				return
			}
		}
	}()
	return out, nil
}

func (a *AMQPClient) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var errs []error
	if a.ch != nil {
		errs = append(errs, a.ch.Close())
	}
	if a.conn != nil {
		errs = append(errs, a.conn.Close())
	}
	return errors.Join(errs...)
}

var _ Client = (*AMQPClient)(nil)
