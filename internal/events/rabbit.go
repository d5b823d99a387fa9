// Package events carries domain events between services over a RabbitMQ
// topic exchange. A nil *Rabbit is a valid publisher that drops everything,
// so services run without a broker in development and tests.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Publisher is what services depend on; *Rabbit and eventstest.Recorder
// implement it.
type Publisher interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
}

type Handler func(ctx context.Context, routingKey string, body []byte) error

type Rabbit struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	source   string
	log      zerolog.Logger
}

// NewRabbit dials url and declares the durable topic exchange. An empty url
// returns a nil *Rabbit and no error.
func NewRabbit(url, exchange, source string, logger zerolog.Logger) (*Rabbit, error) {
	if url == "" {
		logger.Warn().Msg("RABBIT_URL empty, events disabled")
		return nil, nil
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbit: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Rabbit{conn: conn, ch: ch, exchange: exchange, source: source, log: logger}, nil
}

func (r *Rabbit) Close() {
	if r == nil {
		return
	}
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn != nil {
		_ = r.conn.Close()
	}
}

func (r *Rabbit) PublishJSON(ctx context.Context, routingKey string, v any) error {
	if r == nil || r.ch == nil {
		return nil
	}
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", routingKey, err)
	}
	// amqp channels are not safe for concurrent publishes.
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ch.PublishWithContext(ctx, r.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		AppId:        r.source,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

// ConsumeTopic binds a durable queue to the given routing keys and feeds
// deliveries to handler until ctx is done or the channel closes. Handler
// errors nack without requeue.
func (r *Rabbit) ConsumeTopic(ctx context.Context, queue string, bindings []string, handler Handler) error {
	if r == nil || r.ch == nil {
		return errors.New("rabbit not configured")
	}
	q, err := r.ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	for _, rk := range bindings {
		if err := r.ch.QueueBind(q.Name, rk, r.exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s to %s: %w", q.Name, rk, err)
		}
	}
	msgs, err := r.ch.Consume(q.Name, r.source, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", q.Name, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					r.log.Warn().Str("queue", queue).Msg("consumer stopped")
					return
				}
				if err := handler(ctx, d.RoutingKey, d.Body); err != nil {
					r.log.Error().Err(err).Str("rk", d.RoutingKey).Str("message_id", d.MessageId).Msg("event handler failed")
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()
	return nil
}
