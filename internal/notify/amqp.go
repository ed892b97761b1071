package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"

	"virtual_queue/internal/events"
)

// amqpChannel is the part of *amqp.Channel the sink needs.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink publishes events to a durable fanout exchange. The routing key
// carries the event type for consumers that rebind to a topic exchange.
type AMQPSink struct {
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string

	mu       sync.Mutex
	declared bool
}

// NewAMQPSink connects to the broker.
func NewAMQPSink(url, exchange string) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	s := newAMQPSink(ch, exchange)
	s.conn = conn
	return s, nil
}

func newAMQPSink(ch amqpChannel, exchange string) *AMQPSink {
	if exchange == "" {
		exchange = "virtual_queue.events"
	}
	return &AMQPSink{channel: ch, exchange: exchange}
}

// Publish implements events.Sink. The exchange is declared on first use.
func (s *AMQPSink) Publish(_ context.Context, evt events.Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.declared {
		if err := s.channel.ExchangeDeclare(s.exchange, "fanout", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", s.exchange, err)
		}
		s.declared = true
	}
	err = s.channel.Publish(s.exchange, string(evt.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.ID,
		Timestamp:    evt.OccurredAt,
		Type:         string(evt.Type),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("amqp publish %s: %w", evt.Type, err)
	}
	return nil
}

// Close closes the channel and connection.
func (s *AMQPSink) Close() {
	if ch, ok := s.channel.(*amqp.Channel); ok && ch != nil {
		ch.Close()
	}
	if s.conn != nil {
		s.conn.Close()
	}
}
