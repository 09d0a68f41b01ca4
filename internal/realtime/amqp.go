package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// AMQPChannel bridges the Channel port onto a RabbitMQ topic exchange.
// Event names are routing keys; each channel instance consumes from its own
// exclusive queue bound to every event it has handlers for.
type AMQPChannel struct {
	conn     *amqp091.Connection
	ch       *amqp091.Channel
	exchange string
	queue    string
	local    *Bus
	done     chan struct{}
	logger   *slog.Logger
}

// DialAMQP connects to the broker and starts consuming.
func DialAMQP(url, exchange string, logger *slog.Logger) (*AMQPChannel, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dialing broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declaring exchange: %w", err)
	}

	queue := "agent-workspace-" + uuid.NewString()
	q, err := ch.QueueDeclare(queue, false, true, true, false, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declaring queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "#", exchange, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("binding queue: %w", err)
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("starting consumer: %w", err)
	}

	a := &AMQPChannel{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		queue:    q.Name,
		local:    NewBus(logger),
		done:     make(chan struct{}),
		logger:   logger,
	}
	go a.consume(deliveries)
	return a, nil
}

func (a *AMQPChannel) consume(deliveries <-chan amqp091.Delivery) {
	for {
		select {
		case <-a.done:
			return
		case d, ok := <-deliveries:
			if !ok {
				a.logger.Warn("broker delivery stream closed", slog.String("queue", a.queue))
				return
			}
			if err := a.local.Emit(context.Background(), d.RoutingKey, json.RawMessage(d.Body)); err != nil {
				a.logger.Error("dispatch failed", slog.String("event", d.RoutingKey), slog.Any("err", err))
			}
		}
	}
}

func (a *AMQPChannel) Emit(ctx context.Context, event string, payload any) error {
	body, err := encodePayload(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", event, err)
	}
	return a.ch.PublishWithContext(ctx, a.exchange, event, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Transient,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			Body:         body,
		})
}

func (a *AMQPChannel) On(event string, handler Handler) Subscription {
	return a.local.On(event, handler)
}

func (a *AMQPChannel) Off(sub Subscription) {
	a.local.Off(sub)
}

func (a *AMQPChannel) Close() error {
	close(a.done)
	_ = a.local.Close()
	_ = a.ch.Close()
	return a.conn.Close()
}
