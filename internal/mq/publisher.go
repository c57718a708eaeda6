package mq

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher публикует сообщения в рабочую очередь, с задержкой и в DLQ.
type Publisher struct {
	conn     *Connection
	logger   *slog.Logger
	topology Topology
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger, t Topology) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:     conn,
		logger:   logger,
		topology: t,
	}
}

// PublishTask публикует тело в рабочую очередь без задержки.
func (p *Publisher) PublishTask(ctx context.Context, body []byte, headers amqp.Table) error {
	return p.publish(ctx, "", p.topology.Queue, body, headers)
}

// PublishDelayed публикует тело в рабочую очередь с задержкой delay.
//
// Задержка передаётся заголовком x-delay в миллисекундах.
func (p *Publisher) PublishDelayed(ctx context.Context, body []byte, delay time.Duration, headers amqp.Table) error {
	h := cloneHeaders(headers)
	h[HeaderDelay] = delay.Milliseconds()

	return p.publish(ctx, p.topology.DelayExchange, p.topology.Queue, body, h)
}

// PublishDeadLetter публикует тело в DLQ.
func (p *Publisher) PublishDeadLetter(ctx context.Context, body []byte, headers amqp.Table) error {
	return p.publish(ctx, "", p.topology.DeadLetterQueue(), body, headers)
}

// publish отправляет persistent сообщение.
func (p *Publisher) publish(ctx context.Context, exchange, routingKey string, body []byte, headers amqp.Table) error {
	msgID := uuid.New().String()

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			exchange,
			routingKey,
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				Headers:      headers,
				ContentType:  contentType(body),
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msgID,
				Timestamp:    time.Now(),
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %q/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msgID,
		)
		return nil
	})
}

// contentType угадывает тип тела: envelope-JSON или голый идентификатор.
func contentType(body []byte) string {
	if _, ok := DecodeEnvelope(body).(Scheduled); ok {
		return "application/json"
	}
	return "text/plain"
}

func cloneHeaders(h amqp.Table) amqp.Table {
	out := make(amqp.Table, len(h)+1)
	maps.Copy(out, h)
	return out
}
