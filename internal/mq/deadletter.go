package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DeadLetter — сообщение из DLQ.
type DeadLetter struct {
	TaskID   string `json:"task_id"`
	Attempt  int    `json:"attempt"`
	FailedAt string `json:"failed_at,omitempty"`
	Body     string `json:"body"`
}

func newDeadLetter(d amqp.Delivery) DeadLetter {
	dl := DeadLetter{Body: string(d.Body)}

	if id, ok := d.Headers[HeaderTaskID].(string); ok && id != "" {
		dl.TaskID = id
	} else {
		dl.TaskID = DecodeEnvelope(d.Body).TaskID()
	}
	if n, ok := headerInt(d.Headers, HeaderAttempt); ok {
		dl.Attempt = n
	}
	if s, ok := d.Headers[HeaderFailedAt].(string); ok {
		dl.FailedAt = s
	}
	return dl
}

// ListDeadLetters возвращает до limit сообщений из DLQ, не удаляя их.
//
// Прочитанные сообщения возвращаются в DLQ одним nack в конце.
func (p *Publisher) ListDeadLetters(ctx context.Context, limit int) ([]DeadLetter, error) {
	queue := p.topology.DeadLetterQueue()
	var out []DeadLetter

	err := p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		var lastTag uint64
		defer func() {
			if lastTag > 0 {
				if err := ch.Nack(lastTag, true, true); err != nil {
					p.logger.Warn("failed to return dead letters", "queue", queue, "error", err)
				}
			}
		}()

		for limit <= 0 || len(out) < limit {
			d, ok, err := ch.Get(queue, false)
			if err != nil {
				return fmt.Errorf("get from %s: %w", queue, err)
			}
			if !ok {
				return nil
			}
			lastTag = d.DeliveryTag
			out = append(out, newDeadLetter(d))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RequeueDeadLetters переносит до limit сообщений из DLQ обратно
// в рабочую очередь. Счётчик попыток сбрасывается.
//
// Возвращает число перенесённых сообщений.
func (p *Publisher) RequeueDeadLetters(ctx context.Context, limit int) (int, error) {
	queue := p.topology.DeadLetterQueue()
	moved := 0

	err := p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for limit <= 0 || moved < limit {
			d, ok, err := ch.Get(queue, false)
			if err != nil {
				return fmt.Errorf("get from %s: %w", queue, err)
			}
			if !ok {
				return nil
			}

			if err := p.PublishTask(ctx, d.Body, resetHeaders(d.Headers)); err != nil {
				if nackErr := d.Nack(false, true); nackErr != nil {
					p.logger.Warn("failed to return dead letter", "queue", queue, "error", nackErr)
				}
				return err
			}
			if err := d.Ack(false); err != nil {
				return fmt.Errorf("ack dead letter: %w", err)
			}
			moved++
		}
		return nil
	})

	p.logger.Info("dead letters requeued", "queue", queue, "count", moved)
	return moved, err
}

// resetHeaders убирает служебные заголовки попыток и DLQ.
func resetHeaders(h amqp.Table) amqp.Table {
	out := cloneHeaders(h)
	delete(out, HeaderAttempt)
	delete(out, HeaderTaskID)
	delete(out, HeaderFailedAt)
	delete(out, HeaderDelay)
	return out
}
