package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Remedy/internal/mq"
)

// Broker — операции remedy-cli с очередью.
type Broker interface {
	// Enqueue публикует task; readyAt — время активации (zero — сразу).
	Enqueue(ctx context.Context, taskID string, readyAt time.Time) error

	// DeadLetters возвращает до limit сообщений DLQ, не удаляя их.
	DeadLetters(ctx context.Context, limit int) ([]mq.DeadLetter, error)

	// RequeueDeadLetters возвращает до limit сообщений DLQ в рабочую очередь.
	RequeueDeadLetters(ctx context.Context, limit int) (int, error)

	Close() error
}

// AMQPBroker — Broker поверх RabbitMQ.
type AMQPBroker struct {
	conn      *mq.Connection
	publisher *mq.Publisher
}

// DialBroker подключается к RabbitMQ и объявляет топологию.
func DialBroker(ctx context.Context, url string, t mq.Topology, logger *slog.Logger) (*AMQPBroker, error) {
	conn, err := mq.NewConnection(url, logger)
	if err != nil {
		return nil, err
	}

	if err := mq.SetupTopology(ctx, conn, t); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setup topology: %w", err)
	}

	return &AMQPBroker{
		conn:      conn,
		publisher: mq.NewPublisher(conn, logger, t),
	}, nil
}

// Enqueue публикует envelope task в рабочую очередь.
func (b *AMQPBroker) Enqueue(ctx context.Context, taskID string, readyAt time.Time) error {
	body, err := mq.EncodeEnvelope(taskID, readyAt)
	if err != nil {
		return err
	}
	return b.publisher.PublishTask(ctx, body, nil)
}

// DeadLetters читает сообщения DLQ.
func (b *AMQPBroker) DeadLetters(ctx context.Context, limit int) ([]mq.DeadLetter, error) {
	return b.publisher.ListDeadLetters(ctx, limit)
}

// RequeueDeadLetters переносит сообщения из DLQ в рабочую очередь.
func (b *AMQPBroker) RequeueDeadLetters(ctx context.Context, limit int) (int, error) {
	return b.publisher.RequeueDeadLetters(ctx, limit)
}

// Close закрывает соединение.
func (b *AMQPBroker) Close() error {
	return b.conn.Close()
}
