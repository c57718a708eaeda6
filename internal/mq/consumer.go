package mq

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Outcome — решение обработчика о судьбе доставки.
type Outcome int

const (
	// OutcomeAck — обработано, удалить из очереди.
	OutcomeAck Outcome = iota

	// OutcomeRequeue — nack с возвратом в очередь.
	OutcomeRequeue

	// OutcomeDiscard — nack без возврата: копия уже переопубликована
	// (отложенная доставка, retry) или отправлена в DLQ.
	OutcomeDiscard
)

// String возвращает имя outcome для логов и метрик.
func (o Outcome) String() string {
	switch o {
	case OutcomeAck:
		return "ack"
	case OutcomeRequeue:
		return "requeue"
	case OutcomeDiscard:
		return "discard"
	default:
		return "unknown"
	}
}

// Handler — функция обработки доставки.
// Ack/nack выполняет Consumer по возвращённому Outcome.
type Handler func(ctx context.Context, d *Delivery) Outcome

// Delivery — доставленное сообщение.
type Delivery struct {
	// Envelope — разобранное тело.
	Envelope Envelope

	// Raw — сырое AMQP сообщение.
	Raw amqp.Delivery
}

// Body возвращает исходное тело сообщения.
func (d *Delivery) Body() []byte {
	return d.Raw.Body
}

// Headers возвращает заголовки сообщения (никогда не nil).
func (d *Delivery) Headers() amqp.Table {
	if d.Raw.Headers == nil {
		return amqp.Table{}
	}
	return d.Raw.Headers
}

// Attempt возвращает номер попытки из заголовка x-attempt (по умолчанию 1).
func (d *Delivery) Attempt() int {
	n, ok := headerInt(d.Raw.Headers, HeaderAttempt)
	if !ok || n < 1 {
		return 1
	}
	return n
}

// headerInt читает целочисленный заголовок. Тип числа зависит от клиента,
// который опубликовал сообщение.
func headerInt(h amqp.Table, key string) (int, bool) {
	switch v := h[key].(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case float32:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// Consumer потребляет сообщения из одной очереди RabbitMQ.
//
// Prefetch всегда равен 1: в каждый момент у consumer'а не больше одной
// неподтверждённой доставки, и обработка идёт строго по одной.
type Consumer struct {
	conn    *Connection
	logger  *slog.Logger
	queue   string
	tag     string
	handler Handler

	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// Queue — имя очереди.
	Queue string

	// Handler — обработчик сообщений.
	Handler Handler

	// Tag — consumer tag (default: <queue>-<uuid>).
	Tag string
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	tag := cfg.Tag
	if tag == "" {
		tag = cfg.Queue + "-" + uuid.NewString()
	}
	return &Consumer{
		conn:    conn,
		logger:  logger,
		queue:   cfg.Queue,
		tag:     tag,
		handler: cfg.Handler,
	}
}

// Start запускает потребление и блокируется до отмены ctx.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancelFunc = cancel
	c.mu.Unlock()
	defer cancel()

	return c.consume(ctx)
}

// consume — основной цикл потребления с повторной подпиской после reconnect.
func (c *Consumer) consume(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		deliveries, err := c.setupConsume()
		if err != nil {
			c.logger.Error("failed to setup consume", "queue", c.queue, "error", err)
			if err := c.waitReconnect(ctx); err != nil {
				return err
			}
			continue
		}

		c.logger.Info("consumer started", "queue", c.queue, "tag", c.tag, "prefetch", 1)

		if err := c.processDeliveries(ctx, deliveries); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("deliveries channel closed, waiting for reconnect", "queue", c.queue)
			if err := c.waitReconnect(ctx); err != nil {
				return err
			}
		}
	}
}

func (c *Consumer) waitReconnect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.conn.ReconnectNotify():
		c.logger.Info("reconnected, restarting consumer", "queue", c.queue)
		return nil
	}
}

// setupConsume объявляет очередь, ставит prefetch = 1 и подписывается.
func (c *Consumer) setupConsume() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNoChannel
	}

	// После reconnect очередь объявляется заново
	if err := declareQueue(ch, c.queue); err != nil {
		return nil, err
	}

	if err := ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		c.queue, // queue
		c.tag,   // consumer tag
		false,   // auto-ack (ack вручную)
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}

	return deliveries, nil
}

// processDeliveries обрабатывает сообщения из канала по одному.
// После отмены ctx текущая доставка дорабатывается, новые не берутся.
func (c *Consumer) processDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}

			c.handleDelivery(ctx, raw)
		}
	}
}

// handleDelivery обрабатывает одно сообщение и выполняет ack/nack.
func (c *Consumer) handleDelivery(ctx context.Context, raw amqp.Delivery) {
	delivery := &Delivery{
		Envelope: DecodeEnvelope(raw.Body),
		Raw:      raw,
	}

	c.logger.Debug("received message",
		"queue", c.queue,
		"task_id", delivery.Envelope.TaskID(),
		"redelivered", raw.Redelivered,
	)

	outcome := c.runHandler(ctx, delivery)
	if err := settle(raw, outcome); err != nil {
		c.logger.Error("failed to settle delivery",
			"queue", c.queue,
			"task_id", delivery.Envelope.TaskID(),
			"outcome", outcome,
			"error", err,
		)
	}
}

// runHandler вызывает обработчик. Паника — это requeue, а не потеря сообщения.
func (c *Consumer) runHandler(ctx context.Context, d *Delivery) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("handler panic",
				"queue", c.queue,
				"task_id", d.Envelope.TaskID(),
				"panic", r,
				"stack", string(debug.Stack()),
			)
			outcome = OutcomeRequeue
		}
	}()

	return c.handler(ctx, d)
}

// settle выполняет ack/nack по outcome.
func settle(raw amqp.Delivery, outcome Outcome) error {
	switch outcome {
	case OutcomeAck:
		return raw.Ack(false)
	case OutcomeDiscard:
		return raw.Nack(false, false)
	default:
		return raw.Nack(false, true)
	}
}

// Stop останавливает consumer: просит брокер прекратить доставку
// (basic.cancel) и отменяет цикл потребления.
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancelFunc == nil {
		return
	}
	c.cancelFunc()

	if c.conn == nil {
		return
	}
	if ch := c.conn.Channel(); ch != nil {
		if err := ch.Cancel(c.tag, false); err != nil {
			c.logger.Debug("failed to cancel consumer", "tag", c.tag, "error", err)
		}
	}
}

// Tag возвращает consumer tag.
func (c *Consumer) Tag() string {
	return c.tag
}
