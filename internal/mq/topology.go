package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Заголовки сообщений.
const (
	// HeaderDelay — задержка доставки в мс (rabbitmq_delayed_message_exchange).
	HeaderDelay = "x-delay"

	// HeaderAttempt — номер попытки обработки (отсутствует — первая).
	HeaderAttempt = "x-attempt"

	// HeaderTaskID — идентификатор task в сообщениях DLQ.
	HeaderTaskID = "x-task-id"

	// HeaderFailedAt — время отправки в DLQ (RFC 3339, UTC).
	HeaderFailedAt = "x-failed-at"
)

// delayedExchangeType — тип exchange из плагина rabbitmq_delayed_message_exchange.
const delayedExchangeType = "x-delayed-message"

// Topology — имена очередей и exchange'ей, с которыми работает агент.
type Topology struct {
	// Queue — рабочая очередь задач.
	Queue string

	// DelayExchange — exchange с отложенной доставкой.
	// Пустое значение — публикация через default exchange, x-delay
	// передаётся заголовком, а задержку обеспечивает брокер (если умеет).
	DelayExchange string
}

// DeadLetterQueue возвращает имя DLQ для рабочей очереди.
func (t Topology) DeadLetterQueue() string {
	return t.Queue + ".dlq"
}

// SetupTopology объявляет рабочую очередь, DLQ и exchange отложенной доставки.
func SetupTopology(ctx context.Context, conn *Connection, t Topology) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		// 1. Очереди
		if err := declareQueue(ch, t.Queue); err != nil {
			return err
		}
		if err := declareQueue(ch, t.DeadLetterQueue()); err != nil {
			return err
		}

		if t.DelayExchange == "" {
			return nil
		}

		// 2. Exchange с отложенной доставкой
		err := ch.ExchangeDeclare(
			t.DelayExchange,     // name
			delayedExchangeType, // type
			true,                // durable
			false,               // auto-deleted
			false,               // internal
			false,               // no-wait
			amqp.Table{"x-delayed-type": "direct"},
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", t.DelayExchange, err)
		}

		// 3. Рабочая очередь получает отложенные сообщения по своему имени
		if err := ch.QueueBind(t.Queue, t.Queue, t.DelayExchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", t.Queue, t.DelayExchange, err)
		}

		return nil
	})
}

// declareQueue объявляет durable очередь.
func declareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,  // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func (t Topology) TopologyInfo() string {
	delay := t.DelayExchange
	if delay == "" {
		delay = "(default exchange, x-delay header)"
	}
	return fmt.Sprintf("queue=%s dlq=%s delay_exchange=%s", t.Queue, t.DeadLetterQueue(), delay)
}
