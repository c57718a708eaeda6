// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — соединение с RabbitMQ (reconnect, идемпотентный Close)
//   - topology.go   — рабочая очередь, DLQ, exchange отложенной доставки
//   - envelope.go   — разбор тела сообщения (BareID | Scheduled)
//   - publisher.go  — публикация: сразу, с задержкой (x-delay), в DLQ
//   - consumer.go   — потребление с prefetch = 1 и ручным ack/nack
//
// Формат тела сообщения:
//
//	task-103                                   — голый идентификатор
//	{"taskId": "task-1"}                       — структурированный envelope
//	{"taskId": "task-1", "delayUntil": 1.7e12} — активация в будущем (epoch ms)
//
// Очереди:
//   - <queue>      — рабочая очередь (RABBITMQ_TASKS_QUEUE, по умолчанию tasks.todo)
//   - <queue>.dlq  — задачи, исчерпавшие попытки
package mq
