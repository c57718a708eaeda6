// Package cli реализует команды remedy-cli.
//
// # Обзор
//
// remedy-cli — утилита оператора очереди задач:
//   - enqueue: публикация task в рабочую очередь (сразу или с delayUntil)
//   - dlq list / dlq requeue: просмотр и возврат task из <queue>.dlq
//   - task show: чтение task из task store
//
// # Ключевые компоненты
//
// ## Broker
//
// Операции с RabbitMQ. AMQPBroker — реализация поверх mq.Connection
// и mq.Publisher.
//
// ## Output
//
// Форматирование вывода. Таблицы (text/tabwriter) по умолчанию,
// JSON с флагом --json. Данные пишутся в stdout, сообщения — в stderr:
//
//	remedy-cli dlq list --json | jq '.[].task_id'
//
// ## Commands
//
// Каждая группа команд создаётся фабричной функцией (NewEnqueueCmd,
// NewDLQCmd, NewTaskCmd), которая принимает замыкания для ленивого
// создания зависимостей после разбора PersistentFlags.
package cli
