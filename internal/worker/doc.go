// Package worker потребляет task из очереди RabbitMQ и выполняет их с self-healing.
//
// # Обзор
//
// Worker — агент, который держит одну подписку на рабочую очередь
// (prefetch = 1) и для каждой доставки решает её судьбу: ack, requeue
// или discard после переопубликации. Worker отвечает за:
//
//   - Отложенную доставку (envelope с delayUntil в будущем)
//   - Загрузку task из внешнего task store
//   - Выполнение task через healing.Executor
//   - Ограничение числа попыток и отправку исчерпанных task в DLQ
//   - Корректную остановку без потери текущей доставки
//
// Несколько экземпляров агента могут потреблять из одной очереди
// (competing consumers), порядок между ними не гарантируется.
//
// # Ключевые компоненты
//
// ## Worker
//
//	w := worker.New(worker.Config{
//	    Conn:      mqConn,
//	    Queue:     "tasks.todo",
//	    Publisher: publisher,
//	    Store:     storeClient,
//	    Executor:  executor,
//	    Retry:     worker.RetryPolicy{MaxAttempts: 5},
//	    Logger:    logger,
//	})
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// ## Registry
//
// Реестр processor'ов по полю task.Type. Сам реализует healing.Processor.
// NewRegistry() регистрирует http и delay; task без типа идут в delay.
//
// # Обработка доставки
//
//  1. Worker остановлен → requeue
//  2. Разбор envelope; delayUntil в будущем → публикация с x-delay, discard
//  3. Загрузка task; ошибка → requeue
//  4. Статус IN_PROGRESS, выполнение через Executor
//  5. Успех → статус DONE, ack
//  6. Неудача → политика повторов
//
// # Повторы
//
// RetryPolicy.MaxAttempts задаётся явно:
//   - 0: неудача всегда возвращает сообщение в очередь (requeue)
//   - N: номер попытки едет в заголовке x-attempt; пока он меньше N,
//     сообщение публикуется заново с задержкой
//     InitialDelay * 2^(attempt-1) (не больше MaxDelay).
//     На попытке N сообщение уходит в <queue>.dlq, статус task — FAILED.
//
// Если переопубликация не удалась, доставка возвращается в очередь.
package worker
