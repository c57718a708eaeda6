// Package healing реализует self-healing выполнение task.
//
// # Обзор
//
// Executor запускает Processor, а при неудаче:
//
//   - сообщает ошибку в task store
//   - ищет похожие решения в базе знаний (threshold 0.7, limit 10)
//   - применяет лучшее решение: запись в Ledger + опциональный Remediator
//   - перезапускает Processor ровно один раз
//
// Глубина лечения фиксирована: после неудачного повтора база знаний
// повторно не запрашивается.
//
// # Ledger
//
// Журнал SolutionAttempt по task. MemoryLedger живёт только в памяти
// процесса и ограничен по размеру (LRU) и времени жизни записи (TTL).
//
//	ledger := healing.NewMemoryLedger(1024, 24*time.Hour)
//	exec := healing.NewExecutor(healing.ExecutorConfig{
//	    Store:  client,
//	    Ledger: ledger,
//	})
//
//	ok := exec.Execute(ctx, task, processor)
package healing
