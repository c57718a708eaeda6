package domain

// TaskStatus — статус task в task store.
//
// Жизненный цикл:
//
//	TODO → IN_PROGRESS → DONE
//	                   ↘ FAILED (retry исчерпаны, task ушёл в DLQ)
type TaskStatus string

const (
	// TaskStatusTodo — task ожидает выполнения.
	TaskStatusTodo TaskStatus = "TODO"

	// TaskStatusInProgress — task взят агентом в работу.
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"

	// TaskStatusDone — task успешно выполнен.
	TaskStatusDone TaskStatus = "DONE"

	// TaskStatusFailed — task не удалось выполнить даже после self-healing.
	TaskStatusFailed TaskStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusDone, TaskStatusFailed:
		return true
	default:
		return false
	}
}
