package domain

import "time"

// Task — единица работы, которую агент получает из очереди.
//
// Task создаётся и хранится во внешнем task store. Worker получает
// read-only копию на время одного цикла обработки и отбрасывает её
// после ack/nack.
type Task struct {
	// ID — идентификатор task в task store.
	ID string `json:"id"`

	// Title — короткое название задачи.
	Title string `json:"title"`

	// Description — описание задачи.
	Description string `json:"description"`

	// Status — текущий статус в task store (TODO, IN_PROGRESS, DONE, FAILED).
	Status TaskStatus `json:"status,omitempty"`

	// LastError — ошибка предыдущей неудачной попытки.
	LastError string `json:"last_error,omitempty"`

	// DelayUntil — время активации в epoch-миллисекундах (0 — без задержки).
	DelayUntil int64 `json:"delayUntil,omitempty"`

	// Type — тип задачи, по нему выбирается Processor (http, delay, ...).
	Type string `json:"type,omitempty"`

	// Payload — входные данные для Processor.
	Payload map[string]any `json:"payload,omitempty"`
}

// ReadyAt возвращает время активации task.
// Второе значение false, если задержка не задана.
func (t *Task) ReadyAt() (time.Time, bool) {
	if t.DelayUntil <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(t.DelayUntil), true
}
