package healing

import "errors"

// Ошибки self-healing.
var (
	// ErrTaskFailed — processor сообщил о неудаче без подробностей.
	ErrTaskFailed = errors.New("task processing failed")

	// ErrProcessorPanic — processor запаниковал.
	ErrProcessorPanic = errors.New("processor panic")
)
