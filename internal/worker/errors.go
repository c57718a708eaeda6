package worker

import "errors"

// Ошибки воркера.
var (
	// ErrNoConnection — воркер запущен без соединения с RabbitMQ.
	ErrNoConnection = errors.New("rabbitmq connection is required")

	// ErrAlreadyStarted — Start вызван повторно.
	ErrAlreadyStarted = errors.New("worker already started")

	// ErrWorkerStopped — воркер остановлен.
	ErrWorkerStopped = errors.New("worker stopped")

	// ErrUnknownTaskType — нет processor'а для типа task.
	ErrUnknownTaskType = errors.New("unknown task type")

	// ErrHTTPRequest — HTTP-запрос task завершился ошибкой.
	ErrHTTPRequest = errors.New("http request failed")
)
