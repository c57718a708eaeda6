package healing

import (
	"context"

	"github.com/shaiso/Remedy/internal/domain"
)

// Processor — стратегия обработки task, которую предоставляет приложение.
//
// nil — task выполнен, ack безопасен. Ошибка — неудача; её текст
// становится запросом к базе знаний.
type Processor interface {
	Process(ctx context.Context, task *domain.Task) error
}

// ProcessorFunc позволяет использовать функцию как Processor.
type ProcessorFunc func(ctx context.Context, task *domain.Task) error

// Process вызывает f(ctx, task).
func (f ProcessorFunc) Process(ctx context.Context, task *domain.Task) error {
	return f(ctx, task)
}

// BoolProcessor адаптирует callback вида "true — успех".
// false превращается в ErrTaskFailed.
type BoolProcessor func(ctx context.Context, task *domain.Task) bool

// Process вызывает f и переводит false в ErrTaskFailed.
func (f BoolProcessor) Process(ctx context.Context, task *domain.Task) error {
	if !f(ctx, task) {
		return ErrTaskFailed
	}
	return nil
}

// Remediator применяет найденное решение перед повторным запуском task.
//
// Ошибка означает, что решение применить не удалось, и повторного
// запуска не будет.
type Remediator interface {
	Remediate(ctx context.Context, task *domain.Task, solution domain.Solution) error
}

// RemediatorFunc позволяет использовать функцию как Remediator.
type RemediatorFunc func(ctx context.Context, task *domain.Task, solution domain.Solution) error

// Remediate вызывает f(ctx, task, solution).
func (f RemediatorFunc) Remediate(ctx context.Context, task *domain.Task, solution domain.Solution) error {
	return f(ctx, task, solution)
}
