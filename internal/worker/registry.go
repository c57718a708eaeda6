package worker

import (
	"context"
	"fmt"

	"github.com/shaiso/Remedy/internal/domain"
	"github.com/shaiso/Remedy/internal/healing"
)

// Registry — реестр processor'ов по типу task.
//
// Registry сам реализует healing.Processor: выбирает processor по
// task.Type, а для task без типа — processor по умолчанию.
type Registry struct {
	processors  map[string]healing.Processor
	defaultType string
}

// NewRegistry создаёт реестр со встроенными processor'ами: http, delay.
// Task без типа обрабатывается processor'ом "delay" (имитация работы).
func NewRegistry() *Registry {
	r := &Registry{
		processors:  make(map[string]healing.Processor),
		defaultType: "delay",
	}
	r.Register("http", &HTTPProcessor{})
	r.Register("delay", &DelayProcessor{})
	return r
}

// Register добавляет processor для типа task.
func (r *Registry) Register(taskType string, p healing.Processor) {
	r.processors[taskType] = p
}

// SetDefault задаёт тип, которым обрабатываются task без поля type.
func (r *Registry) SetDefault(taskType string) {
	r.defaultType = taskType
}

// Get возвращает processor для типа task.
func (r *Registry) Get(taskType string) (healing.Processor, error) {
	if taskType == "" {
		taskType = r.defaultType
	}
	p, ok := r.processors[taskType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, taskType)
	}
	return p, nil
}

// Process выполняет task processor'ом его типа.
func (r *Registry) Process(ctx context.Context, task *domain.Task) error {
	p, err := r.Get(task.Type)
	if err != nil {
		return err
	}
	return p.Process(ctx, task)
}
