package worker

import (
	"context"
	"time"

	"github.com/shaiso/Remedy/internal/domain"
	"github.com/shaiso/Remedy/internal/telemetry"
)

// DelayProcessor — processor для task типа "delay".
//
// Имитирует работу: ждёт указанное количество секунд.
// Поддерживает отмену через context.
//
// Payload:
//   - duration_sec (number): длительность в секундах (default: 1)
type DelayProcessor struct{}

// Process выполняет задержку.
func (p *DelayProcessor) Process(ctx context.Context, task *domain.Task) error {
	durationSec := getFloat(task.Payload, "duration_sec", 1)
	if durationSec <= 0 {
		durationSec = 1
	}

	duration := time.Duration(durationSec * float64(time.Second))

	telemetry.FromContext(ctx).Debug("simulating work", "duration", duration)

	select {
	case <-time.After(duration):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// getFloat извлекает число из payload с default значением.
func getFloat(m map[string]any, key string, defaultVal float64) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return defaultVal
	}
}
