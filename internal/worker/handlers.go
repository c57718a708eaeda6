package worker

import (
	"context"
	"log/slog"
	"maps"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shaiso/Remedy/internal/domain"
	"github.com/shaiso/Remedy/internal/mq"
	"github.com/shaiso/Remedy/internal/telemetry"
)

// handleDelivery — конвейер одной доставки: envelope → resolve → execute → outcome.
//
// Единственное место, где решается ack/nack.
func (w *Worker) handleDelivery(ctx context.Context, d *mq.Delivery) (outcome mq.Outcome) {
	defer func() {
		telemetry.DeliveriesTotal.WithLabelValues(outcome.String()).Inc()
	}()

	if w.IsStopped() {
		return mq.OutcomeRequeue
	}

	taskID := strings.TrimSpace(d.Envelope.TaskID())
	attempt := d.Attempt()
	logger := telemetry.WithAttempt(telemetry.WithTaskID(w.logger, taskID), attempt)

	// Текущая доставка доводится до конца даже после Stop
	ctx = telemetry.WithLogger(context.WithoutCancel(ctx), logger)

	ctx, span := telemetry.Tracer().Start(ctx, "remedy.delivery",
		trace.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.Int("task.attempt", attempt),
		),
	)
	defer func() {
		span.SetAttributes(attribute.String("delivery.outcome", outcome.String()))
		span.End()
	}()

	if taskID == "" {
		logger.Warn("message without task id, dead-lettering")
		span.SetStatus(codes.Error, "empty task id")
		return w.deadLetter(ctx, d, "", attempt)
	}

	// 1. Отложенная task: переопубликовать с остатком задержки
	if remaining := mq.RemainingDelay(d.Envelope, w.now()); remaining > 0 {
		return w.postpone(ctx, d, remaining)
	}

	// 2. Загружаем task
	task, err := w.store.GetTask(ctx, taskID)
	if err != nil || task == nil {
		logger.Warn("failed to resolve task, requeueing", "error", err)
		if err != nil {
			span.RecordError(err)
		}
		return mq.OutcomeRequeue
	}
	if task.ID == "" {
		task.ID = taskID
	}
	warnDelayMismatch(logger, task, d.Envelope)

	logger.Info("task started", "type", task.Type)

	// 3. Выполняем с self-healing
	w.updateStatus(ctx, task.ID, domain.TaskStatusInProgress)

	start := time.Now()
	ok := w.executor.Execute(ctx, task, w.processor)
	telemetry.TaskDuration.Observe(time.Since(start).Seconds())

	if ok {
		w.updateStatus(ctx, task.ID, domain.TaskStatusDone)
		logger.Info("task completed", "duration", time.Since(start))
		return mq.OutcomeAck
	}

	span.SetStatus(codes.Error, "task failed")
	return w.handleFailure(ctx, d, task.ID, attempt)
}

// warnDelayMismatch логирует расхождение delayUntil в записи task и в сообщении.
// Решение об откладывании принимается только по сообщению.
func warnDelayMismatch(logger *slog.Logger, task *domain.Task, env mq.Envelope) {
	recordAt, ok := task.ReadyAt()
	if !ok {
		return
	}
	msgAt, msgOk := env.DelayUntil()
	if msgOk && msgAt.Equal(recordAt) {
		return
	}
	logger.Warn("task delayUntil differs from message",
		"task_delay_until", recordAt,
		"message_delay_until", msgAt,
	)
}

// postpone переопубликовывает доставку с задержкой и отбрасывает оригинал.
func (w *Worker) postpone(ctx context.Context, d *mq.Delivery, remaining time.Duration) mq.Outcome {
	logger := telemetry.FromContext(ctx)

	if err := w.publisher.PublishDelayed(ctx, d.Body(), remaining, d.Headers()); err != nil {
		logger.Error("failed to republish delayed task, requeueing", "delay", remaining, "error", err)
		return mq.OutcomeRequeue
	}

	telemetry.RepublishedTotal.WithLabelValues("delay").Inc()
	logger.Info("task postponed", "delay", remaining)
	return mq.OutcomeDiscard
}

// handleFailure применяет политику повторов к невылеченной task.
func (w *Worker) handleFailure(ctx context.Context, d *mq.Delivery, taskID string, attempt int) mq.Outcome {
	logger := telemetry.FromContext(ctx)

	if w.retry.MaxAttempts == 0 {
		logger.Warn("task failed, requeueing")
		return mq.OutcomeRequeue
	}

	if attempt >= w.retry.MaxAttempts {
		logger.Error("task failed, attempts exhausted", "max_attempts", w.retry.MaxAttempts)
		outcome := w.deadLetter(ctx, d, taskID, attempt)
		if outcome == mq.OutcomeDiscard {
			w.updateStatus(ctx, taskID, domain.TaskStatusFailed)
		}
		return outcome
	}

	delay := calculateBackoff(attempt, w.retry)
	headers := maps.Clone(d.Headers())
	headers[mq.HeaderAttempt] = int32(attempt + 1)

	if err := w.publisher.PublishDelayed(ctx, d.Body(), delay, headers); err != nil {
		logger.Error("failed to republish task for retry, requeueing", "error", err)
		return mq.OutcomeRequeue
	}

	telemetry.RepublishedTotal.WithLabelValues("retry").Inc()
	logger.Warn("task failed, retry scheduled",
		"next_attempt", attempt+1,
		"delay", delay,
	)
	return mq.OutcomeDiscard
}

// deadLetter публикует доставку в DLQ. При ошибке публикации — requeue.
func (w *Worker) deadLetter(ctx context.Context, d *mq.Delivery, taskID string, attempt int) mq.Outcome {
	headers := maps.Clone(d.Headers())
	headers[mq.HeaderTaskID] = taskID
	headers[mq.HeaderAttempt] = int32(attempt)
	headers[mq.HeaderFailedAt] = w.now().UTC().Format(time.RFC3339)

	if err := w.publisher.PublishDeadLetter(ctx, d.Body(), headers); err != nil {
		telemetry.FromContext(ctx).Error("failed to dead-letter task, requeueing", "error", err)
		return mq.OutcomeRequeue
	}

	telemetry.RepublishedTotal.WithLabelValues("dead_letter").Inc()
	return mq.OutcomeDiscard
}

// updateStatus сообщает статус task в task store (best-effort).
func (w *Worker) updateStatus(ctx context.Context, taskID string, status domain.TaskStatus) {
	if err := w.store.UpdateStatus(ctx, taskID, status); err != nil {
		telemetry.FromContext(ctx).Warn("failed to update task status",
			"status", status,
			"error", err,
		)
	}
}

// calculateBackoff вычисляет задержку перед повторной доставкой.
func calculateBackoff(attempt int, policy RetryPolicy) time.Duration {
	initialDelay := policy.InitialDelay
	if initialDelay <= 0 {
		initialDelay = defaultRetryDelay
	}

	maxDelay := policy.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxRetryDelay
	}

	if attempt < 1 {
		attempt = 1
	}

	delay := initialDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	return min(delay, maxDelay)
}
