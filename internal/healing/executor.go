package healing

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shaiso/Remedy/internal/domain"
	"github.com/shaiso/Remedy/internal/taskstore"
	"github.com/shaiso/Remedy/internal/telemetry"
)

// Store — вызовы task store, нужные для self-healing.
// Реализация: *taskstore.Client.
type Store interface {
	ReportError(ctx context.Context, taskID, errorMessage string) error
	SearchKnowledge(ctx context.Context, query string, threshold float64, limit int) ([]domain.Solution, error)
	ReportSolutionApplied(ctx context.Context, taskID, solutionID string, success bool) error
}

// Executor выполняет task и при неудаче пытается вылечить её один раз.
//
// Алгоритм:
//  1. Запуск processor'а
//  2. Ошибка → отчёт в task store (best-effort)
//  3. Поиск решений в базе знаний по тексту ошибки
//  4. Нет решений → неудача
//  5. Применение лучшего решения (первого в выдаче): запись в Ledger, Remediator
//  6. Ровно один повторный запуск processor'а
//
// Executor никогда не возвращает ошибок и не паникует: результат — bool.
type Executor struct {
	store      Store
	ledger     Ledger
	remediator Remediator
	threshold  float64
	limit      int
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// ExecutorConfig — конфигурация Executor.
type ExecutorConfig struct {
	// Store — task store и база знаний (обязательно).
	Store Store

	// Ledger — журнал применённых решений (default: NewMemoryLedger(0, 0)).
	Ledger Ledger

	// Remediator — опционально; если nil, применение решения — только запись в Ledger.
	Remediator Remediator

	// Threshold — минимальная similarity (default: 0.7).
	Threshold float64

	// Limit — максимум решений в выдаче (default: 10).
	Limit int

	// Logger
	Logger *slog.Logger

	// Now — источник времени для SolutionAttempt (для тестов).
	Now func() time.Time
}

// NewExecutor создаёт новый Executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	ledger := cfg.Ledger
	if ledger == nil {
		ledger = NewMemoryLedger(0, 0)
	}

	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = taskstore.DefaultThreshold
	}

	limit := cfg.Limit
	if limit <= 0 {
		limit = taskstore.DefaultLimit
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Executor{
		store:      cfg.Store,
		ledger:     ledger,
		remediator: cfg.Remediator,
		threshold:  threshold,
		limit:      limit,
		logger:     logger,
		tracer:     telemetry.Tracer(),
		now:        now,
	}
}

// Ledger возвращает журнал применённых решений.
func (e *Executor) Ledger() Ledger {
	return e.ledger
}

// Execute выполняет task. true — task выполнен и доставку можно подтвердить.
func (e *Executor) Execute(ctx context.Context, task *domain.Task, p Processor) bool {
	ctx, span := e.tracer.Start(ctx, "remedy.execute",
		trace.WithAttributes(attribute.String("task.id", task.ID)),
	)
	defer span.End()

	logger := telemetry.WithTaskID(e.logger, task.ID)

	err := e.run(ctx, task, p)
	if err == nil {
		return true
	}

	errMsg := err.Error()
	logger.Warn("task failed, trying self-healing", "error", errMsg)
	span.RecordError(err)

	e.reportError(ctx, logger, task.ID, errMsg)

	healed := e.heal(ctx, logger, task, p, errMsg)
	if !healed {
		span.SetStatus(codes.Error, "task not healed")
	}
	return healed
}

// heal ищет решение, применяет его и перезапускает task ровно один раз.
func (e *Executor) heal(ctx context.Context, logger *slog.Logger, task *domain.Task, p Processor, errMsg string) bool {
	ctx, span := e.tracer.Start(ctx, "remedy.heal")
	defer span.End()

	solutions, err := e.store.SearchKnowledge(ctx, errMsg, e.threshold, e.limit)
	if err != nil {
		logger.Warn("knowledge base query failed", "error", err)
		telemetry.HealingTotal.WithLabelValues(telemetry.HealResultSearchFailed).Inc()
		return false
	}

	if len(solutions) == 0 {
		logger.Info("no solutions found in knowledge base")
		telemetry.HealingTotal.WithLabelValues(telemetry.HealResultNoSolution).Inc()
		return false
	}

	// Только лучший кандидат, без перебора остальных
	solution := solutions[0]
	span.SetAttributes(
		attribute.String("solution.id", solution.ID),
		attribute.Float64("solution.similarity", solution.Similarity),
	)

	logger.Info("applying solution",
		"solution_id", solution.ID,
		"source", solution.Source,
		"similarity", solution.Similarity,
	)

	if !e.applySolution(ctx, logger, task, solution) {
		telemetry.HealingTotal.WithLabelValues(telemetry.HealResultApplyFailed).Inc()
		return false
	}

	if err := e.run(ctx, task, p); err != nil {
		logger.Warn("task failed after applying solution",
			"solution_id", solution.ID,
			"error", err,
		)
		e.reportError(ctx, logger, task.ID, err.Error())
		telemetry.HealingTotal.WithLabelValues(telemetry.HealResultRetryFailed).Inc()
		return false
	}

	logger.Info("task healed", "solution_id", solution.ID)
	telemetry.HealingTotal.WithLabelValues(telemetry.HealResultHealed).Inc()
	return true
}

// applySolution записывает попытку в Ledger и вызывает Remediator.
// Результат сообщается в task store.
func (e *Executor) applySolution(ctx context.Context, logger *slog.Logger, task *domain.Task, solution domain.Solution) bool {
	e.ledger.Append(task.ID, domain.NewSolutionAttempt(solution, e.now()))

	success := true
	if e.remediator != nil {
		if err := e.remediate(ctx, task, solution); err != nil {
			logger.Warn("failed to apply solution", "solution_id", solution.ID, "error", err)
			success = false
		}
	}

	if err := e.store.ReportSolutionApplied(ctx, task.ID, solution.ID, success); err != nil {
		logger.Warn("failed to report solution application", "solution_id", solution.ID, "error", err)
	}

	return success
}

func (e *Executor) remediate(ctx context.Context, task *domain.Task, solution domain.Solution) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("remediator panic: %v", r)
		}
	}()
	return e.remediator.Remediate(ctx, task, solution)
}

// run вызывает processor. Паника превращается в ErrProcessorPanic.
func (e *Executor) run(ctx context.Context, task *domain.Task, p Processor) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("processor panic",
				"task_id", task.ID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%w: %v", ErrProcessorPanic, r)
		}
	}()

	return p.Process(ctx, task)
}

// reportError отправляет ошибку в task store. Неудача отчёта не прерывает healing.
func (e *Executor) reportError(ctx context.Context, logger *slog.Logger, taskID, errMsg string) {
	if err := e.store.ReportError(ctx, taskID, errMsg); err != nil {
		logger.Warn("failed to report error", "error", err)
	}
}
