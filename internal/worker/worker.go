package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Remedy/internal/domain"
	"github.com/shaiso/Remedy/internal/healing"
	"github.com/shaiso/Remedy/internal/mq"
)

// Default configuration values.
const (
	defaultShutdownTimeout = 5 * time.Second
	defaultRetryDelay      = time.Second
	defaultMaxRetryDelay   = 30 * time.Second
)

// TaskStore — вызовы task store, которые делает воркер.
// Реализация: *taskstore.Client.
type TaskStore interface {
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) error
}

// Publisher — переопубликация сообщений. Реализация: *mq.Publisher.
type Publisher interface {
	PublishDelayed(ctx context.Context, body []byte, delay time.Duration, headers amqp.Table) error
	PublishDeadLetter(ctx context.Context, body []byte, headers amqp.Table) error
}

// RetryPolicy — задержка перед повторной доставкой неудавшейся task.
//
// delay = InitialDelay * 2^(attempt-1), не больше MaxDelay.
type RetryPolicy struct {
	// MaxAttempts — сколько раз task доставляется до отправки в DLQ.
	// 0 — без ограничения: неудача всегда возвращает сообщение в очередь.
	MaxAttempts int

	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Worker потребляет task из очереди и выполняет их с self-healing.
//
// Worker:
//   - Держит одну подписку на рабочую очередь с prefetch = 1
//   - Откладывает envelope с delayUntil в будущем
//   - Загружает task из task store
//   - Выполняет task через healing.Executor
//   - Подтверждает успех, а неудачу возвращает в очередь или отправляет в DLQ
//
// В процессе может работать несколько Worker'ов на одном Connection,
// если у них общий потокобезопасный Ledger.
type Worker struct {
	conn      *mq.Connection
	queue     string
	publisher Publisher
	store     TaskStore
	executor  *healing.Executor
	processor healing.Processor

	retry           RetryPolicy
	shutdownTimeout time.Duration

	consumer *mq.Consumer

	// Lifecycle
	logger     *slog.Logger
	now        func() time.Time
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	started    bool
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	// MQ
	Conn      *mq.Connection
	Queue     string
	Publisher Publisher

	// Task store
	Store TaskStore

	// Self-healing
	Executor  *healing.Executor
	Processor healing.Processor

	// Retry — политика повторов; MaxAttempts задаётся явно.
	Retry RetryPolicy

	// ShutdownTimeout — сколько Stop ждёт текущую доставку (default: 5s).
	ShutdownTimeout time.Duration

	// Logger
	Logger *slog.Logger

	// Now — источник времени (для тестов).
	Now func() time.Time
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	retry := cfg.Retry
	if retry.InitialDelay <= 0 {
		retry.InitialDelay = defaultRetryDelay
	}
	if retry.MaxDelay <= 0 {
		retry.MaxDelay = defaultMaxRetryDelay
	}
	if retry.MaxAttempts < 0 {
		retry.MaxAttempts = 0
	}

	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	processor := cfg.Processor
	if processor == nil {
		processor = NewRegistry()
	}

	return &Worker{
		conn:            cfg.Conn,
		queue:           cfg.Queue,
		publisher:       cfg.Publisher,
		store:           cfg.Store,
		executor:        cfg.Executor,
		processor:       processor,
		retry:           retry,
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
		now:             now,
	}
}

// Start запускает потребление в отдельной горутине и сразу возвращается.
func (w *Worker) Start(ctx context.Context) error {
	if w.conn == nil {
		return ErrNoConnection
	}

	w.stoppedMu.Lock()
	defer w.stoppedMu.Unlock()

	if w.stopped {
		return ErrWorkerStopped
	}
	if w.started {
		return ErrAlreadyStarted
	}
	w.started = true

	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker",
		"queue", w.queue,
		"max_attempts", w.retry.MaxAttempts,
		"shutdown_timeout", w.shutdownTimeout,
	)

	w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
		Queue:   w.queue,
		Handler: w.handleDelivery,
	})

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("task consumer error", "error", err)
		}
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker.
//
// Новые доставки не обрабатываются, текущая доводится до конца.
// Stop ждёт её не дольше ShutdownTimeout, затем закрывает соединение.
// Повторные вызовы возвращаются сразу.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	if w.stopped {
		w.stoppedMu.Unlock()
		return
	}
	w.stopped = true
	cancel := w.cancelFunc
	consumer := w.consumer
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if cancel != nil {
		cancel()
	}
	if consumer != nil {
		consumer.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.shutdownTimeout):
		w.logger.Warn("in-flight task did not finish before shutdown timeout",
			"timeout", w.shutdownTimeout,
		)
	}

	if w.conn != nil {
		if err := w.conn.Close(); err != nil {
			w.logger.Warn("failed to close rabbitmq connection", "error", err)
		}
	}

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}
