// Remedy Worker — агент, выполняющий task из очереди с self-healing.
//
// Worker:
//   - Получает task из RabbitMQ (prefetch = 1)
//   - Откладывает task с delayUntil в будущем
//   - Выполняет task по типу (http, delay)
//   - При ошибке ищет решение в базе знаний и повторяет один раз
//   - Ограничивает число попыток, исчерпанные task отправляет в DLQ
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Remedy/internal/config"
	"github.com/shaiso/Remedy/internal/healing"
	"github.com/shaiso/Remedy/internal/mq"
	"github.com/shaiso/Remedy/internal/taskstore"
	"github.com/shaiso/Remedy/internal/telemetry"
	"github.com/shaiso/Remedy/internal/worker"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting remedy-worker")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// OpenTelemetry: экспорт трейсов, если задан OTEL_EXPORTER_OTLP_ENDPOINT
	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TracingConfig{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Sampling:    cfg.SamplingStrategy,
		Ratio:       cfg.SamplingRatio,
	}, logger)
	if err != nil {
		logger.Error("failed to setup tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Error("failed to shutdown tracing", "error", err)
		}
	}()

	// RabbitMQ
	mqConn, err := mq.NewConnection(cfg.RabbitURL, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	logger.Info("RabbitMQ connected")

	topology := mq.Topology{
		Queue:         cfg.Queue,
		DelayExchange: cfg.DelayExchange,
	}
	if err := mq.SetupTopology(ctx, mqConn, topology); err != nil {
		logger.Error("failed to setup topology", "error", err)
		mqConn.Close()
		os.Exit(1)
	}
	logger.Info("topology ready", "topology", topology.TopologyInfo())

	publisher := mq.NewPublisher(mqConn, logger, topology)

	// Task store и база знаний
	store := taskstore.NewClient(taskstore.Config{
		BaseURL: cfg.APIBaseURL,
		AgentID: cfg.AgentID,
		APIKey:  cfg.APIKey,
		Timeout: cfg.HTTPTimeout,
	})

	// Self-healing
	executor := healing.NewExecutor(healing.ExecutorConfig{
		Store:  store,
		Ledger: healing.NewMemoryLedger(cfg.LedgerSize, cfg.LedgerTTL),
		Logger: logger,
	})

	// Создаём worker
	w := worker.New(worker.Config{
		Conn:      mqConn,
		Queue:     cfg.Queue,
		Publisher: publisher,
		Store:     store,
		Executor:  executor,
		Processor: worker.NewRegistry(),
		Retry: worker.RetryPolicy{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: cfg.RetryDelay,
			MaxDelay:     cfg.RetryMaxDelay,
		},
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          logger,
	})

	// Запускаем worker
	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		mqConn.Close()
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		if !mqConn.IsConnected() {
			rw.WriteHeader(http.StatusServiceUnavailable)
			rw.Write([]byte("rabbitmq disconnected"))
			return
		}
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":" + cfg.Port

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем worker (закрывает соединение с RabbitMQ)
	w.Stop()
	logger.Info("remedy-worker stopped")
}
