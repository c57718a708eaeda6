package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultRabbitURL       = "amqp://localhost"
	DefaultQueue           = "tasks.todo"
	DefaultDelayExchange   = "tasks.delayed"
	DefaultLedgerSize      = 1024
	DefaultLedgerTTL       = 24 * time.Hour
	DefaultShutdownTimeout = 5 * time.Second
	DefaultHTTPTimeout     = 30 * time.Second
	DefaultRetryDelay      = time.Second
	DefaultRetryMaxDelay   = 30 * time.Second
	DefaultPort            = "8082"
	DefaultServiceName     = "remedy-worker"
	DefaultSampling        = "always_on"
	DefaultSamplingRatio   = 0.1
)

// Стратегии сэмплирования трейсов (OTEL_SAMPLING_STRATEGY).
var samplingStrategies = []string{"always_on", "always_off", "trace_id_ratio"}

// Config — конфигурация агента.
type Config struct {
	// RabbitMQ
	RabbitURL     string
	Queue         string
	DelayExchange string

	// Task store
	APIBaseURL  string
	AgentID     string
	APIKey      string
	HTTPTimeout time.Duration

	// Повторы
	MaxAttempts   int
	RetryDelay    time.Duration
	RetryMaxDelay time.Duration

	// Solution ledger
	LedgerSize int
	LedgerTTL  time.Duration

	// Lifecycle
	ShutdownTimeout time.Duration
	Port            string

	// Tracing. Пустой OTLPEndpoint — экспорт выключен.
	OTLPEndpoint     string
	ServiceName      string
	SamplingStrategy string
	SamplingRatio    float64
}

// LookupFunc — источник переменных окружения (os.LookupEnv в production).
type LookupFunc func(key string) (string, bool)

// Load читает конфигурацию из окружения процесса.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom читает конфигурацию из lookup.
//
// Все ошибки собираются вместе, чтобы при старте было видно
// сразу все проблемы конфигурации.
func LoadFrom(lookup LookupFunc) (*Config, error) {
	r := reader{lookup: lookup}

	cfg := &Config{
		RabbitURL:     r.str("RABBITMQ_URL", DefaultRabbitURL),
		Queue:         r.str("RABBITMQ_TASKS_QUEUE", DefaultQueue),
		DelayExchange: r.optional("RABBITMQ_DELAY_EXCHANGE", DefaultDelayExchange),

		APIBaseURL:  strings.TrimRight(r.required("DEVART_API_BASE_URL"), "/"),
		AgentID:     r.required("DEVART_AGENT_ID"),
		APIKey:      r.required("DEVART_API_KEY"),
		HTTPTimeout: r.duration("REMEDY_HTTP_TIMEOUT", DefaultHTTPTimeout),

		MaxAttempts:   r.requiredInt("REMEDY_MAX_ATTEMPTS"),
		RetryDelay:    r.duration("REMEDY_RETRY_DELAY", DefaultRetryDelay),
		RetryMaxDelay: r.duration("REMEDY_RETRY_MAX_DELAY", DefaultRetryMaxDelay),

		LedgerSize: r.positiveInt("REMEDY_LEDGER_SIZE", DefaultLedgerSize),
		LedgerTTL:  r.duration("REMEDY_LEDGER_TTL", DefaultLedgerTTL),

		ShutdownTimeout: r.duration("REMEDY_SHUTDOWN_TIMEOUT", DefaultShutdownTimeout),
		Port:            r.str("WORKER_PORT", DefaultPort),

		OTLPEndpoint:     r.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:      r.str("OTEL_SERVICE_NAME", DefaultServiceName),
		SamplingStrategy: r.oneOf("OTEL_SAMPLING_STRATEGY", DefaultSampling, samplingStrategies),
		SamplingRatio:    r.ratio("OTEL_SAMPLING_RATIO", DefaultSamplingRatio),
	}

	if err := errors.Join(r.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// reader читает переменные и копит ошибки.
type reader struct {
	lookup LookupFunc
	errs   []error
}

// str возвращает значение или def, если переменная пуста.
func (r *reader) str(key, def string) string {
	v, _ := r.lookup(key)
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

// optional возвращает def только если переменная не задана вовсе.
// Явно пустое значение сохраняется.
func (r *reader) optional(key, def string) string {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	return strings.TrimSpace(v)
}

func (r *reader) required(key string) string {
	v := r.str(key, "")
	if v == "" {
		r.errs = append(r.errs, fmt.Errorf("%w: %s", ErrMissingConfig, key))
	}
	return v
}

func (r *reader) requiredInt(key string) int {
	v := r.str(key, "")
	if v == "" {
		r.errs = append(r.errs, fmt.Errorf("%w: %s", ErrMissingConfig, key))
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		r.errs = append(r.errs, fmt.Errorf("%w: %s=%q: want non-negative integer", ErrInvalidConfig, key, v))
		return 0
	}
	return n
}

func (r *reader) positiveInt(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		r.errs = append(r.errs, fmt.Errorf("%w: %s=%q: want positive integer", ErrInvalidConfig, key, v))
		return def
	}
	return n
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		r.errs = append(r.errs, fmt.Errorf("%w: %s=%q: want positive duration", ErrInvalidConfig, key, v))
		return def
	}
	return d
}

func (r *reader) oneOf(key, def string, allowed []string) string {
	v := strings.ToLower(r.str(key, def))
	if !slices.Contains(allowed, v) {
		r.errs = append(r.errs, fmt.Errorf("%w: %s=%q: want one of %s", ErrInvalidConfig, key, v, strings.Join(allowed, ", ")))
		return def
	}
	return v
}

func (r *reader) ratio(key string, def float64) float64 {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f > 1 {
		r.errs = append(r.errs, fmt.Errorf("%w: %s=%q: want number in [0, 1]", ErrInvalidConfig, key, v))
		return def
	}
	return f
}
