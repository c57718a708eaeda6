package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики агента. Экспортируются на /metrics через promhttp.
var (
	// DeliveriesTotal — доставки из очереди по итогу (ack, requeue, discard).
	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remedy_deliveries_total",
		Help: "Deliveries handled by the task consumer, by outcome",
	}, []string{"outcome"})

	// HealingTotal — попытки self-healing по результату.
	HealingTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remedy_healing_attempts_total",
		Help: "Self-healing attempts, by result",
	}, []string{"result"})

	// RepublishedTotal — переопубликованные сообщения по причине (delay, retry, dead_letter).
	RepublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remedy_republished_total",
		Help: "Messages republished by the consumer, by reason",
	}, []string{"reason"})

	// TaskDuration — время выполнения task вместе с self-healing.
	TaskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "remedy_task_duration_seconds",
		Help:    "Time spent executing a task including self-healing",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})
)

// Значения label'а result для HealingTotal.
const (
	HealResultHealed       = "healed"
	HealResultNoSolution   = "no_solution"
	HealResultSearchFailed = "search_failed"
	HealResultApplyFailed  = "apply_failed"
	HealResultRetryFailed  = "retry_failed"
)
