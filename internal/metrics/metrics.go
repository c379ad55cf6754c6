package metrics

import (
	"fmt"

	"github.com/alitto/pond/v2"
	"github.com/dlmiddlecote/sqlstats"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

type MetricsService interface {
	RegisterPoolMetrics(channel string, pool pond.Pool)
	GetRegistry() *prometheus.Registry
	// Transaction pipeline metrics
	ObserveTransactionDuration(kind string, duration float64)
	IncTransactions(kind, status string)
	// Balance cache metrics
	IncBalanceCacheHit()
	IncBalanceCacheMiss()
	IncBalanceQueryError()
	// Publisher metrics
	IncMessagesQueued()
	IncMessagesPublished(success bool)
	ObserveFlushBatchSize(size int)
	// Subscription metrics
	ObserveSubscriptionWait(outcome string, duration float64)
	IncActiveSubscriptions()
	DecActiveSubscriptions()
	// Scenario metrics
	IncScenarios(status string)
	ObserveScenarioDuration(status string, duration float64)
	IncTeardownFailures(kind string)
	IncResourcesTracked(kind string)
}

// metricsService handles all metrics of a harness run.
type metricsService struct {
	registry *prometheus.Registry
	db       *sqlx.DB

	// Transaction Pipeline Metrics
	transactionDuration *prometheus.HistogramVec
	transactionsTotal   *prometheus.CounterVec

	// Balance Cache Metrics
	balanceCacheHits   prometheus.Counter
	balanceCacheMisses prometheus.Counter
	balanceQueryErrors prometheus.Counter

	// Publisher Metrics
	messagesQueued    prometheus.Counter
	messagesPublished *prometheus.CounterVec
	flushBatchSize    prometheus.Histogram

	// Subscription Metrics
	subscriptionWait    *prometheus.HistogramVec
	activeSubscriptions prometheus.Gauge

	// Scenario Metrics
	scenariosTotal   *prometheus.CounterVec
	scenarioDuration *prometheus.HistogramVec
	teardownFailures *prometheus.CounterVec
	resourcesTracked *prometheus.CounterVec
}

// NewMetricsService creates a new metrics service with all metrics registered. db is the leak
// store connection; its pool statistics are exported when it is not nil.
func NewMetricsService(db *sqlx.DB) MetricsService {
	m := &metricsService{
		registry: prometheus.NewRegistry(),
		db:       db,
	}

	// Transaction Pipeline Metrics
	m.transactionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harness_transaction_duration_seconds",
			Help:    "Duration from freeze to receipt of a ledger transaction",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"kind"},
	)
	m.transactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harness_transactions_total",
			Help: "Total number of ledger transactions by receipt status",
		},
		[]string{"kind", "status"},
	)

	// Balance Cache Metrics
	m.balanceCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "harness_balance_cache_hits_total",
			Help: "Total number of balance lookups served from the cache",
		},
	)
	m.balanceCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "harness_balance_cache_misses_total",
			Help: "Total number of balance lookups that queried the network",
		},
	)
	m.balanceQueryErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "harness_balance_query_errors_total",
			Help: "Total number of failed balance queries",
		},
	)

	// Publisher Metrics
	m.messagesQueued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "harness_messages_queued_total",
			Help: "Total number of topic messages enqueued for batched publishing",
		},
	)
	m.messagesPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harness_messages_published_total",
			Help: "Total number of topic messages submitted",
		},
		[]string{"success"},
	)
	m.flushBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "harness_flush_batch_size",
			Help:    "Number of messages submitted per flush",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		},
	)

	// Subscription Metrics
	m.subscriptionWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harness_subscription_wait_seconds",
			Help:    "Time spent waiting for an expected topic message",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"outcome"},
	)
	m.activeSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "harness_subscriptions_active",
			Help: "Number of topic subscriptions currently open",
		},
	)

	// Scenario Metrics
	m.scenariosTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harness_scenarios_total",
			Help: "Total number of scenarios run by outcome",
		},
		[]string{"status"},
	)
	m.scenarioDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harness_scenario_duration_seconds",
			Help:    "Duration of a scenario including teardown",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"status"},
	)
	m.teardownFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harness_teardown_failures_total",
			Help: "Total number of resources that could not be reclaimed during teardown",
		},
		[]string{"kind"},
	)
	m.resourcesTracked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harness_resources_tracked_total",
			Help: "Total number of ledger entities created by scenarios",
		},
		[]string{"kind"},
	)

	m.registerMetrics()
	return m
}

func (m *metricsService) registerMetrics() {
	if m.db != nil {
		m.registry.MustRegister(sqlstats.NewStatsCollector("ledger-harness-db", m.db))
	}
	m.registry.MustRegister(
		m.transactionDuration,
		m.transactionsTotal,
		m.balanceCacheHits,
		m.balanceCacheMisses,
		m.balanceQueryErrors,
		m.messagesQueued,
		m.messagesPublished,
		m.flushBatchSize,
		m.subscriptionWait,
		m.activeSubscriptions,
		m.scenariosTotal,
		m.scenarioDuration,
		m.teardownFailures,
		m.resourcesTracked,
	)
}

// RegisterPoolMetrics registers a worker pool for metrics collection
func (m *metricsService) RegisterPoolMetrics(channel string, pool pond.Pool) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "pool_workers_running",
			Help:        "Number of running worker goroutines",
			ConstLabels: prometheus.Labels{"channel": channel},
		},
		func() float64 {
			return float64(pool.RunningWorkers())
		},
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name:        "pool_tasks_submitted_total",
			Help:        "Number of tasks submitted",
			ConstLabels: prometheus.Labels{"channel": channel},
		},
		func() float64 {
			return float64(pool.SubmittedTasks())
		},
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "pool_tasks_waiting",
			Help:        "Number of tasks currently waiting in the queue",
			ConstLabels: prometheus.Labels{"channel": channel},
		},
		func() float64 {
			return float64(pool.WaitingTasks())
		},
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name:        "pool_tasks_successful_total",
			Help:        "Number of tasks that completed successfully",
			ConstLabels: prometheus.Labels{"channel": channel},
		},
		func() float64 {
			return float64(pool.SuccessfulTasks())
		},
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name:        "pool_tasks_failed_total",
			Help:        "Number of tasks that completed with panic",
			ConstLabels: prometheus.Labels{"channel": channel},
		},
		func() float64 {
			return float64(pool.FailedTasks())
		},
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name:        "pool_tasks_completed_total",
			Help:        "Number of tasks that completed either successfully or with panic",
			ConstLabels: prometheus.Labels{"channel": channel},
		},
		func() float64 {
			return float64(pool.CompletedTasks())
		},
	))
}

// GetRegistry returns the prometheus registry
func (m *metricsService) GetRegistry() *prometheus.Registry {
	return m.registry
}

// Transaction Pipeline Metrics

func (m *metricsService) ObserveTransactionDuration(kind string, duration float64) {
	m.transactionDuration.WithLabelValues(kind).Observe(duration)
}

func (m *metricsService) IncTransactions(kind, status string) {
	m.transactionsTotal.WithLabelValues(kind, status).Inc()
}

// Balance Cache Metrics

func (m *metricsService) IncBalanceCacheHit() {
	m.balanceCacheHits.Inc()
}

func (m *metricsService) IncBalanceCacheMiss() {
	m.balanceCacheMisses.Inc()
}

func (m *metricsService) IncBalanceQueryError() {
	m.balanceQueryErrors.Inc()
}

// Publisher Metrics

func (m *metricsService) IncMessagesQueued() {
	m.messagesQueued.Inc()
}

func (m *metricsService) IncMessagesPublished(success bool) {
	m.messagesPublished.WithLabelValues(fmt.Sprintf("%t", success)).Inc()
}

func (m *metricsService) ObserveFlushBatchSize(size int) {
	m.flushBatchSize.Observe(float64(size))
}

// Subscription Metrics

func (m *metricsService) ObserveSubscriptionWait(outcome string, duration float64) {
	m.subscriptionWait.WithLabelValues(outcome).Observe(duration)
}

func (m *metricsService) IncActiveSubscriptions() {
	m.activeSubscriptions.Inc()
}

func (m *metricsService) DecActiveSubscriptions() {
	m.activeSubscriptions.Dec()
}

// Scenario Metrics

func (m *metricsService) IncScenarios(status string) {
	m.scenariosTotal.WithLabelValues(status).Inc()
}

func (m *metricsService) ObserveScenarioDuration(status string, duration float64) {
	m.scenarioDuration.WithLabelValues(status).Observe(duration)
}

func (m *metricsService) IncTeardownFailures(kind string) {
	m.teardownFailures.WithLabelValues(kind).Inc()
}

func (m *metricsService) IncResourcesTracked(kind string) {
	m.resourcesTracked.WithLabelValues(kind).Inc()
}
