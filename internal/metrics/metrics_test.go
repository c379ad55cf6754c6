package metrics

import (
	"testing"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	return db
}

func gather(t *testing.T, ms MetricsService) map[string]*dto.MetricFamily {
	t.Helper()

	metricFamilies, err := ms.GetRegistry().Gather()
	require.NoError(t, err)

	families := make(map[string]*dto.MetricFamily, len(metricFamilies))
	for _, mf := range metricFamilies {
		families[mf.GetName()] = mf
	}
	return families
}

func TestNewMetricsService(t *testing.T) {
	t.Run("with db", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		ms := NewMetricsService(db)
		assert.NotNil(t, ms)
		families := gather(t, ms)
		assert.Contains(t, families, "go_sql_stats_connections_open")
	})

	t.Run("without db", func(t *testing.T) {
		ms := NewMetricsService(nil)
		assert.NotNil(t, ms.GetRegistry())
		families := gather(t, ms)
		assert.NotContains(t, families, "go_sql_stats_connections_open")
	})
}

func TestTransactionMetrics(t *testing.T) {
	ms := NewMetricsService(nil)

	ms.ObserveTransactionDuration("TokenMint", 0.3)
	ms.IncTransactions("TokenMint", "SUCCESS")
	ms.IncTransactions("TokenMint", "TOKEN_MAX_SUPPLY_REACHED")

	families := gather(t, ms)

	duration, ok := families["harness_transaction_duration_seconds"]
	require.True(t, ok)
	metric := duration.GetMetric()[0]
	assert.Equal(t, uint64(1), metric.GetHistogram().GetSampleCount())
	assert.Equal(t, 0.3, metric.GetHistogram().GetSampleSum())
	assert.Equal(t, "TokenMint", metric.GetLabel()[0].GetValue())

	total, ok := families["harness_transactions_total"]
	require.True(t, ok)
	assert.Len(t, total.GetMetric(), 2)
	for _, m := range total.GetMetric() {
		assert.Equal(t, float64(1), m.GetCounter().GetValue())
	}
}

func TestBalanceCacheMetrics(t *testing.T) {
	ms := NewMetricsService(nil)

	ms.IncBalanceCacheHit()
	ms.IncBalanceCacheHit()
	ms.IncBalanceCacheMiss()
	ms.IncBalanceQueryError()

	families := gather(t, ms)
	assert.Equal(t, float64(2), families["harness_balance_cache_hits_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, float64(1), families["harness_balance_cache_misses_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, float64(1), families["harness_balance_query_errors_total"].GetMetric()[0].GetCounter().GetValue())
}

func TestPublisherAndSubscriptionMetrics(t *testing.T) {
	ms := NewMetricsService(nil)

	for i := 0; i < 5; i++ {
		ms.IncMessagesQueued()
	}
	ms.ObserveFlushBatchSize(5)
	ms.IncMessagesPublished(true)
	ms.IncMessagesPublished(false)
	ms.IncActiveSubscriptions()
	ms.IncActiveSubscriptions()
	ms.DecActiveSubscriptions()
	ms.ObserveSubscriptionWait("matched", 0.5)

	families := gather(t, ms)
	assert.Equal(t, float64(5), families["harness_messages_queued_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, uint64(1), families["harness_flush_batch_size"].GetMetric()[0].GetHistogram().GetSampleCount())
	assert.Len(t, families["harness_messages_published_total"].GetMetric(), 2)
	assert.Equal(t, float64(1), families["harness_subscriptions_active"].GetMetric()[0].GetGauge().GetValue())

	wait := families["harness_subscription_wait_seconds"].GetMetric()[0]
	assert.Equal(t, "matched", wait.GetLabel()[0].GetValue())
	assert.Equal(t, 0.5, wait.GetHistogram().GetSampleSum())
}

func TestScenarioMetrics(t *testing.T) {
	ms := NewMetricsService(nil)

	ms.IncScenarios("passed")
	ms.ObserveScenarioDuration("passed", 2)
	ms.IncTeardownFailures("topic")
	ms.IncResourcesTracked("account")
	ms.IncResourcesTracked("account")

	families := gather(t, ms)
	assert.Equal(t, float64(1), families["harness_scenarios_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, "topic", families["harness_teardown_failures_total"].GetMetric()[0].GetLabel()[0].GetValue())
	assert.Equal(t, float64(2), families["harness_resources_tracked_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, uint64(1), families["harness_scenario_duration_seconds"].GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestPoolMetrics(t *testing.T) {
	ms := NewMetricsService(nil)

	channel := "publisher"
	pool := pond.NewPool(5)
	ms.RegisterPoolMetrics(channel, pool)

	for i := 0; i < 3; i++ {
		pool.Submit(func() {
			time.Sleep(10 * time.Millisecond)
		})
	}
	pool.StopAndWait()

	families := gather(t, ms)

	submitted := families["pool_tasks_submitted_total"].GetMetric()[0]
	assert.Equal(t, float64(3), submitted.GetCounter().GetValue())
	assert.Equal(t, channel, submitted.GetLabel()[0].GetValue())
	assert.Equal(t, float64(3), families["pool_tasks_completed_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, float64(3), families["pool_tasks_successful_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, float64(0), families["pool_tasks_failed_total"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, float64(0), families["pool_tasks_waiting"].GetMetric()[0].GetGauge().GetValue())
}
