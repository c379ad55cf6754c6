package metrics

import (
	"github.com/alitto/pond/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
)

// MockMetricsService is a mock implementation of MetricsService
type MockMetricsService struct {
	mock.Mock
}

var _ MetricsService = (*MockMetricsService)(nil)

// NewMockMetricsService creates a new mock metrics service
func NewMockMetricsService() *MockMetricsService {
	return &MockMetricsService{}
}

func (m *MockMetricsService) RegisterPoolMetrics(channel string, pool pond.Pool) {
	m.Called(channel, pool)
}

func (m *MockMetricsService) GetRegistry() *prometheus.Registry {
	args := m.Called()
	return args.Get(0).(*prometheus.Registry)
}

func (m *MockMetricsService) ObserveTransactionDuration(kind string, duration float64) {
	m.Called(kind, duration)
}

func (m *MockMetricsService) IncTransactions(kind, status string) {
	m.Called(kind, status)
}

func (m *MockMetricsService) IncBalanceCacheHit() {
	m.Called()
}

func (m *MockMetricsService) IncBalanceCacheMiss() {
	m.Called()
}

func (m *MockMetricsService) IncBalanceQueryError() {
	m.Called()
}

func (m *MockMetricsService) IncMessagesQueued() {
	m.Called()
}

func (m *MockMetricsService) IncMessagesPublished(success bool) {
	m.Called(success)
}

func (m *MockMetricsService) ObserveFlushBatchSize(size int) {
	m.Called(size)
}

func (m *MockMetricsService) ObserveSubscriptionWait(outcome string, duration float64) {
	m.Called(outcome, duration)
}

func (m *MockMetricsService) IncActiveSubscriptions() {
	m.Called()
}

func (m *MockMetricsService) DecActiveSubscriptions() {
	m.Called()
}

func (m *MockMetricsService) IncScenarios(status string) {
	m.Called(status)
}

func (m *MockMetricsService) ObserveScenarioDuration(status string, duration float64) {
	m.Called(status, duration)
}

func (m *MockMetricsService) IncTeardownFailures(kind string) {
	m.Called(kind)
}

func (m *MockMetricsService) IncResourcesTracked(kind string) {
	m.Called(kind)
}
