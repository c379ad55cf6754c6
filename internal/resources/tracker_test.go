package resources

import (
	"context"
	"errors"
	"testing"

	"github.com/alitto/pond/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sumitpatel93/ledger-harness/internal/balances"
	"github.com/sumitpatel93/ledger-harness/internal/ledger"
	"github.com/sumitpatel93/ledger-harness/internal/ledger/memledger"
	"github.com/sumitpatel93/ledger-harness/internal/metrics"
	"github.com/sumitpatel93/ledger-harness/internal/publisher"
	"github.com/sumitpatel93/ledger-harness/internal/store"
	"github.com/sumitpatel93/ledger-harness/internal/transactions"
)

type flusherMock struct {
	mock.Mock
}

func (f *flusherMock) Flush(ctx context.Context) error {
	return f.Called(ctx).Error(0)
}

type clearerMock struct {
	cleared int
}

func (c *clearerMock) Clear() { c.cleared++ }

func TestNewTracker(t *testing.T) {
	_, err := NewTracker(TrackerOptions{})
	assert.EqualError(t, err, "validating tracker options: pipeline cannot be nil")

	_, err = NewTracker(TrackerOptions{Pipeline: transactions.NewPipelineMock(t), Publisher: &flusherMock{}, Balances: &clearerMock{}})
	assert.EqualError(t, err, "validating tracker options: metrics service cannot be nil")
}

func TestTeardownAgainstNetwork(t *testing.T) {
	ctx := context.Background()
	network := memledger.NewNetwork()
	operatorID, operatorKey, err := network.Genesis(100)
	require.NoError(t, err)
	client := network.NewClient()
	require.NoError(t, client.SetOperator(operatorID, operatorKey))

	metricsService := metrics.NewMetricsService(nil)
	pipeline, err := transactions.NewPipeline(transactions.PipelineOptions{Client: client, MetricsService: metricsService})
	require.NoError(t, err)
	pool := pond.NewPool(2)
	defer pool.StopAndWait()
	pub := publisher.NewPublisher(pipeline, pool, metricsService)
	cache := balances.NewCache(client, metricsService)

	tracker, err := NewTracker(TrackerOptions{
		Pipeline:       pipeline,
		Publisher:      pub,
		Balances:       cache,
		MetricsService: metricsService,
		RunID:          "run",
		Scenario:       "teardown",
	})
	require.NoError(t, err)

	receipt, err := pipeline.Execute(ctx, &ledger.TopicCreate{AdminKey: operatorKey.PublicKey()})
	require.NoError(t, err)
	topicID := *receipt.TopicID
	tracker.TrackTopic(topicID)

	accountKey, err := client.GeneratePrivateKey()
	require.NoError(t, err)
	receipt, err = pipeline.Execute(ctx, &ledger.AccountCreate{Key: accountKey.PublicKey(), InitialBalance: ledger.HbarToTinybar(10)})
	require.NoError(t, err)
	accountID := *receipt.AccountID
	tracker.TrackAccount(accountID, accountKey)

	require.NoError(t, pub.Publish(ctx, "pending", topicID, nil))
	_, err = cache.Get(ctx, operatorID)
	require.NoError(t, err)

	require.NoError(t, tracker.Teardown(ctx, operatorID))

	assert.Len(t, network.Messages(topicID), 1)
	assert.False(t, network.TopicExists(topicID))
	assert.False(t, network.AccountExists(accountID))
	assert.Empty(t, tracker.Topics())
	assert.Empty(t, tracker.Accounts())
	assert.Equal(t, 0, cache.Len())

	balance, err := client.QueryBalance(ctx, operatorID)
	require.NoError(t, err)
	assert.Equal(t, ledger.HbarToTinybar(100), balance.Hbars)
}

func TestTeardownContinuesOnError(t *testing.T) {
	ctx := context.Background()
	accountKey, err := memledger.GeneratePrivateKey()
	require.NoError(t, err)
	adminKey, err := memledger.GeneratePrivateKey()
	require.NoError(t, err)

	unauthorized := &ledger.ReceiptStatusError{Status: ledger.StatusUnauthorized}
	pipeline := transactions.NewPipelineMock(t)
	pipeline.
		On("Execute", ctx, &ledger.TopicDelete{TopicID: "0.0.10"}, []ledger.PrivateKey{adminKey}).
		Return(ledger.Receipt{}, unauthorized).
		Once()
	pipeline.
		On("Execute", ctx, &ledger.TopicDelete{TopicID: "0.0.11"}, []ledger.PrivateKey(nil)).
		Return(ledger.Receipt{Status: ledger.StatusSuccess}, nil).
		Once()
	pipeline.
		On("Execute", ctx, &ledger.AccountDelete{AccountID: "0.0.20", TransferAccountID: "0.0.2"}, []ledger.PrivateKey{accountKey}).
		Return(ledger.Receipt{}, errors.New("connection reset")).
		Once()

	flusher := &flusherMock{}
	flusher.On("Flush", ctx).Return(errors.New("flush failed")).Once()
	defer flusher.AssertExpectations(t)

	leaks := store.NewLeakStoreMock(t)
	leaks.
		On("Record", ctx, store.Leak{RunID: "run", Scenario: "s", Kind: store.KindTopic, EntityID: "0.0.10", PrivateKey: adminKey.String(), Reason: "UNAUTHORIZED"}).
		Return("leak-1", nil).
		Once()
	leaks.
		On("Record", ctx, mock.MatchedBy(func(leak store.Leak) bool {
			return leak.Kind == store.KindAccount && leak.EntityID == "0.0.20" && leak.PrivateKey == accountKey.String()
		})).
		Return("", errors.New("disk full")).
		Once()

	cache := &clearerMock{}
	tracker, err := NewTracker(TrackerOptions{
		Pipeline:       pipeline,
		Publisher:      flusher,
		Balances:       cache,
		MetricsService: metrics.NewMetricsService(nil),
		LeakStore:      leaks,
		RunID:          "run",
		Scenario:       "s",
	})
	require.NoError(t, err)

	tracker.TrackTopic("0.0.10", adminKey)
	tracker.TrackTopic("0.0.11")
	tracker.TrackAccount("0.0.20", accountKey)
	tracker.TrackAccount("0.0.2", accountKey)

	err = tracker.Teardown(ctx, "0.0.2")
	require.Error(t, err)
	assert.ErrorContains(t, err, "flushing pending messages: flush failed")
	assert.True(t, ledger.IsStatus(err, ledger.StatusUnauthorized))
	assert.ErrorContains(t, err, "reclaiming account 0.0.20: connection reset")
	assert.ErrorContains(t, err, "recording leaked account 0.0.20: disk full")
	assert.Equal(t, 1, cache.cleared)
	assert.Empty(t, tracker.Topics())
}

func TestTeardownWithoutBeneficiary(t *testing.T) {
	ctx := context.Background()
	accountKey, err := memledger.GeneratePrivateKey()
	require.NoError(t, err)

	flusher := &flusherMock{}
	flusher.On("Flush", ctx).Return(nil).Once()
	defer flusher.AssertExpectations(t)

	tracker, err := NewTracker(TrackerOptions{
		Pipeline:       transactions.NewPipelineMock(t),
		Publisher:      flusher,
		Balances:       &clearerMock{},
		MetricsService: metrics.NewMetricsService(nil),
	})
	require.NoError(t, err)
	tracker.TrackAccount("0.0.20", accountKey)

	err = tracker.Teardown(ctx, "")
	assert.EqualError(t, err, "reclaiming account 0.0.20: no beneficiary account")
}
