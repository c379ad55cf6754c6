package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sumitpatel93/ledger-harness/internal/ledger"
	"github.com/sumitpatel93/ledger-harness/internal/ledger/memledger"
	"github.com/sumitpatel93/ledger-harness/internal/metrics"
	"github.com/sumitpatel93/ledger-harness/internal/transactions"
)

type fixture struct {
	network  *memledger.Network
	pipeline transactions.Pipeline
	matcher  *Matcher
	topicID  ledger.TopicID
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	network := memledger.NewNetwork()
	operatorID, operatorKey, err := network.Genesis(100)
	require.NoError(t, err)
	client := network.NewClient()
	require.NoError(t, client.SetOperator(operatorID, operatorKey))

	metricsService := metrics.NewMetricsService(nil)
	pipeline, err := transactions.NewPipeline(transactions.PipelineOptions{Client: client, MetricsService: metricsService})
	require.NoError(t, err)
	receipt, err := pipeline.Execute(context.Background(), &ledger.TopicCreate{})
	require.NoError(t, err)

	return fixture{
		network:  network,
		pipeline: pipeline,
		matcher:  NewMatcher(client, metricsService),
		topicID:  *receipt.TopicID,
	}
}

func (f fixture) publish(message string) error {
	_, err := f.pipeline.Execute(context.Background(), &ledger.TopicMessageSubmit{TopicID: f.topicID, Message: []byte(message)})
	return err
}

func TestWaitForMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("message published before the deadline", func(t *testing.T) {
		f := newFixture(t)
		start := time.Now()
		go func() {
			time.Sleep(50 * time.Millisecond)
			assert.NoError(t, f.publish("unrelated"))
			assert.NoError(t, f.publish("hello"))
		}()

		msg, err := f.matcher.WaitForMessage(ctx, f.topicID, start, "hello", 200*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(msg.Contents))
		assert.Equal(t, uint64(2), msg.SequenceNumber)
		assert.Equal(t, 0, f.network.Subscribers(f.topicID))
	})

	t.Run("message already sequenced after the start time", func(t *testing.T) {
		f := newFixture(t)
		start := time.Now().Add(-time.Second)
		require.NoError(t, f.publish("early"))

		msg, err := f.matcher.WaitForMessage(ctx, f.topicID, start, "early", 200*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), msg.SequenceNumber)
	})

	t.Run("no message before the deadline", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.publish("something else"))

		started := time.Now()
		_, err := f.matcher.WaitForMessage(ctx, f.topicID, started.Add(-time.Second), "hello", 200*time.Millisecond)
		elapsed := time.Since(started)
		assert.ErrorIs(t, err, ErrSubscriptionTimeout)
		assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
		assert.Less(t, elapsed, 250*time.Millisecond)
		assert.Equal(t, 0, f.network.Subscribers(f.topicID))
	})

	t.Run("transport failure", func(t *testing.T) {
		f := newFixture(t)
		w, err := f.matcher.Subscribe(ctx, f.topicID, time.Now())
		require.NoError(t, err)
		f.network.FailSubscriptions(f.topicID, errors.New("stream reset"))

		_, err = w.Await(ctx, "hello", time.Second)
		var transportErr *SubscriptionTransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, f.topicID, transportErr.TopicID)
		assert.EqualError(t, err, "subscription to topic "+string(f.topicID)+" failed: stream reset")
	})

	t.Run("unknown topic", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.matcher.WaitForMessage(ctx, "0.0.9999", time.Now(), "hello", time.Second)
		var transportErr *SubscriptionTransportError
		require.ErrorAs(t, err, &transportErr)
		assert.True(t, ledger.IsStatus(err, ledger.StatusInvalidTopicID))
	})

	t.Run("cancelled context", func(t *testing.T) {
		f := newFixture(t)
		cancelCtx, cancel := context.WithCancel(ctx)
		w, err := f.matcher.Subscribe(cancelCtx, f.topicID, time.Now())
		require.NoError(t, err)
		cancel()

		_, err = w.Await(cancelCtx, "hello", time.Second)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, f.network.Subscribers(f.topicID))
	})
}

func TestWaitUnsubscribesOnce(t *testing.T) {
	ctx := context.Background()
	handle := ledger.NewSubscriptionHandleMock(t)
	handle.On("Unsubscribe").Return().Once()
	client := ledger.NewClientMock(t)
	client.
		On("SubscribeTopic", ctx, ledger.TopicID("0.0.5"), mock.Anything, mock.Anything, mock.Anything).
		Return(handle, nil).
		Once()

	w, err := NewMatcher(client, metrics.NewMetricsService(nil)).Subscribe(ctx, "0.0.5", time.Now())
	require.NoError(t, err)

	_, err = w.Await(ctx, "hello", 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrSubscriptionTimeout)
	w.Close()
}
