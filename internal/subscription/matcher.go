// Package subscription waits for an expected message to be published on a topic.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/sumitpatel93/ledger-harness/internal/ledger"
	"github.com/sumitpatel93/ledger-harness/internal/metrics"
)

const (
	DefaultTimeout = 10 * time.Second

	messageBufferSize = 64
)

var ErrSubscriptionTimeout = errors.New("timed out waiting for message")

// SubscriptionTransportError is reported when the subscription itself fails, as opposed to the
// expected message never arriving.
type SubscriptionTransportError struct {
	TopicID ledger.TopicID
	Err     error
}

func (e *SubscriptionTransportError) Error() string {
	return fmt.Sprintf("subscription to topic %s failed: %v", e.TopicID, e.Err)
}

func (e *SubscriptionTransportError) Unwrap() error {
	return e.Err
}

// Outcome is the terminal state of a wait.
type Outcome string

const (
	OutcomeMatched   Outcome = "matched"
	OutcomeTimedOut  Outcome = "timed_out"
	OutcomeError     Outcome = "error"
	OutcomeCancelled Outcome = "cancelled"
)

type Matcher struct {
	client         ledger.Client
	metricsService metrics.MetricsService
}

func NewMatcher(client ledger.Client, metricsService metrics.MetricsService) *Matcher {
	return &Matcher{client: client, metricsService: metricsService}
}

// Subscribe opens a subscription to topicID for messages with a consensus timestamp at or after
// start. The returned Wait must be awaited or closed.
func (m *Matcher) Subscribe(ctx context.Context, topicID ledger.TopicID, start time.Time) (*Wait, error) {
	w := &Wait{
		topicID:        topicID,
		metricsService: m.metricsService,
		messages:       make(chan ledger.TopicMessage, messageBufferSize),
		errs:           make(chan error, 1),
		done:           make(chan struct{}),
		subscribedAt:   time.Now(),
	}

	handle, err := m.client.SubscribeTopic(ctx, topicID, start, w.onMessage, w.onError)
	if err != nil {
		return nil, &SubscriptionTransportError{TopicID: topicID, Err: err}
	}
	w.handle = handle
	m.metricsService.IncActiveSubscriptions()

	log.Ctx(ctx).Debugf("👂 subscribed to topic %s from %s", topicID, start.Format(time.RFC3339Nano))
	return w, nil
}

// WaitForMessage subscribes to topicID and waits until a message whose text equals expected
// arrives. A timeout of zero or less means DefaultTimeout.
func (m *Matcher) WaitForMessage(ctx context.Context, topicID ledger.TopicID, start time.Time, expected string, timeout time.Duration) (ledger.TopicMessage, error) {
	w, err := m.Subscribe(ctx, topicID, start)
	if err != nil {
		return ledger.TopicMessage{}, err
	}
	return w.Await(ctx, expected, timeout)
}

// Wait is an open subscription. It is unsubscribed when Await returns or Close is called,
// whichever comes first.
type Wait struct {
	topicID        ledger.TopicID
	metricsService metrics.MetricsService
	handle         ledger.SubscriptionHandle
	messages       chan ledger.TopicMessage
	errs           chan error
	done           chan struct{}
	closeOnce      sync.Once
	subscribedAt   time.Time
}

func (w *Wait) onMessage(msg ledger.TopicMessage) {
	select {
	case w.messages <- msg:
	case <-w.done:
	}
}

func (w *Wait) onError(err error) {
	select {
	case w.errs <- err:
	case <-w.done:
	default:
	}
}

// Await blocks until a matching message arrives, the subscription fails, the timeout elapses or
// ctx is done. Non-matching messages are ignored.
func (w *Wait) Await(ctx context.Context, expected string, timeout time.Duration) (ledger.TopicMessage, error) {
	defer w.Close()

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case msg := <-w.messages:
			if string(msg.Contents) != expected {
				log.Ctx(ctx).Debugf("ignoring message #%d on topic %s: %q", msg.SequenceNumber, w.topicID, msg.Contents)
				continue
			}
			w.observe(OutcomeMatched)
			log.Ctx(ctx).Infof("📬 received %q on topic %s", expected, w.topicID)
			return msg, nil

		case err := <-w.errs:
			w.observe(OutcomeError)
			log.Ctx(ctx).Errorf("❌ subscription to topic %s failed: %v", w.topicID, err)
			return ledger.TopicMessage{}, &SubscriptionTransportError{TopicID: w.topicID, Err: err}

		case <-timer.C:
			w.observe(OutcomeTimedOut)
			return ledger.TopicMessage{}, fmt.Errorf("%w %q on topic %s after %s", ErrSubscriptionTimeout, expected, w.topicID, timeout)

		case <-ctx.Done():
			w.observe(OutcomeCancelled)
			return ledger.TopicMessage{}, fmt.Errorf("waiting for %q on topic %s: %w", expected, w.topicID, ctx.Err())
		}
	}
}

// Close unsubscribes. It is safe to call more than once.
func (w *Wait) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.handle.Unsubscribe()
		w.metricsService.DecActiveSubscriptions()
	})
}

func (w *Wait) observe(outcome Outcome) {
	w.metricsService.ObserveSubscriptionWait(string(outcome), time.Since(w.subscribedAt).Seconds())
}
