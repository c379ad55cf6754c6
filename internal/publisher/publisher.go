// Package publisher batches topic messages and submits each batch concurrently.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/sumitpatel93/ledger-harness/internal/ledger"
	"github.com/sumitpatel93/ledger-harness/internal/metrics"
	"github.com/sumitpatel93/ledger-harness/internal/transactions"
)

// BatchSize is the queue length that triggers an automatic flush.
const BatchSize = 5

// Message is a queued topic message. SigningKey is required when the topic has a submit key the
// operator does not satisfy.
type Message struct {
	TopicID    ledger.TopicID
	Contents   string
	SigningKey ledger.PrivateKey
}

func (m Message) operation() *ledger.TopicMessageSubmit {
	return &ledger.TopicMessageSubmit{TopicID: m.TopicID, Message: []byte(m.Contents)}
}

func (m Message) signers() []ledger.PrivateKey {
	if m.SigningKey == nil {
		return nil
	}
	return []ledger.PrivateKey{m.SigningKey}
}

type Publisher struct {
	pipeline       transactions.Pipeline
	pool           pond.Pool
	metricsService metrics.MetricsService

	mu    sync.Mutex
	queue []Message
}

func NewPublisher(pipeline transactions.Pipeline, pool pond.Pool, metricsService metrics.MetricsService) *Publisher {
	return &Publisher{
		pipeline:       pipeline,
		pool:           pool,
		metricsService: metricsService,
	}
}

// Publish queues a message. When the queue reaches BatchSize the batch is flushed before Publish
// returns, and the flush errors are returned.
func (p *Publisher) Publish(ctx context.Context, contents string, topicID ledger.TopicID, signingKey ledger.PrivateKey) error {
	p.mu.Lock()
	p.queue = append(p.queue, Message{TopicID: topicID, Contents: contents, SigningKey: signingKey})
	full := len(p.queue) >= BatchSize
	p.mu.Unlock()

	p.metricsService.IncMessagesQueued()
	if !full {
		return nil
	}

	if err := p.Flush(ctx); err != nil {
		return fmt.Errorf("flushing full batch: %w", err)
	}
	return nil
}

// PublishNow submits a single message immediately, bypassing the queue.
func (p *Publisher) PublishNow(ctx context.Context, contents string, topicID ledger.TopicID, signingKey ledger.PrivateKey) (ledger.Receipt, error) {
	message := Message{TopicID: topicID, Contents: contents, SigningKey: signingKey}
	receipt, err := p.pipeline.Execute(ctx, message.operation(), message.signers()...)
	p.metricsService.IncMessagesPublished(err == nil)
	if err != nil {
		return receipt, fmt.Errorf("publishing message to topic %s: %w", topicID, err)
	}
	return receipt, nil
}

// Flush drains the queue and submits every drained message concurrently. Messages queued while a
// flush runs belong to the next batch. Failures do not cancel the other submissions and are
// returned joined.
func (p *Publisher) Flush(ctx context.Context) error {
	batch := p.drain()
	if len(batch) == 0 {
		return nil
	}
	p.metricsService.ObserveFlushBatchSize(len(batch))
	log.Ctx(ctx).Debugf("📤 flushing %d messages", len(batch))

	group := p.pool.NewGroupContext(ctx)
	var (
		errs  []error
		errMu sync.Mutex
	)
	for _, message := range batch {
		group.Submit(func() {
			_, err := p.pipeline.Execute(ctx, message.operation(), message.signers()...)
			p.metricsService.IncMessagesPublished(err == nil)
			if err != nil {
				errMu.Lock()
				errs = append(errs, fmt.Errorf("publishing message to topic %s: %w", message.TopicID, err))
				errMu.Unlock()
			}
		})
	}
	waitErr := group.Wait()

	errMu.Lock()
	defer errMu.Unlock()
	if waitErr != nil {
		errs = append(errs, fmt.Errorf("waiting for batch: %w", waitErr))
	}
	if len(errs) > 0 {
		log.Ctx(ctx).Errorf("❌ %d of %d messages failed to publish", len(errs), len(batch))
		return errors.Join(errs...)
	}
	return nil
}

func (p *Publisher) drain() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	batch := p.queue
	p.queue = nil
	return batch
}

// Pending returns the number of queued messages.
func (p *Publisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.queue)
}
