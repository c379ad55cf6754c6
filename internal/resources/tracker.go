// Package resources remembers the ledger entities a scenario creates and removes them afterwards.
package resources

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/sumitpatel93/ledger-harness/internal/ledger"
	"github.com/sumitpatel93/ledger-harness/internal/metrics"
	"github.com/sumitpatel93/ledger-harness/internal/store"
	"github.com/sumitpatel93/ledger-harness/internal/transactions"
)

// Flusher publishes whatever is still queued.
type Flusher interface {
	Flush(ctx context.Context) error
}

type CacheClearer interface {
	Clear()
}

type TrackedTopic struct {
	ID        ledger.TopicID
	AdminKeys []ledger.PrivateKey
}

type TrackedAccount struct {
	ID  ledger.AccountID
	Key ledger.PrivateKey
}

type TrackerOptions struct {
	Pipeline       transactions.Pipeline
	Publisher      Flusher
	Balances       CacheClearer
	MetricsService metrics.MetricsService
	// LeakStore is optional. Without it leaks are only logged.
	LeakStore store.LeakStore
	RunID     string
	Scenario  string
}

func (o *TrackerOptions) ValidateOptions() error {
	if o.Pipeline == nil {
		return fmt.Errorf("pipeline cannot be nil")
	}
	if o.Publisher == nil {
		return fmt.Errorf("publisher cannot be nil")
	}
	if o.Balances == nil {
		return fmt.Errorf("balance cache cannot be nil")
	}
	if o.MetricsService == nil {
		return fmt.Errorf("metrics service cannot be nil")
	}
	return nil
}

// Tracker holds the topics and accounts created during a scenario, in creation order.
type Tracker struct {
	opts TrackerOptions

	mu       sync.Mutex
	topics   []TrackedTopic
	accounts []TrackedAccount
}

func NewTracker(opts TrackerOptions) (*Tracker, error) {
	if err := opts.ValidateOptions(); err != nil {
		return nil, fmt.Errorf("validating tracker options: %w", err)
	}
	return &Tracker{opts: opts}, nil
}

// TrackTopic registers a topic for deletion. adminKeys sign the deletion on top of the operator.
func (t *Tracker) TrackTopic(id ledger.TopicID, adminKeys ...ledger.PrivateKey) {
	t.mu.Lock()
	t.topics = append(t.topics, TrackedTopic{ID: id, AdminKeys: adminKeys})
	t.mu.Unlock()

	t.opts.MetricsService.IncResourcesTracked(string(store.KindTopic))
}

// TrackAccount registers an account whose balance is reclaimed at teardown.
func (t *Tracker) TrackAccount(id ledger.AccountID, key ledger.PrivateKey) {
	t.mu.Lock()
	t.accounts = append(t.accounts, TrackedAccount{ID: id, Key: key})
	t.mu.Unlock()

	t.opts.MetricsService.IncResourcesTracked(string(store.KindAccount))
}

func (t *Tracker) Topics() []TrackedTopic {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]TrackedTopic(nil), t.topics...)
}

func (t *Tracker) Accounts() []TrackedAccount {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]TrackedAccount(nil), t.accounts...)
}

func (t *Tracker) drain() ([]TrackedTopic, []TrackedAccount) {
	t.mu.Lock()
	defer t.mu.Unlock()

	topics, accounts := t.topics, t.accounts
	t.topics, t.accounts = nil, nil
	return topics, accounts
}

// Teardown flushes pending messages, deletes the tracked topics and reclaims the tracked accounts by
// deleting them in favour of beneficiary, usually the operator. Every item is attempted: failures
// are logged, counted and recorded as leaks, then returned joined. The resource set and the balance
// cache are always cleared.
func (t *Tracker) Teardown(ctx context.Context, beneficiary ledger.AccountID) error {
	var errs []error
	defer t.opts.Balances.Clear()

	if err := t.opts.Publisher.Flush(ctx); err != nil {
		log.Ctx(ctx).Warnf("⚠️ flushing pending messages during teardown: %v", err)
		errs = append(errs, fmt.Errorf("flushing pending messages: %w", err))
	}

	topics, accounts := t.drain()
	if len(topics) > 0 || len(accounts) > 0 {
		log.Ctx(ctx).Infof("🧹 tearing down %d topics and %d accounts", len(topics), len(accounts))
	}

	for _, topic := range topics {
		_, err := t.opts.Pipeline.Execute(ctx, &ledger.TopicDelete{TopicID: topic.ID}, topic.AdminKeys...)
		if err != nil {
			// Only one key fits the leak row, a sweep signs with it on top of its own operator.
			var adminKey string
			if len(topic.AdminKeys) > 0 {
				adminKey = topic.AdminKeys[0].String()
			}
			errs = append(errs, t.leak(ctx, store.KindTopic, string(topic.ID), adminKey, fmt.Errorf("deleting topic %s: %w", topic.ID, err)))
		}
	}

	for _, account := range accounts {
		if account.ID == beneficiary {
			continue
		}
		if beneficiary == "" {
			errs = append(errs, t.leak(ctx, store.KindAccount, string(account.ID), account.Key.String(), fmt.Errorf("reclaiming account %s: no beneficiary account", account.ID)))
			continue
		}

		op := &ledger.AccountDelete{AccountID: account.ID, TransferAccountID: beneficiary}
		if _, err := t.opts.Pipeline.Execute(ctx, op, account.Key); err != nil {
			errs = append(errs, t.leak(ctx, store.KindAccount, string(account.ID), account.Key.String(), fmt.Errorf("reclaiming account %s: %w", account.ID, err)))
		}
	}

	return errors.Join(errs...)
}

// leak logs, counts and records a resource teardown could not remove. It returns cause.
func (t *Tracker) leak(ctx context.Context, kind store.ResourceKind, entityID, privateKey string, cause error) error {
	log.Ctx(ctx).Warnf("⚠️ leaking %s %s: %v", kind, entityID, cause)
	t.opts.MetricsService.IncTeardownFailures(string(kind))

	if t.opts.LeakStore == nil {
		return cause
	}

	reason := cause.Error()
	if status, ok := ledger.StatusOf(cause); ok {
		reason = status.String()
	}
	_, err := t.opts.LeakStore.Record(ctx, store.Leak{
		RunID:      t.opts.RunID,
		Scenario:   t.opts.Scenario,
		Kind:       kind,
		EntityID:   entityID,
		PrivateKey: privateKey,
		Reason:     reason,
	})
	if err != nil {
		log.Ctx(ctx).Errorf("❌ recording leaked %s %s: %v", kind, entityID, err)
		return errors.Join(cause, fmt.Errorf("recording leaked %s %s: %w", kind, entityID, err))
	}
	return cause
}
