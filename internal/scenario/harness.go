// Package scenario builds the isolated context each scenario runs in: its own ledger client,
// operator, balance cache, transaction pipeline, publisher, subscription matcher and resource
// tracker.
package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/sumitpatel93/ledger-harness/internal/accounts"
	"github.com/sumitpatel93/ledger-harness/internal/apptracker"
	"github.com/sumitpatel93/ledger-harness/internal/balances"
	"github.com/sumitpatel93/ledger-harness/internal/ledger"
	"github.com/sumitpatel93/ledger-harness/internal/metrics"
	"github.com/sumitpatel93/ledger-harness/internal/publisher"
	"github.com/sumitpatel93/ledger-harness/internal/resources"
	"github.com/sumitpatel93/ledger-harness/internal/store"
	"github.com/sumitpatel93/ledger-harness/internal/subscription"
	"github.com/sumitpatel93/ledger-harness/internal/transactions"
	"github.com/sumitpatel93/ledger-harness/internal/utils"
)

const (
	DefaultPublishWorkers = 8
	publisherPoolChannel  = "publisher"
)

type HarnessOptions struct {
	ClientFactory  ledger.ClientFactory
	Pool           accounts.Pool
	MetricsService metrics.MetricsService
	AppTracker     apptracker.AppTracker
	// LeakStore is optional. Without it teardown leaks are only logged and reported.
	LeakStore           store.LeakStore
	RunID               string
	BalanceTTL          time.Duration
	SubscriptionTimeout time.Duration
	PublishWorkers      int
}

func (o *HarnessOptions) ValidateOptions() error {
	if o.ClientFactory == nil {
		return fmt.Errorf("client factory cannot be nil")
	}
	if len(o.Pool) == 0 {
		return fmt.Errorf("account pool cannot be empty")
	}
	if o.MetricsService == nil {
		return fmt.Errorf("metrics service cannot be nil")
	}
	if o.AppTracker == nil {
		return fmt.Errorf("app tracker cannot be nil")
	}
	if o.BalanceTTL < 0 {
		return fmt.Errorf("balance TTL cannot be negative")
	}
	if o.PublishWorkers < 0 {
		return fmt.Errorf("publish workers cannot be negative")
	}
	return nil
}

// Harness is shared by every scenario of a run. It owns the worker pool the publishers flush on.
type Harness struct {
	opts        HarnessOptions
	publishPool pond.Pool
}

func NewHarness(opts HarnessOptions) (*Harness, error) {
	if err := opts.ValidateOptions(); err != nil {
		return nil, fmt.Errorf("validating harness options: %w", err)
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.BalanceTTL == 0 {
		opts.BalanceTTL = balances.DefaultTTL
	}
	if opts.SubscriptionTimeout <= 0 {
		opts.SubscriptionTimeout = subscription.DefaultTimeout
	}
	if opts.PublishWorkers == 0 {
		opts.PublishWorkers = DefaultPublishWorkers
	}

	publishPool := pond.NewPool(opts.PublishWorkers)
	opts.MetricsService.RegisterPoolMetrics(publisherPoolChannel, publishPool)

	return &Harness{opts: opts, publishPool: publishPool}, nil
}

func (h *Harness) RunID() string {
	return h.opts.RunID
}

// NewWorld opens a client for the scenario called name and wires its collaborators. The world
// has no operator until Resolve is called. The returned context carries a logger tagged with the
// run and scenario.
func (h *Harness) NewWorld(ctx context.Context, name string) (_ context.Context, _ *World, err error) {
	client, err := h.opts.ClientFactory()
	if err != nil {
		return ctx, nil, fmt.Errorf("opening ledger client for scenario %q: %w", name, err)
	}
	defer func() {
		if err != nil {
			utils.DeferredClose(ctx, client, "closing the ledger client of an unopened world")
		}
	}()

	id := uuid.NewString()
	ctx = log.Set(ctx, log.Ctx(ctx).WithField("run_id", h.opts.RunID).WithField("scenario_id", id))

	cache := balances.NewCache(client, h.opts.MetricsService, balances.WithTTL(h.opts.BalanceTTL))
	pipeline, err := transactions.NewPipeline(transactions.PipelineOptions{
		Client:         client,
		MetricsService: h.opts.MetricsService,
	})
	if err != nil {
		return ctx, nil, fmt.Errorf("creating pipeline: %w", err)
	}
	pub := publisher.NewPublisher(pipeline, h.publishPool, h.opts.MetricsService)
	tracker, err := resources.NewTracker(resources.TrackerOptions{
		Pipeline:       pipeline,
		Publisher:      pub,
		Balances:       cache,
		MetricsService: h.opts.MetricsService,
		LeakStore:      h.opts.LeakStore,
		RunID:          h.opts.RunID,
		Scenario:       name,
	})
	if err != nil {
		return ctx, nil, fmt.Errorf("creating resource tracker: %w", err)
	}

	w := &World{
		ID:                  id,
		Name:                name,
		RunID:               h.opts.RunID,
		Client:              client,
		Balances:            cache,
		Pipeline:            pipeline,
		Publisher:           pub,
		Matcher:             subscription.NewMatcher(client, h.opts.MetricsService),
		Tracker:             tracker,
		resolver:            accounts.NewResolver(h.opts.Pool, client, cache),
		metricsService:      h.opts.MetricsService,
		appTracker:          h.opts.AppTracker,
		subscriptionTimeout: h.opts.SubscriptionTimeout,
		startedAt:           time.Now(),
		treasuries:          make(map[ledger.TokenID]ledger.AccountID),
	}

	log.Ctx(ctx).Infof("🎬 starting scenario %q", name)
	return ctx, w, nil
}

// Close waits for in-flight publishes and flushes the app tracker.
func (h *Harness) Close() {
	h.publishPool.StopAndWait()
	h.opts.AppTracker.Flush()
}
