package runner

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/sumitpatel93/ledger-harness/internal/accounts"
	"github.com/sumitpatel93/ledger-harness/internal/balances"
	"github.com/sumitpatel93/ledger-harness/internal/ledger"
	"github.com/sumitpatel93/ledger-harness/internal/metrics"
	"github.com/sumitpatel93/ledger-harness/internal/resources"
	"github.com/sumitpatel93/ledger-harness/internal/store"
	"github.com/sumitpatel93/ledger-harness/internal/transactions"
	"github.com/sumitpatel93/ledger-harness/internal/utils"
)

type SweepConfigs struct {
	LogLevel                 logrus.Level
	ClientFactory            ledger.ClientFactory
	Pool                     accounts.Pool
	LeakDatabaseURL          string
	LeakEncryptionPassphrase string
	// Limit caps the number of leaks attempted, zero attempts all of them.
	Limit int
}

func (c *SweepConfigs) Validate() error {
	if c.ClientFactory == nil {
		return fmt.Errorf("client factory cannot be nil")
	}
	if len(c.Pool) == 0 {
		return fmt.Errorf("account pool cannot be empty")
	}
	if c.LeakDatabaseURL == "" {
		return fmt.Errorf("leak database URL cannot be empty")
	}
	if c.LeakEncryptionPassphrase == "" {
		return fmt.Errorf("leak encryption passphrase cannot be empty")
	}
	return nil
}

// Sweep binds the first funded account of the pool as operator and retries the leaks recorded in
// the leak store, returning reclaimed balances to that account.
func Sweep(ctx context.Context, cfg SweepConfigs) (resources.SweepResult, error) {
	if err := cfg.Validate(); err != nil {
		return resources.SweepResult{}, fmt.Errorf("validating sweep configs: %w", err)
	}
	log.DefaultLogger.SetLevel(cfg.LogLevel)

	dbConnectionPool, err := OpenLeakStore(ctx, cfg.LeakDatabaseURL)
	if err != nil {
		return resources.SweepResult{}, err
	}
	defer utils.DeferredClose(ctx, dbConnectionPool, "closing the leak store")

	client, err := cfg.ClientFactory()
	if err != nil {
		return resources.SweepResult{}, fmt.Errorf("opening ledger client: %w", err)
	}
	defer utils.DeferredClose(ctx, client, "closing the ledger client")

	metricsService := metrics.NewMetricsService(nil)
	resolver := accounts.NewResolver(cfg.Pool, client, balances.NewCache(client, metricsService))
	operator, err := resolver.Resolve(ctx, 0)
	if err != nil {
		return resources.SweepResult{}, fmt.Errorf("resolving sweep operator: %w", err)
	}

	pipeline, err := transactions.NewPipeline(transactions.PipelineOptions{Client: client, MetricsService: metricsService})
	if err != nil {
		return resources.SweepResult{}, fmt.Errorf("creating pipeline: %w", err)
	}
	sweeper, err := resources.NewSweeper(resources.SweeperOptions{
		Pipeline:  pipeline,
		Keys:      client,
		LeakStore: store.NewLeakModel(dbConnectionPool, &store.DefaultPrivateKeyEncrypter{}, cfg.LeakEncryptionPassphrase),
	})
	if err != nil {
		return resources.SweepResult{}, fmt.Errorf("creating sweeper: %w", err)
	}

	result, err := sweeper.Sweep(ctx, operator.ID, cfg.Limit)
	if err != nil {
		return result, fmt.Errorf("sweeping: %w", err)
	}
	log.Ctx(ctx).Infof("🧹 sweep finished: %d reclaimed, %d failed", result.Reclaimed, result.Failed)
	return result, nil
}
