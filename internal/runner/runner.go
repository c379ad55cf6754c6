// Package runner wires a harness to a network and runs feature files against it.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cucumber/godog"
	"github.com/cucumber/godog/colors"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/sumitpatel93/ledger-harness/internal/accounts"
	"github.com/sumitpatel93/ledger-harness/internal/apptracker"
	"github.com/sumitpatel93/ledger-harness/internal/db"
	"github.com/sumitpatel93/ledger-harness/internal/ledger"
	"github.com/sumitpatel93/ledger-harness/internal/metrics"
	"github.com/sumitpatel93/ledger-harness/internal/scenario"
	"github.com/sumitpatel93/ledger-harness/internal/steps"
	"github.com/sumitpatel93/ledger-harness/internal/store"
	"github.com/sumitpatel93/ledger-harness/internal/utils"
)

var ErrScenariosFailed = errors.New("one or more scenarios failed")

type Configs struct {
	LogLevel      logrus.Level
	ClientFactory ledger.ClientFactory
	Pool          accounts.Pool
	AppTracker    apptracker.AppTracker

	FeaturesPath string
	Tags         string
	// Format is the godog formatter, "pretty" when empty.
	Format string
	// Output receives the formatter output, colored stdout when nil.
	Output io.Writer

	StepTimeout         time.Duration
	TeardownTimeout     time.Duration
	BalanceTTL          time.Duration
	SubscriptionTimeout time.Duration
	PublishWorkers      int

	// Leak store, optional.
	LeakDatabaseURL          string
	LeakEncryptionPassphrase string

	// MetricsFile receives the metrics of the run when set.
	MetricsFile string
}

func (c *Configs) Validate() error {
	if c.ClientFactory == nil {
		return fmt.Errorf("client factory cannot be nil")
	}
	if c.AppTracker == nil {
		return fmt.Errorf("app tracker cannot be nil")
	}
	if c.FeaturesPath == "" {
		return fmt.Errorf("features path cannot be empty")
	}
	if c.LeakDatabaseURL != "" && c.LeakEncryptionPassphrase == "" {
		return fmt.Errorf("a leak encryption passphrase is required when a leak database is configured")
	}
	return nil
}

type deps struct {
	harness        *scenario.Harness
	metricsService metrics.MetricsService
	leakStore      store.LeakStore
	close          func()
}

// Run executes the scenarios of cfg.FeaturesPath and returns ErrScenariosFailed when any of them
// fails.
func Run(ctx context.Context, cfg Configs) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating run configs: %w", err)
	}
	log.DefaultLogger.SetLevel(cfg.LogLevel)

	d, err := initDeps(ctx, cfg)
	if err != nil {
		return fmt.Errorf("setting up run dependencies: %w", err)
	}
	defer d.close()

	suite, err := steps.NewSuite(steps.SuiteOptions{
		Harness:         d.harness,
		StepTimeout:     cfg.StepTimeout,
		TeardownTimeout: cfg.TeardownTimeout,
	})
	if err != nil {
		return fmt.Errorf("creating step suite: %w", err)
	}

	format := cfg.Format
	if format == "" {
		format = "pretty"
	}
	output := cfg.Output
	if output == nil {
		output = colors.Colored(os.Stdout)
	}

	log.Ctx(ctx).Infof("🚀 run %s starting on %s", d.harness.RunID(), cfg.FeaturesPath)
	started := time.Now()
	status := godog.TestSuite{
		Name:                "ledger-harness",
		ScenarioInitializer: suite.InitializeScenario,
		Options: &godog.Options{
			Format:         format,
			Output:         output,
			Paths:          []string{cfg.FeaturesPath},
			Tags:           cfg.Tags,
			Strict:         true,
			DefaultContext: ctx,
		},
	}.Run()
	log.Ctx(ctx).Infof("🏁 run %s finished in %s with status %d", d.harness.RunID(), time.Since(started).Round(time.Millisecond), status)

	reportLeaks(ctx, d.leakStore)
	if cfg.MetricsFile != "" {
		if err = prometheus.WriteToTextfile(cfg.MetricsFile, d.metricsService.GetRegistry()); err != nil {
			log.Ctx(ctx).Errorf("❌ writing metrics to %s: %v", cfg.MetricsFile, err)
		}
	}

	if status != 0 {
		return ErrScenariosFailed
	}
	return nil
}

func initDeps(ctx context.Context, cfg Configs) (deps, error) {
	var (
		leakStore store.LeakStore
		sqlxDB    *sqlx.DB
		closers   []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.LeakDatabaseURL != "" {
		dbConnectionPool, err := OpenLeakStore(ctx, cfg.LeakDatabaseURL)
		if err != nil {
			return deps{}, err
		}
		closers = append(closers, func() { utils.DeferredClose(ctx, dbConnectionPool, "closing the leak store") })

		sqlxDB, err = dbConnectionPool.SqlxDB(ctx)
		if err != nil {
			closeAll()
			return deps{}, fmt.Errorf("fetching sqlx.DB: %w", err)
		}
		leakStore = store.NewLeakModel(dbConnectionPool, &store.DefaultPrivateKeyEncrypter{}, cfg.LeakEncryptionPassphrase)
	}

	metricsService := metrics.NewMetricsService(sqlxDB)
	harness, err := scenario.NewHarness(scenario.HarnessOptions{
		ClientFactory:       cfg.ClientFactory,
		Pool:                cfg.Pool,
		MetricsService:      metricsService,
		AppTracker:          cfg.AppTracker,
		LeakStore:           leakStore,
		BalanceTTL:          cfg.BalanceTTL,
		SubscriptionTimeout: cfg.SubscriptionTimeout,
		PublishWorkers:      cfg.PublishWorkers,
	})
	if err != nil {
		closeAll()
		return deps{}, fmt.Errorf("creating harness: %w", err)
	}
	// The harness drains in-flight publishes before the store closes.
	closers = append(closers, harness.Close)

	return deps{
		harness:        harness,
		metricsService: metricsService,
		leakStore:      leakStore,
		close:          closeAll,
	}, nil
}

// OpenLeakStore migrates the leak database at databaseURL up and opens it.
func OpenLeakStore(ctx context.Context, databaseURL string) (db.ConnectionPool, error) {
	if _, err := db.Migrate(ctx, databaseURL, migrate.Up, 0); err != nil {
		return nil, fmt.Errorf("migrating leak store: %w", err)
	}
	dbConnectionPool, err := db.OpenDBConnectionPool(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to the leak store: %w", err)
	}
	return dbConnectionPool, nil
}

func reportLeaks(ctx context.Context, leakStore store.LeakStore) {
	if leakStore == nil {
		return
	}
	count, err := leakStore.CountUnreclaimed(ctx)
	if err != nil {
		log.Ctx(ctx).Errorf("❌ counting leaked resources: %v", err)
		return
	}
	if count > 0 {
		log.Ctx(ctx).Warnf("⚠️ %d leaked resources are waiting to be swept", count)
	}
}
