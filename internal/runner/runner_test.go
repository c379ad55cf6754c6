package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumitpatel93/ledger-harness/internal/accounts"
	"github.com/sumitpatel93/ledger-harness/internal/apptracker/dryrun"
	"github.com/sumitpatel93/ledger-harness/internal/ledger"
	"github.com/sumitpatel93/ledger-harness/internal/ledger/memledger"
	"github.com/sumitpatel93/ledger-harness/internal/resources"
	"github.com/sumitpatel93/ledger-harness/internal/store"
)

const smokeFeature = `Feature: Smoke

  Scenario: Fund an account
    Given an operator account with more than 20 hbars
    When 1 account funded with 5 hbars each
    Then account 1 holds 5 hbars
`

const failingFeature = `Feature: Failing

  Scenario: Expect the wrong balance
    Given an operator account with more than 20 hbars
    When 1 account funded with 5 hbars each
    Then account 1 holds 6 hbars
`

func memoryNetwork(t *testing.T) (*memledger.Network, accounts.Pool) {
	t.Helper()

	network := memledger.NewNetwork()
	id, key, err := network.Genesis(1_000)
	require.NoError(t, err)
	return network, accounts.Pool{{ID: id, PrivateKey: key.String()}}
}

func writeFeature(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "scenario.feature")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestConfigsValidate(t *testing.T) {
	cfg := Configs{}
	assert.EqualError(t, cfg.Validate(), "client factory cannot be nil")

	network, _ := memoryNetwork(t)
	cfg = Configs{
		ClientFactory:   network.ClientFactory(),
		AppTracker:      &dryrun.DryRunTracker{},
		FeaturesPath:    "features",
		LeakDatabaseURL: filepath.Join(t.TempDir(), "leaks.db"),
	}
	assert.EqualError(t, cfg.Validate(), "a leak encryption passphrase is required when a leak database is configured")

	err := Run(context.Background(), cfg)
	assert.ErrorContains(t, err, "validating run configs")
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("passing scenarios write metrics", func(t *testing.T) {
		network, pool := memoryNetwork(t)
		metricsFile := filepath.Join(t.TempDir(), "metrics.prom")
		tracker := &dryrun.DryRunTracker{Out: &bytes.Buffer{}}

		err := Run(ctx, Configs{
			LogLevel:                 logrus.InfoLevel,
			ClientFactory:            network.ClientFactory(),
			Pool:                     pool,
			AppTracker:               tracker,
			FeaturesPath:             writeFeature(t, smokeFeature),
			Format:                   "progress",
			Output:                   &bytes.Buffer{},
			StepTimeout:              10 * time.Second,
			SubscriptionTimeout:      time.Second,
			LeakDatabaseURL:          filepath.Join(t.TempDir(), "leaks.db"),
			LeakEncryptionPassphrase: "passphrase",
			MetricsFile:              metricsFile,
		})
		require.NoError(t, err)

		metrics, err := os.ReadFile(metricsFile)
		require.NoError(t, err)
		assert.Contains(t, string(metrics), `harness_scenarios_total{status="passed"} 1`)
		assert.Contains(t, string(metrics), "harness_transactions_total")
		assert.Empty(t, tracker.Out.(*bytes.Buffer).String())

		// Teardown returned the funded account to the operator.
		client := network.NewClient()
		balance, err := client.QueryBalance(ctx, pool[0].ID)
		require.NoError(t, err)
		assert.Equal(t, ledger.HbarToTinybar(1_000), balance.Hbars)
	})

	t.Run("failing scenarios are reported", func(t *testing.T) {
		network, pool := memoryNetwork(t)
		out := &bytes.Buffer{}

		err := Run(ctx, Configs{
			LogLevel:      logrus.InfoLevel,
			ClientFactory: network.ClientFactory(),
			Pool:          pool,
			AppTracker:    &dryrun.DryRunTracker{Out: out},
			FeaturesPath:  writeFeature(t, failingFeature),
			Format:        "progress",
			Output:        &bytes.Buffer{},
		})
		assert.ErrorIs(t, err, ErrScenariosFailed)
		assert.Contains(t, out.String(), `scenario "Expect the wrong balance" failed`)
	})
}

func TestSweepRecordedLeaks(t *testing.T) {
	ctx := context.Background()
	network, pool := memoryNetwork(t)
	leakDB := filepath.Join(t.TempDir(), "leaks.db")

	client := network.NewClient()
	key, err := client.GeneratePrivateKey()
	require.NoError(t, err)
	operatorKey, err := client.ParsePrivateKey(pool[0].PrivateKey)
	require.NoError(t, err)
	require.NoError(t, client.SetOperator(pool[0].ID, operatorKey))
	tx, err := client.NewTransaction(ctx, &ledger.AccountCreate{Key: key.PublicKey(), InitialBalance: ledger.HbarToTinybar(40)})
	require.NoError(t, err)
	require.NoError(t, tx.Freeze(ctx))
	response, err := tx.Execute(ctx)
	require.NoError(t, err)
	receipt, err := response.Receipt(ctx)
	require.NoError(t, err)

	dbConnectionPool, err := OpenLeakStore(ctx, leakDB)
	require.NoError(t, err)
	_, err = store.NewLeakModel(dbConnectionPool, &store.DefaultPrivateKeyEncrypter{}, "passphrase").Record(ctx, store.Leak{
		RunID:      "run",
		Scenario:   "interrupted",
		Kind:       store.KindAccount,
		EntityID:   string(*receipt.AccountID),
		PrivateKey: key.String(),
		Reason:     "BUSY",
	})
	require.NoError(t, err)
	require.NoError(t, dbConnectionPool.Close())

	cfg := SweepConfigs{
		LogLevel:                 logrus.InfoLevel,
		ClientFactory:            network.ClientFactory(),
		Pool:                     pool,
		LeakDatabaseURL:          leakDB,
		LeakEncryptionPassphrase: "passphrase",
	}
	result, err := Sweep(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, resources.SweepResult{Reclaimed: 1}, result)
	assert.False(t, network.AccountExists(*receipt.AccountID))

	balance, err := client.QueryBalance(ctx, pool[0].ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.HbarToTinybar(1_000), balance.Hbars)

	result, err = Sweep(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, resources.SweepResult{}, result)

	cfg.LeakEncryptionPassphrase = ""
	_, err = Sweep(ctx, cfg)
	assert.EqualError(t, err, "validating sweep configs: leak encryption passphrase cannot be empty")
}
