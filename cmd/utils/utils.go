package utils

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"

	"github.com/sumitpatel93/ledger-harness/internal/accounts"
	"github.com/sumitpatel93/ledger-harness/internal/apptracker"
	"github.com/sumitpatel93/ledger-harness/internal/apptracker/dryrun"
	"github.com/sumitpatel93/ledger-harness/internal/apptracker/sentry"
	"github.com/sumitpatel93/ledger-harness/internal/ledger"
	"github.com/sumitpatel93/ledger-harness/internal/ledger/hederaclient"
	"github.com/sumitpatel93/ledger-harness/internal/ledger/memledger"
)

const (
	// MemoryPoolSize is the number of accounts seeded on the in-process ledger.
	MemoryPoolSize   = 3
	sentryFlushFreq  = 5
	defaultPoolHbars = 10_000
)

func DefaultPersistentPreRunE(cfgOpts config.ConfigOptions) func(_ *cobra.Command, _ []string) error {
	return func(_ *cobra.Command, _ []string) error {
		if err := cfgOpts.RequireE(); err != nil {
			return fmt.Errorf("requiring values of config options: %w", err)
		}
		if err := cfgOpts.SetValues(); err != nil {
			return fmt.Errorf("setting values of config options: %w", err)
		}
		return nil
	}
}

type NetworkOptions struct {
	Network      string
	AccountsFile string
	// MemoryPoolHbars funds each seeded account of the "memory" network.
	MemoryPoolHbars int
}

// NetworkResolver returns the client factory and account pool of the configured network. The
// "memory" network is created here and seeded with MemoryPoolSize funded accounts, other networks
// read their pool from AccountsFile or, when it is empty, from the environment.
//
//nolint:wrapcheck // defer is used to wrap the error
func NetworkResolver(opts NetworkOptions) (factory ledger.ClientFactory, pool accounts.Pool, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("resolving network %q: %w", opts.Network, err)
		}
	}()

	if opts.Network == MemoryNetwork {
		hbars := int64(opts.MemoryPoolHbars)
		if hbars <= 0 {
			hbars = defaultPoolHbars
		}
		network := memledger.NewNetwork()
		for range MemoryPoolSize {
			id, key, err := network.Genesis(hbars)
			if err != nil {
				return nil, nil, fmt.Errorf("seeding pool account: %w", err)
			}
			pool = append(pool, accounts.Credential{ID: id, PrivateKey: key.String()})
		}
		return network.ClientFactory(), pool, nil
	}

	if opts.AccountsFile != "" {
		pool, err = accounts.LoadPool(opts.AccountsFile)
	} else {
		pool, err = accounts.PoolFromEnv()
	}
	if err != nil {
		return nil, nil, err
	}
	return hederaclient.Factory(opts.Network), pool, nil
}

// AppTrackerResolver reports to Sentry when a DSN is configured and prints to stdout otherwise.
func AppTrackerResolver(dsn, environment string) (apptracker.AppTracker, error) {
	if dsn == "" {
		return &dryrun.DryRunTracker{}, nil
	}

	tracker, err := sentry.NewSentryTracker(dsn, environment, sentryFlushFreq)
	if err != nil {
		return nil, fmt.Errorf("resolving app tracker: %w", err)
	}
	return tracker, nil
}
