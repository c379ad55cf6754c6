package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/sumitpatel93/ledger-harness/cmd/utils"
	"github.com/sumitpatel93/ledger-harness/internal/runner"
)

type runCmd struct{}

func (c *runCmd) Command() *cobra.Command {
	cfg := runner.Configs{}
	networkOpts := utils.NetworkOptions{}
	var trackerDSN, trackerEnvironment string
	cfgOpts := config.ConfigOptions{
		utils.LogLevelOption(&cfg.LogLevel),
		utils.NetworkOption(&networkOpts.Network),
		utils.AccountsFileOption(&networkOpts.AccountsFile),
		utils.MemoryPoolHbarsOption(&networkOpts.MemoryPoolHbars),
		utils.FeaturesOption(&cfg.FeaturesPath),
		utils.TagsOption(&cfg.Tags),
		utils.StepTimeoutOption(&cfg.StepTimeout),
		utils.TeardownTimeoutOption(&cfg.TeardownTimeout),
		utils.BalanceTTLOption(&cfg.BalanceTTL),
		utils.SubscriptionTimeoutOption(&cfg.SubscriptionTimeout),
		utils.PublishWorkersOption(&cfg.PublishWorkers),
		utils.LeakDatabaseURLOption(&cfg.LeakDatabaseURL),
		utils.LeakEncryptionPassphraseOption(&cfg.LeakEncryptionPassphrase),
		utils.SentryDSNOption(&trackerDSN),
		utils.TrackerEnvironmentOption(&trackerEnvironment),
		utils.MetricsFileOption(&cfg.MetricsFile),
	}

	cmd := &cobra.Command{
		Use:               "run",
		Short:             "Run feature files against a network",
		PersistentPreRunE: utils.DefaultPersistentPreRunE(cfgOpts),
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cfg.ClientFactory, cfg.Pool, err = utils.NetworkResolver(networkOpts)
			if err != nil {
				return fmt.Errorf("resolving network: %w", err)
			}
			cfg.AppTracker, err = utils.AppTrackerResolver(trackerDSN, trackerEnvironment)
			if err != nil {
				return fmt.Errorf("resolving app tracker: %w", err)
			}
			return c.Run(cmd, cfg)
		},
	}

	if err := cfgOpts.Init(cmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}

func (c *runCmd) Run(cmd *cobra.Command, cfg runner.Configs) error {
	err := runner.Run(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("running scenarios: %w", err)
	}
	return nil
}
