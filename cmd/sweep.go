package cmd

import (
	"fmt"
	"go/types"
	"os"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/sumitpatel93/ledger-harness/cmd/utils"
	"github.com/sumitpatel93/ledger-harness/internal/runner"
)

type sweepCmd struct{}

func (c *sweepCmd) Command() *cobra.Command {
	cfg := runner.SweepConfigs{}
	networkOpts := utils.NetworkOptions{}
	leakDatabaseURL := utils.LeakDatabaseURLOption(&cfg.LeakDatabaseURL)
	leakDatabaseURL.Required = true
	cfgOpts := config.ConfigOptions{
		utils.LogLevelOption(&cfg.LogLevel),
		utils.NetworkOption(&networkOpts.Network),
		utils.AccountsFileOption(&networkOpts.AccountsFile),
		leakDatabaseURL,
		utils.LeakEncryptionPassphraseOption(&cfg.LeakEncryptionPassphrase),
		{
			Name:        "limit",
			Usage:       "The maximum number of leaked resources to attempt. Zero attempts all of them.",
			OptType:     types.Int,
			ConfigKey:   &cfg.Limit,
			FlagDefault: 0,
			Required:    false,
		},
	}

	cmd := &cobra.Command{
		Use:               "sweep",
		Short:             "Retry reclaiming the resources earlier runs leaked",
		PersistentPreRunE: utils.DefaultPersistentPreRunE(cfgOpts),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.LeakEncryptionPassphrase == "" {
				passwordPrompter, err := utils.NewDefaultPasswordPrompter(
					"🔑 Input the leak encryption passphrase (it will be hidden):", os.Stdin, os.Stdout)
				if err != nil {
					return fmt.Errorf("instantiating password prompter: %w", err)
				}
				if cfg.LeakEncryptionPassphrase, err = passwordPrompter.Run(); err != nil {
					return fmt.Errorf("getting leak encryption passphrase input: %w", err)
				}
			}

			var err error
			cfg.ClientFactory, cfg.Pool, err = utils.NetworkResolver(networkOpts)
			if err != nil {
				return fmt.Errorf("resolving network: %w", err)
			}
			return c.Run(cmd, cfg)
		},
	}

	if err := cfgOpts.Init(cmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}

func (c *sweepCmd) Run(cmd *cobra.Command, cfg runner.SweepConfigs) error {
	result, err := runner.Sweep(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("sweeping leaked resources: %w", err)
	}
	if result.Failed > 0 {
		log.Ctx(cmd.Context()).Warnf("⚠️ %d leaked resources could not be reclaimed", result.Failed)
	}
	return nil
}
