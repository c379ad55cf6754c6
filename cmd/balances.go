package cmd

import (
	"context"
	"fmt"
	"go/types"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/sumitpatel93/ledger-harness/cmd/utils"
	"github.com/sumitpatel93/ledger-harness/internal/accounts"
	"github.com/sumitpatel93/ledger-harness/internal/balances"
	"github.com/sumitpatel93/ledger-harness/internal/ledger"
	"github.com/sumitpatel93/ledger-harness/internal/metrics"
	internalutils "github.com/sumitpatel93/ledger-harness/internal/utils"
)

type balancesCmd struct{}

func (c *balancesCmd) Command() *cobra.Command {
	var logLevel logrus.Level
	var minHbars int
	networkOpts := utils.NetworkOptions{}
	cfgOpts := config.ConfigOptions{
		utils.LogLevelOption(&logLevel),
		utils.NetworkOption(&networkOpts.Network),
		utils.AccountsFileOption(&networkOpts.AccountsFile),
		utils.MemoryPoolHbarsOption(&networkOpts.MemoryPoolHbars),
		{
			Name:        "min-hbars",
			Usage:       "Report which pool account would be picked as operator for a scenario needing more than this many hbars.",
			OptType:     types.Int,
			ConfigKey:   &minHbars,
			FlagDefault: 0,
			Required:    false,
		},
	}

	cmd := &cobra.Command{
		Use:               "balances",
		Short:             "Print the balances of the account pool",
		PersistentPreRunE: utils.DefaultPersistentPreRunE(cfgOpts),
		RunE: func(cmd *cobra.Command, _ []string) error {
			log.DefaultLogger.SetLevel(logLevel)
			factory, pool, err := utils.NetworkResolver(networkOpts)
			if err != nil {
				return fmt.Errorf("resolving network: %w", err)
			}
			return c.Run(cmd.Context(), cmd.OutOrStdout(), factory, pool, int64(minHbars))
		},
	}

	if err := cfgOpts.Init(cmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}

// Run prints one line per pool account followed by the account the resolver picks for minHbars.
func (c *balancesCmd) Run(ctx context.Context, out io.Writer, factory ledger.ClientFactory, pool accounts.Pool, minHbars int64) error {
	client, err := factory()
	if err != nil {
		return fmt.Errorf("opening ledger client: %w", err)
	}
	defer internalutils.DeferredClose(ctx, client, "closing the ledger client")

	cache := balances.NewCache(client, metrics.NewMetricsService(nil))
	for _, credential := range pool {
		balance, err := cache.Get(ctx, credential.ID)
		if err != nil {
			fmt.Fprintf(out, "%s\terror: %v\n", credential.ID, err)
			continue
		}
		fmt.Fprintf(out, "%s\t%d tinybars\n", credential.ID, balance.Hbars)
	}

	operator, err := accounts.NewResolver(pool, client, cache).Find(ctx, ledger.HbarToTinybar(minHbars))
	if err != nil {
		return fmt.Errorf("finding an account with more than %d hbars: %w", minHbars, err)
	}
	fmt.Fprintf(out, "operator for more than %d hbars: %s\n", minHbars, operator.ID)
	return nil
}
