package utils

import (
	"go/types"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stellar/go-stellar-sdk/support/config"

	"github.com/sumitpatel93/ledger-harness/internal/balances"
	"github.com/sumitpatel93/ledger-harness/internal/ledger/hederaclient"
	"github.com/sumitpatel93/ledger-harness/internal/scenario"
	"github.com/sumitpatel93/ledger-harness/internal/steps"
	"github.com/sumitpatel93/ledger-harness/internal/subscription"
)

// MemoryNetwork runs scenarios against an in-process ledger seeded with a funded pool.
const MemoryNetwork = "memory"

var SupportedNetworks = append(append([]string{}, hederaclient.Networks...), MemoryNetwork)

func LogLevelOption(configKey *logrus.Level) *config.ConfigOption {
	return &config.ConfigOption{
		Name:           "log-level",
		Usage:          `The log level used in this project. Options: "TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL", or "PANIC".`,
		OptType:        types.String,
		FlagDefault:    "INFO",
		ConfigKey:      configKey,
		CustomSetValue: SetConfigOptionLogLevel,
		Required:       false,
	}
}

func NetworkOption(configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:           "network",
		Usage:          `The ledger network to run against. Options: "testnet", "previewnet", "mainnet" or "memory".`,
		OptType:        types.String,
		FlagDefault:    "testnet",
		ConfigKey:      configKey,
		CustomSetValue: SetConfigOptionNetwork,
		Required:       true,
	}
}

func AccountsFileOption(configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:      "accounts-file",
		Usage:     "A TOML file listing the funded accounts of the pool. When empty, the pool is read from ACCOUNT_<n>_ID and ACCOUNT_<n>_KEY.",
		OptType:   types.String,
		ConfigKey: configKey,
		Required:  false,
	}
}

func LeakDatabaseURLOption(configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:        "leak-database-url",
		Usage:       "The sqlite database recording the resources a teardown could not reclaim. When empty, leaks are only logged.",
		OptType:     types.String,
		ConfigKey:   configKey,
		FlagDefault: "",
		Required:    false,
	}
}

func LeakEncryptionPassphraseOption(configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:      "leak-encryption-passphrase",
		Usage:     "The passphrase used to encrypt the private keys of leaked accounts.",
		OptType:   types.String,
		ConfigKey: configKey,
		Required:  false,
	}
}

func SentryDSNOption(configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:      "tracker-dsn",
		Usage:     "The Sentry DSN. When empty, scenario failures are printed instead.",
		OptType:   types.String,
		ConfigKey: configKey,
		Required:  false,
	}
}

func TrackerEnvironmentOption(configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:        "tracker-environment",
		Usage:       "The environment reported along with scenario failures.",
		OptType:     types.String,
		ConfigKey:   configKey,
		FlagDefault: "development",
		Required:    false,
	}
}

func FeaturesOption(configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:        "features",
		Usage:       "The directory or feature file to run.",
		OptType:     types.String,
		ConfigKey:   configKey,
		FlagDefault: "features",
		Required:    true,
	}
}

func TagsOption(configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:      "tags",
		Usage:     `A tag expression filtering the scenarios to run, e.g. "@topics && ~@slow".`,
		OptType:   types.String,
		ConfigKey: configKey,
		Required:  false,
	}
}

func StepTimeoutOption(configKey *time.Duration) *config.ConfigOption {
	return &config.ConfigOption{
		Name:           "step-timeout",
		Usage:          "The deadline of a single step.",
		OptType:        types.String,
		ConfigKey:      configKey,
		FlagDefault:    steps.DefaultStepTimeout.String(),
		CustomSetValue: SetConfigOptionDuration,
		Required:       true,
	}
}

func TeardownTimeoutOption(configKey *time.Duration) *config.ConfigOption {
	return &config.ConfigOption{
		Name:           "teardown-timeout",
		Usage:          "The deadline of the teardown closing each scenario.",
		OptType:        types.String,
		ConfigKey:      configKey,
		FlagDefault:    steps.DefaultTeardownTimeout.String(),
		CustomSetValue: SetConfigOptionDuration,
		Required:       true,
	}
}

func BalanceTTLOption(configKey *time.Duration) *config.ConfigOption {
	return &config.ConfigOption{
		Name:           "balance-ttl",
		Usage:          "How long a queried balance is served from the cache.",
		OptType:        types.String,
		ConfigKey:      configKey,
		FlagDefault:    balances.DefaultTTL.String(),
		CustomSetValue: SetConfigOptionDuration,
		Required:       true,
	}
}

func SubscriptionTimeoutOption(configKey *time.Duration) *config.ConfigOption {
	return &config.ConfigOption{
		Name:           "subscription-timeout",
		Usage:          "How long to wait for an expected topic message.",
		OptType:        types.String,
		ConfigKey:      configKey,
		FlagDefault:    subscription.DefaultTimeout.String(),
		CustomSetValue: SetConfigOptionDuration,
		Required:       true,
	}
}

func PublishWorkersOption(configKey *int) *config.ConfigOption {
	return &config.ConfigOption{
		Name:        "publish-workers",
		Usage:       "The maximum number of messages submitted concurrently when a batch is flushed.",
		OptType:     types.Int,
		ConfigKey:   configKey,
		FlagDefault: scenario.DefaultPublishWorkers,
		Required:    true,
	}
}

func MetricsFileOption(configKey *string) *config.ConfigOption {
	return &config.ConfigOption{
		Name:      "metrics-file",
		Usage:     "A file the Prometheus metrics of the run are written to, in the text exposition format.",
		OptType:   types.String,
		ConfigKey: configKey,
		Required:  false,
	}
}

// MemoryPoolHbarsOption sizes the pool seeded when running against the in-process ledger.
func MemoryPoolHbarsOption(configKey *int) *config.ConfigOption {
	return &config.ConfigOption{
		Name:        "memory-pool-hbars",
		Usage:       `The balance, in hbars, of each pool account seeded on the "memory" network.`,
		OptType:     types.Int,
		ConfigKey:   configKey,
		FlagDefault: 10_000,
		Required:    false,
	}
}
