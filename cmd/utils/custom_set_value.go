package utils

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stellar/go-stellar-sdk/support/config"
)

func SetConfigOptionLogLevel(co *config.ConfigOption) error {
	logLevelStr := viper.GetString(co.Name)
	logLevel, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		return fmt.Errorf("couldn't parse log level in %s: %w", co.Name, err)
	}

	key, ok := co.ConfigKey.(*logrus.Level)
	if !ok {
		return fmt.Errorf("%s configKey has an invalid type %T", co.Name, co.ConfigKey)
	}
	*key = logLevel

	return nil
}

func SetConfigOptionNetwork(co *config.ConfigOption) error {
	network := strings.ToLower(strings.TrimSpace(viper.GetString(co.Name)))
	if !slices.Contains(SupportedNetworks, network) {
		return fmt.Errorf("invalid network %q in %s, expected one of %s", network, co.Name, strings.Join(SupportedNetworks, ", "))
	}

	key, ok := co.ConfigKey.(*string)
	if !ok {
		return fmt.Errorf("the expected type for the config key in %s is a string, but a %T was provided instead", co.Name, co.ConfigKey)
	}
	*key = network

	return nil
}

// SetConfigOptionDuration parses values such as "30s" or "2m". Negative durations are rejected.
func SetConfigOptionDuration(co *config.ConfigOption) error {
	durationStr := viper.GetString(co.Name)
	duration, err := time.ParseDuration(durationStr)
	if err != nil {
		return fmt.Errorf("parsing duration in %s: %w", co.Name, err)
	}
	if duration < 0 {
		return fmt.Errorf("%s cannot be negative", co.Name)
	}

	key, ok := co.ConfigKey.(*time.Duration)
	if !ok {
		return fmt.Errorf("the expected type for the config key in %s is a time.Duration, but a %T was provided instead", co.Name, co.ConfigKey)
	}
	*key = duration

	return nil
}
