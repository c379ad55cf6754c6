package utils

import (
	"go/types"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// customSetterTestCase is a test case to test a custom_set_value function.
type customSetterTestCase[T any] struct {
	name            string
	args            []string
	envValue        string
	wantErrContains string
	wantResult      T
}

// customSetterTester tests a custom_set_value function, according with the customSetterTestCase provided.
func customSetterTester[T any](t *testing.T, tc customSetterTestCase[T], co config.ConfigOption) {
	t.Helper()
	ClearTestEnvironment(t)
	if tc.envValue != "" {
		envName := strings.ToUpper(co.Name)
		envName = strings.ReplaceAll(envName, "-", "_")
		t.Setenv(envName, tc.envValue)
	}

	// start the CLI command
	testCmd := cobra.Command{
		RunE: func(cmd *cobra.Command, args []string) error {
			co.Require()
			return co.SetValue()
		},
	}
	// mock the command line output
	buf := new(strings.Builder)
	testCmd.SetOut(buf)

	// Initialize the command for the given option
	err := co.Init(&testCmd)
	require.NoError(t, err)

	// execute command line, never falling back to the arguments of the test binary
	testCmd.SetArgs(append([]string{}, tc.args...))
	err = testCmd.Execute()

	// check the result
	if tc.wantErrContains != "" {
		assert.Error(t, err)
		assert.Contains(t, err.Error(), tc.wantErrContains)
	} else {
		assert.NoError(t, err)
	}

	if tc.wantErrContains == "" {
		destPointer, ok := co.ConfigKey.(*T)
		require.True(t, ok)
		assert.Equal(t, tc.wantResult, *destPointer)
	}
}

// ClearTestEnvironment removes all envs from the test environment. It's useful
// to make tests independent from the localhost environment variables.
func ClearTestEnvironment(t *testing.T) {
	t.Helper()

	// remove all envs from the test environment
	for _, env := range os.Environ() {
		key := env[:strings.Index(env, "=")]
		t.Setenv(key, "")
	}
}

func TestSetConfigOptionLogLevel(t *testing.T) {
	opts := struct{ logrusLevel logrus.Level }{}

	co := config.ConfigOption{
		Name:           "log-level",
		OptType:        types.String,
		CustomSetValue: SetConfigOptionLogLevel,
		ConfigKey:      &opts.logrusLevel,
	}

	testCases := []customSetterTestCase[logrus.Level]{
		{
			name:            "returns an error if the log level is empty",
			args:            []string{},
			wantErrContains: `couldn't parse log level in log-level: not a valid logrus Level: ""`,
		},
		{
			name:            "returns an error if the log level is invalid",
			args:            []string{"--log-level", "test"},
			wantErrContains: `couldn't parse log level in log-level: not a valid logrus Level: "test"`,
		},
		{
			name:       "handles log level TRACE (through CLI args)",
			args:       []string{"--log-level", "TRACE"},
			wantResult: logrus.TraceLevel,
		},
		{
			name:       "handles log level TRACE (through ENV vars)",
			envValue:   "TRACE",
			wantResult: logrus.TraceLevel,
		},
		{
			name:       "handles log level INFO (through CLI args)",
			args:       []string{"--log-level", "iNfO"},
			wantResult: logrus.InfoLevel,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts.logrusLevel = 0
			customSetterTester(t, tc, co)
		})
	}
}

func TestSetConfigOptionNetwork(t *testing.T) {
	opts := struct{ network string }{}

	co := config.ConfigOption{
		Name:           "network",
		OptType:        types.String,
		CustomSetValue: SetConfigOptionNetwork,
		ConfigKey:      &opts.network,
	}

	testCases := []customSetterTestCase[string]{
		{
			name:            "returns an error if the network is empty",
			wantErrContains: `invalid network "" in network, expected one of testnet, previewnet, mainnet, memory`,
		},
		{
			name:            "returns an error if the network is unknown",
			args:            []string{"--network", "devnet"},
			wantErrContains: `invalid network "devnet" in network`,
		},
		{
			name:       "handles the network through the CLI flag",
			args:       []string{"--network", "Testnet"},
			wantResult: "testnet",
		},
		{
			name:       "handles the network through the ENV vars",
			envValue:   "memory",
			wantResult: MemoryNetwork,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts.network = ""
			customSetterTester(t, tc, co)
		})
	}
}

func TestSetConfigOptionDuration(t *testing.T) {
	opts := struct{ stepTimeout time.Duration }{}

	co := config.ConfigOption{
		Name:           "step-timeout",
		OptType:        types.String,
		CustomSetValue: SetConfigOptionDuration,
		ConfigKey:      &opts.stepTimeout,
	}

	testCases := []customSetterTestCase[time.Duration]{
		{
			name:            "returns an error if the duration is invalid",
			args:            []string{"--step-timeout", "soon"},
			wantErrContains: `parsing duration in step-timeout: time: invalid duration "soon"`,
		},
		{
			name:            "returns an error if the duration is negative",
			args:            []string{"--step-timeout", "-1s"},
			wantErrContains: "step-timeout cannot be negative",
		},
		{
			name:       "handles the duration through the CLI flag",
			args:       []string{"--step-timeout", "45s"},
			wantResult: 45 * time.Second,
		},
		{
			name:       "handles the duration through the ENV vars",
			envValue:   "2m",
			wantResult: 2 * time.Minute,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts.stepTimeout = 0
			customSetterTester(t, tc, co)
		})
	}
}
