package steps

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumitpatel93/ledger-harness/internal/accounts"
	"github.com/sumitpatel93/ledger-harness/internal/apptracker/dryrun"
	"github.com/sumitpatel93/ledger-harness/internal/ledger"
	"github.com/sumitpatel93/ledger-harness/internal/ledger/memledger"
	"github.com/sumitpatel93/ledger-harness/internal/metrics"
	"github.com/sumitpatel93/ledger-harness/internal/resources"
	"github.com/sumitpatel93/ledger-harness/internal/scenario"
)

func newHarness(t *testing.T) *scenario.Harness {
	t.Helper()

	network := memledger.NewNetwork()
	var pool accounts.Pool
	for _, hbars := range []int64{1, 10_000} {
		id, key, err := network.Genesis(hbars)
		require.NoError(t, err)
		pool = append(pool, accounts.Credential{ID: id, PrivateKey: key.String()})
	}

	harness, err := scenario.NewHarness(scenario.HarnessOptions{
		ClientFactory:       network.ClientFactory(),
		Pool:                pool,
		MetricsService:      metrics.NewMetricsService(nil),
		AppTracker:          &dryrun.DryRunTracker{Out: &testWriter{t: t}},
		SubscriptionTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(harness.Close)

	return harness
}

type testWriter struct {
	t *testing.T
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestFeatures(t *testing.T) {
	harness := newHarness(t)
	suite, err := NewSuite(SuiteOptions{Harness: harness, StepTimeout: 10 * time.Second})
	require.NoError(t, err)

	status := godog.TestSuite{
		Name:                "ledger-harness",
		ScenarioInitializer: suite.InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"../../features"},
			TestingT: t,
			Strict:   true,
		},
	}.Run()
	if status != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func TestNewSuite(t *testing.T) {
	_, err := NewSuite(SuiteOptions{})
	assert.EqualError(t, err, "validating suite options: harness cannot be nil")

	harness := newHarness(t)
	suite, err := NewSuite(SuiteOptions{Harness: harness})
	require.NoError(t, err)
	assert.Equal(t, DefaultStepTimeout, suite.opts.StepTimeout)
	assert.Equal(t, DefaultTeardownTimeout, suite.opts.TeardownTimeout)
}

func TestEveryStepGetsALiveContext(t *testing.T) {
	harness := newHarness(t)
	suite, err := NewSuite(SuiteOptions{Harness: harness, StepTimeout: 5 * time.Second})
	require.NoError(t, err)

	var checked int
	stepContextIsLive := func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("step %d started with a done context: %w", checked+1, err)
		}
		if _, ok := ctx.Deadline(); !ok {
			return fmt.Errorf("step %d has no deadline", checked+1)
		}
		checked++
		return nil
	}

	status := godog.TestSuite{
		Name: "step-contexts",
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			suite.InitializeScenario(sc)
			sc.Step(`^the step context is live$`, stepContextIsLive)
		},
		Options: &godog.Options{
			Format:   "progress",
			TestingT: t,
			Strict:   true,
			FeatureContents: []godog.Feature{{
				Name: "step contexts",
				Contents: []byte(`Feature: step contexts
  Scenario: consecutive steps
    Given the step context is live
    When the step context is live
    Then the step context is live
`),
			}},
		},
	}.Run()
	require.Equal(t, 0, status)
	assert.Equal(t, 3, checked)
}

func TestRegistryTimeoutFor(t *testing.T) {
	r := &registry{defaultTimeout: time.Second}
	r.overrides = append(r.overrides, timedStep{expr: regexp.MustCompile(`^the message "([^"]*)" is received from the topic$`), timeout: time.Minute})

	assert.Equal(t, time.Minute, r.timeoutFor(`the message "hi" is received from the topic`))
	assert.Equal(t, time.Second, r.timeoutFor(`the message "hi" is published to the topic`))
}

func TestStateKeysOf(t *testing.T) {
	first, err := memledger.GeneratePrivateKey()
	require.NoError(t, err)
	second, err := memledger.GeneratePrivateKey()
	require.NoError(t, err)
	st := &state{accounts: []resources.TrackedAccount{{ID: "0.0.10", Key: first}, {ID: "0.0.11", Key: second}}}

	keys, err := st.keysOf("2 and 1")
	require.NoError(t, err)
	assert.Equal(t, []ledger.PrivateKey{second, first}, keys)

	_, err = st.keysOf("1, 2 and 3")
	assert.ErrorIs(t, err, scenario.ErrPrerequisiteNotMet)
}

func TestStateLastTransaction(t *testing.T) {
	st := &state{}
	assert.ErrorIs(t, st.lastTransactionSucceeds(), scenario.ErrPrerequisiteNotMet)

	st.attempt(ledger.Receipt{}, &ledger.ReceiptStatusError{Status: ledger.StatusTokenMaxSupplyReached})
	assert.NoError(t, st.lastTransactionFails("236"))
	assert.NoError(t, st.lastTransactionFails("TOKEN_MAX_SUPPLY_REACHED"))
	assert.EqualError(t, st.lastTransactionFails("INVALID_SIGNATURE"), "expected the status of the last transaction to be INVALID_SIGNATURE, got TOKEN_MAX_SUPPLY_REACHED")
	assert.Error(t, st.lastTransactionSucceeds())

	st.attempt(ledger.Receipt{}, errors.New("connection reset"))
	assert.ErrorContains(t, st.lastTransactionFails("236"), "non-status error")

	st.attempt(ledger.Receipt{Status: ledger.StatusSuccess}, nil)
	assert.NoError(t, st.lastTransactionSucceeds())
	assert.ErrorContains(t, st.lastTransactionFails("236"), "it succeeded")
}

func TestStepsNeedAWorld(t *testing.T) {
	_, err := world(context.Background())
	assert.ErrorIs(t, err, scenario.ErrPrerequisiteNotMet)

	st := &state{}
	_, err = st.topic()
	assert.ErrorIs(t, err, scenario.ErrPrerequisiteNotMet)
	_, err = st.token()
	assert.ErrorIs(t, err, scenario.ErrPrerequisiteNotMet)
}
