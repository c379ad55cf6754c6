// Package steps binds the Gherkin steps of the feature files to scenario worlds.
package steps

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/cucumber/godog"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/sumitpatel93/ledger-harness/internal/scenario"
)

const (
	DefaultStepTimeout     = 30 * time.Second
	DefaultTeardownTimeout = 2 * time.Minute
)

type SuiteOptions struct {
	Harness         *scenario.Harness
	StepTimeout     time.Duration
	TeardownTimeout time.Duration
}

func (o *SuiteOptions) ValidateOptions() error {
	if o.Harness == nil {
		return fmt.Errorf("harness cannot be nil")
	}
	if o.StepTimeout < 0 {
		return fmt.Errorf("step timeout cannot be negative")
	}
	if o.TeardownTimeout < 0 {
		return fmt.Errorf("teardown timeout cannot be negative")
	}
	return nil
}

// Suite registers the steps of every scenario. Each scenario gets its own world and step state.
type Suite struct {
	opts SuiteOptions
}

func NewSuite(opts SuiteOptions) (*Suite, error) {
	if err := opts.ValidateOptions(); err != nil {
		return nil, fmt.Errorf("validating suite options: %w", err)
	}
	if opts.StepTimeout == 0 {
		opts.StepTimeout = DefaultStepTimeout
	}
	if opts.TeardownTimeout == 0 {
		opts.TeardownTimeout = DefaultTeardownTimeout
	}
	return &Suite{opts: opts}, nil
}

type timedStep struct {
	expr    *regexp.Regexp
	timeout time.Duration
}

// registry registers step handlers and remembers the ones with their own timeout.
type registry struct {
	sc             *godog.ScenarioContext
	defaultTimeout time.Duration
	overrides      []timedStep
}

func (r *registry) step(expr string, handler interface{}) {
	r.sc.Step(expr, handler)
}

// slowStep registers a step that may run for timeout instead of the default step timeout.
func (r *registry) slowStep(expr string, handler interface{}, timeout time.Duration) {
	r.sc.Step(expr, handler)
	r.overrides = append(r.overrides, timedStep{expr: regexp.MustCompile(expr), timeout: timeout})
}

func (r *registry) timeoutFor(text string) time.Duration {
	for _, s := range r.overrides {
		if s.expr.MatchString(text) {
			return s.timeout
		}
	}
	return r.defaultTimeout
}

// InitializeScenario is the godog scenario initializer.
func (s *Suite) InitializeScenario(sc *godog.ScenarioContext) {
	st := &state{}
	r := &registry{sc: sc, defaultTimeout: s.opts.StepTimeout}

	sc.Before(func(ctx context.Context, gs *godog.Scenario) (context.Context, error) {
		ctx, w, err := s.opts.Harness.NewWorld(ctx, gs.Name)
		if err != nil {
			return ctx, err
		}
		return scenario.WithWorld(ctx, w), nil
	})

	// godog hands the context a step returns to the next step, so the After hook swaps the
	// step deadline back for the scenario context before cancelling it.
	sc.StepContext().Before(func(ctx context.Context, gst *godog.Step) (context.Context, error) {
		st.scenarioCtx = ctx
		ctx, st.cancelStep = context.WithTimeout(ctx, r.timeoutFor(gst.Text))
		return ctx, nil
	})
	sc.StepContext().After(func(ctx context.Context, gst *godog.Step, status godog.StepResultStatus, err error) (context.Context, error) {
		if st.cancelStep != nil {
			st.cancelStep()
			st.cancelStep = nil
		}
		if st.scenarioCtx != nil {
			ctx, st.scenarioCtx = st.scenarioCtx, nil
		}
		return ctx, nil
	})

	sc.After(func(ctx context.Context, gs *godog.Scenario, scenarioErr error) (context.Context, error) {
		w, err := scenario.FromContext(ctx)
		if err != nil {
			// The world failed to open; there is nothing to tear down.
			return ctx, scenarioErr
		}

		teardownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.TeardownTimeout)
		defer cancel()
		if err = w.Close(teardownCtx, scenarioErr); err != nil {
			log.Ctx(ctx).Errorf("❌ teardown of scenario %q: %v", gs.Name, err)
		}
		return ctx, nil
	})

	registerAccountSteps(r, st)
	registerTopicSteps(r, st, 2*s.opts.StepTimeout)
	registerTokenSteps(r, st)
}
