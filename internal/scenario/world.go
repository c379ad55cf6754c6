package scenario

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/sumitpatel93/ledger-harness/internal/accounts"
	"github.com/sumitpatel93/ledger-harness/internal/apptracker"
	"github.com/sumitpatel93/ledger-harness/internal/balances"
	"github.com/sumitpatel93/ledger-harness/internal/ledger"
	"github.com/sumitpatel93/ledger-harness/internal/metrics"
	"github.com/sumitpatel93/ledger-harness/internal/publisher"
	"github.com/sumitpatel93/ledger-harness/internal/resources"
	"github.com/sumitpatel93/ledger-harness/internal/subscription"
	"github.com/sumitpatel93/ledger-harness/internal/transactions"
)

// ErrPrerequisiteNotMet is returned when a step needs state an earlier step should have created.
var ErrPrerequisiteNotMet = errors.New("prerequisite not met")

const (
	statusPassed = "passed"
	statusFailed = "failed"
)

// World is the state of one scenario. Nothing in it is shared with other scenarios except the
// harness worker pool.
type World struct {
	ID    string
	Name  string
	RunID string

	Client    ledger.Client
	Balances  *balances.Cache
	Pipeline  transactions.Pipeline
	Publisher *publisher.Publisher
	Matcher   *subscription.Matcher
	Tracker   *resources.Tracker

	resolver            *accounts.Resolver
	metricsService      metrics.MetricsService
	appTracker          apptracker.AppTracker
	subscriptionTimeout time.Duration
	startedAt           time.Time

	mu         sync.Mutex
	operator   accounts.Operator
	treasuries map[ledger.TokenID]ledger.AccountID
}

// Prerequisite returns ErrPrerequisiteNotMet describing what when ok is false.
func Prerequisite(ok bool, what string) error {
	if ok {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrPrerequisiteNotMet, what)
}

// Resolve binds the first pool account holding more than minTinybars as the operator.
func (w *World) Resolve(ctx context.Context, minTinybars int64) (accounts.Operator, error) {
	operator, err := w.resolver.Resolve(ctx, minTinybars)
	if err != nil {
		return accounts.Operator{}, fmt.Errorf("resolving operator: %w", err)
	}

	w.mu.Lock()
	w.operator = operator
	w.mu.Unlock()
	return operator, nil
}

// FindAccount returns a pool account holding more than minTinybars that is neither the operator
// nor one of exclude, without binding it.
func (w *World) FindAccount(ctx context.Context, minTinybars int64, exclude ...ledger.AccountID) (accounts.Operator, error) {
	operator, err := w.Operator()
	if err != nil {
		return accounts.Operator{}, err
	}
	return w.resolver.Find(ctx, minTinybars, append(exclude, operator.ID)...)
}

func (w *World) Operator() (accounts.Operator, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.operator.ID == "" {
		return accounts.Operator{}, Prerequisite(false, "no operator was resolved")
	}
	return w.operator, nil
}

// Execute runs op through the pipeline and drops the cached balances op may have changed,
// including the operator's, which pays the fee.
func (w *World) Execute(ctx context.Context, op ledger.Operation, signers ...ledger.PrivateKey) (ledger.Receipt, error) {
	operator, err := w.Operator()
	if err != nil {
		return ledger.Receipt{}, err
	}

	receipt, err := w.Pipeline.Execute(ctx, op, signers...)
	w.invalidate(op, operator.ID)
	return receipt, err
}

func (w *World) invalidate(op ledger.Operation, operatorID ledger.AccountID) {
	affected := append(transactions.AffectedAccounts(op), operatorID)
	if mint, ok := op.(*ledger.TokenMint); ok {
		w.mu.Lock()
		if treasury, found := w.treasuries[mint.TokenID]; found {
			affected = append(affected, treasury)
		}
		w.mu.Unlock()
	}
	w.Balances.Invalidate(affected...)
}

// CreateAccount creates an account controlled by a fresh key, funded by the operator, and tracks
// it for reclaim.
func (w *World) CreateAccount(ctx context.Context, initialTinybars int64) (resources.TrackedAccount, error) {
	key, err := w.Client.GeneratePrivateKey()
	if err != nil {
		return resources.TrackedAccount{}, fmt.Errorf("generating account key: %w", err)
	}

	receipt, err := w.Execute(ctx, &ledger.AccountCreate{Key: key.PublicKey(), InitialBalance: initialTinybars})
	if err != nil {
		return resources.TrackedAccount{}, err
	}
	if receipt.AccountID == nil {
		return resources.TrackedAccount{}, fmt.Errorf("account create receipt has no account ID")
	}

	w.Tracker.TrackAccount(*receipt.AccountID, key)
	log.Ctx(ctx).Infof("🆕 created account %s with %d tinybars", *receipt.AccountID, initialTinybars)
	return resources.TrackedAccount{ID: *receipt.AccountID, Key: key}, nil
}

// CreateTopic creates a topic administered by the operator and tracks it for deletion. submitKey
// may be nil for an open topic.
func (w *World) CreateTopic(ctx context.Context, memo string, submitKey ledger.Key) (ledger.TopicID, error) {
	operator, err := w.Operator()
	if err != nil {
		return "", err
	}

	receipt, err := w.Execute(ctx, &ledger.TopicCreate{Memo: memo, AdminKey: operator.Key.PublicKey(), SubmitKey: submitKey})
	if err != nil {
		return "", err
	}
	if receipt.TopicID == nil {
		return "", fmt.Errorf("topic create receipt has no topic ID")
	}

	w.Tracker.TrackTopic(*receipt.TopicID, operator.Key)
	log.Ctx(ctx).Infof("🆕 created topic %s", *receipt.TopicID)
	return *receipt.TopicID, nil
}

// CreateToken creates op. The treasury, admin key and supply key default to the operator.
func (w *World) CreateToken(ctx context.Context, op *ledger.TokenCreate) (ledger.TokenID, error) {
	operator, err := w.Operator()
	if err != nil {
		return "", err
	}
	if op.Treasury == "" {
		op.Treasury = operator.ID
	}
	if op.AdminKey == nil {
		op.AdminKey = operator.Key.PublicKey()
	}
	if op.SupplyKey == nil {
		op.SupplyKey = operator.Key.PublicKey()
	}
	if op.SupplyType == "" {
		op.SupplyType = ledger.SupplyTypeInfinite
	}

	receipt, err := w.Execute(ctx, op)
	if err != nil {
		return "", err
	}
	if receipt.TokenID == nil {
		return "", fmt.Errorf("token create receipt has no token ID")
	}

	w.mu.Lock()
	w.treasuries[*receipt.TokenID] = op.Treasury
	w.mu.Unlock()

	log.Ctx(ctx).Infof("🪙 created token %s (%s) with treasury %s", *receipt.TokenID, op.Symbol, op.Treasury)
	return *receipt.TokenID, nil
}

// Treasury returns the treasury of a token created in this scenario.
func (w *World) Treasury(tokenID ledger.TokenID) (ledger.AccountID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	treasury, ok := w.treasuries[tokenID]
	if !ok {
		return "", Prerequisite(false, fmt.Sprintf("token %s was not created in this scenario", tokenID))
	}
	return treasury, nil
}

func (w *World) Mint(ctx context.Context, tokenID ledger.TokenID, amount uint64) (ledger.Receipt, error) {
	return w.Execute(ctx, &ledger.TokenMint{TokenID: tokenID, Amount: amount})
}

// Associate lets account hold tokenIDs. The account key signs next to the operator.
func (w *World) Associate(ctx context.Context, account resources.TrackedAccount, tokenIDs ...ledger.TokenID) error {
	_, err := w.Execute(ctx, &ledger.TokenAssociate{AccountID: account.ID, TokenIDs: tokenIDs}, account.Key)
	return err
}

func (w *World) Balance(ctx context.Context, accountID ledger.AccountID, tokenIDs ...ledger.TokenID) (ledger.Balance, error) {
	return w.Balances.Get(ctx, accountID, tokenIDs...)
}

// WaitForMessage waits for expected on topicID from the beginning of the topic, for the
// subscription timeout of the harness.
func (w *World) WaitForMessage(ctx context.Context, topicID ledger.TopicID, expected string) (ledger.TopicMessage, error) {
	return w.Matcher.WaitForMessage(ctx, topicID, time.Unix(0, 0), expected, w.subscriptionTimeout)
}

// Close tears the scenario down against the operator and closes the client. scenarioErr is the
// outcome of the scenario steps. Failures are reported to the app tracker; teardown and close
// errors are returned.
func (w *World) Close(ctx context.Context, scenarioErr error) error {
	status := statusPassed
	if scenarioErr != nil {
		status = statusFailed
		w.appTracker.CaptureScenarioFailure(w.RunID, w.Name, scenarioErr)
	}

	w.mu.Lock()
	beneficiary := w.operator.ID
	w.mu.Unlock()

	var errs []error
	if err := w.Tracker.Teardown(ctx, beneficiary); err != nil {
		err = fmt.Errorf("tearing down scenario %q: %w", w.Name, err)
		w.appTracker.CaptureException(err)
		errs = append(errs, err)
	}
	if err := w.Client.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing ledger client: %w", err))
	}

	duration := time.Since(w.startedAt)
	w.metricsService.IncScenarios(status)
	w.metricsService.ObserveScenarioDuration(status, duration.Seconds())
	log.Ctx(ctx).Infof("🏁 scenario %q %s in %s", w.Name, status, duration.Round(time.Millisecond))

	return errors.Join(errs...)
}

type worldKey struct{}

func WithWorld(ctx context.Context, w *World) context.Context {
	return context.WithValue(ctx, worldKey{}, w)
}

// FromContext returns the world stored by WithWorld.
func FromContext(ctx context.Context) (*World, error) {
	w, ok := ctx.Value(worldKey{}).(*World)
	if !ok || w == nil {
		return nil, Prerequisite(false, "no scenario world in context")
	}
	return w, nil
}
