package transactions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/sumitpatel93/ledger-harness/internal/ledger"
	"github.com/sumitpatel93/ledger-harness/internal/metrics"
)

var (
	ErrNotFrozen        = errors.New("transaction must be frozen first")
	ErrAlreadyFrozen    = errors.New("transaction is already frozen")
	ErrNotSubmitted     = errors.New("transaction has not been submitted")
	ErrAlreadySubmitted = errors.New("transaction was already submitted")
)

type State int

const (
	StateBuilt State = iota
	StateFrozen
	StateSigned
	StateSubmitted
	StateReceipted
)

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "BUILT"
	case StateFrozen:
		return "FROZEN"
	case StateSigned:
		return "SIGNED"
	case StateSubmitted:
		return "SUBMITTED"
	case StateReceipted:
		return "RECEIPTED"
	default:
		return fmt.Sprintf("STATE_%d", int(s))
	}
}

// statusError labels failures that carry no network status in metrics.
const statusError = "ERROR"

// PendingTransaction is an SDK transaction moving through Built, Frozen, Signed, Submitted and
// Receipted. Steps are only accepted in that order and a transaction is submitted at most once.
type PendingTransaction struct {
	kind           ledger.TransactionKind
	tx             ledger.Transaction
	metricsService metrics.MetricsService

	mu          sync.Mutex
	state       State
	signatures  int
	response    ledger.Response
	submittedAt time.Time
}

func newPendingTransaction(kind ledger.TransactionKind, tx ledger.Transaction, metricsService metrics.MetricsService) *PendingTransaction {
	return &PendingTransaction{kind: kind, tx: tx, metricsService: metricsService, state: StateBuilt}
}

func (p *PendingTransaction) Kind() ledger.TransactionKind {
	return p.kind
}

func (p *PendingTransaction) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// Signatures is the number of keys the transaction was explicitly signed with.
func (p *PendingTransaction) Signatures() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.signatures
}

// TransactionID is empty until the transaction has been submitted.
func (p *PendingTransaction) TransactionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.response == nil {
		return ""
	}
	return p.response.TransactionID()
}

// Freeze fixes the transaction body, its ID and its payer, the client operator.
func (p *PendingTransaction) Freeze(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateBuilt {
		return ErrAlreadyFrozen
	}
	if err := p.tx.Freeze(ctx); err != nil {
		log.Ctx(ctx).Errorf("❌ freezing %s transaction: %v", p.kind, err)
		return fmt.Errorf("freezing %s transaction: %w", p.kind, err)
	}

	p.state = StateFrozen
	return nil
}

// Sign adds a signature for each key, in the order given.
func (p *PendingTransaction) Sign(keys ...ledger.PrivateKey) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateBuilt:
		return ErrNotFrozen
	case StateSubmitted, StateReceipted:
		return ErrAlreadySubmitted
	}

	for i, key := range keys {
		if err := p.tx.Sign(key); err != nil {
			return fmt.Errorf("signing %s transaction with key %d: %w", p.kind, i, err)
		}
		p.signatures++
		p.state = StateSigned
	}
	return nil
}

// Submit sends the transaction to the network. It is never retried: a failed submission leaves the
// transaction submitted.
func (p *PendingTransaction) Submit(ctx context.Context) (ledger.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateBuilt:
		return nil, ErrNotFrozen
	case StateSubmitted, StateReceipted:
		return nil, ErrAlreadySubmitted
	}

	p.state = StateSubmitted
	p.submittedAt = time.Now()
	response, err := p.tx.Execute(ctx)
	if err != nil {
		p.observe(err)
		log.Ctx(ctx).Errorf("❌ submitting %s transaction: %v", p.kind, err)
		return nil, fmt.Errorf("submitting %s transaction: %w", p.kind, err)
	}

	p.response = response
	log.Ctx(ctx).Debugf("📨 submitted %s transaction %s with %d signatures", p.kind, response.TransactionID(), p.signatures)
	return response, nil
}

// Receipt waits for the consensus outcome. A rejection by the network is returned as a
// *ledger.ReceiptStatusError.
func (p *PendingTransaction) Receipt(ctx context.Context) (ledger.Receipt, error) {
	response, err := p.submitted()
	if err != nil {
		return ledger.Receipt{}, err
	}

	receipt, err := response.Receipt(ctx)
	p.finish(ctx, response.TransactionID(), err)
	if err != nil {
		return receipt, fmt.Errorf("getting receipt of %s transaction %s: %w", p.kind, response.TransactionID(), err)
	}
	return receipt, nil
}

func (p *PendingTransaction) Record(ctx context.Context) (ledger.Record, error) {
	response, err := p.submitted()
	if err != nil {
		return ledger.Record{}, err
	}

	record, err := response.Record(ctx)
	p.finish(ctx, response.TransactionID(), err)
	if err != nil {
		return record, fmt.Errorf("getting record of %s transaction %s: %w", p.kind, response.TransactionID(), err)
	}
	return record, nil
}

func (p *PendingTransaction) submitted() (ledger.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.response == nil {
		return nil, ErrNotSubmitted
	}
	return p.response, nil
}

func (p *PendingTransaction) finish(ctx context.Context, transactionID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateReceipted {
		return
	}
	p.state = StateReceipted
	p.observe(err)

	if err != nil {
		log.Ctx(ctx).Errorf("❌ %s transaction %s failed: %v", p.kind, transactionID, err)
		return
	}
	log.Ctx(ctx).Debugf("✅ %s transaction %s succeeded", p.kind, transactionID)
}

// observe must be called with the lock held.
func (p *PendingTransaction) observe(err error) {
	status := ledger.StatusSuccess.String()
	if err != nil {
		status = statusError
		if s, ok := ledger.StatusOf(err); ok {
			status = s.String()
		}
	}

	p.metricsService.IncTransactions(string(p.kind), status)
	p.metricsService.ObserveTransactionDuration(string(p.kind), time.Since(p.submittedAt).Seconds())
}
