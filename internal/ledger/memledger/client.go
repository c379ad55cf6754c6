package memledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sumitpatel93/ledger-harness/internal/ledger"
)

var (
	ErrClientClosed  = errors.New("client is closed")
	ErrNoOperator    = errors.New("client has no operator")
	ErrNotFrozen     = errors.New("transaction is not frozen")
	ErrAlreadyFrozen = errors.New("transaction is already frozen")
	ErrExecuted      = errors.New("transaction was already executed")
)

// Client is a ledger.Client bound to a Network.
type Client struct {
	network *Network

	mu         sync.Mutex
	operatorID ledger.AccountID
	operator   ledger.PrivateKey
	closed     bool
}

var _ ledger.Client = (*Client)(nil)

func (c *Client) SetOperator(accountID ledger.AccountID, key ledger.PrivateKey) error {
	if key == nil {
		return fmt.Errorf("operator key for %s cannot be nil", accountID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	c.operatorID = accountID
	c.operator = key
	return nil
}

func (c *Client) Operator() (ledger.AccountID, ledger.PrivateKey, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.operatorID, c.operator, c.operator != nil
}

func (c *Client) ParsePrivateKey(key string) (ledger.PrivateKey, error) {
	return ParsePrivateKey(key)
}

func (c *Client) GeneratePrivateKey() (ledger.PrivateKey, error) {
	return GeneratePrivateKey()
}

func (c *Client) NewTransaction(ctx context.Context, op ledger.Operation) (ledger.Transaction, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}

	switch op.(type) {
	case *ledger.AccountCreate, *ledger.AccountDelete, *ledger.TopicCreate, *ledger.TopicDelete,
		*ledger.TopicMessageSubmit, *ledger.TokenCreate, *ledger.TokenMint, *ledger.TokenAssociate,
		*ledger.Transfer:
	default:
		return nil, fmt.Errorf("%w: %T", errUnsupportedOperation, op)
	}

	return &transaction{client: c, op: op, signatures: make(map[string][]byte)}, nil
}

func (c *Client) QueryBalance(ctx context.Context, accountID ledger.AccountID, tokenIDs ...ledger.TokenID) (ledger.Balance, error) {
	if err := c.check(ctx); err != nil {
		return ledger.Balance{}, err
	}

	balance, err := c.network.balance(accountID, tokenIDs)
	if err != nil {
		return ledger.Balance{}, fmt.Errorf("querying balance of %s: %w", accountID, err)
	}
	return balance, nil
}

func (c *Client) SubscribeTopic(ctx context.Context, topicID ledger.TopicID, start time.Time, onMessage func(ledger.TopicMessage), onError func(error)) (ledger.SubscriptionHandle, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}

	return c.network.subscribe(topicID, start, onMessage, onError)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	return nil
}

func (c *Client) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	return nil
}

type transaction struct {
	client *Client
	op     ledger.Operation

	mu         sync.Mutex
	id         string
	payer      ledger.AccountID
	body       []byte
	signatures map[string][]byte
	executed   bool
}

var _ ledger.Transaction = (*transaction)(nil)

func (tx *transaction) Freeze(ctx context.Context) error {
	if err := tx.client.check(ctx); err != nil {
		return err
	}
	payer, _, ok := tx.client.Operator()
	if !ok {
		return ErrNoOperator
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.body != nil {
		return ErrAlreadyFrozen
	}

	validStart := tx.client.network.now()
	tx.payer = payer
	tx.id = fmt.Sprintf("%s@%d.%09d", payer, validStart.Unix(), validStart.Nanosecond())
	tx.body = []byte(fmt.Sprintf("%s|%s|%+v", tx.id, tx.op.Kind(), tx.op))
	return nil
}

func (tx *transaction) Sign(key ledger.PrivateKey) error {
	if key == nil {
		return fmt.Errorf("signing key cannot be nil")
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.body == nil {
		return ErrNotFrozen
	}
	if tx.executed {
		return ErrExecuted
	}
	tx.signatures[key.PublicKey().String()] = key.Sign(tx.body)
	return nil
}

func (tx *transaction) Execute(ctx context.Context) (ledger.Response, error) {
	if err := tx.client.check(ctx); err != nil {
		return nil, err
	}
	_, operatorKey, ok := tx.client.Operator()
	if !ok {
		return nil, ErrNoOperator
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.body == nil {
		return nil, ErrNotFrozen
	}
	if tx.executed {
		return nil, ErrExecuted
	}
	tx.executed = true
	tx.signatures[operatorKey.PublicKey().String()] = operatorKey.Sign(tx.body)

	record := tx.client.network.apply(tx)
	return &response{record: record}, nil
}

// signedBy reports whether the collected signatures satisfy key.
func (tx *transaction) signedBy(key ledger.Key) bool {
	switch k := key.(type) {
	case *ledger.ThresholdKey:
		var signed uint
		for _, member := range k.Keys {
			if tx.signedBy(member) {
				signed++
			}
		}
		return signed >= k.Threshold
	case ledger.PublicKey:
		signature, ok := tx.signatures[k.String()]
		return ok && k.Verify(tx.body, signature)
	default:
		return false
	}
}

type response struct {
	record ledger.Record
}

var _ ledger.Response = (*response)(nil)

func (r *response) TransactionID() string {
	return r.record.TransactionID
}

func (r *response) Receipt(ctx context.Context) (ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Receipt{}, err
	}
	if r.record.Receipt.Status != ledger.StatusSuccess {
		return r.record.Receipt, &ledger.ReceiptStatusError{TransactionID: r.record.TransactionID, Status: r.record.Receipt.Status}
	}
	return r.record.Receipt, nil
}

func (r *response) Record(ctx context.Context) (ledger.Record, error) {
	if _, err := r.Receipt(ctx); err != nil {
		return r.record, err
	}
	return r.record, nil
}
