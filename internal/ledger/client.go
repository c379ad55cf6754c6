package ledger

import (
	"context"
	"time"
)

// Client is the remote ledger SDK as consumed by the harness. A client carries one operator, the
// account paying fees and signing every transaction it executes.
type Client interface {
	SetOperator(accountID AccountID, key PrivateKey) error
	Operator() (AccountID, PrivateKey, bool)
	ParsePrivateKey(key string) (PrivateKey, error)
	GeneratePrivateKey() (PrivateKey, error)
	NewTransaction(ctx context.Context, op Operation) (Transaction, error)
	// QueryBalance returns the hbar balance of accountID and its balance of each of tokenIDs.
	QueryBalance(ctx context.Context, accountID AccountID, tokenIDs ...TokenID) (Balance, error)
	// SubscribeTopic streams the messages of topicID with a consensus timestamp at or after start.
	// Callbacks run on SDK goroutines.
	SubscribeTopic(ctx context.Context, topicID TopicID, start time.Time, onMessage func(TopicMessage), onError func(error)) (SubscriptionHandle, error)
	Close() error
}

// Transaction is an unsubmitted SDK transaction. It must be frozen before it is signed and
// executed.
type Transaction interface {
	Freeze(ctx context.Context) error
	Sign(key PrivateKey) error
	Execute(ctx context.Context) (Response, error)
}

type Response interface {
	TransactionID() string
	// Receipt waits for consensus. A rejected transaction yields a *ReceiptStatusError.
	Receipt(ctx context.Context) (Receipt, error)
	Record(ctx context.Context) (Record, error)
}

type SubscriptionHandle interface {
	Unsubscribe()
}

// ClientFactory opens a new client connected to the configured network.
type ClientFactory func() (Client, error)
