// Package hederaclient adapts the Hedera Go SDK to the ledger.Client interface.
package hederaclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashgraph/hedera-sdk-go/v2"
	"google.golang.org/grpc/status"

	"github.com/sumitpatel93/ledger-harness/internal/ledger"
)

// Networks lists the named networks a client can connect to.
var Networks = []string{"testnet", "previewnet", "mainnet"}

type Client struct {
	sdk *hedera.Client

	mu         sync.Mutex
	operatorID ledger.AccountID
	operator   ledger.PrivateKey
}

var _ ledger.Client = (*Client)(nil)

// New connects to a named network.
func New(network string) (*Client, error) {
	sdk, err := hedera.ClientForName(network)
	if err != nil {
		return nil, fmt.Errorf("creating client for network %q: %w", network, err)
	}
	return &Client{sdk: sdk}, nil
}

// Factory returns a ledger.ClientFactory opening a new client on network for every call.
func Factory(network string) ledger.ClientFactory {
	return func() (ledger.Client, error) {
		return New(network)
	}
}

func (c *Client) SetOperator(accountID ledger.AccountID, key ledger.PrivateKey) error {
	sdkAccountID, err := hedera.AccountIDFromString(accountID.String())
	if err != nil {
		return fmt.Errorf("parsing operator account ID: %w", err)
	}
	sdkKey, err := sdkPrivateKey(key)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sdk.SetOperator(sdkAccountID, sdkKey)
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
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.buildTransaction(op)
}

func (c *Client) QueryBalance(ctx context.Context, accountID ledger.AccountID, tokenIDs ...ledger.TokenID) (ledger.Balance, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Balance{}, err
	}
	sdkAccountID, err := hedera.AccountIDFromString(accountID.String())
	if err != nil {
		return ledger.Balance{}, fmt.Errorf("parsing account ID: %w", err)
	}

	sdkBalance, err := hedera.NewAccountBalanceQuery().
		SetAccountID(sdkAccountID).
		Execute(c.sdk)
	if err != nil {
		return ledger.Balance{}, fmt.Errorf("querying balance of %s: %w", accountID, mapError(err))
	}

	balance := ledger.Balance{
		Hbars:  sdkBalance.Hbars.AsTinybar(),
		Tokens: make(map[ledger.TokenID]uint64, len(tokenIDs)),
	}
	for _, id := range tokenIDs {
		tokenID, err := hedera.TokenIDFromString(id.String())
		if err != nil {
			return ledger.Balance{}, fmt.Errorf("parsing token ID: %w", err)
		}
		balance.Tokens[id] = sdkBalance.Tokens.Get(tokenID)
	}
	return balance, nil
}

func (c *Client) SubscribeTopic(ctx context.Context, topicID ledger.TopicID, start time.Time, onMessage func(ledger.TopicMessage), onError func(error)) (ledger.SubscriptionHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sdkTopicID, err := hedera.TopicIDFromString(topicID.String())
	if err != nil {
		return nil, fmt.Errorf("parsing topic ID: %w", err)
	}

	handle, err := hedera.NewTopicMessageQuery().
		SetTopicID(sdkTopicID).
		SetStartTime(start).
		SetErrorHandler(func(stat status.Status) {
			if onError != nil {
				onError(fmt.Errorf("topic %s subscription: %w", topicID, stat.Err()))
			}
		}).
		Subscribe(c.sdk, func(msg hedera.TopicMessage) {
			onMessage(ledger.TopicMessage{
				TopicID:            topicID,
				Contents:           msg.Contents,
				SequenceNumber:     msg.SequenceNumber,
				ConsensusTimestamp: msg.ConsensusTimestamp,
			})
		})
	if err != nil {
		return nil, fmt.Errorf("subscribing to topic %s: %w", topicID, err)
	}
	return &handle, nil
}

func (c *Client) Close() error {
	if err := c.sdk.Close(); err != nil {
		return fmt.Errorf("closing client: %w", err)
	}
	return nil
}
