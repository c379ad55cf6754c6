// Package memledger is an in-process ledger network. It implements enough of the account, topic and
// token semantics (signature requirements, supply caps, associations, message streaming) to run
// scenarios offline and to test the harness without a live network.
package memledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sumitpatel93/ledger-harness/internal/ledger"
)

const (
	shard       = 0
	realm       = 0
	firstEntity = 1001

	subscriberBufferSize = 1024
)

type account struct {
	key     ledger.Key
	hbars   int64
	tokens  map[ledger.TokenID]uint64
	deleted bool
}

type topic struct {
	memo        string
	adminKey    ledger.Key
	submitKey   ledger.Key
	messages    []ledger.TopicMessage
	subscribers map[int]*subscriber
	deleted     bool
}

type token struct {
	name        string
	symbol      string
	decimals    uint32
	treasury    ledger.AccountID
	adminKey    ledger.Key
	supplyKey   ledger.Key
	supplyType  ledger.SupplyType
	maxSupply   uint64
	totalSupply uint64
}

type Network struct {
	mu            sync.Mutex
	now           func() time.Time
	nextEntity    uint64
	nextSub       int
	lastTimestamp time.Time
	accounts      map[ledger.AccountID]*account
	topics        map[ledger.TopicID]*topic
	tokens        map[ledger.TokenID]*token
	queries       map[ledger.AccountID]int
}

type Option func(*Network)

// WithClock replaces the wall clock used for consensus timestamps.
func WithClock(now func() time.Time) Option {
	return func(n *Network) {
		n.now = now
	}
}

func NewNetwork(opts ...Option) *Network {
	n := &Network{
		now:        time.Now,
		nextEntity: firstEntity,
		accounts:   make(map[ledger.AccountID]*account),
		topics:     make(map[ledger.TopicID]*topic),
		tokens:     make(map[ledger.TokenID]*token),
		queries:    make(map[ledger.AccountID]int),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NewClient returns a client without an operator. Clients share the network state but each holds
// its own operator.
func (n *Network) NewClient() *Client {
	return &Client{network: n}
}

func (n *Network) ClientFactory() ledger.ClientFactory {
	return func() (ledger.Client, error) {
		return n.NewClient(), nil
	}
}

// Genesis creates an account funded with hbars out of thin air, for seeding account pools.
func (n *Network) Genesis(hbars int64) (ledger.AccountID, ledger.PrivateKey, error) {
	key, err := GeneratePrivateKey()
	if err != nil {
		return "", nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	id := ledger.AccountID(n.newEntityID())
	n.accounts[id] = &account{
		key:    key.PublicKey(),
		hbars:  ledger.HbarToTinybar(hbars),
		tokens: make(map[ledger.TokenID]uint64),
	}
	return id, key, nil
}

// SetHbars overwrites the hbar balance of an account, in tinybars.
func (n *Network) SetHbars(accountID ledger.AccountID, tinybars int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	acc, ok := n.accounts[accountID]
	if !ok {
		return fmt.Errorf("account %s not found", accountID)
	}
	acc.hbars = tinybars
	return nil
}

// BalanceQueries returns how many live balance queries were made for an account.
func (n *Network) BalanceQueries(accountID ledger.AccountID) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.queries[accountID]
}

// Subscribers returns the number of live subscriptions on a topic.
func (n *Network) Subscribers(topicID ledger.TopicID) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	t, ok := n.topics[topicID]
	if !ok {
		return 0
	}
	return len(t.subscribers)
}

// TopicExists reports whether a topic was created and not deleted.
func (n *Network) TopicExists(topicID ledger.TopicID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	t, ok := n.topics[topicID]
	return ok && !t.deleted
}

// AccountExists reports whether an account was created and not deleted.
func (n *Network) AccountExists(accountID ledger.AccountID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	acc, ok := n.accounts[accountID]
	return ok && !acc.deleted
}

// Messages returns a copy of the messages sequenced on a topic.
func (n *Network) Messages(topicID ledger.TopicID) []ledger.TopicMessage {
	n.mu.Lock()
	defer n.mu.Unlock()

	t, ok := n.topics[topicID]
	if !ok {
		return nil
	}
	return append([]ledger.TopicMessage(nil), t.messages...)
}

// FailSubscriptions surfaces err to every live subscription of a topic, terminating them.
func (n *Network) FailSubscriptions(topicID ledger.TopicID, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	t, ok := n.topics[topicID]
	if !ok {
		return
	}
	for id, sub := range t.subscribers {
		sub.fail(err)
		delete(t.subscribers, id)
	}
}

func (n *Network) newEntityID() string {
	id := fmt.Sprintf("%d.%d.%d", shard, realm, n.nextEntity)
	n.nextEntity++
	return id
}

func (n *Network) consensusTimestamp() time.Time {
	ts := n.now()
	if !ts.After(n.lastTimestamp) {
		ts = n.lastTimestamp.Add(time.Nanosecond)
	}
	n.lastTimestamp = ts
	return ts
}

func (n *Network) balance(accountID ledger.AccountID, tokenIDs []ledger.TokenID) (ledger.Balance, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.queries[accountID]++
	acc, ok := n.accounts[accountID]
	if !ok {
		return ledger.Balance{}, &ledger.ReceiptStatusError{Status: ledger.StatusInvalidAccountID, Precheck: true}
	}
	if acc.deleted {
		return ledger.Balance{}, &ledger.ReceiptStatusError{Status: ledger.StatusAccountDeleted, Precheck: true}
	}

	balance := ledger.Balance{Hbars: acc.hbars, Tokens: make(map[ledger.TokenID]uint64, len(tokenIDs))}
	for _, tokenID := range tokenIDs {
		balance.Tokens[tokenID] = acc.tokens[tokenID]
	}
	return balance, nil
}

func (n *Network) subscribe(topicID ledger.TopicID, start time.Time, onMessage func(ledger.TopicMessage), onError func(error)) (*subscription, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	t, ok := n.topics[topicID]
	if !ok || t.deleted {
		return nil, fmt.Errorf("subscribing to topic %s: %w", topicID, &ledger.ReceiptStatusError{Status: ledger.StatusInvalidTopicID, Precheck: true})
	}

	sub := newSubscriber(start)
	for _, msg := range t.messages {
		sub.deliver(msg)
	}
	id := n.nextSub
	n.nextSub++
	t.subscribers[id] = sub
	go sub.run(onMessage, onError)

	return &subscription{network: n, topicID: topicID, id: id, sub: sub}, nil
}

func (n *Network) unsubscribe(topicID ledger.TopicID, id int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if t, ok := n.topics[topicID]; ok {
		delete(t.subscribers, id)
	}
}

type subscriber struct {
	start    time.Time
	messages chan ledger.TopicMessage
	errs     chan error
	done     chan struct{}
	once     sync.Once
}

func newSubscriber(start time.Time) *subscriber {
	return &subscriber{
		start:    start,
		messages: make(chan ledger.TopicMessage, subscriberBufferSize),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
	}
}

func (s *subscriber) deliver(msg ledger.TopicMessage) {
	if msg.ConsensusTimestamp.Before(s.start) {
		return
	}
	select {
	case s.messages <- msg:
	default:
	}
}

func (s *subscriber) fail(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscriber) run(onMessage func(ledger.TopicMessage), onError func(error)) {
	for {
		select {
		case <-s.done:
			return
		case err := <-s.errs:
			if onError != nil {
				onError(err)
			}
			s.stop()
			return
		case msg := <-s.messages:
			if onMessage != nil {
				onMessage(msg)
			}
		}
	}
}

type subscription struct {
	network *Network
	topicID ledger.TopicID
	id      int
	sub     *subscriber
}

var _ ledger.SubscriptionHandle = (*subscription)(nil)

func (s *subscription) Unsubscribe() {
	s.sub.stop()
	s.network.unsubscribe(s.topicID, s.id)
}

var errUnsupportedOperation = errors.New("unsupported operation")
