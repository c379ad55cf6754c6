// Package ledger describes the surface of the distributed-ledger SDK the harness drives: entity
// identifiers, keys, typed operations, receipts, balances and topic subscriptions.
package ledger

import (
	"fmt"
	"strings"
	"time"
)

// TinybarsPerHbar is the number of tinybars in one hbar.
const TinybarsPerHbar int64 = 100_000_000

type (
	AccountID string
	TopicID   string
	TokenID   string
)

func (id AccountID) String() string { return string(id) }
func (id TopicID) String() string   { return string(id) }
func (id TokenID) String() string   { return string(id) }

// HbarToTinybar converts a whole hbar amount to tinybars.
func HbarToTinybar(hbars int64) int64 {
	return hbars * TinybarsPerHbar
}

// Key is anything the network accepts as an authorization policy: a single public key or a
// threshold key list.
type Key interface {
	String() string
}

type PublicKey interface {
	Key
	Verify(message, signature []byte) bool
}

type PrivateKey interface {
	PublicKey() PublicKey
	Sign(message []byte) []byte
	String() string
}

// ThresholdKey is an m-of-n authorization policy.
type ThresholdKey struct {
	Threshold uint
	Keys      []PublicKey
}

var _ Key = (*ThresholdKey)(nil)

func NewThresholdKey(threshold uint, keys ...PublicKey) (*ThresholdKey, error) {
	if threshold == 0 {
		return nil, fmt.Errorf("threshold must be at least 1")
	}
	if int(threshold) > len(keys) {
		return nil, fmt.Errorf("threshold %d is greater than the number of keys %d", threshold, len(keys))
	}
	for i, key := range keys {
		if key == nil {
			return nil, fmt.Errorf("key at index %d is nil", i)
		}
	}

	return &ThresholdKey{Threshold: threshold, Keys: keys}, nil
}

func (k *ThresholdKey) String() string {
	keys := make([]string, len(k.Keys))
	for i, key := range k.Keys {
		keys[i] = key.String()
	}
	return fmt.Sprintf("threshold(%d of %d)[%s]", k.Threshold, len(k.Keys), strings.Join(keys, ","))
}

// Balance holds the hbar balance of an account and the balances of the tokens that were asked for.
// A requested token the account does not hold is present with a zero amount.
type Balance struct {
	Hbars  int64
	Tokens map[TokenID]uint64
}

func (b Balance) Token(tokenID TokenID) uint64 {
	return b.Tokens[tokenID]
}

// HasToken reports whether the balance was queried for tokenID.
func (b Balance) HasToken(tokenID TokenID) bool {
	_, ok := b.Tokens[tokenID]
	return ok
}

type TopicMessage struct {
	TopicID            TopicID
	Contents           []byte
	SequenceNumber     uint64
	ConsensusTimestamp time.Time
}

type Receipt struct {
	Status              Status
	AccountID           *AccountID
	TopicID             *TopicID
	TokenID             *TokenID
	TotalSupply         uint64
	TopicSequenceNumber uint64
}

type Record struct {
	TransactionID      string
	PayerAccountID     AccountID
	ConsensusTimestamp time.Time
	Receipt            Receipt
}
