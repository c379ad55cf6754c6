// Package balances memoizes account balance lookups for the lifetime of a scenario.
package balances

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/sumitpatel93/ledger-harness/internal/ledger"
	"github.com/sumitpatel93/ledger-harness/internal/metrics"
)

const (
	DefaultTTL = 5 * time.Second

	defaultQueryAttempts   = 3
	defaultQueryRetryDelay = 500 * time.Millisecond
)

type entry struct {
	balance    ledger.Balance
	capturedAt time.Time
}

// Cache serves balances younger than its TTL from memory. Stale entries are replaced on the next
// lookup, never evicted in the background.
type Cache struct {
	client         ledger.Client
	metricsService metrics.MetricsService
	ttl            time.Duration
	now            func() time.Time
	retryOptions   []retry.Option

	mu      sync.Mutex
	entries map[ledger.AccountID]entry
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithRetryOptions overrides how BUSY balance queries are retried.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(c *Cache) {
		c.retryOptions = opts
	}
}

func NewCache(client ledger.Client, metricsService metrics.MetricsService, opts ...Option) *Cache {
	c := &Cache{
		client:         client,
		metricsService: metricsService,
		ttl:            DefaultTTL,
		now:            time.Now,
		retryOptions:   []retry.Option{retry.Attempts(defaultQueryAttempts), retry.Delay(defaultQueryRetryDelay)},
		entries:        make(map[ledger.AccountID]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the balance of accountID, including the balance of tokenID when one is given. A
// cached entry is used when it is younger than the TTL and was captured with the requested token.
func (c *Cache) Get(ctx context.Context, accountID ledger.AccountID, tokenIDs ...ledger.TokenID) (ledger.Balance, error) {
	if balance, ok := c.lookup(accountID, tokenIDs); ok {
		c.metricsService.IncBalanceCacheHit()
		return balance, nil
	}
	c.metricsService.IncBalanceCacheMiss()

	var balance ledger.Balance
	err := retry.Do(
		func() error {
			var queryErr error
			balance, queryErr = c.client.QueryBalance(ctx, accountID, tokenIDs...)
			return queryErr
		},
		append(
			c.retryOptions,
			retry.Context(ctx),
			retry.LastErrorOnly(true),
			retry.RetryIf(func(err error) bool {
				return ledger.IsStatus(err, ledger.StatusBusy)
			}),
			retry.OnRetry(func(n uint, err error) {
				log.Ctx(ctx).Warnf("🔁 balance query for %s is busy, attempt %d: %v", accountID, n+1, err)
			}),
		)...,
	)
	if err != nil {
		c.metricsService.IncBalanceQueryError()
		return ledger.Balance{}, fmt.Errorf("getting balance of %s: %w", accountID, err)
	}

	c.mu.Lock()
	c.entries[accountID] = entry{balance: balance, capturedAt: c.now()}
	c.mu.Unlock()

	return balance, nil
}

func (c *Cache) lookup(accountID ledger.AccountID, tokenIDs []ledger.TokenID) (ledger.Balance, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.entries[accountID]
	if !ok || c.now().Sub(cached.capturedAt) >= c.ttl {
		return ledger.Balance{}, false
	}
	for _, tokenID := range tokenIDs {
		if !cached.balance.HasToken(tokenID) {
			return ledger.Balance{}, false
		}
	}
	return cached.balance, true
}

// Invalidate drops the cached balance of accountID, for use after a transaction changed it.
func (c *Cache) Invalidate(accountIDs ...ledger.AccountID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, accountID := range accountIDs {
		delete(c.entries, accountID)
	}
}

// Clear drops every cached balance.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[ledger.AccountID]entry)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
