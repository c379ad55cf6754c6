package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/sumitpatel93/ledger-harness/internal/ledger"
)

var ErrNoEligibleAccount = errors.New("no account in the pool has a balance above the minimum")

// BalanceGetter is the balance lookup the resolver scans the pool with.
type BalanceGetter interface {
	Get(ctx context.Context, accountID ledger.AccountID, tokenIDs ...ledger.TokenID) (ledger.Balance, error)
}

// Operator is the credential bound to a client, with its key parsed.
type Operator struct {
	ID  ledger.AccountID
	Key ledger.PrivateKey
}

type Resolver struct {
	pool     Pool
	client   ledger.Client
	balances BalanceGetter
}

func NewResolver(pool Pool, client ledger.Client, balances BalanceGetter) *Resolver {
	return &Resolver{pool: pool, client: client, balances: balances}
}

// Find returns the first credential of the pool, in order, whose hbar balance strictly exceeds
// minTinybars. Accounts listed in exclude are skipped. Accounts whose balance cannot be read are
// logged and skipped.
func (r *Resolver) Find(ctx context.Context, minTinybars int64, exclude ...ledger.AccountID) (Operator, error) {
	excluded := make(map[ledger.AccountID]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}

	var skipped []error
	for _, credential := range r.pool {
		if _, ok := excluded[credential.ID]; ok {
			continue
		}

		balance, err := r.balances.Get(ctx, credential.ID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Operator{}, fmt.Errorf("resolving account: %w", ctxErr)
			}
			log.Ctx(ctx).Warnf("⚠️ skipping account %s: %v", credential.ID, err)
			skipped = append(skipped, err)
			continue
		}
		if balance.Hbars <= minTinybars {
			log.Ctx(ctx).Debugf("account %s has %d tinybars, needs more than %d", credential.ID, balance.Hbars, minTinybars)
			continue
		}

		key, err := r.client.ParsePrivateKey(credential.PrivateKey)
		if err != nil {
			log.Ctx(ctx).Warnf("⚠️ skipping account %s: %v", credential.ID, err)
			skipped = append(skipped, err)
			continue
		}
		return Operator{ID: credential.ID, Key: key}, nil
	}

	return Operator{}, errors.Join(append([]error{ErrNoEligibleAccount}, skipped...)...)
}

// Resolve finds an eligible account and binds it as the operator of the client.
func (r *Resolver) Resolve(ctx context.Context, minTinybars int64) (Operator, error) {
	operator, err := r.Find(ctx, minTinybars)
	if err != nil {
		return Operator{}, err
	}
	if err = r.client.SetOperator(operator.ID, operator.Key); err != nil {
		return Operator{}, fmt.Errorf("binding operator %s: %w", operator.ID, err)
	}

	log.Ctx(ctx).Infof("👤 operator bound to account %s", operator.ID)
	return operator, nil
}
