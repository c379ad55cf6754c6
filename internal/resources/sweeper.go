package resources

import (
	"context"
	"fmt"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/sumitpatel93/ledger-harness/internal/ledger"
	"github.com/sumitpatel93/ledger-harness/internal/store"
	"github.com/sumitpatel93/ledger-harness/internal/transactions"
)

// KeyParser turns a stored private key back into a signing key.
type KeyParser interface {
	ParsePrivateKey(key string) (ledger.PrivateKey, error)
}

type SweeperOptions struct {
	Pipeline  transactions.Pipeline
	Keys      KeyParser
	LeakStore store.LeakStore
}

func (o *SweeperOptions) ValidateOptions() error {
	if o.Pipeline == nil {
		return fmt.Errorf("pipeline cannot be nil")
	}
	if o.Keys == nil {
		return fmt.Errorf("key parser cannot be nil")
	}
	if o.LeakStore == nil {
		return fmt.Errorf("leak store cannot be nil")
	}
	return nil
}

// Sweeper retries the removal of resources earlier teardowns leaked.
type Sweeper struct {
	opts SweeperOptions
}

func NewSweeper(opts SweeperOptions) (*Sweeper, error) {
	if err := opts.ValidateOptions(); err != nil {
		return nil, fmt.Errorf("validating sweeper options: %w", err)
	}
	return &Sweeper{opts: opts}, nil
}

type SweepResult struct {
	Reclaimed int
	Failed    int
}

// Sweep attempts up to limit unreclaimed leaks, oldest first, moving reclaimed account balances to
// beneficiary. A resource the network reports as already gone counts as reclaimed. Failed attempts
// are counted in the store and do not stop the sweep; only store errors are returned.
func (s *Sweeper) Sweep(ctx context.Context, beneficiary ledger.AccountID, limit int) (SweepResult, error) {
	var result SweepResult
	if beneficiary == "" {
		return result, fmt.Errorf("sweeping leaks: no beneficiary account")
	}

	leaks, err := s.opts.LeakStore.GetUnreclaimed(ctx, limit)
	if err != nil {
		return result, fmt.Errorf("sweeping leaks: %w", err)
	}
	log.Ctx(ctx).Infof("🧹 sweeping %d leaked resources", len(leaks))

	for _, leaked := range leaks {
		if err = ctx.Err(); err != nil {
			return result, fmt.Errorf("sweeping leaks: %w", err)
		}

		reclaimErr := s.reclaim(ctx, leaked, beneficiary)
		if reclaimErr != nil {
			log.Ctx(ctx).Warnf("⚠️ reclaiming %s %s: %v", leaked.Kind, leaked.EntityID, reclaimErr)
			result.Failed++
			if err = s.opts.LeakStore.IncrementAttempts(ctx, leaked.ID); err != nil {
				return result, fmt.Errorf("counting reclaim attempt of %s: %w", leaked.EntityID, err)
			}
			continue
		}

		if err = s.opts.LeakStore.MarkReclaimed(ctx, leaked.ID); err != nil {
			return result, fmt.Errorf("marking %s as reclaimed: %w", leaked.EntityID, err)
		}
		result.Reclaimed++
		log.Ctx(ctx).Infof("✅ reclaimed %s %s", leaked.Kind, leaked.EntityID)
	}

	return result, nil
}

func (s *Sweeper) reclaim(ctx context.Context, leaked *store.LeakedResource, beneficiary ledger.AccountID) error {
	switch leaked.Kind {
	case store.KindTopic:
		var signers []ledger.PrivateKey
		if leaked.EncryptedPrivateKey.Valid {
			key, err := s.key(ctx, leaked)
			if err != nil {
				return err
			}
			signers = append(signers, key)
		}
		_, err := s.opts.Pipeline.Execute(ctx, &ledger.TopicDelete{TopicID: ledger.TopicID(leaked.EntityID)}, signers...)
		return gone(err, ledger.StatusInvalidTopicID)

	case store.KindAccount:
		if ledger.AccountID(leaked.EntityID) == beneficiary {
			return nil
		}
		key, err := s.key(ctx, leaked)
		if err != nil {
			return err
		}
		op := &ledger.AccountDelete{AccountID: ledger.AccountID(leaked.EntityID), TransferAccountID: beneficiary}
		_, err = s.opts.Pipeline.Execute(ctx, op, key)
		return gone(err, ledger.StatusAccountDeleted)

	default:
		return fmt.Errorf("%w: %q", store.ErrUnknownKind, leaked.Kind)
	}
}

func (s *Sweeper) key(ctx context.Context, leaked *store.LeakedResource) (ledger.PrivateKey, error) {
	raw, err := s.opts.LeakStore.PrivateKey(ctx, leaked)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	key, err := s.opts.Keys.ParsePrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return key, nil
}

// gone drops err when the network rejected the deletion because the entity no longer exists.
func gone(err error, status ledger.Status) error {
	if err != nil && ledger.IsStatus(err, status) {
		return nil
	}
	return err
}
