package steps

import (
	"context"
	"fmt"

	"github.com/sumitpatel93/ledger-harness/internal/ledger"
)

func registerAccountSteps(r *registry, st *state) {
	r.step(`^an operator account with more than (\d+) hbars$`, func(ctx context.Context, hbars int64) error {
		w, err := world(ctx)
		if err != nil {
			return err
		}
		operator, err := w.Resolve(ctx, ledger.HbarToTinybar(hbars))
		if err != nil {
			return err
		}
		balance, err := w.Balance(ctx, operator.ID)
		if err != nil {
			return err
		}
		st.startingOperatorHbars = balance.Hbars
		return nil
	})

	r.step(`^(\d+) accounts? funded with (\d+) hbars? each$`, func(ctx context.Context, count int, hbars int64) error {
		w, err := world(ctx)
		if err != nil {
			return err
		}
		for i := 0; i < count; i++ {
			account, err := w.CreateAccount(ctx, ledger.HbarToTinybar(hbars))
			if err != nil {
				return fmt.Errorf("creating account %d of %d: %w", i+1, count, err)
			}
			st.accounts = append(st.accounts, account)
		}
		return nil
	})

	r.step(`^account (\d+) holds (\d+) hbars$`, func(ctx context.Context, n int, hbars int64) error {
		w, err := world(ctx)
		if err != nil {
			return err
		}
		account, err := st.account(n)
		if err != nil {
			return err
		}
		balance, err := w.Balance(ctx, account.ID)
		if err != nil {
			return err
		}
		return expectEqual(fmt.Sprintf("the hbar balance of account %d", n), ledger.HbarToTinybar(hbars), balance.Hbars)
	})

	r.step(`^the operator balance decreased by at least (\d+) hbars$`, func(ctx context.Context, hbars int64) error {
		w, err := world(ctx)
		if err != nil {
			return err
		}
		operator, err := w.Operator()
		if err != nil {
			return err
		}
		balance, err := w.Balance(ctx, operator.ID)
		if err != nil {
			return err
		}
		if spent := st.startingOperatorHbars - balance.Hbars; spent < ledger.HbarToTinybar(hbars) {
			return fmt.Errorf("expected the operator to spend at least %d tinybars, it spent %d", ledger.HbarToTinybar(hbars), spent)
		}
		return nil
	})

	r.step(`^account (\d+) transfers (\d+) hbars to account (\d+)$`, func(ctx context.Context, from int, hbars int64, to int) error {
		w, err := world(ctx)
		if err != nil {
			return err
		}
		sender, err := st.account(from)
		if err != nil {
			return err
		}
		recipient, err := st.account(to)
		if err != nil {
			return err
		}
		amount := ledger.HbarToTinybar(hbars)
		st.attempt(w.Execute(ctx, &ledger.Transfer{Hbars: []ledger.HbarTransfer{
			{AccountID: sender.ID, Amount: -amount},
			{AccountID: recipient.ID, Amount: amount},
		}}, sender.Key))
		return nil
	})

	r.step(`^the last transaction succeeds$`, st.lastTransactionSucceeds)
	r.step(`^the last transaction fails with status (\w+)$`, st.lastTransactionFails)
}
