package steps

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"

	"github.com/sumitpatel93/ledger-harness/internal/ledger"
)

// scenarioTokenDecimals is the precision of the tokens created by the steps. Amounts in steps are
// whole tokens.
const scenarioTokenDecimals = 2

func registerTokenSteps(r *registry, st *state) {
	createToken := func(ctx context.Context, op *ledger.TokenCreate) error {
		w, err := world(ctx)
		if err != nil {
			return err
		}
		tokenID, err := w.CreateToken(ctx, op)
		if err != nil {
			return err
		}
		st.tokenID = tokenID
		return nil
	}

	r.step(`^a token named "([^"]*)" \((\w+)\) with (\d+) tokens$`, func(ctx context.Context, name, symbol string, supply int64) error {
		st.tokenDecimals = scenarioTokenDecimals
		return createToken(ctx, &ledger.TokenCreate{
			Name:          name,
			Symbol:        symbol,
			Decimals:      scenarioTokenDecimals,
			InitialSupply: uint64(st.units(supply)),
			SupplyType:    ledger.SupplyTypeInfinite,
		})
	})

	r.step(`^a fixed supply token named "([^"]*)" \((\w+)\) with a maximum supply of (\d+) and (\d+) tokens$`, func(ctx context.Context, name, symbol string, maxSupply, supply int64) error {
		st.tokenDecimals = scenarioTokenDecimals
		return createToken(ctx, &ledger.TokenCreate{
			Name:          name,
			Symbol:        symbol,
			Decimals:      scenarioTokenDecimals,
			InitialSupply: uint64(st.units(supply)),
			SupplyType:    ledger.SupplyTypeFinite,
			MaxSupply:     uint64(st.units(maxSupply)),
		})
	})

	r.step(`^(\d+) tokens are minted$`, func(ctx context.Context, amount int64) error {
		w, err := world(ctx)
		if err != nil {
			return err
		}
		tokenID, err := st.token()
		if err != nil {
			return err
		}
		st.attempt(w.Mint(ctx, tokenID, uint64(st.units(amount))))
		return nil
	})

	r.step(`^the treasury holds (\d+) tokens$`, func(ctx context.Context, amount int64) error {
		w, err := world(ctx)
		if err != nil {
			return err
		}
		tokenID, err := st.token()
		if err != nil {
			return err
		}
		treasury, err := w.Treasury(tokenID)
		if err != nil {
			return err
		}
		balance, err := w.Balance(ctx, treasury, tokenID)
		if err != nil {
			return err
		}
		return expectEqual("the token balance of the treasury", uint64(st.units(amount)), balance.Token(tokenID))
	})

	r.step(`^the created accounts are associated with the token$`, func(ctx context.Context) error {
		w, err := world(ctx)
		if err != nil {
			return err
		}
		tokenID, err := st.token()
		if err != nil {
			return err
		}
		for i, account := range st.accounts {
			if err = w.Associate(ctx, account, tokenID); err != nil {
				return fmt.Errorf("associating account %d: %w", i+1, err)
			}
		}
		return nil
	})

	r.step(`^the treasury sends (\d+) tokens to account (\d+)$`, func(ctx context.Context, amount int64, n int) error {
		w, err := world(ctx)
		if err != nil {
			return err
		}
		tokenID, err := st.token()
		if err != nil {
			return err
		}
		treasury, err := w.Treasury(tokenID)
		if err != nil {
			return err
		}
		account, err := st.account(n)
		if err != nil {
			return err
		}
		units := st.units(amount)
		_, err = w.Execute(ctx, &ledger.Transfer{Tokens: []ledger.TokenTransfer{
			{TokenID: tokenID, AccountID: treasury, Amount: -units},
			{TokenID: tokenID, AccountID: account.ID, Amount: units},
		}})
		return err
	})

	r.step(`^the following token transfer is submitted signed by accounts? `+accountList+`:$`, func(ctx context.Context, signers string, table *godog.Table) error {
		w, err := world(ctx)
		if err != nil {
			return err
		}
		tokenID, err := st.token()
		if err != nil {
			return err
		}
		keys, err := st.keysOf(signers)
		if err != nil {
			return err
		}
		legs, err := st.transferLegs(tokenID, table)
		if err != nil {
			return err
		}
		st.attempt(w.Execute(ctx, &ledger.Transfer{Tokens: legs}, keys...))
		return nil
	})

	r.step(`^account (\d+) holds (\d+) tokens$`, func(ctx context.Context, n int, amount int64) error {
		w, err := world(ctx)
		if err != nil {
			return err
		}
		tokenID, err := st.token()
		if err != nil {
			return err
		}
		account, err := st.account(n)
		if err != nil {
			return err
		}
		balance, err := w.Balance(ctx, account.ID, tokenID)
		if err != nil {
			return err
		}
		return expectEqual(fmt.Sprintf("the token balance of account %d", n), uint64(st.units(amount)), balance.Token(tokenID))
	})
}

// transferLegs reads a table with account and amount columns. Negative amounts are debits.
func (st *state) transferLegs(tokenID ledger.TokenID, table *godog.Table) ([]ledger.TokenTransfer, error) {
	if len(table.Rows) < 2 {
		return nil, fmt.Errorf("transfer table needs a header and at least one leg")
	}

	var legs []ledger.TokenTransfer
	for _, row := range table.Rows[1:] {
		if len(row.Cells) != 2 {
			return nil, fmt.Errorf("transfer table rows need an account and an amount")
		}
		n, err := strconv.Atoi(row.Cells[0].Value)
		if err != nil {
			return nil, fmt.Errorf("parsing account number %q: %w", row.Cells[0].Value, err)
		}
		amount, err := strconv.ParseInt(row.Cells[1].Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing amount %q: %w", row.Cells[1].Value, err)
		}
		account, err := st.account(n)
		if err != nil {
			return nil, err
		}
		legs = append(legs, ledger.TokenTransfer{TokenID: tokenID, AccountID: account.ID, Amount: st.units(amount)})
	}
	return legs, nil
}
