package transactions

import (
	set "github.com/deckarep/golang-set/v2"

	"github.com/sumitpatel93/ledger-harness/internal/ledger"
)

// RequiredSigners returns the accounts debited by transfer, whose signatures the network demands.
// Missing signatures are not checked locally.
func RequiredSigners(transfer *ledger.Transfer) set.Set[ledger.AccountID] {
	signers := set.NewSet[ledger.AccountID]()
	for _, leg := range transfer.Hbars {
		if leg.Amount < 0 {
			signers.Add(leg.AccountID)
		}
	}
	for _, leg := range transfer.Tokens {
		if leg.Amount < 0 {
			signers.Add(leg.AccountID)
		}
	}
	return signers
}

// AffectedAccounts returns every account whose balance op can change, for cache invalidation.
func AffectedAccounts(op ledger.Operation) []ledger.AccountID {
	accounts := set.NewSet[ledger.AccountID]()
	switch o := op.(type) {
	case *ledger.Transfer:
		for _, leg := range o.Hbars {
			accounts.Add(leg.AccountID)
		}
		for _, leg := range o.Tokens {
			accounts.Add(leg.AccountID)
		}
	case *ledger.AccountDelete:
		accounts.Add(o.AccountID)
		accounts.Add(o.TransferAccountID)
	case *ledger.TokenCreate:
		accounts.Add(o.Treasury)
	case *ledger.TokenAssociate:
		accounts.Add(o.AccountID)
	}
	return accounts.ToSlice()
}
