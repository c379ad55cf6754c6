package memledger

import (
	"github.com/sumitpatel93/ledger-harness/internal/ledger"
)

// apply executes a signed transaction against the network state and returns its record. Rejected
// transactions leave the state untouched.
func (n *Network) apply(tx *transaction) ledger.Record {
	n.mu.Lock()
	defer n.mu.Unlock()

	receipt := ledger.Receipt{Status: ledger.StatusSuccess}
	payer, ok := n.accounts[tx.payer]
	switch {
	case !ok:
		receipt.Status = ledger.StatusInvalidAccountID
	case payer.deleted:
		receipt.Status = ledger.StatusAccountDeleted
	case !tx.signedBy(payer.key):
		receipt.Status = ledger.StatusInvalidSignature
	default:
		receipt = n.applyOperation(tx, payer)
	}

	return ledger.Record{
		TransactionID:      tx.id,
		PayerAccountID:     tx.payer,
		ConsensusTimestamp: n.consensusTimestamp(),
		Receipt:            receipt,
	}
}

func (n *Network) applyOperation(tx *transaction, payer *account) ledger.Receipt {
	switch op := tx.op.(type) {
	case *ledger.AccountCreate:
		return n.createAccount(op, payer)
	case *ledger.AccountDelete:
		return n.deleteAccount(tx, op)
	case *ledger.TopicCreate:
		return n.createTopic(tx, op)
	case *ledger.TopicDelete:
		return n.deleteTopic(tx, op)
	case *ledger.TopicMessageSubmit:
		return n.submitMessage(tx, op)
	case *ledger.TokenCreate:
		return n.createToken(tx, op)
	case *ledger.TokenMint:
		return n.mintToken(tx, op)
	case *ledger.TokenAssociate:
		return n.associateTokens(tx, op)
	case *ledger.Transfer:
		return n.transfer(tx, op)
	default:
		return failed(ledger.StatusUnauthorized)
	}
}

func failed(status ledger.Status) ledger.Receipt {
	return ledger.Receipt{Status: status}
}

func (n *Network) liveAccount(id ledger.AccountID) (*account, ledger.Status) {
	acc, ok := n.accounts[id]
	if !ok {
		return nil, ledger.StatusInvalidAccountID
	}
	if acc.deleted {
		return nil, ledger.StatusAccountDeleted
	}
	return acc, ledger.StatusSuccess
}

func (n *Network) createAccount(op *ledger.AccountCreate, payer *account) ledger.Receipt {
	if op.Key == nil {
		return failed(ledger.StatusInvalidSignature)
	}
	if payer.hbars < op.InitialBalance {
		return failed(ledger.StatusInsufficientPayerBalance)
	}

	payer.hbars -= op.InitialBalance
	id := ledger.AccountID(n.newEntityID())
	n.accounts[id] = &account{
		key:    op.Key,
		hbars:  op.InitialBalance,
		tokens: make(map[ledger.TokenID]uint64),
	}
	return ledger.Receipt{Status: ledger.StatusSuccess, AccountID: &id}
}

func (n *Network) deleteAccount(tx *transaction, op *ledger.AccountDelete) ledger.Receipt {
	acc, status := n.liveAccount(op.AccountID)
	if status != ledger.StatusSuccess {
		return failed(status)
	}
	beneficiary, status := n.liveAccount(op.TransferAccountID)
	if status != ledger.StatusSuccess {
		return failed(status)
	}
	if op.AccountID == op.TransferAccountID {
		return failed(ledger.StatusInvalidAccountID)
	}
	if !tx.signedBy(acc.key) {
		return failed(ledger.StatusInvalidSignature)
	}

	beneficiary.hbars += acc.hbars
	acc.hbars = 0
	acc.deleted = true
	return ledger.Receipt{Status: ledger.StatusSuccess}
}

func (n *Network) createTopic(tx *transaction, op *ledger.TopicCreate) ledger.Receipt {
	if op.AdminKey != nil && !tx.signedBy(op.AdminKey) {
		return failed(ledger.StatusInvalidSignature)
	}

	id := ledger.TopicID(n.newEntityID())
	n.topics[id] = &topic{
		memo:        op.Memo,
		adminKey:    op.AdminKey,
		submitKey:   op.SubmitKey,
		subscribers: make(map[int]*subscriber),
	}
	return ledger.Receipt{Status: ledger.StatusSuccess, TopicID: &id}
}

func (n *Network) liveTopic(id ledger.TopicID) (*topic, ledger.Status) {
	t, ok := n.topics[id]
	if !ok || t.deleted {
		return nil, ledger.StatusInvalidTopicID
	}
	return t, ledger.StatusSuccess
}

func (n *Network) deleteTopic(tx *transaction, op *ledger.TopicDelete) ledger.Receipt {
	t, status := n.liveTopic(op.TopicID)
	if status != ledger.StatusSuccess {
		return failed(status)
	}
	if t.adminKey == nil {
		return failed(ledger.StatusUnauthorized)
	}
	if !tx.signedBy(t.adminKey) {
		return failed(ledger.StatusInvalidSignature)
	}

	t.deleted = true
	for id, sub := range t.subscribers {
		sub.stop()
		delete(t.subscribers, id)
	}
	return ledger.Receipt{Status: ledger.StatusSuccess}
}

func (n *Network) submitMessage(tx *transaction, op *ledger.TopicMessageSubmit) ledger.Receipt {
	t, status := n.liveTopic(op.TopicID)
	if status != ledger.StatusSuccess {
		return failed(status)
	}
	if t.submitKey != nil && !tx.signedBy(t.submitKey) {
		return failed(ledger.StatusInvalidSignature)
	}

	msg := ledger.TopicMessage{
		TopicID:            op.TopicID,
		Contents:           append([]byte(nil), op.Message...),
		SequenceNumber:     uint64(len(t.messages)) + 1,
		ConsensusTimestamp: n.consensusTimestamp(),
	}
	t.messages = append(t.messages, msg)
	for _, sub := range t.subscribers {
		sub.deliver(msg)
	}
	return ledger.Receipt{Status: ledger.StatusSuccess, TopicSequenceNumber: msg.SequenceNumber}
}

func (n *Network) createToken(tx *transaction, op *ledger.TokenCreate) ledger.Receipt {
	treasury, status := n.liveAccount(op.Treasury)
	if status != ledger.StatusSuccess {
		return failed(status)
	}
	if !tx.signedBy(treasury.key) {
		return failed(ledger.StatusInvalidSignature)
	}
	if op.AdminKey != nil && !tx.signedBy(op.AdminKey) {
		return failed(ledger.StatusInvalidSignature)
	}
	supplyType := op.SupplyType
	if supplyType == "" {
		supplyType = ledger.SupplyTypeInfinite
	}
	if supplyType == ledger.SupplyTypeFinite && op.InitialSupply > op.MaxSupply {
		return failed(ledger.StatusTokenMaxSupplyReached)
	}

	id := ledger.TokenID(n.newEntityID())
	n.tokens[id] = &token{
		name:        op.Name,
		symbol:      op.Symbol,
		decimals:    op.Decimals,
		treasury:    op.Treasury,
		adminKey:    op.AdminKey,
		supplyKey:   op.SupplyKey,
		supplyType:  supplyType,
		maxSupply:   op.MaxSupply,
		totalSupply: op.InitialSupply,
	}
	treasury.tokens[id] = op.InitialSupply
	return ledger.Receipt{Status: ledger.StatusSuccess, TokenID: &id, TotalSupply: op.InitialSupply}
}

func (n *Network) mintToken(tx *transaction, op *ledger.TokenMint) ledger.Receipt {
	tok, ok := n.tokens[op.TokenID]
	if !ok {
		return failed(ledger.StatusInvalidTokenID)
	}
	if tok.supplyKey == nil {
		return failed(ledger.StatusTokenHasNoSupplyKey)
	}
	if !tx.signedBy(tok.supplyKey) {
		return failed(ledger.StatusInvalidSignature)
	}
	if tok.supplyType == ledger.SupplyTypeFinite && tok.totalSupply+op.Amount > tok.maxSupply {
		return failed(ledger.StatusTokenMaxSupplyReached)
	}
	treasury, status := n.liveAccount(tok.treasury)
	if status != ledger.StatusSuccess {
		return failed(status)
	}

	tok.totalSupply += op.Amount
	treasury.tokens[op.TokenID] += op.Amount
	return ledger.Receipt{Status: ledger.StatusSuccess, TotalSupply: tok.totalSupply}
}

func (n *Network) associateTokens(tx *transaction, op *ledger.TokenAssociate) ledger.Receipt {
	acc, status := n.liveAccount(op.AccountID)
	if status != ledger.StatusSuccess {
		return failed(status)
	}
	if !tx.signedBy(acc.key) {
		return failed(ledger.StatusInvalidSignature)
	}
	for _, tokenID := range op.TokenIDs {
		if _, ok := n.tokens[tokenID]; !ok {
			return failed(ledger.StatusInvalidTokenID)
		}
		if _, ok := acc.tokens[tokenID]; ok {
			return failed(ledger.StatusTokenAlreadyAssociatedToAccount)
		}
	}

	for _, tokenID := range op.TokenIDs {
		acc.tokens[tokenID] = 0
	}
	return ledger.Receipt{Status: ledger.StatusSuccess}
}

func (n *Network) transfer(tx *transaction, op *ledger.Transfer) ledger.Receipt {
	var hbarSum int64
	hbarDeltas := make(map[ledger.AccountID]int64)
	for _, leg := range op.Hbars {
		hbarSum += leg.Amount
		hbarDeltas[leg.AccountID] += leg.Amount
	}
	if hbarSum != 0 {
		return failed(ledger.StatusInvalidAccountAmounts)
	}

	tokenSums := make(map[ledger.TokenID]int64)
	tokenDeltas := make(map[ledger.TokenID]map[ledger.AccountID]int64)
	for _, leg := range op.Tokens {
		tokenSums[leg.TokenID] += leg.Amount
		if tokenDeltas[leg.TokenID] == nil {
			tokenDeltas[leg.TokenID] = make(map[ledger.AccountID]int64)
		}
		tokenDeltas[leg.TokenID][leg.AccountID] += leg.Amount
	}
	for _, sum := range tokenSums {
		if sum != 0 {
			return failed(ledger.StatusInvalidAccountAmounts)
		}
	}

	for _, leg := range op.Hbars {
		if status := n.checkDebit(tx, leg.AccountID, leg.Amount); status != ledger.StatusSuccess {
			return failed(status)
		}
	}
	for _, leg := range op.Tokens {
		if _, ok := n.tokens[leg.TokenID]; !ok {
			return failed(ledger.StatusInvalidTokenID)
		}
		if status := n.checkDebit(tx, leg.AccountID, leg.Amount); status != ledger.StatusSuccess {
			return failed(status)
		}
		if _, associated := n.accounts[leg.AccountID].tokens[leg.TokenID]; !associated {
			return failed(ledger.StatusTokenNotAssociatedToAccount)
		}
	}

	for accountID, delta := range hbarDeltas {
		if n.accounts[accountID].hbars+delta < 0 {
			return failed(ledger.StatusInsufficientAccountBalance)
		}
	}
	for tokenID, deltas := range tokenDeltas {
		for accountID, delta := range deltas {
			if delta < 0 && n.accounts[accountID].tokens[tokenID] < uint64(-delta) {
				return failed(ledger.StatusInsufficientTokenBalance)
			}
		}
	}

	for accountID, delta := range hbarDeltas {
		n.accounts[accountID].hbars += delta
	}
	for tokenID, deltas := range tokenDeltas {
		for accountID, delta := range deltas {
			acc := n.accounts[accountID]
			if delta < 0 {
				acc.tokens[tokenID] -= uint64(-delta)
			} else {
				acc.tokens[tokenID] += uint64(delta)
			}
		}
	}
	return ledger.Receipt{Status: ledger.StatusSuccess}
}

// checkDebit verifies that the account of a transfer leg is live and, for a debit, that its owner
// signed.
func (n *Network) checkDebit(tx *transaction, accountID ledger.AccountID, amount int64) ledger.Status {
	acc, status := n.liveAccount(accountID)
	if status != ledger.StatusSuccess {
		return status
	}
	if amount < 0 && !tx.signedBy(acc.key) {
		return ledger.StatusInvalidSignature
	}
	return ledger.StatusSuccess
}
