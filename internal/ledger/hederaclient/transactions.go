package hederaclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashgraph/hedera-sdk-go/v2"

	"github.com/sumitpatel93/ledger-harness/internal/ledger"
)

// sdkTransaction is the freeze/sign/execute surface shared by every SDK transaction type.
type sdkTransaction[T any] interface {
	FreezeWith(client *hedera.Client) (T, error)
	Sign(privateKey hedera.PrivateKey) T
	Execute(client *hedera.Client) (hedera.TransactionResponse, error)
}

type transaction[T sdkTransaction[T]] struct {
	client *Client
	tx     T
	frozen bool
}

func newTransaction[T sdkTransaction[T]](client *Client, tx T) *transaction[T] {
	return &transaction[T]{client: client, tx: tx}
}

func (t *transaction[T]) Freeze(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.frozen {
		return errors.New("transaction is already frozen")
	}

	frozen, err := t.tx.FreezeWith(t.client.sdk)
	if err != nil {
		return fmt.Errorf("freezing transaction: %w", err)
	}
	t.tx = frozen
	t.frozen = true
	return nil
}

func (t *transaction[T]) Sign(key ledger.PrivateKey) error {
	if !t.frozen {
		return errors.New("transaction is not frozen")
	}
	sdkKey, err := sdkPrivateKey(key)
	if err != nil {
		return err
	}
	t.tx = t.tx.Sign(sdkKey)
	return nil
}

func (t *transaction[T]) Execute(ctx context.Context) (ledger.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := t.tx.Execute(t.client.sdk)
	if err != nil {
		return nil, fmt.Errorf("executing transaction: %w", mapError(err))
	}
	return &response{client: t.client, resp: resp}, nil
}

type response struct {
	client *Client
	resp   hedera.TransactionResponse
}

var _ ledger.Response = (*response)(nil)

func (r *response) TransactionID() string {
	return r.resp.TransactionID.String()
}

func (r *response) Receipt(ctx context.Context) (ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Receipt{}, err
	}

	receipt, err := r.resp.GetReceipt(r.client.sdk)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("getting receipt: %w", mapError(err))
	}
	converted := convertReceipt(receipt)
	if converted.Status != ledger.StatusSuccess {
		return converted, &ledger.ReceiptStatusError{TransactionID: r.TransactionID(), Status: converted.Status}
	}
	return converted, nil
}

func (r *response) Record(ctx context.Context) (ledger.Record, error) {
	receipt, err := r.Receipt(ctx)
	if err != nil {
		return ledger.Record{}, err
	}

	record, err := r.resp.GetRecord(r.client.sdk)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("getting record: %w", mapError(err))
	}

	var payer ledger.AccountID
	if record.TransactionID.AccountID != nil {
		payer = ledger.AccountID(record.TransactionID.AccountID.String())
	}
	return ledger.Record{
		TransactionID:      record.TransactionID.String(),
		PayerAccountID:     payer,
		ConsensusTimestamp: record.ConsensusTimestamp,
		Receipt:            receipt,
	}, nil
}

func convertReceipt(receipt hedera.TransactionReceipt) ledger.Receipt {
	converted := ledger.Receipt{
		Status:              ledger.Status(receipt.Status),
		TotalSupply:         receipt.TotalSupply,
		TopicSequenceNumber: receipt.TopicSequenceNumber,
	}
	if receipt.AccountID != nil {
		id := ledger.AccountID(receipt.AccountID.String())
		converted.AccountID = &id
	}
	if receipt.TopicID != nil {
		id := ledger.TopicID(receipt.TopicID.String())
		converted.TopicID = &id
	}
	if receipt.TokenID != nil {
		id := ledger.TokenID(receipt.TokenID.String())
		converted.TokenID = &id
	}
	return converted
}

// mapError converts SDK status errors to *ledger.ReceiptStatusError so callers can match status
// codes without importing the SDK.
func mapError(err error) error {
	var precheckErr hedera.ErrHederaPreCheckStatus
	if errors.As(err, &precheckErr) {
		return &ledger.ReceiptStatusError{
			TransactionID: transactionIDString(precheckErr.TxID),
			Status:        ledger.Status(precheckErr.Status),
			Precheck:      true,
		}
	}
	var receiptErr hedera.ErrHederaReceiptStatus
	if errors.As(err, &receiptErr) {
		return &ledger.ReceiptStatusError{
			TransactionID: transactionIDString(receiptErr.TxID),
			Status:        ledger.Status(receiptErr.Status),
		}
	}
	return err
}

func transactionIDString(id hedera.TransactionID) string {
	if id.AccountID == nil || id.ValidStart == nil {
		return ""
	}
	return id.String()
}

func (c *Client) buildTransaction(op ledger.Operation) (ledger.Transaction, error) {
	switch op := op.(type) {
	case *ledger.AccountCreate:
		key, err := sdkKey(op.Key)
		if err != nil {
			return nil, err
		}
		return newTransaction(c, hedera.NewAccountCreateTransaction().
			SetKey(key).
			SetInitialBalance(hedera.HbarFromTinybar(op.InitialBalance))), nil

	case *ledger.AccountDelete:
		accountID, err := hedera.AccountIDFromString(op.AccountID.String())
		if err != nil {
			return nil, fmt.Errorf("parsing account ID: %w", err)
		}
		transferID, err := hedera.AccountIDFromString(op.TransferAccountID.String())
		if err != nil {
			return nil, fmt.Errorf("parsing transfer account ID: %w", err)
		}
		return newTransaction(c, hedera.NewAccountDeleteTransaction().
			SetAccountID(accountID).
			SetTransferAccountID(transferID)), nil

	case *ledger.TopicCreate:
		tx := hedera.NewTopicCreateTransaction().SetTopicMemo(op.Memo)
		if key, ok, err := optionalSDKKey(op.AdminKey); err != nil {
			return nil, err
		} else if ok {
			tx.SetAdminKey(key)
		}
		if key, ok, err := optionalSDKKey(op.SubmitKey); err != nil {
			return nil, err
		} else if ok {
			tx.SetSubmitKey(key)
		}
		return newTransaction(c, tx), nil

	case *ledger.TopicDelete:
		topicID, err := hedera.TopicIDFromString(op.TopicID.String())
		if err != nil {
			return nil, fmt.Errorf("parsing topic ID: %w", err)
		}
		return newTransaction(c, hedera.NewTopicDeleteTransaction().SetTopicID(topicID)), nil

	case *ledger.TopicMessageSubmit:
		topicID, err := hedera.TopicIDFromString(op.TopicID.String())
		if err != nil {
			return nil, fmt.Errorf("parsing topic ID: %w", err)
		}
		return newTransaction(c, hedera.NewTopicMessageSubmitTransaction().
			SetTopicID(topicID).
			SetMessage(op.Message)), nil

	case *ledger.TokenCreate:
		return c.buildTokenCreate(op)

	case *ledger.TokenMint:
		tokenID, err := hedera.TokenIDFromString(op.TokenID.String())
		if err != nil {
			return nil, fmt.Errorf("parsing token ID: %w", err)
		}
		return newTransaction(c, hedera.NewTokenMintTransaction().
			SetTokenID(tokenID).
			SetAmount(op.Amount)), nil

	case *ledger.TokenAssociate:
		accountID, err := hedera.AccountIDFromString(op.AccountID.String())
		if err != nil {
			return nil, fmt.Errorf("parsing account ID: %w", err)
		}
		tokenIDs := make([]hedera.TokenID, 0, len(op.TokenIDs))
		for _, id := range op.TokenIDs {
			tokenID, err := hedera.TokenIDFromString(id.String())
			if err != nil {
				return nil, fmt.Errorf("parsing token ID: %w", err)
			}
			tokenIDs = append(tokenIDs, tokenID)
		}
		return newTransaction(c, hedera.NewTokenAssociateTransaction().
			SetAccountID(accountID).
			SetTokenIDs(tokenIDs...)), nil

	case *ledger.Transfer:
		return c.buildTransfer(op)

	default:
		return nil, fmt.Errorf("unsupported operation %T", op)
	}
}

func (c *Client) buildTokenCreate(op *ledger.TokenCreate) (ledger.Transaction, error) {
	treasury, err := hedera.AccountIDFromString(op.Treasury.String())
	if err != nil {
		return nil, fmt.Errorf("parsing treasury account ID: %w", err)
	}

	tx := hedera.NewTokenCreateTransaction().
		SetTokenName(op.Name).
		SetTokenSymbol(op.Symbol).
		SetDecimals(uint(op.Decimals)).
		SetInitialSupply(op.InitialSupply).
		SetTreasuryAccountID(treasury)
	if key, ok, err := optionalSDKKey(op.AdminKey); err != nil {
		return nil, err
	} else if ok {
		tx.SetAdminKey(key)
	}
	if key, ok, err := optionalSDKKey(op.SupplyKey); err != nil {
		return nil, err
	} else if ok {
		tx.SetSupplyKey(key)
	}
	if op.SupplyType == ledger.SupplyTypeFinite {
		tx.SetSupplyType(hedera.TokenSupplyTypeFinite).SetMaxSupply(int64(op.MaxSupply))
	}
	return newTransaction(c, tx), nil
}

func (c *Client) buildTransfer(op *ledger.Transfer) (ledger.Transaction, error) {
	tx := hedera.NewTransferTransaction()
	for _, leg := range op.Hbars {
		accountID, err := hedera.AccountIDFromString(leg.AccountID.String())
		if err != nil {
			return nil, fmt.Errorf("parsing account ID: %w", err)
		}
		tx.AddHbarTransfer(accountID, hedera.HbarFromTinybar(leg.Amount))
	}
	for _, leg := range op.Tokens {
		tokenID, err := hedera.TokenIDFromString(leg.TokenID.String())
		if err != nil {
			return nil, fmt.Errorf("parsing token ID: %w", err)
		}
		accountID, err := hedera.AccountIDFromString(leg.AccountID.String())
		if err != nil {
			return nil, fmt.Errorf("parsing account ID: %w", err)
		}
		tx.AddTokenTransfer(tokenID, accountID, leg.Amount)
	}
	return newTransaction(c, tx), nil
}
