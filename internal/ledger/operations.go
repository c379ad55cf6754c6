package ledger

// TransactionKind names the ledger operation a transaction carries.
type TransactionKind string

const (
	KindAccountCreate      TransactionKind = "AccountCreate"
	KindAccountDelete      TransactionKind = "AccountDelete"
	KindTopicCreate        TransactionKind = "TopicCreate"
	KindTopicDelete        TransactionKind = "TopicDelete"
	KindTopicMessageSubmit TransactionKind = "TopicMessageSubmit"
	KindTokenCreate        TransactionKind = "TokenCreate"
	KindTokenMint          TransactionKind = "TokenMint"
	KindTokenAssociate     TransactionKind = "TokenAssociate"
	KindTransfer           TransactionKind = "Transfer"
)

// Operation is the typed body of a transaction.
type Operation interface {
	Kind() TransactionKind
}

type AccountCreate struct {
	Key            Key   `validate:"required"`
	InitialBalance int64 `validate:"gte=0"`
}

type AccountDelete struct {
	AccountID         AccountID `validate:"entity_id"`
	TransferAccountID AccountID `validate:"entity_id,nefield=AccountID"`
}

type TopicCreate struct {
	Memo      string `validate:"max=100"`
	AdminKey  Key
	SubmitKey Key
}

type TopicDelete struct {
	TopicID TopicID `validate:"entity_id"`
}

type TopicMessageSubmit struct {
	TopicID TopicID `validate:"entity_id"`
	Message []byte  `validate:"required,max=6144"`
}

type SupplyType string

const (
	SupplyTypeInfinite SupplyType = "INFINITE"
	SupplyTypeFinite   SupplyType = "FINITE"
)

type TokenCreate struct {
	Name          string     `validate:"required,max=100"`
	Symbol        string     `validate:"required,max=100"`
	Decimals      uint32     `validate:"lte=18"`
	InitialSupply uint64
	Treasury      AccountID  `validate:"entity_id"`
	AdminKey      Key
	SupplyKey     Key
	SupplyType    SupplyType `validate:"oneof=INFINITE FINITE"`
	MaxSupply     uint64     `validate:"required_if=SupplyType FINITE"`
}

type TokenMint struct {
	TokenID TokenID `validate:"entity_id"`
	Amount  uint64  `validate:"gt=0"`
}

type TokenAssociate struct {
	AccountID AccountID `validate:"entity_id"`
	TokenIDs  []TokenID `validate:"gt=0,dive,entity_id"`
}

type HbarTransfer struct {
	AccountID AccountID `validate:"entity_id"`
	Amount    int64     `validate:"ne=0"`
}

type TokenTransfer struct {
	TokenID   TokenID   `validate:"entity_id"`
	AccountID AccountID `validate:"entity_id"`
	Amount    int64     `validate:"ne=0"`
}

// Transfer moves hbars and tokens between accounts. The legs of each asset must net to zero and
// every account with a negative leg has to sign.
type Transfer struct {
	Hbars  []HbarTransfer  `validate:"dive"`
	Tokens []TokenTransfer `validate:"dive"`
}

func (*AccountCreate) Kind() TransactionKind      { return KindAccountCreate }
func (*AccountDelete) Kind() TransactionKind      { return KindAccountDelete }
func (*TopicCreate) Kind() TransactionKind        { return KindTopicCreate }
func (*TopicDelete) Kind() TransactionKind        { return KindTopicDelete }
func (*TopicMessageSubmit) Kind() TransactionKind { return KindTopicMessageSubmit }
func (*TokenCreate) Kind() TransactionKind        { return KindTokenCreate }
func (*TokenMint) Kind() TransactionKind          { return KindTokenMint }
func (*TokenAssociate) Kind() TransactionKind     { return KindTokenAssociate }
func (*Transfer) Kind() TransactionKind           { return KindTransfer }
