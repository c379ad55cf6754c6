package validators

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumitpatel93/ledger-harness/internal/ledger"
)

func TestParseValidationError(t *testing.T) {
	testCases := []struct {
		name                string
		op                  ledger.Operation
		expectedFieldErrors map[string]interface{}
	}{
		{
			name: "delete into itself",
			op:   &ledger.AccountDelete{AccountID: "0.0.5", TransferAccountID: "0.0.5"},
			expectedFieldErrors: map[string]interface{}{
				"transferAccountID": "Should differ from accountID",
			},
		},
		{
			name: "malformed entity ID",
			op:   &ledger.AccountDelete{AccountID: "bad", TransferAccountID: "0.0.2"},
			expectedFieldErrors: map[string]interface{}{
				"accountID": `Invalid entity ID "bad", expected shard.realm.num`,
			},
		},
		{
			name: "hbar legs do not net to zero",
			op: &ledger.Transfer{Hbars: []ledger.HbarTransfer{
				{AccountID: "0.0.2", Amount: -10},
				{AccountID: "0.0.3", Amount: 5},
			}},
			expectedFieldErrors: map[string]interface{}{
				"hbars": "Transfer legs do not net to zero (-5)",
			},
		},
		{
			name: "zero leg",
			op:   &ledger.Transfer{Hbars: []ledger.HbarTransfer{{AccountID: "0.0.2", Amount: 0}}},
			expectedFieldErrors: map[string]interface{}{
				"hbars[0].amount": "Should not be 0",
			},
		},
		{
			name: "initial supply above max supply",
			op: &ledger.TokenCreate{
				Name:          "Test Token",
				Symbol:        "HTT",
				InitialSupply: 2000,
				Treasury:      "0.0.2",
				SupplyType:    ledger.SupplyTypeFinite,
				MaxSupply:     1000,
			},
			expectedFieldErrors: map[string]interface{}{
				"initialSupply": "Should be less than or equal maxSupply",
			},
		},
		{
			name: "unknown supply type",
			op: &ledger.TokenCreate{
				Name:       "Test Token",
				Symbol:     "HTT",
				Treasury:   "0.0.2",
				SupplyType: "weird",
			},
			expectedFieldErrors: map[string]interface{}{
				"supplyType": `Unexpected value "weird". Expected one of the following values: INFINITE, FINITE`,
			},
		},
		{
			name: "associate nothing",
			op:   &ledger.TokenAssociate{AccountID: "0.0.2"},
			expectedFieldErrors: map[string]interface{}{
				"tokenIDs": "Should have at least 1 element",
			},
		},
	}

	val := NewValidator()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := val.Struct(tc.op)
			require.Error(t, err)
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok)
			assert.Equal(t, tc.expectedFieldErrors, ParseValidationError(vErrs))
		})
	}
}

func TestValidOperations(t *testing.T) {
	val := NewValidator()

	ops := []ledger.Operation{
		&ledger.TopicCreate{Memo: "harness"},
		&ledger.TopicMessageSubmit{TopicID: "0.0.1001", Message: []byte("hello")},
		&ledger.TokenMint{TokenID: "0.0.1002", Amount: 1},
		&ledger.TokenCreate{
			Name:          "Test Token",
			Symbol:        "HTT",
			InitialSupply: 1000,
			Treasury:      "0.0.2",
			SupplyType:    ledger.SupplyTypeFinite,
			MaxSupply:     1000,
		},
		&ledger.Transfer{Tokens: []ledger.TokenTransfer{
			{TokenID: "0.0.1002", AccountID: "0.0.2", Amount: -10},
			{TokenID: "0.0.1002", AccountID: "0.0.3", Amount: 10},
		}},
	}
	for _, op := range ops {
		assert.NoError(t, val.Struct(op), "%s", op.Kind())
	}
}

func TestIsEntityID(t *testing.T) {
	assert.True(t, IsEntityID("0.0.1001"))
	assert.False(t, IsEntityID("0.0"))
	assert.False(t, IsEntityID("0.0.abc"))
	assert.False(t, IsEntityID(""))
}

func TestLCFist(t *testing.T) {
	got := lcFirst("Address")
	assert.Equal(t, "address", got)
	got = lcFirst("AccountID")
	assert.Equal(t, "accountID", got)
	got = lcFirst("A")
	assert.Equal(t, "a", got)
	got = lcFirst("")
	assert.Equal(t, "", got)
}
