package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublicKey string

func (k fakePublicKey) String() string          { return string(k) }
func (k fakePublicKey) Verify(_, _ []byte) bool { return true }

func TestNewThresholdKey(t *testing.T) {
	testCases := []struct {
		name            string
		threshold       uint
		keys            []PublicKey
		wantErrContains string
	}{
		{
			name:            "zero threshold",
			threshold:       0,
			keys:            []PublicKey{fakePublicKey("a")},
			wantErrContains: "threshold must be at least 1",
		},
		{
			name:            "threshold above key count",
			threshold:       3,
			keys:            []PublicKey{fakePublicKey("a"), fakePublicKey("b")},
			wantErrContains: "threshold 3 is greater than the number of keys 2",
		},
		{
			name:            "nil key",
			threshold:       1,
			keys:            []PublicKey{fakePublicKey("a"), nil},
			wantErrContains: "key at index 1 is nil",
		},
		{
			name:      "2 of 2",
			threshold: 2,
			keys:      []PublicKey{fakePublicKey("a"), fakePublicKey("b")},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := NewThresholdKey(tc.threshold, tc.keys...)
			if tc.wantErrContains != "" {
				require.ErrorContains(t, err, tc.wantErrContains)
				assert.Nil(t, key)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.threshold, key.Threshold)
			assert.Equal(t, "threshold(2 of 2)[a,b]", key.String())
		})
	}
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "TOKEN_MAX_SUPPLY_REACHED", StatusTokenMaxSupplyReached.String())
	assert.Equal(t, "STATUS_9999", Status(9999).String())
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus("236")
	require.NoError(t, err)
	assert.Equal(t, StatusTokenMaxSupplyReached, status)

	status, err = ParseStatus("INVALID_SIGNATURE")
	require.NoError(t, err)
	assert.Equal(t, StatusInvalidSignature, status)

	_, err = ParseStatus("NOT_A_STATUS")
	assert.EqualError(t, err, `unknown status "NOT_A_STATUS"`)
}

func TestIsStatus(t *testing.T) {
	statusErr := &ReceiptStatusError{TransactionID: "0.0.2@1.1", Status: StatusTokenMaxSupplyReached}
	wrapped := fmt.Errorf("minting tokens: %w", statusErr)

	assert.True(t, IsStatus(wrapped, StatusTokenMaxSupplyReached))
	assert.False(t, IsStatus(wrapped, StatusInvalidSignature))
	assert.False(t, IsStatus(errors.New("boom"), StatusTokenMaxSupplyReached))

	status, ok := StatusOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, Status(236), status)
	assert.Equal(t, "transaction 0.0.2@1.1 failed receipt with status TOKEN_MAX_SUPPLY_REACHED (236)", statusErr.Error())
}

func TestBalanceToken(t *testing.T) {
	balance := Balance{Hbars: HbarToTinybar(2), Tokens: map[TokenID]uint64{"0.0.5": 0}}

	assert.Equal(t, int64(200_000_000), balance.Hbars)
	assert.True(t, balance.HasToken("0.0.5"))
	assert.False(t, balance.HasToken("0.0.6"))
	assert.Equal(t, uint64(0), balance.Token("0.0.6"))
}
