package ledger

import (
	"errors"
	"fmt"
	"strconv"
)

// Status is a network response code.
type Status uint32

const (
	StatusOk                              Status = 0
	StatusInvalidSignature                Status = 7
	StatusInsufficientPayerBalance        Status = 10
	StatusBusy                            Status = 12
	StatusInvalidAccountID                Status = 15
	StatusSuccess                         Status = 22
	StatusInsufficientAccountBalance      Status = 28
	StatusInvalidAccountAmounts           Status = 51
	StatusUnauthorized                    Status = 68
	StatusAccountDeleted                  Status = 72
	StatusInvalidTopicID                  Status = 150
	StatusInvalidTokenID                  Status = 167
	StatusInsufficientTokenBalance        Status = 178
	StatusTokenHasNoSupplyKey             Status = 180
	StatusTokenNotAssociatedToAccount     Status = 184
	StatusTokenAlreadyAssociatedToAccount Status = 194
	StatusTokenMaxSupplyReached           Status = 236
)

var statusNames = map[Status]string{
	StatusOk:                              "OK",
	StatusInvalidSignature:                "INVALID_SIGNATURE",
	StatusInsufficientPayerBalance:        "INSUFFICIENT_PAYER_BALANCE",
	StatusBusy:                            "BUSY",
	StatusInvalidAccountID:                "INVALID_ACCOUNT_ID",
	StatusSuccess:                         "SUCCESS",
	StatusInsufficientAccountBalance:      "INSUFFICIENT_ACCOUNT_BALANCE",
	StatusInvalidAccountAmounts:           "INVALID_ACCOUNT_AMOUNTS",
	StatusUnauthorized:                    "UNAUTHORIZED",
	StatusAccountDeleted:                  "ACCOUNT_DELETED",
	StatusInvalidTopicID:                  "INVALID_TOPIC_ID",
	StatusInvalidTokenID:                  "INVALID_TOKEN_ID",
	StatusInsufficientTokenBalance:        "INSUFFICIENT_TOKEN_BALANCE",
	StatusTokenHasNoSupplyKey:             "TOKEN_HAS_NO_SUPPLY_KEY",
	StatusTokenNotAssociatedToAccount:     "TOKEN_NOT_ASSOCIATED_TO_ACCOUNT",
	StatusTokenAlreadyAssociatedToAccount: "TOKEN_ALREADY_ASSOCIATED_TO_ACCOUNT",
	StatusTokenMaxSupplyReached:           "TOKEN_MAX_SUPPLY_REACHED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATUS_%d", uint32(s))
}

// ReceiptStatusError is returned when the network rejects a transaction with a status code, either
// at precheck or in the receipt.
type ReceiptStatusError struct {
	TransactionID string
	Status        Status
	Precheck      bool
}

func (e *ReceiptStatusError) Error() string {
	phase := "receipt"
	if e.Precheck {
		phase = "precheck"
	}
	return fmt.Sprintf("transaction %s failed %s with status %s (%d)", e.TransactionID, phase, e.Status, uint32(e.Status))
}

// StatusOf extracts the status code of a network rejection from err.
func StatusOf(err error) (Status, bool) {
	var statusErr *ReceiptStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status, true
	}
	return 0, false
}

// IsStatus reports whether err is a network rejection with the given status.
func IsStatus(err error, status Status) bool {
	s, ok := StatusOf(err)
	return ok && s == status
}

// ParseStatus accepts a status name such as TOKEN_MAX_SUPPLY_REACHED or its numeric code.
func ParseStatus(s string) (Status, error) {
	if code, err := strconv.ParseUint(s, 10, 32); err == nil {
		return Status(code), nil
	}
	for status, name := range statusNames {
		if name == s {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", s)
}
