package steps

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/stretchr/testify/assert"

	"github.com/sumitpatel93/ledger-harness/internal/ledger"
	"github.com/sumitpatel93/ledger-harness/internal/resources"
	"github.com/sumitpatel93/ledger-harness/internal/scenario"
)

// accountList matches "1", "1 and 2" or "1, 2 and 3".
const accountList = `(\d+(?:(?:, | and )\d+)*)`

var digits = regexp.MustCompile(`\d+`)

// state is what the steps of one scenario pass to each other.
type state struct {
	scenarioCtx context.Context
	cancelStep  context.CancelFunc

	startingOperatorHbars int64
	accounts              []resources.TrackedAccount
	thresholdKey          *ledger.ThresholdKey
	topicID               ledger.TopicID
	tokenID               ledger.TokenID
	tokenDecimals         uint32

	// The outcome of the last step that attempts a transaction without failing on rejection.
	attempted   bool
	lastReceipt ledger.Receipt
	lastErr     error
}

func (st *state) attempt(receipt ledger.Receipt, err error) {
	st.attempted = true
	st.lastReceipt = receipt
	st.lastErr = err
}

// account returns the account created in position n, counting from 1.
func (st *state) account(n int) (resources.TrackedAccount, error) {
	if n < 1 || n > len(st.accounts) {
		return resources.TrackedAccount{}, scenario.Prerequisite(false, fmt.Sprintf("account %d was not created, %d accounts exist", n, len(st.accounts)))
	}
	return st.accounts[n-1], nil
}

// keysOf parses an account list and returns the keys of those accounts in the listed order.
func (st *state) keysOf(list string) ([]ledger.PrivateKey, error) {
	var keys []ledger.PrivateKey
	for _, match := range digits.FindAllString(list, -1) {
		n, err := strconv.Atoi(match)
		if err != nil {
			return nil, fmt.Errorf("parsing account number %q: %w", match, err)
		}
		account, err := st.account(n)
		if err != nil {
			return nil, err
		}
		keys = append(keys, account.Key)
	}
	return keys, nil
}

func (st *state) topic() (ledger.TopicID, error) {
	return st.topicID, scenario.Prerequisite(st.topicID != "", "no topic was created")
}

func (st *state) token() (ledger.TokenID, error) {
	return st.tokenID, scenario.Prerequisite(st.tokenID != "", "no token was created")
}

// units converts whole tokens to the smallest unit of the scenario token.
func (st *state) units(tokens int64) int64 {
	return tokens * int64(math.Pow10(int(st.tokenDecimals)))
}

func (st *state) requireAttempt() error {
	return scenario.Prerequisite(st.attempted, "no transaction was attempted")
}

func expectEqual(what string, expected, actual interface{}) error {
	if !assert.ObjectsAreEqual(expected, actual) {
		return fmt.Errorf("expected %s to be %v, got %v", what, expected, actual)
	}
	return nil
}

func (st *state) lastTransactionSucceeds() error {
	if err := st.requireAttempt(); err != nil {
		return err
	}
	if st.lastErr != nil {
		return fmt.Errorf("expected the last transaction to succeed: %w", st.lastErr)
	}
	return nil
}

func (st *state) lastTransactionFails(want string) error {
	if err := st.requireAttempt(); err != nil {
		return err
	}
	expected, err := ledger.ParseStatus(want)
	if err != nil {
		return err
	}
	if st.lastErr == nil {
		return fmt.Errorf("expected the last transaction to fail with %s, it succeeded", expected)
	}
	status, ok := ledger.StatusOf(st.lastErr)
	if !ok {
		return fmt.Errorf("expected the last transaction to fail with %s, got a non-status error: %w", expected, st.lastErr)
	}
	return expectEqual("the status of the last transaction", expected, status)
}

func world(ctx context.Context) (*scenario.World, error) {
	return scenario.FromContext(ctx)
}
