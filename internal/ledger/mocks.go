package ledger

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type ClientMock struct {
	mock.Mock
}

var _ Client = (*ClientMock)(nil)

func (c *ClientMock) SetOperator(accountID AccountID, key PrivateKey) error {
	args := c.Called(accountID, key)
	return args.Error(0)
}

func (c *ClientMock) Operator() (AccountID, PrivateKey, bool) {
	args := c.Called()
	if args.Get(1) == nil {
		return args.Get(0).(AccountID), nil, args.Bool(2)
	}
	return args.Get(0).(AccountID), args.Get(1).(PrivateKey), args.Bool(2)
}

func (c *ClientMock) ParsePrivateKey(key string) (PrivateKey, error) {
	args := c.Called(key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(PrivateKey), args.Error(1)
}

func (c *ClientMock) GeneratePrivateKey() (PrivateKey, error) {
	args := c.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(PrivateKey), args.Error(1)
}

func (c *ClientMock) NewTransaction(ctx context.Context, op Operation) (Transaction, error) {
	args := c.Called(ctx, op)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Transaction), args.Error(1)
}

func (c *ClientMock) QueryBalance(ctx context.Context, accountID AccountID, tokenIDs ...TokenID) (Balance, error) {
	args := c.Called(ctx, accountID, tokenIDs)
	return args.Get(0).(Balance), args.Error(1)
}

func (c *ClientMock) SubscribeTopic(ctx context.Context, topicID TopicID, start time.Time, onMessage func(TopicMessage), onError func(error)) (SubscriptionHandle, error) {
	args := c.Called(ctx, topicID, start, onMessage, onError)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(SubscriptionHandle), args.Error(1)
}

func (c *ClientMock) Close() error {
	args := c.Called()
	return args.Error(0)
}

// NewClientMock creates a new instance of ClientMock. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewClientMock(t interface {
	mock.TestingT
	Cleanup(func())
},
) *ClientMock {
	mock := &ClientMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

type TransactionMock struct {
	mock.Mock
}

var _ Transaction = (*TransactionMock)(nil)

func (tx *TransactionMock) Freeze(ctx context.Context) error {
	args := tx.Called(ctx)
	return args.Error(0)
}

func (tx *TransactionMock) Sign(key PrivateKey) error {
	args := tx.Called(key)
	return args.Error(0)
}

func (tx *TransactionMock) Execute(ctx context.Context) (Response, error) {
	args := tx.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Response), args.Error(1)
}

// NewTransactionMock creates a new instance of TransactionMock. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewTransactionMock(t interface {
	mock.TestingT
	Cleanup(func())
},
) *TransactionMock {
	mock := &TransactionMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

type ResponseMock struct {
	mock.Mock
}

var _ Response = (*ResponseMock)(nil)

func (r *ResponseMock) TransactionID() string {
	args := r.Called()
	return args.String(0)
}

func (r *ResponseMock) Receipt(ctx context.Context) (Receipt, error) {
	args := r.Called(ctx)
	return args.Get(0).(Receipt), args.Error(1)
}

func (r *ResponseMock) Record(ctx context.Context) (Record, error) {
	args := r.Called(ctx)
	return args.Get(0).(Record), args.Error(1)
}

// NewResponseMock creates a new instance of ResponseMock. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewResponseMock(t interface {
	mock.TestingT
	Cleanup(func())
},
) *ResponseMock {
	mock := &ResponseMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

type SubscriptionHandleMock struct {
	mock.Mock
}

var _ SubscriptionHandle = (*SubscriptionHandleMock)(nil)

func (h *SubscriptionHandleMock) Unsubscribe() {
	h.Called()
}

// NewSubscriptionHandleMock creates a new instance of SubscriptionHandleMock. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewSubscriptionHandleMock(t interface {
	mock.TestingT
	Cleanup(func())
},
) *SubscriptionHandleMock {
	mock := &SubscriptionHandleMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
