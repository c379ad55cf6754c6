package store

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type LeakStoreMock struct {
	mock.Mock
}

var _ LeakStore = (*LeakStoreMock)(nil)

func (s *LeakStoreMock) Record(ctx context.Context, leak Leak) (string, error) {
	args := s.Called(ctx, leak)
	return args.String(0), args.Error(1)
}

func (s *LeakStoreMock) GetUnreclaimed(ctx context.Context, limit int) ([]*LeakedResource, error) {
	args := s.Called(ctx, limit)
	if result := args.Get(0); result != nil {
		return result.([]*LeakedResource), args.Error(1)
	}
	return nil, args.Error(1)
}

func (s *LeakStoreMock) PrivateKey(ctx context.Context, leaked *LeakedResource) (string, error) {
	args := s.Called(ctx, leaked)
	return args.String(0), args.Error(1)
}

func (s *LeakStoreMock) MarkReclaimed(ctx context.Context, id string) error {
	args := s.Called(ctx, id)
	return args.Error(0)
}

func (s *LeakStoreMock) IncrementAttempts(ctx context.Context, id string) error {
	args := s.Called(ctx, id)
	return args.Error(0)
}

func (s *LeakStoreMock) CountUnreclaimed(ctx context.Context) (int64, error) {
	args := s.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// NewLeakStoreMock creates a new instance of LeakStoreMock. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewLeakStoreMock(t interface {
	mock.TestingT
	Cleanup(func())
},
) *LeakStoreMock {
	mock := &LeakStoreMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
