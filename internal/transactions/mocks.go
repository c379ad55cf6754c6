package transactions

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sumitpatel93/ledger-harness/internal/ledger"
)

type PipelineMock struct {
	mock.Mock
}

var _ Pipeline = (*PipelineMock)(nil)

func (p *PipelineMock) Build(ctx context.Context, op ledger.Operation) (*PendingTransaction, error) {
	args := p.Called(ctx, op)
	if result := args.Get(0); result != nil {
		return result.(*PendingTransaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (p *PipelineMock) Execute(ctx context.Context, op ledger.Operation, signers ...ledger.PrivateKey) (ledger.Receipt, error) {
	args := p.Called(ctx, op, signers)
	return args.Get(0).(ledger.Receipt), args.Error(1)
}

func (p *PipelineMock) ExecuteWithRecord(ctx context.Context, op ledger.Operation, signers ...ledger.PrivateKey) (ledger.Record, error) {
	args := p.Called(ctx, op, signers)
	return args.Get(0).(ledger.Record), args.Error(1)
}

// NewPipelineMock creates a new instance of PipelineMock. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewPipelineMock(t interface {
	mock.TestingT
	Cleanup(func())
},
) *PipelineMock {
	mock := &PipelineMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
