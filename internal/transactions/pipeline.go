// Package transactions drives ledger operations through build, freeze, sign, submit and receipt.
package transactions

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/sumitpatel93/ledger-harness/internal/ledger"
	"github.com/sumitpatel93/ledger-harness/internal/metrics"
	"github.com/sumitpatel93/ledger-harness/internal/validators"
)

var ErrInvalidOperation = errors.New("invalid operation")

type Pipeline interface {
	// Build validates op and wraps the SDK transaction carrying it.
	Build(ctx context.Context, op ledger.Operation) (*PendingTransaction, error)
	// Execute freezes, signs with signers in order, submits and waits for the receipt of op.
	Execute(ctx context.Context, op ledger.Operation, signers ...ledger.PrivateKey) (ledger.Receipt, error)
	ExecuteWithRecord(ctx context.Context, op ledger.Operation, signers ...ledger.PrivateKey) (ledger.Record, error)
}

type pipeline struct {
	client         ledger.Client
	metricsService metrics.MetricsService
	validate       *validator.Validate
}

var _ Pipeline = (*pipeline)(nil)

type PipelineOptions struct {
	Client         ledger.Client
	MetricsService metrics.MetricsService
}

func (o *PipelineOptions) ValidateOptions() error {
	if o.Client == nil {
		return fmt.Errorf("client cannot be nil")
	}
	if o.MetricsService == nil {
		return fmt.Errorf("metrics service cannot be nil")
	}
	return nil
}

func NewPipeline(opts PipelineOptions) (*pipeline, error) {
	if err := opts.ValidateOptions(); err != nil {
		return nil, fmt.Errorf("validating pipeline options: %w", err)
	}

	return &pipeline{
		client:         opts.Client,
		metricsService: opts.MetricsService,
		validate:       validators.NewValidator(),
	}, nil
}

func (p *pipeline) Build(ctx context.Context, op ledger.Operation) (*PendingTransaction, error) {
	if op == nil {
		return nil, fmt.Errorf("%w: operation cannot be nil", ErrInvalidOperation)
	}
	if err := p.validateOperation(op); err != nil {
		return nil, err
	}

	tx, err := p.client.NewTransaction(ctx, op)
	if err != nil {
		log.Ctx(ctx).Errorf("❌ building %s transaction: %v", op.Kind(), err)
		return nil, fmt.Errorf("building %s transaction: %w", op.Kind(), err)
	}

	return newPendingTransaction(op.Kind(), tx, p.metricsService), nil
}

func (p *pipeline) validateOperation(op ledger.Operation) error {
	err := p.validate.Struct(op)
	if err == nil {
		return nil
	}

	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		return fmt.Errorf("%w: %s %v", ErrInvalidOperation, op.Kind(), validators.ParseValidationError(vErrs))
	}
	return fmt.Errorf("%w: %s: %w", ErrInvalidOperation, op.Kind(), err)
}

func (p *pipeline) Execute(ctx context.Context, op ledger.Operation, signers ...ledger.PrivateKey) (ledger.Receipt, error) {
	pending, err := p.submit(ctx, op, signers)
	if err != nil {
		return ledger.Receipt{}, err
	}

	receipt, err := pending.Receipt(ctx)
	if err != nil {
		return receipt, fmt.Errorf("executing %s transaction: %w", op.Kind(), err)
	}
	return receipt, nil
}

func (p *pipeline) ExecuteWithRecord(ctx context.Context, op ledger.Operation, signers ...ledger.PrivateKey) (ledger.Record, error) {
	pending, err := p.submit(ctx, op, signers)
	if err != nil {
		return ledger.Record{}, err
	}

	record, err := pending.Record(ctx)
	if err != nil {
		return record, fmt.Errorf("executing %s transaction: %w", op.Kind(), err)
	}
	return record, nil
}

func (p *pipeline) submit(ctx context.Context, op ledger.Operation, signers []ledger.PrivateKey) (*PendingTransaction, error) {
	pending, err := p.Build(ctx, op)
	if err != nil {
		return nil, err
	}
	if err = pending.Freeze(ctx); err != nil {
		return nil, fmt.Errorf("executing %s transaction: %w", op.Kind(), err)
	}
	if err = pending.Sign(signers...); err != nil {
		return nil, fmt.Errorf("executing %s transaction: %w", op.Kind(), err)
	}
	if _, err = pending.Submit(ctx); err != nil {
		return nil, fmt.Errorf("executing %s transaction: %w", op.Kind(), err)
	}
	return pending, nil
}
