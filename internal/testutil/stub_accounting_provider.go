package testutil

import (
	"context"
	"time"

	"github.com/vidinfra/tariffd/internal/accounting"
	ierr "github.com/vidinfra/tariffd/internal/errors"
)

// StubAccountingProvider is a scriptable accounting.Provider for tests.
type StubAccountingProvider struct {
	Balance    *accounting.Balance
	Currencies []accounting.Currency
	Err        error
}

func NewStubAccountingProvider() *StubAccountingProvider {
	return &StubAccountingProvider{}
}

func (p *StubAccountingProvider) GetBalance(ctx context.Context, tenantID string) (*accounting.Balance, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Balance == nil {
		return nil, ierr.NewError("no balance").
			WithHint("balance not found").
			Mark(ierr.ErrNotFound)
	}
	out := *p.Balance
	return &out, nil
}

func (p *StubAccountingProvider) OpenSession(ctx context.Context, tenantID string) (*accounting.Session, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return &accounting.Session{SessionID: "test-session", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (p *StubAccountingProvider) PerformOperation(ctx context.Context, tenantID string, session *accounting.Session, op accounting.Operation) error {
	return p.Err
}

func (p *StubAccountingProvider) GetOperations(ctx context.Context, tenantID string, from, to time.Time) ([]accounting.OperationRecord, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return []accounting.OperationRecord{}, nil
}

func (p *StubAccountingProvider) GetCurrencies(ctx context.Context) ([]accounting.Currency, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Currencies, nil
}
