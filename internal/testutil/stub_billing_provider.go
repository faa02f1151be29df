package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/vidinfra/tariffd/internal/billing"
)

// StubBillingProvider is a scriptable billing.Provider for tests. Payments
// and Err control what GetCurrentPayments returns; PaymentCalls counts
// provider round trips so tests can assert the single-recompute property.
type StubBillingProvider struct {
	mu sync.Mutex

	Payments []billing.PaymentRow
	Customer *billing.Customer
	Price    decimal.Decimal
	Err      error

	PaymentCalls    atomic.Int64
	QuantityChanges []map[string]int
}

func NewStubBillingProvider() *StubBillingProvider {
	return &StubBillingProvider{}
}

func (p *StubBillingProvider) GetCurrentPayments(ctx context.Context, portalID string, forceRefresh bool) ([]billing.PaymentRow, error) {
	p.PaymentCalls.Add(1)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	out := make([]billing.PaymentRow, len(p.Payments))
	copy(out, p.Payments)
	return out, nil
}

func (p *StubBillingProvider) ChangeSubscription(ctx context.Context, portalID string, quantities map[string]int) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return false, p.Err
	}
	p.QuantityChanges = append(p.QuantityChanges, quantities)
	return true, nil
}

func (p *StubBillingProvider) CalculateSubscription(ctx context.Context, portalID string, quantities map[string]int) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return decimal.Zero, p.Err
	}
	return p.Price, nil
}

func (p *StubBillingProvider) GetCustomerInfo(ctx context.Context, portalID string) (*billing.Customer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Customer == nil {
		return &billing.Customer{CustomerID: portalID}, nil
	}
	out := *p.Customer
	return &out, nil
}

func (p *StubBillingProvider) GetAccountLink(ctx context.Context, portalID string, backURL string) (string, error) {
	if p.Err != nil {
		return "", p.Err
	}
	return "https://billing.example.com/account/" + portalID, nil
}

func (p *StubBillingProvider) GetPaymentURL(ctx context.Context, portalID string, productIDs []string) (string, error) {
	if p.Err != nil {
		return "", p.Err
	}
	return "https://billing.example.com/pay/" + portalID, nil
}

func (p *StubBillingProvider) SetPayments(rows []billing.PaymentRow) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Payments = rows
}

func (p *StubBillingProvider) SetErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Err = err
}
