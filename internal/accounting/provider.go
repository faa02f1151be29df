package accounting

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Balance is the tenant's current ledger balance.
type Balance struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	AsOf     time.Time       `json:"as_of"`
}

// Currency is one ledger currency plus its conversion rate.
type Currency struct {
	Code   string          `json:"code"`
	Symbol string          `json:"symbol"`
	Rate   decimal.Decimal `json:"rate"`
}

// Session is an open accounting session handle.
type Session struct {
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Operation is one ledger mutation to perform.
type Operation struct {
	OperationID string          `json:"operation_id"`
	Kind        string          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description,omitempty"`
}

// OperationRecord is one row of the operations report.
type OperationRecord struct {
	OperationID string          `json:"operation_id"`
	Kind        string          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	PerformedAt time.Time       `json:"performed_at"`
}

// Provider is the client side surface of the external balance/ledger system.
// Same fallibility profile as the billing provider: errors carry kinds and
// callers branch instead of failing hard.
type Provider interface {
	GetBalance(ctx context.Context, tenantID string) (*Balance, error)
	OpenSession(ctx context.Context, tenantID string) (*Session, error)
	// PerformOperation applies the mutation and waits until its effect on the
	// balance becomes observable. The wait is a fixed interval long poll that
	// gives up and logs after a bounded number of attempts rather than hang.
	PerformOperation(ctx context.Context, tenantID string, session *Session, op Operation) error
	GetOperations(ctx context.Context, tenantID string, from, to time.Time) ([]OperationRecord, error)
	GetCurrencies(ctx context.Context) ([]Currency, error)
}
