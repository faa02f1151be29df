package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRow is one active payment the provider reports for a portal.
type PaymentRow struct {
	PaymentID string `json:"payment_id"`
	// RecordID identifies the underlying billing record; the reconciled
	// tariff adopts the id of the payment with the latest coverage.
	RecordID  int       `json:"record_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Customer is the provider side billing identity of a portal.
type Customer struct {
	CustomerID string `json:"customer_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
}

// Provider is the client side surface of the external subscription system.
//
// Error kinds matter: a not-found answer (no active subscription) is returned
// as an error marked ErrNotFound, a missing endpoint as ErrProviderNotConfigured,
// everything else as ErrHTTPClient. The reconciliation engine branches on the
// kind instead of treating any of these as fatal.
type Provider interface {
	// GetCurrentPayments lists the portal's active payments ordered by end
	// date ascending.
	GetCurrentPayments(ctx context.Context, portalID string, forceRefresh bool) ([]PaymentRow, error)
	// ChangeSubscription updates per-product quantities. Has external side
	// effects; callers must not retry blindly.
	ChangeSubscription(ctx context.Context, portalID string, quantities map[string]int) (bool, error)
	// CalculateSubscription prices the desired quantities without changing
	// anything.
	CalculateSubscription(ctx context.Context, portalID string, quantities map[string]int) (decimal.Decimal, error)
	GetCustomerInfo(ctx context.Context, portalID string) (*Customer, error)
	GetAccountLink(ctx context.Context, portalID string, backURL string) (string, error)
	GetPaymentURL(ctx context.Context, portalID string, productIDs []string) (string, error)
}
