package dto

import (
	"github.com/shopspring/decimal"

	"github.com/vidinfra/tariffd/internal/billing"
	"github.com/vidinfra/tariffd/internal/domain/quota"
	"github.com/vidinfra/tariffd/internal/domain/tariff"
	ierr "github.com/vidinfra/tariffd/internal/errors"
	"github.com/vidinfra/tariffd/internal/types"
)

// TariffResponse is the external view of a tenant's tariff.
type TariffResponse struct {
	ID           int               `json:"id"`
	TenantID     string            `json:"tenant_id"`
	State        types.TariffState `json:"state"`
	DueDate      types.Boundary    `json:"due_date"`
	DelayDueDate types.Boundary    `json:"delay_due_date"`
	CustomerID   string            `json:"customer_id,omitempty"`
	Quotas       []tariff.Quota    `json:"quotas"`
}

func NewTariffResponse(t *tariff.Tariff) *TariffResponse {
	return &TariffResponse{
		ID:           t.ID,
		TenantID:     t.TenantID,
		State:        t.State,
		DueDate:      t.DueDate,
		DelayDueDate: t.DelayDueDate,
		CustomerID:   t.CustomerID,
		Quotas:       t.Quotas,
	}
}

// LimitsResponse is the aggregated effective quota of a tenant.
type LimitsResponse struct {
	Seats        int64 `json:"seats"`
	StorageBytes int64 `json:"storage_bytes"`
	RoomCount    int64 `json:"room_count"`
	Trial        bool  `json:"trial"`
	Free         bool  `json:"free"`
	Lifetime     bool  `json:"lifetime"`
	NonProfit    bool  `json:"non_profit"`
}

func NewLimitsResponse(d *quota.Definition) *LimitsResponse {
	return &LimitsResponse{
		Seats:        d.Seats,
		StorageBytes: d.StorageBytes,
		RoomCount:    d.RoomCount,
		Trial:        d.Trial,
		Free:         d.Free,
		Lifetime:     d.Lifetime,
		NonProfit:    d.NonProfit,
	}
}

// SetTariffRequest overrides a tenant's tariff.
type SetTariffRequest struct {
	ID         int               `json:"id"`
	State      types.TariffState `json:"state"`
	DueDate    types.Boundary    `json:"due_date"`
	CustomerID string            `json:"customer_id"`
	Quotas     []tariff.Quota    `json:"quotas"`
}

func (r *SetTariffRequest) Validate() error {
	if r.State != "" {
		if err := r.State.Validate(); err != nil {
			return err
		}
	}
	for _, q := range r.Quotas {
		if q.Quantity <= 0 {
			return ierr.NewError("invalid quota quantity").
				WithHintf("quota %d has non-positive quantity %d", q.QuotaID, q.Quantity).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

func (r *SetTariffRequest) ToTariff() *tariff.Tariff {
	return &tariff.Tariff{
		ID:         r.ID,
		State:      r.State,
		DueDate:    r.DueDate,
		CustomerID: r.CustomerID,
		Quotas:     r.Quotas,
	}
}

// ChangeQuantityRequest asks the billing provider to change per-quota
// subscription quantities.
type ChangeQuantityRequest struct {
	Quantities map[int]int `json:"quantities" binding:"required"`
	CheckQuota bool        `json:"check_quota"`
}

func (r *ChangeQuantityRequest) Validate() error {
	if len(r.Quantities) == 0 {
		return ierr.NewError("empty quantity change").
			WithHint("at least one quota quantity is required").
			Mark(ierr.ErrValidation)
	}
	for quotaID, qty := range r.Quantities {
		if qty < 0 {
			return ierr.NewError("invalid quantity").
				WithHintf("quota %d has negative quantity %d", quotaID, qty).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// ChangeQuantityResponse reports whether the provider applied a change.
type ChangeQuantityResponse struct {
	Changed bool `json:"changed"`
}

// CalculatePriceRequest prices desired quantities without changing anything.
type CalculatePriceRequest struct {
	Quantities map[int]int `json:"quantities" binding:"required"`
}

// PriceResponse carries a computed subscription price.
type PriceResponse struct {
	Price decimal.Decimal `json:"price"`
}

// PaymentsResponse lists the provider's active payments for a tenant.
type PaymentsResponse struct {
	Payments []billing.PaymentRow `json:"payments"`
}

// PaymentURLRequest asks for a checkout link for the given products.
type PaymentURLRequest struct {
	ProductIDs []string `json:"product_ids" binding:"required"`
}

// AccountLinkRequest asks for a billing portal link.
type AccountLinkRequest struct {
	BackURL string `json:"back_url"`
}

// LinkResponse carries a provider URL.
type LinkResponse struct {
	URL string `json:"url"`
}

// BillingStatusResponse reports whether the billing provider is configured.
type BillingStatusResponse struct {
	Configured bool `json:"configured"`
}
