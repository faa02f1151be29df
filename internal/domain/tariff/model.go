package tariff

import (
	"sort"

	"github.com/vidinfra/tariffd/internal/types"
)

// Tariff is the computed billing state for one tenant.
type Tariff struct {
	// ID identifies the underlying billing record. 0 means not yet persisted;
	// negative ids are tenant scoped placeholders used before a real provider
	// id is known.
	ID       int    `json:"id"`
	TenantID string `json:"tenant_id"`

	State types.TariffState `json:"state"`

	DueDate      types.Boundary `json:"due_date"`
	DelayDueDate types.Boundary `json:"delay_due_date"`
	LicenseDate  types.Boundary `json:"license_date"`

	// CustomerID is the provider side billing identity (usually an email).
	CustomerID string `json:"customer_id"`

	// Quotas is never nil after any engine operation completes.
	Quotas []Quota `json:"quotas"`

	// OverdueQuotas are excluded from active aggregation but retained for
	// audit purposes.
	OverdueQuotas []Quota `json:"overdue_quotas,omitempty"`
}

// Quota is one assigned quota row: a catalog definition reference plus a
// quantity multiplier.
type Quota struct {
	QuotaID  int  `json:"quota_id"`
	Quantity int  `json:"quantity"`
	IsWallet bool `json:"is_wallet"`

	// DueDate tracks the payment coverage window for wallet quotas.
	DueDate types.Boundary `json:"due_date,omitempty"`

	// NextQuantity is the provider's hint for the quantity that takes effect
	// after the current coverage window, if known.
	NextQuantity *int `json:"next_quantity,omitempty"`
}

// EnsureQuotas upholds the invariant that Quotas is never nil: a tenant with
// no assigned quota gets the deployment default on first computation.
func (t *Tariff) EnsureQuotas(defaultQuotaID int) {
	if len(t.Quotas) == 0 {
		t.Quotas = []Quota{{QuotaID: defaultQuotaID, Quantity: 1}}
	}
}

// ValueEqual compares the fields that matter for the persistence skip rule:
// (DueDate, CustomerID, quotas-as-multiset). A recomputed tariff that is
// value-equal to the persisted one is not re-persisted and does not notify.
func (t *Tariff) ValueEqual(other *Tariff) bool {
	if other == nil {
		return false
	}
	if !t.DueDate.Equal(other.DueDate) {
		return false
	}
	if t.CustomerID != other.CustomerID {
		return false
	}
	return quotaMultisetEqual(t.Quotas, other.Quotas)
}

func quotaMultisetEqual(a, b []Quota) bool {
	if len(a) != len(b) {
		return false
	}

	as := sortedQuotas(a)
	bs := sortedQuotas(b)
	for i := range as {
		if !quotaEqual(as[i], bs[i]) {
			return false
		}
	}
	return true
}

func sortedQuotas(qs []Quota) []Quota {
	out := make([]Quota, len(qs))
	copy(out, qs)
	sort.Slice(out, func(i, j int) bool {
		if out[i].QuotaID != out[j].QuotaID {
			return out[i].QuotaID < out[j].QuotaID
		}
		return out[i].Quantity < out[j].Quantity
	})
	return out
}

func quotaEqual(a, b Quota) bool {
	if a.QuotaID != b.QuotaID || a.Quantity != b.Quantity || a.IsWallet != b.IsWallet {
		return false
	}
	if !a.DueDate.Equal(b.DueDate) {
		return false
	}
	if (a.NextQuantity == nil) != (b.NextQuantity == nil) {
		return false
	}
	if a.NextQuantity != nil && *a.NextQuantity != *b.NextQuantity {
		return false
	}
	return true
}

// Clone returns a deep copy so cached values never alias persisted ones.
func (t *Tariff) Clone() *Tariff {
	out := *t
	out.Quotas = append([]Quota(nil), t.Quotas...)
	out.OverdueQuotas = append([]Quota(nil), t.OverdueQuotas...)
	for i, q := range t.Quotas {
		if q.NextQuantity != nil {
			n := *q.NextQuantity
			out.Quotas[i].NextQuantity = &n
		}
	}
	return &out
}
