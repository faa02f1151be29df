package quota

import (
	"github.com/shopspring/decimal"

	"github.com/vidinfra/tariffd/internal/types"
)

// Definition is a tenant independent resource limit template. Tenants
// reference definitions by id and scale them by a quantity multiplier.
type Definition struct {
	ID   int    `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	// ProductID maps the quota onto the billing provider's product catalog.
	ProductID string          `db:"product_id" json:"product_id"`
	Price     decimal.Decimal `db:"price" json:"price"`

	// Resource limits
	Seats        int64 `db:"seats" json:"seats"`
	StorageBytes int64 `db:"storage_bytes" json:"storage_bytes"`
	RoomCount    int64 `db:"room_count" json:"room_count"`

	// Flags
	Trial     bool `db:"trial" json:"trial"`
	Free      bool `db:"free" json:"free"`
	Custom    bool `db:"custom" json:"custom"`
	NonProfit bool `db:"non_profit" json:"non_profit"`
	Lifetime  bool `db:"lifetime" json:"lifetime"`
	Wallet    bool `db:"wallet" json:"wallet"`
	Visible   bool `db:"visible" json:"visible"`

	// DueDate carries the coverage window of a scaled quota while it is being
	// folded into an aggregate. Unset means "no restriction".
	DueDate types.Boundary `db:"-" json:"due_date,omitempty"`
}

// ZeroQuota is the identity element of Combine.
var ZeroQuota = Definition{}

// IsZero reports whether the definition is the Combine identity.
func (d Definition) IsZero() bool {
	return d == ZeroQuota
}

// Scale multiplies every numeric limit by quantity. Quantity 0 yields a
// zero-limit quota, not quota removal.
func Scale(d Definition, quantity int) Definition {
	n := int64(quantity)
	out := d
	out.Seats = d.Seats * n
	out.StorageBytes = d.StorageBytes * n
	out.RoomCount = d.RoomCount * n
	return out
}

// Combine merges two scaled quotas into an aggregate that is at least as
// permissive as the more generous operand per numeric field: simultaneously
// active subscriptions add their seats and storage together. The aggregate
// due date is the more restrictive of the two set boundaries. Combine is
// commutative and associative, with ZeroQuota as identity.
func Combine(a, b Definition) Definition {
	if a.IsZero() {
		return b
	}
	if b.IsZero() {
		return a
	}

	out := a
	out.Seats = a.Seats + b.Seats
	out.StorageBytes = a.StorageBytes + b.StorageBytes
	out.RoomCount = a.RoomCount + b.RoomCount

	out.Trial = a.Trial || b.Trial
	out.Free = a.Free || b.Free
	out.Custom = a.Custom || b.Custom
	out.NonProfit = a.NonProfit || b.NonProfit
	out.Lifetime = a.Lifetime || b.Lifetime
	out.Wallet = a.Wallet && b.Wallet
	out.Visible = a.Visible || b.Visible

	out.DueDate = a.DueDate.Min(b.DueDate)

	// An aggregate of two live quotas is no longer a catalog row.
	out.ID = 0
	out.Name = ""
	out.ProductID = ""
	out.Price = a.Price.Add(b.Price)
	return out
}
