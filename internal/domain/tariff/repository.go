package tariff

import (
	"context"
)

// Repository is the persistent tariff store: the durable record of the last
// computed tariff and its quota rows per tenant.
type Repository interface {
	// GetTariff returns the persisted tariff or ErrNotFound.
	GetTariff(ctx context.Context, tenantID string) (*Tariff, error)
	// UpsertTariff persists the tariff and its quota rows. Concurrent write
	// races surface as ErrVersionConflict.
	UpsertTariff(ctx context.Context, t *Tariff) error
	// DeleteTariff purges the tenant's tariff record on teardown.
	DeleteTariff(ctx context.Context, tenantID string) error
}
