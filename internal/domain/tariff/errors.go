package tariff

import (
	ierr "github.com/vidinfra/tariffd/internal/errors"
)

func NewTariffNotFoundError(tenantID string) error {
	return ierr.NewError("tariff not found").
		WithHintf("no tariff persisted for tenant %s", tenantID).
		Mark(ierr.ErrNotFound)
}

func NewMissingProductMappingError(productID string) error {
	return ierr.NewError("payment references unknown product").
		WithHintf("no quota definition maps product %s", productID).
		WithReportableDetails(map[string]any{"product_id": productID}).
		Mark(ierr.ErrIntegrity)
}
