package tariff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vidinfra/tariffd/internal/types"
)

func TestEnsureQuotas(t *testing.T) {
	tr := &Tariff{TenantID: "t1"}
	tr.EnsureQuotas(-1)

	assert.Len(t, tr.Quotas, 1)
	assert.Equal(t, -1, tr.Quotas[0].QuotaID)
	assert.Equal(t, 1, tr.Quotas[0].Quantity)

	// Existing quotas are left alone
	tr.EnsureQuotas(-1)
	assert.Len(t, tr.Quotas, 1)
}

func TestValueEqual(t *testing.T) {
	due := types.At(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	base := &Tariff{
		TenantID:   "t1",
		DueDate:    due,
		CustomerID: "billing@example.com",
		Quotas: []Quota{
			{QuotaID: 1, Quantity: 2},
			{QuotaID: 2, Quantity: 1, IsWallet: true},
		},
	}

	assert.False(t, base.ValueEqual(nil))
	assert.True(t, base.ValueEqual(base.Clone()))

	// Quota order does not matter
	reordered := base.Clone()
	reordered.Quotas[0], reordered.Quotas[1] = reordered.Quotas[1], reordered.Quotas[0]
	assert.True(t, base.ValueEqual(reordered))

	// State and internal ids are not part of the value
	restated := base.Clone()
	restated.State = types.TariffStateDelay
	restated.ID = 42
	assert.True(t, base.ValueEqual(restated))

	changedDue := base.Clone()
	changedDue.DueDate = due.AddDays(1)
	assert.False(t, base.ValueEqual(changedDue))

	changedCustomer := base.Clone()
	changedCustomer.CustomerID = "other@example.com"
	assert.False(t, base.ValueEqual(changedCustomer))

	changedQuantity := base.Clone()
	changedQuantity.Quotas[0].Quantity = 3
	assert.False(t, base.ValueEqual(changedQuantity))

	extraQuota := base.Clone()
	extraQuota.Quotas = append(extraQuota.Quotas, Quota{QuotaID: 3, Quantity: 1})
	assert.False(t, base.ValueEqual(extraQuota))
}

func TestCloneIsDeep(t *testing.T) {
	next := 5
	base := &Tariff{
		TenantID: "t1",
		Quotas:   []Quota{{QuotaID: 1, Quantity: 1, NextQuantity: &next}},
	}

	clone := base.Clone()
	clone.Quotas[0].Quantity = 9
	*clone.Quotas[0].NextQuantity = 9

	assert.Equal(t, 1, base.Quotas[0].Quantity)
	assert.Equal(t, 5, *base.Quotas[0].NextQuantity)
}
