package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vidinfra/tariffd/internal/types"
)

var stateNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestComputeStateDeterministic(t *testing.T) {
	in := StateInput{
		DueDate:          types.At(stateNow.AddDate(0, 0, -2)),
		PaymentDelayDays: 3,
		Now:              stateNow,
	}

	first := ComputeState(in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ComputeState(in))
	}
}

func TestComputeStatePaid(t *testing.T) {
	out := ComputeState(StateInput{
		DueDate: types.At(stateNow.AddDate(0, 1, 0)),
		Now:     stateNow,
	})

	assert.Equal(t, types.TariffStatePaid, out.State)
	assert.True(t, out.DelayDueDate.IsNever())
}

func TestComputeStateNeverPaid(t *testing.T) {
	out := ComputeState(StateInput{
		DueDate: types.Never(),
		Now:     stateNow,
	})

	assert.Equal(t, types.TariffStateNotPaid, out.State)
}

func TestComputeStateDelayWindow(t *testing.T) {
	due := types.At(stateNow.AddDate(0, 0, -1))
	out := ComputeState(StateInput{
		DueDate:          due,
		PaymentDelayDays: 3,
		Now:              stateNow,
	})

	assert.Equal(t, types.TariffStateDelay, out.State)
	assert.True(t, out.DelayDueDate.Equal(due.AddDays(3)))

	// Past the grace window the tariff decays to NotPaid
	out = ComputeState(StateInput{
		DueDate:          types.At(stateNow.AddDate(0, 0, -4)),
		PaymentDelayDays: 3,
		Now:              stateNow,
	})
	assert.Equal(t, types.TariffStateNotPaid, out.State)
}

func TestComputeStateNoDelayConfigured(t *testing.T) {
	out := ComputeState(StateInput{
		DueDate: types.At(stateNow.Add(-time.Minute)),
		Now:     stateNow,
	})

	assert.Equal(t, types.TariffStateNotPaid, out.State)
}

func TestComputeStateTrial(t *testing.T) {
	created := stateNow.AddDate(0, 0, -10)

	out := ComputeState(StateInput{
		DueDate:         types.Unbounded(),
		HasTrialQuota:   true,
		TrialEnabled:    true,
		TrialPeriodDays: 30,
		TenantCreatedAt: created,
		Now:             stateNow,
	})

	assert.Equal(t, types.TariffStateTrial, out.State)
	assert.True(t, out.DueDate.Equal(types.At(created.AddDate(0, 0, 30))))
}

func TestComputeStateTrialUsesLatestVersionChange(t *testing.T) {
	created := stateNow.AddDate(0, -6, 0)
	versionChanged := stateNow.AddDate(0, 0, -5)

	out := ComputeState(StateInput{
		DueDate:                types.Unbounded(),
		HasTrialQuota:          true,
		TrialEnabled:           true,
		TrialPeriodDays:        30,
		TenantCreatedAt:        created,
		TenantVersionChangedAt: versionChanged,
		Now:                    stateNow,
	})

	assert.Equal(t, types.TariffStateTrial, out.State)
	assert.True(t, out.DueDate.Equal(types.At(versionChanged.AddDate(0, 0, 30))))
}

func TestComputeStateTrialExpiry(t *testing.T) {
	created := stateNow.AddDate(0, 0, -31)

	// With no grace period the trial flips to NotPaid the moment it expires
	out := ComputeState(StateInput{
		DueDate:         types.Unbounded(),
		HasTrialQuota:   true,
		TrialEnabled:    true,
		TrialPeriodDays: 30,
		TenantCreatedAt: created,
		Now:             stateNow,
	})
	assert.Equal(t, types.TariffStateNotPaid, out.State)

	// With a grace period it passes through Delay first
	out = ComputeState(StateInput{
		DueDate:          types.Unbounded(),
		HasTrialQuota:    true,
		TrialEnabled:     true,
		TrialPeriodDays:  30,
		PaymentDelayDays: 3,
		TenantCreatedAt:  created,
		Now:              stateNow,
	})
	assert.Equal(t, types.TariffStateDelay, out.State)
}

func TestComputeStateTrialPeriodZeroNeverExpires(t *testing.T) {
	out := ComputeState(StateInput{
		DueDate:         types.Unbounded(),
		HasTrialQuota:   true,
		TrialEnabled:    true,
		TrialPeriodDays: 0,
		TenantCreatedAt: stateNow.AddDate(-1, 0, 0),
		Now:             stateNow,
	})

	assert.Equal(t, types.TariffStateTrial, out.State)
	assert.True(t, out.DueDate.IsUnbounded())
}

func TestComputeStateLifetime(t *testing.T) {
	// Lifetime quota keeps the tenant Paid even with a long expired due date
	out := ComputeState(StateInput{
		DueDate:          types.At(stateNow.AddDate(-1, 0, 0)),
		HasLifetimeQuota: true,
		PaymentDelayDays: 3,
		Now:              stateNow,
	})
	assert.Equal(t, types.TariffStatePaid, out.State)
	assert.True(t, out.DelayDueDate.IsNever())

	// Never paid plus lifetime still resolves to Paid
	out = ComputeState(StateInput{
		DueDate:          types.Never(),
		HasLifetimeQuota: true,
		Now:              stateNow,
	})
	assert.Equal(t, types.TariffStatePaid, out.State)
}

func TestComputeStateStandaloneLifetimeSkipsDecay(t *testing.T) {
	out := ComputeState(StateInput{
		DueDate:          types.Never(),
		HasLifetimeQuota: true,
		Standalone:       true,
		Now:              stateNow,
	})

	assert.Equal(t, types.TariffStatePaid, out.State)
}
