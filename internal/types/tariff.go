package types

import (
	ierr "github.com/vidinfra/tariffd/internal/errors"
)

// TariffState is the computed billing state of a tenant.
type TariffState string

const (
	// TariffStateTrial means the tenant runs on a trial quota.
	TariffStateTrial TariffState = "trial"
	// TariffStatePaid means the tenant has an active paid (or free/lifetime) plan.
	TariffStatePaid TariffState = "paid"
	// TariffStateDelay means the due date has passed but the tenant is inside
	// the payment grace period.
	TariffStateDelay TariffState = "delay"
	// TariffStateNotPaid means the grace period (if any) has been exhausted.
	TariffStateNotPaid TariffState = "not_paid"
)

func (s TariffState) Validate() error {
	switch s {
	case TariffStateTrial, TariffStatePaid, TariffStateDelay, TariffStateNotPaid:
		return nil
	}
	return ierr.NewError("invalid tariff state").
		WithHintf("unknown tariff state %q", string(s)).
		Mark(ierr.ErrValidation)
}
