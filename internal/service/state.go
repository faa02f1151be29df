package service

import (
	"time"

	"github.com/vidinfra/tariffd/internal/types"
)

// StateInput is the full input of the tariff state machine. The function is
// pure: the same input always yields the same result, so state can be
// re-evaluated on every read without provider contact.
type StateInput struct {
	DueDate types.Boundary

	HasTrialQuota    bool
	HasLifetimeQuota bool

	TenantCreatedAt        time.Time
	TenantVersionChangedAt time.Time

	TrialEnabled     bool
	TrialPeriodDays  int
	PaymentDelayDays int

	Standalone bool

	Now time.Time
}

// StateResult is the computed state plus the (possibly derived) boundaries.
type StateResult struct {
	State        types.TariffState
	DueDate      types.Boundary
	DelayDueDate types.Boundary
}

// ComputeState derives the billing state from the folded tariff snapshot.
//
// Order of evaluation matters: the trial branch may derive a due date, the
// delay branch opens the grace window, and the final override decides
// NotPaid. Lifetime quotas exempt the tenant from payment decay.
func ComputeState(in StateInput) StateResult {
	state := types.TariffStatePaid
	due := in.DueDate
	delayDue := types.Never()

	if in.TrialEnabled && in.HasTrialQuota {
		state = types.TariffStateTrial
		if !due.IsBounded() {
			due = deriveTrialDueDate(in)
		}
	}

	// Single-portal deployments with a lifetime quota skip payment decay
	// entirely for the remainder of the checks.
	decayExempt := in.Standalone && in.HasLifetimeQuota

	delay := in.PaymentDelayDays
	if in.HasLifetimeQuota {
		// Lifetime plans never decay, so no grace window is needed.
		delay = 0
	}

	if !decayExempt {
		if due.IsBounded() && due.Before(in.Now) && delay > 0 {
			state = types.TariffStateDelay
			delayDue = due.AddDays(delay)
		}

		if !due.IsSet() || due.Before(in.Now.AddDate(0, 0, -delay)) {
			if in.HasLifetimeQuota {
				state = types.TariffStatePaid
			} else {
				state = types.TariffStateNotPaid
			}
		}
	}

	return StateResult{
		State:        state,
		DueDate:      due,
		DelayDueDate: delayDue,
	}
}

// deriveTrialDueDate computes the trial expiry from the tenant timestamps:
// max(created, versionChanged) + trialPeriodDays, falling back to "now" when
// both are unset. A configured trial period of 0 means no expiration.
func deriveTrialDueDate(in StateInput) types.Boundary {
	if in.TrialPeriodDays == 0 {
		return types.Unbounded()
	}

	base := in.TenantCreatedAt
	if in.TenantVersionChangedAt.After(base) {
		base = in.TenantVersionChangedAt
	}
	if base.IsZero() {
		base = in.Now
	}
	return types.At(base.AddDate(0, 0, in.TrialPeriodDays))
}
