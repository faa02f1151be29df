package service

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/vidinfra/tariffd/internal/accounting"
	"github.com/vidinfra/tariffd/internal/billing"
	"github.com/vidinfra/tariffd/internal/cache"
	"github.com/vidinfra/tariffd/internal/domain/quota"
	"github.com/vidinfra/tariffd/internal/domain/tariff"
	ierr "github.com/vidinfra/tariffd/internal/errors"
	"github.com/vidinfra/tariffd/internal/types"
)

// Resource limit feature names broadcast on change.
const (
	FeatureSeats        = "seats"
	FeatureStorageBytes = "storage_bytes"
	FeatureRoomCount    = "room_count"
)

// GetTariffOptions controls a single GetTariff call.
type GetTariffOptions struct {
	// WithRefresh reconciles against the billing provider when due.
	WithRefresh bool
	// Force bypasses the cache fast path.
	Force bool
}

// DefaultGetTariffOptions is what upstream callers normally want.
func DefaultGetTariffOptions() GetTariffOptions {
	return GetTariffOptions{WithRefresh: true}
}

type TariffService interface {
	// GetTariff returns the authoritative tariff of the tenant. Provider or
	// cache failures never propagate: the worst observable outcome is a
	// tariff unchanged from the last known value.
	GetTariff(ctx context.Context, tenantID string, opts GetTariffOptions) (*tariff.Tariff, error)
	// SetTariff persists an explicitly supplied tariff. A nil tariff is a
	// hard validation error.
	SetTariff(ctx context.Context, tenantID string, t *tariff.Tariff, quotas []tariff.Quota) error
	// DeleteTariff purges the tenant's tariff on teardown.
	DeleteTariff(ctx context.Context, tenantID string) error
	// ChangeSubscriptionQuantity has external side effects on the provider
	// and must not be retried blindly by callers without deduplication.
	ChangeSubscriptionQuantity(ctx context.Context, tenantID string, desired map[int]int, checkQuota bool) (bool, error)
	CalculatePrice(ctx context.Context, tenantID string, desired map[int]int) (decimal.Decimal, error)
	GetCurrentPayments(ctx context.Context, tenantID string, forceRefresh bool) ([]billing.PaymentRow, error)
	GetCustomerInfo(ctx context.Context, tenantID string) (*billing.Customer, error)
	GetPaymentURL(ctx context.Context, tenantID string, productIDs []string) (string, error)
	GetAccountLink(ctx context.Context, tenantID string, backURL string) (string, error)
	GetSupportedCurrencies(ctx context.Context) ([]accounting.Currency, error)
	IsBillingConfigured() bool
	// EffectiveQuota returns the tenant's aggregate resource limits.
	EffectiveQuota(ctx context.Context, tenantID string) (*quota.Definition, error)
	// ListVisibleQuotas returns the catalog entries offered for plan selection.
	ListVisibleQuotas(ctx context.Context) ([]*quota.Definition, error)
}

type tariffService struct {
	ServiceParams

	// stableRecomputes counts, per tenant, consecutive reconciliations that
	// produced no change. Standalone deployments use it to grow the cache
	// TTL once the environment is known to be stable.
	stableRecomputes sync.Map
}

func NewTariffService(params ServiceParams) TariffService {
	return &tariffService{ServiceParams: params}
}

func (s *tariffService) IsBillingConfigured() bool {
	return s.Config.Billing.IsConfigured()
}

func (s *tariffService) GetTariff(ctx context.Context, tenantID string, opts GetTariffOptions) (*tariff.Tariff, error) {
	key := cache.GenerateKey(cache.PrefixTariff, tenantID)

	// Fast path: readers never take the lock.
	if !opts.Force {
		if cached, ok := cache.GetJSON[tariff.Tariff](ctx, s.Cache, key); ok {
			return cached, nil
		}
	}

	handle, err := s.Locks.TryAcquireFair(ctx, tenantID+":tariff_lock")
	if err != nil {
		s.Logger.Errorw("failed to acquire tariff lock, serving last known good",
			"tenant_id", tenantID, "error", err)
		return s.lastKnownGood(ctx, tenantID)
	}
	defer func() {
		if err := handle.Release(context.WithoutCancel(ctx)); err != nil {
			s.Logger.Warnw("failed to release tariff lock", "tenant_id", tenantID, "error", err)
		}
	}()

	// Double-checked: another holder may have filled the cache while we
	// waited. State can still change on time alone, so re-run the machine.
	if !opts.Force {
		if cached, ok := cache.GetJSON[tariff.Tariff](ctx, s.Cache, key); ok {
			current := cached.Clone()
			s.applyState(ctx, tenantID, current)
			if current.State != cached.State {
				s.cacheTariff(ctx, tenantID, current)
			}
			return current, nil
		}
	}

	current, persisted := s.loadOrDefault(ctx, tenantID)
	s.applyState(ctx, tenantID, current)
	s.cacheTariff(ctx, tenantID, current)

	if opts.WithRefresh && s.Config.Billing.IsConfigured() {
		current = s.refreshFromProvider(ctx, tenantID, current, persisted, opts.Force)
	}

	// Self hosted installations activated by license get a time bounded
	// trial until a real billing record shows up.
	if current.ID == 0 && s.Config.Deployment.EnterpriseLicense && !current.LicenseDate.IsSet() {
		current = s.seedLicenseTrial(ctx, tenantID, current)
	}

	return current, nil
}

// refreshFromProvider reconciles the tariff against the billing provider and
// folds failures into the graceful degradation policy. It never returns an
// error: the prior tariff is the fallback.
func (s *tariffService) refreshFromProvider(ctx context.Context, tenantID string, prior *tariff.Tariff, persisted, force bool) *tariff.Tariff {
	next, err := s.reconcile(ctx, tenantID, prior, persisted, force)
	switch {
	case err == nil:
		return next
	case ierr.IsNotFound(err):
		return s.degradeNotFound(ctx, tenantID, prior, persisted)
	case ierr.IsProviderNotConfigured(err):
		return prior
	case ierr.IsIntegrity(err):
		// Fatal for this pass only; the prior tariff stays untouched.
		s.Logger.Errorw("billing reconciliation hit a configuration error",
			"tenant_id", tenantID, "error", err)
		return prior
	default:
		s.Logger.Errorw("billing provider refresh failed, using last known good tariff",
			"tenant_id", tenantID, "error", err)
		return prior
	}
}

// reconcile folds the provider's current payments into a fresh tariff and
// persists it when its value changed.
func (s *tariffService) reconcile(ctx context.Context, tenantID string, prior *tariff.Tariff, persisted, force bool) (*tariff.Tariff, error) {
	rows, err := s.fetchPayments(ctx, tenantID, force)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ierr.NewError("provider reports no active payments").
			WithHintf("no subscription found for tenant %s", tenantID).
			Mark(ierr.ErrNotFound)
	}

	next := prior.Clone()
	next.TenantID = tenantID
	next.Quotas = nil
	due := types.Unbounded()

	for _, row := range rows {
		def, err := s.QuotaRepo.GetDefinitionByProductID(ctx, row.ProductID)
		if err != nil {
			if ierr.IsNotFound(err) {
				return nil, tariff.NewMissingProductMappingError(row.ProductID)
			}
			return nil, err
		}

		q := tariff.Quota{QuotaID: def.ID, Quantity: row.Quantity, IsWallet: def.Wallet}
		if def.Wallet {
			// Wallet quotas track the payment's coverage window.
			q.DueDate = types.At(row.EndDate)
			if prev, ok := findQuota(prior.Quotas, def.ID); ok && prev.Quantity == row.Quantity {
				q.NextQuantity = prev.NextQuantity
			}
		} else {
			// types.At caps year-9999 "infinite" sentinels to Unbounded.
			due = due.Min(types.At(row.EndDate))
		}
		next.Quotas = append(next.Quotas, q)
		next.ID = row.RecordID
	}

	if err := s.applyWalletOnlyPolicy(ctx, tenantID, prior, persisted, next); err != nil {
		return nil, err
	}

	next.DueDate = due
	s.fillCustomerID(ctx, tenantID, next)

	// Aggregate the effective quota and enforce resource limit policy on
	// every resulting quota before acceptance.
	if _, err := s.aggregate(ctx, tenantID, next.Quotas, true); err != nil {
		return nil, err
	}

	s.applyState(ctx, tenantID, next)

	reference := prior
	if !persisted {
		reference = nil
	}
	if next.ValueEqual(reference) {
		s.markStable(tenantID)
		s.cacheTariff(ctx, tenantID, next)
		return next, nil
	}

	s.stableRecomputes.Delete(tenantID)
	s.persistAndNotify(ctx, tenantID, reference, next)
	return next, nil
}

// applyWalletOnlyPolicy enforces the rule that wallet-only provider data
// cannot silently replace a real subscription.
func (s *tariffService) applyWalletOnlyPolicy(ctx context.Context, tenantID string, prior *tariff.Tariff, persisted bool, next *tariff.Tariff) error {
	allWallet := len(next.Quotas) > 0 && lo.EveryBy(next.Quotas, func(q tariff.Quota) bool {
		return q.IsWallet
	})
	if !allWallet {
		return nil
	}

	if persisted && prior.ID != 0 && s.isRealPaidPlan(ctx, prior) {
		return ierr.NewError("provider returned only wallet payments").
			WithHintf("refusing to replace the paid subscription of tenant %s with wallet data", tenantID).
			Mark(ierr.ErrNotFound)
	}

	// No prior record: seed the initial placeholder quota from the persisted
	// store or the system default.
	seed := prior.Quotas
	if len(seed) == 0 {
		seed = []tariff.Quota{{QuotaID: s.Config.Billing.DefaultQuotaID, Quantity: 1}}
	}
	for _, q := range seed {
		if !q.IsWallet {
			next.Quotas = append(next.Quotas, q)
		}
	}
	return nil
}

// isRealPaidPlan reports whether the tariff carries a paid, non-free,
// non-trial, non-custom plan.
func (s *tariffService) isRealPaidPlan(ctx context.Context, t *tariff.Tariff) bool {
	defs := s.resolveDefinitions(ctx, t.Quotas)
	for _, q := range t.Quotas {
		def, ok := defs[q.QuotaID]
		if !ok {
			continue
		}
		if def.Free || def.Trial || def.Custom {
			return false
		}
	}
	return len(t.Quotas) > 0
}

// degradeNotFound handles the provider "not found" condition: a previously
// paid tenant gets its due date pushed one day into the past, which forces
// the Delay/NotPaid branch on the next state machine pass. This is a
// deliberate soft degrade, not a hard error.
func (s *tariffService) degradeNotFound(ctx context.Context, tenantID string, prior *tariff.Tariff, persisted bool) *tariff.Tariff {
	if !persisted || prior.ID == 0 || !s.isRealPaidPlan(ctx, prior) {
		return prior
	}

	next := prior.Clone()
	next.DueDate = types.At(time.Now().UTC().AddDate(0, 0, -1))
	s.applyState(ctx, tenantID, next)

	if err := s.TariffRepo.UpsertTariff(ctx, next); err != nil {
		if !ierr.IsVersionConflict(err) {
			s.Logger.Errorw("failed to persist degraded tariff",
				"tenant_id", tenantID, "error", err)
			return prior
		}
	}
	s.stableRecomputes.Delete(tenantID)
	s.cacheTariff(ctx, tenantID, next)
	return next
}

func (s *tariffService) SetTariff(ctx context.Context, tenantID string, t *tariff.Tariff, quotas []tariff.Quota) error {
	if t == nil {
		return ierr.NewError("nil tariff").
			WithHint("a tariff is required").
			Mark(ierr.ErrValidation)
	}

	next := t.Clone()
	next.TenantID = tenantID
	if quotas != nil {
		next.Quotas = quotas
	}
	next.EnsureQuotas(s.Config.Billing.DefaultQuotaID)
	s.applyState(ctx, tenantID, next)

	prior, persisted := s.loadOrDefault(ctx, tenantID)
	reference := prior
	if !persisted {
		reference = nil
	}
	if next.ValueEqual(reference) {
		return nil
	}

	if err := s.TariffRepo.UpsertTariff(ctx, next); err != nil {
		if ierr.IsVersionConflict(err) {
			s.Logger.Warnw("tariff write lost a race, no change made", "tenant_id", tenantID)
			return nil
		}
		return err
	}

	s.stableRecomputes.Delete(tenantID)
	s.invalidateDerived(ctx, tenantID)
	s.cacheTariff(ctx, tenantID, next)
	s.notifyLimitChanges(ctx, tenantID, reference, next)
	return nil
}

func (s *tariffService) DeleteTariff(ctx context.Context, tenantID string) error {
	if err := s.TariffRepo.DeleteTariff(ctx, tenantID); err != nil {
		return err
	}
	s.stableRecomputes.Delete(tenantID)
	s.Cache.Delete(ctx, cache.GenerateKey(cache.PrefixTariff, tenantID))
	s.invalidateDerived(ctx, tenantID)
	return nil
}

func (s *tariffService) ChangeSubscriptionQuantity(ctx context.Context, tenantID string, desired map[int]int, checkQuota bool) (bool, error) {
	if len(desired) == 0 {
		return false, ierr.NewError("empty quantity change").
			WithHint("at least one quota quantity is required").
			Mark(ierr.ErrValidation)
	}

	quantities := make(map[string]int, len(desired))
	for quotaID, qty := range desired {
		def, err := s.QuotaRepo.GetDefinition(ctx, quotaID)
		if err != nil {
			return false, err
		}
		if checkQuota {
			if err := s.QuotaPolicy.CheckQuota(ctx, tenantID, quota.Scale(*def, qty)); err != nil {
				return false, err
			}
		}
		quantities[def.ProductID] = qty
	}

	changed, err := s.BillingProvider.ChangeSubscription(ctx, s.portalID(ctx, tenantID), quantities)
	if err != nil {
		return false, err
	}
	if changed {
		// The provider is the source of truth now; force the next read to
		// reconcile.
		s.Cache.Delete(ctx, cache.GenerateKey(cache.PrefixTariff, tenantID))
		s.invalidateDerived(ctx, tenantID)
	}
	return changed, nil
}

func (s *tariffService) CalculatePrice(ctx context.Context, tenantID string, desired map[int]int) (decimal.Decimal, error) {
	quantities := make(map[string]int, len(desired))
	for quotaID, qty := range desired {
		def, err := s.QuotaRepo.GetDefinition(ctx, quotaID)
		if err != nil {
			return decimal.Zero, err
		}
		quantities[def.ProductID] = qty
	}
	return s.BillingProvider.CalculateSubscription(ctx, s.portalID(ctx, tenantID), quantities)
}

func (s *tariffService) GetCurrentPayments(ctx context.Context, tenantID string, forceRefresh bool) ([]billing.PaymentRow, error) {
	return s.fetchPayments(ctx, tenantID, forceRefresh)
}

func (s *tariffService) GetCustomerInfo(ctx context.Context, tenantID string) (*billing.Customer, error) {
	key := cache.GenerateKey(cache.PrefixCustomer, tenantID)
	if cached, ok := cache.GetJSON[billing.Customer](ctx, s.Cache, key); ok {
		return cached, nil
	}

	customer, err := s.BillingProvider.GetCustomerInfo(ctx, s.portalID(ctx, tenantID))
	if err != nil {
		return nil, err
	}
	s.Cache.Set(ctx, key, customer, s.Config.Cache.TariffTTL)
	return customer, nil
}

func (s *tariffService) GetPaymentURL(ctx context.Context, tenantID string, productIDs []string) (string, error) {
	return s.BillingProvider.GetPaymentURL(ctx, s.portalID(ctx, tenantID), productIDs)
}

func (s *tariffService) GetAccountLink(ctx context.Context, tenantID string, backURL string) (string, error) {
	return s.BillingProvider.GetAccountLink(ctx, s.portalID(ctx, tenantID), backURL)
}

func (s *tariffService) GetSupportedCurrencies(ctx context.Context) ([]accounting.Currency, error) {
	key := cache.GenerateKey(cache.PrefixCurrencies, "all")
	if cached, ok := cache.GetJSON[[]accounting.Currency](ctx, s.Cache, key); ok {
		return *cached, nil
	}

	currencies, err := s.AccountingProvider.GetCurrencies(ctx)
	if err != nil {
		if ierr.IsProviderNotConfigured(err) {
			return []accounting.Currency{}, nil
		}
		return nil, err
	}
	s.Cache.Set(ctx, key, &currencies, cache.DefaultExpiration)
	return currencies, nil
}

func (s *tariffService) EffectiveQuota(ctx context.Context, tenantID string) (*quota.Definition, error) {
	t, err := s.GetTariff(ctx, tenantID, DefaultGetTariffOptions())
	if err != nil {
		return nil, err
	}
	agg, err := s.aggregate(ctx, tenantID, t.Quotas, false)
	if err != nil {
		return nil, err
	}
	return agg, nil
}

func (s *tariffService) ListVisibleQuotas(ctx context.Context) ([]*quota.Definition, error) {
	defs, err := s.QuotaRepo.GetDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Filter(defs, func(def *quota.Definition, _ int) bool {
		return def.Visible
	}), nil
}

// --- internals ---

// fetchPayments loads the provider's current payments through the derived
// lookup cache.
func (s *tariffService) fetchPayments(ctx context.Context, tenantID string, force bool) ([]billing.PaymentRow, error) {
	key := cache.GenerateKey(cache.PrefixPayments, tenantID)
	if !force {
		if cached, ok := cache.GetJSON[[]billing.PaymentRow](ctx, s.Cache, key); ok {
			return *cached, nil
		}
	}

	rows, err := s.BillingProvider.GetCurrentPayments(ctx, s.portalID(ctx, tenantID), force)
	if err != nil {
		return nil, err
	}
	s.Cache.Set(ctx, key, &rows, s.Config.Cache.TariffTTL)
	return rows, nil
}

// loadOrDefault loads the persisted tariff or synthesizes the default one.
// The second return reports whether a persisted record exists.
func (s *tariffService) loadOrDefault(ctx context.Context, tenantID string) (*tariff.Tariff, bool) {
	t, err := s.TariffRepo.GetTariff(ctx, tenantID)
	if err == nil {
		t.EnsureQuotas(s.Config.Billing.DefaultQuotaID)
		return t, true
	}
	if !ierr.IsNotFound(err) {
		s.Logger.Errorw("failed to load persisted tariff, synthesizing default",
			"tenant_id", tenantID, "error", err)
	}

	def := &tariff.Tariff{
		TenantID: tenantID,
		State:    types.TariffStatePaid,
		DueDate:  types.Unbounded(),
	}
	def.EnsureQuotas(s.Config.Billing.DefaultQuotaID)
	return def, false
}

// lastKnownGood serves the best value available without the lock.
func (s *tariffService) lastKnownGood(ctx context.Context, tenantID string) (*tariff.Tariff, error) {
	key := cache.GenerateKey(cache.PrefixTariff, tenantID)
	if cached, ok := cache.GetJSON[tariff.Tariff](ctx, s.Cache, key); ok {
		return cached, nil
	}
	t, _ := s.loadOrDefault(ctx, tenantID)
	s.applyState(ctx, tenantID, t)
	return t, nil
}

// applyState runs the pure state machine against the tariff in place.
func (s *tariffService) applyState(ctx context.Context, tenantID string, t *tariff.Tariff) {
	defs := s.resolveDefinitions(ctx, t.Quotas)

	hasTrial := false
	hasLifetime := false
	for _, q := range t.Quotas {
		if def, ok := defs[q.QuotaID]; ok {
			hasTrial = hasTrial || def.Trial
			hasLifetime = hasLifetime || def.Lifetime
		}
	}

	var createdAt, versionChangedAt time.Time
	if tn, err := s.TenantRepo.GetByID(ctx, tenantID); err == nil {
		createdAt = tn.CreatedAt
		versionChangedAt = tn.VersionChangedAt
	}

	result := ComputeState(StateInput{
		DueDate:                t.DueDate,
		HasTrialQuota:          hasTrial,
		HasLifetimeQuota:       hasLifetime,
		TenantCreatedAt:        createdAt,
		TenantVersionChangedAt: versionChangedAt,
		TrialEnabled:           s.Config.Billing.TrialEnabled,
		TrialPeriodDays:        s.Config.Billing.TrialPeriodDays,
		PaymentDelayDays:       s.Config.Billing.PaymentDelayDays,
		Standalone:             s.Config.Deployment.IsStandalone(),
		Now:                    time.Now().UTC(),
	})

	t.State = result.State
	t.DueDate = result.DueDate
	t.DelayDueDate = result.DelayDueDate
}

// aggregate folds the assigned quota rows into the effective limits via the
// merge operator, optionally enforcing policy on every scaled quota.
func (s *tariffService) aggregate(ctx context.Context, tenantID string, quotas []tariff.Quota, enforcePolicy bool) (*quota.Definition, error) {
	agg := quota.ZeroQuota
	for _, q := range quotas {
		def, err := s.QuotaRepo.GetDefinition(ctx, q.QuotaID)
		if err != nil {
			if ierr.IsNotFound(err) {
				return nil, ierr.WithError(err).
					WithHintf("quota %d is not resolvable", q.QuotaID).
					Mark(ierr.ErrIntegrity)
			}
			return nil, err
		}

		scaled := quota.Scale(*def, q.Quantity)
		scaled.DueDate = q.DueDate
		if enforcePolicy {
			if err := s.QuotaPolicy.CheckQuota(ctx, tenantID, scaled); err != nil {
				return nil, err
			}
		}
		agg = quota.Combine(agg, scaled)
	}
	return &agg, nil
}

// resolveDefinitions best-effort resolves catalog definitions for quota rows.
func (s *tariffService) resolveDefinitions(ctx context.Context, quotas []tariff.Quota) map[int]*quota.Definition {
	defs := make(map[int]*quota.Definition, len(quotas))
	for _, q := range quotas {
		if _, ok := defs[q.QuotaID]; ok {
			continue
		}
		if def, err := s.QuotaRepo.GetDefinition(ctx, q.QuotaID); err == nil {
			defs[q.QuotaID] = def
		}
	}
	return defs
}

func (s *tariffService) portalID(ctx context.Context, tenantID string) string {
	if tn, err := s.TenantRepo.GetByID(ctx, tenantID); err == nil && tn.PortalID != "" {
		return tn.PortalID
	}
	return tenantID
}

func (s *tariffService) fillCustomerID(ctx context.Context, tenantID string, t *tariff.Tariff) {
	if t.CustomerID != "" {
		return
	}
	customer, err := s.GetCustomerInfo(ctx, tenantID)
	if err != nil {
		return
	}
	if customer.Email != "" {
		t.CustomerID = customer.Email
	} else {
		t.CustomerID = customer.CustomerID
	}
}

// persistAndNotify writes the changed tariff and broadcasts limit changes.
// Both are best effort with respect to the overall GetTariff call.
func (s *tariffService) persistAndNotify(ctx context.Context, tenantID string, prior, next *tariff.Tariff) {
	if err := s.TariffRepo.UpsertTariff(ctx, next); err != nil {
		if ierr.IsVersionConflict(err) {
			// The per-tenant lock makes this rare; the race loser simply
			// reports no change.
			s.Logger.Warnw("tariff write lost a race, no change made", "tenant_id", tenantID)
		} else {
			s.Logger.Errorw("failed to persist reconciled tariff",
				"tenant_id", tenantID, "error", err)
		}
	}
	s.invalidateDerived(ctx, tenantID)
	s.cacheTariff(ctx, tenantID, next)
	s.notifyLimitChanges(ctx, tenantID, prior, next)
}

// notifyLimitChanges broadcasts per-feature aggregate limit changes.
func (s *tariffService) notifyLimitChanges(ctx context.Context, tenantID string, prior, next *tariff.Tariff) {
	var priorAgg *quota.Definition
	if prior != nil {
		priorAgg, _ = s.aggregate(ctx, tenantID, prior.Quotas, false)
	}
	if priorAgg == nil {
		priorAgg = &quota.ZeroQuota
	}
	nextAgg, err := s.aggregate(ctx, tenantID, next.Quotas, false)
	if err != nil || nextAgg == nil {
		return
	}

	ctx = types.SetTenantID(ctx, tenantID)
	notify := func(feature string, old, new int64) {
		if old == new {
			return
		}
		if err := s.Notifier.NotifyResourceLimitChanged(ctx, feature, new); err != nil {
			s.Logger.Warnw("resource limit notification failed",
				"tenant_id", tenantID, "feature", feature, "error", err)
		}
	}
	notify(FeatureSeats, priorAgg.Seats, nextAgg.Seats)
	notify(FeatureStorageBytes, priorAgg.StorageBytes, nextAgg.StorageBytes)
	notify(FeatureRoomCount, priorAgg.RoomCount, nextAgg.RoomCount)
}

// cacheTariff fills the tariff cache with the (possibly adaptive) TTL.
func (s *tariffService) cacheTariff(ctx context.Context, tenantID string, t *tariff.Tariff) {
	key := cache.GenerateKey(cache.PrefixTariff, tenantID)
	s.Cache.Set(ctx, key, t, s.tariffTTL(tenantID))
}

// tariffTTL grows the baseline TTL for standalone deployments once the
// environment proves stable, up to the configured cap.
func (s *tariffService) tariffTTL(tenantID string) time.Duration {
	ttl := s.Config.Cache.TariffTTL
	if !s.Config.Deployment.IsStandalone() {
		return ttl
	}

	stable := 0
	if v, ok := s.stableRecomputes.Load(tenantID); ok {
		stable = v.(int)
	}
	grown := ttl * time.Duration(1+stable)
	if max := s.Config.Cache.MaxTariffTTL; max > 0 && grown > max {
		return max
	}
	return grown
}

func (s *tariffService) markStable(tenantID string) {
	stable := 0
	if v, ok := s.stableRecomputes.Load(tenantID); ok {
		stable = v.(int)
	}
	s.stableRecomputes.Store(tenantID, stable+1)
}

// invalidateDerived removes the derived per-tenant lookups that depend on
// quota/payment/customer/balance records.
func (s *tariffService) invalidateDerived(ctx context.Context, tenantID string) {
	s.Cache.Delete(ctx, cache.GenerateKey(cache.PrefixPayments, tenantID))
	s.Cache.Delete(ctx, cache.GenerateKey(cache.PrefixCustomer, tenantID))
	s.Cache.Delete(ctx, cache.GenerateKey(cache.PrefixBalance, tenantID))
}

// seedLicenseTrial provisions the 30 day (configurable) enterprise license
// trial scoped to the sentinel tenant record.
func (s *tariffService) seedLicenseTrial(ctx context.Context, tenantID string, current *tariff.Tariff) *tariff.Tariff {
	trialDef := s.findTrialDefinition(ctx)
	if trialDef == nil {
		return current
	}

	now := time.Now().UTC()
	next := current.Clone()
	next.TenantID = types.SentinelTenantID
	next.Quotas = []tariff.Quota{{QuotaID: trialDef.ID, Quantity: 1}}
	next.LicenseDate = types.At(now)
	next.DueDate = types.At(now.AddDate(0, 0, s.Config.Deployment.LicenseTrialDays))
	s.applyState(ctx, tenantID, next)

	if err := s.TariffRepo.UpsertTariff(ctx, next); err != nil && !ierr.IsVersionConflict(err) {
		s.Logger.Errorw("failed to persist license trial tariff",
			"tenant_id", tenantID, "error", err)
		return current
	}
	s.cacheTariff(ctx, tenantID, next)
	return next
}

func (s *tariffService) findTrialDefinition(ctx context.Context) *quota.Definition {
	defs, err := s.QuotaRepo.GetDefinitions(ctx)
	if err != nil {
		s.Logger.Errorw("failed to list quota definitions for license trial", "error", err)
		return nil
	}
	for _, def := range defs {
		if def.Trial {
			return def
		}
	}
	return nil
}

func findQuota(quotas []tariff.Quota, quotaID int) (tariff.Quota, bool) {
	return lo.Find(quotas, func(q tariff.Quota) bool { return q.QuotaID == quotaID })
}
