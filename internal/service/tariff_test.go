package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/vidinfra/tariffd/internal/billing"
	"github.com/vidinfra/tariffd/internal/cache"
	"github.com/vidinfra/tariffd/internal/domain/quota"
	"github.com/vidinfra/tariffd/internal/domain/tariff"
	ierr "github.com/vidinfra/tariffd/internal/errors"
	"github.com/vidinfra/tariffd/internal/testutil"
	"github.com/vidinfra/tariffd/internal/types"
)

type TariffServiceSuite struct {
	testutil.BaseServiceTestSuite
	service TariffService
}

func TestTariffService(t *testing.T) {
	suite.Run(t, new(TariffServiceSuite))
}

func (s *TariffServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = s.newService()
}

func (s *TariffServiceSuite) newService() TariffService {
	return NewTariffService(NewServiceParams(
		s.GetLogger(),
		s.GetConfig(),
		s.GetCache(),
		s.GetLocks(),
		s.GetStores().TariffRepo,
		s.GetStores().QuotaRepo,
		s.GetStores().TenantRepo,
		quota.NoopPolicyChecker{},
		s.GetBilling(),
		s.GetLedger(),
		s.GetNotifier(),
	))
}

func (s *TariffServiceSuite) tenantID() string {
	return types.DefaultTenantID
}

func (s *TariffServiceSuite) seedBasicQuota() {
	s.NoError(s.GetStores().QuotaRepo.SaveDefinition(s.GetContext(), &quota.Definition{
		ID: 1, Name: "basic", ProductID: "prod_basic",
		Seats: 5, StorageBytes: 100, RoomCount: 1, Visible: true,
	}))
}

func (s *TariffServiceSuite) seedDefaultQuota() {
	s.NoError(s.GetStores().QuotaRepo.SaveDefinition(s.GetContext(), &quota.Definition{
		ID: s.GetConfig().Billing.DefaultQuotaID, Name: "default", Seats: 1, Free: true,
	}))
}

func (s *TariffServiceSuite) configureBilling() {
	s.GetConfig().Billing.APIURL = "http://billing.local"
}

func (s *TariffServiceSuite) TestDefaultTariffWhenBillingNotConfigured() {
	t, err := s.service.GetTariff(s.GetContext(), s.tenantID(), DefaultGetTariffOptions())
	s.NoError(err)
	s.Require().NotNil(t)

	s.Equal(types.TariffStatePaid, t.State)
	s.True(t.DueDate.IsUnbounded())
	s.Require().Len(t.Quotas, 1)
	s.Equal(s.GetConfig().Billing.DefaultQuotaID, t.Quotas[0].QuotaID)

	// No provider contact happened
	s.EqualValues(0, s.GetBilling().PaymentCalls.Load())
}

func (s *TariffServiceSuite) TestReconcileFromProvider() {
	s.configureBilling()
	s.seedBasicQuota()

	end := s.GetNow().AddDate(0, 0, 30)
	s.GetBilling().SetPayments([]billing.PaymentRow{{
		PaymentID: "pay_1", RecordID: 42, ProductID: "prod_basic",
		Quantity: 2, StartDate: s.GetNow().AddDate(0, 0, -1), EndDate: end,
	}})

	t, err := s.service.GetTariff(s.GetContext(), s.tenantID(), DefaultGetTariffOptions())
	s.NoError(err)

	s.Equal(42, t.ID)
	s.Equal(types.TariffStatePaid, t.State)
	s.True(t.DueDate.Equal(types.At(end)))
	s.Require().Len(t.Quotas, 1)
	s.Equal(1, t.Quotas[0].QuotaID)
	s.Equal(2, t.Quotas[0].Quantity)

	// Persisted
	stored, err := s.GetStores().TariffRepo.GetTariff(s.GetContext(), s.tenantID())
	s.NoError(err)
	s.True(t.ValueEqual(stored))

	// Changed limits were broadcast
	byFeature := map[string]int64{}
	for _, ev := range s.GetNotifier().Events() {
		byFeature[ev.Feature] = ev.NewValue
	}
	s.EqualValues(10, byFeature[FeatureSeats])
	s.EqualValues(200, byFeature[FeatureStorageBytes])
}

func (s *TariffServiceSuite) TestConcurrentGetTariffRecomputesOnce() {
	s.configureBilling()
	s.seedBasicQuota()
	s.GetBilling().SetPayments([]billing.PaymentRow{{
		PaymentID: "pay_1", RecordID: 7, ProductID: "prod_basic",
		Quantity: 1, EndDate: s.GetNow().AddDate(0, 0, 30),
	}})

	const callers = 25
	results := make([]*tariff.Tariff, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			t, err := s.service.GetTariff(s.GetContext(), s.tenantID(), DefaultGetTariffOptions())
			s.NoError(err)
			results[i] = t
		}()
	}
	wg.Wait()

	// Exactly one provider round trip served all callers
	s.EqualValues(1, s.GetBilling().PaymentCalls.Load())
	for _, t := range results {
		s.Require().NotNil(t)
		s.Equal(7, t.ID)
	}
}

func (s *TariffServiceSuite) TestCachedReadSkipsProvider() {
	s.configureBilling()
	s.seedBasicQuota()
	s.GetBilling().SetPayments([]billing.PaymentRow{{
		PaymentID: "pay_1", RecordID: 7, ProductID: "prod_basic",
		Quantity: 1, EndDate: s.GetNow().AddDate(0, 0, 30),
	}})

	_, err := s.service.GetTariff(s.GetContext(), s.tenantID(), DefaultGetTariffOptions())
	s.NoError(err)
	calls := s.GetBilling().PaymentCalls.Load()

	_, err = s.service.GetTariff(s.GetContext(), s.tenantID(), DefaultGetTariffOptions())
	s.NoError(err)
	s.Equal(calls, s.GetBilling().PaymentCalls.Load())
}

func (s *TariffServiceSuite) TestTransientProviderErrorKeepsLastKnownGood() {
	s.configureBilling()
	s.seedBasicQuota()

	prior := &tariff.Tariff{
		ID: 10, TenantID: s.tenantID(),
		DueDate: types.At(s.GetNow().AddDate(0, 0, 10)),
		Quotas:  []tariff.Quota{{QuotaID: 1, Quantity: 1}},
	}
	s.NoError(s.GetStores().TariffRepo.UpsertTariff(s.GetContext(), prior))
	writes := s.GetStores().TariffRepo.Upserts

	s.GetBilling().SetErr(ierr.NewError("connection refused").
		WithHint("billing provider unreachable").
		Mark(ierr.ErrHTTPClient))

	t, err := s.service.GetTariff(s.GetContext(), s.tenantID(), DefaultGetTariffOptions())
	s.NoError(err)

	s.Equal(10, t.ID)
	s.True(t.DueDate.Equal(prior.DueDate))
	s.Equal(types.TariffStatePaid, t.State)
	s.Equal(writes, s.GetStores().TariffRepo.Upserts)
}

func (s *TariffServiceSuite) TestProviderNotFoundDegradesPaidTenant() {
	s.configureBilling()
	s.seedBasicQuota()

	prior := &tariff.Tariff{
		ID: 10, TenantID: s.tenantID(),
		DueDate: types.At(s.GetNow().AddDate(0, 0, 10)),
		Quotas:  []tariff.Quota{{QuotaID: 1, Quantity: 1}},
	}
	s.NoError(s.GetStores().TariffRepo.UpsertTariff(s.GetContext(), prior))

	// Provider reports no active payments at all
	s.GetBilling().SetPayments(nil)

	t, err := s.service.GetTariff(s.GetContext(), s.tenantID(), DefaultGetTariffOptions())
	s.NoError(err)

	// Due date pushed one day into the past rather than hard failure
	s.True(t.DueDate.Before(s.GetNow()))
	s.False(t.DueDate.Before(s.GetNow().AddDate(0, 0, -2)))
	s.Equal(types.TariffStateNotPaid, t.State)

	stored, err := s.GetStores().TariffRepo.GetTariff(s.GetContext(), s.tenantID())
	s.NoError(err)
	s.True(stored.DueDate.Equal(t.DueDate))
}

func (s *TariffServiceSuite) TestProviderNotFoundLeavesFreePlanAlone() {
	s.configureBilling()
	s.NoError(s.GetStores().QuotaRepo.SaveDefinition(s.GetContext(), &quota.Definition{
		ID: 3, Name: "community", Free: true, Seats: 1,
	}))

	prior := &tariff.Tariff{
		ID: 10, TenantID: s.tenantID(),
		DueDate: types.Unbounded(),
		Quotas:  []tariff.Quota{{QuotaID: 3, Quantity: 1}},
	}
	s.NoError(s.GetStores().TariffRepo.UpsertTariff(s.GetContext(), prior))
	writes := s.GetStores().TariffRepo.Upserts

	t, err := s.service.GetTariff(s.GetContext(), s.tenantID(), DefaultGetTariffOptions())
	s.NoError(err)

	s.True(t.DueDate.IsUnbounded())
	s.Equal(types.TariffStatePaid, t.State)
	s.Equal(writes, s.GetStores().TariffRepo.Upserts)
}

func (s *TariffServiceSuite) TestMissingProductMappingRetainsPrior() {
	s.configureBilling()
	s.seedBasicQuota()

	prior := &tariff.Tariff{
		ID: 10, TenantID: s.tenantID(),
		DueDate: types.At(s.GetNow().AddDate(0, 0, 10)),
		Quotas:  []tariff.Quota{{QuotaID: 1, Quantity: 1}},
	}
	s.NoError(s.GetStores().TariffRepo.UpsertTariff(s.GetContext(), prior))
	writes := s.GetStores().TariffRepo.Upserts

	s.GetBilling().SetPayments([]billing.PaymentRow{{
		PaymentID: "pay_x", RecordID: 50, ProductID: "prod_unmapped",
		Quantity: 1, EndDate: s.GetNow().AddDate(0, 0, 30),
	}})

	t, err := s.service.GetTariff(s.GetContext(), s.tenantID(), DefaultGetTariffOptions())
	s.NoError(err)

	// Configuration errors never replace the last good tariff
	s.Equal(10, t.ID)
	s.True(t.DueDate.Equal(prior.DueDate))
	s.Equal(writes, s.GetStores().TariffRepo.Upserts)
}

func (s *TariffServiceSuite) TestWalletOnlyPaymentsDegradePaidPlan() {
	s.configureBilling()
	s.seedBasicQuota()
	s.NoError(s.GetStores().QuotaRepo.SaveDefinition(s.GetContext(), &quota.Definition{
		ID: 2, Name: "wallet", ProductID: "prod_wallet", Wallet: true,
	}))

	prior := &tariff.Tariff{
		ID: 10, TenantID: s.tenantID(),
		DueDate: types.At(s.GetNow().AddDate(0, 0, 10)),
		Quotas:  []tariff.Quota{{QuotaID: 1, Quantity: 1}},
	}
	s.NoError(s.GetStores().TariffRepo.UpsertTariff(s.GetContext(), prior))

	s.GetBilling().SetPayments([]billing.PaymentRow{{
		PaymentID: "pay_w", RecordID: 60, ProductID: "prod_wallet",
		Quantity: 1, EndDate: s.GetNow().AddDate(0, 0, 30),
	}})

	t, err := s.service.GetTariff(s.GetContext(), s.tenantID(), DefaultGetTariffOptions())
	s.NoError(err)

	// Wallet data must not silently replace the paid subscription
	s.Equal(10, t.ID)
	s.True(t.DueDate.Before(s.GetNow()))
	s.Equal(types.TariffStateNotPaid, t.State)
}

func (s *TariffServiceSuite) TestWalletOnlyPaymentsSeedFreshTenant() {
	s.configureBilling()
	s.seedDefaultQuota()
	s.NoError(s.GetStores().QuotaRepo.SaveDefinition(s.GetContext(), &quota.Definition{
		ID: 2, Name: "wallet", ProductID: "prod_wallet", Wallet: true,
	}))

	end := s.GetNow().AddDate(0, 0, 30)
	s.GetBilling().SetPayments([]billing.PaymentRow{{
		PaymentID: "pay_w", RecordID: 60, ProductID: "prod_wallet",
		Quantity: 1, EndDate: end,
	}})

	t, err := s.service.GetTariff(s.GetContext(), s.tenantID(), DefaultGetTariffOptions())
	s.NoError(err)

	s.Require().Len(t.Quotas, 2)
	var wallet, placeholder *tariff.Quota
	for i := range t.Quotas {
		if t.Quotas[i].IsWallet {
			wallet = &t.Quotas[i]
		} else {
			placeholder = &t.Quotas[i]
		}
	}
	s.Require().NotNil(wallet)
	s.Require().NotNil(placeholder)
	s.True(wallet.DueDate.Equal(types.At(end)))
	s.Equal(s.GetConfig().Billing.DefaultQuotaID, placeholder.QuotaID)

	// No non-wallet payment means no subscription due date
	s.True(t.DueDate.IsUnbounded())
}

func (s *TariffServiceSuite) TestSetTariffPersistsAndCaches() {
	s.seedBasicQuota()

	next := &tariff.Tariff{
		ID:      5,
		DueDate: types.At(s.GetNow().AddDate(0, 0, 15)),
		Quotas:  []tariff.Quota{{QuotaID: 1, Quantity: 3}},
	}
	s.NoError(s.service.SetTariff(s.GetContext(), s.tenantID(), next, nil))

	stored, err := s.GetStores().TariffRepo.GetTariff(s.GetContext(), s.tenantID())
	s.NoError(err)
	s.True(stored.DueDate.Equal(next.DueDate))

	// Subsequent reads are served from cache with the same value
	got, err := s.service.GetTariff(s.GetContext(), s.tenantID(), GetTariffOptions{})
	s.NoError(err)
	s.True(got.ValueEqual(stored))

	// A value-equal write is skipped
	writes := s.GetStores().TariffRepo.Upserts
	s.NoError(s.service.SetTariff(s.GetContext(), s.tenantID(), next, nil))
	s.Equal(writes, s.GetStores().TariffRepo.Upserts)
}

func (s *TariffServiceSuite) TestSetTariffNilIsValidationError() {
	err := s.service.SetTariff(s.GetContext(), s.tenantID(), nil, nil)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *TariffServiceSuite) TestDeleteTariff() {
	s.seedBasicQuota()
	next := &tariff.Tariff{
		DueDate: types.At(s.GetNow().AddDate(0, 0, 15)),
		Quotas:  []tariff.Quota{{QuotaID: 1, Quantity: 1}},
	}
	s.NoError(s.service.SetTariff(s.GetContext(), s.tenantID(), next, nil))

	s.NoError(s.service.DeleteTariff(s.GetContext(), s.tenantID()))

	_, err := s.GetStores().TariffRepo.GetTariff(s.GetContext(), s.tenantID())
	s.True(ierr.IsNotFound(err))

	// Reads fall back to the default tariff
	t, err := s.service.GetTariff(s.GetContext(), s.tenantID(), GetTariffOptions{})
	s.NoError(err)
	s.True(t.DueDate.IsUnbounded())
}

func (s *TariffServiceSuite) TestChangeSubscriptionQuantity() {
	s.configureBilling()
	s.seedBasicQuota()

	changed, err := s.service.ChangeSubscriptionQuantity(s.GetContext(), s.tenantID(), map[int]int{1: 3}, true)
	s.NoError(err)
	s.True(changed)

	s.Require().Len(s.GetBilling().QuantityChanges, 1)
	s.Equal(map[string]int{"prod_basic": 3}, s.GetBilling().QuantityChanges[0])

	// The tariff cache was invalidated so the next read reconciles
	key := cache.GenerateKey(cache.PrefixTariff, s.tenantID())
	_, found := s.GetCache().Get(s.GetContext(), key)
	s.False(found)
}

func (s *TariffServiceSuite) TestChangeSubscriptionQuantityEmptyIsError() {
	_, err := s.service.ChangeSubscriptionQuantity(s.GetContext(), s.tenantID(), nil, false)
	s.True(ierr.IsValidation(err))
}

func (s *TariffServiceSuite) TestGetSupportedCurrenciesUnconfigured() {
	s.GetLedger().Err = ierr.NewError("no endpoint").
		WithHint("accounting provider not configured").
		Mark(ierr.ErrProviderNotConfigured)

	currencies, err := s.service.GetSupportedCurrencies(s.GetContext())
	s.NoError(err)
	s.Empty(currencies)
}

func (s *TariffServiceSuite) TestEnterpriseLicenseSeedsTrial() {
	s.GetConfig().Deployment.EnterpriseLicense = true
	s.NoError(s.GetStores().QuotaRepo.SaveDefinition(s.GetContext(), &quota.Definition{
		ID: 99, Name: "license-trial", Trial: true, Seats: 10,
	}))

	t, err := s.service.GetTariff(s.GetContext(), s.tenantID(), DefaultGetTariffOptions())
	s.NoError(err)

	s.Equal(types.SentinelTenantID, t.TenantID)
	s.Require().Len(t.Quotas, 1)
	s.Equal(99, t.Quotas[0].QuotaID)
	s.True(t.LicenseDate.IsBounded())
	s.True(t.DueDate.IsBounded())

	expected := s.GetNow().AddDate(0, 0, s.GetConfig().Deployment.LicenseTrialDays)
	s.WithinDuration(expected, t.DueDate.Time(), time.Minute)
}

func (s *TariffServiceSuite) TestAdaptiveTTLGrowsWhenStandalone() {
	s.GetConfig().Deployment.Mode = types.ModeStandalone
	svc := s.newService().(*tariffService)

	base := s.GetConfig().Cache.TariffTTL
	s.Equal(base, svc.tariffTTL(s.tenantID()))

	svc.markStable(s.tenantID())
	s.Equal(2*base, svc.tariffTTL(s.tenantID()))

	// Growth is capped at the configured maximum
	for i := 0; i < 10; i++ {
		svc.markStable(s.tenantID())
	}
	s.Equal(s.GetConfig().Cache.MaxTariffTTL, svc.tariffTTL(s.tenantID()))
}

func (s *TariffServiceSuite) TestEffectiveQuotaAggregates() {
	s.seedBasicQuota()
	s.NoError(s.GetStores().QuotaRepo.SaveDefinition(s.GetContext(), &quota.Definition{
		ID: 4, Name: "addon", Seats: 2, StorageBytes: 50,
	}))

	next := &tariff.Tariff{
		DueDate: types.At(s.GetNow().AddDate(0, 0, 15)),
		Quotas: []tariff.Quota{
			{QuotaID: 1, Quantity: 2},
			{QuotaID: 4, Quantity: 1},
		},
	}
	s.NoError(s.service.SetTariff(s.GetContext(), s.tenantID(), next, nil))

	agg, err := s.service.EffectiveQuota(s.GetContext(), s.tenantID())
	s.NoError(err)
	s.EqualValues(12, agg.Seats)
	s.EqualValues(250, agg.StorageBytes)
}
