package service

import (
	"github.com/vidinfra/tariffd/internal/accounting"
	"github.com/vidinfra/tariffd/internal/billing"
	"github.com/vidinfra/tariffd/internal/cache"
	"github.com/vidinfra/tariffd/internal/config"
	"github.com/vidinfra/tariffd/internal/domain/quota"
	"github.com/vidinfra/tariffd/internal/domain/tariff"
	"github.com/vidinfra/tariffd/internal/domain/tenant"
	"github.com/vidinfra/tariffd/internal/lock"
	"github.com/vidinfra/tariffd/internal/logger"
	"github.com/vidinfra/tariffd/internal/notifier"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration

	Cache cache.Cache
	Locks lock.Provider

	// Repositories
	TariffRepo tariff.Repository
	QuotaRepo  quota.Repository
	TenantRepo tenant.Repository

	// Collaborators
	QuotaPolicy        quota.PolicyChecker
	BillingProvider    billing.Provider
	AccountingProvider accounting.Provider
	Notifier           notifier.ChangeNotifier
}

// NewServiceParams assembles the common service dependencies
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	cache cache.Cache,
	locks lock.Provider,
	tariffRepo tariff.Repository,
	quotaRepo quota.Repository,
	tenantRepo tenant.Repository,
	quotaPolicy quota.PolicyChecker,
	billingProvider billing.Provider,
	accountingProvider accounting.Provider,
	changeNotifier notifier.ChangeNotifier,
) ServiceParams {
	return ServiceParams{
		Logger:             logger,
		Config:             config,
		Cache:              cache,
		Locks:              locks,
		TariffRepo:         tariffRepo,
		QuotaRepo:          quotaRepo,
		TenantRepo:         tenantRepo,
		QuotaPolicy:        quotaPolicy,
		BillingProvider:    billingProvider,
		AccountingProvider: accountingProvider,
		Notifier:           changeNotifier,
	}
}
