package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/vidinfra/tariffd/internal/cache"
	"github.com/vidinfra/tariffd/internal/config"
	"github.com/vidinfra/tariffd/internal/lock"
	"github.com/vidinfra/tariffd/internal/logger"
	"github.com/vidinfra/tariffd/internal/types"
)

// Stores holds all the repository test doubles.
type Stores struct {
	TariffRepo *InMemoryTariffStore
	QuotaRepo  *InMemoryQuotaStore
	TenantRepo *InMemoryTenantStore
}

// BaseServiceTestSuite provides common functionality for service test suites.
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores

	cache    cache.Cache
	locks    lock.Provider
	logger   *logger.Logger
	config   *config.Configuration
	billing  *StubBillingProvider
	ledger   *StubAccountingProvider
	notifier *InMemoryNotifier
	now      time.Time
}

func (s *BaseServiceTestSuite) SetupSuite() {
	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelError

	log, err := logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}

	s.logger = log
	s.config = cfg
}

func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.now = time.Now().UTC()

	// Fresh config per test so billing/deployment tweaks do not leak
	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelError
	s.config = cfg

	s.stores = Stores{
		TariffRepo: NewInMemoryTariffStore(),
		QuotaRepo:  NewInMemoryQuotaStore(),
		TenantRepo: NewInMemoryTenantStore(),
	}

	s.cache = cache.NewInMemoryCache(s.config)
	s.locks = lock.NewLocalProvider()
	s.billing = NewStubBillingProvider()
	s.ledger = NewStubAccountingProvider()
	s.notifier = NewInMemoryNotifier()
}

func (s *BaseServiceTestSuite) TearDownTest() {
	s.stores.TariffRepo.Clear()
	s.stores.QuotaRepo.Clear()
	s.stores.TenantRepo.Clear()
	s.cache.Flush(s.ctx)
	s.notifier.Clear()
}

func (s *BaseServiceTestSuite) GetContext() context.Context    { return s.ctx }
func (s *BaseServiceTestSuite) GetStores() Stores              { return s.stores }
func (s *BaseServiceTestSuite) GetCache() cache.Cache          { return s.cache }
func (s *BaseServiceTestSuite) GetLocks() lock.Provider        { return s.locks }
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger      { return s.logger }
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}
func (s *BaseServiceTestSuite) GetBilling() *StubBillingProvider    { return s.billing }
func (s *BaseServiceTestSuite) GetLedger() *StubAccountingProvider  { return s.ledger }
func (s *BaseServiceTestSuite) GetNotifier() *InMemoryNotifier      { return s.notifier }
func (s *BaseServiceTestSuite) GetNow() time.Time                   { return s.now }
