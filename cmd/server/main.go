package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/vidinfra/tariffd/internal/accounting"
	"github.com/vidinfra/tariffd/internal/api"
	v1 "github.com/vidinfra/tariffd/internal/api/v1"
	"github.com/vidinfra/tariffd/internal/billing"
	"github.com/vidinfra/tariffd/internal/cache"
	"github.com/vidinfra/tariffd/internal/config"
	"github.com/vidinfra/tariffd/internal/domain/quota"
	"github.com/vidinfra/tariffd/internal/httpclient"
	"github.com/vidinfra/tariffd/internal/lock"
	"github.com/vidinfra/tariffd/internal/logger"
	"github.com/vidinfra/tariffd/internal/notifier"
	"github.com/vidinfra/tariffd/internal/pubsub"
	pubsubMemory "github.com/vidinfra/tariffd/internal/pubsub/memory"
	"github.com/vidinfra/tariffd/internal/repository/postgres"
	"github.com/vidinfra/tariffd/internal/service"
	"github.com/vidinfra/tariffd/internal/types"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	app := fx.New(
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// HTTP Client
			httpclient.NewDefaultClient,

			// Postgres
			postgres.NewDB,

			// Repositories
			postgres.NewTariffRepository,
			postgres.NewQuotaRepository,
			postgres.NewTenantRepository,

			// Cache and locks
			provideCache,
			provideLocks,

			// Providers
			billing.NewHTTPProvider,
			accounting.NewHTTPProvider,

			// PubSub and change notification
			pubsubMemory.NewPubSub,
			providePublisher,
			notifier.NewPubSubNotifier,

			// Quota policy
			provideQuotaPolicy,

			// Service layer
			service.NewServiceParams,
			service.NewTariffService,

			// API
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(startServer),
	)
	app.Run()
}

// provideCache picks the cache backend: SaaS deployments share state through
// Redis, local and standalone installations run in process.
func provideCache(cfg *config.Configuration, log *logger.Logger) cache.Cache {
	if cfg.Deployment.Mode == types.ModeSaaS {
		return cache.NewRedisCache(cache.NewRedisClient(cfg), cfg, log)
	}
	return cache.NewInMemoryCache(cfg)
}

// provideLocks mirrors the cache backend choice for the fair lock provider.
func provideLocks(cfg *config.Configuration, log *logger.Logger) lock.Provider {
	if cfg.Deployment.Mode == types.ModeSaaS {
		return lock.NewRedisProvider(cache.NewRedisClient(cfg), log)
	}
	return lock.NewLocalProvider()
}

func providePublisher(ps pubsub.PubSub) pubsub.Publisher {
	return ps
}

func provideQuotaPolicy() quota.PolicyChecker {
	return quota.NoopPolicyChecker{}
}

func provideHandlers(
	logger *logger.Logger,
	tariffService service.TariffService,
) api.Handlers {
	return api.Handlers{
		Health: v1.NewHealthHandler(logger),
		Tariff: v1.NewTariffHandler(tariffService, logger),
	}
}

func provideRouter(handlers api.Handlers) *gin.Engine {
	return api.NewRouter(handlers)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	log *logger.Logger,
) {
	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Infow("starting server", "address", cfg.Server.Address, "mode", cfg.Deployment.Mode)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalw("server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}
