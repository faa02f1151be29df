package api

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/vidinfra/tariffd/internal/api/v1"
	"github.com/vidinfra/tariffd/internal/rest/middleware"
)

type Handlers struct {
	Health *v1.HealthHandler
	Tariff *v1.TariffHandler
}

func NewRouter(handlers Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.RequestIDMiddleware)

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1", middleware.TenantMiddleware, middleware.ErrorHandler())
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	tenant := router.Group("/tenants/:id")
	{
		tenant.GET("/tariff", handlers.Tariff.GetTariff)
		tenant.PUT("/tariff", handlers.Tariff.SetTariff)
		tenant.DELETE("/tariff", handlers.Tariff.DeleteTariff)
		tenant.GET("/tariff/limits", handlers.Tariff.GetLimits)
		tenant.GET("/payments", handlers.Tariff.GetPayments)
		tenant.POST("/subscription/quantity", handlers.Tariff.ChangeQuantity)
		tenant.POST("/subscription/price", handlers.Tariff.CalculatePrice)
		tenant.GET("/customer", handlers.Tariff.GetCustomer)
		tenant.POST("/payment-url", handlers.Tariff.GetPaymentURL)
		tenant.POST("/account-link", handlers.Tariff.GetAccountLink)
	}

	// Self-scoped aliases resolve the tenant from the request context.
	tariff := router.Group("/tariff")
	{
		tariff.GET("", handlers.Tariff.GetTariff)
		tariff.PUT("", handlers.Tariff.SetTariff)
		tariff.DELETE("", handlers.Tariff.DeleteTariff)
		tariff.GET("/limits", handlers.Tariff.GetLimits)
	}

	router.GET("/quotas", handlers.Tariff.ListQuotas)
	router.GET("/currencies", handlers.Tariff.GetCurrencies)
	router.GET("/billing/status", handlers.Tariff.GetBillingStatus)
}
