package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidinfra/tariffd/internal/api/dto"
	ierr "github.com/vidinfra/tariffd/internal/errors"
	"github.com/vidinfra/tariffd/internal/logger"
	"github.com/vidinfra/tariffd/internal/service"
	"github.com/vidinfra/tariffd/internal/types"
)

type TariffHandler struct {
	service service.TariffService
	log     *logger.Logger
}

func NewTariffHandler(service service.TariffService, log *logger.Logger) *TariffHandler {
	return &TariffHandler{service: service, log: log}
}

// tenantFrom resolves the target tenant: the path parameter for tenant-scoped
// routes, the authenticated tenant from the request context otherwise.
func tenantFrom(c *gin.Context) string {
	if id := c.Param("id"); id != "" {
		return id
	}
	return types.GetTenantID(c.Request.Context())
}

// GetTariff returns the acting tenant's current tariff. `force=true` bypasses
// the cache, `refresh=false` skips provider reconciliation.
func (h *TariffHandler) GetTariff(c *gin.Context) {
	opts := service.DefaultGetTariffOptions()
	if c.Query("force") == "true" {
		opts.Force = true
	}
	if c.Query("refresh") == "false" {
		opts.WithRefresh = false
	}

	t, err := h.service.GetTariff(c.Request.Context(), tenantFrom(c), opts)
	if err != nil {
		h.log.Error("Failed to get tariff", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewTariffResponse(t))
}

func (h *TariffHandler) SetTariff(c *gin.Context) {
	var req dto.SetTariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	tenantID := tenantFrom(c)
	if err := h.service.SetTariff(c.Request.Context(), tenantID, req.ToTariff(), req.Quotas); err != nil {
		h.log.Error("Failed to set tariff", "error", err)
		c.Error(err)
		return
	}

	opts := service.DefaultGetTariffOptions()
	opts.Force = true
	opts.WithRefresh = false
	t, err := h.service.GetTariff(c.Request.Context(), tenantID, opts)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTariffResponse(t))
}

func (h *TariffHandler) DeleteTariff(c *gin.Context) {
	tenantID := tenantFrom(c)
	if err := h.service.DeleteTariff(c.Request.Context(), tenantID); err != nil {
		h.log.Error("Failed to delete tariff", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// GetLimits returns the tenant's aggregated effective quota.
func (h *TariffHandler) GetLimits(c *gin.Context) {
	agg, err := h.service.EffectiveQuota(c.Request.Context(), tenantFrom(c))
	if err != nil {
		h.log.Error("Failed to compute effective quota", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewLimitsResponse(agg))
}

func (h *TariffHandler) GetPayments(c *gin.Context) {
	force := c.Query("force") == "true"
	rows, err := h.service.GetCurrentPayments(c.Request.Context(), tenantFrom(c), force)
	if err != nil {
		h.log.Error("Failed to list payments", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.PaymentsResponse{Payments: rows})
}

func (h *TariffHandler) ChangeQuantity(c *gin.Context) {
	var req dto.ChangeQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	changed, err := h.service.ChangeSubscriptionQuantity(
		c.Request.Context(), tenantFrom(c), req.Quantities, req.CheckQuota)
	if err != nil {
		h.log.Error("Failed to change subscription quantity", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.ChangeQuantityResponse{Changed: changed})
}

func (h *TariffHandler) CalculatePrice(c *gin.Context) {
	var req dto.CalculatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	price, err := h.service.CalculatePrice(c.Request.Context(), tenantFrom(c), req.Quantities)
	if err != nil {
		h.log.Error("Failed to calculate price", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.PriceResponse{Price: price})
}

func (h *TariffHandler) GetCustomer(c *gin.Context) {
	customer, err := h.service.GetCustomerInfo(c.Request.Context(), tenantFrom(c))
	if err != nil {
		h.log.Error("Failed to get customer info", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *TariffHandler) GetPaymentURL(c *gin.Context) {
	var req dto.PaymentURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	url, err := h.service.GetPaymentURL(c.Request.Context(), tenantFrom(c), req.ProductIDs)
	if err != nil {
		h.log.Error("Failed to get payment url", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.LinkResponse{URL: url})
}

func (h *TariffHandler) GetAccountLink(c *gin.Context) {
	var req dto.AccountLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	url, err := h.service.GetAccountLink(c.Request.Context(), tenantFrom(c), req.BackURL)
	if err != nil {
		h.log.Error("Failed to get account link", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.LinkResponse{URL: url})
}

// ListQuotas returns the catalog entries offered for plan selection.
func (h *TariffHandler) ListQuotas(c *gin.Context) {
	defs, err := h.service.ListVisibleQuotas(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to list quota definitions", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotas": defs})
}

func (h *TariffHandler) GetCurrencies(c *gin.Context) {
	currencies, err := h.service.GetSupportedCurrencies(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to list currencies", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"currencies": currencies})
}

func (h *TariffHandler) GetBillingStatus(c *gin.Context) {
	c.JSON(http.StatusOK, dto.BillingStatusResponse{Configured: h.service.IsBillingConfigured()})
}
