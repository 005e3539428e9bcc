package plans

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"saas-starter/internal/domain/plans"
	stripeinfra "saas-starter/internal/infra/stripe"
)

// PriceLister is implemented by the Stripe client.
type PriceLister interface {
	ListRecurringPrices(ctx context.Context) ([]stripeinfra.Price, error)
}

type Handler struct {
	registry *plans.Registry
	prices   PriceLister
	log      logrus.FieldLogger
}

func NewHandler(registry *plans.Registry, prices PriceLister, log logrus.FieldLogger) *Handler {
	return &Handler{registry: registry, prices: prices, log: log.WithField("component", "plans_api")}
}

// GET /api/plans
func (h *Handler) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.All())
}

type priceCheck struct {
	Plan       plans.Key `json:"plan"`
	PriceID    string    `json:"price_id"`
	Found      bool      `json:"found"`
	Active     bool      `json:"active"`
	UnitAmount int64     `json:"unit_amount"`
	Currency   string    `json:"currency,omitempty"`
	Interval   string    `json:"interval,omitempty"`
	Matches    bool      `json:"matches"`
}

// GET /api/admin/plans/price-check
// Compares the configured price ids with what Stripe actually bills.
func (h *Handler) CheckStripePrices(c *gin.Context) {
	remote, err := h.prices.ListRecurringPrices(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("listing stripe prices failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch Stripe prices"})
		return
	}

	byID := make(map[string]stripeinfra.Price, len(remote))
	for _, p := range remote {
		byID[p.ID] = p
	}

	checks := []priceCheck{}
	allMatch := true
	for _, p := range h.registry.All() {
		if !p.Purchasable {
			continue
		}
		check := priceCheck{Plan: p.Key, PriceID: p.StripePrice}
		if rp, ok := byID[p.StripePrice]; ok {
			check.Found = true
			check.Active = rp.Active
			check.UnitAmount = rp.UnitAmount
			check.Currency = rp.Currency
			check.Interval = rp.Interval
			check.Matches = rp.Active && rp.UnitAmount == p.PriceCents && rp.Interval == p.Interval
		}
		if !check.Matches {
			allMatch = false
			h.log.WithFields(logrus.Fields{"plan": p.Key, "price_id": p.StripePrice}).Warn("stripe price does not match plan")
		}
		checks = append(checks, check)
	}

	c.JSON(http.StatusOK, gin.H{"ok": allMatch, "plans": checks})
}
