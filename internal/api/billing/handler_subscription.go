package billing

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"saas-starter/internal/app/http/middleware"
	"saas-starter/internal/domain/access"
	"saas-starter/internal/domain/billing"
	"saas-starter/internal/domain/plans"
)

type subscriptionResponse struct {
	Plan               plans.Key                  `json:"plan"`
	PlanName           string                     `json:"plan_name"`
	Status             billing.SubscriptionStatus `json:"status"`
	CurrentPeriodStart *time.Time                 `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time                 `json:"current_period_end"`
	HasBillingCustomer bool                       `json:"has_billing_customer"`
	Access             access.Policy              `json:"access"`
}

// GET /api/billing/subscription
func (h *Handler) GetSubscription(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		h.fail(c, ErrUnauthenticated)
		return
	}

	sub, err := h.repo.FindSubscription(c.Request.Context(), user.ID)
	if err != nil && !errors.Is(err, billing.ErrNotFound) {
		h.fail(c, err)
		return
	}

	resp := subscriptionResponse{
		Plan:   plans.Free,
		Status: billing.StatusIncomplete,
		Access: access.ComputePolicy(time.Now(), sub, h.registry),
	}
	if sub != nil {
		resp.Plan = sub.Plan
		resp.Status = sub.Status
		resp.CurrentPeriodStart = sub.CurrentPeriodStart
		resp.CurrentPeriodEnd = sub.CurrentPeriodEnd
		resp.HasBillingCustomer = sub.CustomerID() != ""
	}
	resp.PlanName = billing.PlanDisplayName(resp.Plan)

	c.JSON(http.StatusOK, resp)
}

// GET /api/billing/invoices
func (h *Handler) GetInvoices(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		h.fail(c, ErrUnauthenticated)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	invoices, err := h.repo.ListInvoices(c.Request.Context(), user.ID, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	if invoices == nil {
		invoices = []billing.Invoice{}
	}

	c.JSON(http.StatusOK, invoices)
}
