package users

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"saas-starter/internal/app/http/middleware"
	"saas-starter/internal/domain/access"
	"saas-starter/internal/domain/billing"
	"saas-starter/internal/domain/plans"
)

type Handler struct {
	repo     billing.Repository
	registry *plans.Registry
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewHandler(repo billing.Repository, registry *plans.Registry, log logrus.FieldLogger) *Handler {
	return &Handler{repo: repo, registry: registry, log: log.WithField("component", "users_api"), now: time.Now}
}

// GET /api/me
func (h *Handler) GetCurrentUser(c *gin.Context) {
	session := middleware.CurrentUser(c)
	if session == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	ctx := c.Request.Context()

	profile, err := h.repo.FindProfile(ctx, session.ID)
	if errors.Is(err, billing.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		h.log.WithError(err).Error("loading profile failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong. Please try again."})
		return
	}

	sub, err := h.repo.FindSubscription(ctx, session.ID)
	if err != nil && !errors.Is(err, billing.ErrNotFound) {
		h.log.WithError(err).Error("loading subscription failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong. Please try again."})
		return
	}

	now := h.now()
	policy := access.ComputePolicy(now, sub, h.registry)

	c.JSON(http.StatusOK, MeResponse{
		User: UserDTO{
			ID:        profile.ID,
			Email:     profile.Email,
			Name:      profile.DisplayName(),
			AvatarURL: profile.AvatarURL,
			Role:      profile.Role,
			HasGoogle: profile.GoogleSub != nil,
		},
		Billing: BillingDTO{
			Plan:         h.buildPlanDTO(policy.Plan),
			Subscription: buildSubscriptionDTO(now, sub),
		},
		Access: policy,
	})
}

func (h *Handler) buildPlanDTO(k plans.Key) PlanDTO {
	p, ok := h.registry.For(k)
	if !ok {
		p, _ = h.registry.For(plans.Free)
	}
	return PlanDTO{
		Key:        string(p.Key),
		Name:       p.Name,
		Interval:   p.Interval,
		PriceCents: p.PriceCents,
		Price:      billing.FormatAmount(p.PriceCents, "usd"),
	}
}

func buildSubscriptionDTO(now time.Time, sub *billing.Subscription) *SubscriptionDTO {
	if sub == nil {
		return nil
	}

	var daysLeft *int
	if sub.CurrentPeriodEnd != nil {
		d := 0
		if now.Before(*sub.CurrentPeriodEnd) {
			d = int(sub.CurrentPeriodEnd.Sub(now).Hours() / 24)
		}
		daysLeft = &d
	}

	return &SubscriptionDTO{
		Status:             string(sub.Status),
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		DaysLeft:           daysLeft,
		HasBillingCustomer: sub.CustomerID() != "",
	}
}
