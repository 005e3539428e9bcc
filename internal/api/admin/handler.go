package admin

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"saas-starter/internal/domain/billing"
	"saas-starter/internal/domain/plans"
	"saas-starter/internal/domain/users"
)

// Store is the read side the admin views need.
type Store interface {
	PlanCounts(ctx context.Context) (map[plans.Key]int64, error)
	RevenueSince(ctx context.Context, since time.Time) ([]billing.Revenue, error)
	RecentEvents(ctx context.Context, limit int) ([]billing.StripeEvent, error)
	FindProfile(ctx context.Context, userID string) (*users.Profile, error)
	FindSubscription(ctx context.Context, userID string) (*billing.Subscription, error)
	ListInvoices(ctx context.Context, userID string, limit int) ([]billing.Invoice, error)
}

type Handler struct {
	store Store
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewHandler(store Store, log logrus.FieldLogger) *Handler {
	return &Handler{store: store, log: log.WithField("component", "admin_api"), now: time.Now}
}

type RevenueLine struct {
	Currency    string `json:"currency"`
	AmountCents int64  `json:"amount_cents"`
	Display     string `json:"display"`
}

type Stats struct {
	TotalUsers   int64               `json:"total_users"`
	UsersPerPlan map[plans.Key]int64 `json:"users_per_plan"`
	Revenue30d   []RevenueLine       `json:"revenue_30d"`
}

// GET /api/admin/stats
func (h *Handler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	counts, err := h.store.PlanCounts(ctx)
	if err != nil {
		h.log.WithError(err).Error("plan counts failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}
	revenue, err := h.store.RevenueSince(ctx, h.now().AddDate(0, 0, -30))
	if err != nil {
		h.log.WithError(err).Error("revenue query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}

	stats := Stats{UsersPerPlan: counts, Revenue30d: []RevenueLine{}}
	for _, n := range counts {
		stats.TotalUsers += n
	}
	for _, r := range revenue {
		stats.Revenue30d = append(stats.Revenue30d, RevenueLine{
			Currency:    r.Currency,
			AmountCents: r.AmountCents,
			Display:     billing.FormatAmount(r.AmountCents, r.Currency),
		})
	}

	c.JSON(http.StatusOK, stats)
}

// GET /api/admin/events
func (h *Handler) ListEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	events, err := h.store.RecentEvents(c.Request.Context(), limit)
	if err != nil {
		h.log.WithError(err).Error("listing webhook events failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load events"})
		return
	}
	if events == nil {
		events = []billing.StripeEvent{}
	}
	c.JSON(http.StatusOK, events)
}

// GET /api/admin/users/:id
func (h *Handler) GetUserDetails(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("id")

	profile, err := h.store.FindProfile(ctx, userID)
	if errors.Is(err, billing.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		h.log.WithError(err).Error("loading profile failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	sub, err := h.store.FindSubscription(ctx, userID)
	if err != nil && !errors.Is(err, billing.ErrNotFound) {
		h.log.WithError(err).Error("loading subscription failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	invoices, err := h.store.ListInvoices(ctx, userID, 50)
	if err != nil {
		h.log.WithError(err).Error("loading invoices failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invoices"})
		return
	}
	if invoices == nil {
		invoices = []billing.Invoice{}
	}

	c.JSON(http.StatusOK, gin.H{
		"user":         profile,
		"subscription": sub,
		"invoices":     invoices,
	})
}
