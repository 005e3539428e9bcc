package billing

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"saas-starter/internal/app/http/middleware"
	"saas-starter/internal/domain/billing"
	"saas-starter/internal/domain/plans"
)

type Handler struct {
	svc      *Service
	repo     billing.Repository
	registry *plans.Registry
	log      logrus.FieldLogger
}

func NewHandler(svc *Service, repo billing.Repository, registry *plans.Registry, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, repo: repo, registry: registry, log: log.WithField("component", "billing_api")}
}

// POST /api/billing/checkout
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var body struct {
		Plan string `form:"plan" json:"plan"`
	}
	// a missing plan is reported by the service after the auth check
	_ = c.ShouldBind(&body)

	url, err := h.svc.StartCheckout(c.Request.Context(), middleware.CurrentUser(c), body.Plan)
	if err != nil {
		h.fail(c, err)
		return
	}
	redirect(c, url)
}

// POST /api/billing/portal
func (h *Handler) CreateBillingPortal(c *gin.Context) {
	url, err := h.svc.StartPortal(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	redirect(c, url)
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, msg := ErrorResponse(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.FullPath()).Error("billing request failed")
	}
	c.JSON(status, gin.H{"success": false, "error": msg})
}

// redirect sends browsers to the hosted page; API clients get the URL.
func redirect(c *gin.Context, url string) {
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		c.JSON(http.StatusOK, gin.H{"success": true, "url": url})
		return
	}
	c.Redirect(http.StatusSeeOther, url)
}
