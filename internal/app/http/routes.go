package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	adminapi "saas-starter/internal/api/admin"
	authapi "saas-starter/internal/api/auth"
	"saas-starter/internal/api/billing"
	"saas-starter/internal/api/plans"
	"saas-starter/internal/api/settings"
	stripewebhooks "saas-starter/internal/api/stripewebhook"
	"saas-starter/internal/api/users"
	"saas-starter/internal/app/http/middleware"
	domainusers "saas-starter/internal/domain/users"
)

type Deps struct {
	Sessions middleware.TokenParser
	Auth     *authapi.Handler
	Billing  *billing.Handler
	Plans    *plans.Handler
	Webhooks *stripewebhooks.Handler
	Users    *users.Handler
	Admin    *adminapi.Handler
	Settings *settings.Handler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Stripe signs the raw body, so the webhook sits outside every body-rewriting middleware.
	r.POST("/api/webhooks/stripe", d.Webhooks.StripeWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(middleware.LoadSession(d.Sessions))

	api.GET("/plans", d.Plans.ListPlans)

	// Credentials are compared byte for byte, so auth bodies are never sanitized.
	authGroup := api.Group("/auth")
	authGroup.POST("/sign-in", d.Auth.SignIn)
	authGroup.POST("/sign-out", d.Auth.SignOut)
	authGroup.GET("/google", d.Auth.GoogleStart)
	authGroup.GET("/callback", d.Auth.GoogleCallback)

	api.GET("/me", d.Users.GetCurrentUser)

	settingsGroup := api.Group("/settings")
	settingsGroup.PUT("/profile", middleware.SanitizeInput(), d.Settings.UpdateProfile)
	settingsGroup.PUT("/password", d.Settings.ChangePassword)
	settingsGroup.GET("/notifications", d.Settings.GetNotifications)
	settingsGroup.PUT("/notifications", d.Settings.UpdateNotifications)

	billingGroup := api.Group("/billing")
	billingGroup.POST("/checkout", d.Billing.CreateCheckoutSession)
	billingGroup.POST("/portal", d.Billing.CreateBillingPortal)
	billingGroup.GET("/subscription", d.Billing.GetSubscription)
	billingGroup.GET("/invoices", d.Billing.GetInvoices)

	admin := api.Group("/admin")
	admin.Use(middleware.RequireRole(domainusers.RoleAdmin, domainusers.RoleSuperAdmin))
	admin.GET("/stats", d.Admin.Stats)
	admin.GET("/events", d.Admin.ListEvents)
	admin.GET("/users/:id", d.Admin.GetUserDetails)
	admin.GET("/plans/price-check", d.Plans.CheckStripePrices)
}
