package settings

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"saas-starter/internal/app/http/middleware"
	"saas-starter/internal/domain/billing"
	"saas-starter/internal/domain/notifications"
	"saas-starter/internal/domain/users"
)

const invalidFields = "Please correct the highlighted fields."

// Store is the persistence the account settings endpoints need.
type Store interface {
	FindProfile(ctx context.Context, userID string) (*users.Profile, error)
	UpdateProfileName(ctx context.Context, userID, firstName, lastName string) error
	SetPasswordHash(ctx context.Context, userID, hash string) error
	NotificationPreferences(ctx context.Context, userID string) (*notifications.Preferences, error)
	UpsertNotificationPreferences(ctx context.Context, p *notifications.Preferences) error
}

type Handler struct {
	store Store
	log   logrus.FieldLogger
}

func NewHandler(store Store, log logrus.FieldLogger) *Handler {
	return &Handler{store: store, log: log.WithField("component", "settings")}
}

type result struct {
	Success     bool              `json:"success"`
	Message     string            `json:"message,omitempty"`
	Error       string            `json:"error,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

func fail(c *gin.Context, status int, msg string, fields map[string]string) {
	c.JSON(status, result{Error: msg, FieldErrors: fields})
}

func (h *Handler) caller(c *gin.Context) (*users.SessionUser, bool) {
	user := middleware.CurrentUser(c)
	if user == nil {
		fail(c, http.StatusUnauthorized, "You must be logged in.", nil)
		return nil, false
	}
	return user, true
}

func (h *Handler) internalError(c *gin.Context, err error, msg string) {
	h.log.WithError(err).Error(msg)
	fail(c, http.StatusInternalServerError, "Something went wrong. Please try again.", nil)
}

// PUT /api/settings/profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}
	var body struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, invalidFields, nil)
		return
	}

	first, last := strings.TrimSpace(body.FirstName), strings.TrimSpace(body.LastName)
	fields := map[string]string{}
	if first == "" {
		fields["first_name"] = "First name is required"
	}
	if last == "" {
		fields["last_name"] = "Last name is required"
	}
	if len(fields) > 0 {
		fail(c, http.StatusBadRequest, invalidFields, fields)
		return
	}

	err := h.store.UpdateProfileName(c.Request.Context(), user.ID, first, last)
	if errors.Is(err, billing.ErrNotFound) {
		fail(c, http.StatusNotFound, "User not found", nil)
		return
	}
	if err != nil {
		h.internalError(c, err, "updating profile failed")
		return
	}
	c.JSON(http.StatusOK, result{Success: true, Message: "Profile updated successfully."})
}

// PUT /api/settings/password
func (h *Handler) ChangePassword(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}
	var body struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, invalidFields, nil)
		return
	}
	if fields := validatePasswordChange(body.CurrentPassword, body.NewPassword, body.ConfirmPassword); len(fields) > 0 {
		fail(c, http.StatusBadRequest, invalidFields, fields)
		return
	}

	ctx := c.Request.Context()
	profile, err := h.store.FindProfile(ctx, user.ID)
	if errors.Is(err, billing.ErrNotFound) {
		fail(c, http.StatusNotFound, "User not found", nil)
		return
	}
	if err != nil {
		h.internalError(c, err, "loading profile failed")
		return
	}
	if profile.PasswordHash == nil || *profile.PasswordHash == "" {
		fail(c, http.StatusBadRequest, "This account uses Google sign-in and has no password to change.", nil)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*profile.PasswordHash), []byte(body.CurrentPassword)); err != nil {
		fail(c, http.StatusBadRequest, "Current password is incorrect.", map[string]string{
			"current_password": "Current password is incorrect.",
		})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.internalError(c, err, "hashing password failed")
		return
	}
	if err := h.store.SetPasswordHash(ctx, user.ID, string(hash)); err != nil {
		h.internalError(c, err, "saving password failed")
		return
	}
	h.log.WithField("user_id", user.ID).Info("password changed")
	c.JSON(http.StatusOK, result{Success: true, Message: "Password updated successfully."})
}

func validatePasswordChange(current, next, confirm string) map[string]string {
	fields := map[string]string{}
	if len(current) < 6 {
		fields["current_password"] = "Current password is required"
	}
	switch {
	case len(next) < 6:
		fields["new_password"] = "Password must be at least 6 characters"
	case !strings.ContainsFunc(next, unicode.IsUpper):
		fields["new_password"] = "Include at least one uppercase letter"
	case !strings.ContainsFunc(next, unicode.IsDigit):
		fields["new_password"] = "Include at least one number"
	}
	switch {
	case len(confirm) < 6:
		fields["confirm_password"] = "Confirm your new password"
	case confirm != next:
		fields["confirm_password"] = "Passwords do not match"
	}
	return fields
}

// GET /api/settings/notifications
func (h *Handler) GetNotifications(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}
	prefs, err := h.store.NotificationPreferences(c.Request.Context(), user.ID)
	if err != nil {
		h.internalError(c, err, "loading notification preferences failed")
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// PUT /api/settings/notifications
func (h *Handler) UpdateNotifications(c *gin.Context) {
	user, ok := h.caller(c)
	if !ok {
		return
	}
	var body struct {
		MarketingEmails bool `json:"marketing_emails"`
		PaymentAlerts   bool `json:"payment_alerts"`
		SecurityAlerts  bool `json:"security_alerts"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "Invalid notification settings.", nil)
		return
	}

	err := h.store.UpsertNotificationPreferences(c.Request.Context(), &notifications.Preferences{
		UserID:          user.ID,
		MarketingEmails: body.MarketingEmails,
		PaymentAlerts:   body.PaymentAlerts,
		SecurityAlerts:  body.SecurityAlerts,
	})
	if err != nil {
		h.internalError(c, err, "saving notification preferences failed")
		return
	}
	c.JSON(http.StatusOK, result{Success: true, Message: "Notification preferences saved."})
}
