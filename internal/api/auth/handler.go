package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"saas-starter/internal/domain/billing"
	"saas-starter/internal/domain/users"
	"saas-starter/internal/infra/session"
)

// ProfileStore is the slice of persistence the identity adapter needs.
type ProfileStore interface {
	FindProfileByEmail(ctx context.Context, email string) (*users.Profile, error)
	FindProfileByGoogleSub(ctx context.Context, sub string) (*users.Profile, error)
	CreateProfile(ctx context.Context, p *users.Profile) error
	LinkGoogleSub(ctx context.Context, userID, sub string) error
}

type Options struct {
	// AppURL prefixes post-login redirects.
	AppURL       string
	SecureCookie bool
}

type Handler struct {
	profiles ProfileStore
	issuer   *session.Issuer
	google   *Google
	opts     Options
	log      logrus.FieldLogger
}

// NewHandler wires the identity endpoints. google may be nil when Google
// sign-in is not configured.
func NewHandler(profiles ProfileStore, issuer *session.Issuer, google *Google, opts Options, log logrus.FieldLogger) *Handler {
	return &Handler{
		profiles: profiles,
		issuer:   issuer,
		google:   google,
		opts:     opts,
		log:      log.WithField("component", "auth"),
	}
}

type profileResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Plan  string `json:"plan"`
}

// POST /api/auth/sign-in
func (h *Handler) SignIn(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	profile, err := h.profiles.FindProfileByEmail(c.Request.Context(), input.Email)
	if errors.Is(err, billing.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		h.log.WithError(err).Error("sign-in lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong. Please try again."})
		return
	}

	if profile.PasswordHash == nil || *profile.PasswordHash == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "This account uses Google sign-in"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*profile.PasswordHash), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, ok := h.startSession(c, profile)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": profileResponse{
			ID:    profile.ID,
			Email: profile.Email,
			Name:  profile.DisplayName(),
			Role:  profile.Role,
			Plan:  string(profile.Plan),
		},
	})
}

// POST /api/auth/sign-out
func (h *Handler) SignOut(c *gin.Context) {
	h.setCookie(c, session.CookieName, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) startSession(c *gin.Context, p *users.Profile) (string, bool) {
	token, exp, err := h.issuer.Issue(p)
	if err != nil {
		h.log.WithError(err).Error("could not issue session token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create session"})
		return "", false
	}
	h.setCookie(c, session.CookieName, token, int(time.Until(exp).Seconds()))
	h.log.WithField("user_id", p.ID).Info("session started")
	return token, true
}

func (h *Handler) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", h.opts.SecureCookie, true)
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/dashboard"
	}
	return next
}
