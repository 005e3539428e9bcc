package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"saas-starter/internal/domain/billing"
	"saas-starter/internal/domain/users"
)

const (
	stateCookie  = "oauth_state"
	nextCookie   = "oauth_next"
	googleIssuer = "https://accounts.google.com"
)

type GoogleClaims struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// IDTokenVerifier checks a raw ID token and returns its claims.
type IDTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*GoogleClaims, error)
}

// Google holds the OAuth client and ID token verifier for Google sign-in.
type Google struct {
	oauth    *oauth2.Config
	verifier IDTokenVerifier
}

func NewGoogle(oauth *oauth2.Config, verifier IDTokenVerifier) *Google {
	return &Google{oauth: oauth, verifier: verifier}
}

// NewGoogleFromDiscovery fetches Google's OIDC discovery document and builds
// a verifier bound to clientID.
func NewGoogleFromDiscovery(ctx context.Context, clientID, clientSecret, redirectURL string) (*Google, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("google oidc discovery: %w", err)
	}
	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		Endpoint:     google.Endpoint,
	}
	return NewGoogle(cfg, oidcVerifier{provider.Verifier(&oidc.Config{ClientID: clientID})}), nil
}

type oidcVerifier struct {
	v *oidc.IDTokenVerifier
}

func (o oidcVerifier) Verify(ctx context.Context, raw string) (*GoogleClaims, error) {
	tok, err := o.v.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	var claims GoogleClaims
	if err := tok.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decode id token claims: %w", err)
	}
	return &claims, nil
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GET /api/auth/google
func (h *Handler) GoogleStart(c *gin.Context) {
	if h.google == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Google sign-in is not enabled"})
		return
	}

	state, err := randomState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate state"})
		return
	}
	h.setCookie(c, stateCookie, state, 300)
	h.setCookie(c, nextCookie, safeNext(c.Query("next")), 300)

	c.Redirect(http.StatusFound, h.google.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline))
}

// GET /api/auth/callback
func (h *Handler) GoogleCallback(c *gin.Context) {
	if h.google == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Google sign-in is not enabled"})
		return
	}

	state := c.Query("state")
	code := c.Query("code")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code/state"})
		return
	}
	cookieState, err := c.Cookie(stateCookie)
	if err != nil || cookieState != state {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}
	h.setCookie(c, stateCookie, "", -1)

	ctx := c.Request.Context()
	tok, err := h.google.oauth.Exchange(ctx, code)
	if err != nil {
		h.log.WithError(err).Warn("google code exchange failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "failed to exchange code"})
		return
	}
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing id_token"})
		return
	}

	claims, err := h.google.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		h.log.WithError(err).Warn("google id token rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid id_token"})
		return
	}
	if claims.Sub == "" || claims.Email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "google account has no email"})
		return
	}

	profile, err := h.findOrCreateGoogleProfile(ctx, claims)
	if err != nil {
		h.log.WithError(err).Error("google profile provisioning failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}
	if _, ok := h.startSession(c, profile); !ok {
		return
	}

	next, _ := c.Cookie(nextCookie)
	h.setCookie(c, nextCookie, "", -1)
	c.Redirect(http.StatusFound, h.opts.AppURL+safeNext(next))
}

func (h *Handler) findOrCreateGoogleProfile(ctx context.Context, gc *GoogleClaims) (*users.Profile, error) {
	p, err := h.profiles.FindProfileByGoogleSub(ctx, gc.Sub)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, billing.ErrNotFound) {
		return nil, err
	}

	p, err = h.profiles.FindProfileByEmail(ctx, gc.Email)
	if err == nil {
		if p.GoogleSub == nil {
			if err := h.profiles.LinkGoogleSub(ctx, p.ID, gc.Sub); err != nil {
				return nil, err
			}
			sub := gc.Sub
			p.GoogleSub = &sub
		}
		return p, nil
	}
	if !errors.Is(err, billing.ErrNotFound) {
		return nil, err
	}

	sub := gc.Sub
	p = &users.Profile{
		Email:     gc.Email,
		Role:      users.RoleUser,
		GoogleSub: &sub,
		FirstName: optional(gc.GivenName),
		LastName:  optional(gc.FamilyName),
		FullName:  optional(gc.Name),
		AvatarURL: optional(gc.Picture),
	}
	if err := h.profiles.CreateProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
